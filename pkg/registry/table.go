package registry

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoKey   = errors.New("registry key not found")
	ErrNoEntry = errors.New("registry entry not found")
)

// Entry is one (value, flag) pair of a registry list. Active is the
// transferring/downloading flag.
type Entry[V comparable] struct {
	Value  V
	Active bool
}

// PeerRegistry is the atomic surface shared by both registries. Every method
// holds the lock for exactly one read-modify-write and never across I/O.
type PeerRegistry[K comparable, V comparable] interface {
	Insert(key K)
	Append(key K, vals ...V) int
	Mark(key K, val V, active bool) error
	Snapshot() map[K][]Entry[V]
}

// Table is a lock-protected map of key -> ordered entry list. Lists are
// modified in place and entries are never removed.
type Table[K comparable, V comparable] struct {
	mu      sync.Mutex
	entries map[K][]Entry[V]
}

var _ PeerRegistry[string, string] = (*Table[string, string])(nil)

func NewTable[K comparable, V comparable]() *Table[K, V] {
	return &Table[K, V]{entries: make(map[K][]Entry[V])}
}

// Insert creates an empty list for key if it does not exist yet.
func (t *Table[K, V]) Insert(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[key]; !ok {
		t.entries[key] = []Entry[V]{}
	}
}

// Append adds (val, false) for every val not already recorded under key,
// creating the key if needed. It returns how many entries were added.
func (t *Table[K, V]) Append(key K, vals ...V) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	list, ok := t.entries[key]
	if !ok {
		list = []Entry[V]{}
	}
	added := 0
	for _, v := range vals {
		if indexOf(list, v) >= 0 {
			continue
		}
		list = append(list, Entry[V]{Value: v})
		added++
	}
	t.entries[key] = list
	return added
}

// Mark sets the flag of the single entry val under key.
func (t *Table[K, V]) Mark(key K, val V, active bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	list, ok := t.entries[key]
	if !ok {
		return fmt.Errorf("%w: %v", ErrNoKey, key)
	}
	i := indexOf(list, val)
	if i < 0 {
		return fmt.Errorf("%w: %v under %v", ErrNoEntry, val, key)
	}
	list[i].Active = active
	return nil
}

// Snapshot returns a deep copy of the table.
func (t *Table[K, V]) Snapshot() map[K][]Entry[V] {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[K][]Entry[V], len(t.entries))
	for k, list := range t.entries {
		cp := make([]Entry[V], len(list))
		copy(cp, list)
		out[k] = cp
	}
	return out
}

// Len returns the number of keys.
func (t *Table[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// update runs fn with the lock held. fn must not block.
func (t *Table[K, V]) update(fn func(entries map[K][]Entry[V])) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.entries)
}

func indexOf[V comparable](list []Entry[V], v V) int {
	for i := range list {
		if list[i].Value == v {
			return i
		}
	}
	return -1
}
