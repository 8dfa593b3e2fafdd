package registry

import (
	"sort"
	"strings"
)

// BaseName returns the part of p after the last '/', or p itself when it
// contains no '/'. Other separators are not recognised.
func BaseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// ShareRegistry maps a locally shared full path to the peers that have
// learned about it; the flag is set while a chunk is being sent to that peer.
type ShareRegistry struct {
	*Table[string, string]
}

func NewShareRegistry() *ShareRegistry {
	return &ShareRegistry{Table: NewTable[string, string]()}
}

// Share registers path with an empty peer list. Sharing twice is a no-op.
func (r *ShareRegistry) Share(path string) {
	r.Insert(path)
}

// RegisterPeer records (peer, false) against every shared path that does not
// know peer yet and returns the base names to advertise to it. With all set,
// every shared file is returned, not only the newly recorded ones.
func (r *ShareRegistry) RegisterPeer(peer string, all bool) []string {
	files := []string{}
	r.update(func(entries map[string][]Entry[string]) {
		for _, path := range sortedKeys(entries) {
			list := entries[path]
			known := indexOf(list, peer) >= 0
			if !known {
				entries[path] = append(list, Entry[string]{Value: peer})
			}
			if all || !known {
				files = append(files, BaseName(path))
			}
		}
	})
	return files
}

// Lookup resolves a requested file name to the full shared path whose base
// name matches it.
func (r *ShareRegistry) Lookup(name string) (string, bool) {
	var (
		path  string
		found bool
	)
	r.update(func(entries map[string][]Entry[string]) {
		for _, p := range sortedKeys(entries) {
			if BaseName(p) == name {
				path, found = p, true
				return
			}
		}
	})
	return path, found
}

// Transferring lists, per shared path, the peers a chunk is currently being
// sent to. Every shared path is present, possibly with an empty list.
func (r *ShareRegistry) Transferring() map[string][]string {
	out := make(map[string][]string)
	for path, list := range r.Snapshot() {
		peers := []string{}
		for _, e := range list {
			if e.Active {
				peers = append(peers, e.Value)
			}
		}
		out[path] = peers
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
