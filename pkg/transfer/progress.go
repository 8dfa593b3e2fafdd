package transfer

import (
	"io"
	"sort"
	"sync"
	"time"
)

// ChunkState represents the current state of a chunk download
type ChunkState int

const (
	ChunkPending ChunkState = iota
	ChunkDownloading
	ChunkCompleted
	ChunkFailed
)

func (s ChunkState) String() string {
	switch s {
	case ChunkPending:
		return "pending"
	case ChunkDownloading:
		return "downloading"
	case ChunkCompleted:
		return "completed"
	case ChunkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChunkProgress tracks the progress of a single chunk
type ChunkProgress struct {
	Index     uint64
	State     ChunkState
	PeerAddr  string
	BytesDone int64
	StartTime time.Time
	EndTime   time.Time
	Err       error
}

// Tracker tracks the chunks of one download. Chunk sizes are unknown to the
// receiver, so progress is counted in bytes received.
type Tracker struct {
	mu              sync.RWMutex
	chunks          map[uint64]*ChunkProgress
	startTime       time.Time
	endTime         time.Time
	bytesDownloaded int64
}

func NewTracker(peers []string) *Tracker {
	t := &Tracker{
		chunks:    make(map[uint64]*ChunkProgress, len(peers)),
		startTime: time.Now(),
	}
	for i, peer := range peers {
		index := uint64(i + 1)
		t.chunks[index] = &ChunkProgress{Index: index, State: ChunkPending, PeerAddr: peer}
	}
	return t
}

// StartChunk marks a chunk as being downloaded
func (t *Tracker) StartChunk(index uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if chunk, ok := t.chunks[index]; ok {
		chunk.State = ChunkDownloading
		chunk.StartTime = time.Now()
	}
}

func (t *Tracker) addBytes(index uint64, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if chunk, ok := t.chunks[index]; ok {
		chunk.BytesDone += n
		t.bytesDownloaded += n
	}
}

// FinishChunk marks a chunk completed, or failed when err is set.
func (t *Tracker) FinishChunk(index uint64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	chunk, ok := t.chunks[index]
	if !ok {
		return
	}
	chunk.EndTime = time.Now()
	if err != nil {
		chunk.State = ChunkFailed
		chunk.Err = err
		return
	}
	chunk.State = ChunkCompleted
}

// MarkComplete marks the download as over
func (t *Tracker) MarkComplete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endTime = time.Now()
}

func (t *Tracker) BytesDownloaded() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bytesDownloaded
}

// Elapsed returns the time since the download started, frozen once complete.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.endTime.IsZero() {
		return t.endTime.Sub(t.startTime)
	}
	return time.Since(t.startTime)
}

// Chunks returns copies of every chunk's progress, ordered by index.
func (t *Tracker) Chunks() []ChunkProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ChunkProgress, 0, len(t.chunks))
	for _, c := range t.chunks {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Counts returns completed, failed and total chunk counts.
func (t *Tracker) Counts() (completed, failed, total int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, c := range t.chunks {
		switch c.State {
		case ChunkCompleted:
			completed++
		case ChunkFailed:
			failed++
		}
	}
	return completed, failed, len(t.chunks)
}

type progressWriter struct {
	w       io.Writer
	tracker *Tracker
	index   uint64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.tracker.addBytes(p.index, int64(n))
	return n, err
}
