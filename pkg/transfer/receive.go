package transfer

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"tarun-kavipurapu/p2p-share/pkg/logger"
	"tarun-kavipurapu/p2p-share/pkg/monitor"
	"tarun-kavipurapu/p2p-share/pkg/protocol"
	"tarun-kavipurapu/p2p-share/pkg/transport"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Download is one file being pulled from several peers, one chunk per peer.
type Download struct {
	ID     string
	Name   string
	Target string
	Peers  []string

	tracker  *Tracker
	finished atomic.Uint64

	mu   sync.Mutex
	err  error
	done chan struct{}
}

// Wait blocks until every chunk task finished and returns their combined errors.
func (d *Download) Wait() error {
	<-d.done
	return d.Err()
}

func (d *Download) Done() <-chan struct{} {
	return d.done
}

func (d *Download) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Download) Tracker() *Tracker {
	return d.tracker
}

func (d *Download) fail(err error) {
	d.mu.Lock()
	d.err = multierr.Append(d.err, err)
	d.mu.Unlock()
}

func (d *Download) peerCount() uint64 {
	return uint64(len(d.Peers))
}

// Download starts pulling name from peers and returns immediately. Chunk i
// (1-based) comes from peers[i-1]; the file is written to savePath/name. A
// failed chunk does not stop its siblings and is not retried.
func (e *Engine) Download(ctx context.Context, name, savePath string, peers []string) *Download {
	d := &Download{
		ID:      uuid.NewString(),
		Name:    name,
		Target:  filepath.Join(savePath, name),
		Peers:   append([]string(nil), peers...),
		tracker: NewTracker(peers),
		done:    make(chan struct{}),
	}

	logger.Sugar.Infof("[Transfer] starting download %s of %q from %d peers %v into %s", d.ID, name, len(peers), peers, d.Target)

	var wg sync.WaitGroup
	for i, peer := range d.Peers {
		wg.Add(1)
		go func(index uint64, peer string) {
			defer wg.Done()
			err := e.fetchChunk(ctx, d, peer, index)
			d.tracker.FinishChunk(index, err)
			if err != nil {
				logger.Sugar.Errorf("[Transfer] chunk %d/%d of %q from %s failed: %v", index, d.peerCount(), name, peer, err)
				d.fail(fmt.Errorf("chunk %d from %s: %w", index, peer, err))
			}
		}(uint64(i+1), peer)
	}

	go func() {
		wg.Wait()
		d.tracker.MarkComplete()
		err := d.Err()
		monitor.RecordDownload(name, d.tracker.BytesDownloaded(), d.tracker.Elapsed(), err)
		for _, c := range d.tracker.Chunks() {
			logger.Sugar.Debugf("[Transfer] download %s chunk %d from %s: %s, %d bytes in %s",
				d.ID, c.Index, c.PeerAddr, c.State, c.BytesDone, c.EndTime.Sub(c.StartTime))
		}
		if err == nil {
			logger.Sugar.Infof("[Transfer] download %s of %q complete", d.ID, name)
		}
		close(d.done)
	}()

	return d
}

func (e *Engine) fetchChunk(ctx context.Context, d *Download, peer string, index uint64) error {
	defer e.markDownload(peer, d.Name, false)

	node, err := e.dial(ctx, net.JoinHostPort(peer, strconv.Itoa(e.port)))
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer node.Close()

	req := protocol.ChunkRequest{FileName: d.Name, PeerCount: d.peerCount(), Index: index}
	if err := node.Send(req); err != nil {
		return fmt.Errorf("failed to send chunk request: %w", err)
	}
	e.markDownload(peer, d.Name, true)
	d.tracker.StartChunk(index)

	dst := d.Target
	if d.peerCount() > 1 {
		dst = ChunkPath(e.tempDir, d.ID, index)
	}
	n, err := e.receive(node, dst, d.tracker, index)
	monitor.RecordChunk(monitor.DirectionReceive, n, err)
	if err != nil {
		return err
	}
	logger.Sugar.Debugf("[Transfer] chunk %d/%d of %q from %s done (%d bytes)", index, d.peerCount(), d.Name, peer, n)

	if d.peerCount() == 1 {
		return nil
	}
	// the last chunk to land assembles the file
	if d.finished.Add(1) != d.peerCount() {
		return nil
	}
	parts := make([]string, 0, d.peerCount())
	for i := uint64(1); i <= d.peerCount(); i++ {
		parts = append(parts, ChunkPath(e.tempDir, d.ID, i))
	}
	if err := BuildFile(d.Target, parts, e.buffer()); err != nil {
		return fmt.Errorf("failed to assemble %s: %w", d.Target, err)
	}
	return nil
}

// receive streams the response body into dst. On failure dst is removed.
func (e *Engine) receive(node transport.Node, dst string, tracker *Tracker, index uint64) (int64, error) {
	file, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	n, err := node.Stream(&progressWriter{w: file, tracker: tracker, index: index}, e.buffer())
	if err != nil {
		return n, multierr.Combine(
			fmt.Errorf("failed to receive chunk: %w", err),
			file.Close(),
			os.Remove(dst),
		)
	}
	if err := file.Close(); err != nil {
		return n, multierr.Append(fmt.Errorf("failed to close %s: %w", dst, err), os.Remove(dst))
	}
	return n, nil
}
