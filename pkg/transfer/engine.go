package transfer

import (
	"context"
	"errors"

	"tarun-kavipurapu/p2p-share/pkg/logger"
	"tarun-kavipurapu/p2p-share/pkg/transport"
	"tarun-kavipurapu/p2p-share/pkg/transport/tcp"

	"go.uber.org/zap"
)

var (
	ErrBadRequest = errors.New("malformed chunk request")
	ErrNotShared  = errors.New("file is not shared")
	ErrShortChunk = errors.New("file ended before the chunk was sent")
)

// ShareIndex is the sending side's view of the ShareRegistry.
type ShareIndex interface {
	Lookup(name string) (string, bool)
	Append(path string, peers ...string) int
	Mark(path, peer string, active bool) error
}

// DownloadMarker is the receiving side's view of the DownloadRegistry.
type DownloadMarker interface {
	Mark(peer, file string, active bool) error
}

type DialFunc func(ctx context.Context, addr string) (transport.Node, error)

type Options struct {
	// Port is the transfer port dialed on every peer.
	Port       int
	BufferSize int
	TempDir    string
	Dial       DialFunc
}

// Engine serves byte ranges of shared files and pulls files from peers in
// parallel chunks.
type Engine struct {
	shares    ShareIndex
	downloads DownloadMarker
	port      int
	bufSize   int
	tempDir   string
	dial      DialFunc
}

func NewEngine(shares ShareIndex, downloads DownloadMarker, opts Options) *Engine {
	e := &Engine{
		shares:    shares,
		downloads: downloads,
		port:      opts.Port,
		bufSize:   opts.BufferSize,
		tempDir:   opts.TempDir,
		dial:      opts.Dial,
	}
	if e.bufSize <= 0 {
		e.bufSize = 100_000
	}
	if e.tempDir == "" {
		e.tempDir = "."
	}
	if e.dial == nil {
		e.dial = tcp.Dial
	}
	return e
}

func (e *Engine) buffer() []byte {
	return make([]byte, e.bufSize)
}

// Registry entries touched here were put there by discovery or by the send
// path itself, so a missing one means the registries are out of sync.

func (e *Engine) markShare(path, peer string, active bool) {
	if err := e.shares.Mark(path, peer, active); err != nil {
		logger.Log.DPanic("[Transfer] share registry out of sync",
			zap.String("path", path), zap.String("peer", peer), zap.Bool("active", active), zap.Error(err))
	}
}

func (e *Engine) markDownload(peer, file string, active bool) {
	if err := e.downloads.Mark(peer, file, active); err != nil {
		logger.Log.DPanic("[Transfer] download registry out of sync",
			zap.String("peer", peer), zap.String("file", file), zap.Bool("active", active), zap.Error(err))
	}
}
