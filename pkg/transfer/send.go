package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"tarun-kavipurapu/p2p-share/pkg/logger"
	"tarun-kavipurapu/p2p-share/pkg/monitor"
	"tarun-kavipurapu/p2p-share/pkg/protocol"
)

// ServeConn handles one inbound connection on the transfer port: it reads a
// chunk request and streams the chunk back. Requests for files that are not
// shared, and malformed requests, are answered with a connection reset and no
// payload so the downloader sees an error rather than an empty chunk. A send
// that fails midway is reset as well.
func (e *Engine) ServeConn(conn net.Conn) {
	defer conn.Close()

	peer := remoteHost(conn.RemoteAddr())

	var req protocol.ChunkRequest
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		logger.Sugar.Warnf("[Transfer] bad chunk request from %s: %v", peer, err)
		abort(conn)
		return
	}

	n, err := e.Send(conn, peer, req)
	switch {
	case errors.Is(err, ErrNotShared), errors.Is(err, ErrBadRequest):
		logger.Sugar.Warnf("[Transfer] rejected request from %s for %q (%d/%d): %v", peer, req.FileName, req.Index, req.PeerCount, err)
		abort(conn)
	case err != nil:
		// a clean close would pass a truncated chunk off as complete
		logger.Sugar.Errorf("[Transfer] failed sending chunk %d/%d of %q to %s after %d bytes: %v", req.Index, req.PeerCount, req.FileName, peer, n, err)
		abort(conn)
	default:
		logger.Sugar.Infof("[Transfer] sent chunk %d/%d of %q to %s (%d bytes)", req.Index, req.PeerCount, req.FileName, peer, n)
	}
}

// Send writes the requested chunk of a shared file to w on behalf of peer.
func (e *Engine) Send(w io.Writer, peer string, req protocol.ChunkRequest) (int64, error) {
	if req.PeerCount == 0 || req.Index == 0 || req.Index > req.PeerCount {
		return 0, fmt.Errorf("%w: index %d of %d", ErrBadRequest, req.Index, req.PeerCount)
	}

	path, ok := e.shares.Lookup(req.FileName)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotShared, req.FileName)
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	offset, length := ChunkRange(info.Size(), req.PeerCount, req.Index)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek %s to %d: %w", path, offset, err)
	}

	// a peer that scanned us before our restart is not recorded yet
	e.shares.Append(path, peer)
	e.markShare(path, peer, true)
	defer e.markShare(path, peer, false)

	written, err := io.CopyBuffer(struct{ io.Writer }{w}, io.LimitReader(file, length), e.buffer())
	if err == nil && written < length {
		err = fmt.Errorf("%w: sent %d of %d bytes", ErrShortChunk, written, length)
	}
	monitor.RecordChunk(monitor.DirectionSend, written, err)
	return written, err
}

// abort closes conn with a reset instead of an orderly FIN.
func abort(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetLinger(0)
	}
	conn.Close()
}

func remoteHost(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
