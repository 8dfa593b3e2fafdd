package tcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"tarun-kavipurapu/p2p-share/pkg/logger"
	"tarun-kavipurapu/p2p-share/pkg/transport"
)

// TCPNode implements transport.Node
type TCPNode struct {
	conn net.Conn
	lock sync.Mutex
}

func NewTCPNode(conn net.Conn) *TCPNode {
	return &TCPNode{conn: conn}
}

// Dial opens an outbound connection. There is no deadline: a stalled peer
// only blocks the caller.
func Dial(ctx context.Context, addr string) (transport.Node, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCPNode(conn), nil
}

func (n *TCPNode) Send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	n.lock.Lock()
	defer n.lock.Unlock()

	_, err = n.conn.Write(payload)
	return err
}

func (n *TCPNode) Stream(w io.Writer, buf []byte) (int64, error) {
	// hide ReaderFrom so copies stay bounded by buf
	return io.CopyBuffer(struct{ io.Writer }{w}, n.conn, buf)
}

func (n *TCPNode) Close() error {
	return n.conn.Close()
}

func (n *TCPNode) Addr() string {
	return n.conn.RemoteAddr().String()
}

// TCPTransport implements transport.Transport
type TCPTransport struct {
	name       string
	listenAddr string
	onConn     func(net.Conn)

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
}

func NewTCPTransport(name, addr string, onConn func(net.Conn)) *TCPTransport {
	return &TCPTransport{
		name:       name,
		listenAddr: addr,
		onConn:     onConn,
	}
}

func (t *TCPTransport) listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", t.listenAddr)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.listener = ln
	t.mu.Unlock()
	t.closed.Store(false)
	return ln, nil
}

// ListenAndAccept starts listening and accepts in the background.
func (t *TCPTransport) ListenAndAccept() error {
	ln, err := t.listen()
	if err != nil {
		return err
	}

	go func() {
		if err := t.acceptLoop(ln); err != nil {
			logger.Sugar.Errorf("[TCPTransport] %s accept loop stopped: listen=%s err=%v", t.name, t.listenAddr, err)
		}
	}()
	return nil
}

// Serve listens and accepts until ctx is canceled or the listener fails.
func (t *TCPTransport) Serve(ctx context.Context) error {
	ln, err := t.listen()
	if err != nil {
		return fmt.Errorf("%s: failed to listen on %s: %w", t.name, t.listenAddr, err)
	}
	logger.Sugar.Infof("[TCPTransport] %s listening on %s", t.name, ln.Addr())

	doneCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-doneCtx.Done()
		t.Close()
	}()

	err = t.acceptLoop(ln)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (t *TCPTransport) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Sugar.Warnf("[TCPTransport] %s accept timeout: %v", t.name, err)
				continue
			}
			return err
		}
		go t.handleConn(conn)
	}
}

func (t *TCPTransport) handleConn(conn net.Conn) {
	defer conn.Close()

	logger.Sugar.Debugf("[TCPTransport] %s accepted connection from %s", t.name, conn.RemoteAddr())
	t.onConn(conn)
}

func (t *TCPTransport) Close() error {
	t.closed.Store(true)

	t.mu.Lock()
	ln := t.listener
	t.mu.Unlock()

	if ln == nil {
		return nil
	}
	return ln.Close()
}

// Addr returns the bound address once listening, the configured one before.
func (t *TCPTransport) Addr() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.listenAddr
}

func (t *TCPTransport) String() string {
	return t.name
}

var (
	_ transport.Transport = (*TCPTransport)(nil)
	_ transport.Node      = (*TCPNode)(nil)
)
