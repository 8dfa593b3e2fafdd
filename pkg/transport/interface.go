package transport

import (
	"context"
	"io"
)

// Node is an outbound connection to a remote daemon.
type Node interface {
	// Send writes msg as a single JSON value.
	Send(msg any) error
	// Stream copies everything the remote sends into w until EOF.
	Stream(w io.Writer, buf []byte) (int64, error)
	Close() error
	Addr() string
}

// Transport accepts inbound connections and hands each one to a handler
// running in its own goroutine.
type Transport interface {
	ListenAndAccept() error
	Serve(ctx context.Context) error
	Close() error
	Addr() string
}
