package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tarun-kavipurapu/p2p-share/pkg/protocol"
	"tarun-kavipurapu/p2p-share/pkg/transport"
	"tarun-kavipurapu/p2p-share/pkg/transport/tcp"
)

const defaultTimeout = 10 * time.Second

// Client talks to a running daemon over its local command channel. Each call
// opens one connection, writes one command and reads the response until the
// daemon closes the connection.
type Client struct {
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context, addr string) (transport.Node, error)
}

func NewClient(addr string) *Client {
	return &Client{addr: addr, timeout: defaultTimeout, dial: tcp.Dial}
}

// Do sends cmd and returns the daemon's response. An ErrorResp from the
// daemon is returned as an error.
func (c *Client) Do(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	bs, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	node, err := c.dial(ctx, c.addr)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", c.addr, err)
	}
	defer node.Close()

	go func() {
		<-ctx.Done()
		node.Close()
	}()

	if err := node.Send(json.RawMessage(bs)); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	var buf bytes.Buffer
	if _, err := node.Stream(&buf, make([]byte, 4096)); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	resp, err := protocol.DecodeResponse(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if e, ok := resp.(protocol.ErrorResp); ok {
		return nil, fmt.Errorf("daemon: %s", e.Message)
	}
	return resp, nil
}

func (c *Client) Share(ctx context.Context, path string) error {
	_, err := c.Do(ctx, protocol.ShareCmd{Path: path})
	return err
}

func (c *Client) Scan(ctx context.Context) error {
	_, err := c.Do(ctx, protocol.ScanCmd{})
	return err
}

// Ls returns the file names each known peer advertised.
func (c *Client) Ls(ctx context.Context) (map[string][]string, error) {
	resp, err := c.Do(ctx, protocol.LsCmd{})
	if err != nil {
		return nil, err
	}
	ls, ok := resp.(protocol.LsResp)
	if !ok {
		return nil, unexpected(resp)
	}
	return ls.Files, nil
}

// Download asks the daemon to fetch name into savePath. It reports false when
// no peer has the file or it is already being downloaded.
func (c *Client) Download(ctx context.Context, name, savePath string) (bool, error) {
	resp, err := c.Do(ctx, protocol.DownloadCmd{Name: name, SavePath: savePath})
	if err != nil {
		return false, err
	}
	dl, ok := resp.(protocol.DownloadResp)
	if !ok {
		return false, unexpected(resp)
	}
	return dl.Started, nil
}

func (c *Client) Status(ctx context.Context) (protocol.StatusResp, error) {
	resp, err := c.Do(ctx, protocol.StatusCmd{})
	if err != nil {
		return protocol.StatusResp{}, err
	}
	st, ok := resp.(protocol.StatusResp)
	if !ok {
		return protocol.StatusResp{}, unexpected(resp)
	}
	return st, nil
}

func unexpected(resp protocol.Response) error {
	return fmt.Errorf("unexpected response %T", resp)
}
