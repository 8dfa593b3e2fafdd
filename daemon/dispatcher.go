package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sort"

	"tarun-kavipurapu/p2p-share/pkg/logger"
	"tarun-kavipurapu/p2p-share/pkg/protocol"
	"tarun-kavipurapu/p2p-share/pkg/registry"
	"tarun-kavipurapu/p2p-share/pkg/transfer"

	"github.com/puzpuzpuz/xsync/v3"
)

type Scanner interface {
	BroadcastScan(ctx context.Context) error
}

type Downloader interface {
	Download(ctx context.Context, name, savePath string, peers []string) *transfer.Download
}

// Dispatcher executes commands from the local command channel.
type Dispatcher struct {
	shares    *registry.ShareRegistry
	downloads *registry.DownloadRegistry
	scanner   Scanner
	engine    Downloader

	reservedCPUs int
	parallelism  func() int

	// active maps a file name to its running download
	active *xsync.MapOf[string, *transfer.Download]
}

func NewDispatcher(shares *registry.ShareRegistry, downloads *registry.DownloadRegistry, scanner Scanner, engine Downloader, reservedCPUs int) *Dispatcher {
	return &Dispatcher{
		shares:       shares,
		downloads:    downloads,
		scanner:      scanner,
		engine:       engine,
		reservedCPUs: reservedCPUs,
		parallelism:  func() int { return runtime.GOMAXPROCS(0) },
		active:       xsync.NewMapOf[string, *transfer.Download](),
	}
}

// ServeConn reads one command from conn, writes the response and returns.
func (d *Dispatcher) ServeConn(conn net.Conn) {
	defer conn.Close()

	var raw json.RawMessage
	var resp protocol.Response
	if err := json.NewDecoder(conn).Decode(&raw); err != nil {
		logger.Sugar.Warnf("[Dispatcher] failed to read command from %s: %v", conn.RemoteAddr(), err)
		resp = protocol.ErrorResp{Message: err.Error()}
	} else if cmd, err := protocol.DecodeCommand(raw); err != nil {
		logger.Sugar.Warnf("[Dispatcher] bad command from %s: %v", conn.RemoteAddr(), err)
		resp = protocol.ErrorResp{Message: err.Error()}
	} else {
		resp = d.Dispatch(context.Background(), cmd)
	}

	bs, err := protocol.EncodeResponse(resp)
	if err != nil {
		logger.Sugar.Errorf("[Dispatcher] failed to encode %T: %v", resp, err)
		return
	}
	if _, err := conn.Write(bs); err != nil {
		logger.Sugar.Warnf("[Dispatcher] failed to answer %s: %v", conn.RemoteAddr(), err)
	}
}

// Dispatch runs one command. Download returns as soon as the transfer has
// been started.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd protocol.Command) protocol.Response {
	switch c := cmd.(type) {
	case protocol.ShareCmd:
		if err := d.share(c.Path); err != nil {
			logger.Sugar.Warnf("[Dispatcher] share %q: %v", c.Path, err)
			return protocol.ErrorResp{Message: err.Error()}
		}
		return protocol.ShareScanResp{}

	case protocol.ScanCmd:
		if err := d.scanner.BroadcastScan(ctx); err != nil {
			logger.Sugar.Errorf("[Dispatcher] scan failed: %v", err)
			return protocol.ErrorResp{Message: err.Error()}
		}
		return protocol.ShareScanResp{}

	case protocol.LsCmd:
		return protocol.LsResp{Files: d.downloads.Files()}

	case protocol.DownloadCmd:
		started, err := d.download(ctx, c.Name, c.SavePath)
		if err != nil {
			logger.Sugar.Warnf("[Dispatcher] download %q: %v", c.Name, err)
			return protocol.ErrorResp{Message: err.Error()}
		}
		return protocol.DownloadResp{Started: started}

	case protocol.StatusCmd:
		return protocol.StatusResp{
			Sharing:     d.shares.Transferring(),
			Downloading: d.downloads.Downloading(),
		}

	default:
		return protocol.ErrorResp{Message: fmt.Sprintf("unsupported command %T", cmd)}
	}
}

func (d *Dispatcher) share(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	d.shares.Share(path)
	logger.Sugar.Infof("[Dispatcher] sharing %s", path)
	return nil
}

var errNotDir = errors.New("save path is not a directory")

func (d *Dispatcher) download(ctx context.Context, name, savePath string) (bool, error) {
	if savePath != "" {
		info, err := os.Stat(savePath)
		if err != nil {
			return false, err
		}
		if !info.IsDir() {
			return false, fmt.Errorf("%w: %s", errNotDir, savePath)
		}
	}

	peers, ok := d.downloads.FindEligiblePeers(name)
	if !ok {
		logger.Sugar.Infof("[Dispatcher] %q has no eligible peers", name)
		return false, nil
	}
	peers = transfer.SelectPeers(peers, d.parallelism(), d.reservedCPUs)

	// the transfer outlives the command connection
	dctx := context.WithoutCancel(ctx)
	dl, loaded := d.active.LoadOrCompute(name, func() *transfer.Download {
		return d.engine.Download(dctx, name, savePath, peers)
	})
	if loaded {
		logger.Sugar.Infof("[Dispatcher] %q is already being downloaded (%s)", name, dl.ID)
		return false, nil
	}

	go func() {
		if err := dl.Wait(); err != nil {
			logger.Sugar.Errorf("[Dispatcher] download %s of %q failed: %v", dl.ID, name, err)
		}
		d.active.Delete(name)
	}()
	return true, nil
}

// Active returns the downloads still running, ordered by file name.
func (d *Dispatcher) Active() []*transfer.Download {
	var out []*transfer.Download
	d.active.Range(func(_ string, dl *transfer.Download) bool {
		out = append(out, dl)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
