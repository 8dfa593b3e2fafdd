package daemon

import (
	"fmt"
	"net"
	"strconv"

	"tarun-kavipurapu/p2p-share/pkg/config"
	"tarun-kavipurapu/p2p-share/pkg/discovery"
	"tarun-kavipurapu/p2p-share/pkg/logger"
	"tarun-kavipurapu/p2p-share/pkg/monitor"
	"tarun-kavipurapu/p2p-share/pkg/registry"
	"tarun-kavipurapu/p2p-share/pkg/transfer"
	"tarun-kavipurapu/p2p-share/pkg/transport/tcp"

	"github.com/thejerf/suture/v4"
	"go.uber.org/multierr"
)

// Daemon runs every listener of a peer under one supervisor: the discovery
// listener, the peer transfer listener, the local command channel and the
// metrics services. Serve blocks until the context is canceled.
type Daemon struct {
	*suture.Supervisor

	cfg        *config.Config
	Shares     *registry.ShareRegistry
	Downloads  *registry.DownloadRegistry
	Discovery  *discovery.Handler
	Engine     *transfer.Engine
	Dispatcher *Dispatcher

	transfers *tcp.TCPTransport
	control   *tcp.TCPTransport
}

func New(cfg *config.Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shares := registry.NewShareRegistry()
	downloads := registry.NewDownloadRegistry()
	disc := discovery.NewHandler(cfg, shares, downloads)
	engine := transfer.NewEngine(shares, downloads, transfer.Options{
		Port:       cfg.TransferPort,
		BufferSize: cfg.BufferSize,
		TempDir:    cfg.TempDir,
	})
	dispatcher := NewDispatcher(shares, downloads, disc, engine, cfg.ReservedCPUs)

	d := &Daemon{
		Supervisor: suture.New("p2pshare", suture.Spec{
			EventHook: func(e suture.Event) {
				logger.Sugar.Warnf("[Daemon] %s", e)
			},
		}),
		cfg:        cfg,
		Shares:     shares,
		Downloads:  downloads,
		Discovery:  disc,
		Engine:     engine,
		Dispatcher: dispatcher,
		transfers:  tcp.NewTCPTransport("transfer", net.JoinHostPort("0.0.0.0", strconv.Itoa(cfg.TransferPort)), engine.ServeConn),
		control:    tcp.NewTCPTransport("control", cfg.ClientAddr, dispatcher.ServeConn),
	}

	d.Add(disc)
	d.Add(d.transfers)
	d.Add(d.control)
	if cfg.MetricsInterval > 0 {
		d.Add(monitor.LogPeriodic{Interval: cfg.MetricsInterval})
	}
	if cfg.MetricsAddr != "" {
		d.Add(monitor.Server{Addr: cfg.MetricsAddr})
	}

	logger.Sugar.Infof("[Daemon] configured: control=%s transfer=:%d discovery=%s:%d temp=%s",
		cfg.ClientAddr, cfg.TransferPort, cfg.MulticastGroup, cfg.DiscoveryPort, cfg.TempDir)
	return d, nil
}

// ControlAddr is the bound address of the local command channel.
func (d *Daemon) ControlAddr() string {
	return d.control.Addr()
}

// Close stops the TCP listeners. Running downloads are abandoned.
func (d *Daemon) Close() error {
	if n := len(d.Dispatcher.Active()); n > 0 {
		logger.Sugar.Warnf("[Daemon] closing with %d downloads in flight", n)
	}
	err := multierr.Combine(d.transfers.Close(), d.control.Close())
	if err != nil {
		return fmt.Errorf("failed to close listeners: %w", err)
	}
	return nil
}
