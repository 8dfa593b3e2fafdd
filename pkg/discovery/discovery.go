package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"tarun-kavipurapu/p2p-share/pkg/config"
	"tarun-kavipurapu/p2p-share/pkg/logger"
	"tarun-kavipurapu/p2p-share/pkg/monitor"
	"tarun-kavipurapu/p2p-share/pkg/protocol"

	"golang.org/x/net/ipv4"
)

const writeTimeout = time.Second

// Sharer is the part of the ShareRegistry scans are answered from.
type Sharer interface {
	RegisterPeer(peer string, all bool) []string
}

// Recorder is the part of the DownloadRegistry scan responses land in.
type Recorder interface {
	Record(peer string, files []string) int
}

// Handler speaks the scan protocol: it multicasts scan requests, answers the
// requests of other daemons and records what they advertise.
type Handler struct {
	shares    Sharer
	downloads Recorder

	group        *net.UDPAddr
	port         int
	ttl          int
	datagramSize int

	// afterRestart is set until the first scan goes out, so that peers
	// resend everything they share.
	afterRestart atomic.Bool
	localAddrs   func() ([]net.IP, error)
}

func NewHandler(cfg *config.Config, shares Sharer, downloads Recorder) *Handler {
	h := &Handler{
		shares:       shares,
		downloads:    downloads,
		group:        cfg.DiscoveryGroupAddr(),
		port:         cfg.DiscoveryPort,
		ttl:          cfg.MulticastTTL,
		datagramSize: cfg.DatagramSize,
		localAddrs:   interfaceIPs,
	}
	h.afterRestart.Store(true)
	return h
}

// NextScan returns the request the next broadcast sends: ScanAfterRestart the
// first time, Scan afterwards.
func (h *Handler) NextScan() protocol.Request {
	if h.afterRestart.Swap(false) {
		return protocol.ScanAfterRestart{}
	}
	return protocol.Scan{}
}

// BroadcastScan multicasts a scan request from an ephemeral socket. Answers
// arrive asynchronously on the listener started by Serve.
func (h *Handler) BroadcastScan(ctx context.Context) error {
	req := h.NextScan()
	bs, err := protocol.EncodeRequest(req)
	if err != nil {
		return err
	}

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("failed to open scan socket: %w", err)
	}
	defer conn.Close()

	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.SetMulticastTTL(h.ttl); err != nil {
		logger.Sugar.Warnf("[Discovery] failed to set multicast ttl %d: %v", h.ttl, err)
	}
	if err := pconn.SetMulticastLoopback(true); err != nil {
		logger.Sugar.Debugf("[Discovery] failed to enable multicast loopback: %v", err)
	}

	if err := pconn.SetWriteDeadline(writeDeadline(ctx)); err != nil {
		return err
	}
	if _, err := pconn.WriteTo(bs, nil, h.group); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", protocol.RequestKind(req), h.group, err)
	}

	monitor.RecordDiscovery(monitor.DirectionSend, protocol.RequestKind(req))
	logger.Sugar.Infof("[Discovery] sent %s to %s", protocol.RequestKind(req), h.group)
	return nil
}

// Handle processes one datagram received from sender. Datagrams from this
// machine are ignored. For scan requests it returns the response to send
// back; a nil response means nothing is to be sent.
func (h *Handler) Handle(buf []byte, sender net.IP) (*protocol.ScanResponse, error) {
	local, err := h.isLocal(sender)
	if err != nil {
		monitor.RecordDiscoveryDrop()
		return nil, fmt.Errorf("failed to resolve local addresses: %w", err)
	}
	if local {
		monitor.RecordDiscoveryDrop()
		return nil, nil
	}

	req, err := protocol.DecodeRequest(buf)
	if err != nil {
		monitor.RecordDiscoveryDrop()
		return nil, err
	}
	monitor.RecordDiscovery(monitor.DirectionReceive, protocol.RequestKind(req))

	peer := sender.String()
	switch v := req.(type) {
	case protocol.Scan:
		return &protocol.ScanResponse{Files: h.shares.RegisterPeer(peer, false)}, nil
	case protocol.ScanAfterRestart:
		return &protocol.ScanResponse{Files: h.shares.RegisterPeer(peer, true)}, nil
	case protocol.ScanResponse:
		added := h.downloads.Record(peer, v.Files)
		logger.Sugar.Infof("[Discovery] %s advertised %d files (%d new)", peer, len(v.Files), added)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", protocol.ErrUnknownVariant, req)
	}
}

// Serve listens for discovery datagrams until ctx is canceled. A bad
// datagram is logged and dropped; only socket failures end the loop.
func (h *Handler) Serve(ctx context.Context) error {
	lc := net.ListenConfig{Control: reuseAddrControl}
	conn, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", h.port))
	if err != nil {
		return fmt.Errorf("failed to listen on discovery port %d: %w", h.port, err)
	}

	doneCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-doneCtx.Done()
		conn.Close()
	}()

	pconn := ipv4.NewPacketConn(conn)
	if joined := h.joinGroup(pconn); joined == 0 {
		return errors.New("no multicast interfaces available")
	}
	logger.Sugar.Infof("[Discovery] listening on %s group %s", conn.LocalAddr(), h.group.IP)

	buf := make([]byte, h.datagramSize)
	for {
		n, _, src, err := pconn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("discovery read failed: %w", err)
		}
		udpAddr, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}

		msg := make([]byte, n)
		copy(msg, buf[:n])
		reply, err := h.Handle(msg, udpAddr.IP)
		if err != nil {
			logger.Sugar.Warnf("[Discovery] dropped datagram from %s: %v", udpAddr, err)
			continue
		}
		if reply == nil {
			continue
		}
		if err := h.sendReply(ctx, *reply, udpAddr.IP); err != nil {
			logger.Sugar.Warnf("[Discovery] failed to answer %s: %v", udpAddr.IP, err)
		}
	}
}

func (h *Handler) String() string {
	return "discovery"
}

func (h *Handler) joinGroup(pconn *ipv4.PacketConn) int {
	group := &net.UDPAddr{IP: h.group.IP}
	intfs, err := net.Interfaces()
	if err != nil {
		logger.Sugar.Warnf("[Discovery] failed to list interfaces: %v", err)
	}

	joined := 0
	for i := range intfs {
		intf := &intfs[i]
		if intf.Flags&net.FlagUp == 0 || intf.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := pconn.JoinGroup(intf, group); err != nil {
			logger.Sugar.Debugf("[Discovery] join %s on %s failed: %v", group.IP, intf.Name, err)
			continue
		}
		logger.Sugar.Debugf("[Discovery] joined %s on %s", group.IP, intf.Name)
		joined++
	}
	if joined == 0 {
		// let the kernel pick the interface
		if err := pconn.JoinGroup(nil, group); err == nil {
			joined++
		}
	}
	return joined
}

// sendReply unicasts resp to the peer's discovery port from an ephemeral socket.
func (h *Handler) sendReply(ctx context.Context, resp protocol.ScanResponse, peer net.IP) error {
	bs, err := protocol.EncodeRequest(resp)
	if err != nil {
		return err
	}

	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: peer, Port: h.port})
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(writeDeadline(ctx)); err != nil {
		return err
	}
	if _, err := conn.Write(bs); err != nil {
		return err
	}

	monitor.RecordDiscovery(monitor.DirectionSend, protocol.RequestKind(resp))
	logger.Sugar.Debugf("[Discovery] answered %s with %d files", peer, len(resp.Files))
	return nil
}

func (h *Handler) isLocal(ip net.IP) (bool, error) {
	addrs, err := h.localAddrs()
	if err != nil {
		return false, err
	}
	for _, a := range addrs {
		if a.Equal(ip) {
			return true, nil
		}
	}
	return false, nil
}

func interfaceIPs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		switch v := a.(type) {
		case *net.IPNet:
			ips = append(ips, v.IP)
		case *net.IPAddr:
			ips = append(ips, v.IP)
		}
	}
	return ips, nil
}

func writeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}
