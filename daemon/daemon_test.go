package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tarun-kavipurapu/p2p-share/pkg/config"
	"tarun-kavipurapu/p2p-share/pkg/control"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.MulticastGroup = "10.0.0.1"
	if _, err := New(cfg); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("got %v", err)
	}
}

func freeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestDaemonServesControlChannel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping socket test in short mode")
	}

	cfg := config.NewConfig()
	cfg.ClientAddr = "127.0.0.1:0"
	cfg.TransferPort = freeTCPPort(t)
	cfg.DiscoveryPort = freeTCPPort(t)
	cfg.TempDir = t.TempDir()
	cfg.MetricsInterval = 0

	d, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.ServeBackground(ctx)
	defer d.Close()

	var addr string
	deadline := time.Now().Add(5 * time.Second)
	for {
		addr = d.ControlAddr()
		if _, port, _ := net.SplitHostPort(addr); port != "0" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("control channel did not come up")
		}
		time.Sleep(10 * time.Millisecond)
	}

	file := filepath.Join(t.TempDir(), "movie.mkv")
	if err := os.WriteFile(file, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	client := control.NewClient(addr)
	if err := client.Share(ctx, file); err != nil {
		t.Fatalf("share: %v", err)
	}
	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if _, ok := st.Sharing[file]; !ok {
		t.Errorf("status does not list %s: %v", file, st.Sharing)
	}
	if _, ok := d.Shares.Lookup("movie.mkv"); !ok {
		t.Error("share registry not updated")
	}
}
