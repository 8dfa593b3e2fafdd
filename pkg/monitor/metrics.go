package monitor

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"tarun-kavipurapu/p2p-share/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DirectionSend    = "send"
	DirectionReceive = "receive"

	ResultOK     = "ok"
	ResultFailed = "failed"
)

var (
	metricTransferBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pshare",
		Subsystem: "transfer",
		Name:      "bytes_total",
		Help:      "Total chunk payload bytes, per direction",
	}, []string{"direction"})
	metricChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pshare",
		Subsystem: "transfer",
		Name:      "chunks_total",
		Help:      "Total chunk transfers, per direction and result",
	}, []string{"direction", "result"})
	metricDownloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pshare",
		Subsystem: "transfer",
		Name:      "downloads_total",
		Help:      "Total multi-chunk downloads, per result",
	}, []string{"result"})
	metricDiscovery = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pshare",
		Subsystem: "discovery",
		Name:      "messages_total",
		Help:      "Total discovery datagrams, per direction and kind",
	}, []string{"direction", "kind"})
	metricDiscoveryDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "p2pshare",
		Subsystem: "discovery",
		Name:      "dropped_total",
		Help:      "Datagrams dropped because they came from this host or failed to decode",
	})
)

// Metrics holds in-process totals for the periodic log line.
type Metrics struct {
	BytesSent     int64
	BytesReceived int64
	ChunksSent    int64
	ChunksRecv    int64
	ChunkFailures int64
	ServerStart   time.Time
}

var Global = &Metrics{
	ServerStart: time.Now(),
}

// RecordChunk records one finished chunk transfer in either direction.
func RecordChunk(direction string, bytes int64, err error) {
	result := ResultOK
	if err != nil {
		result = ResultFailed
		atomic.AddInt64(&Global.ChunkFailures, 1)
	}
	metricChunks.WithLabelValues(direction, result).Inc()
	metricTransferBytes.WithLabelValues(direction).Add(float64(bytes))

	switch direction {
	case DirectionSend:
		atomic.AddInt64(&Global.BytesSent, bytes)
		if err == nil {
			atomic.AddInt64(&Global.ChunksSent, 1)
		}
	case DirectionReceive:
		atomic.AddInt64(&Global.BytesReceived, bytes)
		if err == nil {
			atomic.AddInt64(&Global.ChunksRecv, 1)
		}
	}
}

// RecordDownload records the outcome of a whole download and logs its speed.
func RecordDownload(name string, bytes int64, elapsed time.Duration, err error) {
	if err != nil {
		metricDownloads.WithLabelValues(ResultFailed).Inc()
		return
	}
	metricDownloads.WithLabelValues(ResultOK).Inc()

	var speed float64
	if s := elapsed.Seconds(); s > 0 {
		speed = float64(bytes) / s / 1024 / 1024
	}
	logger.Sugar.Infof("[Transfer] file=%s | Size=%dKB | Duration=%.2fs | Speed=%.2fMB/s",
		name, bytes/1024, elapsed.Seconds(), speed)
}

func RecordDiscovery(direction, kind string) {
	metricDiscovery.WithLabelValues(direction, kind).Inc()
}

func RecordDiscoveryDrop() {
	metricDiscoveryDropped.Inc()
}

// LogPeriodic logs runtime and transfer totals every interval until ctx is done.
type LogPeriodic struct {
	Interval time.Duration
}

func (l LogPeriodic) Serve(ctx context.Context) error {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		elapsed := time.Since(Global.ServerStart).Seconds()
		var throughput float64
		if elapsed > 0 {
			total := atomic.LoadInt64(&Global.BytesSent) + atomic.LoadInt64(&Global.BytesReceived)
			throughput = float64(total) / elapsed / 1024 / 1024
		}

		logger.Sugar.Infof("[Metrics] Goroutines=%d | HeapAlloc=%dMB | Throughput=%.2fMB/s | Sent=%d | Received=%d | Failed=%d",
			runtime.NumGoroutine(),
			m.HeapAlloc/1024/1024,
			throughput,
			atomic.LoadInt64(&Global.ChunksSent),
			atomic.LoadInt64(&Global.ChunksRecv),
			atomic.LoadInt64(&Global.ChunkFailures),
		)
	}
}

func (l LogPeriodic) String() string {
	return "metrics-log"
}
