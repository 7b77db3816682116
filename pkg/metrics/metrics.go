// Package metrics exports MediaStream runtime counters to Prometheus, in
// the style of the teacher's pkg/dialog/metrics.go: promauto-registered
// counters/gauges, namespaced per subsystem. A caller that doesn't want
// metrics passes a nil *Collector, on which every observation is a no-op.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus instruments for one MediaStream. A nil
// *Collector is valid and every method becomes a no-op, so callers that
// don't want metrics can simply omit it from their Config.
type Collector struct {
	enabled bool

	packetsIn  prometheus.Counter
	packetsOut prometheus.Counter
	bytesIn    prometheus.Counter
	bytesOut   prometheus.Counter

	jitterLost    prometheus.Counter
	jitterLate    prometheus.Counter
	jitterReorder prometheus.Counter
	jitterDup     prometheus.Counter
	jitterLevel   prometheus.Gauge

	echoDrift prometheus.Gauge

	transactionState *prometheus.CounterVec

	httpServer *http.Server
}

// Config configures a Collector's namespace. Namespace/Subsystem follow the
// teacher's convention of keeping one registration per component.
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig returns the namespace this module registers metrics under
// when a caller doesn't need a different one.
func DefaultConfig() Config {
	return Config{Namespace: "mediacore", Subsystem: "stream"}
}

// NewCollector registers the full metric set with the default Prometheus
// registry via promauto. Calling this twice with the same namespace panics,
// matching promauto's own behavior — callers that build more than one
// MediaStream share a single process-wide Collector.
func NewCollector(cfg Config) *Collector {
	ns, sub := cfg.Namespace, cfg.Subsystem

	return &Collector{
		enabled: true,

		packetsIn: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "packets_received_total",
			Help: "Total number of RTP packets received.",
		}),
		packetsOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "packets_sent_total",
			Help: "Total number of RTP packets sent.",
		}),
		bytesIn: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "bytes_received_total",
			Help: "Total number of RTP payload bytes received.",
		}),
		bytesOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "bytes_sent_total",
			Help: "Total number of RTP payload bytes sent.",
		}),
		jitterLost: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "jitter_buffer_lost_total",
			Help: "Frames the jitter buffer reports as lost.",
		}),
		jitterLate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "jitter_buffer_late_total",
			Help: "Packets dropped for arriving before the buffer's head.",
		}),
		jitterReorder: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "jitter_buffer_reorder_total",
			Help: "Packets accepted out of sequence order.",
		}),
		jitterDup: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "jitter_buffer_duplicate_total",
			Help: "Duplicate sequence numbers discarded.",
		}),
		jitterLevel: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "jitter_buffer_level",
			Help: "Frames currently queued in the jitter buffer.",
		}),
		echoDrift: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "echo_delay_drift_frames",
			Help: "Current frame drift between capture and playback clocks.",
		}),
		transactionState: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "siptransaction", Name: "state_transitions_total",
			Help: "SIP client transaction state transitions.",
		}, []string{"from", "to"}),
	}
}

func (c *Collector) ObservePacketIn(bytes int) {
	if c == nil || !c.enabled {
		return
	}
	c.packetsIn.Inc()
	c.bytesIn.Add(float64(bytes))
}

func (c *Collector) ObservePacketOut(bytes int) {
	if c == nil || !c.enabled {
		return
	}
	c.packetsOut.Inc()
	c.bytesOut.Add(float64(bytes))
}

// ObserveJitterBufferDelta applies the increment since the last call; the
// caller is expected to pass deltas (current minus previously observed), not
// the cumulative counters themselves, since Prometheus counters only move
// forward by Add/Inc.
func (c *Collector) ObserveJitterBufferDelta(lost, late, reorder, dup uint64, level int) {
	if c == nil || !c.enabled {
		return
	}
	c.jitterLost.Add(float64(lost))
	c.jitterLate.Add(float64(late))
	c.jitterReorder.Add(float64(reorder))
	c.jitterDup.Add(float64(dup))
	c.jitterLevel.Set(float64(level))
}

func (c *Collector) ObserveEchoDrift(drift int) {
	if c == nil || !c.enabled {
		return
	}
	c.echoDrift.Set(float64(drift))
}

func (c *Collector) ObserveTransactionTransition(from, to string) {
	if c == nil || !c.enabled {
		return
	}
	c.transactionState.WithLabelValues(from, to).Inc()
}

// ServeHTTP starts a /metrics endpoint on addr, in the same spirit as the
// teacher's StartHTTPServer: a dedicated mux, run until the caller cancels
// ctx or the listener errors. Blocks until shutdown; run it in a goroutine.
func (c *Collector) ServeHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	c.httpServer = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- c.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return c.httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
