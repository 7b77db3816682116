// Package echo implements the echo/latency compensation pipeline of §4.3:
// an opaque echo canceller context fronted by a fixed-length reference-frame
// queue, plus a drift-absorbing delay buffer that keeps capture and playback
// in lock-step. Ported from pjproject's echo_common.c — lat_buf/lat_free as
// a fixed-size queue rather than a linked list, delay_buf as DelayBuf.
package echo

import (
	"errors"

	"github.com/charmbracelet/log"
)

var ErrInvalidConfig = errors.New("echo: invalid configuration")

// Canceller is the algorithm backing Cancel: a capability set per §9's
// "virtual dispatch for codecs/transports" redesign note, so a concrete
// acoustic-echo-cancellation algorithm is a tagged variant supplied at
// construction, never a compile-time choice baked into Context.
type Canceller interface {
	// Cancel removes the echo of ref (the delayed playback reference) from
	// mic in place.
	Cancel(mic, ref []int16)
	Reset()
}

// suppressor is the always-available fallback backend (pjproject's
// "echo_supp" operations vtable): a no-op canceller used when no acoustic
// algorithm is wired in, so the pipeline's latency/drift bookkeeping can be
// exercised and tested without a DSP dependency.
type suppressor struct{}

func (suppressor) Cancel([]int16, []int16) {}
func (suppressor) Reset()                  {}

// Config configures a Context at construction, mirroring
// pjmedia_echo_create2's clock_rate/samples_per_frame/tail_ms/latency_ms.
type Config struct {
	SamplesPerFrame int
	LatencyFrames   int // target depth of the reference-frame queue before capture starts cancelling
	RingFrames      int // DelayBuf capacity
	Policy          DelayPolicy
	Canceller       Canceller // nil => suppressor{} (pass-through)
	Logger          *log.Logger
}

func (c *Config) setDefaults() error {
	if c.SamplesPerFrame <= 0 {
		return ErrInvalidConfig
	}
	if c.LatencyFrames <= 0 {
		c.LatencyFrames = 1
	}
	if c.RingFrames <= 0 {
		c.RingFrames = c.LatencyFrames + 4
	}
	if c.Canceller == nil {
		c.Canceller = suppressor{}
	}
	return nil
}

// Context is the echo canceller context of §3: a reference-frame queue of
// configurable tail length, feeding Cancel a frame delayed by LatencyFrames
// relative to the microphone signal currently being captured.
type Context struct {
	cfg Config
	log *log.Logger

	latReady bool
	latQueue [][]int16 // fixed-capacity ring of unconsumed playback references
	latHead  int
	latTail  int
	latCount int

	delay *DelayBuf
}

// New allocates a Context. The reference-frame queue and delay buffer slabs
// are pre-allocated so Capture/Playback never allocate on the audio thread.
func New(cfg Config) (*Context, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	lg := cfg.Logger
	if lg == nil {
		lg = log.Default()
	}

	delay, err := NewDelayBuf(DelayBufConfig{
		FrameSize:  cfg.SamplesPerFrame,
		RingFrames: cfg.RingFrames,
		Policy:     cfg.Policy,
		Logger:     lg,
	})
	if err != nil {
		return nil, err
	}

	ec := &Context{
		cfg:   cfg,
		log:   lg,
		delay: delay,
	}
	ec.latQueue = make([][]int16, cfg.LatencyFrames)
	for i := range ec.latQueue {
		ec.latQueue[i] = make([]int16, cfg.SamplesPerFrame)
	}
	return ec, nil
}

// Reset flushes the reference-frame queue, delay buffer and underlying
// canceller state in one step, per §4.3's underrun/drift-overflow contract.
func (ec *Context) Reset() {
	ec.latReady = false
	ec.latHead = 0
	ec.latTail = 0
	ec.latCount = 0
	ec.delay.Reset()
	ec.cfg.Canceller.Reset()
	ec.log.Debug("echo context reset")
}

// Playback feeds one frame that is about to be (or was just) played to the
// speaker. While the reference queue has not yet reached LatencyFrames, the
// frame is queued directly; once full, further frames flow through the
// drift-absorbing delay buffer.
func (ec *Context) Playback(frame []int16) {
	if !ec.latReady {
		if ec.latCount == len(ec.latQueue) {
			ec.latReady = true
			ec.delay.Put(frame)
			return
		}
		copy(ec.latQueue[ec.latHead], frame)
		ec.latHead = (ec.latHead + 1) % len(ec.latQueue)
		ec.latCount++
		return
	}
	ec.delay.Put(frame)
}

// Capture runs echo cancellation on mic in place against the oldest queued
// playback reference, then rotates one frame in from the delay buffer to
// keep the reference queue's depth constant. Returns false while still
// prefetching latency (mirrors pjmedia_echo_capture's early return).
func (ec *Context) Capture(mic []int16) bool {
	if !ec.latReady {
		return false
	}

	oldest := ec.latQueue[ec.latTail]
	ec.cfg.Canceller.Cancel(mic, oldest)

	if !ec.delay.Get(oldest) {
		for i := range oldest {
			oldest[i] = 0
		}
	}
	ec.latQueue[ec.latTail] = oldest
	ec.latTail = (ec.latTail + 1) % len(ec.latQueue)

	return true
}

// Drift exposes the delay buffer's current running drift, for callers that
// want to correlate echo resets with jitter buffer resets (§9 Open Question).
func (ec *Context) Drift() int { return ec.delay.Drift() }
