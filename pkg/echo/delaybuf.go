package echo

import (
	"errors"

	"github.com/charmbracelet/log"
)

// DelayPolicy selects how the delay buffer absorbs capture/playback clock
// drift, per §4.3.
type DelayPolicy int

const (
	// Simple — FIFO ring, resets outright on overflow/underflow.
	Simple DelayPolicy = iota
	// WSOLA — drift correction by duplicating or dropping one whole frame
	// instead of a hard reset.
	WSOLA
)

var (
	ErrDelayBufInvalidConfig = errors.New("echo: invalid delay buffer configuration")
)

// DelayBufConfig configures a DelayBuf at construction (mirrors
// pjmedia_delay_buf_create's clock_rate/samples_per_frame/max_cnt trio).
type DelayBufConfig struct {
	FrameSize    int
	RingFrames   int // capacity in frames
	Policy       DelayPolicy
	DriftThresh  int // |drift| in frames that triggers a TSM/reset step; defaults to FrameSize/2
	Logger       *log.Logger
}

func (c *DelayBufConfig) setDefaults() error {
	if c.FrameSize <= 0 || c.RingFrames <= 0 {
		return ErrDelayBufInvalidConfig
	}
	if c.DriftThresh <= 0 {
		c.DriftThresh = c.FrameSize / 2
	}
	return nil
}

// DelayBuf is the single-writer/single-reader PCM ring of §3's "Delay
// buffer" entity: one put and one get per audio frame period, with an
// integer drift counter that triggers a time-scale operation (or a flat
// reset, in Simple mode) once its magnitude reaches DriftThresh.
type DelayBuf struct {
	cfg DelayBufConfig
	log *log.Logger

	ring   [][]int16
	head   int // next slot to fill (put)
	tail   int // next slot to drain (get)
	filled int

	drift    int // running put-count - get-count estimate, in frames
	maxDrift int
}

// NewDelayBuf allocates the ring (frameSize * ringFrames samples) once, up
// front, matching §5's "no allocation on the hot path" resource policy.
func NewDelayBuf(cfg DelayBufConfig) (*DelayBuf, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	lg := cfg.Logger
	if lg == nil {
		lg = log.Default()
	}
	d := &DelayBuf{cfg: cfg, log: lg, ring: make([][]int16, cfg.RingFrames)}
	for i := range d.ring {
		d.ring[i] = make([]int16, cfg.FrameSize)
	}
	return d, nil
}

// Reset flushes the ring to empty and zeroes the drift estimate. It does not
// touch any echo canceller: the Simple-mode resets that Put and Get trigger
// on their own leave the owning Context's Canceller state as it is; only
// Context.Reset resets both in one step.
func (d *DelayBuf) Reset() {
	d.head = 0
	d.tail = 0
	d.filled = 0
	d.drift = 0
}

// Put enqueues one playback frame. Returns true if an overflow or
// drift-correcting step (dropping the oldest frame in WSOLA mode, hard reset
// in Simple mode) was applied.
func (d *DelayBuf) Put(frame []int16) bool {
	corrected := false
	if d.filled == len(d.ring) {
		corrected = d.handleOverflow()
	}

	copy(d.ring[d.head], frame)
	d.head = (d.head + 1) % len(d.ring)
	d.filled++
	d.drift++
	if d.drift > d.maxDrift {
		d.maxDrift = d.drift
	}

	if d.drift >= d.cfg.DriftThresh {
		corrected = d.correctDrift() || corrected
	}
	return corrected
}

// Get drains one frame for the echo canceller's reference path. ok is false
// on underflow (nothing buffered yet); the caller should zero-fill.
func (d *DelayBuf) Get(out []int16) (ok bool) {
	if d.filled == 0 {
		d.drift--
		if -d.drift >= d.cfg.DriftThresh {
			d.correctDrift()
		}
		return false
	}
	copy(out, d.ring[d.tail])
	d.tail = (d.tail + 1) % len(d.ring)
	d.filled--
	d.drift--
	return true
}

// handleOverflow runs when Put would overrun the ring: Simple mode resets
// outright; WSOLA mode drops the single oldest frame and keeps running,
// matching correctDrift's drop/duplicate behavior below instead of
// discarding the whole ring's history.
func (d *DelayBuf) handleOverflow() bool {
	d.tail = (d.tail + 1) % len(d.ring)
	d.filled--
	if d.cfg.Policy == Simple {
		d.Reset()
	}
	return true
}

// correctDrift applies a drift-correction step once |drift| exceeds the
// configured threshold, and reports whether it fired. Simple mode resets
// the ring outright; WSOLA mode instead drops (drift > 0, playback running
// ahead of capture) or duplicates (drift < 0, playback starved) a single
// frame in the sample domain — a coarse stand-in for a real windowed
// overlap-add, but it actually absorbs the drift in samples rather than
// just clearing the counter.
func (d *DelayBuf) correctDrift() bool {
	switch d.cfg.Policy {
	case Simple:
		d.Reset()
	default: // WSOLA
		if d.drift > 0 {
			d.dropOldestFrame()
		} else if d.drift < 0 {
			d.duplicateLastFrame()
		}
	}
	d.drift = 0
	return true
}

// dropOldestFrame discards the oldest buffered frame without handing it to
// Get, shrinking the backlog by one frame of audio.
func (d *DelayBuf) dropOldestFrame() {
	if d.filled == 0 {
		return
	}
	d.tail = (d.tail + 1) % len(d.ring)
	d.filled--
}

// duplicateLastFrame re-enqueues a copy of the most recently written frame
// (even an already-drained one still sitting in the ring slot behind head),
// stretching playback by one frame of audio to cover a starved buffer.
func (d *DelayBuf) duplicateLastFrame() {
	if d.filled == len(d.ring) {
		return
	}
	prev := (d.head - 1 + len(d.ring)) % len(d.ring)
	copy(d.ring[d.head], d.ring[prev])
	d.head = (d.head + 1) % len(d.ring)
	d.filled++
}

// Filled reports the number of frames currently buffered.
func (d *DelayBuf) Filled() int { return d.filled }

// Drift returns the current running drift estimate in frames.
func (d *DelayBuf) Drift() int { return d.drift }

// MaxDrift returns the largest positive drift observed since construction.
// Reset does not clear it, and negative (Get-side) drift is not recorded.
func (d *DelayBuf) MaxDrift() int { return d.maxDrift }
