// Package jitterbuffer implements the fixed-capacity, sequence-indexed
// adaptive jitter buffer of spec §4.2, modelled after pjproject's richer
// jbuf2.h state/statistics (phase, level, drift) rather than the older
// jbuf.h, per the Open Question in spec §9.
package jitterbuffer

import (
	"errors"

	"github.com/charmbracelet/log"
)

// FrameType is the typed outcome of a Get call, matching §3's slot record
// and §4.2's Get contract.
type FrameType int

const (
	Normal FrameType = iota
	Missing
	Prefetch
	Empty
)

func (t FrameType) String() string {
	switch t {
	case Normal:
		return "Normal"
	case Missing:
		return "Missing"
	case Prefetch:
		return "Prefetch"
	case Empty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Phase mirrors pjmedia_jb2_phase from jbuf2.h: distinguishes "never
// started" from "between talkspurts" in a way FrameType alone cannot.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuffering
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseBuffering:
		return "Buffering"
	case PhaseRunning:
		return "Running"
	default:
		return "Unknown"
	}
}

// Mode selects whether prefetch adapts to observed jitter or stays pinned.
type Mode int

const (
	Adaptive Mode = iota
	Fixed
)

var (
	ErrInvalidConfig = errors.New("jitterbuffer: invalid configuration")
	ErrStopped       = errors.New("jitterbuffer: buffer is stopped")
)

const burstHistogramBuckets = 32

// slot is the fixed-size record of §3: a frame plus its type. Only slots in
// [headSeq, tailSeq) may be Normal; every other slot is Empty. The slab is
// pre-allocated once at construction (§5 resource policy: no allocation on
// the audio/network path after start).
type slot struct {
	filled bool
	size   int
	seq    uint16
	buf    []byte
}

// Stats is the statistics block of §3's jitter buffer entity.
type Stats struct {
	Lost    uint64
	Late    uint64
	Dup     uint64
	Reorder uint64
	In      uint64
	Out     uint64

	MaxSize  int
	MaxLevel int
	MaxDrift int32

	// BurstHistogram[i] counts consecutive-loss bursts of length i+1,
	// saturating at the last bucket (pjproject's bounded burst stats).
	BurstHistogram [burstHistogramBuckets]uint64
}

// State is the live status block, mirroring pjmedia_jb2_state.
type State struct {
	Phase Phase
	Level int // occupied slot count
}

// Config configures a Buffer at construction time (§3 invariant:
// minPrefetch <= prefetch <= maxPrefetch <= maxCount).
type Config struct {
	FrameSize   int
	MaxCount    int
	Mode        Mode
	Prefetch    int
	MinPrefetch int
	MaxPrefetch int

	// DriftWindow is stored in the adaptive state but not consulted: the
	// EWMA folds in every observed reorder distance, with no windowing.
	DriftWindow int

	Logger *log.Logger
}

func (c *Config) setDefaults() error {
	if c.FrameSize <= 0 || c.MaxCount <= 0 {
		return ErrInvalidConfig
	}
	if c.MinPrefetch <= 0 {
		c.MinPrefetch = 2
	}
	if c.MaxPrefetch <= 0 {
		c.MaxPrefetch = c.MaxCount
	}
	if c.Prefetch <= 0 {
		c.Prefetch = c.MinPrefetch
	}
	if c.DriftWindow <= 0 {
		c.DriftWindow = 100
	}
	if !(c.MinPrefetch <= c.Prefetch && c.Prefetch <= c.MaxPrefetch && c.MaxPrefetch <= c.MaxCount) {
		return ErrInvalidConfig
	}
	return nil
}

// Buffer is the adaptive jitter buffer of spec §4.2. It is not safe for
// concurrent Put/Get calls from more than one goroutine — per §5 ordering
// guarantees, Put runs on the network thread and Get runs on the audio
// thread, each single-writer.
type Buffer struct {
	cfg Config
	log *log.Logger

	slots []slot // ring indexed by seq % len(slots)

	headSeq uint16
	tailSeq uint16
	started bool

	phase             Phase
	prefetch          int
	prefetchRemaining int

	// inBurst/burstLen track the current run of consecutive Missing Get
	// outcomes so it can be folded into Stats.BurstHistogram once a Normal
	// frame or an empty buffer closes the run out (see recordBurst).
	inBurst  bool
	burstLen int
	adapt    adaptiveState
	stopped  bool

	stats Stats
}

// New allocates a jitter buffer. The frame slab (maxCount * frameSize
// bytes) is pre-allocated here so Put never allocates on the hot path.
func New(cfg Config) (*Buffer, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	lg := cfg.Logger
	if lg == nil {
		lg = log.Default()
	}

	b := &Buffer{
		cfg:               cfg,
		log:               lg,
		slots:             make([]slot, cfg.MaxCount),
		phase:             PhaseIdle,
		prefetch:          cfg.Prefetch,
		prefetchRemaining: cfg.Prefetch,
	}
	for i := range b.slots {
		b.slots[i].buf = make([]byte, cfg.FrameSize)
	}
	b.adapt = newAdaptiveState(cfg.DriftWindow)
	return b, nil
}

func (b *Buffer) slotIndex(seq uint16) int {
	return int(seq) % len(b.slots)
}

// Reset flushes all slots to Empty, clears head/tail, zeroes counters and
// returns to PhaseIdle with the full prefetch countdown re-armed — per §4.2
// "Reset".
func (b *Buffer) Reset() {
	for i := range b.slots {
		b.slots[i].filled = false
	}
	b.headSeq = 0
	b.tailSeq = 0
	b.started = false
	b.phase = PhaseIdle
	b.prefetch = b.cfg.Prefetch
	b.prefetchRemaining = b.cfg.Prefetch
	b.inBurst = false
	b.burstLen = 0
	b.adapt = newAdaptiveState(b.cfg.DriftWindow)
	b.stats = Stats{}
	b.stopped = false
}

// State returns the live phase/level snapshot (pjmedia_jb2_get_state).
func (b *Buffer) State() State {
	return State{Phase: b.phase, Level: b.occupied()}
}

// Stats returns a copy of the accumulated statistics block.
func (b *Buffer) Stats() Stats { return b.stats }

func (b *Buffer) occupied() int {
	if !b.started {
		return 0
	}
	n := 0
	for seq := b.headSeq; seq != b.tailSeq; seq++ {
		if b.slots[b.slotIndex(seq)].filled {
			n++
		}
	}
	return n
}
