package jitterbuffer

// adaptiveState drives the adaptive prefetch: an exponentially weighted
// moving average of the observed reorder distances, plus a burst-loss bonus,
// clamped into [min_prefetch, max_prefetch]. Every reorder observation is
// folded into the average; window is stored but no windowing is applied.
// Fixed mode never touches this
// (the adaptation step is skipped entirely, per §4.2 "Fixed mode").
type adaptiveState struct {
	window       int
	ewmaReorder  float64
	cleanStreak  int
	lossStreak   int
	callsInBurst int
}

const (
	ewmaAlpha           = 0.125 // matches the classic RTT-smoothing alpha used across the pack's RTCP jitter code
	burstBonusPerLoss   = 1
	cleanRunDecayPeriod = 50 // consecutive clean frames before prefetch is allowed to shrink by one
)

func newAdaptiveState(window int) adaptiveState {
	return adaptiveState{window: window}
}

// observeReorder folds a newly observed reorder distance (how many frames
// "behind" tail the arriving packet landed) into the EWMA.
func (a *adaptiveState) observeReorder(distance int) {
	d := float64(distance)
	a.ewmaReorder = a.ewmaReorder + ewmaAlpha*(d-a.ewmaReorder)
}

// target recomputes the desired prefetch from the current EWMA and the
// active burst-loss streak, clamped to [min,max].
func (a *adaptiveState) target(min, max int) int {
	base := min
	if v := int(a.ewmaReorder + 0.5); v > base {
		base = v
	}
	base += a.lossStreak * burstBonusPerLoss
	if base < min {
		base = min
	}
	if base > max {
		base = max
	}
	return base
}

// onNormal records a clean (in-order, no-loss) Get outcome.
func (a *adaptiveState) onNormal() {
	a.lossStreak = 0
	a.cleanStreak++
}

// onLoss records a Missing/lost Get outcome, feeding the burst-loss bonus.
func (a *adaptiveState) onLoss() {
	a.lossStreak++
	a.cleanStreak = 0
}

// shouldShrink reports whether a sufficiently long clean run has elapsed to
// allow the prefetch to step down by one frame.
func (a *adaptiveState) shouldShrink() bool {
	if a.cleanStreak > 0 && a.cleanStreak%cleanRunDecayPeriod == 0 {
		return true
	}
	return false
}

// adaptOnNormal updates adaptive state after a Normal frame is delivered and
// recomputes the live prefetch target (no-op in Fixed mode).
func (b *Buffer) adaptOnNormal() {
	if b.cfg.Mode != Adaptive {
		return
	}
	b.adapt.onNormal()
	if b.adapt.shouldShrink() && b.prefetch > b.cfg.MinPrefetch {
		b.prefetch--
	}
}

// adaptOnLoss updates adaptive state after a Missing frame is delivered.
func (b *Buffer) adaptOnLoss() {
	if b.cfg.Mode != Adaptive {
		return
	}
	b.adapt.onLoss()
	target := b.adapt.target(b.cfg.MinPrefetch, b.cfg.MaxPrefetch)
	if target > b.prefetch {
		b.prefetch = target
	}
}

// adaptOnReorder updates the EWMA from an observed reorder distance at Put
// time (e.g. S2's seq 102 arriving after seq 103 already extended the
// buffer).
func (b *Buffer) adaptOnReorder(distance int) {
	if b.cfg.Mode != Adaptive {
		return
	}
	b.adapt.observeReorder(distance)
	target := b.adapt.target(b.cfg.MinPrefetch, b.cfg.MaxPrefetch)
	if target > b.prefetch {
		b.prefetch = target
	}
}
