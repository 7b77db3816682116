package siptransaction

import "time"

// TimerID names one of the RFC 3261 §17.1.2 non-INVITE client transaction
// timers this package arms.
type TimerID string

const (
	TimerE TimerID = "E" // non-INVITE request retransmit
	TimerF TimerID = "F" // non-INVITE transaction timeout
	TimerK TimerID = "K" // wait in Completed before Terminated
)

// Timers holds the durations for one transaction instance. Default() gives
// RFC 3261's recommended values for an unreliable (UDP) transport.
type Timers struct {
	T1 time.Duration // RTT estimate, default 500ms
	T2 time.Duration // max retransmit interval, default 4s

	TimerK time.Duration // default 5s on UDP, 0 on reliable transports

	MaxRetransmit int // default 7, per §4.4 "source uses 7 for non-INVITE"
}

// DefaultTimers returns RFC 3261's recommended non-INVITE timer set.
func DefaultTimers() Timers {
	return Timers{
		T1:            500 * time.Millisecond,
		T2:            4 * time.Second,
		TimerK:        5 * time.Second,
		MaxRetransmit: 7,
	}
}

// timerF is Timer F's fixed duration: 64*T1, per §4.4.
func (t Timers) timerF() time.Duration { return 64 * t.T1 }

// nextRetransmit computes the next Timer E interval: min(2*current+100ms,
// T2), per §4.4's retransmission schedule (500, 1100, 2300, 4000, 4000...).
func (t Timers) nextRetransmit(current time.Duration) time.Duration {
	next := 2*current + 100*time.Millisecond
	if next > t.T2 {
		return t.T2
	}
	return next
}

// timerManager owns a transaction's live *time.Timer handles, mirroring the
// teacher's TimerManager: named timers, idempotent Stop, and start replacing
// any timer already armed under the same name.
type timerManager struct {
	timers map[TimerID]*time.Timer
}

func newTimerManager() *timerManager {
	return &timerManager{timers: make(map[TimerID]*time.Timer)}
}

func (m *timerManager) start(id TimerID, d time.Duration, fn func()) {
	m.stop(id)
	if d <= 0 {
		return
	}
	m.timers[id] = time.AfterFunc(d, fn)
}

func (m *timerManager) stop(id TimerID) {
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

func (m *timerManager) stopAll() {
	for id := range m.timers {
		m.stop(id)
	}
}
