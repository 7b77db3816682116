// Package siptransaction implements the RFC 3261 §17.1.2 non-INVITE client
// transaction (NICT): state machine, Timer E/F/K, and response matching.
// Modelled on the teacher's pkg/sip/transaction/client/non_invite.go, with
// the state graph itself expressed via looplab/fsm instead of a hand-rolled
// switch, per the fsm usage already established in pkg/dialog/refer_fsm.go.
package siptransaction

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/looplab/fsm"

	"github.com/coresip/mediacore/pkg/metrics"
)

const (
	StateTrying     = "trying"
	StateProceeding = "proceeding"
	StateCompleted  = "completed"
	StateTerminated = "terminated"
)

const (
	eventRecv1xx   = "recv_1xx"
	eventRecvFinal = "recv_final"
	eventTimerK    = "timer_k"
	eventTimeout   = "timeout"
)

// Result is the terminal outcome delivered to the owner exactly once, per
// §4.4's "exactly one terminal callback per transaction" contract.
type Result struct {
	Timeout  bool
	Response Response // nil when Timeout is true
}

// Transaction is a single non-INVITE client transaction. It owns its
// timers and is driven exclusively by the timer/network thread per §5 —
// HandleResponse/Terminate must not be called concurrently.
type Transaction struct {
	log *log.Logger

	req       Request
	transport Transport
	timers    Timers

	machine *fsm.FSM
	tm      *timerManager

	retransmitCount   int
	currentRetransmit time.Duration

	mu            sync.Mutex
	callbackFired bool
	callback      func(Result)

	metrics *metrics.Collector
}

// New constructs a transaction and immediately sends the request, arming
// Timer E (unreliable transports only) and Timer F. callback fires exactly
// once, on the goroutine that triggers the terminal event. mc may be nil.
func New(req Request, transport Transport, timers Timers, mc *metrics.Collector, callback func(Result)) *Transaction {
	t := &Transaction{
		log:       log.Default(),
		req:       req,
		transport: transport,
		timers:    timers,
		tm:        newTimerManager(),
		callback:  callback,
		metrics:   mc,
	}
	t.machine = fsm.NewFSM(
		StateTrying,
		fsm.Events{
			{Name: eventRecv1xx, Src: []string{StateTrying, StateProceeding}, Dst: StateProceeding},
			{Name: eventRecvFinal, Src: []string{StateTrying, StateProceeding}, Dst: StateCompleted},
			{Name: eventTimerK, Src: []string{StateCompleted}, Dst: StateTerminated},
			{Name: eventTimeout, Src: []string{StateTrying, StateProceeding}, Dst: StateTerminated},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				t.metrics.ObserveTransactionTransition(e.Src, e.Dst)
			},
		},
	)

	if err := transport.Send(req.Marshal()); err != nil {
		t.finish(Result{Timeout: true})
		return t
	}

	t.armRetransmit()
	t.tm.start(TimerF, timers.timerF(), t.onTimerF)
	return t
}

// State returns the current FSM state name.
func (t *Transaction) State() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.machine.Current()
}

func (t *Transaction) armRetransmit() {
	if t.transport.Reliable() || t.timers.T1 <= 0 {
		return
	}
	t.currentRetransmit = t.timers.T1
	t.tm.start(TimerE, t.timers.T1, t.onTimerE)
}

func (t *Transaction) onTimerE() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.callbackFired {
		return
	}

	state := t.machine.Current()
	if state != StateTrying && state != StateProceeding {
		return
	}
	if t.retransmitCount >= t.timers.MaxRetransmit {
		return
	}

	if err := t.transport.Send(t.req.Marshal()); err != nil {
		t.log.Debug("non-invite retransmit send failed", "err", err)
	}
	t.retransmitCount++

	next := t.timers.nextRetransmit(t.currentRetransmit)
	t.currentRetransmit = next
	t.tm.start(TimerE, next, t.onTimerE)
}

// onTimerF fires at 64*T1: if still awaiting a final response, this is the
// one Timeout callback the owner sees, per §4.4/§8 scenario S6.
func (t *Transaction) onTimerF() {
	t.mu.Lock()
	state := t.machine.Current()
	if state != StateTrying && state != StateProceeding {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.finish(Result{Timeout: true})
}

// onTimerK fires after a final response has already delivered the terminal
// callback; it only finalises the FSM state, it does not notify the owner
// again (the callback already fired when the final response arrived).
func (t *Transaction) onTimerK() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.machine.Current() == StateCompleted {
		_ = t.machine.Event(context.Background(), eventTimerK)
	}
}

// HandleResponse feeds one incoming response matching this transaction
// (the caller is responsible for routing via Match before calling this). A
// 1xx response moves to Proceeding and keeps retransmitting; a final
// response cancels Timer E/F, moves to Completed, arms Timer K (on a
// reliable transport, or with a zero Timer K, it moves straight on to
// Terminated), and fires the one terminal callback this transaction will
// ever deliver.
func (t *Transaction) HandleResponse(resp Response) {
	t.mu.Lock()
	if t.callbackFired {
		t.mu.Unlock()
		return
	}

	status := resp.StatusCode()
	state := t.machine.Current()

	if state == StateCompleted {
		// Absorb retransmitted final responses silently, per §4.4.
		t.mu.Unlock()
		return
	}

	if status >= 100 && status <= 199 {
		_ = t.machine.Event(context.Background(), eventRecv1xx)
		t.mu.Unlock()
		return
	}

	_ = t.machine.Event(context.Background(), eventRecvFinal)
	t.tm.stop(TimerE)
	t.tm.stop(TimerF)
	if t.transport.Reliable() || t.timers.TimerK <= 0 {
		_ = t.machine.Event(context.Background(), eventTimerK)
	} else {
		t.tm.start(TimerK, t.timers.TimerK, t.onTimerK)
	}
	t.mu.Unlock()

	t.finish(Result{Response: resp})
}

// Match reports whether resp belongs to this transaction, per §6's
// Via-branch + CSeq-method rule.
func (t *Transaction) Match(resp Response) bool { return matches(t.req, resp) }

// Terminate forcibly drives the transaction to Terminated (cancelling
// Timer K when already Completed) and, if the terminal callback has not
// fired yet, fires it once with Timeout, since no response is implied;
// subsequent events are silently discarded.
func (t *Transaction) Terminate() {
	t.mu.Lock()
	if t.machine.Current() == StateCompleted {
		t.tm.stop(TimerK)
		_ = t.machine.Event(context.Background(), eventTimerK)
	}
	t.mu.Unlock()
	t.finish(Result{Timeout: true})
}

// finish invokes the callback exactly once and stops the retransmit/timeout
// timers; Timer K (if armed) is left running so the FSM still reaches
// Terminated on schedule, matching Completed's "destruction deferred" note.
func (t *Transaction) finish(res Result) {
	t.mu.Lock()
	if t.callbackFired {
		t.mu.Unlock()
		return
	}
	t.callbackFired = true
	t.tm.stop(TimerE)
	t.tm.stop(TimerF)
	if res.Timeout && t.machine.Current() != StateTerminated {
		_ = t.machine.Event(context.Background(), eventTimeout)
	}
	cb := t.callback
	t.mu.Unlock()

	if cb != nil {
		cb(res)
	}
}
