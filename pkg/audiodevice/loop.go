package audiodevice

import (
	"sync"
	"time"
)

// loopDevice drives Config's capture/playback callbacks from a ticker at
// the frame period implied by SampleRate/FrameSamples. It has no real
// hardware backing: it is the clock source shared by every platform
// backend, which only add scheduling-priority tweaks on top (see
// device_linux.go).
type loopDevice struct {
	cfg    Config
	period time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	captureBuf  []int16
	playbackBuf []int16
}

func newLoopDevice(cfg Config) *loopDevice {
	n := cfg.FrameSamples * cfg.Channels
	return &loopDevice{
		cfg:         cfg,
		period:      time.Duration(cfg.FrameSamples) * time.Second / time.Duration(cfg.SampleRate),
		captureBuf:  make([]int16, n),
		playbackBuf: make([]int16, n),
	}
}

func (d *loopDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrAlreadyOpen
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	go d.run()
	return nil
}

func (d *loopDevice) run() {
	defer close(d.doneCh)
	t := time.NewTicker(d.period)
	defer t.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-t.C:
			for i := range d.captureBuf {
				d.captureBuf[i] = 0
			}
			d.cfg.OnCapture(d.captureBuf)
			d.cfg.OnPlayback(d.playbackBuf)
		}
	}
}

func (d *loopDevice) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrNotOpen
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	<-d.doneCh
	return nil
}

func (d *loopDevice) Close() error {
	return nil
}
