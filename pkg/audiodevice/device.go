// Package audiodevice defines the sound-device interface the core consumes
// (§6): open/start/stop/close plus a pair of callbacks invoked once per
// frame period. Concrete backends are out of scope (§1 Non-goals) except a
// thin Linux one used by cmd/mediastream-demo, grounded on the same
// platform-file split the RTP transport layer uses.
package audiodevice

import "errors"

var (
	ErrAlreadyOpen = errors.New("audiodevice: device already open")
	ErrNotOpen     = errors.New("audiodevice: device not open")
	ErrClosed      = errors.New("audiodevice: device closed")
)

// CaptureFunc receives one interleaved PCM frame recorded from the
// microphone, exactly frameSamples*channels samples long.
type CaptureFunc func(pcm []int16)

// PlaybackFunc fills one interleaved PCM frame to be written to the
// speaker, exactly frameSamples*channels samples long.
type PlaybackFunc func(pcm []int16)

// Config parametrizes Open, per §6's "open(rate, channels, frame_samples,
// bits, rec_cb, play_cb)" contract. Bits is fixed at 16 (linear PCM) since
// nothing in this codebase produces any other sample width.
type Config struct {
	SampleRate   uint32
	Channels     int
	FrameSamples int
	OnCapture    CaptureFunc
	OnPlayback   PlaybackFunc
}

// Device is the audio device capability set of §6/§9: a vtable so a
// concrete backend is a tagged variant, never switched on at the callback
// call site.
type Device interface {
	Start() error
	Stop() error
	Close() error
}

// Open validates cfg and constructs the platform-appropriate backend
// (resolved at build time via the device_*.go files).
func Open(cfg Config) (Device, error) {
	if cfg.SampleRate == 0 || cfg.Channels <= 0 || cfg.FrameSamples <= 0 {
		return nil, errors.New("audiodevice: invalid configuration")
	}
	if cfg.OnCapture == nil || cfg.OnPlayback == nil {
		return nil, errors.New("audiodevice: capture and playback callbacks are required")
	}
	return newPlatformDevice(cfg)
}
