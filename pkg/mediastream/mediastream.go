// Package mediastream ties the RTP session engine, jitter buffer, echo
// pipeline, codec and audio device into one aggregate, per §9's resolution
// of the cyclic-reference design note: session/jitter-buffer/echo context
// are plain owned values on MediaStream, and the audio device's callbacks
// close over a *MediaStream rather than holding circular pointers back into
// each other.
package mediastream

import (
	"errors"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/coresip/mediacore/pkg/audiodevice"
	"github.com/coresip/mediacore/pkg/codecs"
	"github.com/coresip/mediacore/pkg/echo"
	"github.com/coresip/mediacore/pkg/jitterbuffer"
	"github.com/coresip/mediacore/pkg/metrics"
	"github.com/coresip/mediacore/pkg/rtpsession"
)

var (
	ErrAlreadyStarted = errors.New("mediastream: already started")
	ErrNotStarted     = errors.New("mediastream: not started")
)

// Config wires together one MediaStream's dependencies. RTP, JitterBuffer,
// Echo and Audio are the *Config types of their own packages; New forwards
// them after setting each one's Logger to the stream's logger and filling
// Echo.SamplesPerFrame from Audio.FrameSamples when it is zero.
type Config struct {
	RTP          rtpsession.Config
	JitterBuffer jitterbuffer.Config
	Echo         echo.Config
	Audio        audiodevice.Config // OnCapture/OnPlayback are overwritten by Start
	Codec        codecs.Codec
	Transport    *UDPTransport

	// Metrics is optional; a nil Collector makes every observation a no-op.
	Metrics *metrics.Collector

	Logger *log.Logger
}

// MediaStream is the §2 data-flow pipeline assembled end to end: Wire ->
// RTP decode -> codec decode -> jitter buffer (holding decoded PCM) -> delay
// buffer (inside Echo) -> playback, and Mic -> echo capture -> codec encode -> RTP encode ->
// Wire. It is created when a call's media starts and destroyed when it
// ends, per §3's lifecycle note.
type MediaStream struct {
	log *log.Logger

	session *rtpsession.Session
	jbuf    *jitterbuffer.Buffer
	ec      *echo.Context
	codec   codecs.Codec
	device  audiodevice.Device

	transport *UDPTransport
	metrics   *metrics.Collector

	frameSamples int

	started atomic.Bool

	pcmScratch    []int16
	encodeScratch []byte
	decodeScratch []int16

	prevLost, prevLate, prevReorder, prevDup uint64
}

// New assembles a MediaStream without starting any goroutine or callback.
func New(cfg Config) (*MediaStream, error) {
	if cfg.Codec == nil {
		return nil, errors.New("mediastream: codec is required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("mediastream: transport is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg.RTP.Logger = logger
	cfg.JitterBuffer.Logger = logger
	cfg.Echo.Logger = logger

	session, err := rtpsession.New(cfg.RTP)
	if err != nil {
		return nil, err
	}
	jbuf, err := jitterbuffer.New(cfg.JitterBuffer)
	if err != nil {
		return nil, err
	}
	if cfg.Echo.SamplesPerFrame == 0 {
		cfg.Echo.SamplesPerFrame = cfg.Audio.FrameSamples
	}
	ec, err := echo.New(cfg.Echo)
	if err != nil {
		return nil, err
	}
	if err := cfg.Codec.Open(cfg.Codec.DefaultAttr()); err != nil {
		return nil, err
	}

	ms := &MediaStream{
		log:           logger,
		session:       session,
		jbuf:          jbuf,
		ec:            ec,
		codec:         cfg.Codec,
		transport:     cfg.Transport,
		metrics:       cfg.Metrics,
		frameSamples:  cfg.Audio.FrameSamples,
		pcmScratch:    make([]int16, cfg.Audio.FrameSamples),
		encodeScratch: make([]byte, cfg.Audio.FrameSamples*2),
		decodeScratch: make([]int16, cfg.Audio.FrameSamples),
	}

	devCfg := cfg.Audio
	devCfg.OnCapture = ms.onCapture
	devCfg.OnPlayback = ms.onPlayback
	device, err := audiodevice.Open(devCfg)
	if err != nil {
		return nil, err
	}
	ms.device = device

	return ms, nil
}

// Start arms the audio device and the network receive loop.
func (ms *MediaStream) Start() error {
	if !ms.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go ms.transport.Serve(ms.onPacket)
	return ms.device.Start()
}

// Stop tears down the audio device and transport; the RTP session, jitter
// buffer and echo context are left intact for inspection (e.g. via Stats).
func (ms *MediaStream) Stop() error {
	if !ms.started.CompareAndSwap(true, false) {
		return ErrNotStarted
	}
	err := ms.device.Stop()
	if cerr := ms.transport.Close(); err == nil {
		err = cerr
	}
	return err
}

// onPacket runs on the network thread: decode, update the sequence
// tracker, decode the codec payload and hand the PCM frame to the jitter
// buffer's caller path by storing it keyed on sequence number.
func (ms *MediaStream) onPacket(pkt []byte) {
	hdr, payload, err := ms.session.Decode(pkt)
	if err != nil {
		ms.log.Debug("rtp decode failed", "err", err)
		return
	}
	ms.session.Update(hdr)
	ms.metrics.ObservePacketIn(len(payload))

	pcm, status := ms.codec.Decode(payload, ms.decodeScratch)
	if status != codecs.StatusOK {
		ms.log.Debug("codec decode failed", "status", status)
		return
	}
	ms.jbuf.Put(hdr.SequenceNumber, int16ToBytes(pcm), false)
	ms.reportJitterBufferMetrics()
}

// reportJitterBufferMetrics converts the jitter buffer's cumulative counters
// into the deltas metrics.Collector expects, since Prometheus counters only
// move forward via Add/Inc.
func (ms *MediaStream) reportJitterBufferMetrics() {
	s := ms.jbuf.Stats()
	lost, late, reorder, dup := s.Lost-ms.prevLost, s.Late-ms.prevLate, s.Reorder-ms.prevReorder, s.Dup-ms.prevDup
	ms.prevLost, ms.prevLate, ms.prevReorder, ms.prevDup = s.Lost, s.Late, s.Reorder, s.Dup
	ms.metrics.ObserveJitterBufferDelta(lost, late, reorder, dup, ms.jbuf.State().Level)
}

// onCapture runs on the audio thread, driven by the device at frame rate:
// it is the Mic -> EchoCtx.capture -> Encoder -> RTP Encoder -> Wire leg
// of §2's data flow.
func (ms *MediaStream) onCapture(mic []int16) {
	ms.ec.Capture(mic)

	payload, status := ms.codec.Encode(mic, ms.encodeScratch)
	if status != codecs.StatusOK {
		ms.log.Debug("codec encode failed", "status", status)
		return
	}

	hdr := ms.session.Encode(-1, false, uint32(len(mic)))
	wire := append(hdr.Marshal(), payload...)
	if err := ms.transport.Send(wire); err != nil {
		ms.log.Debug("rtp send failed", "err", err)
		return
	}
	ms.metrics.ObservePacketOut(len(payload))
}

// onPlayback runs on the audio thread: Jitter Buffer (decoded PCM) ->
// DelayBuf -> Playback callback -> Speaker. Codec decoding already happened
// in onPacket; here the codec is used only for PLC on Missing. On
// Prefetch/Empty it zero-fills, per §4.3.
func (ms *MediaStream) onPlayback(out []int16) {
	ft, data, _ := ms.jbuf.Get()

	switch ft {
	case jitterbuffer.Normal:
		bytesToInt16(data, out)
	case jitterbuffer.Missing:
		ms.codec.Recover(out)
	default: // Prefetch, Empty
		for i := range out {
			out[i] = 0
		}
	}

	ms.ec.Playback(out)
	ms.metrics.ObserveEchoDrift(ms.ec.Drift())
}

// Stats returns the jitter buffer's accumulated statistics, for callers
// that want visibility into loss/reorder/drift without reaching past the
// aggregate.
func (ms *MediaStream) Stats() jitterbuffer.Stats { return ms.jbuf.Stats() }

func int16ToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[2*i] = byte(s)
		b[2*i+1] = byte(s >> 8)
	}
	return b
}

func bytesToInt16(b []byte, out []int16) {
	n := len(b) / 2
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}
