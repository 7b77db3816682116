package echo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(n int, v int16) []int16 {
	f := make([]int16, n)
	for i := range f {
		f[i] = v
	}
	return f
}

func TestCapturePrefetchesBeforeReady(t *testing.T) {
	ec, err := New(Config{SamplesPerFrame: 4, LatencyFrames: 2})
	require.NoError(t, err)

	assert.False(t, ec.Capture(frame(4, 1)))
	ec.Playback(frame(4, 10))
	assert.False(t, ec.Capture(frame(4, 1)))
	ec.Playback(frame(4, 20))
	assert.False(t, ec.Capture(frame(4, 1)))
	// A third playback overflows the LatencyFrames=2 queue, which is
	// exactly what flips latReady (mirrors pjmedia_echo_playback: the
	// frame that finds lat_free empty is the one that completes prefetch).
	ec.Playback(frame(4, 30))
	assert.True(t, ec.Capture(frame(4, 1)))
}

func TestCaptureCallsCancellerWithOldestReference(t *testing.T) {
	var gotRef []int16
	cancel := fakeCanceller{fn: func(mic, ref []int16) { gotRef = append([]int16(nil), ref...) }}

	ec, err := New(Config{SamplesPerFrame: 2, LatencyFrames: 1, Canceller: &cancel})
	require.NoError(t, err)

	ec.Playback(frame(2, 42)) // fills the LatencyFrames=1 queue
	ec.Playback(frame(2, 99)) // overflows it, flips latReady
	ec.Capture(frame(2, 1))

	assert.Equal(t, []int16{42, 42}, gotRef)
}

func TestResetClearsLatencyAndDrift(t *testing.T) {
	ec, err := New(Config{SamplesPerFrame: 2, LatencyFrames: 1})
	require.NoError(t, err)

	ec.Playback(frame(2, 1))
	ec.Playback(frame(2, 2))
	ec.Reset()

	assert.False(t, ec.latReady)
	assert.Zero(t, ec.Drift())
}

type fakeCanceller struct {
	fn     func(mic, ref []int16)
	resets int
}

func (f *fakeCanceller) Cancel(mic, ref []int16) { f.fn(mic, ref) }
func (f *fakeCanceller) Reset()                  { f.resets++ }

func TestDelayBufSimpleResetsOnOverflow(t *testing.T) {
	d, err := NewDelayBuf(DelayBufConfig{FrameSize: 2, RingFrames: 2, Policy: Simple, DriftThresh: 100})
	require.NoError(t, err)

	d.Put(frame(2, 1))
	d.Put(frame(2, 2))
	d.Put(frame(2, 3)) // overflow: ring already full

	assert.Equal(t, 1, d.Filled())
}

func TestDelayBufRoundtrip(t *testing.T) {
	d, err := NewDelayBuf(DelayBufConfig{FrameSize: 2, RingFrames: 4, DriftThresh: 100})
	require.NoError(t, err)

	d.Put(frame(2, 7))
	out := make([]int16, 2)
	ok := d.Get(out)

	assert.True(t, ok)
	assert.Equal(t, []int16{7, 7}, out)
}

func TestDelayBufGetUnderflow(t *testing.T) {
	d, err := NewDelayBuf(DelayBufConfig{FrameSize: 2, RingFrames: 4, DriftThresh: 100})
	require.NoError(t, err)

	out := make([]int16, 2)
	assert.False(t, d.Get(out))
}

// TestDelayBufWSOLADropsOldestOnPositiveDrift covers the WSOLA policy's
// drift-positive correction: once drift reaches DriftThresh, it drops the
// single oldest buffered frame in the sample domain instead of resetting
// the whole ring.
func TestDelayBufWSOLADropsOldestOnPositiveDrift(t *testing.T) {
	d, err := NewDelayBuf(DelayBufConfig{FrameSize: 2, RingFrames: 4, Policy: WSOLA, DriftThresh: 2})
	require.NoError(t, err)

	d.Put(frame(2, 1)) // drift=1, filled=1
	d.Put(frame(2, 2)) // drift=2 hits threshold: drop oldest (value 1)

	assert.Equal(t, 1, d.Filled())
	assert.Zero(t, d.Drift())

	out := make([]int16, 2)
	require.True(t, d.Get(out))
	assert.Equal(t, []int16{2, 2}, out, "the oldest frame (value 1) should have been dropped")
}

// TestDelayBufWSOLADuplicatesOnNegativeDrift covers the drift-negative
// correction: once enough Get calls outrun Put calls, it duplicates the
// last frame in the sample domain to stretch playback instead of just
// zeroing the drift counter.
func TestDelayBufWSOLADuplicatesOnNegativeDrift(t *testing.T) {
	d, err := NewDelayBuf(DelayBufConfig{FrameSize: 2, RingFrames: 4, Policy: WSOLA, DriftThresh: 2})
	require.NoError(t, err)

	d.Put(frame(2, 9)) // drift=1, filled=1
	out := make([]int16, 2)
	require.True(t, d.Get(out)) // drift=0, filled=0

	assert.False(t, d.Get(out)) // underflow: drift=-1, below threshold
	assert.False(t, d.Get(out)) // underflow: drift=-2 hits threshold, duplicates
	assert.Equal(t, 1, d.Filled(), "drift=-2 duplicated the last frame seen")

	require.True(t, d.Get(out))
	assert.Equal(t, []int16{9, 9}, out)
}
