package audiodevice

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpenRejectsMissingCallbacks(t *testing.T) {
	_, err := Open(Config{SampleRate: 8000, Channels: 1, FrameSamples: 160})
	assert.Error(t, err)
}

func TestStartInvokesCallbacksPeriodically(t *testing.T) {
	var captures, playbacks int64

	dev, err := Open(Config{
		SampleRate:   8000,
		Channels:     1,
		FrameSamples: 80, // 10ms period, keeps the test fast
		OnCapture:    func(pcm []int16) { atomic.AddInt64(&captures, 1) },
		OnPlayback:   func(pcm []int16) { atomic.AddInt64(&playbacks, 1) },
	})
	require.NoError(t, err)

	require.NoError(t, dev.Start())
	time.Sleep(55 * time.Millisecond)
	require.NoError(t, dev.Stop())

	assert.GreaterOrEqual(t, atomic.LoadInt64(&captures), int64(3))
	assert.GreaterOrEqual(t, atomic.LoadInt64(&playbacks), int64(3))
}

func TestDoubleStartFails(t *testing.T) {
	dev, err := Open(Config{
		SampleRate: 8000, Channels: 1, FrameSamples: 80,
		OnCapture: func([]int16) {}, OnPlayback: func([]int16) {},
	})
	require.NoError(t, err)

	require.NoError(t, dev.Start())
	defer dev.Stop()

	assert.ErrorIs(t, dev.Start(), ErrAlreadyOpen)
}
