package jitterbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuffer(t *testing.T, maxCount, prefetch int) *Buffer {
	t.Helper()
	b, err := New(Config{
		FrameSize:   160,
		MaxCount:    maxCount,
		Mode:        Adaptive,
		Prefetch:    prefetch,
		MinPrefetch: prefetch,
		MaxPrefetch: maxCount,
	})
	require.NoError(t, err)
	return b
}

func drainPrefetch(b *Buffer, n int) {
	for i := 0; i < n; i++ {
		b.Get()
	}
}

// TestReorder covers scenario S2: seq 100,101,103,102,104 arrive out of
// order; get_frame still yields Normal frames in ascending seq order and
// stats.reorder counts exactly one.
func TestReorder(t *testing.T) {
	b := newTestBuffer(t, 20, 2)

	for _, seq := range []uint16{100, 101, 103, 102, 104} {
		b.Put(seq, []byte{byte(seq)}, false)
	}

	drainPrefetch(b, 2)

	wantSeq := []uint16{100, 101, 102, 103, 104}
	for _, seq := range wantSeq {
		ft, data, n := b.Get()
		require.Equal(t, Normal, ft, "seq %d", seq)
		require.Equal(t, 1, n)
		assert.Equal(t, byte(seq), data[0])
	}

	assert.EqualValues(t, 1, b.Stats().Reorder)
	assert.EqualValues(t, 2, b.Stats().MaxDrift, "seq 102 arrived 2 behind the tail (104) set by seq 103")
}

// TestLossAndPLC covers scenario S3: seq 200,201,203 with 202 missing.
func TestLossAndPLC(t *testing.T) {
	b := newTestBuffer(t, 20, 2)

	for _, seq := range []uint16{200, 201, 203} {
		b.Put(seq, []byte{byte(seq)}, false)
	}

	drainPrefetch(b, 2)

	ft, _, _ := b.Get()
	assert.Equal(t, Normal, ft)
	ft, _, _ = b.Get()
	assert.Equal(t, Normal, ft)
	ft, data, n := b.Get()
	assert.Equal(t, Missing, ft)
	assert.Nil(t, data)
	assert.Zero(t, n)
	ft, _, _ = b.Get()
	assert.Equal(t, Normal, ft)

	assert.EqualValues(t, 1, b.Stats().Lost)
	assert.EqualValues(t, 1, b.Stats().BurstHistogram[0], "the single missing seq 202 is a burst of length 1")
}

// TestBurstHistogramBucketsLongerRuns covers §4.2's burst-length histogram:
// a run of three consecutive Missing outcomes must land in bucket index 2
// (length 3), not be spread across bucket 0.
func TestBurstHistogramBucketsLongerRuns(t *testing.T) {
	b := newTestBuffer(t, 20, 2)

	for _, seq := range []uint16{300, 301, 305} {
		b.Put(seq, []byte{byte(seq)}, false)
	}
	drainPrefetch(b, 2)

	ft, _, _ := b.Get() // 300: Normal
	assert.Equal(t, Normal, ft)
	ft, _, _ = b.Get() // 301: Normal
	assert.Equal(t, Normal, ft)
	ft, _, _ = b.Get() // 302: Missing
	assert.Equal(t, Missing, ft)
	ft, _, _ = b.Get() // 303: Missing
	assert.Equal(t, Missing, ft)
	ft, _, _ = b.Get() // 304: Missing
	assert.Equal(t, Missing, ft)
	ft, _, _ = b.Get() // 305: Normal, closes the burst
	assert.Equal(t, Normal, ft)

	stats := b.Stats()
	assert.EqualValues(t, 3, stats.Lost)
	assert.EqualValues(t, 1, stats.BurstHistogram[2], "one burst of length 3")
	assert.Zero(t, stats.BurstHistogram[0])
	assert.Zero(t, stats.BurstHistogram[1])
}

// TestOverflow covers scenario S4: max_count=4, seq 1..6 put with no reads
// in between retains the 4 newest and counts 2 as lost.
func TestOverflow(t *testing.T) {
	b := newTestBuffer(t, 4, 2)

	for _, seq := range []uint16{1, 2, 3, 4, 5, 6} {
		b.Put(seq, []byte{byte(seq)}, false)
	}

	assert.EqualValues(t, 2, b.Stats().Lost)
	assert.Equal(t, 4, b.occupied())
}

func TestDuplicatePut(t *testing.T) {
	b := newTestBuffer(t, 20, 2)
	b.Put(10, []byte{1}, false)
	b.Put(10, []byte{1}, false)
	assert.EqualValues(t, 1, b.Stats().Dup)
}

func TestLatePut(t *testing.T) {
	b := newTestBuffer(t, 20, 2)
	b.Put(10, []byte{1}, false)
	b.Put(11, []byte{1}, false)
	drainPrefetch(b, 2)
	b.Get() // consumes seq 10, headSeq becomes 11
	b.Put(10, []byte{1}, false)
	assert.EqualValues(t, 1, b.Stats().Late)
}

func TestPrefetchThenEmpty(t *testing.T) {
	b := newTestBuffer(t, 20, 3)

	for i := 0; i < 3; i++ {
		ft, _, _ := b.Get()
		assert.Equal(t, Prefetch, ft)
	}

	ft, _, _ := b.Get()
	assert.Equal(t, Empty, ft)
	assert.Equal(t, PhaseBuffering, b.State().Phase)
}

func TestReset(t *testing.T) {
	b := newTestBuffer(t, 20, 2)
	b.Put(5, []byte{1}, false)
	b.Reset()

	assert.Zero(t, b.Stats().In)
	assert.Equal(t, PhaseIdle, b.State().Phase)
	ft, _, _ := b.Get()
	assert.Equal(t, Prefetch, ft)
}
