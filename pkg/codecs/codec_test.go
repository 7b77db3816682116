package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	g := NewG711(ULaw, 0)
	r.Register(0, g)

	got, err := r.Lookup(0)
	require.NoError(t, err)
	assert.Same(t, g, got)

	_, err = r.Lookup(8)
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestG711RoundtripULaw(t *testing.T) {
	g := NewG711(ULaw, 0)
	require.NoError(t, g.Open(g.DefaultAttr()))

	pcm := []int16{0, 100, -100, 3200, -3200}
	encBuf := make([]byte, len(pcm))
	enc, status := g.Encode(pcm, encBuf)
	require.Equal(t, StatusOK, status)
	assert.Len(t, enc, len(pcm))

	decBuf := make([]int16, len(pcm))
	dec, status := g.Decode(enc, decBuf)
	require.Equal(t, StatusOK, status)
	require.Len(t, dec, len(pcm))

	// G.711 is lossy companding: roundtripped samples should be close to
	// the originals, not bit-exact.
	for i, orig := range pcm {
		diff := int(dec[i]) - int(orig)
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, 300, "sample %d", i)
	}
}

func TestG711RecoverIsSilence(t *testing.T) {
	g := NewG711(ALaw, 8)
	out := make([]int16, 4)
	out[0] = 99
	rec, status := g.Recover(out)
	require.Equal(t, StatusOK, status)
	for _, s := range rec {
		assert.Zero(t, s)
	}
}

func TestEncodeBufferTooSmall(t *testing.T) {
	g := NewG711(ULaw, 0)
	_, status := g.Encode([]int16{1, 2, 3}, make([]byte, 2))
	assert.Equal(t, StatusBufferTooSmall, status)
}
