package rtpsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoundtrip covers scenario S1: three encoded packets from session A
// decode cleanly on session B, with sequence numbers s, s+1, s+2 and
// timestamps t, t+160, t+320. The first two updates land in the MIN_SEQUENTIAL
// probation window (Probation, then Restarted); only the third settles to Ok,
// per RFC 3550 Appendix A.1.
func TestRoundtrip(t *testing.T) {
	a, err := New(Config{DefaultPayloadType: 0, SenderSSRC: 0xDEAD})
	require.NoError(t, err)
	b, err := New(Config{DefaultPayloadType: 0})
	require.NoError(t, err)

	startSeq := a.SequenceNumber() + 1
	startTS := a.Timestamp() + 160

	var results []UpdateResult
	for i := 0; i < 3; i++ {
		hdr := a.Encode(-1, false, 160)
		assert.Equal(t, startSeq+uint16(i), hdr.SequenceNumber)
		assert.Equal(t, startTS+uint32(i)*160, hdr.Timestamp)
		assert.EqualValues(t, 0xDEAD, hdr.SSRC)

		sentPayload := make([]byte, 160)
		for j := range sentPayload {
			sentPayload[j] = byte(i*160 + j)
		}
		wire := append(hdr.Marshal(), sentPayload...)
		decoded, payload, err := b.Decode(wire)
		require.NoError(t, err)
		assert.Equal(t, sentPayload, payload)
		assert.Equal(t, *hdr, decoded)

		results = append(results, b.Update(decoded))
	}

	assert.Equal(t, []UpdateResult{UpdateProbation, UpdateRestarted, UpdateOK}, results)
	assert.EqualValues(t, 0xDEAD, b.PeerSSRC())
}

// TestSequenceWrap covers scenario S5: seq 65534, 65535, 0, 1. All four are
// accepted, and cycles advances by exactly 2^16 once the wraparound packet
// (seq 0) is processed.
func TestSequenceWrap(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)

	seqs := []uint16{65534, 65535, 0, 1}
	var results []UpdateResult
	for _, seq := range seqs {
		results = append(results, s.Update(Header{SSRC: 1, SequenceNumber: seq}))
	}

	for _, r := range results {
		assert.NotEqual(t, UpdateBadSequence, r)
	}
	assert.EqualValues(t, 1<<16, s.tracker.Cycles())
	assert.EqualValues(t, 4, s.ReceivedCount())
}

func TestEncodeDefaultsToSessionPayloadType(t *testing.T) {
	s, err := New(Config{DefaultPayloadType: 8})
	require.NoError(t, err)

	hdr := s.Encode(-1, false, 160)
	assert.EqualValues(t, 8, hdr.PayloadType)

	hdr = s.Encode(0, true, 160)
	assert.EqualValues(t, 0, hdr.PayloadType)
	assert.True(t, hdr.Marker)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	pkt := make([]byte, 12)
	pkt[0] = 0x00 // version 0
	_, _, err := unmarshalHeader(pkt)
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestDecodeRejectsShortPacket(t *testing.T) {
	_, _, err := unmarshalHeader(make([]byte, 4))
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestMarshalRoundtripWithExtension(t *testing.T) {
	hdr := Header{
		Version:          rtpVersion,
		PayloadType:      8,
		SequenceNumber:   42,
		Timestamp:        1000,
		SSRC:             7,
		CSRC:             []uint32{1, 2},
		Extension:        true,
		ExtensionProfile: 0xBEDE,
		ExtensionPayload: []byte{1, 2, 3, 4},
	}
	payload := []byte("audio-frame")

	wire := append(hdr.Marshal(), payload...)
	decoded, decodedPayload, err := unmarshalHeader(wire)
	require.NoError(t, err)
	assert.Equal(t, hdr, decoded)
	assert.Equal(t, payload, decodedPayload)
}

func TestAsPionPacket(t *testing.T) {
	hdr := Header{Version: rtpVersion, SequenceNumber: 5, Timestamp: 10, SSRC: 99}
	p := AsPionPacket(hdr, []byte{1, 2})
	assert.EqualValues(t, 5, p.SequenceNumber)
	assert.EqualValues(t, 99, p.SSRC)
	assert.Equal(t, []byte{1, 2}, p.Payload)
}
