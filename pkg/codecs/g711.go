package codecs

import "github.com/zaf/g711"

// G711Variant selects the companding law.
type G711Variant int

const (
	ULaw G711Variant = iota
	ALaw
)

// G711 adapts github.com/zaf/g711 to the Codec vtable. It is demo/test
// scaffolding only — per §1's Non-goals the core stays codec-agnostic, this
// is the one concrete binding wired in so mediastream-demo has something
// real to encode/decode with.
type G711 struct {
	variant G711Variant
	attr    Attr
}

// NewG711 constructs a G711 codec adapter for the given payload type (0 for
// PCMU, 8 for PCMA per RFC 3551's static assignment table).
func NewG711(variant G711Variant, pt uint8) *G711 {
	return &G711{
		variant: variant,
		attr: Attr{
			ClockRate:   8000,
			Ptime:       20,
			AvgBps:      64000,
			PayloadType: pt,
			VAD:         false,
			PLC:         false,
		},
	}
}

func (g *G711) DefaultAttr() Attr { return g.attr }

func (g *G711) Open(attr Attr) error {
	g.attr = attr
	return nil
}

func (g *G711) Close() error { return nil }

func (g *G711) Encode(pcm []int16, out []byte) ([]byte, Status) {
	if len(out) < len(pcm) {
		return nil, StatusBufferTooSmall
	}
	lpcm := int16ToBytes(pcm)
	var encoded []byte
	switch g.variant {
	case ULaw:
		encoded = g711.EncodeUlaw(lpcm)
	default:
		encoded = g711.EncodeAlaw(lpcm)
	}
	n := copy(out, encoded)
	return out[:n], StatusOK
}

func (g *G711) Decode(enc []byte, out []int16) ([]int16, Status) {
	var lpcm []byte
	switch g.variant {
	case ULaw:
		lpcm = g711.DecodeUlaw(enc)
	default:
		lpcm = g711.DecodeAlaw(enc)
	}
	n := len(lpcm) / 2
	if len(out) < n {
		return nil, StatusBufferTooSmall
	}
	bytesToInt16(lpcm, out[:n])
	return out[:n], StatusOK
}

// Recover performs silence-fill PLC: G.711 carries no native concealment
// (Attr.PLC == false), so a missing frame is replaced with zero samples.
func (g *G711) Recover(out []int16) ([]int16, Status) {
	for i := range out {
		out[i] = 0
	}
	return out, StatusOK
}

func int16ToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[2*i] = byte(s)
		b[2*i+1] = byte(s >> 8)
	}
	return b
}

func bytesToInt16(b []byte, out []int16) {
	for i := range out {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
}
