package rtpsession

import (
	"encoding/binary"
)

// Marshal сериализует заголовок (включая CSRC и extension, если заданы) в
// сетевой порядок байт согласно §6: 12-байтовый фиксированный заголовок,
// затем cc CSRC-идентификаторов, затем extension header+payload если X=1.
func (h Header) Marshal() []byte {
	buf := make([]byte, h.MarshalSize())
	n := h.marshalHeaderBytes(buf)
	_ = n
	return buf
}

// MarshalSize возвращает длину сериализованного заголовка в байтах.
func (h Header) MarshalSize() int {
	size := headerSize + 4*len(h.CSRC)
	if h.Extension {
		size += extHeaderLen + len(h.ExtensionPayload)
	}
	return size
}

func (h Header) marshalHeaderBytes(buf []byte) int {
	b0 := (h.Version << 6) & 0xC0
	if h.Padding {
		b0 |= 0x20
	}
	if h.Extension {
		b0 |= 0x10
	}
	b0 |= byte(len(h.CSRC)) & 0x0F

	b1 := h.PayloadType & 0x7F
	if h.Marker {
		b1 |= 0x80
	}

	buf[0] = b0
	buf[1] = b1
	binary.BigEndian.PutUint16(buf[2:4], h.SequenceNumber)
	binary.BigEndian.PutUint32(buf[4:8], h.Timestamp)
	binary.BigEndian.PutUint32(buf[8:12], h.SSRC)

	offset := headerSize
	for _, csrc := range h.CSRC {
		binary.BigEndian.PutUint32(buf[offset:offset+4], csrc)
		offset += 4
	}

	if h.Extension {
		binary.BigEndian.PutUint16(buf[offset:offset+2], h.ExtensionProfile)
		// length в 32-битных словах полезной нагрузки расширения, не считая
		// сам 4-байтовый extension header — см. §6.
		words := len(h.ExtensionPayload) / 4
		binary.BigEndian.PutUint16(buf[offset+2:offset+4], uint16(words))
		offset += extHeaderLen
		copy(buf[offset:], h.ExtensionPayload)
		offset += len(h.ExtensionPayload)
	}

	return offset
}

// unmarshalHeader разбирает пакет на заголовок и payload согласно §4.1:
// InvalidVersion если version != 2, InvalidLength если вычисленное смещение
// payload'а выходит за границы пакета.
func unmarshalHeader(pkt []byte) (Header, []byte, error) {
	if len(pkt) < headerSize {
		return Header{}, nil, ErrInvalidLength
	}

	b0 := pkt[0]
	version := b0 >> 6
	if version != rtpVersion {
		return Header{}, nil, ErrInvalidVersion
	}

	hdr := Header{
		Version:        version,
		Padding:        b0&0x20 != 0,
		Extension:      b0&0x10 != 0,
		Marker:         pkt[1]&0x80 != 0,
		PayloadType:    pkt[1] & 0x7F,
		SequenceNumber: binary.BigEndian.Uint16(pkt[2:4]),
		Timestamp:      binary.BigEndian.Uint32(pkt[4:8]),
		SSRC:           binary.BigEndian.Uint32(pkt[8:12]),
	}

	cc := int(b0 & 0x0F)
	offset := headerSize + 4*cc
	if offset > len(pkt) {
		return Header{}, nil, ErrInvalidLength
	}

	if cc > 0 {
		hdr.CSRC = make([]uint32, cc)
		for i := 0; i < cc; i++ {
			o := headerSize + 4*i
			hdr.CSRC[i] = binary.BigEndian.Uint32(pkt[o : o+4])
		}
	}

	if hdr.Extension {
		if offset+extHeaderLen > len(pkt) {
			return Header{}, nil, ErrInvalidLength
		}
		hdr.ExtensionProfile = binary.BigEndian.Uint16(pkt[offset : offset+2])
		words := int(binary.BigEndian.Uint16(pkt[offset+2 : offset+4]))
		offset += extHeaderLen
		extLen := words * 4
		if offset+extLen > len(pkt) {
			return Header{}, nil, ErrInvalidLength
		}
		hdr.ExtensionPayload = pkt[offset : offset+extLen]
		offset += extLen
	}

	if offset >= len(pkt) {
		return Header{}, nil, ErrInvalidLength
	}

	return hdr, pkt[offset:], nil
}
