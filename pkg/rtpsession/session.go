// Package rtpsession реализует ядро RTP сессии согласно RFC 3550 Appendix A.1:
// кодирование/декодирование заголовка и отслеживание sequence number/потерь
// для одного удалённого источника.
//
// Пакет намеренно не содержит транспорт, кодеки и jitter buffer — он только
// превращает байты payload'а в RTP-пакет и обратно, и поддерживает состояние
// sequence tracker'а. Остальные подсистемы (jitterbuffer, echo) подключаются
// снаружи через MediaStream.
package rtpsession

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/pion/rtp"
)

const (
	rtpVersion   = 2
	headerSize   = 12
	extHeaderLen = 4 // profile_data(2) + length(2)
)

// Ошибки кодирования/декодирования согласно §7 спецификации: InvalidArgument
// и InvalidPacket никогда не оборачивают внутреннее состояние сессии, они
// возвращаются синхронно вызывающему коду.
var (
	ErrBadArgument    = errors.New("rtpsession: header packing is not 12 bytes")
	ErrInvalidVersion = errors.New("rtpsession: RTP version is not 2")
	ErrInvalidLength  = errors.New("rtpsession: payload offset exceeds packet length")
)

// UpdateResult — исход pjmedia_rtp_session_update (RFC 3550 §A.1), как
// типизированный enum, а не код ошибки, смешанный с Ok.
type UpdateResult int

const (
	// UpdateOK — пакет принят, max_seq (и, возможно, cycles) обновлены.
	UpdateOK UpdateResult = iota
	// UpdateProbation — источник ещё в окне прогрева (см. Probation).
	UpdateProbation
	// UpdateRestarted — источник пересинхронизирован (большой скачок дважды
	// подряд, либо первый пакет вышел из probation).
	UpdateRestarted
	// UpdateBadSequence — единичный большой скачок sequence number, пакет
	// принят к сведению, но max_seq не продвинут.
	UpdateBadSequence
)

func (r UpdateResult) String() string {
	switch r {
	case UpdateOK:
		return "Ok"
	case UpdateProbation:
		return "SessionProbation"
	case UpdateRestarted:
		return "SessionRestarted"
	case UpdateBadSequence:
		return "BadSequence"
	default:
		return "Unknown"
	}
}

// Header — форма RTP заголовка в памяти (12-байтовый фиксированный заголовок
// плюс необязательные CSRC/extension), используемая как на входе, так и на
// выходе. Wire-уровневое marshal/unmarshal живёт в wire.go.
type Header struct {
	Version        uint8
	Padding        bool
	Extension      bool
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
	CSRC           []uint32

	ExtensionProfile uint16
	ExtensionPayload []byte // длина кратна 4 байтам
}

// Session — состояние одной RTP сессии для одного удалённого источника,
// ровно как в §3: исходящее состояние кодера + sequence tracker декодера.
//
// Инкапсулирует состояние, но не является потокобезопасной сама по себе —
// согласно §5 модель конкурентности партиционирует encode-состояние (аудио
// поток) и decode/tracker-состояние (сетевой поток) на разных горутинах,
// так что Session не нужна внутренняя синхронизация.
type Session struct {
	log *log.Logger

	// Исходящее (кодер) состояние.
	outPT   uint8
	outSSRC uint32
	outSeq  uint16
	outTS   uint32
	hdrBuf  Header // переиспользуемый буфер заголовка, возвращаемый из Encode

	// Входящее (декодер) состояние.
	peerSSRC uint32
	received uint64
	tracker  seqTracker
}

// Config параметры инициализации сессии.
type Config struct {
	DefaultPayloadType uint8
	SenderSSRC         uint32 // 0 => сгенерировать криптографически случайный
	Logger             *log.Logger
}

// New создаёт и инициализирует RTP сессию (аналог pjmedia_rtp_session_init).
// version всегда 2; out_seq всегда берётся из криптографического источника
// (Config не позволяет задать начальное значение), out_ts обнуляется.
func New(cfg Config) (*Session, error) {
	if headerSize != 12 {
		// Недостижимо в Go (нет packed struct с UB), оставлено как явная
		// проверка инварианта заголовка для соответствия контракту §4.1.
		return nil, ErrBadArgument
	}

	ssrc := cfg.SenderSSRC
	if ssrc == 0 {
		var err error
		ssrc, err = randomUint32()
		if err != nil {
			return nil, fmt.Errorf("rtpsession: generate ssrc: %w", err)
		}
	}

	seq, err := randomUint16()
	if err != nil {
		return nil, fmt.Errorf("rtpsession: generate initial sequence: %w", err)
	}

	lg := cfg.Logger
	if lg == nil {
		lg = log.Default()
	}

	return &Session{
		log:     lg,
		outPT:   cfg.DefaultPayloadType,
		outSSRC: ssrc,
		outSeq:  seq,
		outTS:   0,
	}, nil
}

// Encode заполняет внутренний буфер заголовка для следующего исходящего
// пакета и возвращает его. Побочные эффекты: out_seq += 1, out_ts +=
// tsDelta. pt == -1 означает "использовать default_pt" согласно §4.1.
//
// Возвращаемый Header указывает на внутреннее состояние сессии и валиден до
// следующего вызова Encode — вызывающий обязан сериализовать/отправить его
// прежде чем кодировать следующий пакет.
func (s *Session) Encode(pt int, marker bool, tsDelta uint32) *Header {
	s.outSeq++
	s.outTS += tsDelta

	payloadType := s.outPT
	if pt >= 0 {
		payloadType = uint8(pt)
	}

	s.hdrBuf = Header{
		Version:        rtpVersion,
		Marker:         marker,
		PayloadType:    payloadType,
		SequenceNumber: s.outSeq,
		Timestamp:      s.outTS,
		SSRC:           s.outSSRC,
	}
	return &s.hdrBuf
}

// Decode разбирает входящий пакет на заголовок и указатель на payload,
// согласно смещению из §4.1/§6: 12 + 4*cc, плюс расширение если X=1.
func (s *Session) Decode(pkt []byte) (Header, []byte, error) {
	return unmarshalHeader(pkt)
}

// Update прогоняет sequence tracker RFC 3550 §A.1 над заголовком
// декодированного пакета и возвращает типизированный исход.
func (s *Session) Update(hdr Header) UpdateResult {
	if s.peerSSRC == 0 {
		s.peerSSRC = hdr.SSRC
	}

	if s.received == 0 {
		s.tracker.init(hdr.SequenceNumber)
	}

	result := s.tracker.update(hdr.SequenceNumber)
	if result == UpdateRestarted {
		s.tracker.restart(hdr.SequenceNumber)
	}
	if result == UpdateOK || result == UpdateProbation || result == UpdateRestarted {
		s.received++
	}

	s.log.Debug("rtp session update", "seq", hdr.SequenceNumber, "result", result.String())
	return result
}

// PeerSSRC возвращает SSRC удалённого источника, выученный из первого
// полученного пакета (0 пока ни один пакет не обработан).
func (s *Session) PeerSSRC() uint32 { return s.peerSSRC }

// SequenceNumber возвращает текущий out_seq (последний выданный Encode).
func (s *Session) SequenceNumber() uint16 { return s.outSeq }

// Timestamp возвращает текущий out_ts.
func (s *Session) Timestamp() uint32 { return s.outTS }

// ReceivedCount возвращает количество принятых пакетов согласно tracker'у.
func (s *Session) ReceivedCount() uint64 { return s.received }

// AsPionPacket конвертирует Header + payload в rtp.Packet из github.com/pion/rtp
// для кода, который работает с типами pion. Флаг Extension переносится, но
// ExtensionProfile и ExtensionPayload не копируются.
func AsPionPacket(hdr Header, payload []byte) rtp.Packet {
	p := rtp.Packet{
		Header: rtp.Header{
			Version:        hdr.Version,
			Padding:        hdr.Padding,
			Extension:      hdr.Extension,
			Marker:         hdr.Marker,
			PayloadType:    hdr.PayloadType,
			SequenceNumber: hdr.SequenceNumber,
			Timestamp:      hdr.Timestamp,
			SSRC:           hdr.SSRC,
			CSRC:           hdr.CSRC,
		},
		Payload: payload,
	}
	return p
}

func randomUint32() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func randomUint16() (uint16, error) {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}
