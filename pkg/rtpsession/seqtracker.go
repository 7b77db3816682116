package rtpsession

// seqTracker реализует дословно алгебру RFC 3550 Appendix A.1
// (pjmedia_rtp_seq_update в терминологии pjproject rtp.c, откуда этот код
// портирован почти построчно): base_seq/max_seq/cycles/bad_seq/probation.
type seqTracker struct {
	baseSeq   uint16
	maxSeq    uint16
	cycles    uint32
	badSeq    uint32
	probation int
}

const (
	seqMod       = 1 << 16
	maxDropout   = 3000
	maxMisorder  = 100
	minSequential = 2
)

// init соответствует pjmedia_rtp_seq_init: restart + max_seq = seq-1 +
// probation = MIN_SEQUENTIAL, так что первый "udelta" проверяемый в update
// воспроизводит ожидание ровно seq.
func (t *seqTracker) init(seq uint16) {
	t.restart(seq)
	t.maxSeq = seq - 1
	t.probation = minSequential
}

// restart соответствует pjmedia_rtp_seq_restart.
func (t *seqTracker) restart(seq uint16) {
	t.baseSeq = seq
	t.maxSeq = seq
	t.badSeq = seqMod + 1
	t.cycles = 0
}

// update соответствует pjmedia_rtp_seq_update дословно.
func (t *seqTracker) update(seq uint16) UpdateResult {
	udelta := seq - t.maxSeq

	if t.probation > 0 {
		if seq == t.maxSeq+1 {
			t.probation--
			t.maxSeq = seq
			if t.probation == 0 {
				return UpdateRestarted
			}
		} else {
			t.probation = minSequential - 1
			t.maxSeq = seq
		}
		return UpdateProbation
	}

	switch {
	case udelta < maxDropout:
		// В порядке, с допустимым разрывом.
		if seq < t.maxSeq {
			// Sequence number переполнился — считаем ещё один цикл по 64K.
			t.cycles += seqMod
		}
		t.maxSeq = seq
		return UpdateOK

	case uint32(udelta) <= uint32(seqMod-maxMisorder):
		// Очень большой скачок sequence number.
		if uint32(seq) == t.badSeq {
			// Два скачка подряд — другая сторона перезапустилась без
			// предупреждения, ресинхронизируемся как если бы это был
			// первый пакет.
			return UpdateRestarted
		}
		t.badSeq = (uint32(seq) + 1) & (seqMod - 1)
		return UpdateBadSequence

	default:
		// Дубликат или пакет не по порядку в допустимых пределах.
		return UpdateOK
	}
}

// Cycles возвращает накопленное количество циклов переполнения sequence
// number (кратно 2^16), как в pjmedia_rtp_seq_session.cycles.
func (t *seqTracker) Cycles() uint32 { return t.cycles }

// ExtendedMax возвращает расширенный (32-битный) максимальный sequence
// number: cycles + max_seq, полезно для вычисления jitter/loss по RFC 3550
// §6.4.1.
func (t *seqTracker) ExtendedMax() uint32 { return t.cycles + uint32(t.maxSeq) }
