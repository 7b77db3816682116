package jitterbuffer

// seqAfter reports whether a is logically after b on the circular sequence
// number space (RFC 1982 serial arithmetic, same trick the teacher's
// isSeqNewer/seqDiff pair uses in pkg/media/jitter_buffer.go).
func seqAfter(a, b uint16) bool { return int16(a-b) > 0 }

func seqBefore(a, b uint16) bool { return int16(a-b) < 0 }

// Put stores an incoming frame at seq, per §4.2's Put contract. discard
// reports the caller's RTP padding/discard hint (unused by the buffer
// itself today but threaded through the signature per §3's slot record,
// kept for parity with pjmedia_jb2_put_frame's frame descriptor).
func (b *Buffer) Put(seq uint16, data []byte, discard bool) {
	b.stats.In++

	if !b.started {
		b.started = true
		b.headSeq = seq
		b.tailSeq = seq
	}

	idx := b.slotIndex(seq)

	if inRange(seq, b.headSeq, b.tailSeq) && b.slots[idx].filled && b.slots[idx].seq == seq {
		b.stats.Dup++
		return
	}

	if seqBefore(seq, b.headSeq) {
		b.stats.Late++
		return
	}

	extendingTail := !seqBefore(seq, b.tailSeq)
	if !extendingTail {
		// Filling a gap behind the current tail: it arrived after a
		// higher-numbered packet already extended the buffer.
		distance := int(b.tailSeq - seq)
		b.adaptOnReorder(distance)
		b.stats.Reorder++
		if int32(distance) > b.stats.MaxDrift {
			b.stats.MaxDrift = int32(distance)
		}
	}

	if extendingTail {
		span := int(seq-b.headSeq) + 1
		if span > len(b.slots) {
			b.evictOverflow(seq)
		}
		for s := b.tailSeq; s != seq; s++ {
			b.slots[b.slotIndex(s)].filled = false
		}
		b.tailSeq = seq + 1
	}

	sl := &b.slots[idx]
	sl.filled = true
	sl.seq = seq
	sl.size = copy(sl.buf, data)

	if n := b.occupied(); n > b.stats.MaxSize {
		b.stats.MaxSize = n
	}
}

// evictOverflow discards the oldest slots until newSeq fits within
// max_count, counting the discarded frames as lost — §4.2's overflow
// policy and §8 scenario S4.
func (b *Buffer) evictOverflow(newSeq uint16) {
	for int(newSeq-b.headSeq)+1 > len(b.slots) {
		if b.slots[b.slotIndex(b.headSeq)].filled {
			b.stats.Lost++
		}
		b.slots[b.slotIndex(b.headSeq)].filled = false
		b.headSeq++
	}
}

// inRange reports whether seq lies in the half-open window [head, tail).
func inRange(seq, head, tail uint16) bool {
	if head == tail {
		return false
	}
	return !seqBefore(seq, head) && seqBefore(seq, tail)
}
