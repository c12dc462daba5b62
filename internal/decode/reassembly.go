// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package decode

import "sort"

// ReassemblyWindow bounds how far out-of-order TCP data a wing will buffer
// before giving up and discarding the held segments, raising BAD_PACKET.
const ReassemblyWindow = 64 * 1024

type pendingSegment struct {
	seq  uint32
	data []byte
}

// StreamReassembler delivers one TCP wing's byte stream to its parser in
// order, holding out-of-order segments up to ReassemblyWindow bytes ahead
// of the next expected sequence number.
type StreamReassembler struct {
	nextSeq    uint32
	haveNext   bool
	pending    []pendingSegment
	pendingLen int
}

// NewStreamReassembler creates a reassembler with no expected sequence yet;
// the first segment fed via Feed establishes it.
func NewStreamReassembler() *StreamReassembler {
	return &StreamReassembler{}
}

// Feed submits one TCP segment's payload at the given sequence number.
// It returns the contiguous bytes now ready for the parser (possibly
// spanning several previously-held segments) and whether the bounded
// out-of-order window overflowed, in which case the caller must raise a
// BAD_PACKET threat and the reassembler resets its held segments.
func (r *StreamReassembler) Feed(seq uint32, data []byte) (ready []byte, overflow bool) {
	if len(data) == 0 {
		return nil, false
	}
	if !r.haveNext {
		r.nextSeq = seq
		r.haveNext = true
	}

	if seqLess(seq, r.nextSeq) {
		// Fully or partially retransmitted data behind our cursor; trim the
		// overlap and keep only the new tail, if any.
		behind := int(r.nextSeq - seq)
		if behind >= len(data) {
			return nil, false
		}
		seq = r.nextSeq
		data = data[behind:]
	}

	if seq == r.nextSeq {
		ready = append(ready, data...)
		r.nextSeq += uint32(len(data))
		ready = append(ready, r.drainPending()...)
		return ready, false
	}

	r.pending = append(r.pending, pendingSegment{seq: seq, data: data})
	r.pendingLen += len(data)
	if r.pendingLen > ReassemblyWindow || int(seq-r.nextSeq)+len(data) > ReassemblyWindow {
		r.pending = nil
		r.pendingLen = 0
		return nil, true
	}
	return nil, false
}

func (r *StreamReassembler) drainPending() []byte {
	var out []byte
	for {
		sort.Slice(r.pending, func(i, j int) bool { return seqLess(r.pending[i].seq, r.pending[j].seq) })
		if len(r.pending) == 0 || r.pending[0].seq != r.nextSeq {
			return out
		}
		seg := r.pending[0]
		r.pending = r.pending[1:]
		r.pendingLen -= len(seg.data)
		out = append(out, seg.data...)
		r.nextSeq += uint32(len(seg.data))
	}
}

// seqLess compares two TCP sequence numbers accounting for 32-bit wraparound.
func seqLess(a, b uint32) bool {
	return int32(a-b) < 0
}
