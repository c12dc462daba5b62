// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package decode

import "sort"

// MaxPacketLen bounds a single reassembled IPv4 datagram, matching
// DPI_MAX_PKT_LEN. A fragment train whose assembled length would exceed
// this is discarded rather than silently truncated.
const MaxPacketLen = 65535

// FragmentKey identifies one fragment train: (src, dst, IP identification,
// protocol).
type FragmentKey struct {
	Src   string
	Dst   string
	ID    uint16
	Proto uint8
}

func fragmentKey(d *Decoded) FragmentKey {
	return FragmentKey{Src: d.SrcIP.String(), Dst: d.DstIP.String(), ID: d.FragID, Proto: d.IPProto}
}

type fragment struct {
	offset int
	data   []byte
	last   bool
}

// FragmentEntry accumulates the fragments of one IPv4 datagram. A zero
// value is ready to use.
type FragmentEntry struct {
	frags    []fragment
	overlap  bool
	complete bool
}

// FragmentTracker holds one in-flight FragmentEntry per FragmentKey. It
// keeps no timer for its entries.
type FragmentTracker struct {
	entries map[FragmentKey]*FragmentEntry
}

// NewFragmentTracker creates an empty tracker.
func NewFragmentTracker() *FragmentTracker {
	return &FragmentTracker{entries: make(map[FragmentKey]*FragmentEntry)}
}

// FragmentResult is the outcome of feeding one fragment into the tracker.
type FragmentResult int

// Fragment outcomes.
const (
	FragmentHeld FragmentResult = iota
	FragmentReassembled
	FragmentOverlapDropped
	FragmentOverflowDropped
)

// Insert adds one IPv4 fragment to its train. When the train completes
// without overlap or overflow, it returns the reassembled payload bytes and
// FragmentReassembled; the train is removed from the tracker either way
// once it resolves (reassembled, overlapping, or overflowing).
func (t *FragmentTracker) Insert(d *Decoded) ([]byte, FragmentResult) {
	key := fragmentKey(d)
	entry, ok := t.entries[key]
	if !ok {
		entry = &FragmentEntry{}
		t.entries[key] = entry
	}

	offset := int(d.FragOffset) * 8
	frag := fragment{offset: offset, data: append([]byte(nil), d.Payload...), last: !d.MoreFrags}

	for _, existing := range entry.frags {
		if overlaps(existing, frag) {
			delete(t.entries, key)
			return nil, FragmentOverlapDropped
		}
	}
	entry.frags = append(entry.frags, frag)
	if frag.last {
		entry.complete = true
	}

	total := 0
	for _, f := range entry.frags {
		if end := f.offset + len(f.data); end > total {
			total = end
		}
	}
	if total > MaxPacketLen {
		delete(t.entries, key)
		return nil, FragmentOverflowDropped
	}

	if !entry.complete {
		return nil, FragmentHeld
	}
	if !contiguous(entry.frags) {
		return nil, FragmentHeld
	}

	delete(t.entries, key)
	return reassemble(entry.frags), FragmentReassembled
}

// Evict removes a fragment train, e.g. on reassembly-timeout expiry driven
// by the timer wheel.
func (t *FragmentTracker) Evict(key FragmentKey) {
	delete(t.entries, key)
}

// Len reports the number of in-flight fragment trains.
func (t *FragmentTracker) Len() int { return len(t.entries) }

func overlaps(a, b fragment) bool {
	aEnd := a.offset + len(a.data)
	bEnd := b.offset + len(b.data)
	return a.offset < bEnd && b.offset < aEnd
}

func contiguous(frags []fragment) bool {
	sorted := append([]fragment(nil), frags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].offset < sorted[j].offset })
	if sorted[0].offset != 0 {
		return false
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].offset > sorted[i-1].offset+len(sorted[i-1].data) {
			return false
		}
	}
	return true
}

func reassemble(frags []fragment) []byte {
	sorted := append([]fragment(nil), frags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].offset < sorted[j].offset })
	total := sorted[len(sorted)-1].offset + len(sorted[len(sorted)-1].data)
	out := make([]byte, total)
	for _, f := range sorted {
		copy(out[f.offset:], f.data)
	}
	return out
}
