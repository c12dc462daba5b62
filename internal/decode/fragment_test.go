// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package decode

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragDecoded(offset uint16, more bool, payload []byte) *Decoded {
	return &Decoded{
		SrcIP:      net.ParseIP("10.0.0.1"),
		DstIP:      net.ParseIP("10.0.0.2"),
		FragID:     42,
		IPProto:    6,
		FragOffset: offset,
		MoreFrags:  more,
		Payload:    payload,
	}
}

func TestFragmentTrackerReassemblesInOrder(t *testing.T) {
	tr := NewFragmentTracker()

	_, res := tr.Insert(fragDecoded(0, true, make([]byte, 8)))
	assert.Equal(t, FragmentHeld, res)

	data, res := tr.Insert(fragDecoded(1, false, []byte("tail")))
	require.Equal(t, FragmentReassembled, res)
	assert.Len(t, data, 12)
	assert.Equal(t, 0, tr.Len())
}

func TestFragmentTrackerReassemblesOutOfOrder(t *testing.T) {
	tr := NewFragmentTracker()

	_, res := tr.Insert(fragDecoded(1, false, []byte("tail")))
	assert.Equal(t, FragmentHeld, res)

	data, res := tr.Insert(fragDecoded(0, true, make([]byte, 8)))
	require.Equal(t, FragmentReassembled, res)
	assert.Len(t, data, 12)
}

func TestFragmentTrackerDropsOverlap(t *testing.T) {
	tr := NewFragmentTracker()

	_, res := tr.Insert(fragDecoded(0, true, make([]byte, 16)))
	require.Equal(t, FragmentHeld, res)

	_, res = tr.Insert(fragDecoded(1, false, make([]byte, 16)))
	assert.Equal(t, FragmentOverlapDropped, res)
	assert.Equal(t, 0, tr.Len())
}

func TestFragmentTrackerDropsOnOverflow(t *testing.T) {
	tr := NewFragmentTracker()

	_, res := tr.Insert(fragDecoded(0, true, make([]byte, MaxPacketLen+1)))
	assert.Equal(t, FragmentOverflowDropped, res)
}
