// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmentic/dpengine/internal/decode"
)

func testDecoded() *decode.Decoded {
	return &decode.Decoded{
		SrcIP:   net.ParseIP("10.0.0.1"),
		DstIP:   net.ParseIP("10.0.0.2"),
		SrcPort: 51234,
		DstPort: 443,
		IPProto: 6,
	}
}

func TestTableCreateAndLookup(t *testing.T) {
	tbl := NewTable(0)
	epMAC := net.HardwareAddr{1, 2, 3, 4, 5, 6}
	d := testDecoded()

	sess, res := tbl.Create(d, epMAC, time.Now(), true)
	require.Equal(t, CreateOK, res)
	assert.Equal(t, uint16(FlagIngress), sess.Flags)

	tok, release := tbl.Acquire()
	defer release()
	got, ok := tbl.Lookup(tok, d, epMAC)
	require.True(t, ok)
	assert.Equal(t, sess.ID, got.ID)
}

func TestTableCapacityExceeded(t *testing.T) {
	tbl := NewTable(1)
	epMAC := net.HardwareAddr{1, 2, 3, 4, 5, 6}

	_, res := tbl.Create(testDecoded(), epMAC, time.Now(), true)
	require.Equal(t, CreateOK, res)

	d2 := testDecoded()
	d2.SrcPort = 9999
	_, res = tbl.Create(d2, epMAC, time.Now(), true)
	assert.Equal(t, CreateCapacityExceeded, res)
}

func TestTableEvictRunsCleanupOnlyAfterReadersRelease(t *testing.T) {
	tbl := NewTable(0)
	epMAC := net.HardwareAddr{1, 2, 3, 4, 5, 6}
	d := testDecoded()
	sess, _ := tbl.Create(d, epMAC, time.Now(), true)

	tok, release := tbl.Acquire()

	var reclaimedCause EvictCause
	reclaimed := false
	tbl.Evict(sess.Key, EvictIdle, func(_ *Session, cause EvictCause) {
		reclaimed = true
		reclaimedCause = cause
	})
	assert.False(t, reclaimed)

	release()
	assert.True(t, reclaimed)
	assert.Equal(t, EvictIdle, reclaimedCause)
	_ = tok
}

func TestSessionTouchUpdatesLastActive(t *testing.T) {
	sess := &Session{}
	now := time.Now()
	sess.Touch(now)
	assert.Equal(t, now, sess.LastActive)
}
