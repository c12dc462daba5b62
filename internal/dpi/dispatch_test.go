// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBySignature(t *testing.T) {
	d := NewDispatcher()

	kind, ok := d.Classify(6, 9999, []byte("GET /index.html HTTP/1.1\r\n"))
	assert.True(t, ok)
	assert.Equal(t, ParserHTTP, kind)

	kind, ok = d.Classify(6, 9999, []byte("SSH-2.0-OpenSSH_9.6\r\n"))
	assert.True(t, ok)
	assert.Equal(t, ParserSSH, kind)
}

func TestClassifyFallsBackToPortHint(t *testing.T) {
	d := NewDispatcher()
	kind, ok := d.Classify(6, 3306, []byte{0x01, 0x02, 0x03})
	assert.True(t, ok)
	assert.Equal(t, ParserMySQL, kind)
}

func TestClassifyUnrecognized(t *testing.T) {
	d := NewDispatcher()
	_, ok := d.Classify(6, 1, []byte{0xff})
	assert.False(t, ok)
}

func TestNewConstructsEveryKind(t *testing.T) {
	for kind := ParserHTTP; kind < ParserMax; kind++ {
		p := New(kind)
		if p == nil {
			t.Fatalf("New(%d) returned nil", kind)
		}
		assert.Equal(t, kind, p.Kind())
	}
}
