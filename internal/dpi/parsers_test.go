// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cbRecorder() (*Callbacks, *struct {
	app  Application
	ver  string
	sni  string
	gave bool
}) {
	rec := &struct {
		app  Application
		ver  string
		sni  string
		gave bool
	}{}
	cb := &Callbacks{
		SetApp:     func(server, app Application) { rec.app = app },
		SetVersion: func(v string) { rec.ver = v },
		RaiseSNI:   func(n string) { rec.sni = n },
		GiveUp:     func() { rec.gave = true },
	}
	return cb, rec
}

func TestHTTPParserRequest(t *testing.T) {
	p := &httpParser{}
	cb, rec := cbRecorder()

	p.Feed([]byte("GET /index.html HTTP/1.1\r\nHost: api.example.com\r\n\r\n"), true, *cb)
	assert.Equal(t, AppHTTP, rec.app)
	assert.Equal(t, "api.example.com", rec.sni)
}

func TestSSHParserBanner(t *testing.T) {
	p := &sshParser{}
	cb, rec := cbRecorder()

	p.Feed([]byte("SSH-2.0-OpenSSH_9.6\r\n"), true, *cb)
	assert.Equal(t, AppSSH, rec.app)
	assert.Equal(t, "SSH-2.0-OpenSSH_9.6", rec.ver)
}

func TestDNSParserAnswer(t *testing.T) {
	msg := new(dns.Msg)
	msg.SetQuestion("api.example.com.", dns.TypeA)
	msg.Answer = append(msg.Answer, &dns.A{
		Hdr: dns.RR_Header{Name: "api.example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET},
		A:   []byte{93, 184, 216, 34},
	})
	msg.Response = true
	packed, err := msg.Pack()
	require.NoError(t, err)

	p := &dnsParser{}
	cb, rec := cbRecorder()
	p.Feed(packed, false, *cb)

	assert.Equal(t, AppDNS, rec.app)
	assert.Equal(t, "api.example.com.", rec.sni)
}

func TestBannerParserCouchbaseMemcachedMagic(t *testing.T) {
	p := &bannerParser{kind: ParserCouchbase, app: AppCouchbase}
	cb, rec := cbRecorder()

	p.Feed([]byte{0x80, 0x00, 0x00, 0x00}, true, *cb)
	assert.Equal(t, AppCouchbase, rec.app)
}

func TestBannerParserRejectsNonMatchingBytes(t *testing.T) {
	p := &bannerParser{kind: ParserCouchbase, app: AppCouchbase}
	cb, rec := cbRecorder()

	p.Feed([]byte{0x01, 0x02, 0x03, 0x04}, true, *cb)
	assert.Equal(t, Application(0), rec.app)
}
