// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import (
	"encoding/hex"

	"github.com/dreadl0ck/ja3"
	"github.com/dreadl0ck/tlsx"
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// emptyMD5 is md5("") — ja3.DigestPacket returns this when a packet carries
// no parseable ClientHello, and it must not be reported as a real
// fingerprint.
const emptyMD5 = "d41d8cd98f00b204e9800998ecf8427e"

// sslParser identifies the TLS handshake (record type 0x16, handshake type
// ClientHello = 0x01), extracts the SNI and reports the ClientHello's
// handshake version via SetVersion. Feed raises no threats; the JA3
// fingerprint is computed only by FeedPacket.
type sslParser struct {
	sawClientHello bool
}

func (p *sslParser) Kind() ParserKind { return ParserSSL }

func (p *sslParser) Feed(data []byte, fromClient bool, cb Callbacks) {
	if !fromClient || p.sawClientHello {
		return
	}
	if len(data) < 6 || data[0] != 0x16 || data[5] != 0x01 {
		return
	}
	p.sawClientHello = true

	if cb.SetApp != nil {
		cb.SetApp(AppSSL, AppSSL)
	}

	var hello tlsx.ClientHelloBasic
	if err := hello.Unmarshal(data); err == nil {
		if hello.SNI != "" && cb.RaiseSNI != nil {
			cb.RaiseSNI(hello.SNI)
		}
		if cb.SetVersion != nil {
			cb.SetVersion(tlsVersionName(hello.HandshakeVersion))
		}
	}
}

// FeedPacket is an alternative entry point for when the full
// gopacket.Packet (not just the reassembled bytes) is available; the
// pipeline does not call it. It reuses gopacket/ja3's packet-level digest rather than
// reimplementing JA3's field extraction over raw bytes.
func (p *sslParser) FeedPacket(pkt gopacket.Packet, cb Callbacks) {
	if pkt.Layer(layers.LayerTypeTCP) == nil {
		return
	}
	digest := ja3.DigestPacket(pkt)
	hash := hex.EncodeToString(digest[:])
	if hash == emptyMD5 {
		return
	}
	if cb.SetVersion != nil {
		cb.SetVersion("ja3:" + hash)
	}
}

func tlsVersionName(v uint16) string {
	switch v {
	case 0x0301:
		return "TLS1.0"
	case 0x0302:
		return "TLS1.1"
	case 0x0303:
		return "TLS1.2"
	case 0x0304:
		return "TLS1.3"
	default:
		return "unknown"
	}
}
