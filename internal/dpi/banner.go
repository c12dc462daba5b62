// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import "encoding/binary"

// bannerParser confirms one of the remaining binary wire protocols by its
// fixed leading-byte signature, generalizing the port-dispatch hint into an
// actual on-wire confirmation without decoding the full protocol (the data
// plane only needs server/application identification, not full protocol
// semantics, for these kinds).
type bannerParser struct {
	kind ParserKind
	app  Application
	done bool
}

func (p *bannerParser) Kind() ParserKind { return p.kind }

func (p *bannerParser) Feed(data []byte, fromClient bool, cb Callbacks) {
	if p.done || len(data) < 4 {
		return
	}
	if !signatureMatches(p.kind, data) {
		return
	}
	p.done = true
	if cb.SetApp != nil {
		cb.SetApp(p.app, p.app)
	}
}

func signatureMatches(kind ParserKind, data []byte) bool {
	switch kind {
	case ParserMySQL:
		// First 3 bytes are a little-endian packet length, 4th is sequence
		// id 0 for the server's initial handshake packet.
		length := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
		return length > 0 && length < 1<<20 && data[3] == 0
	case ParserZookeeper:
		// Zookeeper's client connect request leads with a 4-byte big-endian
		// length prefix; only that length is checked.
		return binary.BigEndian.Uint32(data) < 1<<20
	case ParserCassandra:
		// CQL native protocol frame: version byte has the high bit
		// request/response marker and a low nibble protocol version 3-5.
		v := data[0] &^ 0x80
		return v >= 3 && v <= 5
	case ParserMongoDB:
		// Wire protocol message header: 4-byte little-endian messageLength.
		length := binary.LittleEndian.Uint32(data)
		return length >= 16 && length < 48*1024*1024
	case ParserPostgreSQL:
		// Startup message: 4-byte big-endian length; only that length is
		// checked, not the protocol version or request code after it.
		length := binary.BigEndian.Uint32(data)
		return length >= 8 && length < 1<<16
	case ParserKafka:
		// Request frame: 4-byte big-endian size.
		length := binary.BigEndian.Uint32(data)
		return length > 0 && length < 1<<24
	case ParserCouchbase:
		// Memcached binary protocol magic byte: 0x80 request, 0x81 response.
		return data[0] == 0x80 || data[0] == 0x81
	case ParserSpark:
		length := binary.BigEndian.Uint32(data)
		return length > 0 && length < 1<<24
	case ParserTNS:
		// TNS packet: 2-byte big-endian length then a known packet type
		// (1=connect, 2=accept, 4=refuse, 5=redirect, 6=data).
		if len(data) < 5 {
			return false
		}
		ptype := data[4]
		return ptype >= 1 && ptype <= 6
	case ParserTDS:
		// TDS packet header: type byte in the known set, status byte.
		t := data[0]
		return t == 1 || t == 2 || t == 4 || t == 7 || t == 17 || t == 18
	case ParserGRPC:
		// gRPC-over-HTTP/2: frames start with a 3-byte big-endian length
		// and a known frame type byte (0=DATA, 1=HEADERS, 4=SETTINGS).
		ft := data[3]
		return ft <= 9
	default:
		return false
	}
}
