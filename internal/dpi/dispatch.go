// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import "bytes"

// portHint maps a well-known port to the parser kind most likely to be
// speaking on it, consulted only as a fallback when no first-bytes
// signature matches.
var portHint = map[uint16]ParserKind{
	80:    ParserHTTP,
	8080:  ParserHTTP,
	443:   ParserSSL,
	22:    ParserSSH,
	53:    ParserDNS,
	67:    ParserDHCP,
	68:    ParserDHCP,
	123:   ParserNTP,
	69:    ParserTFTP,
	7:     ParserEcho,
	3306:  ParserMySQL,
	6379:  ParserRedis,
	2181:  ParserZookeeper,
	9042:  ParserCassandra,
	27017: ParserMongoDB,
	5432:  ParserPostgreSQL,
	9092:  ParserKafka,
	8091:  ParserCouchbase,
	7077:  ParserSpark,
	1521:  ParserTNS,
	1433:  ParserTDS,
}

// signature is a first-bytes match rule: if the first bytes start with
// pattern, the parser kind is kind. The first matching entry wins.
type signature struct {
	kind    ParserKind
	pattern []byte
}

var signatures = []signature{
	{ParserHTTP, []byte("GET ")},
	{ParserHTTP, []byte("POST ")},
	{ParserHTTP, []byte("HEAD ")},
	{ParserHTTP, []byte("PUT ")},
	{ParserHTTP, []byte("HTTP/1")},
	{ParserSSH, []byte("SSH-")},
	{ParserSSL, []byte{0x16, 0x03}}, // TLS handshake record, any minor version
	{ParserRedis, []byte("*")},
	{ParserRedis, []byte("+PONG")},
	{ParserMongoDB, []byte{0x00, 0x00, 0x00, 0x00}}, // opcode-prefixed header, checked loosely
}

// Dispatcher resolves (ip proto, port, first bytes) to a parser kind,
// mirroring the source's (ip_proto, port-hint, first-bytes-signature)
// dispatch table.
type Dispatcher struct{}

// NewDispatcher creates a Dispatcher. It carries no mutable state: the
// signature and port-hint tables above are read-only package data, so a
// single Dispatcher value is safe to share across every worker.
func NewDispatcher() *Dispatcher { return &Dispatcher{} }

// Classify returns the parser kind to use for a new session's first
// payload bytes on the given port, preferring a first-bytes signature
// match and falling back to the port hint.
func (d *Dispatcher) Classify(ipProto uint8, port uint16, firstBytes []byte) (ParserKind, bool) {
	for _, sig := range signatures {
		if bytes.HasPrefix(firstBytes, sig.pattern) {
			return sig.kind, true
		}
	}
	if kind, ok := portHint[port]; ok {
		return kind, true
	}
	return 0, false
}

// New constructs the Parser implementation for a given kind.
func New(kind ParserKind) Parser {
	switch kind {
	case ParserHTTP:
		return &httpParser{}
	case ParserSSL:
		return &sslParser{}
	case ParserSSH:
		return &sshParser{}
	case ParserDNS:
		return &dnsParser{}
	case ParserDHCP:
		return &dhcpParser{}
	case ParserNTP:
		return &ntpParser{}
	case ParserTFTP:
		return &tftpParser{}
	case ParserEcho:
		return &echoParser{}
	case ParserMySQL:
		return &bannerParser{kind: ParserMySQL, app: AppMySQL}
	case ParserRedis:
		return &redisParser{}
	case ParserZookeeper:
		return &bannerParser{kind: ParserZookeeper, app: AppZookeeper}
	case ParserCassandra:
		return &bannerParser{kind: ParserCassandra, app: AppCassandra}
	case ParserMongoDB:
		return &bannerParser{kind: ParserMongoDB, app: AppMongoDB}
	case ParserPostgreSQL:
		return &bannerParser{kind: ParserPostgreSQL, app: AppPostgreSQL}
	case ParserKafka:
		return &bannerParser{kind: ParserKafka, app: AppKafka}
	case ParserCouchbase:
		return &bannerParser{kind: ParserCouchbase, app: AppCouchbase}
	case ParserSpark:
		return &bannerParser{kind: ParserSpark, app: AppSpark}
	case ParserTNS:
		return &bannerParser{kind: ParserTNS, app: AppTNS}
	case ParserTDS:
		return &bannerParser{kind: ParserTDS, app: AppTDS}
	case ParserGRPC:
		return &bannerParser{kind: ParserGRPC, app: AppGRPC}
	default:
		return nil
	}
}
