// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dpi implements the application identifier (C5): signature
// dispatch over (ip proto, port hint, first-bytes signature) and the set
// of protocol parsers that consume a reassembled byte stream incrementally
// to identify server/application/version and raise protocol-level threats.
package dpi

// ParserKind identifies one protocol parser, matching DPI_PARSER_*.
type ParserKind uint8

// Parser kinds.
const (
	ParserHTTP ParserKind = iota
	ParserSSL
	ParserSSH
	ParserDNS
	ParserDHCP
	ParserNTP
	ParserTFTP
	ParserEcho
	ParserMySQL
	ParserRedis
	ParserZookeeper
	ParserCassandra
	ParserMongoDB
	ParserPostgreSQL
	ParserKafka
	ParserCouchbase
	ParserSpark
	ParserTNS
	ParserTDS
	ParserGRPC
	ParserMax
)

// Application identifies a recognized application, matching DPI_APP_*.
type Application uint16

// Applications.
const (
	AppUnknown     Application = 0
	AppNotChecked  Application = 1
	AppHTTP        Application = 1001
	AppSSL         Application = 1002
	AppSSH         Application = 1003
	AppDNS         Application = 1004
	AppDHCP        Application = 1005
	AppNTP         Application = 1006
	AppTFTP        Application = 1007
	AppEcho        Application = 1008
	AppRTSP        Application = 1009
	AppSIP         Application = 1010
	AppMySQL       Application = 2001
	AppRedis       Application = 2002
	AppZookeeper   Application = 2003
	AppCassandra   Application = 2004
	AppMongoDB     Application = 2005
	AppPostgreSQL  Application = 2006
	AppKafka       Application = 2007
	AppCouchbase   Application = 2008
	AppSpark       Application = 2020
	AppTNS         Application = 2026
	AppTDS         Application = 2027
	AppGRPC        Application = 2028
)

// Threat identifies a protocol-level threat class a parser may raise.
type Threat struct {
	ID       string
	Severity uint8
	Snippet  []byte
}

// Common threat ids referenced by decode and parser edge cases.
const (
	ThreatBadPacket     = "BAD_PACKET"
	ThreatTCPSplitHdshk = "TCP_SPLIT_HDSHK"
	ThreatTCPSynData    = "TCP_SYN_DATA"
	ThreatPingOfDeath   = "PING_DEATH"
	ThreatIPTeardrop    = "IP_TEARDROP"
)

// Callbacks is how a parser reports back to the session/policy layer,
// matching the source's set_app/set_version/set_proto/threat/give-up
// callback surface — a parser is pure otherwise: no global mutation.
type Callbacks struct {
	SetApp     func(server, application Application)
	SetVersion func(version string)
	SetProto   func(protocol string)
	RaiseSNI   func(name string) // TLS SNI / HTTP Host, feeds the FQDN reverse sidecar
	Threat     func(Threat)
	GiveUp     func()
}

// Parser consumes a reassembled byte stream incrementally for one session
// wing. Feed may be called multiple times as more bytes arrive; a parser
// must not retain data across Feed calls except in its own state (the
// fields of the value New returned), and never panics on malformed input — on exception
// past recovery it must call cb.GiveUp() and, where appropriate, cb.Threat
// with ThreatBadPacket.
type Parser interface {
	Kind() ParserKind
	Feed(data []byte, fromClient bool, cb Callbacks)
}
