// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import "bytes"

// echoParser recognizes the RFC 862 Echo protocol: whatever the client
// sends, the server sends back verbatim. It confirms the protocol once it
// has seen both directions and the server's bytes are a prefix-match of
// the client's.
type echoParser struct {
	clientData []byte
	confirmed  bool
}

func (p *echoParser) Kind() ParserKind { return ParserEcho }

func (p *echoParser) Feed(data []byte, fromClient bool, cb Callbacks) {
	if p.confirmed {
		return
	}
	if fromClient {
		p.clientData = append(p.clientData, data...)
		return
	}
	if len(p.clientData) == 0 || !bytes.HasPrefix(p.clientData, data) && !bytes.HasPrefix(data, p.clientData) {
		return
	}
	p.confirmed = true
	if cb.SetApp != nil {
		cb.SetApp(AppEcho, AppEcho)
	}
}
