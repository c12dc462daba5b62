// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import "github.com/miekg/dns"

// dnsParser decodes DNS messages, feeding resolved A/AAAA answers to the
// FQDN reverse sidecar via RaiseSNI (reused here as the generic
// "observed name for this flow" callback).
type dnsParser struct{}

func (p *dnsParser) Kind() ParserKind { return ParserDNS }

func (p *dnsParser) Feed(data []byte, fromClient bool, cb Callbacks) {
	var msg dns.Msg
	if err := msg.Unpack(data); err != nil {
		return
	}

	if cb.SetApp != nil {
		cb.SetApp(AppDNS, AppDNS)
	}
	if fromClient || cb.RaiseSNI == nil {
		return
	}

	for _, rr := range msg.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			cb.RaiseSNI(rec.Hdr.Name)
		case *dns.AAAA:
			cb.RaiseSNI(rec.Hdr.Name)
		case *dns.CNAME:
			cb.RaiseSNI(rec.Hdr.Name)
		}
	}
}
