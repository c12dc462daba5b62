// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

// dhcpMagicCookie is the fixed 4-byte marker (99.130.83.99) that follows a
// DHCP/BOOTP message's fixed header, used to confirm the signature rather
// than run a full option parser.
var dhcpMagicCookie = [4]byte{0x63, 0x82, 0x53, 0x63}

// dhcpParser recognizes BOOTP/DHCP messages by their fixed header layout
// and magic cookie; it does not decode individual options, since the data
// plane only needs to recognize and summarize DHCP traffic, not operate a
// DHCP client or server.
type dhcpParser struct{}

func (p *dhcpParser) Kind() ParserKind { return ParserDHCP }

func (p *dhcpParser) Feed(data []byte, fromClient bool, cb Callbacks) {
	const fixedHeaderLen = 236
	if len(data) < fixedHeaderLen+4 {
		return
	}
	op := data[0]
	if op != 1 && op != 2 {
		return
	}
	htype := data[1]
	if htype != 1 { // Ethernet
		return
	}
	var cookie [4]byte
	copy(cookie[:], data[fixedHeaderLen:fixedHeaderLen+4])
	if cookie != dhcpMagicCookie {
		return
	}

	if cb.SetApp != nil {
		cb.SetApp(AppDHCP, AppDHCP)
	}
}
