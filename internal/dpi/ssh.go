// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import (
	"bytes"
	"strings"
)

// sshParser reads the SSH version-exchange banner ("SSH-2.0-OpenSSH_9.6"),
// which both client and server send in plaintext before any key exchange.
type sshParser struct {
	done bool
}

func (p *sshParser) Kind() ParserKind { return ParserSSH }

func (p *sshParser) Feed(data []byte, fromClient bool, cb Callbacks) {
	if p.done || !bytes.HasPrefix(data, []byte("SSH-")) {
		return
	}
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}
	banner := strings.TrimRight(string(line), "\r\n")

	if cb.SetApp != nil {
		cb.SetApp(AppSSH, AppSSH)
	}
	if cb.SetVersion != nil {
		cb.SetVersion(banner)
	}
	if !fromClient {
		p.done = true
	}
}
