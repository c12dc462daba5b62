// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import (
	"bufio"
	"bytes"
	"net/http"
	"net/textproto"
)

// httpParser identifies HTTP/1.x requests and responses, reading the
// request line/status line and the Server and Host headers.
type httpParser struct {
	gaveUp bool
}

func (p *httpParser) Kind() ParserKind { return ParserHTTP }

func (p *httpParser) Feed(data []byte, fromClient bool, cb Callbacks) {
	if p.gaveUp {
		return
	}
	r := bufio.NewReader(bytes.NewReader(data))

	if fromClient {
		p.feedRequest(r, cb)
		return
	}
	p.feedResponse(r, cb)
}

func (p *httpParser) feedRequest(r *bufio.Reader, cb Callbacks) {
	req, err := http.ReadRequest(r)
	if err != nil {
		// A partial request line is normal mid-stream, so a failed read is
		// ignored; the parser never gives up on the stream.
		return
	}
	if cb.SetApp != nil {
		cb.SetApp(AppHTTP, AppHTTP)
	}
	if host := req.Host; host != "" && cb.RaiseSNI != nil {
		cb.RaiseSNI(host)
	}
}

func (p *httpParser) feedResponse(r *bufio.Reader, cb Callbacks) {
	tp := textproto.NewReader(r)
	line, err := tp.ReadLine()
	if err != nil || !bytes.HasPrefix([]byte(line), []byte("HTTP/")) {
		return
	}
	hdr, err := tp.ReadMIMEHeader()
	if err != nil && hdr == nil {
		return
	}
	if server := hdr.Get("Server"); server != "" && cb.SetVersion != nil {
		cb.SetVersion(server)
	}
	if cb.SetApp != nil {
		cb.SetApp(AppHTTP, AppHTTP)
	}
}
