// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

// redisParser recognizes the RESP wire protocol: client requests are
// arrays ('*'), inline commands, or bulk strings ('$'); server replies use
// the full RESP type-prefix set. Confirmation only needs the first byte.
type redisParser struct{}

func (p *redisParser) Kind() ParserKind { return ParserRedis }

func (p *redisParser) Feed(data []byte, fromClient bool, cb Callbacks) {
	if len(data) == 0 {
		return
	}
	switch data[0] {
	case '*', '$', '+', '-', ':':
		if cb.SetApp != nil {
			cb.SetApp(AppRedis, AppRedis)
		}
	}
}
