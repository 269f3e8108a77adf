/*
 * MIT License
 *
 * Copyright (c) 2026 ned0000
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package syncfetch implements the one-shot blocking "connect, send, parse,
// return" helper (spec §4.11): the only synchronous entry point in this
// module, sharing package httpdata's incremental parser with the async
// path instead of duplicating HTTP parsing logic.
package syncfetch

import (
	"fmt"
	"net"
	"time"

	liberr "github.com/ned0000/webchain/errors"
	"github.com/ned0000/webchain/httpdata"
	"github.com/ned0000/webchain/httpmsg"
)

// Params configures one synchronous transfer.
type Params struct {
	ServerIP  string
	Port      int
	TimeoutMs int

	SendBuffer []byte // the raw request bytes to send, verbatim
	RecvHint   int    // read buffer size; default 2048
	MaxBodyCap int    // forwarded to httpdata.DataObject; 0 == unbounded
}

const defaultRecvHint = 2048

// Fetch performs a single blocking request/response exchange, returning the
// cloned response header (with body attached) or an error. Every failure
// path closes the socket before returning.
func Fetch(p Params) (*httpmsg.Header, liberr.Error) {
	if p.RecvHint <= 0 {
		p.RecvHint = defaultRecvHint
	}
	timeout := time.Duration(p.TimeoutMs) * time.Millisecond
	if p.TimeoutMs <= 0 {
		timeout = 10 * time.Second
	}

	addr := fmt.Sprintf("%s:%d", p.ServerIP, p.Port)
	conn, derr := net.DialTimeout("tcp", addr, timeout)
	if derr != nil {
		return nil, liberr.New(liberr.FailConnect, derr, "connect %s", addr)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, liberr.New(liberr.FailConnect, err, "set deadline %s", addr)
	}

	if err := sendAll(conn, p.SendBuffer); err != nil {
		return nil, err
	}

	do := httpdata.New(p.RecvHint, p.MaxBodyCap)

	// buf accumulates bytes across reads; start is the parser's unconsumed
	// cursor and woff is the next write offset, mirroring the grounded
	// original's sStart/sOffset pair (webclient/transfer.c) instead of
	// discarding whatever a single Read didn't finish parsing.
	buf := make([]byte, p.RecvHint)
	start := 0
	woff := 0

	for {
		if len(buf)-woff < p.RecvHint {
			if start > 0 {
				copy(buf, buf[start:woff])
				woff -= start
				start = 0
			}
			if len(buf)-woff < p.RecvHint {
				grown := make([]byte, woff+p.RecvHint)
				copy(grown, buf[:woff])
				buf = grown
			}
		}

		n, rerr := conn.Read(buf[woff:])
		if n > 0 {
			woff += n
			begin := start
			if perr := do.Process(buf[:woff], &begin, woff); perr != nil {
				return nil, perr
			}
			if full, header := do.GetFullPacket(); full {
				return header.Clone(), nil
			}
			if begin == woff {
				start, woff = 0, 0
			} else {
				start = begin
			}
		}
		if rerr != nil {
			if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				return nil, liberr.New(liberr.Timeout, rerr, "recv from %s", addr)
			}
			return nil, liberr.New(liberr.FailRecv, rerr, "recv from %s", addr)
		}
	}
}

// sendAll writes the full buffer, failing on any short write (spec §4.11:
// "send all bytes (fail if short send)").
func sendAll(conn net.Conn, data []byte) liberr.Error {
	total := 0
	for total < len(data) {
		n, err := conn.Write(data[total:])
		total += n
		if err != nil {
			return liberr.New(liberr.FailSend, err, "short send (%d/%d bytes)", total, len(data))
		}
	}
	return nil
}
