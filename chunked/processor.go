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

// Package chunked decodes HTTP "chunked" transfer-encoded bodies
// incrementally, grounded on original_source/httpparser/chunkprocessor.h.
// A Processor is created once a response header advertises
// Transfer-Encoding: chunked and destroyed when the owning httpdata object
// resets for the next pipelined response.
package chunked

import (
	liberr "github.com/ned0000/webchain/errors"
	"github.com/ned0000/webchain/httpmsg"
)

type readState int

const (
	readingSizeLine readState = iota
	readingChunkData
	readingChunkCRLF
	readingTrailer
	done
)

// Processor is a stateful chunked-body decoder. Zero value is not usable;
// construct with New.
type Processor struct {
	state     readState
	remaining int // bytes left in the current chunk's data
	body      []byte
	maxBody   int // 0 == unbounded
}

// New creates a chunk Processor. initialCap pre-sizes the growing body
// buffer (mirrors jf_httpparser_createChunkProcessor's u32MallocSize);
// maxBody, when non-zero, caps the total decoded body size and surfaces
// errors.BufferTooSmall once exceeded (spec §5: "implementers may impose a
// configurable cap").
func New(initialCap int, maxBody int) *Processor {
	return &Processor{
		state:   readingSizeLine,
		body:    make([]byte, 0, initialCap),
		maxBody: maxBody,
	}
}

// Process consumes as much of buf[*begin:end] as it can. On seeing the
// terminating zero-size chunk, it attaches the decoded body to header (via
// SetBody) and returns with *begin advanced past everything consumed.
// Until completion, header.Body remains nil: the caller must feed more
// bytes once more arrive on the socket.
func (p *Processor) Process(header *httpmsg.Header, buf []byte, begin *int, end int) liberr.Error {
	for *begin < end && p.state != done {
		switch p.state {
		case readingSizeLine:
			line, ok := p.takeLine(buf, begin, end)
			if !ok {
				return nil
			}
			size, err := parseHexSize(line)
			if err != nil {
				return err
			}
			if size == 0 {
				p.state = readingTrailer
			} else {
				p.remaining = size
				p.state = readingChunkData
			}

		case readingChunkData:
			avail := end - *begin
			if avail == 0 {
				return nil
			}
			take := p.remaining
			if take > avail {
				take = avail
			}
			if p.maxBody > 0 && len(p.body)+take > p.maxBody {
				return liberr.New(liberr.BufferTooSmall, nil, "chunked body exceeds cap %d", p.maxBody)
			}
			p.body = append(p.body, buf[*begin:*begin+take]...)
			*begin += take
			p.remaining -= take
			if p.remaining == 0 {
				p.state = readingChunkCRLF
			}

		case readingChunkCRLF:
			if end-*begin < 2 {
				return nil
			}
			if buf[*begin] != '\r' || buf[*begin+1] != '\n' {
				return liberr.New(liberr.CorruptedChunkData, nil, "missing CRLF after chunk data")
			}
			*begin += 2
			p.state = readingSizeLine

		case readingTrailer:
			// A trailer section is zero or more header lines followed by a
			// blank line. We discard trailer content; only its end matters.
			line, ok := p.takeLine(buf, begin, end)
			if !ok {
				return nil
			}
			if len(line) == 0 {
				p.state = done
			}
		}
	}

	if p.state == done {
		header.SetBody(p.body)
	}
	return nil
}

// Done reports whether the terminating chunk and trailer have been seen.
func (p *Processor) Done() bool { return p.state == done }

// takeLine extracts one CRLF-terminated line starting at *begin, advancing
// *begin past it. Returns ok == false if the terminator hasn't arrived yet.
func (p *Processor) takeLine(buf []byte, begin *int, end int) ([]byte, bool) {
	for i := *begin; i+1 < end; i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' {
			line := buf[*begin:i]
			*begin = i + 2
			return line, true
		}
	}
	return nil, false
}

func parseHexSize(line []byte) (int, liberr.Error) {
	// Strip chunk extensions (";ext=value"), per spec §6: "optional
	// extensions ignored".
	for i, c := range line {
		if c == ';' {
			line = line[:i]
			break
		}
	}
	if len(line) == 0 {
		return 0, liberr.New(liberr.CorruptedChunkData, nil, "empty chunk size line")
	}
	n := 0
	for _, c := range line {
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'a' && c <= 'f':
			v = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = int(c-'A') + 10
		default:
			return 0, liberr.New(liberr.CorruptedChunkData, nil, "invalid hex digit %q in size line", string(c))
		}
		n = n*16 + v
	}
	return n, nil
}
