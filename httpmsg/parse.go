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

package httpmsg

import (
	"bytes"
	"strconv"
	"strings"

	liberr "github.com/ned0000/webchain/errors"
)

// FindHeaderEnd returns the offset of the byte just past the blank line
// ("\r\n\r\n") terminating the header block within buf[off:end], or -1 if
// the terminator has not arrived yet. The offset returned is relative to
// buf[0], not to off, matching the C original's pointer-arithmetic return.
func FindHeaderEnd(buf []byte, off, end int) int {
	idx := bytes.Index(buf[off:end], []byte("\r\n\r\n"))
	if idx < 0 {
		return -1
	}
	return off + idx + 4
}

// Parse parses an HTTP/1.x request or response header from buf[off:end].
// The returned Header aliases buf directly (Owned == false on every field)
// — callers must Clone() it before buf is reused for another recv. headerEnd
// is the offset (relative to buf[0]) of the first byte after the header
// block, matching FindHeaderEnd's return convention.
func Parse(buf []byte, off, headerEnd int) (*Header, liberr.Error) {
	block := buf[off : headerEnd-4] // strip trailing \r\n\r\n
	lines := splitCRLF(block)
	if len(lines) == 0 {
		return nil, liberr.New(liberr.CorruptedHttpMessage, nil, "empty header block")
	}

	h := &Header{}
	if err := parseFirstLine(h, lines[0]); err != nil {
		return nil, err
	}

	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			return nil, liberr.New(liberr.InvalidHeaderLine, nil, "no colon in line %q", string(line))
		}
		name := bytes.TrimSpace(line[:idx])
		value := bytes.TrimSpace(line[idx+1:])
		h.Fields = append(h.Fields, Field{Name: name, Value: value})
	}

	return h, nil
}

func splitCRLF(b []byte) [][]byte {
	var lines [][]byte
	for len(b) > 0 {
		idx := bytes.Index(b, []byte("\r\n"))
		if idx < 0 {
			lines = append(lines, b)
			break
		}
		lines = append(lines, b[:idx])
		b = b[idx+2:]
	}
	return lines
}

func parseFirstLine(h *Header, line []byte) liberr.Error {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return liberr.New(liberr.CorruptedHttpMessage, nil, "malformed first line %q", string(line))
	}
	if bytes.HasPrefix(parts[0], []byte("HTTP/")) {
		h.IsRequest = false
		h.Version = parts[0]
		code, err := strconv.Atoi(string(parts[1]))
		if err != nil {
			return liberr.New(liberr.CorruptedHttpMessage, nil, "malformed status code %q", string(parts[1]))
		}
		h.StatusCode = code
		h.StatusText = parts[2]
	} else {
		h.IsRequest = true
		h.Directive = parts[0]
		h.DirectiveObject = parts[1]
		h.Version = parts[2]
	}
	return nil
}

// ParseURI parses an "http://host[:port]/path" URI. Only the http scheme is
// supported (spec §6); port defaults to 80, and an absent path becomes "/".
func ParseURI(uri string) (host string, port int, path string, err liberr.Error) {
	const scheme = "http://"
	if !strings.HasPrefix(strings.ToLower(uri), scheme) {
		return "", 0, "", liberr.New(liberr.InvalidUri, nil, "unsupported scheme in %q", uri)
	}
	rest := uri[len(scheme):]
	path = "/"
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		path = rest[idx:]
		rest = rest[:idx]
	}
	if rest == "" {
		return "", 0, "", liberr.New(liberr.InvalidUri, nil, "empty host in %q", uri)
	}
	port = 80
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		host = rest[:idx]
		p, convErr := strconv.Atoi(rest[idx+1:])
		if convErr != nil || p <= 0 || p > 65535 {
			return "", 0, "", liberr.New(liberr.InvalidUri, nil, "invalid port in %q", uri)
		}
		port = p
	} else {
		host = rest
	}
	return host, port, path, nil
}
