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

// Package httpmsg implements the byte-exact HTTP/1.x packet header model:
// parsing, cloning, and raw-buffer serialization of request/response
// headers. It is grounded on nabbar-golib/httpcli's header handling and
// original_source/jiutai/jf_httpparser.h, generalized from net/http-backed
// convenience calls to a zero-copy parser that can alias a socket receive
// buffer directly.
package httpmsg

import (
	"fmt"

	liberr "github.com/ned0000/webchain/errors"
)

// Field is a single header line. Name/Value may alias a caller-owned
// receive buffer (Owned == false) or an independently allocated copy
// (Owned == true). A Header parsed in place over a buffer must be Clone()d
// before that buffer is reused for another recv.
type Field struct {
	Name  []byte
	Value []byte
	Owned bool
}

// TransferEncoding classifies the Transfer-Encoding header.
type TransferEncoding int

const (
	TransferIdentity TransferEncoding = iota
	TransferChunked
)

// Header models either an HTTP request or an HTTP response. The two are
// mutually exclusive: IsRequest selects which of the request-line /
// status-line fields are meaningful.
type Header struct {
	IsRequest bool

	// Request line.
	Directive       []byte // method, e.g. GET
	DirectiveObject []byte // request-URI

	// Status line.
	StatusCode int
	StatusText []byte

	Version []byte // e.g. "HTTP/1.1"

	Fields []Field

	Body  []byte
	Owned bool // whether Directive/DirectiveObject/StatusText/Version/Body are independently owned
}

// NewRequest builds an empty request header with the given method/URI/version.
func NewRequest(method, uri, version string) *Header {
	return &Header{
		IsRequest:       true,
		Directive:       []byte(method),
		DirectiveObject: []byte(uri),
		Version:         []byte(version),
		Owned:           true,
	}
}

// NewResponse builds an empty response header.
func NewResponse(version string, code int, text string) *Header {
	return &Header{
		IsRequest:  false,
		Version:    []byte(version),
		StatusCode: code,
		StatusText: []byte(text),
		Owned:      true,
	}
}

// SetDirective sets the request line verb/object and marks the header as a
// request (IsRequest = true), so calling it on a response header turns that
// header into a request header.
func (h *Header) SetDirective(method, uri string) {
	h.IsRequest = true
	h.Directive = []byte(method)
	h.DirectiveObject = []byte(uri)
}

// SetStatus sets the status line.
func (h *Header) SetStatus(code int, text string) {
	h.IsRequest = false
	h.StatusCode = code
	h.StatusText = []byte(text)
}

// SetVersion sets the HTTP version token.
func (h *Header) SetVersion(v string) { h.Version = []byte(v) }

// SetBody attaches a body. It does not set Content-Length; callers that
// want that header present must AddHeaderLine it explicitly (mirrors the
// original C API, which never hid header mutation behind body attachment).
func (h *Header) SetBody(b []byte) { h.Body = b }

// AddHeaderLine appends a header field, preserving declaration order and
// allowing duplicate names (the wire format permits both).
func (h *Header) AddHeaderLine(name, value string) {
	h.Fields = append(h.Fields, Field{Name: []byte(name), Value: []byte(value), Owned: true})
}

// GetHeaderLine returns the first field matching name case-insensitively.
func (h *Header) GetHeaderLine(name string) (*Field, liberr.Error) {
	for i := range h.Fields {
		if ciEqual(h.Fields[i].Name, name) {
			return &h.Fields[i], nil
		}
	}
	return nil, liberr.New(liberr.HeaderNotFound, nil, "header %q not found", name)
}

func ciEqual(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := range b {
		c1, c2 := b[i], s[i]
		if 'A' <= c1 && c1 <= 'Z' {
			c1 += 'a' - 'A'
		}
		if 'A' <= c2 && c2 <= 'Z' {
			c2 += 'a' - 'A'
		}
		if c1 != c2 {
			return false
		}
	}
	return true
}

// ParseContentLength parses the Content-Length header, returning
// (length, true) when present and well-formed, or (0, false) otherwise.
func (h *Header) ParseContentLength() (int, bool) {
	f, err := h.GetHeaderLine("Content-Length")
	if err != nil {
		return 0, false
	}
	n := 0
	for _, c := range f.Value {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// ParseTransferEncoding reports whether the header advertises chunked
// transfer encoding.
func (h *Header) ParseTransferEncoding() TransferEncoding {
	f, err := h.GetHeaderLine("Transfer-Encoding")
	if err != nil {
		return TransferIdentity
	}
	if ciContains(f.Value, "chunked") {
		return TransferChunked
	}
	return TransferIdentity
}

func ciContains(b []byte, s string) bool {
	if len(s) == 0 || len(b) < len(s) {
		return false
	}
	for i := 0; i+len(s) <= len(b); i++ {
		if ciEqual(b[i:i+len(s)], s) {
			return true
		}
	}
	return false
}

// Clone deep-copies every borrowed slice into independently allocated
// storage, so the Header remains valid after the underlying receive buffer
// is recycled. It must be called before reinit()-ing the httpdata object
// that produced an in-place-parsed Header.
func (h *Header) Clone() *Header {
	c := &Header{
		IsRequest:  h.IsRequest,
		StatusCode: h.StatusCode,
		Owned:      true,
	}
	c.Directive = cloneBytes(h.Directive)
	c.DirectiveObject = cloneBytes(h.DirectiveObject)
	c.StatusText = cloneBytes(h.StatusText)
	c.Version = cloneBytes(h.Version)
	if h.Body != nil {
		c.Body = cloneBytes(h.Body)
	}
	if h.Fields != nil {
		c.Fields = make([]Field, len(h.Fields))
		for i, f := range h.Fields {
			c.Fields[i] = Field{Name: cloneBytes(f.Name), Value: cloneBytes(f.Value), Owned: true}
		}
	}
	return c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// ToRaw serializes the header (request or response line, header fields,
// terminating blank line) into an owned byte buffer. Body is not appended;
// callers append Body themselves when writing to the wire.
func (h *Header) ToRaw() []byte {
	buf := make([]byte, 0, 256)
	if h.IsRequest {
		buf = append(buf, h.Directive...)
		buf = append(buf, ' ')
		buf = append(buf, h.DirectiveObject...)
		buf = append(buf, ' ')
		buf = append(buf, h.Version...)
	} else {
		buf = append(buf, h.Version...)
		buf = append(buf, ' ')
		buf = append(buf, []byte(fmt.Sprintf("%d", h.StatusCode))...)
		buf = append(buf, ' ')
		buf = append(buf, h.StatusText...)
	}
	buf = append(buf, '\r', '\n')
	for _, f := range h.Fields {
		buf = append(buf, f.Name...)
		buf = append(buf, ':', ' ')
		buf = append(buf, f.Value...)
		buf = append(buf, '\r', '\n')
	}
	buf = append(buf, '\r', '\n')
	return buf
}
