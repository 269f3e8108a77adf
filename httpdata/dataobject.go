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

// Package httpdata implements the incremental HTTP response assembler:
// given a byte stream arriving in arbitrary-sized chunks, it reassembles a
// full request or response, handling both Content-Length and chunked
// bodies, spilling to a dedicated buffer when the body outgrows the
// socket's receive buffer. Grounded on
// original_source/httpparser/dataobject.c.
package httpdata

import (
	"github.com/ned0000/webchain/chunked"
	liberr "github.com/ned0000/webchain/errors"
	"github.com/ned0000/webchain/httpmsg"
)

// DataObject drives one persistent connection's worth of response parsing.
// It is reinitialized after each full response so the same instance parses
// successive pipelined responses.
type DataObject struct {
	headerParsed bool
	fullPacket   bool
	chunked      bool

	bytesLeft int // Content-Length body size (0 when absent); left at 0 for chunked bodies

	spillBuf    []byte
	spillOffset int

	socketBufferSize int
	maxBodyCap       int // 0 == unbounded; forwarded to the chunk processor

	chunkProc    *chunked.Processor
	parsedHeader *httpmsg.Header
}

// New creates a DataObject. socketBufferSize matches the owning acsocket
// slot's buffer size: bodies that would exceed it trigger the spill-buffer
// strategy (spec §4.3) instead of waiting for the slot buffer to grow.
func New(socketBufferSize int, maxBodyCap int) *DataObject {
	return &DataObject{socketBufferSize: socketBufferSize, maxBodyCap: maxBodyCap}
}

// Reinit clears all per-response state (spill buffer, parsed header, chunk
// processor) so the DataObject can parse the next pipelined response on the
// same connection. After Reinit, no memory from the previous response
// remains reachable through the DataObject (spec §8 invariant 5).
func (d *DataObject) Reinit() {
	d.headerParsed = false
	d.fullPacket = false
	d.chunked = false
	d.bytesLeft = 0
	d.spillBuf = nil
	d.spillOffset = 0
	d.chunkProc = nil
	d.parsedHeader = nil
}

// GetFullPacket reports whether a full request/response has been parsed and
// returns it. The returned Header is valid only until the next Process or
// Reinit call: callers that need it to outlive that must Header.Clone() it.
func (d *DataObject) GetFullPacket() (bool, *httpmsg.Header) {
	if !d.fullPacket {
		return false, nil
	}
	return true, d.parsedHeader
}

// Process consumes as much of buf[*begin:end] as it can toward completing
// the current response, advancing *begin past everything consumed. Callers
// must keep calling Process as more bytes arrive until GetFullPacket
// reports true.
func (d *DataObject) Process(buf []byte, begin *int, end int) liberr.Error {
	if d.fullPacket {
		return nil
	}

	if !d.headerParsed {
		if err := d.processHeaderPhase(buf, begin, end); err != nil || d.headerParsed || d.fullPacket {
			return err
		}
		// header terminator not yet seen; wait for more bytes.
		return nil
	}

	return d.processBodyPhase(buf, begin, end)
}

func (d *DataObject) processHeaderPhase(buf []byte, begin *int, end int) liberr.Error {
	headerEnd := httpmsg.FindHeaderEnd(buf, *begin, end)
	if headerEnd < 0 {
		return nil
	}

	h, err := httpmsg.Parse(buf, *begin, headerEnd)
	if err != nil {
		return err
	}

	bodyStart := headerEnd
	*begin = headerEnd

	switch h.ParseTransferEncoding() {
	case httpmsg.TransferChunked:
		d.chunked = true
		d.chunkProc = chunked.New(d.socketBufferSize, d.maxBodyCap)
		d.parsedHeader = h.Clone()
		d.headerParsed = true
		return d.driveChunked(buf, begin, end)

	default:
		cl, ok := h.ParseContentLength()
		if !ok {
			cl = 0
		}
		d.bytesLeft = cl

		if cl == 0 {
			h.SetBody(nil)
			d.parsedHeader = h.Clone()
			d.fullPacket = true
			return nil
		}

		if end-bodyStart >= cl {
			h.SetBody(buf[bodyStart : bodyStart+cl])
			*begin = bodyStart + cl
			d.parsedHeader = h.Clone()
			d.fullPacket = true
			return nil
		}

		// Body not fully arrived: clone the header now (buffer will be
		// reused) and, if the body would overflow the socket buffer,
		// allocate a spill buffer up front.
		d.parsedHeader = h.Clone()
		d.headerParsed = true
		if cl > d.socketBufferSize {
			d.spillBuf = make([]byte, cl)
			d.spillOffset = 0
			copy(d.spillBuf, buf[bodyStart:end])
			d.spillOffset = end - bodyStart
			*begin = end
		}
		return nil
	}
}

func (d *DataObject) processBodyPhase(buf []byte, begin *int, end int) liberr.Error {
	if d.chunked {
		return d.driveChunked(buf, begin, end)
	}

	if d.spillBuf != nil {
		avail := end - *begin
		need := len(d.spillBuf) - d.spillOffset
		take := avail
		if take > need {
			take = need
		}
		copy(d.spillBuf[d.spillOffset:], buf[*begin:*begin+take])
		d.spillOffset += take
		*begin += take
		if d.spillOffset == len(d.spillBuf) {
			d.parsedHeader.SetBody(d.spillBuf)
			d.fullPacket = true
		}
		return nil
	}

	// No spill buffer: wait in place until the body is fully present.
	if end-*begin < d.bytesLeft {
		return nil
	}
	body := make([]byte, d.bytesLeft)
	copy(body, buf[*begin:*begin+d.bytesLeft])
	*begin += d.bytesLeft
	d.parsedHeader.SetBody(body)
	d.fullPacket = true
	return nil
}

func (d *DataObject) driveChunked(buf []byte, begin *int, end int) liberr.Error {
	if err := d.chunkProc.Process(d.parsedHeader, buf, begin, end); err != nil {
		return err
	}
	if d.chunkProc.Done() {
		d.fullPacket = true
	}
	return nil
}
