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

// Package errors provides the coded, traceable error type used across this
// module: every fallible operation in chain, acsocket, httpdata, and
// webclient returns an errors.Error instead of a bare error, carrying a
// numeric Code (the taxonomy from the async web-client subsystem), an
// optional parent, and the file/line/function of the call site.
package errors

// Code classifies an Error the way an HTTP status code classifies a
// response: a small closed set of named values, extensible by the caller.
type Code uint16

const (
	UnknownError Code = 0

	// Input-validation
	InvalidParam      Code = 1000
	InvalidUri        Code = 1001
	InvalidHeaderLine Code = 1002
	MissingQuote      Code = 1003
	InvalidConfig     Code = 1004

	// HTTP-protocol
	CorruptedHttpMessage Code = 1100
	CorruptedChunkData   Code = 1101
	HeaderNotFound       Code = 1102
	BufferTooSmall       Code = 1103

	// Socket I/O
	FailCreateSocket     Code = 1200
	FailConnect          Code = 1201
	FailSend             Code = 1202
	FailRecv             Code = 1203
	PeerClosed           Code = 1204
	LocalClosed          Code = 1205
	ConnectionNotSetup   Code = 1206
	SocketPoolEmpty      Code = 1207
	Timeout              Code = 1208

	// Resource
	OutOfMemory Code = 1300
	QueueFull   Code = 1301

	// Lifecycle
	NotInitialized Code = 1400
	AlreadyExists  Code = 1401
	NotFound       Code = 1402
)

var codeMessage = map[Code]string{
	UnknownError:         "unknown error",
	InvalidParam:         "invalid parameter",
	InvalidUri:           "invalid uri",
	InvalidHeaderLine:    "invalid header line",
	MissingQuote:         "missing quote",
	InvalidConfig:        "invalid configuration",
	CorruptedHttpMessage: "corrupted http message",
	CorruptedChunkData:   "corrupted chunk data",
	HeaderNotFound:       "header not found",
	BufferTooSmall:       "buffer too small",
	FailCreateSocket:     "failed to create socket",
	FailConnect:          "failed to connect",
	FailSend:             "failed to send",
	FailRecv:             "failed to receive",
	PeerClosed:           "peer closed connection",
	LocalClosed:          "local closed connection",
	ConnectionNotSetup:   "connection not setup",
	SocketPoolEmpty:      "socket pool empty",
	Timeout:              "operation timed out",
	OutOfMemory:          "out of memory",
	QueueFull:            "queue full",
	NotInitialized:       "not initialized",
	AlreadyExists:        "already exists",
	NotFound:             "not found",
}

// String returns the registered message for the code, or "unknown error"
// when the code has no registered message.
func (c Code) String() string {
	if m, ok := codeMessage[c]; ok {
		return m
	}
	return UnknownError.String()
}
