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

package errors

import (
	"fmt"
	"runtime"
)

// Error is the error type returned by every fallible operation in this
// module. It is safe for concurrent reads.
type Error interface {
	error

	// Code returns the classification of this error.
	Code() Code
	// IsCode reports whether this error (not a parent) carries code c.
	IsCode(c Code) bool
	// HasCode reports whether this error or any parent carries code c.
	HasCode(c Code) bool

	// Parent returns the wrapped error, or nil.
	Parent() error
	// Unwrap supports errors.Is / errors.As.
	Unwrap() error

	// Trace returns "file:line func" of the call site that created the error.
	Trace() string
}

type errImpl struct {
	code   Code
	msg    string
	parent error
	file   string
	line   int
	fn     string
}

// New creates an Error with the given code and an optional formatted
// message appended to the code's default message. parent, if non-nil, is
// chained so that errors.Is/errors.As and HasCode walk through it.
func New(code Code, parent error, format string, args ...interface{}) Error {
	e := &errImpl{
		code:   code,
		parent: parent,
	}
	if format != "" {
		e.msg = fmt.Sprintf(format, args...)
	}
	if pc, file, line, ok := runtime.Caller(1); ok {
		e.file = file
		e.line = line
		if f := runtime.FuncForPC(pc); f != nil {
			e.fn = f.Name()
		}
	}
	return e
}

func (e *errImpl) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("[%d] %s: %s", e.code, e.code.String(), e.msg)
	}
	return fmt.Sprintf("[%d] %s", e.code, e.code.String())
}

func (e *errImpl) Code() Code { return e.code }

func (e *errImpl) IsCode(c Code) bool { return e.code == c }

func (e *errImpl) HasCode(c Code) bool {
	if e.code == c {
		return true
	}
	if pe, ok := e.parent.(Error); ok {
		return pe.HasCode(c)
	}
	return false
}

func (e *errImpl) Parent() error { return e.parent }

func (e *errImpl) Unwrap() error { return e.parent }

func (e *errImpl) Trace() string {
	return fmt.Sprintf("%s:%d %s", e.file, e.line, e.fn)
}

// Is reports whether err (possibly wrapped) carries the given code.
func Is(err error, c Code) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(Error); ok {
		return e.HasCode(c)
	}
	return false
}
