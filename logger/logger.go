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

// Package logger provides the small structured-logging interface shared by
// chain, acsocket, and webclient. It is backed by logrus, mirroring the
// backend nabbar-golib/logger itself wraps.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface consumed by this module's components.
// A nil Logger is valid everywhere it is accepted: components pass it
// through OrNop, which substitutes the Nop implementation below, so that
// constructing a chain/acsocket/webclient without a logger never panics.
type Logger interface {
	WithField(key string, value interface{}) Logger
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type logrusLogger struct {
	e *logrus.Entry
}

// New wraps a *logrus.Logger (or logrus.StandardLogger()) as a Logger.
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.New()
	}
	return &logrusLogger{e: logrus.NewEntry(l)}
}

// NewWithOutput is a convenience constructor mirroring nabbar-golib's
// logger config pattern: a level and an io.Writer destination.
func NewWithOutput(level logrus.Level, out io.Writer) Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(out)
	return New(l)
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{e: l.e.WithField(key, value)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.e.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.e.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.e.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.e.Errorf(format, args...) }

type nopLogger struct{}

// Nop returns a Logger that discards everything. Useful as a default when
// the caller does not configure one.
func Nop() Logger { return nopLogger{} }

func (nopLogger) WithField(_ string, _ interface{}) Logger       { return nopLogger{} }
func (nopLogger) Debugf(_ string, _ ...interface{})              {}
func (nopLogger) Infof(_ string, _ ...interface{})               {}
func (nopLogger) Warnf(_ string, _ ...interface{})               {}
func (nopLogger) Errorf(_ string, _ ...interface{})              {}

// OrNop returns l if non-nil, otherwise a Nop logger.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
