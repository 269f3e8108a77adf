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

// Package duration provides the millisecond-resolution monotonic clock used
// by attask, utimer, and the webclient retry backoff. All deadlines in this
// module are expressed in milliseconds since an arbitrary monotonic epoch,
// never wall-clock time, so that clock adjustments never perturb scheduling.
package duration

import "time"

// Millis is a monotonic millisecond timestamp or a millisecond duration,
// depending on context, mirroring how the original attask/chain code reuses
// a single u32 millisecond type for both.
type Millis int64

// Infinite is the sentinel "no deadline" block-time value, matching the C
// original's INFINITE constant used by attask/utimer.
const Infinite Millis = -1

// NowMillis returns the current monotonic time in milliseconds, measured
// from a process-start epoch. time.Time.Sub uses the Go runtime's monotonic
// clock reading, so wall-clock adjustments do not affect the result; the
// value is only ever used for subtraction against other NowMillis()
// readings (never formatted or persisted).
func NowMillis() Millis {
	return Millis(monoNow().Sub(epoch) / time.Millisecond)
}

// monoNow is split out so tests can stub the clock deterministically.
var monoNow = time.Now

// epoch is the reading NowMillis measures from.
var epoch = monoNow()

// Sleep blocks the calling goroutine for d milliseconds. Only tests use
// this; the reactor chain itself never sleeps.
func Sleep(d Millis) {
	if d <= 0 {
		return
	}
	time.Sleep(time.Duration(d) * time.Millisecond)
}

// Add returns the deadline d milliseconds after m.
func (m Millis) Add(d Millis) Millis { return m + d }

// Sub returns m - o.
func (m Millis) Sub(o Millis) Millis { return m - o }

// Time converts to a time.Duration, for passing to APIs (select timeouts,
// net.Conn deadlines) that want a time.Duration.
func (m Millis) Time() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// FromSeconds builds a Millis value from a whole number of seconds, used by
// the webclient dataobject to turn its whole-second retry backoff delay
// into Millis.
func FromSeconds(s int64) Millis {
	return Millis(s * 1000)
}
