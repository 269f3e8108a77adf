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

// Package webclient is the user-facing facade: a chain object that accepts
// requests from arbitrary goroutines under a mutex-guarded staging queue and
// drains it into the dataobject pool during its own PreSelect, exactly as
// spec §4.10 describes for jf_webclient.h's new_webclient/SendHttpPacket
// family. Config validation follows nabbar-golib's convention of tagging
// config structs for github.com/go-playground/validator/v10 rather than
// hand-rolled range checks.
package webclient

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ned0000/webchain/chain"
	"github.com/ned0000/webchain/dopool"
	"github.com/ned0000/webchain/duration"
	liberr "github.com/ned0000/webchain/errors"
	"github.com/ned0000/webchain/httpmsg"
	loglib "github.com/ned0000/webchain/logger"
	"github.com/ned0000/webchain/webclient/dataobject"
)

// Config configures a Webclient. Validated with validator/v10 at
// construction, mirroring nabbar-golib's config structs.
type Config struct {
	MaxConnections int `validate:"required,min=1,max=100"`
	BufferSize     int `validate:"omitempty,min=256"`
	MaxBodyCap     int

	IdleTimeoutMs int
	FreeTimeoutMs int
	RetryMax      int

	// StrictPipelineDetection: see webclient/dataobject.Params.
	StrictPipelineDetection bool
}

const defaultBufferSize = 2048

var validate = validator.New()

func (c *Config) applyDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
}

// stagingKind distinguishes the two operations the facade can stage.
type stagingKind int

const (
	stagingSend stagingKind = iota
	stagingDelete
)

type stagingItem struct {
	kind stagingKind
	ip   string
	port int
	req  *dataobject.Request
}

// Webclient is the facade chain object. It owns a private reactor chain
// running the dataobject pool (acsocket + utimer) plus itself.
type Webclient struct {
	cfg Config
	log loglib.Logger

	c    *chain.Chain
	pool *dopool.Pool

	mu      sync.Mutex
	staging []stagingItem
}

// New validates cfg, builds the private chain (self-pipe, acsocket, utimer,
// dataobject pool) and registers every chain object, returning a Webclient
// ready for Run.
func New(cfg Config, log loglib.Logger) (*Webclient, liberr.Error) {
	cfg.applyDefaults()
	if err := validate.Struct(&cfg); err != nil {
		return nil, liberr.New(liberr.InvalidConfig, err, "webclient config")
	}

	c, err := chain.New(log)
	if err != nil {
		return nil, err
	}

	w := &Webclient{cfg: cfg, log: loglib.OrNop(log), c: c}

	w.pool = dopool.New(dopool.Config{
		MaxConnections:          cfg.MaxConnections,
		BufferSize:              cfg.BufferSize,
		MaxBodyCap:              cfg.MaxBodyCap,
		IdleTimeout:             duration.Millis(cfg.IdleTimeoutMs),
		FreeTimeout:             duration.Millis(cfg.FreeTimeoutMs),
		RetryMax:                cfg.RetryMax,
		StrictPipelineDetection: cfg.StrictPipelineDetection,
	}, log, c.Wakeup)

	c.AddObject(w.pool.Socket())
	c.AddObject(w.pool.Utimer())
	c.AddObject(w)

	return w, nil
}

// Name implements chain.Object.
func (w *Webclient) Name() string { return "webclient" }

// PreSelect drains the staging queue into the dataobject pool. Spec §4.10:
// "the chain thread drains the staging queue during its own pre_select".
func (w *Webclient) PreSelect() time.Duration {
	w.flush()
	return -1
}

// PostSelect implements chain.Object; all real work happens in PreSelect.
func (w *Webclient) PostSelect() {}

// Run drives the private chain until ctx is cancelled or Stop is called.
func (w *Webclient) Run(ctx context.Context) error {
	return w.c.Run(ctx)
}

// Stop tears down every live destination (firing RequestDeleted on every
// outstanding request) and stops the chain. Matches jf_webclient.h's
// Destroy. Any request-callback panics collected while tearing down are
// joined with multierr and logged rather than discarded.
func (w *Webclient) Stop() {
	if err := w.pool.DestroyAll(); err != nil {
		w.log.Errorf("webclient: teardown errors: %v", err)
	}
	w.c.Stop()
}

// Destroy is an alias for Stop, matching the original API's naming.
func (w *Webclient) Destroy() { w.Stop() }

func (w *Webclient) stage(item stagingItem) {
	w.mu.Lock()
	wasEmpty := len(w.staging) == 0
	w.staging = append(w.staging, item)
	w.mu.Unlock()

	if wasEmpty {
		w.c.Wakeup()
	}
}

func (w *Webclient) drainStaging() []stagingItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.staging) == 0 {
		return nil
	}
	out := w.staging
	w.staging = nil
	return out
}

// SendHttpPacket serializes header (and its body, if set) via package
// httpmsg into a single owned chunk and enqueues it for destination ip:port.
// onEvent is called on the chain thread exactly once, with EventIncomingData
// or EventRequestDeleted.
func (w *Webclient) SendHttpPacket(ip string, port int, header *httpmsg.Header, onEvent dataobject.OnEvent, user interface{}) {
	raw := header.ToRaw()
	if header.Body != nil {
		raw = append(raw, header.Body...)
	}
	w.stage(stagingItem{
		kind: stagingSend,
		ip:   ip,
		port: port,
		req: &dataobject.Request{
			Chunks:  [][]byte{raw},
			OnEvent: onEvent,
			User:    user,
		},
	})
}

// SendHttpHeaderAndBody enqueues raw header bytes and an optional separate
// body as one or two owned chunks (spec §4.10), without going through the
// httpmsg header model at all — for callers that already have wire bytes.
func (w *Webclient) SendHttpHeaderAndBody(ip string, port int, headerBytes []byte, body []byte, onEvent dataobject.OnEvent, user interface{}) {
	chunks := [][]byte{cloneBytes(headerBytes)}
	if body != nil {
		chunks = append(chunks, cloneBytes(body))
	}
	w.stage(stagingItem{
		kind: stagingSend,
		ip:   ip,
		port: port,
		req: &dataobject.Request{
			Chunks:  chunks,
			OnEvent: onEvent,
			User:    user,
		},
	})
}

// DeleteRequest cancels every queued request for ip:port, firing
// RequestDeleted on each, once the staging queue drains.
func (w *Webclient) DeleteRequest(ip string, port int) {
	w.stage(stagingItem{kind: stagingDelete, ip: ip, port: port})
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// flush is called from PreSelect (via the chain's loop goroutine) to hand
// every staged item to the pool.
func (w *Webclient) flush() {
	items := w.drainStaging()
	for _, it := range items {
		switch it.kind {
		case stagingSend:
			if err := w.pool.Submit(it.ip, it.port, it.req); err != nil {
				w.log.Warnf("webclient: submit %s:%d failed: %v", it.ip, it.port, err)
				if it.req.OnEvent != nil {
					it.req.OnEvent(dataobject.EventRequestDeleted, nil, it.req.User)
				}
			}
		case stagingDelete:
			if err := w.pool.DeleteRequests(it.ip, it.port); err != nil {
				w.log.Errorf("webclient: delete_requests %s:%d errors: %v", it.ip, it.port, err)
			}
		}
	}
}
