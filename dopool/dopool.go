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

// Package dopool implements the dataobject pool: a hashmap from destination
// key to webclient dataobject, owning the acsocket pool and utimer used by
// every dataobject it creates. Grounded on the arena+indices re-modeling
// spec §9 prescribes in place of the original's back-pointer graph: slots
// are referenced by a uuid.UUID SlotID handed to acsocket as the opaque
// connection tag, and acsocket callbacks route back to a dataobject purely
// through pool lookups — never through a raw pointer baked into the
// acsocket layer.
package dopool

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/ned0000/webchain/acsocket"
	"github.com/ned0000/webchain/duration"
	liberr "github.com/ned0000/webchain/errors"
	loglib "github.com/ned0000/webchain/logger"
	"github.com/ned0000/webchain/utimer"
	"github.com/ned0000/webchain/webclient/dataobject"
)

// DestKey renders a destination as "ip:port", the pool's hash key (spec §3).
func DestKey(ip string, port int) string {
	return fmt.Sprintf("%s:%d", ip, port)
}

// Config bounds the pool and is forwarded verbatim into every dataobject it
// creates (spec §4.9: the pool "owns the acsocket" and the shared utimer;
// per-destination timing/retry/pipeline knobs live here so every dataobject
// in the pool is configured uniformly).
type Config struct {
	MaxConnections int
	BufferSize     int
	MaxBodyCap     int

	IdleTimeout duration.Millis
	FreeTimeout duration.Millis
	RetryMax    int

	StrictPipelineDetection bool
}

// Pool is the destination -> dataobject hashmap, plus the acsocket pool and
// utimer every dataobject it creates shares.
type Pool struct {
	cfg Config
	log loglib.Logger

	sock *acsocket.Pool
	tmr  *utimer.Utimer

	mu      sync.Mutex
	byDest  map[string]*dataobject.DataObject
	bySlot  map[uuid.UUID]*dataobject.DataObject
}

// New creates a Pool, wiring its own acsocket.Pool with callbacks that
// route to the owning dataobject via bySlot. wake is forwarded to the
// acsocket pool so background I/O completions promptly wake the chain.
func New(cfg Config, log loglib.Logger, wake func()) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 10
	}
	p := &Pool{
		cfg:    cfg,
		log:    loglib.OrNop(log),
		tmr:    utimer.New(),
		byDest: make(map[string]*dataobject.DataObject),
		bySlot: make(map[uuid.UUID]*dataobject.DataObject),
	}

	p.sock = acsocket.New(acsocket.Config{
		MaxConnections: cfg.MaxConnections,
		BufferSize:     cfg.BufferSize,
	}, acsocket.Callbacks{
		OnConnect:    p.onConnect,
		OnDisconnect: p.onDisconnect,
		OnData:       p.onData,
		OnSendData:   p.onSendData,
	}, log, wake)

	return p
}

// Socket returns the underlying acsocket pool, for registration with
// package chain (the webclient facade registers dopool+acsocket+utimer as
// chain objects; see webclient.New).
func (p *Pool) Socket() *acsocket.Pool { return p.sock }

// Utimer returns the shared timer scheduler.
func (p *Pool) Utimer() *utimer.Utimer { return p.tmr }

// Len returns the number of live destinations (spec §8 invariant 3:
// |pool.map| <= max_connections at every chain tick).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byDest)
}

// Submit looks up or creates the dataobject for (ip,port) and enqueues req
// into its request FIFO, then drives its state machine.
func (p *Pool) Submit(ip string, port int, req *dataobject.Request) liberr.Error {
	key := DestKey(ip, port)

	p.mu.Lock()
	do, ok := p.byDest[key]
	if !ok {
		if len(p.byDest) >= p.cfg.MaxConnections {
			p.mu.Unlock()
			return liberr.New(liberr.SocketPoolEmpty, nil, "dataobject pool full (max=%d)", p.cfg.MaxConnections)
		}
		id := uuid.New()
		do = dataobject.New(dataobject.Params{
			Destination:             ip,
			Port:                    port,
			Key:                     key,
			SlotID:                  id,
			Sock:                    p.sock,
			Timer:                   p.tmr,
			BufferSize:              p.cfg.BufferSize,
			MaxBodyCap:              p.cfg.MaxBodyCap,
			IdleTimeout:             p.cfg.IdleTimeout,
			FreeTimeout:             p.cfg.FreeTimeout,
			RetryMax:                p.cfg.RetryMax,
			StrictPipelineDetection: p.cfg.StrictPipelineDetection,
			Log:                     p.log,
			OnDestroyed:             p.onDataObjectDestroyed,
		})
		p.byDest[key] = do
		p.bySlot[id] = do
	}
	p.mu.Unlock()

	do.Enqueue(req)
	return nil
}

// DeleteRequests drains the FIFO for (ip,port), firing RequestDeleted on
// every queued request, if the destination is present.
func (p *Pool) DeleteRequests(ip string, port int) error {
	key := DestKey(ip, port)
	p.mu.Lock()
	do, ok := p.byDest[key]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return do.DeleteAll()
}

// DestroyAll tears down every live dataobject, firing RequestDeleted for
// every outstanding request (used by the facade's Destroy). Any callback
// panics collected while draining each dataobject's queue are joined with
// multierr into a single returned error.
func (p *Pool) DestroyAll() error {
	p.mu.Lock()
	all := make([]*dataobject.DataObject, 0, len(p.byDest))
	for _, do := range p.byDest {
		all = append(all, do)
	}
	p.mu.Unlock()

	var errs error
	for _, do := range all {
		errs = multierr.Append(errs, do.Destroy())
	}
	return errs
}

// onDataObjectDestroyed removes a dataobject's map entries once it tears
// itself down (give-up, free-timer fire, or explicit Destroy).
func (p *Pool) onDataObjectDestroyed(key string, id uuid.UUID) {
	p.mu.Lock()
	delete(p.byDest, key)
	delete(p.bySlot, id)
	p.mu.Unlock()
}

func (p *Pool) lookup(tag interface{}) *dataobject.DataObject {
	id, ok := tag.(uuid.UUID)
	if !ok {
		return nil
	}
	p.mu.Lock()
	do := p.bySlot[id]
	p.mu.Unlock()
	return do
}

func (p *Pool) onConnect(slot int, err liberr.Error, tag interface{}) {
	if do := p.lookup(tag); do != nil {
		do.OnConnect(slot, err)
	}
}

func (p *Pool) onDisconnect(_ int, tag interface{}) {
	if do := p.lookup(tag); do != nil {
		do.OnDisconnect()
	}
}

func (p *Pool) onData(_ int, buf []byte, begin *int, end int, tag interface{}) {
	if do := p.lookup(tag); do != nil {
		do.OnData(buf, begin, end)
	}
}

func (p *Pool) onSendData(_ int, err liberr.Error, _ int, tag interface{}) {
	if do := p.lookup(tag); do != nil {
		do.OnSendData(err)
	}
}
