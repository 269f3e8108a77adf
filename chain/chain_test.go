package chain_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ned0000/webchain/chain"
)

type recordingObject struct {
	name       string
	preSelect  time.Duration
	mu         sync.Mutex
	postCalled int
}

func (o *recordingObject) Name() string             { return o.name }
func (o *recordingObject) PreSelect() time.Duration  { return o.preSelect }
func (o *recordingObject) PostSelect() {
	o.mu.Lock()
	o.postCalled++
	o.mu.Unlock()
}
func (o *recordingObject) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.postCalled
}

func TestWakeupUnblocksRunPromptly(t *testing.T) {
	c, err := chain.New(nil)
	require.Nil(t, err)

	obj := &recordingObject{name: "x", preSelect: -1}
	c.AddObject(obj)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = c.Run(ctx) }()

	c.Wakeup()

	require.Eventually(t, func() bool { return obj.calls() > 0 }, time.Second, 5*time.Millisecond)

	c.Stop()
}

func TestStopIsIdempotentAndExitsRun(t *testing.T) {
	c, err := chain.New(nil)
	require.Nil(t, err)

	ctx := context.Background()
	runDone := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(runDone)
	}()

	c.Wakeup()
	time.Sleep(10 * time.Millisecond)

	c.Stop()
	c.Stop()

	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after Stop")
	}
}

func TestAddAndRemoveObjectChangesParticipation(t *testing.T) {
	c, err := chain.New(nil)
	require.Nil(t, err)

	obj := &recordingObject{name: "x", preSelect: -1}
	c.AddObject(obj)
	c.RemoveObject(obj)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx) }()

	c.Wakeup()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.Equal(t, 0, obj.calls())
	c.Stop()
}

func TestContextCancelStopsRun(t *testing.T) {
	c, err := chain.New(nil)
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(runDone)
	}()

	cancel()

	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit on context cancel")
	}
	c.Stop()
}
