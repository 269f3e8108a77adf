package webclient_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liberr "github.com/ned0000/webchain/errors"
	"github.com/ned0000/webchain/httpmsg"
	"github.com/ned0000/webchain/webclient"
	"github.com/ned0000/webchain/webclient/dataobject"
)

func startReplyServer(t *testing.T, response string) (string, int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			c, aerr := ln.Accept()
			if aerr != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					_, rerr := c.Read(buf)
					if rerr != nil {
						return
					}
					if _, werr := c.Write([]byte(response)); werr != nil {
						return
					}
				}
			}(c)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, func() { _ = ln.Close() }
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := webclient.New(webclient.Config{MaxConnections: 0}, nil)
	require.NotNil(t, err)
	assert.True(t, liberr.Is(err, liberr.InvalidConfig))
}

func TestSendHttpPacketDeliversResponse(t *testing.T) {
	host, port, closeFn := startReplyServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	defer closeFn()

	w, err := webclient.New(webclient.Config{MaxConnections: 4}, nil)
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	defer w.Stop()

	req := httpmsg.NewRequest("GET", "/", "HTTP/1.1")
	req.AddHeaderLine("Host", "x")

	var mu sync.Mutex
	done := false
	var gotHeader *httpmsg.Header

	w.SendHttpPacket(host, port, req, func(event dataobject.Event, header *httpmsg.Header, user interface{}) {
		mu.Lock()
		defer mu.Unlock()
		done = true
		gotHeader = header
	}, nil)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	}, 3*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, gotHeader)
	assert.Equal(t, "ok", string(gotHeader.Body))
}

func TestSendHttpHeaderAndBodyDeliversResponse(t *testing.T) {
	host, port, closeFn := startReplyServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")
	defer closeFn()

	w, err := webclient.New(webclient.Config{MaxConnections: 4}, nil)
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	defer w.Stop()

	var mu sync.Mutex
	done := false

	w.SendHttpHeaderAndBody(host, port, []byte("POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 4\r\n\r\n"), []byte("body"),
		func(event dataobject.Event, header *httpmsg.Header, user interface{}) {
			mu.Lock()
			defer mu.Unlock()
			done = true
		}, nil)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	}, 3*time.Second, 5*time.Millisecond)
}

func TestDeleteRequestFiresRequestDeletedForUnreachableDestination(t *testing.T) {
	w, err := webclient.New(webclient.Config{MaxConnections: 4}, nil)
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	defer w.Stop()

	var mu sync.Mutex
	var gotEvent dataobject.Event
	fired := false

	w.SendHttpPacket("127.0.0.1", 1, httpmsg.NewRequest("GET", "/", "HTTP/1.1"),
		func(event dataobject.Event, header *httpmsg.Header, user interface{}) {
			mu.Lock()
			defer mu.Unlock()
			gotEvent = event
			fired = true
		}, nil)

	// Give the staged send a moment to reach the dataobject pool before
	// cancelling it.
	time.Sleep(20 * time.Millisecond)
	w.DeleteRequest("127.0.0.1", 1)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired
	}, 3*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, dataobject.EventRequestDeleted, gotEvent)
}

func TestStopTearsDownOutstandingRequests(t *testing.T) {
	w, err := webclient.New(webclient.Config{MaxConnections: 4}, nil)
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	var mu sync.Mutex
	fired := false
	w.SendHttpPacket("127.0.0.1", 1, httpmsg.NewRequest("GET", "/", "HTTP/1.1"),
		func(event dataobject.Event, header *httpmsg.Header, user interface{}) {
			mu.Lock()
			defer mu.Unlock()
			fired = true
		}, nil)

	time.Sleep(20 * time.Millisecond)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, fired)
}
