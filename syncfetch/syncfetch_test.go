package syncfetch_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liberr "github.com/ned0000/webchain/errors"
	"github.com/ned0000/webchain/syncfetch"
)

func startOnceServer(t *testing.T, response string) (string, int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		c, aerr := ln.Accept()
		if aerr != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4096)
		_, _ = c.Read(buf)
		_, _ = c.Write([]byte(response))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, func() { _ = ln.Close() }
}

func TestFetchReturnsParsedResponse(t *testing.T) {
	host, port, closeFn := startOnceServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	defer closeFn()

	h, err := syncfetch.Fetch(syncfetch.Params{
		ServerIP:   host,
		Port:       port,
		TimeoutMs:  2000,
		SendBuffer: []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"),
	})
	require.Nil(t, err)
	assert.Equal(t, 200, h.StatusCode)
	assert.Equal(t, "hello", string(h.Body))
}

func TestFetchFailsToConnectOnRefusedPort(t *testing.T) {
	_, err := syncfetch.Fetch(syncfetch.Params{
		ServerIP:   "127.0.0.1",
		Port:       1,
		TimeoutMs:  500,
		SendBuffer: []byte("x"),
	})
	require.NotNil(t, err)
	assert.True(t, liberr.Is(err, liberr.FailConnect))
}

func TestFetchTimesOutWhenNoResponseArrives(t *testing.T) {
	ln, lerr := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, lerr)
	defer ln.Close()

	go func() {
		c, aerr := ln.Accept()
		if aerr != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4096)
		_, _ = c.Read(buf)
		// Never reply: the client's read deadline must fire.
		select {}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	_, err := syncfetch.Fetch(syncfetch.Params{
		ServerIP:   "127.0.0.1",
		Port:       addr.Port,
		TimeoutMs:  200,
		SendBuffer: []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"),
	})
	require.NotNil(t, err)
	assert.True(t, liberr.Is(err, liberr.Timeout))
}

func TestFetchHeaderSplitAcrossReads(t *testing.T) {
	ln, lerr := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, lerr)
	defer ln.Close()

	response := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	go func() {
		c, aerr := ln.Accept()
		if aerr != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4096)
		_, _ = c.Read(buf)
		for i := 0; i < len(response); i++ {
			_, _ = c.Write([]byte{response[i]})
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	h, err := syncfetch.Fetch(syncfetch.Params{
		ServerIP:   "127.0.0.1",
		Port:       addr.Port,
		TimeoutMs:  2000,
		SendBuffer: []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"),
	})
	require.Nil(t, err)
	assert.Equal(t, 200, h.StatusCode)
	assert.Equal(t, "hello", string(h.Body))
}

func TestFetchChunkedResponse(t *testing.T) {
	host, port, closeFn := startOnceServer(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n")
	defer closeFn()

	h, err := syncfetch.Fetch(syncfetch.Params{
		ServerIP:   host,
		Port:       port,
		TimeoutMs:  2000,
		SendBuffer: []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"),
	})
	require.Nil(t, err)
	assert.Equal(t, "hello", string(h.Body))
}
