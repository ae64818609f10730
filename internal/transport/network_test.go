package transport

import (
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startPrinterStub listens on a loopback port and collects everything
// written to it.
func startPrinterStub(t *testing.T) (host string, port int, received <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan []byte, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				data, _ := io.ReadAll(c)
				ch <- data
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, ch
}

func TestNetworkPrintDeliversBytes(t *testing.T) {
	host, port, received := startPrinterStub(t)
	a := NewNetworkAdapter(NetworkConfig{Host: host, Port: port}, nil)

	payload := sampleReceipt()
	err := a.Print(context.Background(), payload, PrintContext{})
	require.NoError(t, err)
	assert.True(t, a.Status().Connected)
	require.NoError(t, a.Disconnect())

	select {
	case got := <-received:
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("printer stub never received the payload")
	}
}

func TestNetworkAvailable(t *testing.T) {
	host, port, _ := startPrinterStub(t)
	a := NewNetworkAdapter(NetworkConfig{Host: host, Port: port}, nil)
	assert.True(t, a.Available(context.Background()))
}

func TestNetworkUnavailableWithoutHost(t *testing.T) {
	a := NewNetworkAdapter(NetworkConfig{}, nil)
	assert.False(t, a.Available(context.Background()))

	err := a.Connect(context.Background())
	assert.ErrorIs(t, err, ErrAdapterUnavailable)
}

func TestNetworkUnavailableOnClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	a := NewNetworkAdapter(NetworkConfig{
		Host:        "127.0.0.1",
		Port:        port,
		DialTimeout: 500 * time.Millisecond,
	}, nil)
	assert.False(t, a.Available(context.Background()))

	err = a.Print(context.Background(), []byte("x"), PrintContext{})
	assert.ErrorIs(t, err, ErrSend)
}

func TestNetworkStatusDetail(t *testing.T) {
	a := NewNetworkAdapter(NetworkConfig{Host: "10.0.0.9"}, nil)
	assert.False(t, a.Status().Connected)
	assert.Equal(t, "10.0.0.9:"+strconv.Itoa(9100), a.addr())
}
