package catmint

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

func tcpPair(t *testing.T) (*TCPTransport, *TCPTransport) {
	t.Helper()
	ln, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server := <-accepted

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return NewTCPTransport(client), NewTCPTransport(server)
}

func TestTCPTransportSendReceive(t *testing.T) {
	client, server := tcpPair(t)

	n, err := client.Send([]byte("record bytes"))
	require.NoError(t, err)
	require.Equal(t, len("record bytes"), n)

	var got []byte
	for len(got) < len("record bytes") {
		chunk, err := server.Receive(64)
		require.NoError(t, err)
		require.NotEmpty(t, chunk)
		got = append(got, chunk...)
	}
	assert.Equal(t, []byte("record bytes"), got)
}

func TestTCPTransportHasDataAvailable(t *testing.T) {
	client, server := tcpPair(t)

	assert.False(t, server.HasDataAvailable(20*time.Millisecond))

	_, err := client.Send([]byte{0x16})
	require.NoError(t, err)
	assert.True(t, server.HasDataAvailable(time.Second))

	// The probed byte is not lost.
	chunk, err := server.Receive(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x16}, chunk)
}

func TestTCPTransportReceiveAfterPeerClose(t *testing.T) {
	client, server := tcpPair(t)
	require.NoError(t, client.Close())

	chunk, err := server.Receive(16)
	require.NoError(t, err)
	assert.Empty(t, chunk)
}

func TestTCPTransportCloseIdempotent(t *testing.T) {
	client, _ := tcpPair(t)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestRecordLayerOverTCP(t *testing.T) {
	client, server := tcpPair(t)

	sender := newTestLayer(t, client, VersionTLS12)
	receiver := newTestLayer(t, server, VersionTLS12)

	require.NoError(t, sender.SendRecord(RecordTypeHandshake, []byte("client hello")))
	rec, err := receiver.ReceiveRecord()
	require.NoError(t, err)
	assert.Equal(t, RecordTypeHandshake, rec.ContentType())
	assert.Equal(t, []byte("client hello"), rec.Fragment())
}
