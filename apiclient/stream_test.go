package apiclient_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	apiclient "github.com/inputmux/inputmuxd/apiclient"
	apitypes "github.com/inputmux/inputmuxd/apitypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEvents_NotSupportedWithMockTransport(t *testing.T) {
	c := testClient(map[string]string{}, nil)
	_, err := c.StreamEvents(context.Background(), "gamepad1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not supported with mock transport")
}

// startEventsServer mimics internal/busapi.Server's target/{id}/events route:
// it reads the framed request up to the \x00 terminator, then writes
// newline-delimited JSON events until the connection closes.
func startEventsServer(t *testing.T, events []apitypes.EventWire) (addr string, closeFn func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var buf []byte
		var tmp [1]byte
		for {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, rerr := conn.Read(tmp[:])
			if rerr != nil {
				return
			}
			if tmp[0] == '\x00' {
				break
			}
			buf = append(buf, tmp[0])
		}

		enc := json.NewEncoder(conn)
		for _, ev := range events {
			if err := enc.Encode(ev); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String(), func() { _ = ln.Close() }
}

func TestStreamEvents(t *testing.T) {
	want := []apitypes.EventWire{
		{Capability: "button.south", Kind: 0, Pressed: true, TimestampNanos: 1},
		{Capability: "axis.left_stick_x", Kind: 1, Value: 0.5, TimestampNanos: 2},
	}
	addr, closeFn := startEventsServer(t, want)
	defer closeFn()

	c := apiclient.New(addr)
	stream, err := c.StreamEvents(context.Background(), "gamepad1")
	require.NoError(t, err)
	defer stream.Close()

	for _, expected := range want {
		got, err := stream.Next()
		require.NoError(t, err)
		assert.Equal(t, expected, *got)
	}

	_, err = stream.Next()
	assert.Error(t, err) // server closed the connection after the last event
}
