package busapi_test

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/inputmux/inputmuxd/internal/busapi"
	"github.com/inputmux/inputmuxd/internal/busapi/apierror"
	"github.com/inputmux/inputmuxd/pkg/manager"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestBus constructs a Server over an empty Manager (no device
// configs available in the test environment) and returns its address.
func startTestBus(t *testing.T) string {
	mgr, err := manager.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	srv := busapi.New(mgr, "127.0.0.1:0", busapi.ServerConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)
	return srv.Addr()
}

// sendCommand dials addr, writes a null-terminated command, and returns the
// single-line response with its trailing newline trimmed.
func sendCommand(t *testing.T, addr, cmd string) string {
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	_, err = conn.Write(append([]byte(cmd), '\x00'))
	require.NoError(t, err)

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	s := string(resp)
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return s
}

func TestManagerRouteListsNoComposites(t *testing.T) {
	addr := startTestBus(t)
	resp := sendCommand(t, addr, "manager")

	var composites []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp), &composites))
	assert.Empty(t, composites)
}

func TestManagerInterceptRouteGetAndSet(t *testing.T) {
	addr := startTestBus(t)

	resp := sendCommand(t, addr, "manager/intercept")
	assert.JSONEq(t, `{"mode":"none"}`, resp)

	resp = sendCommand(t, addr, `manager/intercept {"mode":"all"}`)
	assert.JSONEq(t, `{"status":"ok"}`, resp)

	resp = sendCommand(t, addr, "manager/intercept")
	assert.JSONEq(t, `{"mode":"all"}`, resp)
}

func TestManagerInterceptRouteRejectsUnknownMode(t *testing.T) {
	addr := startTestBus(t)
	resp := sendCommand(t, addr, `manager/intercept {"mode":"bogus"}`)

	var apiErr apierror.ApiError
	require.NoError(t, json.Unmarshal([]byte(resp), &apiErr))
	assert.Equal(t, 400, apiErr.Status)
}

func TestCompositeRouteNotFound(t *testing.T) {
	addr := startTestBus(t)
	resp := sendCommand(t, addr, "composite/nonexistent")

	var apiErr apierror.ApiError
	require.NoError(t, json.Unmarshal([]byte(resp), &apiErr))
	assert.Equal(t, 404, apiErr.Status)
}

func TestSourceRouteReportsUnowned(t *testing.T) {
	addr := startTestBus(t)
	resp := sendCommand(t, addr, "source/event7")

	var view struct {
		Node  string `json:"node"`
		Owned bool   `json:"owned"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp), &view))
	assert.False(t, view.Owned)
}

func TestUnknownRouteReturns404(t *testing.T) {
	addr := startTestBus(t)
	resp := sendCommand(t, addr, "nonsense/route")

	var apiErr apierror.ApiError
	require.NoError(t, json.Unmarshal([]byte(resp), &apiErr))
	assert.Equal(t, 404, apiErr.Status)
}

func TestEmptyCommandReturns400(t *testing.T) {
	addr := startTestBus(t)
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	_, err = conn.Write([]byte{'\x00'})
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	require.NoError(t, err)

	var apiErr apierror.ApiError
	require.NoError(t, json.Unmarshal([]byte(line), &apiErr))
	assert.Equal(t, 400, apiErr.Status)
}
