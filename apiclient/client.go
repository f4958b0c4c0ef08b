package apiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	apitypes "github.com/inputmux/inputmuxd/apitypes"
)

// Client provides a high-level interface to inputmuxd's control bus,
// handling request formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the control bus server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing or when advanced transport configuration is needed.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// ListComposites lists every configured composite device and its running state.
func (c *Client) ListComposites() ([]apitypes.CompositeStatus, error) {
	return c.ListCompositesCtx(context.Background())
}

func (c *Client) ListCompositesCtx(ctx context.Context) ([]apitypes.CompositeStatus, error) {
	const path = "manager"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	out, err := parse[[]apitypes.CompositeStatus](raw)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// CreateComposite registers a single device configuration file outside the
// normal layered directories, the control-bus equivalent of
// CreateCompositeDevice.
func (c *Client) CreateComposite(path string) (*apitypes.ManagerCreateResponse, error) {
	return c.CreateCompositeCtx(context.Background(), path)
}

func (c *Client) CreateCompositeCtx(ctx context.Context, path string) (*apitypes.ManagerCreateResponse, error) {
	const route = "manager"
	req := struct {
		Action string `json:"action"`
		Path   string `json:"path"`
	}{Action: "create", Path: path}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal create request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, route, string(payload), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.ManagerCreateResponse](raw)
}

// Unmanage tears a composite device down and prevents further hot-add
// attachment to it until the manager restarts.
func (c *Client) Unmanage(name string) (*apitypes.StatusResponse, error) {
	return c.UnmanageCtx(context.Background(), name)
}

func (c *Client) UnmanageCtx(ctx context.Context, name string) (*apitypes.StatusResponse, error) {
	const route = "manager"
	req := struct {
		Action string `json:"action"`
		Name   string `json:"name"`
	}{Action: "unmanage", Name: name}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal unmanage request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, route, string(payload), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.StatusResponse](raw)
}

// InterceptMode reports the manager-wide default intercept mode.
func (c *Client) InterceptMode() (*apitypes.InterceptModeView, error) {
	return c.InterceptModeCtx(context.Background())
}

func (c *Client) InterceptModeCtx(ctx context.Context) (*apitypes.InterceptModeView, error) {
	const path = "manager/intercept"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.InterceptModeView](raw)
}

// SetInterceptMode sets the manager-wide default intercept mode ("none",
// "pass", "all", or "gamepad_only").
func (c *Client) SetInterceptMode(mode string) (*apitypes.StatusResponse, error) {
	return c.SetInterceptModeCtx(context.Background(), mode)
}

func (c *Client) SetInterceptModeCtx(ctx context.Context, mode string) (*apitypes.StatusResponse, error) {
	const path = "manager/intercept"
	payload, err := json.Marshal(apitypes.InterceptModeView{Mode: mode})
	if err != nil {
		return nil, fmt.Errorf("marshal intercept mode request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, path, string(payload), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.StatusResponse](raw)
}

// Composite retrieves one composite device's name, running state,
// aggregate capabilities, and target device names.
func (c *Client) Composite(name string) (*apitypes.CompositeView, error) {
	return c.CompositeCtx(context.Background(), name)
}

func (c *Client) CompositeCtx(ctx context.Context, name string) (*apitypes.CompositeView, error) {
	const path = "composite/{id}"
	pathParams := map[string]string{"id": name}
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.CompositeView](raw)
}

// CompositeProfile reports a composite's configured profile and capability
// map names.
func (c *Client) CompositeProfile(name string) (*apitypes.ProfileView, error) {
	return c.CompositeProfileCtx(context.Background(), name)
}

func (c *Client) CompositeProfileCtx(ctx context.Context, name string) (*apitypes.ProfileView, error) {
	const path = "composite/{id}/profile"
	pathParams := map[string]string{"id": name}
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.ProfileView](raw)
}

// CompositeInterceptMode reports one composite device's intercept mode
// override.
func (c *Client) CompositeInterceptMode(name string) (*apitypes.InterceptModeView, error) {
	return c.CompositeInterceptModeCtx(context.Background(), name)
}

func (c *Client) CompositeInterceptModeCtx(ctx context.Context, name string) (*apitypes.InterceptModeView, error) {
	const path = "composite/{id}/intercept"
	pathParams := map[string]string{"id": name}
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.InterceptModeView](raw)
}

// SetCompositeInterceptMode sets one composite device's intercept mode
// override, independent of the manager-wide default.
func (c *Client) SetCompositeInterceptMode(name, mode string) (*apitypes.StatusResponse, error) {
	return c.SetCompositeInterceptModeCtx(context.Background(), name, mode)
}

func (c *Client) SetCompositeInterceptModeCtx(ctx context.Context, name, mode string) (*apitypes.StatusResponse, error) {
	const path = "composite/{id}/intercept"
	pathParams := map[string]string{"id": name}
	payload, err := json.Marshal(apitypes.InterceptModeView{Mode: mode})
	if err != nil {
		return nil, fmt.Errorf("marshal intercept mode request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, path, string(payload), pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.StatusResponse](raw)
}

// Source reports which composite device, if any, currently owns a physical
// device node (e.g. "event7", "hidraw2").
func (c *Client) Source(id string) (*apitypes.SourceView, error) {
	return c.SourceCtx(context.Background(), id)
}

func (c *Client) SourceCtx(ctx context.Context, id string) (*apitypes.SourceView, error) {
	const path = "source/{id}"
	pathParams := map[string]string{"id": id}
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SourceView](raw)
}

// TargetNames reports the target device names configured for a composite.
func (c *Client) TargetNames(composite string) ([]string, error) {
	return c.TargetNamesCtx(context.Background(), composite)
}

func (c *Client) TargetNamesCtx(ctx context.Context, composite string) ([]string, error) {
	const path = "target/{id}"
	pathParams := map[string]string{"id": composite}
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	out, err := parse[[]string](raw)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// Inject drives a synthetic capability event into one named target within a
// composite device — the control bus's Target.Keyboard.SendKey-equivalent
// injection primitive.
func (c *Client) Inject(composite string, req apitypes.InjectRequest) (*apitypes.StatusResponse, error) {
	return c.InjectCtx(context.Background(), composite, req)
}

func (c *Client) InjectCtx(ctx context.Context, composite string, req apitypes.InjectRequest) (*apitypes.StatusResponse, error) {
	const path = "target/{id}"
	pathParams := map[string]string{"id": composite}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal inject request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, path, string(payload), pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.StatusResponse](raw)
}

// EventStream reads newline-delimited capability events from a subscribed
// target/{id}/events connection.
type EventStream struct {
	conn net.Conn
	dec  *json.Decoder
}

// StreamEvents subscribes to a composite device's bus target and returns an
// EventStream that yields its capability events as they occur. The caller
// must Close the stream when done.
func (c *Client) StreamEvents(ctx context.Context, composite string) (*EventStream, error) {
	const path = "target/{id}/events"
	pathParams := map[string]string{"id": composite}
	conn, err := c.transport.OpenStream(ctx, path, pathParams)
	if err != nil {
		return nil, err
	}
	return &EventStream{conn: conn, dec: json.NewDecoder(bufio.NewReader(conn))}, nil
}

// Next blocks until the next event arrives, the stream closes, or an error
// occurs.
func (s *EventStream) Next() (*apitypes.EventWire, error) {
	var ev apitypes.EventWire
	if err := s.dec.Decode(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Close releases the underlying connection.
func (s *EventStream) Close() error { return s.conn.Close() }

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
