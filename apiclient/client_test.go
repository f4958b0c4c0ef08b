package apiclient_test

import (
	"context"
	"errors"
	"testing"

	apiclient "github.com/inputmux/inputmuxd/apiclient"
	apitypes "github.com/inputmux/inputmuxd/apitypes"

	"github.com/stretchr/testify/assert"
)

// testClient constructs a client backed by a simple in-memory responder.
// responses maps route templates, before path param substitution (e.g. "composite/{id}"), to raw JSON payloads.
// If err is non-nil, every request returns that error, simulating dial failures.
func testClient(responses map[string]string, err error) *apiclient.Client {
	return apiclient.WithTransport(apiclient.NewMockTransport(func(path string, _ any, _ map[string]string) (string, error) {
		if err != nil {
			return "", err
		}
		if out, ok := responses[path]; ok {
			return out, nil
		}
		return "", nil
	}))
}

func TestHighLevelClient(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(responses map[string]string) (err error)
		call       func(c *apiclient.Client) (any, error)
		wantErr    string
		assertFunc func(t *testing.T, got any)
	}{
		{
			name: "manager create success",
			setup: func(responses map[string]string) error {
				responses["manager"] = `{"name":"gamepad1"}`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) { return c.CreateComposite("/etc/inputmuxd/devices/gamepad1.yaml") },
			assertFunc: func(t *testing.T, got any) {
				resp, ok := got.(*apitypes.ManagerCreateResponse)
				assert.True(t, ok, "expected *apitypes.ManagerCreateResponse type")
				assert.Equal(t, "gamepad1", resp.Name)
			},
		},
		{
			name: "manager create error structured",
			setup: func(responses map[string]string) error {
				responses["manager"] = `{"status":400,"title":"Bad Request","detail":"missing path"}`
				return nil
			},
			call:    func(c *apiclient.Client) (any, error) { return c.CreateComposite("") },
			wantErr: "400 Bad Request: missing path",
		},
		{
			name: "composite view",
			setup: func(responses map[string]string) error {
				responses["composite/{id}"] = `{"name":"gamepad1","running":true,"capabilities":["button.south"],"target_devices":["pad"]}`
				return nil
			},
			call:       func(c *apiclient.Client) (any, error) { return c.Composite("gamepad1") },
			assertFunc: func(t *testing.T, got any) { assert.NotNil(t, got) },
		},
		{
			name:    "transport failure",
			setup:   func(responses map[string]string) error { return errors.New("dial fail") },
			call:    func(c *apiclient.Client) (any, error) { return c.ListComposites() },
			wantErr: "dial fail",
		},
		{
			name:    "blank response error",
			setup:   func(responses map[string]string) error { return nil },
			call:    func(c *apiclient.Client) (any, error) { return c.ListComposites() },
			wantErr: "empty response",
		},
		{
			name: "list composites empty",
			setup: func(responses map[string]string) error {
				responses["manager"] = `[]`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) { return c.ListComposites() },
			assertFunc: func(t *testing.T, got any) {
				list := got.([]apitypes.CompositeStatus)
				assert.Len(t, list, 0)
			},
		},
		{
			name: "target names",
			setup: func(responses map[string]string) error {
				responses["target/{id}"] = `["pad","bus"]`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) { return c.TargetNames("gamepad1") },
			assertFunc: func(t *testing.T, got any) {
				names := got.([]string)
				assert.Equal(t, []string{"pad", "bus"}, names)
			},
		},
		{
			name: "inject event",
			setup: func(responses map[string]string) error {
				responses["target/{id}"] = `{"status":"ok"}`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) {
				return c.Inject("gamepad1", apitypes.InjectRequest{Target: "pad", Capability: "button.south", Pressed: true})
			},
			assertFunc: func(t *testing.T, got any) {
				resp := got.(*apitypes.StatusResponse)
				assert.Equal(t, "ok", resp.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := map[string]string{}
			errInject := error(nil)
			if tt.setup != nil {
				if e := tt.setup(responses); e != nil {
					errInject = e
				}
			}
			c := testClient(responses, errInject)
			got, err := tt.call(c)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
			if tt.assertFunc != nil {
				tt.assertFunc(t, got)
			}
		})
	}
}

func TestContextCancellation(t *testing.T) {
	c := apiclient.WithTransport(apiclient.NewTransport("127.0.0.1:9")) // address irrelevant due to early cancel
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListCompositesCtx(ctx)
	assert.Error(t, err)
}
