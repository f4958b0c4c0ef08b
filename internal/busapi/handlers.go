package busapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"github.com/inputmux/inputmuxd/internal/busapi/apierror"
	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/intercept"
	"github.com/inputmux/inputmuxd/pkg/manager"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

// registerHandlers binds every control bus route to mgr. The route table
// mirrors the object-path vocabulary spec §6 maps onto the line protocol in
// place of D-Bus introspection:
//
//	manager
//	manager/intercept
//	composite/{id}
//	composite/{id}/profile
//	composite/{id}/intercept
//	source/{id}
//	target/{id}
//	target/{id}/events
func registerHandlers(r *Router, mgr *manager.Manager) {
	r.Register("manager", handleManager(mgr))
	r.Register("manager/intercept", handleManagerIntercept(mgr))
	r.Register("composite/{id}", handleComposite(mgr))
	r.Register("composite/{id}/profile", handleCompositeProfile(mgr))
	r.Register("composite/{id}/intercept", handleCompositeIntercept(mgr))
	r.Register("source/{id}", handleSource(mgr))
	r.Register("target/{id}", handleTarget(mgr))
	r.RegisterStream("target/{id}/events", handleTargetEvents(mgr))
}

// managerAction is the payload discriminator for the "manager" route's
// write operations, the control bus's stand-in for CreateCompositeDevice and
// Manager.Unmanage since the line protocol has no separate verbs for
// create/delete on one object path.
type managerAction struct {
	Action string `json:"action,omitempty"` // "create" or "unmanage"; empty lists composites
	Path   string `json:"path,omitempty"`   // for "create"
	Name   string `json:"name,omitempty"`   // for "unmanage"
}

// handleManager lists every configured composite device (the manager's
// top-level state), or performs a create/unmanage action when the payload
// requests one.
func handleManager(mgr *manager.Manager) HandlerFunc {
	return func(req *Request, res *Response, logger *slog.Logger) error {
		if req.Payload == "" {
			b, err := json.Marshal(mgr.ListComposites())
			if err != nil {
				return apierror.WrapError(err)
			}
			res.JSON = string(b)
			return nil
		}
		var action managerAction
		if err := json.Unmarshal([]byte(req.Payload), &action); err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid payload: %v", err))
		}
		switch action.Action {
		case "create":
			if action.Path == "" {
				return apierror.ErrBadRequest("missing path")
			}
			name, err := mgr.CreateFromPath(action.Path)
			if err != nil {
				return apierror.ErrBadRequest(err.Error())
			}
			res.JSON = fmt.Sprintf(`{"name":%q}`, name)
			return nil
		case "unmanage":
			if action.Name == "" {
				return apierror.ErrBadRequest("missing name")
			}
			if err := mgr.Unmanage(action.Name); err != nil {
				return apierror.ErrNotFound(err.Error())
			}
			res.JSON = `{"status":"ok"}`
			return nil
		default:
			return apierror.ErrBadRequest(fmt.Sprintf("unknown action %q", action.Action))
		}
	}
}

type interceptModeRequest struct {
	Mode string `json:"mode,omitempty"`
}

type interceptModeView struct {
	Mode string `json:"mode"`
}

func modeName(m intercept.Mode) string {
	switch m {
	case intercept.ModePass:
		return "pass"
	case intercept.ModeAll:
		return "all"
	case intercept.ModeGamepadOnly:
		return "gamepad_only"
	default:
		return "none"
	}
}

func parseMode(s string) (intercept.Mode, bool) {
	switch s {
	case "none":
		return intercept.ModeNone, true
	case "pass":
		return intercept.ModePass, true
	case "all":
		return intercept.ModeAll, true
	case "gamepad_only":
		return intercept.ModeGamepadOnly, true
	default:
		return intercept.ModeNone, false
	}
}

// handleManagerIntercept gets or sets the global intercept mode. Setting it
// applies the mode to every running composite device, replacing any
// per-composite mode set before.
func handleManagerIntercept(mgr *manager.Manager) HandlerFunc {
	return func(req *Request, res *Response, logger *slog.Logger) error {
		if req.Payload == "" {
			b, err := json.Marshal(interceptModeView{Mode: modeName(mgr.InterceptMode())})
			if err != nil {
				return apierror.WrapError(err)
			}
			res.JSON = string(b)
			return nil
		}
		var body interceptModeRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid payload: %v", err))
		}
		mode, ok := parseMode(body.Mode)
		if !ok {
			return apierror.ErrBadRequest(fmt.Sprintf("unknown intercept mode %q", body.Mode))
		}
		mgr.SetInterceptMode(mode)
		res.JSON = `{"status":"ok"}`
		return nil
	}
}

// compositeView is the control bus's CompositeDevice DTO: name, whether it is
// currently running, the union of its target devices' capabilities, and the
// names of the target devices themselves.
type compositeView struct {
	Name          string   `json:"name"`
	Running       bool     `json:"running"`
	Capabilities  []string `json:"capabilities"`
	TargetDevices []string `json:"target_devices"`
}

func handleComposite(mgr *manager.Manager) HandlerFunc {
	return func(req *Request, res *Response, logger *slog.Logger) error {
		name := req.Params["id"]
		caps, err := mgr.CompositeCapabilities(name)
		if err != nil {
			return apierror.ErrNotFound(err.Error())
		}
		targets, err := mgr.TargetNames(name)
		if err != nil {
			return apierror.ErrNotFound(err.Error())
		}
		running := false
		for _, c := range mgr.ListComposites() {
			if c.Name == name {
				running = c.Running
			}
		}
		b, err := json.Marshal(compositeView{Name: name, Running: running, Capabilities: caps, TargetDevices: targets})
		if err != nil {
			return apierror.WrapError(err)
		}
		res.JSON = string(b)
		return nil
	}
}

type profileView struct {
	Profile       string `json:"profile"`
	CapabilityMap string `json:"capability_map"`
}

// handleCompositeProfile reports a composite's configured profile and
// capability map names. Changing a running composite's profile happens by
// reconfiguring its device entry (manager action "create" with the same
// name) rather than a narrower in-place swap, matching how the manager
// already rebuilds a composite's target set on every (re)attach.
func handleCompositeProfile(mgr *manager.Manager) HandlerFunc {
	return func(req *Request, res *Response, logger *slog.Logger) error {
		name := req.Params["id"]
		profile, capMap, err := mgr.CompositeProfile(name)
		if err != nil {
			return apierror.ErrNotFound(err.Error())
		}
		b, err := json.Marshal(profileView{Profile: profile, CapabilityMap: capMap})
		if err != nil {
			return apierror.WrapError(err)
		}
		res.JSON = string(b)
		return nil
	}
}

// handleCompositeIntercept sets one composite device's intercept mode
// override, independent of the manager-wide default. It only sets: a
// request without a payload is rejected as a bad request, and the current
// per-composite mode cannot be read back through this route.
func handleCompositeIntercept(mgr *manager.Manager) HandlerFunc {
	return func(req *Request, res *Response, logger *slog.Logger) error {
		name := req.Params["id"]
		if req.Payload == "" {
			return apierror.ErrBadRequest("missing mode payload")
		}
		var body interceptModeRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid payload: %v", err))
		}
		mode, ok := parseMode(body.Mode)
		if !ok {
			return apierror.ErrBadRequest(fmt.Sprintf("unknown intercept mode %q", body.Mode))
		}
		if err := mgr.SetCompositeInterceptMode(name, mode); err != nil {
			return apierror.ErrNotFound(err.Error())
		}
		res.JSON = `{"status":"ok"}`
		return nil
	}
}

type sourceView struct {
	Node      string `json:"node"`
	Composite string `json:"composite"`
	Owned     bool   `json:"owned"`
}

// handleSource reports which composite device, if any, currently owns a
// physical device node. {id} is the device node's basename (e.g. "event7",
// "hidraw2"); the handler checks the id as given, then under /dev/input/,
// then under /dev/, since sources register their full device path as their
// descriptor ID. Nodes under /sys/bus/iio/devices are not tried.
func handleSource(mgr *manager.Manager) HandlerFunc {
	return func(req *Request, res *Response, logger *slog.Logger) error {
		id := req.Params["id"]
		candidates := []string{id, "/dev/input/" + id, "/dev/" + id}
		for _, node := range candidates {
			if name, ok := mgr.SourceOwner(node); ok {
				b, _ := json.Marshal(sourceView{Node: node, Composite: name, Owned: true})
				res.JSON = string(b)
				return nil
			}
		}
		b, _ := json.Marshal(sourceView{Node: id, Owned: false})
		res.JSON = string(b)
		return nil
	}
}

// injectRequest addresses one target device within a composite and carries
// a synthetic capability event for it to Accept, the control bus's
// Target.Keyboard.SendKey-equivalent injection primitive: any target
// capability can be driven this way, not just keyboard keys.
type injectRequest struct {
	Target     string  `json:"target"`
	Capability string  `json:"capability"`
	Kind       string  `json:"kind"` // "button", "axis", "trigger", "touch", "motion"
	Pressed    bool    `json:"pressed,omitempty"`
	Value      float64 `json:"value,omitempty"`
}

func parseEventKind(s string) (nativeevent.Kind, bool) {
	switch s {
	case "button", "":
		return nativeevent.KindButton, true
	case "axis":
		return nativeevent.KindAxis, true
	case "trigger":
		return nativeevent.KindTrigger, true
	case "touch":
		return nativeevent.KindTouch, true
	case "motion":
		return nativeevent.KindMotion, true
	default:
		return 0, false
	}
}

// handleTarget reports the target device names configured for a composite
// when called with no payload, or injects a synthetic capability event into
// one named target when the payload requests it. {id} names the composite,
// matching target/{id}/events: a control bus client addresses a composite's
// whole target set, not one target instance, by its composite id.
func handleTarget(mgr *manager.Manager) HandlerFunc {
	return func(req *Request, res *Response, logger *slog.Logger) error {
		name := req.Params["id"]
		if req.Payload == "" {
			targets, err := mgr.TargetNames(name)
			if err != nil {
				return apierror.ErrNotFound(err.Error())
			}
			b, err := json.Marshal(targets)
			if err != nil {
				return apierror.WrapError(err)
			}
			res.JSON = string(b)
			return nil
		}

		var body injectRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid payload: %v", err))
		}
		if body.Target == "" || body.Capability == "" {
			return apierror.ErrBadRequest("missing target or capability")
		}
		kind, ok := parseEventKind(body.Kind)
		if !ok {
			return apierror.ErrBadRequest(fmt.Sprintf("unknown event kind %q", body.Kind))
		}
		t, err := mgr.Target(name, body.Target)
		if err != nil {
			return apierror.ErrNotFound(err.Error())
		}
		t.Accept(nativeevent.CapabilityEvent{
			Capability: capability.Capability(body.Capability),
			Kind:       kind,
			Pressed:    body.Pressed,
			Value:      body.Value,
		})
		res.JSON = `{"status":"ok"}`
		return nil
	}
}

// eventWire is the JSON shape one streamed capability event takes on the
// target/{id}/events route: one line of JSON per event, newline-terminated.
type eventWire struct {
	Capability     string  `json:"capability"`
	Kind           int     `json:"kind"`
	Pressed        bool    `json:"pressed,omitempty"`
	Value          float64 `json:"value,omitempty"`
	TouchX         float64 `json:"touch_x,omitempty"`
	TouchY         float64 `json:"touch_y,omitempty"`
	TouchActive    bool    `json:"touch_active,omitempty"`
	TouchSlot      int     `json:"touch_slot,omitempty"`
	MotionX        float64 `json:"motion_x,omitempty"`
	MotionY        float64 `json:"motion_y,omitempty"`
	MotionZ        float64 `json:"motion_z,omitempty"`
	TimestampNanos int64   `json:"timestamp_nanos"`
}

// handleTargetEvents streams a bus target's capability events to a client as
// newline-delimited JSON until the client disconnects, the composite's bus
// target closes, or a write fails. {id} names the composite device, not an
// individual target instance: a composite has at most one bus target.
func handleTargetEvents(mgr *manager.Manager) StreamHandlerFunc {
	return func(conn net.Conn, params map[string]string, logger *slog.Logger) error {
		name := params["id"]
		bus, err := mgr.BusTarget(name)
		if err != nil {
			return err
		}

		subID, events := bus.Subscribe()
		defer bus.Unsubscribe(subID)

		enc := json.NewEncoder(conn)
		for ev := range events {
			wire := eventWire{
				Capability:     string(ev.Capability),
				Kind:           int(ev.Kind),
				Pressed:        ev.Pressed,
				Value:          ev.Value,
				TouchX:         ev.TouchX,
				TouchY:         ev.TouchY,
				TouchActive:    ev.TouchActive,
				TouchSlot:      ev.TouchSlot,
				MotionX:        ev.MotionX,
				MotionY:        ev.MotionY,
				MotionZ:        ev.MotionZ,
				TimestampNanos: ev.TimestampNanos,
			}
			if err := enc.Encode(wire); err != nil {
				return err
			}
		}
		return nil
	}
}
