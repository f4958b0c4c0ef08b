// Package apitypes holds the wire DTOs shared between internal/busapi
// (the control bus server) and apiclient (its Go client), adapted from the
// teacher's USB-IP bus/device DTOs to the manager/composite/target domain.
package apitypes

import "fmt"

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

// CompositeStatus mirrors pkg/manager.CompositeStatus, the "manager" route's
// list-composites response element.
type CompositeStatus struct {
	Name    string `json:"Name"`
	Running bool   `json:"Running"`
	Sources int    `json:"Sources"`
}

// ManagerCreateResponse is returned by the "manager" route's create action.
type ManagerCreateResponse struct {
	Name string `json:"name"`
}

// StatusResponse is the generic {"status":"ok"} acknowledgement every
// mutating route returns on success.
type StatusResponse struct {
	Status string `json:"status"`
}

// InterceptModeView is the "manager/intercept" and "composite/{id}/intercept"
// routes' get/set body.
type InterceptModeView struct {
	Mode string `json:"mode"`
}

// CompositeView is the "composite/{id}" route's response.
type CompositeView struct {
	Name          string   `json:"name"`
	Running       bool     `json:"running"`
	Capabilities  []string `json:"capabilities"`
	TargetDevices []string `json:"target_devices"`
}

// ProfileView is the "composite/{id}/profile" route's response.
type ProfileView struct {
	Profile       string `json:"profile"`
	CapabilityMap string `json:"capability_map"`
}

// SourceView is the "source/{id}" route's response.
type SourceView struct {
	Node      string `json:"node"`
	Composite string `json:"composite,omitempty"`
	Owned     bool   `json:"owned"`
}

// InjectRequest addresses one target device within a composite and carries
// a synthetic capability event for it to accept — the control bus's
// Target.Keyboard.SendKey-equivalent injection primitive.
type InjectRequest struct {
	Target     string  `json:"target"`
	Capability string  `json:"capability"`
	Kind       string  `json:"kind,omitempty"` // "button" (default), "axis", "trigger", "touch", "motion"
	Pressed    bool    `json:"pressed,omitempty"`
	Value      float64 `json:"value,omitempty"`
}

// EventWire is one streamed capability event on the "target/{id}/events"
// route: one line of JSON per event.
type EventWire struct {
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
