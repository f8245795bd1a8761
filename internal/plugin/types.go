// Package plugin runs external hook programs on kiosk events, such as a
// lighting controller reacting to bursts or a printer for session results.
package plugin

import (
	"encoding/json"

	"github.com/ayusman/howlong/internal/engagement"
)

// Events a plugin can subscribe to.
const (
	EventGesture         = "gesture"
	EventBurstStarted    = "burst_started"
	EventBurstCompleted  = "burst_completed"
	EventSessionFinished = "session_finished"
)

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Event   string              `json:"event"`
	Gesture string              `json:"gesture,omitempty"`
	Level   int                 `json:"level"`
	Reason  string              `json:"reason,omitempty"`
	Summary *engagement.Summary `json:"summary,omitempty"`
	Config  json.RawMessage     `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
