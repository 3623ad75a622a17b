// Package plugin discovers and runs alert plugins: small executables that
// receive a JSON request on stdin and answer with a JSON response.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Events       []string        `json:"events"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is the alert sent to a plugin.
type Request struct {
	Event   string          `json:"event"`
	Score   int             `json:"score"`
	Status  string          `json:"status"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Config  json.RawMessage `json:"config,omitempty"`
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

// Handles reports whether the plugin subscribes to event. A manifest with no
// events handles all of them.
func (p *Plugin) Handles(event string) bool {
	if len(p.Manifest.Events) == 0 {
		return true
	}
	for _, e := range p.Manifest.Events {
		if e == event {
			return true
		}
	}
	return false
}
