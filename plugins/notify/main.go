// Package main provides a desktop notification plugin.
// It shows posture alerts with osascript on macOS and notify-send elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event   string          `json:"event"`
	Score   int             `json:"score"`
	Status  string          `json:"status"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	name, args, err := buildCommand(runtime.GOOS, req)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if out, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		writeErrorResponse(fmt.Sprintf("%s failed: %v: %s", name, err, strings.TrimSpace(string(out))))
		return
	}

	writeSuccessResponse()
}

// buildCommand returns the notifier command line for goos.
func buildCommand(goos string, req Request) (string, []string, error) {
	if req.Title == "" && req.Message == "" {
		return "", nil, errors.New("title or message is required")
	}

	switch goos {
	case "darwin":
		script := fmt.Sprintf(`display notification %s with title %s`,
			appleScriptString(req.Message), appleScriptString(req.Title))
		if req.Event == "poor_posture" {
			script += ` sound name "Submarine"`
		}
		return "osascript", []string{"-e", script}, nil
	case "linux", "freebsd", "openbsd":
		urgency := "normal"
		if req.Event == "poor_posture" {
			urgency = "critical"
		}
		return "notify-send", []string{"-u", urgency, "-a", "ShrimpWatch", req.Title, req.Message}, nil
	}
	return "", nil, fmt.Errorf("notifications not supported on %s", goos)
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
