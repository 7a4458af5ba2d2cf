// Package plugin discovers and runs external scroll dispatchers.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// For every fired action the executable is started once, receives a Request
// as JSON on stdin and answers with a Response on stdout.
package plugin

// ActionScroll is the only action the frame loop sends.
const ActionScroll = "scroll"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin.
type Request struct {
	Action string `json:"action"`
	// Amount is the signed scroll amount in WheelDelta units; positive
	// scrolls up.
	Amount int `json:"amount"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
