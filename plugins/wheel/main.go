// Package main provides a scroll plugin that drives the mouse wheel through
// a command-line helper instead of linking against the OS input APIs.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/ayusman/palmscroll/internal/plugin"
)

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	if req.Action != plugin.ActionScroll {
		writeResponse(fmt.Errorf("unknown action: %s", req.Action))
		return
	}

	writeResponse(scroll(req.Amount))
}

// clicks is the number of wheel button clicks for amount.
func clicks(amount int) int {
	n := plugin.Notches(amount)
	if n < 0 {
		return -n
	}
	return n
}

func scroll(amount int) error {
	if amount == 0 {
		return errors.New("amount must not be zero")
	}

	n := clicks(amount)

	switch runtime.GOOS {
	case "linux":
		// Buttons 4 and 5 are wheel up and wheel down under X11.
		button := "4"
		if amount < 0 {
			button = "5"
		}
		return run("xdotool", "click", "--repeat", strconv.Itoa(n), button)
	case "darwin":
		dy := n
		if amount < 0 {
			dy = -n
		}
		return run("cliclick", "w:"+strconv.Itoa(dy))
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, string(output))
	}
	return nil
}

// writeResponse reports err, or success when err is nil, on stdout.
func writeResponse(err error) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
