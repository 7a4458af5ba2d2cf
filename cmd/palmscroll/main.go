package main

import (
	"runtime"

	"github.com/ayusman/palmscroll/cmd/palmscroll/cmd"
)

// The preview window and the tray both need the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	cmd.Execute()
}
