// Package main is the entry point for the e_grid tracker.
package main

import (
	"runtime"

	"github.com/e-grid/e-grid/internal/cli"
)

func main() {
	// The Windows message pump (internal/platform.Client.Run) is OS-thread
	// affine; lock main to its starting thread before any goroutine can
	// migrate it, mirroring the teacher's same call in cmd/neru/main.go.
	runtime.LockOSThread()

	cli.TrayLaunchFunc = runWithTray

	cli.Execute()
}
