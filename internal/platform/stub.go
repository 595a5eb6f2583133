//go:build !windows

package platform

import "github.com/e-grid/e-grid/internal/errors"

// New returns the platform's real WindowSystem. Window management is a
// Windows-only capability (spec.md Non-goals: cross-platform window
// control); non-Windows builds still compile, for development and for the
// parts of the repo that don't touch the OS, but cannot construct a real
// WindowSystem.
func New() (WindowSystem, error) {
	return nil, errors.New(errors.CodeInternal, "platform: window management is only supported on windows")
}
