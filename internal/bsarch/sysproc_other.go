//go:build !windows

package bsarch

import "os/exec"

func hideConsoleWindow(_ *exec.Cmd) {}
