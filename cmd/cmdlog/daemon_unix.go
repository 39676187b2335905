//go:build unix

package main

import (
	"os"
	"os/exec"
	"syscall"
)

// detach re-executes the binary with args in a new session with stdio on
// /dev/null, and returns the child pid.
func detach(args []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer devnull.Close()

	child := exec.Command(exe, args...)
	child.Env = append(os.Environ(), daemonEnv+"=1")
	child.Stdin, child.Stdout, child.Stderr = devnull, devnull, devnull
	child.Dir = "/"
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return 0, err
	}
	pid := child.Process.Pid
	return pid, child.Process.Release()
}
