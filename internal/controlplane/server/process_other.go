//go:build !unix

package server

import (
	"os"
	"os/exec"
	"time"
)

func setProcessGroup(cmd *exec.Cmd) {}

func ownsGroup(pid int) bool {
	return processAlive(pid)
}

func exitStatus(ee *exec.ExitError) int {
	return ee.ExitCode()
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}

func stopProcessGroup(pid int, timeout time.Duration) (bool, error) {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}
	return true, p.Kill()
}
