//go:build unix

package server

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// ownsGroup reports whether pid is alive and leads its own process group, as
// every spawned run does. A reused pid after a restart usually does not.
func ownsGroup(pid int) bool {
	if pid <= 0 {
		return false
	}
	pgid, err := unix.Getpgid(pid)
	return err == nil && pgid == pid
}

// exitStatus maps a wait error to an exit code, using 128+signo for signalled
// processes the way shells do.
func exitStatus(ee *exec.ExitError) int {
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ee.ExitCode()
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	// signal 0 only checks existence
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func stopProcessGroup(pid int, timeout time.Duration) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			// no group; try the process alone
			if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
				return false, err
			}
		} else {
			return false, err
		}
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return false, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = unix.Kill(-pid, unix.SIGKILL)
	_ = unix.Kill(pid, unix.SIGKILL)
	return true, nil
}
