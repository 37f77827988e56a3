//go:build unix

package launcher

import (
	"os/exec"
	"syscall"
)

// detach puts the process in its own group so terminal signals aimed at the
// launcher do not reach it.
func detach(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
