//go:build !unix

package launcher

import "os/exec"

func detach(c *exec.Cmd) {}
