package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is one shell-free command line and the directory to run it in.
type Command struct {
	Line string
	Dir  string
}

func (c Command) argv() ([]string, error) {
	argv := strings.Fields(c.Line)
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	return argv, nil
}

func (c Command) String() string {
	if c.Dir == "" {
		return c.Line
	}
	return fmt.Sprintf("%s (in %s)", c.Line, c.Dir)
}

// CommandRunner starts processes for the launcher.
type CommandRunner interface {
	// Start launches cmd detached from the launcher and returns without
	// waiting for it.
	Start(ctx context.Context, cmd Command) error
	// Run executes cmd in the foreground and waits for it.
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec. Foreground commands share the
// given streams.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Start(ctx context.Context, cmd Command) error {
	argv, err := cmd.argv()
	if err != nil {
		return err
	}

	// Not tied to ctx: the process must outlive the launcher.
	c := exec.Command(argv[0], argv[1:]...)
	c.Dir = cmd.Dir
	detach(c)

	if err := c.Start(); err != nil {
		return fmt.Errorf("start %s: %w", cmd, err)
	}

	return c.Process.Release()
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	argv, err := cmd.argv()
	if err != nil {
		return err
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = cmd.Dir
	c.Stdin = r.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("run %s: %w", cmd, err)
	}

	return nil
}
