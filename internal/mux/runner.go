package mux

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// Runner executes one subprocess. Tests substitute a fake.
type Runner interface {
	// Run starts name with args. A non-empty stdin is fed to the process.
	Run(ctx context.Context, stdin, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec. The context bounds the process
// lifetime; on expiry the process is killed.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, stdin, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
