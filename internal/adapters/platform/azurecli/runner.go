package azurecli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/avdops/azmon-reconciler/internal/core/ports"
)

const azBinary = "az"

// Runner executes one az CLI invocation and returns its stdout. The
// process exit code is the sole success signal; stderr travels inside
// the returned CommandError.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// CommandError carries the failed invocation's exit code and stderr so
// classification can inspect the CLI's error text.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("az %s: exit code %d", strings.Join(e.Args, " "), e.ExitCode)
	}
	return fmt.Sprintf("az %s: exit code %d: %s", strings.Join(e.Args, " "), e.ExitCode, stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}

type cliRunner struct {
	binary string
	logger ports.Logger
}

func NewRunner(logger ports.Logger) Runner {
	return &cliRunner{binary: azBinary, logger: logger}
}

func (r *cliRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	if err := waitLimiter(ctx, r.logger); err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debugf(ctx, "Invoking az %s", strings.Join(redactArgs(args), " "))

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, &CommandError{
			Args:     args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Cause:    err,
		}
	}

	return stdout.Bytes(), nil
}

// redactArgs keeps KQL bodies and receiver addresses out of debug logs.
func redactArgs(args []string) []string {
	redacted := make([]string, len(args))
	copy(redacted, args)
	for i := 0; i < len(redacted)-1; i++ {
		switch redacted[i] {
		case "--condition-query", "--action", "--logs":
			redacted[i+1] = "<omitted>"
		}
	}
	return redacted
}
