// Package execx wraps os/exec for the mongodump/mongorestore
// invocations the backup scheduler and restore helper shell out to,
// capturing stdout/stderr the way a CI download step checks cmd.Run()'s result.
package execx

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/pkg/errors"
)

// Runner invokes an external binary. It's an interface so tests can swap in
// a fake that never actually shells out.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// OSRunner runs real subprocesses via os/exec.CommandContext.
type OSRunner struct{}

// Run executes name with args, returning a wrapped error carrying captured
// stdout/stderr when the command exits non-zero.
func (OSRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s failed: stdout=%q stderr=%q", name, stdout.String(), stderr.String())
	}
	return nil
}
