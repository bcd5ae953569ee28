// Package hook runs user-configured commands when the session reports status
// changes, for example to mute a chat client once the subject is gone.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/ayusman/byechat/internal/app"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single hook run.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a hook outlives its timeout.
var ErrTimeout = errors.New("hook timed out")

// Hook is one command bound to a status kind.
type Hook struct {
	Event   app.StatusKind
	Command string
	Args    []string
	Timeout time.Duration
}

// Executor runs hooks with the triggering status as JSON on stdin.
type Executor struct{}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute runs h for st and returns its trimmed stdout.
func (e *Executor) Execute(ctx context.Context, h Hook, st app.Status) (string, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(st)
	if err != nil {
		return "", errors.Wrap(err, "marshal status")
	}

	cmd := exec.CommandContext(ctx, h.Command, h.Args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return "", errors.Wrapf(ErrTimeout, "%s after %v", h.Command, timeout)
	}

	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", errors.Wrapf(err, "run %s: %s", h.Command, msg)
		}
		return "", errors.Wrapf(err, "run %s", h.Command)
	}

	return strings.TrimSpace(stdout.String()), nil
}
