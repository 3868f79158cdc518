// Package taskwarrior drives the Taskwarrior CLI. Every operation is one process
// invocation with argv passed directly (no shell) and a bounded lifetime.
package taskwarrior

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"taskbridge/internal/logging"
	"taskbridge/internal/model"
	"taskbridge/internal/mutate"
	"taskbridge/internal/record"
)

const DefaultTimeout = 10 * time.Second

// overrides are passed to every invocation so Taskwarrior never prompts.
var overrides = []string{"rc.confirmation=off", "rc.bulk=0"}

type Client struct {
	// Bin is the task executable; "task" when empty.
	Bin string
	// TaskRC and DataDir set TASKRC and TASKDATA for the child process when non-empty.
	TaskRC  string
	DataDir string
	Timeout time.Duration
	Logger  logging.Logger
}

// InvocationError is a failed or timed-out Taskwarrior call.
type InvocationError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvocationError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("task %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// TimedOut reports whether the call was killed because its deadline passed.
func (e *InvocationError) TimedOut() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Export returns every task Taskwarrior knows about, including completed and
// deleted ones, in one call.
func (c *Client) Export(ctx context.Context) ([]record.Raw, error) {
	out, err := c.run(ctx, "rc.json.array=on", "export")
	if err != nil {
		return nil, err
	}
	raws, err := record.DecodeExport([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return raws, nil
}

var createdRe = regexp.MustCompile(`Created task ([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}|\d+)`)

// Add creates a task and returns the identifier Taskwarrior reports for it.
// Only the short description, project, priority and tags are sent.
func (c *Client) Add(ctx context.Context, t model.NewTask) (model.Identifier, error) {
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return model.Identifier{}, mutate.ErrEmptyDescription
	}
	args := []string{"rc.verbose=new-uuid", "add"}
	if p := strings.TrimSpace(t.Project); p != "" {
		args = append(args, "project:"+p)
	}
	if t.Priority != "" {
		args = append(args, "priority:"+string(t.Priority))
	}
	for _, tag := range t.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			args = append(args, "+"+tag)
		}
	}
	args = append(args, "--", desc)

	out, err := c.run(ctx, args...)
	if err != nil {
		return model.Identifier{}, err
	}
	return ParseCreated(out)
}

// ParseCreated extracts the identifier from Taskwarrior's "Created task ..." line.
func ParseCreated(out string) (model.Identifier, error) {
	m := createdRe.FindStringSubmatch(out)
	if m == nil {
		return model.Identifier{}, fmt.Errorf("unexpected add output: %q", strings.TrimSpace(out))
	}
	return model.ParseIdentifier(m[1])
}

// Mutate applies one intent to the task with a single invocation.
func (c *Client) Mutate(ctx context.Context, id model.Identifier, in mutate.Intent) error {
	args, err := MutationArgs(id, in)
	if err != nil {
		return err
	}
	_, err = c.run(ctx, args...)
	return err
}

// MutationArgs maps an intent to Taskwarrior arguments (without the global
// overrides).
func MutationArgs(id model.Identifier, in mutate.Intent) ([]string, error) {
	if id.IsZero() {
		return nil, model.ErrUnaddressable
	}
	sel := id.Arg()
	switch in.Kind {
	case mutate.KindSetAttributes:
		if in.Attributes == nil || in.Attributes.Empty() {
			return nil, errors.New("set_attributes without attributes")
		}
		args := []string{sel, "modify"}
		if d := in.Attributes.Description; d != nil {
			args = append(args, "description:"+*d)
		}
		if p := in.Attributes.Project; p != nil {
			args = append(args, "project:"+*p)
		}
		if p := in.Attributes.Priority; p != nil {
			args = append(args, "priority:"+string(*p))
		}
		return args, nil
	case mutate.KindAddTag:
		return []string{sel, "modify", "+" + in.Tag}, nil
	case mutate.KindRemoveTag:
		return []string{sel, "modify", "-" + in.Tag}, nil
	case mutate.KindComplete:
		if in.ClearWait {
			return []string{sel, "done", "wait:"}, nil
		}
		return []string{sel, "done"}, nil
	case mutate.KindBlock:
		return []string{sel, "modify", "wait:someday"}, nil
	case mutate.KindUnblock:
		return []string{sel, "modify", "wait:"}, nil
	case mutate.KindClearWaiting, mutate.KindReopen:
		return []string{sel, "modify", "status:pending"}, nil
	case mutate.KindAnnotate:
		return []string{sel, "annotate", "--", in.Note}, nil
	case mutate.KindDelete:
		return []string{sel, "delete"}, nil
	default:
		return nil, fmt.Errorf("unsupported intent %q", in.Kind)
	}
}

// Version returns the Taskwarrior version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "_version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bin := c.Bin
	if strings.TrimSpace(bin) == "" {
		bin = "task"
	}
	full := append(append([]string{}, overrides...), args...)
	cmd := exec.CommandContext(ctx, bin, full...)
	cmd.Env = os.Environ()
	if c.TaskRC != "" {
		cmd.Env = append(cmd.Env, "TASKRC="+c.TaskRC)
	}
	if c.DataDir != "" {
		cmd.Env = append(cmd.Env, "TASKDATA="+c.DataDir)
	}
	cmd.WaitDelay = time.Second

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.logger().Debug("task invocation",
		logging.F("args", args),
		logging.F("took", time.Since(start)),
		logging.F("ok", err == nil),
	)
	if err != nil {
		ierr := &InvocationError{Args: args, ExitCode: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ierr.ExitCode = exitErr.ExitCode()
		}
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			ierr.Err = fmt.Errorf("timed out after %s: %w", timeout, ctx.Err())
			ierr.Stderr = ""
		case ctx.Err() != nil:
			ierr.Err = ctx.Err()
			ierr.Stderr = ""
		}
		return "", ierr
	}
	return stdout.String(), nil
}

func (c *Client) logger() logging.Logger {
	if c.Logger == nil {
		return logging.Nop()
	}
	return c.Logger
}
