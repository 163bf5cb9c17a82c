package service

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"golang.org/x/sync/errgroup"

	"github.com/tricentis/tosca-ci/internal/command"
)

var (
	ErrNotStarted = errors.New("client not started")
	ErrInProgress = errors.New("client in progress")
)

type StderrFunc func(ctx context.Context, line string)

// Runner launches the Tricentis client, only one instance at a time.
type Runner struct {
	mx     sync.Mutex
	cmd    *exec.Cmd
	result Result
	waits  []chan Result
}

func NewRunner() *Runner {
	return &Runner{
		result: Result{Err: ErrNotStarted},
	}
}

type Result struct {
	Path    string
	Args    []string
	Dir     string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Err     error
}

// ExitCode returns the exit code of a finished process, -1 when
// the process was killed by a signal or never ran.
func (r Result) ExitCode() int {
	if r.State == nil {
		return -1
	}
	return r.State.ExitCode()
}

// Start launches the command and returns without waiting for it. Standard
// output is copied to stdout, standard error lines are passed to stderrFunc.
// Returns ErrInProgress or an exec error, otherwise nil. Use WaitChan to
// obtain the Result.
func (r *Runner) Start(ctx context.Context, proto command.Command, stdout io.Writer, stderrFunc StderrFunc) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.cmd != nil {
		return ErrInProgress
	}
	if len(proto.Args) == 0 {
		return errors.New("empty command")
	}

	r.result = Result{
		Path: proto.Path,
		Args: append([]string(nil), proto.Args...),
		Dir:  proto.Dir,
	}

	// the host aborts a build by canceling ctx, there is no own timeout
	cmd := exec.CommandContext(ctx, proto.Path, proto.Args[1:]...)
	cmd.Env = proto.Env
	cmd.Dir = proto.Dir
	if stdout == nil {
		stdout = io.Discard
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	r.result.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		r.result.Stopped = time.Now().UTC()
		r.result.Err = err
		return err
	}
	r.cmd = cmd

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		return processStderr(ctx, stderrPipe, stderrFunc)
	})
	go r.wait(ctx, cmd, &g)
	return nil
}

// processStderr reads stderr until EOF. Lines are unbounded, a client
// blocked on a full stderr pipe never exits.
func processStderr(ctx context.Context, stderr io.Reader, stderrFunc StderrFunc) error {
	reader := bufio.NewReader(stderr)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			line = stripansi.Strip(strings.TrimRight(line, "\r\n"))
			slog.DebugContext(ctx, "client stderr", "line", line)
			if stderrFunc != nil {
				stderrFunc(ctx, line)
			}
		}
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			_, _ = io.Copy(io.Discard, stderr)
			return err
		}
	}
}

func (r *Runner) wait(ctx context.Context, cmd *exec.Cmd, g *errgroup.Group) {
	// pipes must be drained before Wait closes them
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "reading client output", "error", err)
	}
	err := cmd.Wait()
	stopped := time.Now().UTC()

	r.mx.Lock()
	defer r.mx.Unlock()
	r.result.Stopped = stopped
	r.result.State = cmd.ProcessState
	r.result.Err = err
	r.cmd = nil
	for _, ch := range r.waits {
		ch <- r.result
		close(ch)
	}
	r.waits = nil
}

// WaitChan returns a channel receiving the result of the running
// client. The channel is closed once the client ends. When nothing
// runs the last result is delivered immediately.
func (r *Runner) WaitChan() <-chan Result {
	ch := make(chan Result, 1)
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.cmd == nil {
		ch <- r.result
		close(ch)
		return ch
	}
	r.waits = append(r.waits, ch)
	return ch
}

// LastResult returns the result of the last client run, or a result with
// ErrNotStarted if nothing ran yet.
func (r *Runner) LastResult() Result {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.result
}

// Execute runs the command, blocks until it ends and returns its exit code.
// A non zero exit code is not an error, launch failures are returned as is.
func (r *Runner) Execute(ctx context.Context, cmd command.Command, stdout io.Writer) (int, error) {
	if stdout == nil {
		stdout = io.Discard
	}
	out := &syncWriter{w: stdout}
	stderr := func(_ context.Context, line string) {
		_, _ = io.WriteString(out, line+"\n")
	}
	if err := r.Start(ctx, cmd, out, stderr); err != nil {
		return 0, err
	}
	res := <-r.WaitChan()
	if ctx.Err() != nil {
		return res.ExitCode(), context.Cause(ctx)
	}
	var exitErr *exec.ExitError
	if res.Err != nil && !errors.As(res.Err, &exitErr) {
		return res.ExitCode(), res.Err
	}
	return res.ExitCode(), nil
}

// syncWriter serializes stdout and stderr of the client into one build log
type syncWriter struct {
	mx sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mx.Lock()
	defer w.mx.Unlock()
	return w.w.Write(p)
}
