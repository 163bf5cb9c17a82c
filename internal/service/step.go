package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tricentis/tosca-ci/internal/command"
	"github.com/tricentis/tosca-ci/internal/host"
	"github.com/tricentis/tosca-ci/internal/log"
	"github.com/tricentis/tosca-ci/internal/model"
)

// CommandBuilder builds the client command line.
type CommandBuilder interface {
	Build(ctx context.Context, cfg *model.RunConfiguration, env map[string]string, workspace string) (command.Command, error)
}

// ProcessRunner runs the client until it exits and returns the exit code.
type ProcessRunner interface {
	Execute(ctx context.Context, cmd command.Command, stdout io.Writer) (int, error)
}

// ResultsPublisher attaches the results file to the build.
type ResultsPublisher interface {
	Publish(ctx context.Context, resultsFile string, build host.Build) error
}

type State int

const (
	StateIdle State = iota
	StateValidating
	StateBuilding
	StateRunning
	StatePublishing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateBuilding:
		return "building"
	case StateRunning:
		return "running"
	case StatePublishing:
		return "publishing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Step is the build step: it runs the Tricentis client configured by
// a RunConfiguration and publishes its JUnit results.
type Step struct {
	cfg       *model.RunConfiguration
	builder   CommandBuilder
	runner    ProcessRunner
	publisher ResultsPublisher

	mx       sync.Mutex
	state    State
	exitCode *int
}

func NewStep(cfg *model.RunConfiguration, builder CommandBuilder, runner ProcessRunner, publisher ResultsPublisher) *Step {
	return &Step{
		cfg:       cfg,
		builder:   builder,
		runner:    runner,
		publisher: publisher,
	}
}

// Perform executes the step for a build. The results are published even
// when the client fails, a non zero exit code is then returned as
// *model.ExitCodeError.
func (s *Step) Perform(ctx context.Context, build host.Build) error {
	console := log.NewConsole(build.Log)
	ctx = log.ContextAttrs(ctx, slog.Group("build",
		slog.String("id", build.ID),
		slog.String("workspace", build.Workspace),
	))

	s.setState(StateValidating)
	s.logParameters(console)
	if name, missing := s.cfg.Missing(); missing {
		return s.fail(ctx, model.NewConfigError(name, model.MsgParameterMissing, name))
	}

	s.setState(StateBuilding)
	env, err := build.Environment(ctx)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("resolving build environment: %w", err))
	}
	cmd, err := s.builder.Build(ctx, s.cfg, env, build.Workspace)
	if err != nil {
		return s.fail(ctx, err)
	}

	s.setState(StateRunning)
	slog.InfoContext(ctx, "starting client", "path", cmd.Path)
	exitCode, err := s.runner.Execute(ctx, cmd, console.Writer())
	if err != nil {
		return s.fail(ctx, err)
	}
	s.mx.Lock()
	s.exitCode = &exitCode
	s.mx.Unlock()
	slog.InfoContext(ctx, "client finished", "exit_code", exitCode)

	s.setState(StatePublishing)
	console.Println(model.MsgPublishJUnit.Format())
	if err := s.publisher.Publish(ctx, s.cfg.ResultsFile(), build); err != nil {
		return s.fail(ctx, fmt.Errorf("publishing results: %w", err))
	}

	if exitCode != 0 {
		return s.fail(ctx, &model.ExitCodeError{Code: exitCode})
	}
	console.Println(model.MsgDone.Format())
	s.setState(StateSucceeded)
	return nil
}

// State returns the state the step is in, or ended in.
func (s *Step) State() State {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// ExitCode returns the exit code of the client, if it ran.
func (s *Step) ExitCode() (int, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.exitCode == nil {
		return 0, false
	}
	return *s.exitCode, true
}

func (s *Step) logParameters(console *log.Console) {
	console.Println(model.MsgRunJob.Format(model.MsgPluginTitle))
	console.Printf("%s: %s", model.MsgClientPath, s.cfg.ClientPath())
	console.Printf("%s: %s", model.MsgEndpoint, s.cfg.Endpoint())
	console.Printf("%s: %s", model.MsgConfigurationFilePath, s.cfg.ConfigFilePath())
	console.Printf("%s: %s", model.MsgResultsFile, s.cfg.ResultsFile())
	console.Printf("%s: %s", model.MsgTestEvents, s.cfg.TestEvents())
}

func (s *Step) setState(state State) {
	s.mx.Lock()
	s.state = state
	s.mx.Unlock()
}

func (s *Step) fail(ctx context.Context, err error) error {
	slog.ErrorContext(ctx, "build step failed", "state", s.State().String(), "error", err)
	s.setState(StateFailed)
	return err
}
