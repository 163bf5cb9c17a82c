// Package host describes what the build step needs from the automation
// server running it, and provides implementations for running outside of one.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/tricentis/tosca-ci/internal/envvars"
	"github.com/tricentis/tosca-ci/internal/model"
)

// Build is the context of one build execution.
type Build struct {
	ID        string
	Number    int
	JobName   string
	Workspace string    // absolute path
	Log       io.Writer // build log, the console of the build
	Env       EnvResolver
}

// EnvResolver returns the environment of a build, used both for $NAME
// expansion and as the environment of the launched client.
type EnvResolver interface {
	Resolve(ctx context.Context, build Build) (map[string]string, error)
}

// Archiver attaches a results file to a build record.
type Archiver interface {
	Archive(ctx context.Context, build Build, name string, raw []byte, stats model.JUnitStats) error
}

// ArchiveCloser is an Archiver holding resources.
type ArchiveCloser interface {
	Archiver
	Close() error
}

type Permission string

const (
	PermConfigure Permission = "job.configure"
	PermBuild     Permission = "job.build"
)

// Authorizer checks the caller may perform an action guarded by a permission.
type Authorizer interface {
	Check(ctx context.Context, perm Permission) error
}

// NewBuild creates a build in workspace with a fresh ID. Jenkins style
// BUILD_NUMBER and JOB_NAME variables are honored when present.
func NewBuild(workspace string, log io.Writer, env EnvResolver) (Build, error) {
	if workspace == "" {
		return Build{}, errors.New("workspace is empty")
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return Build{}, fmt.Errorf("resolving workspace %s: %w", workspace, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Build{}, fmt.Errorf("opening workspace: %w", err)
	}
	if !info.IsDir() {
		return Build{}, fmt.Errorf("workspace %s is not a directory", abs)
	}

	b := Build{
		ID:        uuid.NewString(),
		JobName:   os.Getenv("JOB_NAME"),
		Workspace: abs,
		Log:       log,
		Env:       env,
	}
	if n, err := strconv.Atoi(os.Getenv("BUILD_NUMBER")); err == nil {
		b.Number = n
	}
	return b, nil
}

// Environment resolves the build environment, an empty map for a build
// without a resolver.
func (b Build) Environment(ctx context.Context) (map[string]string, error) {
	if b.Env == nil {
		return map[string]string{}, nil
	}
	return b.Env.Resolve(ctx, b)
}

// OSEnv resolves to the environment of the current process merged with
// Overrides and the variables describing the build itself.
type OSEnv struct {
	Overrides map[string]string
}

func (e OSEnv) Resolve(_ context.Context, build Build) (map[string]string, error) {
	env := envvars.FromEnviron(os.Environ())
	for k, v := range e.Overrides {
		env[k] = v
	}
	if build.Workspace != "" {
		env["WORKSPACE"] = build.Workspace
	}
	if build.ID != "" {
		env["BUILD_ID"] = build.ID
	}
	return env, nil
}

// StaticEnv resolves to a fixed map, a copy is returned on every call.
type StaticEnv map[string]string

func (e StaticEnv) Resolve(context.Context, Build) (map[string]string, error) {
	env := make(map[string]string, len(e))
	for k, v := range e {
		env[k] = v
	}
	return env, nil
}

// Grants is an Authorizer allowing exactly the listed permissions.
// A nil Grants allows everything.
type Grants map[Permission]bool

func (g Grants) Check(_ context.Context, perm Permission) error {
	if g == nil || g[perm] {
		return nil
	}
	return fmt.Errorf("%w: %s", model.ErrPermissionDenied, model.MsgPermissionDenied.Format(string(perm)))
}
