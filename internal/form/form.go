// Package form implements the checks run while a build step is edited.
package form

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/tricentis/tosca-ci/internal/envvars"
	"github.com/tricentis/tosca-ci/internal/host"
	"github.com/tricentis/tosca-ci/internal/model"
)

type Kind int

const (
	OK Kind = iota
	Error
)

// Result of one field check.
type Result struct {
	Kind    Kind
	Message string
}

func (r Result) String() string {
	if r.Kind == OK {
		return "ok"
	}
	return "error: " + r.Message
}

func ok() Result { return Result{Kind: OK} }

func fail(msg string) Result { return Result{Kind: Error, Message: msg} }

// Checker validates the fields of a build step configuration. Paths
// starting with $NAME are resolved with Lookup, os.LookupEnv if nil.
type Checker struct {
	Auth   host.Authorizer
	Lookup func(string) (string, bool)
}

func (c Checker) CheckClientPath(ctx context.Context, clientPath string) (Result, error) {
	if err := c.authorize(ctx); err != nil {
		return Result{}, err
	}
	if !isSet(clientPath) {
		return fail(model.MsgRequired.Format()), nil
	}
	if !c.fileExists(clientPath) {
		return fail(model.MsgFileNotFound.Format()), nil
	}
	return ok(), nil
}

func (c Checker) CheckEndpoint(ctx context.Context, endpoint string) (Result, error) {
	if err := c.authorize(ctx); err != nil {
		return Result{}, err
	}
	if !isSet(endpoint) {
		return fail(model.MsgRequired.Format()), nil
	}
	return ok(), nil
}

func (c Checker) CheckTestEvents(ctx context.Context, testEvents, endpoint, configPath string) (Result, error) {
	if err := c.authorize(ctx); err != nil {
		return Result{}, err
	}
	if err := model.ValidateOnlyOne(testEvents, configPath, endpoint); err != nil {
		return fail(message(err)), nil
	}
	return ok(), nil
}

func (c Checker) CheckConfigurationFilePath(ctx context.Context, configPath, testEvents, endpoint string) (Result, error) {
	if err := c.authorize(ctx); err != nil {
		return Result{}, err
	}
	if err := model.ValidateOnlyOne(testEvents, configPath, endpoint); err != nil {
		return fail(message(err)), nil
	}
	if isSet(configPath) && !c.fileExists(configPath) {
		return fail(model.MsgFileNotFound.Format()), nil
	}
	return ok(), nil
}

// CheckAll runs every field check against a configuration and returns the
// failed ones keyed by field name.
func (c Checker) CheckAll(ctx context.Context, cfg *model.RunConfiguration) (map[string]Result, error) {
	failed := make(map[string]Result)
	checks := []struct {
		field string
		fn    func() (Result, error)
	}{
		{"tricentisClientPath", func() (Result, error) { return c.CheckClientPath(ctx, cfg.ClientPath()) }},
		{"endpoint", func() (Result, error) { return c.CheckEndpoint(ctx, cfg.Endpoint()) }},
		{"testEvents", func() (Result, error) {
			return c.CheckTestEvents(ctx, cfg.TestEvents(), cfg.Endpoint(), cfg.ConfigFilePath())
		}},
		{"configurationFilePath", func() (Result, error) {
			return c.CheckConfigurationFilePath(ctx, cfg.ConfigFilePath(), cfg.TestEvents(), cfg.Endpoint())
		}},
	}
	for _, chk := range checks {
		res, err := chk.fn()
		if err != nil {
			return nil, err
		}
		if res.Kind != OK {
			failed[chk.field] = res
		}
	}
	return failed, nil
}

func (c Checker) authorize(ctx context.Context) error {
	if c.Auth == nil {
		return nil
	}
	return c.Auth.Check(ctx, host.PermConfigure)
}

func (c Checker) fileExists(path string) bool {
	lookup := c.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	p := envvars.ExpandLeading(path, lookup)
	if p == "" {
		return false
	}
	p = strings.ReplaceAll(p, `\`, string(filepath.Separator))
	p = strings.ReplaceAll(p, "/", string(filepath.Separator))
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func message(err error) string {
	var cfgErr *model.ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Msg
	}
	return err.Error()
}

func isSet(s string) bool {
	return strings.TrimSpace(s) != ""
}
