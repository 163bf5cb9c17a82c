// Package command assembles the command line of the Tricentis CI client.
package command

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/tricentis/tosca-ci/internal/envvars"
	"github.com/tricentis/tosca-ci/internal/log"
	"github.com/tricentis/tosca-ci/internal/model"
)

const (
	modeSwitch         = "-m"
	resultsSwitch      = "-r"
	configSwitch       = "-c"
	endpointSwitch     = "-e"
	reportTypeSwitch   = "-t"
	specExitCodeSwitch = "-x"

	defaultMode       = "distributed"
	junitReportType   = "junit"
	specExitCodeValue = "True"

	javaHome = "JAVA_HOME"
)

// Command is a client invocation ready to be launched.
type Command struct {
	Path        string   // executable, Args[0]
	Args        []string // full argument list including Path
	Env         []string // KEY=VALUE
	Dir         string   // working directory
	Descriptor  string   // generated test event descriptor, if any
	Diagnostics []string // non fatal problems found while building
}

// Builder turns a RunConfiguration into a Command. The zero value is usable.
type Builder struct {
	// Descriptors writes the test event descriptor, DescriptorWriter{} if nil.
	Descriptors Writer
	Console     *log.Console
}

// Writer stores the descriptor of inline test events and returns its path.
type Writer interface {
	Write(workspace string, events []string) (string, error)
}

// Build expands the configuration against env and returns the command to run
// in workspace. Configuration errors are returned as *model.ConfigError.
func (b Builder) Build(ctx context.Context, cfg *model.RunConfiguration, env map[string]string, workspace string) (Command, error) {
	clientPath := envvars.Expand(cfg.ClientPath(), env)
	configPath := envvars.Expand(cfg.ConfigFilePath(), env)
	testEvents := cfg.TestEvents()
	endpoint := envvars.Expand(cfg.Endpoint(), env)

	var args []string
	if strings.EqualFold(filepath.Ext(clientPath), ".jar") {
		jh := env[javaHome]
		if jh == "" {
			return Command{}, model.ErrJavaHomeMissing
		}
		args = append(args, path.Join(strings.TrimRight(jh, `\/`), "bin", "java"), "-jar")
	}

	resultsPath := filepath.Join(workspace, envvars.Expand(cfg.ResultsFile(), env))
	args = append(args,
		clientPath,
		modeSwitch, defaultMode,
		reportTypeSwitch, junitReportType,
		specExitCodeSwitch, specExitCodeValue,
		resultsSwitch, resultsPath,
	)

	cmd := Command{
		Dir: workspace,
		Env: envvars.Environ(env),
	}

	switch {
	case isSet(testEvents):
		if isSet(configPath) {
			return Command{}, model.ErrOnlyOne
		}
		descriptor, err := b.writer().Write(workspace, strings.Split(testEvents, ";"))
		if err != nil {
			msg := model.MsgDescriptorFailed.Format(err.Error())
			slog.WarnContext(ctx, "writing test event descriptor failed", "error", err)
			b.Console.Println(msg)
			cmd.Diagnostics = append(cmd.Diagnostics, msg)
			break
		}
		cmd.Descriptor = descriptor
		args = append(args, configSwitch, descriptor)
	case isSet(configPath):
		args = append(args, configSwitch, configPath)
	}

	if isSet(endpoint) {
		args = append(args, endpointSwitch, endpoint)
	}

	cmd.Path = args[0]
	cmd.Args = args
	slog.DebugContext(ctx, "client command built", "args", args, "dir", workspace)
	return cmd, nil
}

func (b Builder) writer() Writer {
	if b.Descriptors == nil {
		return DescriptorWriter{}
	}
	return b.Descriptors
}

func isSet(s string) bool {
	return strings.TrimSpace(s) != ""
}
