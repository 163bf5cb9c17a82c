package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tricentis/tosca-ci/internal/command"
	"github.com/tricentis/tosca-ci/internal/host"
	"github.com/tricentis/tosca-ci/internal/log"
	"github.com/tricentis/tosca-ci/internal/record"
	"github.com/tricentis/tosca-ci/internal/service"
)

var runCmd = &cobra.Command{
	Use:               "run",
	Short:             "run the Tricentis client configured by the job file and publish its results",
	PersistentPreRunE: loadJob,
	RunE:              doRun,
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	workspace := viper.GetString("workspace")
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		workspace = wd
	}

	build, err := host.NewBuild(workspace, cmd.ErrOrStderr(), host.OSEnv{})
	if err != nil {
		return err
	}
	ctx = log.ContextAttrs(ctx, slog.Group("tosca-ci",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	))

	archivers, err := service.Archivers(ctx, job.Publish, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("initializing archivers: %w", err)
	}
	publisher := service.NewJUnitPublisher(archivers...)
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.ErrorContext(ctx, "closing archivers failed", "error", err)
		}
	}()

	step := service.NewStep(
		&job.Step,
		command.Builder{Console: log.NewConsole(build.Log)},
		service.NewRunner(),
		publisher,
	)

	store := recordStore(archivers)
	if store != nil {
		if err := store.Start(ctx, build.ID, build.JobName, build.Number); err != nil {
			return fmt.Errorf("starting build record: %w", err)
		}
	}

	stepErr := step.Perform(ctx, build)

	if store != nil {
		if err := finishRecord(ctx, store, build, step, stepErr); err != nil {
			slog.ErrorContext(ctx, "finishing build record failed", "error", err)
		}
	}
	return stepErr
}

func recordStore(archivers []host.Archiver) *record.Store {
	for _, a := range archivers {
		if ra, ok := a.(*service.RecordArchiver); ok {
			return ra.Store()
		}
	}
	return nil
}

func finishRecord(ctx context.Context, store *record.Store, build host.Build, step *service.Step, stepErr error) error {
	var exitCode *int
	if code, ok := step.ExitCode(); ok {
		exitCode = &code
	}
	// a canceled build still gets its record closed
	if errors.Is(stepErr, context.Canceled) {
		ctx = context.WithoutCancel(ctx)
	}
	return store.Finish(ctx, build.ID, exitCode, stepErr)
}

