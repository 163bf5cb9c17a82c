package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tricentis/tosca-ci/internal/form"
	"github.com/tricentis/tosca-ci/internal/host"
	"github.com/tricentis/tosca-ci/internal/model"
)

var checkCmd = &cobra.Command{
	Use:               "check",
	Short:             "check validates the build step of the job file like the job configuration form does",
	PersistentPreRunE: loadJob,
	RunE:              doCheck,
}

func doCheck(cmd *cobra.Command, _ []string) error {
	checker := form.Checker{Auth: host.Grants(nil)}
	failed, err := checker.CheckAll(cmd.Context(), &job.Step)
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", jobPath)
		return nil
	}

	fields := make([]string, 0, len(failed))
	for f := range failed {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: step.%s: %s\n", jobPath, f, failed[f].Message)
	}
	return model.NewConfigError(fields[0], model.Message(failed[fields[0]].Message))
}
