package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tricentis/tosca-ci/internal/model"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "init writes a job file with default settings",
	RunE:  doInit,
}

func doInit(cmd *cobra.Command, _ []string) error {
	path := viper.GetString("config")
	if path == "" {
		path = "tosca-ci.yaml"
	}
	if exists(path) {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	err = model.DefaultJob().Encode(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Join(fmt.Errorf("storing job file: %w", err), os.Remove(path))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "job file written to %s\n", path)
	return nil
}
