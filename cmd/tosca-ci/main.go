package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tricentis/tosca-ci/internal/log"
	"github.com/tricentis/tosca-ci/internal/model"
)

const envPrefix = "TOSCA_CI"

// exit codes of tosca-ci
const (
	exitSuccess     = 0
	exitTestFailure = 1 // the client exited with a non zero code
	exitRuntimeErr  = 2 // configuration, launch or publishing errors
)

var (
	userConfigPath string // /default/config/path/tosca-ci on given OS
	jobPath        string // job file in use
	job            model.Job
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		d = "."
	}
	userConfigPath = filepath.Join(d, "tosca-ci")
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "Job file to load - default is tosca-ci.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose logging")
	rootCmd.PersistentFlags().String("workspace", "", "Build workspace - default is current directory")
	for _, name := range []string{"config", "verbose", "workspace"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	// never print messages
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	err := rootCmd.Execute()
	if err != nil {
		slog.Error("tosca-ci failed", "err", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case model.IsExitCodeError(err):
		return exitTestFailure
	default:
		return exitRuntimeErr
	}
}

var rootCmd = &cobra.Command{
	Use:          "tosca-ci",
	Short:        "Runs the Tricentis CI client and publishes its JUnit results",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of tosca-ci",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("tosca-ci: version info not available")
			return
		}

		fmt.Printf("tosca-ci: %s\n", info.Main.Version)
		fmt.Printf("go:       %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:   %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:     %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:    %s\n", s.Value)
			}
		}
	},
}

// loadJob finds and parses the job file and sets up logging.
func loadJob(cmd *cobra.Command, _ []string) error {
	jobPath = viper.GetString("config")
	if jobPath == "" {
		for _, d := range []string{".", userConfigPath} {
			path := filepath.Join(d, "tosca-ci.yaml")
			if exists(path) {
				jobPath = path
				break
			}
		}
	}
	if jobPath == "" {
		return errors.New("no job file found, create one with tosca-ci init")
	}

	f, err := os.Open(jobPath)
	if err != nil {
		return fmt.Errorf("opening job file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	loaded, err := model.LoadJob(f)
	if err != nil {
		for _, d := range model.JobErrDetails(err) {
			slog.Error("invalid job file", d.Attr("detail"))
		}
		return fmt.Errorf("parsing job file %s: %w", jobPath, err)
	}
	job = *loaded

	// --verbose has a precedence over the job file
	verbose := job.Log.Verbose || viper.GetBool("verbose")
	slog.SetDefault(log.New(verbose, cmd.ErrOrStderr()))

	slog.Debug("tosca-ci", "jobPath", jobPath)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
