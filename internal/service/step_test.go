package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tricentis/tosca-ci/internal/command"
	"github.com/tricentis/tosca-ci/internal/host"
	"github.com/tricentis/tosca-ci/internal/model"
	"github.com/tricentis/tosca-ci/internal/service"
)

type fakeRunner struct {
	code  int
	err   error
	calls []command.Command
}

func (r *fakeRunner) Execute(_ context.Context, cmd command.Command, stdout io.Writer) (int, error) {
	r.calls = append(r.calls, cmd)
	_, _ = io.WriteString(stdout, "client output\n")
	return r.code, r.err
}

type fakePublisher struct {
	err   error
	files []string
}

func (p *fakePublisher) Publish(_ context.Context, resultsFile string, _ host.Build) error {
	p.files = append(p.files, resultsFile)
	return p.err
}

func newBuild(t *testing.T, env host.StaticEnv) (host.Build, *bytes.Buffer) {
	t.Helper()
	var log bytes.Buffer
	return host.Build{
		ID:        "b-1",
		Workspace: t.TempDir(),
		Log:       &log,
		Env:       env,
	}, &log
}

func exeConfig() *model.RunConfiguration {
	cfg := model.NewRunConfiguration(`"$TRICENTIS_HOME\ToscaCIClient.exe"`, model.DefaultEndpoint)
	cfg.SetConfigFilePath(`$TRICENTIS_HOME\Testconfig.xml`)
	return cfg
}

func TestStep_Success(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{code: 0}
	publisher := &fakePublisher{}
	build, log := newBuild(t, host.StaticEnv{"TRICENTIS_HOME": `C:\Tricentis`})

	step := service.NewStep(exeConfig(), command.Builder{}, runner, publisher)
	require.Equal(t, service.StateIdle, step.State())

	err := step.Perform(t.Context(), build)
	require.NoError(t, err)
	require.Equal(t, service.StateSucceeded, step.State())
	code, ok := step.ExitCode()
	require.True(t, ok)
	require.Zero(t, code)

	require.Equal(t, []string{"results.xml"}, publisher.files)
	require.Len(t, runner.calls, 1)
	require.Equal(t, `C:\Tricentis\ToscaCIClient.exe`, runner.calls[0].Path)
	require.Equal(t, build.Workspace, runner.calls[0].Dir)

	out := log.String()
	require.Contains(t, out, model.MsgRunJob.Format(model.MsgPluginTitle))
	require.Contains(t, out, "client output")
	require.Contains(t, out, model.MsgPublishJUnit.String())
	require.Contains(t, out, model.MsgDone.String())
}

func TestStep_ExitCode(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{code: 7}
	publisher := &fakePublisher{}
	build, log := newBuild(t, host.StaticEnv{})

	step := service.NewStep(exeConfig(), command.Builder{}, runner, publisher)
	err := step.Perform(t.Context(), build)
	require.Error(t, err)
	require.Contains(t, err.Error(), "7")
	var exitErr *model.ExitCodeError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 7, exitErr.Code)

	require.Equal(t, []string{"results.xml"}, publisher.files)
	require.Equal(t, service.StateFailed, step.State())
	code, ok := step.ExitCode()
	require.True(t, ok)
	require.Equal(t, 7, code)
	require.NotContains(t, log.String(), model.MsgDone.String())
}

func TestStep_NegativeExitCode(t *testing.T) {
	t.Parallel()
	publisher := &fakePublisher{}
	build, _ := newBuild(t, nil)

	err := service.NewStep(exeConfig(), command.Builder{}, &fakeRunner{code: -1}, publisher).Perform(t.Context(), build)
	require.True(t, model.IsExitCodeError(err))
	require.Contains(t, err.Error(), "-1")
	require.Len(t, publisher.files, 1)
}

func TestStep_ConfigErrors(t *testing.T) {
	t.Parallel()

	jar := model.NewRunConfiguration("/opt/tosca/ToscaCIJavaClient.jar", model.DefaultEndpoint)

	both := model.NewRunConfiguration("client.exe", model.DefaultEndpoint)
	both.SetTestEvents("A;B")

	noEndpoint := model.NewRunConfiguration("client.exe", " ")

	var testCases = []struct {
		scenario string
		cfg      *model.RunConfiguration
		then     error
	}{
		{"jar without JAVA_HOME", jar, model.ErrJavaHomeMissing},
		{"config file and test events", both, model.ErrOnlyOne},
		{"missing endpoint", noEndpoint, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			runner := &fakeRunner{}
			publisher := &fakePublisher{}
			build, _ := newBuild(t, host.StaticEnv{"PATH": "/usr/bin"})

			step := service.NewStep(tc.cfg, command.Builder{}, runner, publisher)
			err := step.Perform(t.Context(), build)
			require.Error(t, err)
			require.True(t, model.IsConfigError(err))
			if tc.then != nil {
				require.ErrorIs(t, err, tc.then)
			}
			require.Empty(t, runner.calls)
			require.Empty(t, publisher.files)
			require.Equal(t, service.StateFailed, step.State())
			_, ok := step.ExitCode()
			require.False(t, ok)
		})
	}
}

func TestStep_PublishError(t *testing.T) {
	t.Parallel()
	publisher := &fakePublisher{err: model.ErrNoResults}
	build, _ := newBuild(t, nil)

	step := service.NewStep(exeConfig(), command.Builder{}, &fakeRunner{code: 7}, publisher)
	err := step.Perform(t.Context(), build)
	require.ErrorIs(t, err, model.ErrNoResults)
	require.False(t, model.IsExitCodeError(err))
	require.Equal(t, service.StateFailed, step.State())
}

func TestStep_RunnerError(t *testing.T) {
	t.Parallel()
	boom := errors.New("fork/exec: permission denied")
	publisher := &fakePublisher{}
	build, _ := newBuild(t, nil)

	step := service.NewStep(exeConfig(), command.Builder{}, &fakeRunner{err: boom}, publisher)
	err := step.Perform(t.Context(), build)
	require.ErrorIs(t, err, boom)
	require.Empty(t, publisher.files)
}

// Not parallel: exec of a freshly written file races with forks of other tests (ETXTBSY).
func TestStep_RealClient(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	// the fake client writes a JUnit report and fails like the real one does
	script := "#!/bin/sh\n" +
		"while [ $# -gt 0 ]; do [ \"$1\" = -r ] && out=$2; shift; done\n" +
		"printf '<testsuites><testsuite name=\"Smoke\"><testcase name=\"a\"/><testcase name=\"b\"><failure/></testcase></testsuite></testsuites>' > \"$out\"\n" +
		"echo executed\n" +
		"exit 1\n"
	client := writeExecutable(t, script)

	build, log := newBuild(t, host.StaticEnv{"PATH": "/usr/bin:/bin"})
	var archived bytes.Buffer
	publisher := service.NewJUnitPublisher(service.NewWriteArchiver(&archived))
	cfg := model.NewRunConfiguration(client, "http://server/RemoteService.svc")
	cfg.SetConfigFilePath("")

	step := service.NewStep(cfg, command.Builder{}, service.NewRunner(), publisher)
	err := step.Perform(t.Context(), build)
	require.Error(t, err)
	require.True(t, model.IsExitCodeError(err))
	require.Contains(t, log.String(), "executed")
	require.Contains(t, log.String(), "TOTAL FAIL")
	require.Contains(t, archived.String(), `<testsuite name="Smoke">`)
}

func writeExecutable(t *testing.T, script string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ToscaCIClient")
	require.NoError(t, os.WriteFile(p, []byte(script), 0o755))
	return p
}
