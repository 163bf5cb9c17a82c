package model_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tricentis/tosca-ci/internal/model"
)

func TestLoadJob(t *testing.T) {
	t.Parallel()
	yml := `
version: 0
step:
  tricentisClientPath: $TRICENTIS_HOME/ToscaCIJavaClient.jar
  endpoint: http://dex/DistributionServerService/ManagerService.svc
  configurationFilePath: ""
  testEvents: "Smoke;Regression"
publish:
  dir: ./archive
  record: ./builds.db
  repository:
    url: https://reports.example.com
log:
  verbose: true
`
	job, err := model.LoadJob(strings.NewReader(yml))
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, "$TRICENTIS_HOME/ToscaCIJavaClient.jar", job.Step.ClientPath())
	require.Equal(t, "Smoke;Regression", job.Step.TestEvents())
	require.Equal(t, model.Empty, job.Step.ConfigFilePath())
	require.NoError(t, job.Step.Validate())
	require.Equal(t, "./archive", job.Publish.Dir)
	require.Equal(t, "./builds.db", job.Publish.Record)
	require.NotNil(t, job.Publish.Repository)
	require.True(t, job.Publish.Repository.IsEnabled())
	require.Equal(t, "https://reports.example.com", job.Publish.Repository.URL)
	require.True(t, job.Log.Verbose)
}

func TestLoadJob_Fail(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		yml      string
		path     string
	}{
		{
			scenario: "unknown step field",
			yml: `
version: 0
step:
  clientPath: client.exe
`,
			path: "step.clientPath",
		},
		{
			scenario: "repository without url",
			yml: `
version: 0
step: {}
publish:
  repository:
    enabled: true
`,
			path: "publish.repository.url",
		},
		{
			scenario: "repository url without scheme",
			yml: `
version: 0
step: {}
publish:
  repository:
    url: reports.example.com
`,
			path: "publish.repository.url",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := model.LoadJob(strings.NewReader(tc.yml))
			require.Error(t, err)
			details := model.JobErrDetails(err)
			require.NotEmpty(t, details)
			var paths []string
			for _, d := range details {
				paths = append(paths, d.Path)
			}
			require.Contains(t, paths, tc.path)
		})
	}
}

func TestDefaultJob(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, model.DefaultJob().Encode(&buf))

	job, err := model.LoadJob(&buf)
	require.NoError(t, err)
	require.Equal(t, model.DefaultClientPath, job.Step.ClientPath())
	require.Equal(t, model.DefaultEndpoint, job.Step.Endpoint())
	require.Equal(t, model.DefaultConfigFilePath, job.Step.ConfigFilePath())
	require.False(t, job.Publish.Repository.IsEnabled())
}
