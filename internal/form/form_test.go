package form_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tricentis/tosca-ci/internal/form"
	"github.com/tricentis/tosca-ci/internal/host"
	"github.com/tricentis/tosca-ci/internal/model"
)

const dex = "http://server/DistributionServerService/ManagerService.svc"

func tricentisHome(t *testing.T) (form.Checker, string) {
	t.Helper()
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "ToscaCIJavaClient.jar"), []byte("jar"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(home, "Testconfig.xml"), []byte("<testConfiguration/>"), 0o644))
	c := form.Checker{
		Lookup: func(name string) (string, bool) {
			if name == "TRICENTIS_HOME" {
				return home + "/", true
			}
			return "", false
		},
	}
	return c, home
}

func TestCheckClientPath(t *testing.T) {
	t.Parallel()
	c, home := tricentisHome(t)
	ctx := context.Background()

	var testCases = []struct {
		given string
		then  form.Result
	}{
		{"", form.Result{Kind: form.Error, Message: model.MsgRequired.String()}},
		{"   ", form.Result{Kind: form.Error, Message: model.MsgRequired.String()}},
		{`$TRICENTIS_HOME\ToscaCIJavaClient.jar`, form.Result{Kind: form.OK}},
		{filepath.Join(home, "ToscaCIJavaClient.jar"), form.Result{Kind: form.OK}},
		{"$TRICENTIS_HOME/missing.jar", form.Result{Kind: form.Error, Message: model.MsgFileNotFound.String()}},
		{home, form.Result{Kind: form.Error, Message: model.MsgFileNotFound.String()}},
		{"$UNKNOWN", form.Result{Kind: form.Error, Message: model.MsgFileNotFound.String()}},
	}
	for _, tc := range testCases {
		res, err := c.CheckClientPath(ctx, tc.given)
		require.NoError(t, err)
		require.Equal(t, tc.then, res, tc.given)
	}
}

func TestCheckEndpoint(t *testing.T) {
	t.Parallel()
	res, err := form.Checker{}.CheckEndpoint(context.Background(), " ")
	require.NoError(t, err)
	require.Equal(t, form.Error, res.Kind)

	res, err = form.Checker{}.CheckEndpoint(context.Background(), dex)
	require.NoError(t, err)
	require.Equal(t, "ok", res.String())
}

func TestCheckTestEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := form.Checker{}

	res, err := c.CheckTestEvents(ctx, "A;B", dex, "")
	require.NoError(t, err)
	require.Equal(t, form.OK, res.Kind)

	res, err = c.CheckTestEvents(ctx, "A;B", dex, "cfg.xml")
	require.NoError(t, err)
	require.Equal(t, form.Result{Kind: form.Error, Message: model.MsgOnlyOne.String()}, res)

	res, err = c.CheckTestEvents(ctx, "A;B", "http://server/Remote.svc", "")
	require.NoError(t, err)
	require.Equal(t, form.Result{Kind: form.Error, Message: model.MsgDexOnly.String()}, res)
}

func TestCheckConfigurationFilePath(t *testing.T) {
	t.Parallel()
	c, _ := tricentisHome(t)
	ctx := context.Background()

	res, err := c.CheckConfigurationFilePath(ctx, `$TRICENTIS_HOME\Testconfig.xml`, "", dex)
	require.NoError(t, err)
	require.Equal(t, form.OK, res.Kind)

	res, err = c.CheckConfigurationFilePath(ctx, "$TRICENTIS_HOME/other.xml", "", dex)
	require.NoError(t, err)
	require.Equal(t, model.MsgFileNotFound.String(), res.Message)

	res, err = c.CheckConfigurationFilePath(ctx, `$TRICENTIS_HOME\Testconfig.xml`, "A", dex)
	require.NoError(t, err)
	require.Equal(t, model.MsgOnlyOne.String(), res.Message)

	// not a DEX endpoint, no configuration file is fine
	res, err = c.CheckConfigurationFilePath(ctx, "", "", "http://server/Remote.svc")
	require.NoError(t, err)
	require.Equal(t, form.OK, res.Kind)
}

func TestCheckAll(t *testing.T) {
	t.Parallel()
	c, _ := tricentisHome(t)
	ctx := context.Background()

	cfg := model.NewRunConfiguration(`$TRICENTIS_HOME\ToscaCIJavaClient.jar`, dex)
	cfg.SetConfigFilePath(`$TRICENTIS_HOME\Testconfig.xml`)
	failed, err := c.CheckAll(ctx, cfg)
	require.NoError(t, err)
	require.Empty(t, failed)

	cfg.SetTestEvents("A")
	cfg.SetEndpoint("")
	failed, err = c.CheckAll(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, failed, 3)
	require.Contains(t, failed, "endpoint")
	require.Contains(t, failed, "testEvents")
	require.Contains(t, failed, "configurationFilePath")
}

func TestChecker_Permission(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := form.Checker{Auth: host.Grants{host.PermBuild: true}}

	_, err := c.CheckEndpoint(ctx, dex)
	require.ErrorIs(t, err, model.ErrPermissionDenied)
	_, err = c.CheckAll(ctx, model.NewRunConfiguration("client.exe", dex))
	require.ErrorIs(t, err, model.ErrPermissionDenied)

	c.Auth = host.Grants{host.PermConfigure: true}
	_, err = c.CheckEndpoint(ctx, dex)
	require.NoError(t, err)
}
