package envvars_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tricentis/tosca-ci/internal/envvars"
)

func TestExpand(t *testing.T) {
	t.Parallel()
	env := map[string]string{
		"TRICENTIS_HOME": `C:\Tools`,
		"VAR":            "foo",
	}
	var testCases = []struct {
		given string
		then  string
	}{
		{`$TRICENTIS_HOME\client.exe`, `C:\Tools\client.exe`},
		{`${TRICENTIS_HOME}/client.jar`, `C:\Tools/client.jar`},
		{"http://x/$VAR", "http://x/foo"},
		{"no variables", "no variables"},
		{"$UNKNOWN/x", "/x"},
		{"", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.given, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.then, envvars.Expand(tc.given, env))
		})
	}
}

func TestExpandLeading(t *testing.T) {
	t.Parallel()
	lookup := func(name string) (string, bool) {
		switch name {
		case "HOME":
			return "/opt/tricentis/", true
		case "WIN":
			return `C:\Tricentis\`, true
		}
		return "", false
	}

	require.Equal(t, "/opt/tricentis/client.jar", envvars.ExpandLeading("$HOME/client.jar", lookup))
	require.Equal(t, `C:\Tricentis\ToscaCI\client.exe`, envvars.ExpandLeading(`$WIN\ToscaCI\client.exe`, lookup))
	require.Equal(t, "/opt/tricentis/", envvars.ExpandLeading("$HOME", lookup))
	require.Equal(t, "/x/$HOME", envvars.ExpandLeading("/x/$HOME", lookup))
	require.Equal(t, "/client.jar", envvars.ExpandLeading("$MISSING/client.jar", lookup))
}

func TestEnviron(t *testing.T) {
	t.Parallel()
	env := envvars.FromEnviron([]string{"B=2", "A=1", "EQ=x=y", "broken", "=skip", "A=3"})
	require.Equal(t, map[string]string{"A": "3", "B": "2", "EQ": "x=y"}, env)
	require.Equal(t, []string{"A=3", "B=2", "EQ=x=y"}, envvars.Environ(env))
}
