// Package envvars expands $NAME and ${NAME} references in step settings.
package envvars

import (
	"os"
	"sort"
	"strings"
)

// Expand replaces every $NAME or ${NAME} in s by its value in env.
// A name ends at the first character which is not a letter, digit or
// underscore, so path separators terminate it. Unknown names expand to
// an empty string.
func Expand(s string, env map[string]string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return os.Expand(s, func(name string) string {
		return env[name]
	})
}

// ExpandLeading expands only a $NAME at the very beginning of path, up to the
// first path separator, and strips trailing separators from the value. This
// mirrors how file checks resolve paths outside of a build.
func ExpandLeading(path string, lookup func(string) (string, bool)) string {
	if !strings.HasPrefix(path, "$") {
		return path
	}
	slashed := strings.ReplaceAll(path, `\`, "/")
	sep := strings.IndexByte(slashed, '/')
	if sep == -1 {
		v, _ := lookup(path[1:])
		return v
	}
	v, _ := lookup(path[1:sep])
	return strings.TrimRight(v, `\/`) + path[sep:]
}

// FromEnviron converts KEY=VALUE pairs to a map, later pairs win.
func FromEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Environ converts a map to sorted KEY=VALUE pairs.
func Environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
