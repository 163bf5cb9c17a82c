package model

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// JobErrorDetail is one field level problem found in a job file.
type JobErrorDetail struct {
	Path    string // step.endpoint
	Code    string // missing_required | unknown_field | conflicting_values | type_mismatch | validation_error
	Message string
	Pos     JobErrorPosition
}

type JobErrorPosition struct {
	Filename string
	Line     int
	Column   int
}

func (d JobErrorDetail) Attr(name string) slog.Attr {
	return slog.GroupAttrs(
		name,
		slog.String("code", d.Code),
		slog.String("path", d.Path),
		slog.String("message", d.Message),
		slog.Int("line", d.Pos.Line),
		slog.Int("column", d.Pos.Column),
	)
}

func (d JobErrorDetail) String() string {
	if d.Pos.Line == 0 {
		return fmt.Sprintf("%s: %s", d.Path, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Pos.Filename, d.Pos.Line, d.Pos.Column, d.Path, d.Message)
}

var (
	reIncomplete  = regexp.MustCompile(`(?i)incomplete value`)
	reNotAllowed  = regexp.MustCompile(`(?i)not allowed|unknown field`)
	reConflict    = regexp.MustCompile(`(?i)conflicting values|cannot unify|incompatible|invalid value`)
	reExpectedGot = regexp.MustCompile(`(?i)expected .* got .*`)
)

// JobErrDetails converts errors returned by LoadJob into a list of
// field level details. Errors not produced by CUE return nil.
func JobErrDetails(err error) []JobErrorDetail {
	if err == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []JobErrorDetail
	for _, e := range cueerrors.Errors(err) {
		raw, args := e.Msg()
		path := jobPath(e.Path())
		key := path + "|" + raw
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		code, msg := classify(fmt.Sprintf(raw, args...), path)
		out = append(out, JobErrorDetail{
			Path:    path,
			Code:    code,
			Message: msg,
			Pos:     position(e),
		})
	}
	return out
}

func position(err cueerrors.Error) JobErrorPosition {
	for _, p := range cueerrors.Positions(err) {
		if p.Filename() == "" {
			continue
		}
		return JobErrorPosition{
			Filename: p.Filename(),
			Line:     p.Line(),
			Column:   p.Column(),
		}
	}
	return JobErrorPosition{}
}

// jobPath drops the leading #Job definition
func jobPath(p []string) string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func classify(raw, path string) (code, msg string) {
	field := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		field = path[i+1:]
	}
	switch {
	case reNotAllowed.MatchString(raw):
		return "unknown_field", fmt.Sprintf("Field %s is not allowed", field)
	case reIncomplete.MatchString(raw):
		return "missing_required", fmt.Sprintf("Field %s is required", field)
	case reExpectedGot.MatchString(raw):
		return "type_mismatch", fmt.Sprintf("Field %s has wrong type/value", field)
	case reConflict.MatchString(raw):
		return "conflicting_values", fmt.Sprintf("Conflicting values for %s", field)
	default:
		return "validation_error", raw
	}
}
