package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tricentis/tosca-ci/internal/host"
	"github.com/tricentis/tosca-ci/internal/model"
)

// JUnitPublisher reads the JUnit report written by the client, prints
// a summary into the build log and hands the report to the archivers.
type JUnitPublisher struct {
	archivers []host.Archiver
}

func NewJUnitPublisher(archivers ...host.Archiver) *JUnitPublisher {
	return &JUnitPublisher{archivers: archivers}
}

// Publish archives resultsFile from the build workspace. Any error is fatal
// for the build.
func (p *JUnitPublisher) Publish(ctx context.Context, resultsFile string, build host.Build) error {
	root, err := os.OpenRoot(build.Workspace)
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	raw, err := root.ReadFile(resultsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", model.ErrNoResults, resultsFile)
	} else if err != nil {
		return fmt.Errorf("reading %s: %w", resultsFile, err)
	}

	report, err := model.ParseJUnit(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", resultsFile, err)
	}
	stats := report.Stats()
	slog.DebugContext(ctx, "results parsed",
		"file", resultsFile,
		"suites", len(report.Suites),
		"total", stats.Total,
		"failed", stats.Failed+stats.Errored,
	)

	if build.Log != nil {
		if err := Summary(build.Log, report); err != nil {
			slog.WarnContext(ctx, "printing results summary failed", "error", err)
		}
	}

	var errs []error
	for _, a := range p.archivers {
		if err := a.Archive(ctx, build, resultsFile, raw, stats); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases archivers holding resources.
func (p *JUnitPublisher) Close() error {
	var errs []error
	for _, a := range p.archivers {
		if c, ok := a.(host.ArchiveCloser); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Summary renders one row per test suite and a total.
func Summary(w io.Writer, report model.JUnitReport) error {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle("Tricentis test results")
	t.AppendHeader(table.Row{"Suite", "Tests", "Passed", "Failed", "Errors", "Skipped"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Errors", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	for _, suite := range report.Suites {
		s := model.JUnitReport{Suites: []model.JUnitSuite{suite}}.Stats()
		t.AppendRow(table.Row{suite.Name, s.Total, s.Passed, s.Failed, s.Errored, s.Skipped})
	}

	total := report.Stats()
	status := "PASS"
	if total.HasFailures() {
		status = "FAIL"
	}
	t.AppendFooter(table.Row{"TOTAL " + status, total.Total, total.Passed, total.Failed, total.Errored, total.Skipped})
	t.SetStyle(table.StyleLight)
	t.Render()

	_, err := w.Write(buf.Bytes())
	return err
}
