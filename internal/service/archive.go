package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tricentis/tosca-ci/internal/host"
	"github.com/tricentis/tosca-ci/internal/model"
	"github.com/tricentis/tosca-ci/internal/record"
)

// Archivers returns the archivers configured by cfg. A WriteArchiver on out is
// used when nothing else is configured.
func Archivers(ctx context.Context, cfg model.Publish, out io.Writer) ([]host.Archiver, error) {
	if cfg.Dir == "" && cfg.Record == "" && !cfg.Repository.IsEnabled() {
		return []host.Archiver{NewWriteArchiver(out)}, nil
	}

	var archivers []host.Archiver
	closeAll := func() {
		for _, a := range archivers {
			if c, ok := a.(host.ArchiveCloser); ok {
				_ = c.Close()
			}
		}
	}

	if cfg.Dir != "" {
		a, err := NewDirArchiver(cfg.Dir)
		if err != nil {
			return nil, err
		}
		archivers = append(archivers, a)
	}

	if cfg.Record != "" {
		store, err := record.Open(ctx, cfg.Record)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("opening build record %s: %w", cfg.Record, err)
		}
		archivers = append(archivers, NewRecordArchiver(store))
	}

	if cfg.Repository.IsEnabled() {
		a, err := NewRepoArchiver(cfg.Repository.URL)
		if err != nil {
			closeAll()
			return nil, err
		}
		archivers = append(archivers, a)
	}
	return archivers, nil
}

// WriteArchiver writes the results file to a writer.
type WriteArchiver struct {
	w io.Writer
}

func NewWriteArchiver(w io.Writer) WriteArchiver {
	return WriteArchiver{w: w}
}

func (a WriteArchiver) Archive(_ context.Context, _ host.Build, _ string, raw []byte, _ model.JUnitStats) error {
	if a.w == nil {
		return nil
	}
	_, err := a.w.Write(raw)
	return err
}

// DirArchiver keeps a copy of every results file in a directory.
type DirArchiver struct {
	root *os.Root
}

func NewDirArchiver(path string) (*DirArchiver, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, err
	}
	return &DirArchiver{root: root}, nil
}

// Name returns the archived file name of a results file.
func (a *DirArchiver) Name(build host.Build, name string) string {
	return build.ID + "-" + filepath.Base(name)
}

func (a *DirArchiver) Archive(_ context.Context, build host.Build, name string, raw []byte, _ model.JUnitStats) error {
	if a.root == nil {
		return errors.New("root already closed")
	}

	f, err := a.root.Create(a.Name(build, name))
	if err != nil {
		return fmt.Errorf("creating archived results: %w", err)
	}
	_, err = f.Write(raw)
	return errors.Join(err, f.Close())
}

func (a *DirArchiver) Close() error {
	if a.root == nil {
		return nil
	}
	err := a.root.Close()
	a.root = nil
	return err
}

// RecordArchiver attaches the report summary to the sqlite build record.
// The build must have been started in the store.
type RecordArchiver struct {
	store *record.Store
}

func NewRecordArchiver(store *record.Store) *RecordArchiver {
	return &RecordArchiver{store: store}
}

func (a *RecordArchiver) Store() *record.Store {
	return a.store
}

func (a *RecordArchiver) Archive(ctx context.Context, build host.Build, name string, _ []byte, stats model.JUnitStats) error {
	return a.store.AttachReport(ctx, build.ID, record.Report{
		Location: filepath.Join(build.Workspace, name),
		Total:    stats.Total,
		Passed:   stats.Passed,
		Failed:   stats.Failed,
		Errored:  stats.Errored,
		Skipped:  stats.Skipped,
	})
}

func (a *RecordArchiver) Close() error {
	return a.store.Close()
}
