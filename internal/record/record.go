// Package record keeps a build record per build step execution in sqlite.
package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyFinished = errors.New("already finished")
)

// Build is the record of one build execution.
type Build struct {
	UUID          string
	JobName       string
	Number        int
	InProgress    bool
	Success       *bool
	ExitCode      *int
	FailureReason *string
	Report        *Report
}

// Report is the test report attached to a build.
type Report struct {
	Location string
	Total    int
	Passed   int
	Failed   int
	Errored  int
	Skipped  int
}

type BuildRow struct {
	Build
	ID int
}

func (b BuildRow) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "uuid: %q, job: %q, number: %d, in_progress: %t", b.UUID, b.JobName, b.Number, b.InProgress)
	if b.Success != nil {
		fmt.Fprintf(&sb, ", success: %t", *b.Success)
	}
	if b.ExitCode != nil {
		fmt.Fprintf(&sb, ", exit_code: %d", *b.ExitCode)
	}
	if b.FailureReason != nil {
		fmt.Fprintf(&sb, ", failure_reason: %q", *b.FailureReason)
	}
	if b.Report != nil {
		fmt.Fprintf(&sb, ", report: %q (%d tests, %d failed)", b.Report.Location, b.Report.Total, b.Report.Failed+b.Report.Errored)
	}
	return sb.String()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		job_name TEXT NOT NULL DEFAULT '',
		number INTEGER NOT NULL DEFAULT 0,
		in_progress BOOLEAN NOT NULL,
		success BOOLEAN DEFAULT NULL,
		exit_code INTEGER DEFAULT NULL,
		failure_reason TEXT DEFAULT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reports (
		build_uuid TEXT PRIMARY KEY REFERENCES builds(uuid) ON DELETE CASCADE,
		location TEXT NOT NULL,
		total INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		errored INTEGER NOT NULL,
		skipped INTEGER NOT NULL
	)`,
}

// Store is a build record database.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Start records that the build identified by uuid is in progress.
// Starting a build in progress is a no-op, a finished build returns ErrAlreadyFinished.
func (s *Store) Start(ctx context.Context, uuid, jobName string, number int) error {
	return s.tx(ctx, uuid, func(tx *sql.Tx) error {
		var inProgress bool
		err := tx.QueryRowContext(ctx,
			`SELECT in_progress FROM builds WHERE uuid=?`, uuid,
		).Scan(&inProgress)
		switch {
		case err == nil && inProgress:
			return nil
		case err == nil && !inProgress:
			return ErrAlreadyFinished
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("executing sql query failed: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO builds (uuid, job_name, number, in_progress) VALUES (?,?,?,?);`,
			uuid, jobName, number, true,
		)
		if err != nil {
			return fmt.Errorf("executing sql insert failed: %w", err)
		}
		return nil
	})
}

// AttachReport stores the test report of a build in progress, replacing
// a previously attached one.
func (s *Store) AttachReport(ctx context.Context, uuid string, report Report) error {
	return s.tx(ctx, uuid, func(tx *sql.Tx) error {
		if err := inProgress(ctx, tx, uuid); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO reports (build_uuid, location, total, passed, failed, errored, skipped)
			VALUES (?,?,?,?,?,?,?);`,
			uuid, report.Location, report.Total, report.Passed, report.Failed, report.Errored, report.Skipped,
		)
		if err != nil {
			return fmt.Errorf("executing sql insert failed: %w", err)
		}
		return nil
	})
}

// Finish marks the build as done. A nil cause means success.
func (s *Store) Finish(ctx context.Context, uuid string, exitCode *int, cause error) error {
	return s.tx(ctx, uuid, func(tx *sql.Tx) error {
		if err := inProgress(ctx, tx, uuid); err != nil {
			return err
		}
		var reason *string
		if cause != nil {
			r := cause.Error()
			reason = &r
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE builds
			 SET
				in_progress = false,
				success = ?,
				exit_code = ?,
				failure_reason = ?
			WHERE uuid = ?;
			`, cause == nil, exitCode, reason, uuid,
		)
		if err != nil {
			return fmt.Errorf("executing sql update failed: %w", err)
		}
		return nil
	})
}

// Get returns the record of a build, ErrNotFound if there is none.
func (s *Store) Get(ctx context.Context, uuid string) (BuildRow, error) {
	var row BuildRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, uuid, job_name, number, in_progress, success, exit_code, failure_reason
		FROM builds WHERE uuid=?`, uuid,
	).Scan(
		&row.ID,
		&row.UUID,
		&row.JobName,
		&row.Number,
		&row.InProgress,
		&row.Success,
		&row.ExitCode,
		&row.FailureReason,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return BuildRow{}, ErrNotFound
	case err != nil:
		return BuildRow{}, fmt.Errorf("executing sql query failed: %w", err)
	}

	var rep Report
	err = s.db.QueryRowContext(ctx,
		`SELECT location, total, passed, failed, errored, skipped FROM reports WHERE build_uuid=?`, uuid,
	).Scan(&rep.Location, &rep.Total, &rep.Passed, &rep.Failed, &rep.Errored, &rep.Skipped)
	switch {
	case err == nil:
		row.Report = &rep
	case !errors.Is(err, sql.ErrNoRows):
		return BuildRow{}, fmt.Errorf("executing sql query failed: %w", err)
	}
	return row, nil
}

func (s *Store) tx(ctx context.Context, uuid string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Calling `tx.Rollback()` failed.", slog.String("uuid", uuid))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction failed: %w", err)
	}
	return nil
}

func inProgress(ctx context.Context, tx *sql.Tx, uuid string) error {
	var running bool
	err := tx.QueryRowContext(ctx,
		`SELECT in_progress FROM builds WHERE uuid=?`, uuid,
	).Scan(&running)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("executing sql query failed: %w", err)
	case !running:
		return ErrAlreadyFinished
	}
	return nil
}
