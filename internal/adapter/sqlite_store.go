package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// SQLite driver
	_ "modernc.org/sqlite"

	m "mutate.dev/pkg/mutate/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	name               TEXT NOT NULL,
	workdir            TEXT NOT NULL,
	build_command      TEXT NOT NULL DEFAULT '',
	quickcheck_command TEXT NOT NULL DEFAULT '',
	quickcheck_timeout REAL NOT NULL DEFAULT 0,
	test_command       TEXT NOT NULL DEFAULT '',
	test_timeout       REAL NOT NULL DEFAULT 0,
	clean_command      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS files (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	filename   TEXT NOT NULL,
	UNIQUE (project_id, filename)
);

CREATE TABLE IF NOT EXISTS patches (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	file_id    INTEGER REFERENCES files(id) ON DELETE SET NULL,
	diff       TEXT NOT NULL,
	mutator_id TEXT NOT NULL DEFAULT '',
	line       INTEGER NOT NULL DEFAULT 0,
	state      TEXT NOT NULL DEFAULT 'incomplete'
);

CREATE INDEX IF NOT EXISTS idx_patches_state ON patches(state);

CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	step            TEXT NOT NULL,
	patch_id        INTEGER NOT NULL REFERENCES patches(id) ON DELETE CASCADE,
	project_id      INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	timestamp_start INTEGER NOT NULL,
	timestamp_end   INTEGER NOT NULL,
	duration        INTEGER NOT NULL,
	output          TEXT NOT NULL DEFAULT '',
	log             TEXT NOT NULL,
	success         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_patch ON runs(patch_id);
`

const patchColumns = `
	pa.id, pa.diff, pa.mutator_id, pa.line, pa.state, pa.file_id, f.filename,
	pr.id, pr.name, pr.workdir, pr.build_command, pr.quickcheck_command,
	pr.quickcheck_timeout, pr.test_command, pr.test_timeout, pr.clean_command
	FROM patches pa
	JOIN projects pr ON pr.id = pa.project_id
	LEFT JOIN files f ON f.id = pa.file_id
`

const projectColumns = `
	id, name, workdir, build_command, quickcheck_command, quickcheck_timeout,
	test_command, test_timeout, clean_command
	FROM projects
`

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if necessary) the database at path, enables
// WAL mode and creates the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Only the coordinating goroutine writes; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	slog.Debug("Opened SQLite store", "path", path)

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// CreateProject inserts a project and returns it with its id.
func (s *SQLiteStore) CreateProject(ctx context.Context, project m.Project) (m.Project, error) {
	query := `
		INSERT INTO projects (name, workdir, build_command, quickcheck_command, quickcheck_timeout,
			test_command, test_timeout, clean_command)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		project.Name,
		string(project.Workdir),
		project.BuildCommand,
		project.QuickcheckCommand,
		project.QuickcheckTimeout.Seconds(),
		project.TestCommand,
		project.TestTimeout.Seconds(),
		project.CleanCommand,
	)
	if err != nil {
		return m.Project{}, fmt.Errorf("failed to create project: %w", err)
	}

	project.ID, err = result.LastInsertId()
	if err != nil {
		return m.Project{}, fmt.Errorf("failed to read project id: %w", err)
	}

	return project, nil
}

// GetProject retrieves a project by id.
func (s *SQLiteStore) GetProject(ctx context.Context, id int64) (m.Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" WHERE id = ?", id)

	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return m.Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}

	if err != nil {
		return m.Project{}, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListProjects lists every project ordered by id.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]m.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+projectColumns+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []m.Project

	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// EnsureFile returns the file row for (projectID, filename), inserting it on
// first use.
func (s *SQLiteStore) EnsureFile(ctx context.Context, projectID int64, filename m.Path) (m.File, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (project_id, filename) VALUES (?, ?) ON CONFLICT (project_id, filename) DO NOTHING`,
		projectID, string(filename))
	if err != nil {
		return m.File{}, fmt.Errorf("failed to insert file: %w", err)
	}

	file := m.File{ProjectID: projectID, Filename: filename}

	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM files WHERE project_id = ? AND filename = ?`,
		projectID, string(filename)).Scan(&file.ID)
	if err != nil {
		return m.File{}, fmt.Errorf("failed to get file: %w", err)
	}

	return file, nil
}

// AddPatch inserts a patch. The project id is taken from patch.Project.
func (s *SQLiteStore) AddPatch(ctx context.Context, patch m.Patch) (m.Patch, error) {
	if patch.State == "" {
		patch.State = m.StateIncomplete
	}

	var fileID sql.NullInt64
	if patch.File != nil {
		fileID = sql.NullInt64{Int64: patch.File.ID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO patches (project_id, file_id, diff, mutator_id, line, state) VALUES (?, ?, ?, ?, ?, ?)`,
		patch.Project.ID, fileID, patch.Diff, patch.MutatorID, patch.Line, string(patch.State))
	if err != nil {
		return m.Patch{}, fmt.Errorf("failed to create patch: %w", err)
	}

	patch.ID, err = result.LastInsertId()
	if err != nil {
		return m.Patch{}, fmt.Errorf("failed to read patch id: %w", err)
	}

	return patch, nil
}

// GetPatch retrieves a patch by id.
func (s *SQLiteStore) GetPatch(ctx context.Context, id int64) (m.Patch, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+patchColumns+" WHERE pa.id = ?", id)

	patch, err := scanPatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return m.Patch{}, fmt.Errorf("patch %d: %w", id, ErrNotFound)
	}

	if err != nil {
		return m.Patch{}, fmt.Errorf("failed to get patch: %w", err)
	}

	return patch, nil
}

// ListPatches lists the patches of projectID, or all patches when it is zero.
func (s *SQLiteStore) ListPatches(ctx context.Context, projectID int64) ([]m.Patch, error) {
	if projectID == 0 {
		return s.queryPatches(ctx, "SELECT "+patchColumns+" ORDER BY pa.id")
	}

	return s.queryPatches(ctx, "SELECT "+patchColumns+" WHERE pa.project_id = ? ORDER BY pa.id", projectID)
}

// IncompletePatches implements Store.
func (s *SQLiteStore) IncompletePatches(ctx context.Context) ([]m.Patch, error) {
	return s.queryPatches(ctx, "SELECT "+patchColumns+" WHERE pa.state = ? ORDER BY pa.id", string(m.StateIncomplete))
}

// CountIncomplete implements Store.
func (s *SQLiteStore) CountIncomplete(ctx context.Context) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patches WHERE state = ?`, string(m.StateIncomplete)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete patches: %w", err)
	}

	return count, nil
}

// UpdatePatchState implements Store. Only incomplete patches may change.
func (s *SQLiteStore) UpdatePatchState(ctx context.Context, patchID int64, state m.PatchState) error {
	if !state.Terminal() {
		return fmt.Errorf("%w: to %q", ErrStateTransition, state)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE patches SET state = ? WHERE id = ? AND state = ?`,
		string(state), patchID, string(m.StateIncomplete))
	if err != nil {
		return fmt.Errorf("failed to update patch state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 1 {
		return nil
	}

	var current string

	err = s.db.QueryRowContext(ctx, `SELECT state FROM patches WHERE id = ?`, patchID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("patch %d: %w", patchID, ErrNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to get patch state: %w", err)
	}

	return fmt.Errorf("%w: patch %d is already %s", ErrStateTransition, patchID, current)
}

// AddRun appends a run record.
func (s *SQLiteStore) AddRun(ctx context.Context, run m.Run) (m.Run, error) {
	query := `
		INSERT INTO runs (step, patch_id, project_id, timestamp_start, timestamp_end, duration, output, log, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		run.Step.String(),
		run.PatchID,
		run.ProjectID,
		run.TimestampStart.UnixNano(),
		run.TimestampEnd.UnixNano(),
		int64(run.Duration),
		run.Output,
		string(run.Log),
		run.Success,
	)
	if err != nil {
		return m.Run{}, fmt.Errorf("failed to create run: %w", err)
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return m.Run{}, fmt.Errorf("failed to read run id: %w", err)
	}

	return run, nil
}

// RunsForPatch lists the runs of a patch in insertion order.
func (s *SQLiteStore) RunsForPatch(ctx context.Context, patchID int64) ([]m.Run, error) {
	query := `
		SELECT id, step, patch_id, project_id, timestamp_start, timestamp_end, duration, output, log, success
		FROM runs
		WHERE patch_id = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, patchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []m.Run

	for rows.Next() {
		var (
			run        m.Run
			step, log  string
			start, end int64
			duration   int64
		)

		if err := rows.Scan(&run.ID, &step, &run.PatchID, &run.ProjectID, &start, &end,
			&duration, &run.Output, &log, &run.Success); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Step, err = m.ParseStep(step)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", run.ID, err)
		}

		run.TimestampStart = time.Unix(0, start)
		run.TimestampEnd = time.Unix(0, end)
		run.Duration = time.Duration(duration)
		run.Log = m.RunLog(log)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// StateCounts returns the number of patches per state.
func (s *SQLiteStore) StateCounts(ctx context.Context) (m.StateCounts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM patches GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count patch states: %w", err)
	}
	defer rows.Close()

	counts := m.StateCounts{}

	for rows.Next() {
		var (
			state string
			count int
		)

		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}

		counts[m.PatchState(state)] = count
	}

	return counts, rows.Err()
}

func (s *SQLiteStore) queryPatches(ctx context.Context, query string, args ...any) ([]m.Patch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list patches: %w", err)
	}
	defer rows.Close()

	var patches []m.Patch

	for rows.Next() {
		patch, err := scanPatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patch: %w", err)
		}

		patches = append(patches, patch)
	}

	return patches, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (m.Project, error) {
	var (
		project                       m.Project
		workdir                       string
		quickcheckTimeout, testTimeout float64
	)

	err := row.Scan(&project.ID, &project.Name, &workdir, &project.BuildCommand,
		&project.QuickcheckCommand, &quickcheckTimeout, &project.TestCommand,
		&testTimeout, &project.CleanCommand)
	if err != nil {
		return m.Project{}, err
	}

	project.Workdir = m.Path(workdir)
	project.QuickcheckTimeout = secondsToDuration(quickcheckTimeout)
	project.TestTimeout = secondsToDuration(testTimeout)

	return project, nil
}

func scanPatch(row rowScanner) (m.Patch, error) {
	var (
		patch                         m.Patch
		state, workdir                string
		fileID                        sql.NullInt64
		filename                      sql.NullString
		quickcheckTimeout, testTimeout float64
	)

	err := row.Scan(&patch.ID, &patch.Diff, &patch.MutatorID, &patch.Line, &state, &fileID, &filename,
		&patch.Project.ID, &patch.Project.Name, &workdir, &patch.Project.BuildCommand,
		&patch.Project.QuickcheckCommand, &quickcheckTimeout, &patch.Project.TestCommand,
		&testTimeout, &patch.Project.CleanCommand)
	if err != nil {
		return m.Patch{}, err
	}

	patch.State = m.PatchState(state)
	patch.Project.Workdir = m.Path(workdir)
	patch.Project.QuickcheckTimeout = secondsToDuration(quickcheckTimeout)
	patch.Project.TestTimeout = secondsToDuration(testTimeout)

	if fileID.Valid {
		patch.File = &m.File{
			ID:        fileID.Int64,
			ProjectID: patch.Project.ID,
			Filename:  m.Path(filename.String),
		}
	}

	return patch, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
