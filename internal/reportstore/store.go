// Package reportstore persists validation runs and their reports in SQLite.
package reportstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hochfrequenz/doccheck/internal/domain"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

// Report kinds in command_reports
const (
	kindCommand      = "command"
	kindModification = "modification"
)

// Store provides SQLite-backed run persistence
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite serializes writers anyway and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or replaces a run together with its full report
func (s *Store) SaveRun(run *domain.Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var finished interface{}
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	_, err = tx.Exec(`
		INSERT INTO runs (id, document, mode, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			finished_at = excluded.finished_at
	`,
		run.ID,
		run.Document,
		string(run.Mode),
		string(run.Status),
		run.Error,
		run.StartedAt,
		finished,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	// Reports only grow, but rewriting them keeps saves idempotent.
	if _, err := tx.Exec(`DELETE FROM goal_reports WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear goal reports: %w", err)
	}
	for i, g := range run.Report.GoalReports {
		res, err := tx.Exec(`INSERT INTO goal_reports (run_id, position, name, description) VALUES (?, ?, ?, ?)`,
			run.ID, i, g.Name, g.Description)
		if err != nil {
			return fmt.Errorf("save goal report: %w", err)
		}
		goalID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertReports(tx, goalID, kindCommand, g.CommandReports); err != nil {
			return err
		}
		if err := insertReports(tx, goalID, kindModification, g.ModificationReports); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertReports(tx *sql.Tx, goalID int64, kind string, reports []domain.CommandReport) error {
	for i, r := range reports {
		_, err := tx.Exec(`
			INSERT INTO command_reports (goal_id, kind, position, command, outcome, insight, output)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, goalID, kind, i, r.Command.String(), string(r.Outcome), r.Insight, r.Output)
		if err != nil {
			return fmt.Errorf("save %s report: %w", kind, err)
		}
	}
	return nil
}

const runColumns = `id, document, mode, status, error, started_at, finished_at`

// GetRun retrieves a run and its report by ID
func (s *Store) GetRun(id string) (*domain.Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadReport(run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListOptions specifies filters for listing runs
type ListOptions struct {
	Document string
	Limit    int
}

// ListRuns returns runs, newest first, with their reports
func (s *Store) ListRuns(opts ListOptions) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []interface{}

	if opts.Document != "" {
		query += " AND document = ?"
		args = append(args, opts.Document)
	}
	query += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the only connection before loading reports.
	rows.Close()

	for _, run := range runs {
		if err := s.loadReport(run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// DeleteRun removes a run and its reports
func (s *Store) DeleteRun(id string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*domain.Run, error) {
	var run domain.Run
	var mode, status string
	var runErr sql.NullString
	var finished sql.NullTime

	if err := row.Scan(&run.ID, &run.Document, &mode, &status, &runErr, &run.StartedAt, &finished); err != nil {
		return nil, err
	}
	run.Mode = domain.ExecutorMode(mode)
	run.Status = domain.RunStatus(status)
	if runErr.Valid {
		run.Error = runErr.String
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	run.Report.Document = run.Document
	return &run, nil
}

func (s *Store) loadReport(run *domain.Run) error {
	rows, err := s.db.Query(`
		SELECT g.id, g.name, g.description, c.kind, c.command, c.outcome, c.insight, c.output
		FROM goal_reports g
		LEFT JOIN command_reports c ON c.goal_id = g.id
		WHERE g.run_id = ?
		ORDER BY g.position, c.kind, c.position
	`, run.ID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	defer rows.Close()

	var goals []domain.GoalReport
	lastID := int64(-1)
	for rows.Next() {
		var goalID int64
		var name string
		var description, kind, command, outcome, insight, output sql.NullString
		if err := rows.Scan(&goalID, &name, &description, &kind, &command, &outcome, &insight, &output); err != nil {
			return err
		}
		if goalID != lastID {
			goals = append(goals, domain.GoalReport{Name: name, Description: description.String})
			lastID = goalID
		}
		if !kind.Valid {
			continue // goal without reports
		}
		report := domain.CommandReport{
			Command: domain.Command(command.String),
			Outcome: domain.ParseOutcome(outcome.String),
			Insight: insight.String,
			Output:  output.String,
		}
		g := &goals[len(goals)-1]
		if kind.String == kindModification {
			g.ModificationReports = append(g.ModificationReports, report)
		} else {
			g.CommandReports = append(g.CommandReports, report)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	run.Report.GoalReports = goals
	return nil
}
