package testgen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/tildaslashalef/codeboost/internal/loggy"
)

// ErrRunNotFound is returned when no test run matches
var ErrRunNotFound = errors.New("test run not found")

// Repository stores test runs and their cases
type Repository interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns the newest runs first, without cases. An empty
	// filePath lists all files.
	ListRuns(ctx context.Context, filePath string, limit int) ([]*Run, error)
}

// SQLRepository implements Repository on SQLite
type SQLRepository struct {
	db      *sql.DB
	logger  *loggy.Logger
	builder sq.StatementBuilderType
}

// NewSQLRepository creates a new SQL repository
func NewSQLRepository(db *sql.DB, logger *loggy.Logger) *SQLRepository {
	return &SQLRepository{
		db:      db,
		logger:  logger,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// SaveRun inserts the run and every case in one transaction
func (r *SQLRepository) SaveRun(ctx context.Context, run *Run) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	query, args, err := r.builder.Insert("test_runs").
		Columns("id", "file_path", "language", "passed", "failed", "created_at").
		Values(run.ID, run.FilePath, run.Language, run.Passed, run.Failed, run.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert test run query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting test run: %w", err)
	}

	for _, c := range run.Cases {
		query, args, err = r.builder.Insert("test_cases").
			Columns("id", "run_id", "position", "input", "expected", "actual", "passed", "error").
			Values(c.ID, run.ID, c.Position, c.Input, c.Expected, c.Actual, c.Passed, c.Error).
			ToSql()
		if err != nil {
			return fmt.Errorf("building insert test case query: %w", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting test case: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing test run: %w", err)
	}
	return nil
}

func (r *SQLRepository) selectRuns() sq.SelectBuilder {
	return r.builder.Select("id", "file_path", "language", "passed", "failed", "created_at").From("test_runs")
}

func scanRun(row sq.RowScanner) (*Run, error) {
	var run Run
	if err := row.Scan(&run.ID, &run.FilePath, &run.Language, &run.Passed, &run.Failed, &run.CreatedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun retrieves a run with its cases in order
func (r *SQLRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	query, args, err := r.selectRuns().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get test run query: %w", err)
	}

	run, err := scanRun(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("executing get test run query: %w", err)
	}

	query, args, err = r.builder.Select("id", "run_id", "position", "input", "expected", "actual", "passed", "error").
		From("test_cases").
		Where(sq.Eq{"run_id": id}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get test cases query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing get test cases query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Case
		var actual, errText sql.NullString
		if err := rows.Scan(&c.ID, &c.RunID, &c.Position, &c.Input, &c.Expected, &actual, &c.Passed, &errText); err != nil {
			return nil, fmt.Errorf("scanning test case: %w", err)
		}
		c.Actual = actual.String
		c.Error = errText.String
		run.Cases = append(run.Cases, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating test cases: %w", err)
	}

	return run, nil
}

// ListRuns lists runs without their cases
func (r *SQLRepository) ListRuns(ctx context.Context, filePath string, limit int) ([]*Run, error) {
	q := r.selectRuns().OrderBy("created_at DESC", "id DESC")
	if filePath != "" {
		q = q.Where(sq.Eq{"file_path": filePath})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list test runs query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing list test runs query: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning test run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating test runs: %w", err)
	}

	return runs, nil
}
