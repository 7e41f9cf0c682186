package autobuild

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/ulid"
)

// Repository stores build attempts
type Repository interface {
	SaveAttempt(ctx context.Context, attempt *Attempt) error
	// ListAttempts returns the newest attempts first. An empty filePath lists all files.
	ListAttempts(ctx context.Context, filePath string, limit int) ([]*Attempt, error)
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

// SaveAttempt inserts a build attempt
func (r *SQLRepository) SaveAttempt(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = ulid.BuildAttemptID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	query, args, err := r.builder.Insert("build_attempts").
		Columns("id", "file_path", "attempt", "command", "exit_code", "kind", "output", "created_at").
		Values(a.ID, a.FilePath, a.Attempt, a.Command, a.ExitCode, a.Kind, a.Output, a.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert build attempt query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("executing insert build attempt query: %w", err)
	}
	return nil
}

// ListAttempts lists recorded attempts
func (r *SQLRepository) ListAttempts(ctx context.Context, filePath string, limit int) ([]*Attempt, error) {
	q := r.builder.Select("id", "file_path", "attempt", "command", "exit_code", "kind", "output", "created_at").
		From("build_attempts").
		OrderBy("created_at DESC", "id DESC")
	if filePath != "" {
		q = q.Where(sq.Eq{"file_path": filePath})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list build attempts query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing list build attempts query: %w", err)
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		var a Attempt
		var output sql.NullString
		if err := rows.Scan(&a.ID, &a.FilePath, &a.Attempt, &a.Command, &a.ExitCode, &a.Kind, &output, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning build attempt: %w", err)
		}
		a.Output = output.String
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating build attempts: %w", err)
	}

	return attempts, nil
}
