package assist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/ulid"
)

var (
	// ErrAnalysisNotFound is returned when no analysis matches
	ErrAnalysisNotFound = errors.New("analysis not found")

	// ErrSuggestionNotFound is returned when no suggestion matches
	ErrSuggestionNotFound = errors.New("suggestion not found")

	// ErrSuggestionNotOpen is returned when a suggestion was already applied
	// or belongs to an older analysis
	ErrSuggestionNotOpen = errors.New("suggestion is not open")
)

// Repository defines persistence for analyses and their suggestions
type Repository interface {
	// SaveAnalysis stores the analysis with its suggestions and marks every
	// open suggestion of older analyses of the same file superseded
	SaveAnalysis(ctx context.Context, analysis *Analysis) error
	GetAnalysis(ctx context.Context, id string) (*Analysis, error)
	LatestAnalysis(ctx context.Context, filePath string) (*Analysis, error)
	// ListAnalyses returns the newest analyses first. An empty filePath lists all files.
	ListAnalyses(ctx context.Context, filePath string, limit int) ([]*Analysis, error)
	GetSuggestionsByAnalysis(ctx context.Context, analysisID string) ([]*Suggestion, error)
	GetSuggestion(ctx context.Context, id string) (*Suggestion, error)
	MarkApplied(ctx context.Context, id string, at time.Time) error
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

var suggestionColumns = []string{"s.id", "s.analysis_id", "s.line", "s.issue_type", "s.fix", "s.status", "s.created_at", "s.applied_at"}

// SaveAnalysis stores the analysis and its suggestions in one transaction
func (r *SQLRepository) SaveAnalysis(ctx context.Context, analysis *Analysis) error {
	if analysis.ID == "" {
		analysis.ID = ulid.AnalysisID()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now()
	}

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

	query, args, err := r.builder.Update("suggestions").
		Set("status", SuggestionStatusSuperseded).
		Where(sq.Eq{"status": SuggestionStatusOpen}).
		Where(sq.Expr("analysis_id IN (SELECT id FROM analyses WHERE file_path = ?)", analysis.FilePath)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building supersede query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("superseding previous suggestions: %w", err)
	}

	query, args, err = r.builder.Insert("analyses").
		Columns("id", "file_path", "content_hash", "model", "raw_response", "created_at").
		Values(analysis.ID, analysis.FilePath, analysis.ContentHash, analysis.Model, analysis.RawResponse, analysis.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert analysis query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}

	for _, s := range analysis.Suggestions {
		if s.ID == "" {
			s.ID = ulid.SuggestionID()
		}
		s.AnalysisID = analysis.ID
		if s.Status == "" {
			s.Status = SuggestionStatusOpen
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = analysis.CreatedAt
		}

		query, args, err = r.builder.Insert("suggestions").
			Columns("id", "analysis_id", "line", "issue_type", "fix", "status", "created_at").
			Values(s.ID, s.AnalysisID, s.Line, s.IssueType, s.Fix, s.Status, s.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("building insert suggestion query: %w", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting suggestion: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing analysis: %w", err)
	}

	r.logger.Debug("Saved analysis", "id", analysis.ID, "path", analysis.FilePath, "suggestions", len(analysis.Suggestions))
	return nil
}

func (r *SQLRepository) selectAnalyses() sq.SelectBuilder {
	return r.builder.Select("id", "file_path", "content_hash", "model", "raw_response", "created_at").
		From("analyses")
}

func scanAnalysis(row sq.RowScanner) (*Analysis, error) {
	var a Analysis
	var raw sql.NullString
	if err := row.Scan(&a.ID, &a.FilePath, &a.ContentHash, &a.Model, &raw, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.RawResponse = raw.String
	return &a, nil
}

// GetAnalysis retrieves an analysis and its suggestions by ID
func (r *SQLRepository) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	query, args, err := r.selectAnalyses().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get analysis query: %w", err)
	}
	return r.getAnalysis(ctx, query, args)
}

// LatestAnalysis retrieves the newest analysis for a file with its suggestions
func (r *SQLRepository) LatestAnalysis(ctx context.Context, filePath string) (*Analysis, error) {
	query, args, err := r.selectAnalyses().
		Where(sq.Eq{"file_path": filePath}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building latest analysis query: %w", err)
	}
	return r.getAnalysis(ctx, query, args)
}

func (r *SQLRepository) getAnalysis(ctx context.Context, query string, args []interface{}) (*Analysis, error) {
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("executing get analysis query: %w", err)
	}

	suggestions, err := r.GetSuggestionsByAnalysis(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Suggestions = suggestions
	return a, nil
}

// ListAnalyses lists analyses without their suggestions
func (r *SQLRepository) ListAnalyses(ctx context.Context, filePath string, limit int) ([]*Analysis, error) {
	q := r.selectAnalyses().OrderBy("created_at DESC", "id DESC")
	if filePath != "" {
		q = q.Where(sq.Eq{"file_path": filePath})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list analyses query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing list analyses query: %w", err)
	}
	defer rows.Close()

	var analyses []*Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analyses: %w", err)
	}

	return analyses, nil
}

// GetSuggestionsByAnalysis returns suggestions in the order they were parsed
func (r *SQLRepository) GetSuggestionsByAnalysis(ctx context.Context, analysisID string) ([]*Suggestion, error) {
	query, args, err := r.builder.Select(suggestionColumns...).
		From("suggestions s").
		Where(sq.Eq{"s.analysis_id": analysisID}).
		OrderBy("s.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get suggestions query: %w", err)
	}
	return r.querySuggestions(ctx, query, args)
}

// GetSuggestion retrieves a suggestion by ID
func (r *SQLRepository) GetSuggestion(ctx context.Context, id string) (*Suggestion, error) {
	query, args, err := r.builder.Select(suggestionColumns...).
		From("suggestions s").
		Where(sq.Eq{"s.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get suggestion query: %w", err)
	}

	s, err := scanSuggestion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("executing get suggestion query: %w", err)
	}
	return s, nil
}

// MarkApplied records that a suggestion was written into its file
func (r *SQLRepository) MarkApplied(ctx context.Context, id string, at time.Time) error {
	query, args, err := r.builder.Update("suggestions").
		Set("status", SuggestionStatusApplied).
		Set("applied_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building mark applied query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("executing mark applied query: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return ErrSuggestionNotFound
	}
	return nil
}

func (r *SQLRepository) querySuggestions(ctx context.Context, query string, args []interface{}) ([]*Suggestion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing suggestions query: %w", err)
	}
	defer rows.Close()

	var out []*Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating suggestions: %w", err)
	}
	return out, nil
}

func scanSuggestion(row sq.RowScanner) (*Suggestion, error) {
	var s Suggestion
	var appliedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.AnalysisID, &s.Line, &s.IssueType, &s.Fix, &s.Status, &s.CreatedAt, &appliedAt); err != nil {
		return nil, err
	}
	if appliedAt.Valid {
		t := appliedAt.Time
		s.AppliedAt = &t
	}
	return &s, nil
}
