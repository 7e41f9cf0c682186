package assist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/codeboost/internal/config"
	"github.com/tildaslashalef/codeboost/internal/database"
	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/loggy"
)

func newSQLiteRepository(t *testing.T) *SQLRepository {
	t.Helper()
	cfg := config.New()
	cfg.Database = config.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "codeboost.db"),
		JournalMode:     "WAL",
		SynchronousMode: "NORMAL",
		BusyTimeout:     5000,
		ForeignKeys:     true,
		ConnMaxLife:     time.Minute,
	}

	require.NoError(t, database.InitDB(cfg))
	t.Cleanup(func() { _ = database.CloseDB() })
	_, err := database.RunMigrations()
	require.NoError(t, err)

	db, err := database.DB()
	require.NoError(t, err)
	return NewSQLRepository(db, loggy.NewNoopLogger())
}

func TestSuggestionIndexAfterApply(t *testing.T) {
	ctx := context.Background()
	client := &mockLLM{}
	svc := NewService(newSQLiteRepository(t), client, testConfig(), loggy.NewNoopLogger())
	doc := document.New("/w/calc.py", "a = 1\nb = 2\nc = 3\n")

	client.On("GenerateText", ctx, feature("suggest")).
		Return(reply("1 - Bug - a = 10\n2 - Bug - b = 20\n3 - Bug - c = 30"), nil).Once()
	client.On("GenerateText", ctx, feature("suggest")).
		Return(reply("3 - Bug - c = 300"), nil).Once()

	_, err := svc.Suggest(ctx, doc)
	require.NoError(t, err)

	first, err := svc.SuggestionAt(ctx, doc.Path(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a = 10", first.Fix)
	require.NoError(t, svc.Apply(ctx, doc, first))

	second, err := svc.SuggestionAt(ctx, doc.Path(), 2)
	require.NoError(t, err)
	assert.Equal(t, "b = 20", second.Fix)

	_, err = svc.SuggestionAt(ctx, doc.Path(), 1)
	assert.ErrorIs(t, err, ErrSuggestionNotOpen)

	latest, err := svc.LatestSuggestions(ctx, doc.Path())
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, SuggestionStatusApplied, latest[0].Status)
	assert.Equal(t, SuggestionStatusOpen, latest[2].Status)

	_, err = svc.Suggest(ctx, doc)
	require.NoError(t, err)

	again, err := svc.SuggestionAt(ctx, doc.Path(), 1)
	require.NoError(t, err)
	assert.Equal(t, "c = 300", again.Fix)
	_, err = svc.SuggestionAt(ctx, doc.Path(), 2)
	assert.ErrorIs(t, err, ErrSuggestionNotFound)

	old, err := svc.repo.GetSuggestion(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, SuggestionStatusSuperseded, old.Status)
}
