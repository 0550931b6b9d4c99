package content

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := NewSQLStore(sqlx.NewDb(db, "postgres"))
	store.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestSQLStoreUpsert(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO content_blocks (key, page, block_type, value, updated_at)")).
		WithArgs("home.hero.title", "home", "text", []byte(`{"text":"Built to last"}`), updated).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key", "page", "block_type", "value", "created_at", "updated_at"}).
			AddRow("b-1", "home.hero.title", "home", "text", []byte(`{"text":"Built to last"}`), created, updated))

	block, err := store.Upsert(context.Background(), "home.hero.title", "home", BlockText, BlockValue{Text: "Built to last"})
	require.NoError(t, err)
	assert.Equal(t, "b-1", block.ID)
	assert.Equal(t, BlockText, block.BlockType)
	assert.Equal(t, "Built to last", block.Value.Text)
	assert.Equal(t, created, block.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreUpsertError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO content_blocks")).
		WillReturnError(errors.New("permission denied for table content_blocks"))

	_, err := store.Upsert(context.Background(), "k", "k", BlockText, BlockValue{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
