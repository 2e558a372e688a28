package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "history.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported history driver")
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Record(ctx, Record{RunID: "r1", Query: "what is ai", Answer: "a1", Status: "success", Sources: 2, Iterations: 3, DurationMs: 120})
	s.Record(ctx, Record{RunID: "r2", Query: "what is ml", Answer: "a2", Status: "success", Sources: 1, Iterations: 2, DurationMs: 80})
	s.Record(ctx, Record{RunID: "r3", Query: "", Status: "error", DurationMs: 1})

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// 倒序：最新的在前
	assert.Equal(t, "r3", recent[0].RunID)
	assert.Equal(t, "r2", recent[1].RunID)
}

func TestRecentDefaultLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		s.Record(ctx, Record{RunID: "r", Query: "q", Status: "success"})
	}

	recent, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 20)
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	s.Record(context.Background(), Record{})

	recent, err := s.Recent(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, recent)

	count, err := s.Count(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, s.Close())
}

// Postgres 方言下的 SQL 形状用 sqlmock 验证.
func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{Conn: mockDB})
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return mockDB, mock, NewStore(gormDB, zap.NewNop())
}

func TestRecordInsertSQL(t *testing.T) {
	mockDB, mock, s := setupMockDB(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "query_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	s.Record(context.Background(), Record{RunID: "r1", Query: "q", Status: "success"})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSQL(t *testing.T) {
	mockDB, mock, s := setupMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "query_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
