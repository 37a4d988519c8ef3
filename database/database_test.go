package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/pkg"
)

func openTemp(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := New(Options{Driver: SQLite, Path: path}, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestNewAppliesMigrationsOnce(t *testing.T) {
	db, path := openTemp(t)

	var count int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, db.Close())

	reopened, err := New(Options{Driver: SQLite, Path: path}, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	for _, table := range []string{"profiles", "messages", "message_reads"} {
		var n int
		err := reopened.Conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(Options{Driver: "oracle"}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, _ := openTemp(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO profiles (id, username) VALUES ('u1', 'ada')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM profiles").Scan(&n))
	assert.Zero(t, n)
}

func TestWithTxCommits(t *testing.T) {
	db, _ := openTemp(t)
	ctx := context.Background()

	err := WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO profiles (id, username) VALUES ('u1', 'ada')")
		return err
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM profiles").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestBuilderPlaceholders(t *testing.T) {
	lite := &DB{Dialect: SQLite}
	query, _, err := lite.Builder().Select("id").From("messages").Where("id < ?", 5).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM messages WHERE id < ?", query)

	pg := &DB{Dialect: Postgres}
	query, _, err = pg.Builder().Select("id").From("messages").Where("id < ?", 5).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM messages WHERE id < $1", query)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	plain := errors.New("syntax error")
	assert.Same(t, plain, Classify(plain))

	for _, err := range []error{
		driver.ErrBadConn,
		fmt.Errorf("query: %w", context.DeadlineExceeded),
		&pq.Error{Code: "08006"},
		&pq.Error{Code: "57P01"},
		&pq.Error{Code: "40P01"},
	} {
		classified := Classify(err)
		assert.ErrorIs(t, classified, pkg.ErrTransient, err.Error())
		assert.ErrorIs(t, classified, err)
	}

	assert.NotErrorIs(t, Classify(&pq.Error{Code: "23505"}), pkg.ErrTransient)

	already := fmt.Errorf("%w: locked", pkg.ErrTransient)
	assert.Same(t, already, Classify(already))
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`
-- comment; with semicolon
CREATE TABLE a (x TEXT DEFAULT 'a;b');
INSERT INTO a VALUES ('it''s');
SELECT 1`)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "'a;b'")
	assert.Contains(t, stmts[1], "'it''s'")
	assert.Equal(t, "SELECT 1", stmts[2])
}
