// Package database, store bağlantısını ve migration sistemini yönetir.
//
// İki dialect desteklenir:
//   - sqlite:   modernc.org/sqlite (pure-Go, CGO gerekmez). Varsayılan.
//   - postgres: github.com/lib/pq
//
// Driver'lar blank import ile kendini database/sql'e kaydeder.
// SQL üretimi squirrel ile yapılır; dialect farkı yalnızca placeholder
// formatında (? / $1) ve migration dosyalarındadır.
package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Dialect, desteklenen veritabanı türü.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// recoverableErrors, yarım kalmış bir migration tekrar çalıştırıldığında
// güvenle atlanabilecek hata pattern'ları.
var recoverableErrors = []string{
	"duplicate column name",
	"already exists",
}

// Options, bağlantı parametreleri.
type Options struct {
	Driver Dialect
	Path   string // sqlite dosya yolu
	URL    string // postgres DSN
}

// DB, bağlantı havuzunu ve dialect bilgisini saran struct.
// *sql.DB thread-safe'tir; birden fazla goroutine aynı anda kullanabilir.
type DB struct {
	Conn    *sql.DB
	Dialect Dialect

	log *zap.SugaredLogger
}

// New, bağlantıyı açar, ping'ler ve embed edilmiş migration'ları çalıştırır.
func New(opts Options, log *zap.SugaredLogger) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch opts.Driver {
	case SQLite, "":
		opts.Driver = SQLite
		if dir := filepath.Dir(opts.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		// foreign_keys: SQLite'ta varsayılan kapalı.
		// journal_mode=WAL: eşzamanlı okuma/yazma.
		// busy_timeout: kilitli veritabanında hemen SQLITE_BUSY dönmek yerine bekle.
		dsn := opts.Path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		conn, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// SQLite tek yazıcılıdır; havuzu tek bağlantıya indirmek
		// transaction yükseltmelerinde SQLITE_BUSY almayı engeller.
		conn.SetMaxOpenConns(1)

	case Postgres:
		conn, err = sql.Open("postgres", opts.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", Classify(err))
	}

	db := &DB{Conn: conn, Dialect: opts.Driver, log: log}

	migrationsFS, err := fs.Sub(EmbeddedMigrations, "migrations/"+string(opts.Driver))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	if err := db.runMigrations(migrationsFS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Infow("connected and migrations applied", "driver", opts.Driver)
	return db, nil
}

// Builder, dialect'e uygun placeholder formatıyla bir squirrel builder döner.
func (db *DB) Builder() sq.StatementBuilderType {
	if db.Dialect == Postgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// Close, bağlantı havuzunu kapatır.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// runMigrations, SQL dosyalarını ada göre sırayla çalıştırır (001_, 002_, ...).
// schema_migrations tablosu hangi dosyaların uygulandığını tutar; her dosya bir kez çalışır.
func (db *DB) runMigrations(migrationsFS fs.FS) error {
	if _, err := db.Conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	applied := make(map[string]bool)
	rows, err := db.Conn.Query("SELECT filename FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate migration rows: %w", err)
	}

	for _, file := range sqlFiles {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		if err := db.execStatements(file, string(content)); err != nil {
			return err
		}

		if _, err := db.Builder().
			Insert("schema_migrations").
			Columns("filename").
			Values(file).
			RunWith(db.Conn).
			Exec(); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}

		db.log.Infow("migration applied", "file", file)
	}

	return nil
}

// execStatements, bir migration dosyasını statement-by-statement çalıştırır.
// recoverableErrors'daki hatalar loglanır ve atlanır.
func (db *DB) execStatements(filename, content string) error {
	for i, stmt := range splitStatements(content) {
		if _, err := db.Conn.Exec(stmt); err != nil {
			errMsg := err.Error()
			recoverable := false
			for _, pattern := range recoverableErrors {
				if strings.Contains(errMsg, pattern) {
					recoverable = true
					break
				}
			}

			if recoverable {
				db.log.Warnw("migration statement skipped", "file", filename, "statement", i+1, "error", errMsg)
				continue
			}

			return fmt.Errorf("failed to execute migration %s (statement %d): %w", filename, i+1, err)
		}
	}

	return nil
}

// splitStatements, SQL metnini noktalı virgülden böler.
// Tek tırnaklı string literal'lerin ve "--" satır yorumlarının içindeki
// noktalı virgüller yok sayılır.
func splitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if !inString && ch == '-' && i+1 < len(sql) && sql[i+1] == '-' {
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
			continue
		}

		if ch == '\'' {
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				current.WriteByte(ch)
				current.WriteByte(sql[i+1])
				i++
				continue
			}
			inString = !inString
		}

		if ch == ';' && !inString {
			if s := strings.TrimSpace(current.String()); s != "" {
				statements = append(statements, s)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		statements = append(statements, s)
	}

	return statements
}
