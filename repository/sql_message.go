package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/realAndi/PWAChat/database"
	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
)

var messageColumns = []string{"id", "user_id", "username", "content", "created_at"}

// sqlMessageRepo, MessageRepository'nin squirrel ile yazılmış implementasyonu.
// Aynı kod SQLite ve PostgreSQL'de çalışır; fark builder'ın placeholder formatıdır.
type sqlMessageRepo struct {
	db *database.DB
}

// NewSQLMessageRepo, constructor. Interface döner.
func NewSQLMessageRepo(db *database.DB) MessageRepository {
	return &sqlMessageRepo{db: db}
}

func (r *sqlMessageRepo) Append(ctx context.Context, message *models.Message) error {
	if message.CreatedAt.IsZero() {
		// PostgreSQL mikrosaniye tutar; okunan değer yazılanla aynı olsun.
		message.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	insertMsg, msgArgs, err := r.db.Builder().
		Insert("messages").
		Columns("user_id", "username", "content", "created_at").
		Values(message.AuthorID, message.AuthorName, message.Body, message.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build message insert: %w", err)
	}

	err = database.WithTx(ctx, r.db.Conn, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, insertMsg, msgArgs...).Scan(&message.ID); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		// Yazar mesajı oluşturduğu anda okumuş sayılır.
		insertRead, readArgs, err := r.db.Builder().
			Insert("message_reads").
			Columns("message_id", "reader_id").
			Values(message.ID, message.AuthorID).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build self-read insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertRead, readArgs...); err != nil {
			return fmt.Errorf("failed to insert self-read: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	message.ReadBy = models.NewReadBySet(message.AuthorID)
	return nil
}

func (r *sqlMessageRepo) ListBefore(ctx context.Context, cursor int64, limit int) ([]models.Message, error) {
	q := r.db.Builder().
		Select(messageColumns...).
		From("messages").
		OrderBy("id DESC").
		Limit(uint64(limit))
	if cursor > 0 {
		q = q.Where(sq.Lt{"id": cursor})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build page query: %w", err)
	}

	rows, err := r.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", database.Classify(err))
	}

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.AuthorID, &m.AuthorName, &m.Body, &m.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", database.Classify(err))
	}

	if len(messages) == 0 {
		return messages, nil
	}

	// Okuyucu setlerini tek sorguda yükle (N+1 önleme).
	ids := make([]int64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	readers, err := r.loadReadBy(ctx, r.db.Conn, ids)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].ReadBy = readers[messages[i].ID]
	}

	return messages, nil
}

func (r *sqlMessageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query, args, err := r.db.Builder().
		Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build message query: %w", err)
	}

	var m models.Message
	err = r.db.Conn.QueryRowContext(ctx, query, args...).
		Scan(&m.ID, &m.AuthorID, &m.AuthorName, &m.Body, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by id: %w", database.Classify(err))
	}

	readers, err := r.loadReadBy(ctx, r.db.Conn, []int64{id})
	if err != nil {
		return nil, err
	}
	m.ReadBy = readers[id]
	return &m, nil
}

// MarkRead, tek bir INSERT ... SELECT ile set-union uygular:
// var olmayan id'ler SELECT'ten düşer, zaten okunmuş çiftler ON CONFLICT ile atlanır.
// Aynı çağrı tekrar edilirse hiçbir satır değişmez.
func (r *sqlMessageRepo) MarkRead(ctx context.Context, readerID string, ids []int64) ([]int64, error) {
	ids = dedupeIDs(ids)

	existingQuery, existingArgs, err := r.db.Builder().
		Select("id").
		From("messages").
		Where(sq.Eq{"id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build id lookup: %w", err)
	}

	// İç SELECT varsayılan (?) formatla kurulur; dış builder placeholder'ları
	// dialect'e göre tek seferde yeniden numaralar.
	source := sq.Select("id").
		Column("CAST(? AS TEXT)", readerID).
		From("messages").
		Where(sq.Eq{"id": ids})
	insertQuery, insertArgs, err := r.db.Builder().
		Insert("message_reads").
		Columns("message_id", "reader_id").
		Select(source).
		Suffix("ON CONFLICT (message_id, reader_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build read insert: %w", err)
	}

	var known []int64
	err = database.WithTx(ctx, r.db.Conn, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, existingQuery, existingArgs...)
		if err != nil {
			return fmt.Errorf("failed to look up message ids: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan message id: %w", err)
			}
			known = append(known, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if len(known) == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
			return fmt.Errorf("failed to insert reads: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return known, nil
}

// loadReadBy, verilen mesajların okuyucu setlerini tek sorguda döner.
func (r *sqlMessageRepo) loadReadBy(ctx context.Context, q database.TxQuerier, ids []int64) (map[int64]models.ReadBySet, error) {
	query, args, err := r.db.Builder().
		Select("message_id", "reader_id").
		From("message_reads").
		Where(sq.Eq{"message_id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build read query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load read-by sets: %w", database.Classify(err))
	}
	defer rows.Close()

	result := make(map[int64]models.ReadBySet, len(ids))
	for rows.Next() {
		var (
			messageID int64
			readerID  string
		)
		if err := rows.Scan(&messageID, &readerID); err != nil {
			return nil, fmt.Errorf("failed to scan read row: %w", err)
		}
		set := result[messageID]
		set.Add(readerID)
		result[messageID] = set
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate read rows: %w", database.Classify(err))
	}

	return result, nil
}

// dedupeIDs, id listesini sıralar ve tekrarları atar.
func dedupeIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
