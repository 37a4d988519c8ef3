package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/realAndi/PWAChat/database"
	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
)

type sqlParticipantRepo struct {
	db *database.DB
}

// NewSQLParticipantRepo, constructor. Interface döner.
func NewSQLParticipantRepo(db *database.DB) ParticipantRepository {
	return &sqlParticipantRepo{db: db}
}

func (r *sqlParticipantRepo) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	query, args, err := r.db.Builder().
		Select("id", "username", "status", "invite_key", "created_at", "last_seen").
		From("profiles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build participant query: %w", err)
	}

	var (
		p         models.Participant
		inviteKey sql.NullString
		lastSeen  sql.NullTime
	)
	err = r.db.Conn.QueryRowContext(ctx, query, args...).
		Scan(&p.ID, &p.Username, &p.Status, &inviteKey, &p.CreatedAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant %s: %w", id, pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", database.Classify(err))
	}

	if inviteKey.Valid {
		p.InviteKey = &inviteKey.String
	}
	if lastSeen.Valid {
		p.LastSeen = &lastSeen.Time
	}
	return &p, nil
}

func (r *sqlParticipantRepo) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query, args, err := r.db.Builder().
		Select("id", "username").
		From("profiles").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build username query: %w", err)
	}

	rows, err := r.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load usernames: %w", database.Classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		names[id] = username
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usernames: %w", database.Classify(err))
	}
	return names, nil
}

func (r *sqlParticipantRepo) CountActive(ctx context.Context) (int, error) {
	query, args, err := r.db.Builder().
		Select("COUNT(*)").
		From("profiles").
		Where(sq.Eq{"status": models.ParticipantStatusRegistered, "invite_key": nil}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.Conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active participants: %w", database.Classify(err))
	}
	return count, nil
}

func (r *sqlParticipantRepo) Create(ctx context.Context, p *models.Participant) error {
	if p.Status == "" {
		p.Status = models.ParticipantStatusRegistered
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	_, err := r.db.Builder().
		Insert("profiles").
		Columns("id", "username", "status", "invite_key", "created_at").
		Values(p.ID, p.Username, string(p.Status), p.InviteKey, p.CreatedAt).
		RunWith(r.db.Conn).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", database.Classify(err))
	}
	return nil
}

func (r *sqlParticipantRepo) TouchLastSeen(ctx context.Context, id string) error {
	_, err := r.db.Builder().
		Update("profiles").
		Set("last_seen", time.Now().UTC().Truncate(time.Microsecond)).
		Where(sq.Eq{"id": id}).
		RunWith(r.db.Conn).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update last_seen: %w", database.Classify(err))
	}
	return nil
}
