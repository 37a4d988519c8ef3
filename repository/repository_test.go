package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/database"
	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
)

type fixture struct {
	db           *database.DB
	messages     MessageRepository
	participants ParticipantRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(database.Options{
		Driver: database.SQLite,
		Path:   filepath.Join(t.TempDir(), "chat.db"),
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fixture{
		db:           db,
		messages:     NewSQLMessageRepo(db),
		participants: NewSQLParticipantRepo(db),
	}
}

func (f *fixture) participant(t *testing.T, id string) *models.Participant {
	t.Helper()
	p := &models.Participant{ID: id, Username: gofakeit.Username() + "_" + id}
	require.NoError(t, f.participants.Create(context.Background(), p))
	return p
}

func (f *fixture) append(t *testing.T, author *models.Participant, body string) *models.Message {
	t.Helper()
	m := &models.Message{AuthorID: author.ID, AuthorName: author.Username, Body: body}
	require.NoError(t, f.messages.Append(context.Background(), m))
	return m
}

func TestAppendAssignsIncreasingIDsAndSelfRead(t *testing.T) {
	f := newFixture(t)
	alice := f.participant(t, "alice")

	first := f.append(t, alice, "one")
	second := f.append(t, alice, "two")

	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, []string{"alice"}, first.ReadBy.Slice())

	stored, err := f.messages.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", stored.Body)
	assert.Equal(t, alice.Username, stored.AuthorName)
	assert.True(t, stored.ReadBy.Has("alice"))
	assert.WithinDuration(t, first.CreatedAt, stored.CreatedAt, time.Millisecond)
}

func TestListBeforeReturnsNewestFirstWithCursor(t *testing.T) {
	f := newFixture(t)
	alice := f.participant(t, "alice")

	var ids []int64
	for i := 0; i < 25; i++ {
		ids = append(ids, f.append(t, alice, gofakeit.Sentence(4)).ID)
	}

	newest, err := f.messages.ListBefore(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Len(t, newest, 20)
	assert.Equal(t, ids[24], newest[0].ID)
	assert.Equal(t, ids[5], newest[19].ID)

	older, err := f.messages.ListBefore(context.Background(), ids[5], 20)
	require.NoError(t, err)
	require.Len(t, older, 5)
	assert.Equal(t, ids[4], older[0].ID)
	assert.Equal(t, ids[0], older[4].ID)
	for _, m := range older {
		assert.True(t, m.ReadBy.Has("alice"))
	}
}

func TestListBeforeEmptyStore(t *testing.T) {
	f := newFixture(t)
	page, err := f.messages.ListBefore(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMarkReadIsSetUnionAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.participant(t, "alice")
	f.participant(t, "bob")

	m1 := f.append(t, alice, "hi")
	m2 := f.append(t, alice, "there")

	known, err := f.messages.MarkRead(ctx, "bob", []int64{m2.ID, m1.ID, m1.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{m1.ID, m2.ID}, known)

	known, err = f.messages.MarkRead(ctx, "bob", []int64{m1.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{m1.ID}, known)

	stored, err := f.messages.GetByID(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, stored.ReadBy.Slice())

	var rows int
	require.NoError(t, f.db.Conn.QueryRow("SELECT COUNT(*) FROM message_reads WHERE message_id = ?", m1.ID).Scan(&rows))
	assert.Equal(t, 2, rows)
}

func TestMarkReadSkipsUnknownIDs(t *testing.T) {
	f := newFixture(t)
	alice := f.participant(t, "alice")
	m := f.append(t, alice, "hi")

	known, err := f.messages.MarkRead(context.Background(), "bob", []int64{m.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, []int64{m.ID}, known)

	known, err = f.messages.MarkRead(context.Background(), "bob", []int64{424242})
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestGetByIDNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.messages.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestToleratesExternalTruncate(t *testing.T) {
	f := newFixture(t)
	alice := f.participant(t, "alice")
	f.append(t, alice, "gone soon")

	_, err := f.db.Conn.Exec("DELETE FROM messages")
	require.NoError(t, err)

	page, err := f.messages.ListBefore(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Empty(t, page)

	next := f.append(t, alice, "fresh start")
	assert.Positive(t, next.ID)
}

func TestParticipantQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.participant(t, "alice")
	f.participant(t, "bob")
	invite := "k-123"
	require.NoError(t, f.participants.Create(ctx, &models.Participant{ID: "carol", Username: "carol", InviteKey: &invite}))
	require.NoError(t, f.participants.Create(ctx, &models.Participant{ID: "dave", Username: "dave", Status: models.ParticipantStatusPending}))

	count, err := f.participants.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	names, err := f.participants.DisplayNames(ctx, []string{"alice", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": alice.Username}, names)

	empty, err := f.participants.DisplayNames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	got, err := f.participants.GetByID(ctx, "carol")
	require.NoError(t, err)
	require.NotNil(t, got.InviteKey)
	assert.False(t, got.IsActive())
	assert.Nil(t, got.LastSeen)

	require.NoError(t, f.participants.TouchLastSeen(ctx, "alice"))
	got, err = f.participants.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, got.LastSeen)
	assert.True(t, got.IsActive())

	_, err = f.participants.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}
