package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/database"
	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/pubsub"
	"github.com/realAndi/PWAChat/repository"
)

type published struct {
	channel string
	event   string
	payload any
	// committed, yayın anında mesajın store'da görünür olup olmadığı.
	committed bool
}

// recordingPublisher, yayınları kaydeder ve her yayında store'u kontrol eder.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
	repo   repository.MessageRepository
}

func (p *recordingPublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	committed := false
	switch v := payload.(type) {
	case *models.Message:
		_, err := p.repo.GetByID(ctx, v.ID)
		committed = err == nil
	case *models.ReadReceipt:
		m, err := p.repo.GetByID(ctx, v.MessageIDs[0])
		committed = err == nil && m.ReadBy.Has(v.ReaderID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{channel: channel, event: event, payload: payload, committed: committed})
	return p.err
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

type serviceFixture struct {
	svc          MessageService
	publisher    *recordingPublisher
	participants repository.ParticipantRepository
	messages     repository.MessageRepository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db, err := database.New(database.Options{
		Driver: database.SQLite,
		Path:   filepath.Join(t.TempDir(), "chat.db"),
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	messages := repository.NewSQLMessageRepo(db)
	participants := repository.NewSQLParticipantRepo(db)
	publisher := &recordingPublisher{repo: messages}

	ctx := context.Background()
	require.NoError(t, participants.Create(ctx, &models.Participant{ID: "alice", Username: "Alice"}))
	require.NoError(t, participants.Create(ctx, &models.Participant{ID: "bob", Username: "Bob"}))

	return &serviceFixture{
		svc:          NewMessageService(messages, participants, publisher, "", zap.NewNop().Sugar()),
		publisher:    publisher,
		participants: participants,
		messages:     messages,
	}
}

func (f *serviceFixture) send(t *testing.T, author, body string) *models.Message {
	t.Helper()
	m, err := f.svc.Send(context.Background(), author, &models.CreateMessageRequest{Content: body})
	require.NoError(t, err)
	return m
}

func TestSendPublishesOnceAfterCommit(t *testing.T) {
	f := newServiceFixture(t)

	m := f.send(t, "alice", "  hello  ")
	assert.Equal(t, "hello", m.Body)
	assert.Equal(t, "Alice", m.AuthorName)
	assert.True(t, m.ReadBy.Has("alice"))

	events := f.publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, pubsub.ChannelChat, events[0].channel)
	assert.Equal(t, pubsub.EventNewMessage, events[0].event)
	assert.True(t, events[0].committed)
	assert.Equal(t, m, events[0].payload)
}

func TestSendValidation(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Send(context.Background(), "alice", &models.CreateMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, pkg.ErrValidation)

	_, err = f.svc.Send(context.Background(), "ghost", &models.CreateMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	assert.Empty(t, f.publisher.all())
}

func TestSendSucceedsWhenBroadcastFails(t *testing.T) {
	f := newServiceFixture(t)
	f.publisher.err = errors.New("broker down")

	m := f.send(t, "alice", "still stored")

	stored, err := f.messages.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "still stored", stored.Body)
}

func TestSendPublishesEvenIfRequestCancelled(t *testing.T) {
	f := newServiceFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, err := f.svc.Send(ctx, "alice", &models.CreateMessageRequest{Content: "hi"})
	require.NoError(t, err)
	cancel()

	f.svc.(*messageService).publish(ctx, pubsub.EventNewMessage, m)
	assert.Len(t, f.publisher.all(), 2)
}

func TestPageReturnsAscendingWithNamesAndHasMore(t *testing.T) {
	f := newServiceFixture(t)

	var sent []*models.Message
	for i := 0; i < 25; i++ {
		author := "alice"
		if i%2 == 1 {
			author = "bob"
		}
		sent = append(sent, f.send(t, author, "msg"))
	}

	page, err := f.svc.Page(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, models.PageSize)
	assert.True(t, page.HasMore)
	assert.Equal(t, sent[5].ID, page.Messages[0].ID)
	assert.Equal(t, sent[24].ID, page.Messages[19].ID)
	for i := 1; i < len(page.Messages); i++ {
		assert.Less(t, page.Messages[i-1].ID, page.Messages[i].ID)
	}
	assert.Equal(t, map[string]string{"alice": "Alice", "bob": "Bob"}, page.Usernames)

	older, err := f.svc.Page(context.Background(), page.Messages[0].ID, models.PageSize)
	require.NoError(t, err)
	require.Len(t, older.Messages, 5)
	assert.False(t, older.HasMore)
	assert.Equal(t, sent[0].ID, older.Messages[0].ID)
}

func TestPageEmptyStore(t *testing.T) {
	f := newServiceFixture(t)
	page, err := f.svc.Page(context.Background(), 0, models.PageSize)
	require.NoError(t, err)
	assert.NotNil(t, page.Messages)
	assert.Empty(t, page.Messages)
	assert.False(t, page.HasMore)

	_, err = f.svc.Page(context.Background(), -1, models.PageSize)
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestPagePrefersCurrentProfileName(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.messages.Append(ctx, &models.Message{AuthorID: "bob", AuthorName: "Bobby", Body: "x", CreatedAt: time.Now().UTC()}))

	page, err := f.svc.Page(ctx, 0, models.PageSize)
	require.NoError(t, err)
	assert.Equal(t, "Bob", page.Usernames["bob"])
}

func TestMarkReadPublishesSingleReceipt(t *testing.T) {
	f := newServiceFixture(t)
	m1 := f.send(t, "alice", "one")
	m2 := f.send(t, "alice", "two")

	receipt, err := f.svc.MarkRead(context.Background(), "bob", &models.MarkReadRequest{MessageIDs: []int64{m2.ID, m1.ID, 999}})
	require.NoError(t, err)
	assert.Equal(t, []int64{m1.ID, m2.ID}, receipt.MessageIDs)
	assert.Equal(t, "bob", receipt.ReaderID)

	events := f.publisher.all()
	require.Len(t, events, 3)
	last := events[2]
	assert.Equal(t, pubsub.EventMessageRead, last.event)
	assert.True(t, last.committed)
	assert.Equal(t, receipt, last.payload)

	// Tekrar: veri değişmez, yine tek yayın.
	_, err = f.svc.MarkRead(context.Background(), "bob", &models.MarkReadRequest{MessageIDs: []int64{m1.ID}})
	require.NoError(t, err)
	assert.Len(t, f.publisher.all(), 4)

	stored, err := f.messages.GetByID(context.Background(), m1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, stored.ReadBy.Slice())
}

func TestMarkReadUnknownIDsIsNoop(t *testing.T) {
	f := newServiceFixture(t)

	receipt, err := f.svc.MarkRead(context.Background(), "bob", &models.MarkReadRequest{MessageIDs: []int64{41, 42}})
	require.NoError(t, err)
	assert.Empty(t, receipt.MessageIDs)
	assert.Empty(t, f.publisher.all())
}

func TestMarkReadValidation(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.MarkRead(context.Background(), "bob", &models.MarkReadRequest{})
	assert.ErrorIs(t, err, pkg.ErrValidation)
	_, err = f.svc.MarkRead(context.Background(), "bob", &models.MarkReadRequest{MessageIDs: []int64{-3}})
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestMarkReadBatchLimit(t *testing.T) {
	f := newServiceFixture(t)

	ids := make([]int64, models.MaxMarkReadBatch+1)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	_, err := f.svc.MarkRead(context.Background(), "bob", &models.MarkReadRequest{MessageIDs: ids[:models.MaxMarkReadBatch]})
	require.NoError(t, err)

	_, err = f.svc.MarkRead(context.Background(), "bob", &models.MarkReadRequest{MessageIDs: ids})
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestConcurrentMarkReadKeepsEveryReader(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	m := f.send(t, "alice", "read me")

	want := []string{"alice"}
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("r%d", i)
		require.NoError(t, f.participants.Create(ctx, &models.Participant{ID: id, Username: "Reader " + id}))
		want = append(want, id)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(reader string) {
			defer wg.Done()
			_, err := f.svc.MarkRead(ctx, reader, &models.MarkReadRequest{MessageIDs: []int64{m.ID}})
			errs <- err
		}(fmt.Sprintf("r%d", i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.messages.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, stored.ReadBy.Slice())
	assert.Len(t, f.publisher.all(), 9)
}

func TestConcurrentSendAssignsDistinctIDs(t *testing.T) {
	f := newServiceFixture(t)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{})
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			author := "alice"
			if n%2 == 1 {
				author = "bob"
			}
			m, err := f.svc.Send(context.Background(), author, &models.CreateMessageRequest{Content: fmt.Sprintf("msg %d", n)})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[m.ID] = struct{}{}
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	require.Len(t, ids, 8)

	page, err := f.svc.Page(context.Background(), 0, models.PageSize)
	require.NoError(t, err)
	require.Len(t, page.Messages, 8)
	for i, m := range page.Messages {
		assert.Contains(t, ids, m.ID)
		if i > 0 {
			assert.Less(t, page.Messages[i-1].ID, m.ID)
		}
	}
}

func TestPagingWalksFullHistoryWithoutGaps(t *testing.T) {
	f := newServiceFixture(t)

	var want []int64
	for i := 0; i < 10; i++ {
		want = append(want, f.send(t, "alice", fmt.Sprintf("m%d", i)).ID)
	}

	var got []int64
	cursor := int64(0)
	for pages := 0; ; pages++ {
		require.Less(t, pages, 10, "paging did not terminate")
		page, err := f.svc.Page(context.Background(), cursor, 3)
		require.NoError(t, err)
		require.NotEmpty(t, page.Messages)

		ids := make([]int64, 0, len(page.Messages))
		for _, m := range page.Messages {
			ids = append(ids, m.ID)
		}
		got = append(ids, got...)
		if !page.HasMore {
			break
		}
		cursor = page.Messages[0].ID
	}

	assert.Equal(t, want, got)
}
