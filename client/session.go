package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/feed"
	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pubsub"
	"github.com/realAndi/PWAChat/ws"
)

// ErrPageInFlight, önceki LoadOlder bitmeden yenisi istendiğinde döner.
var ErrPageInFlight = errors.New("page load already in flight")

// DefaultCountRefresh, aktif katılımcı sayısının yenilenme aralığı.
const DefaultCountRefresh = 5 * time.Minute

// SessionAPI, Session'ın sunucudan beklediği işlemler. *API bunu karşılar.
type SessionAPI interface {
	PageSource
	Send(ctx context.Context, content string) (*models.Message, error)
	MarkRead(ctx context.Context, ids []int64) (*models.ReadReceipt, error)
	ActiveCount(ctx context.Context) (int, error)
	Usernames(ctx context.Context, ids []string) (map[string]string, error)
}

// Snapshot, render için feed'in anlık görüntüsü.
type Snapshot struct {
	Messages     []feed.DerivedMessage
	Usernames    map[string]string
	Participants int
	EndOfHistory bool
	Unread       int
}

// Session, tek bir izleyicinin feed oturumu.
//
// Sahip olduğu feed.View'ı HTTP sayfaları ve realtime event'leriyle günceller.
// Her view değişikliğinden sonra okunmamış mesajlar MarkRead ile bildirilir.
// Seq boşluğu veya yeniden bağlantıda feed en yeni sayfayla sıfırlanır.
type Session struct {
	api      SessionAPI
	pager    *Pager
	viewerID string
	opts     feed.GroupOptions
	log      *zap.SugaredLogger

	mu           sync.Mutex
	view         *feed.View
	tracker      *feed.ReadTracker
	names        map[string]string
	participants int
	endOfHistory bool
	loadingOlder bool
	// epoch, her reset'te artar; eski epoch'a ait sayfa sonuçları atılır.
	epoch   uint64
	lastSeq int64
	haveSeq bool
	visible bool
	unread  int
	// needsReload, başarısız bir reconcile'dan sonra set edilir.
	needsReload bool

	onChange func()
}

// NewSession, constructor. pageSize <= 0 ise varsayılan kullanılır.
func NewSession(api SessionAPI, viewerID string, pageSize int, log *zap.SugaredLogger) *Session {
	return &Session{
		api:      api,
		pager:    NewPager(api, pageSize),
		viewerID: viewerID,
		opts:     feed.DefaultGroupOptions,
		log:      log,
		view:     feed.NewView(),
		tracker:  feed.NewReadTracker(viewerID),
		names:    make(map[string]string),
		visible:  true,
	}
}

// OnChange, view her değiştiğinde çağrılacak callback'i ayarlar.
// Callback kilit dışında çağrılır; içinden Snapshot güvenle okunabilir.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Start, ilk sayfayı ve katılımcı sayısını yükler.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if err := s.RefreshParticipants(ctx); err != nil {
		s.log.Warnw("failed to load participant count", "error", err)
	}
	return nil
}

// Run, realtime aboneliğini ve periyodik sayaç yenilemesini ctx bitene kadar yürütür.
func (s *Session) Run(ctx context.Context, rt *Realtime) error {
	go s.refreshLoop(ctx, DefaultCountRefresh)
	return rt.Run(ctx, s.HandleEvent)
}

func (s *Session) refreshLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RefreshParticipants(ctx); err != nil {
				s.log.Warnw("failed to refresh participant count", "error", err)
			}
		}
	}
}

// RefreshParticipants, okunmamış sayacının paydasını günceller.
func (s *Session) RefreshParticipants(ctx context.Context) error {
	n, err := s.api.ActiveCount(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	changed := s.participants != n
	s.participants = n
	s.mu.Unlock()
	if changed {
		s.notify()
	}
	return nil
}

// Reload, feed'i en yeni sayfayla sıfırlar. Boş sayfa, feed'in temizlendiği anlamına gelir.
// Başarısız olursa view değişmez.
func (s *Session) Reload(ctx context.Context) error {
	page, err := s.pager.LoadInitial(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.epoch++
	s.needsReload = false
	s.view.Reset(page.Messages)
	s.endOfHistory = page.EndOfHistory
	s.mergeNames(page.Usernames)
	s.mu.Unlock()

	s.afterChange(ctx)
	return nil
}

// LoadOlder, daha eski bir sayfa yükler ve eklenen mesaj sayısını döner.
// EndOfHistory'den sonra yeni mesaj gelene kadar no-op'tur.
func (s *Session) LoadOlder(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.loadingOlder {
		s.mu.Unlock()
		return 0, ErrPageInFlight
	}
	if s.endOfHistory || s.view.Len() == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	s.loadingOlder = true
	epoch := s.epoch
	oldest := s.view.OldestID()
	s.mu.Unlock()

	page, err := s.pager.LoadOlder(ctx, oldest)

	s.mu.Lock()
	s.loadingOlder = false
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if epoch != s.epoch {
		s.mu.Unlock()
		return 0, nil
	}
	added := s.view.PrependOlder(page.Messages)
	s.endOfHistory = page.EndOfHistory
	s.mergeNames(page.Usernames)
	s.mu.Unlock()

	s.afterChange(ctx)
	return added, nil
}

// Send, mesaj gönderir ve sonucu view'a ekler. Realtime ile aynı mesaj
// tekrar gelirse duplicate olarak atlanır.
func (s *Session) Send(ctx context.Context, content string) (*models.Message, error) {
	msg, err := s.api.Send(ctx, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.view.ApplyNewMessage(*msg)
	s.names[msg.AuthorID] = msg.AuthorName
	s.endOfHistory = false
	s.mu.Unlock()

	s.afterChange(ctx)
	return msg, nil
}

// HandleEvent, realtime frame'ini uygular. Realtime.Run için EventHandler'dır.
func (s *Session) HandleEvent(ctx context.Context, ev ws.Event) {
	switch ev.Op {
	case ws.OpReady:
		var ready ws.ReadyData
		if err := json.Unmarshal(ev.Data, &ready); err != nil {
			s.log.Warnw("invalid ready frame", "error", err)
			return
		}
		s.mu.Lock()
		s.lastSeq = ready.Seq
		s.haveSeq = true
		s.mu.Unlock()

		// Bağlantı yokken kaçan event'ler bilinemez; her bağlantıda feed yenilenir.
		s.reconcile(ctx, "connected")

	case pubsub.EventNewMessage, pubsub.EventMessageRead:
		if s.gap(ev.Seq) {
			s.reconcile(ctx, "sequence gap")
			return
		}
		if s.retryReload(ctx) {
			return
		}
		if ev.Op == pubsub.EventNewMessage {
			s.applyNewMessage(ctx, ev.Data)
		} else {
			s.applyRead(ctx, ev.Data)
		}

	default:
		s.log.Debugw("unknown op", "op", ev.Op)
	}
}

// gap, seq'i kaydeder ve bir event kaçırıldıysa true döner.
func (s *Session) gap(seq int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == 0 || !s.haveSeq {
		return false
	}
	missed := seq > s.lastSeq+1
	if seq > s.lastSeq {
		s.lastSeq = seq
	}
	return missed
}

func (s *Session) reconcile(ctx context.Context, reason string) {
	if err := s.Reload(ctx); err != nil {
		s.log.Warnw("failed to reconcile feed", "reason", reason, "error", err)
		s.mu.Lock()
		s.needsReload = true
		s.mu.Unlock()
	}
}

// retryReload, önceki reconcile başarısız olduysa yeniden dener.
// Reload en yeni sayfayı getirdiği için tetikleyen event ayrıca uygulanmaz.
func (s *Session) retryReload(ctx context.Context) bool {
	s.mu.Lock()
	pending := s.needsReload
	s.mu.Unlock()
	if !pending {
		return false
	}
	s.reconcile(ctx, "retry")
	return true
}

func (s *Session) applyNewMessage(ctx context.Context, data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warnw("invalid new-message payload", "error", err)
		return
	}

	s.mu.Lock()
	added := s.view.ApplyNewMessage(msg)
	if added {
		s.endOfHistory = false
		if _, ok := s.names[msg.AuthorID]; !ok {
			s.names[msg.AuthorID] = msg.AuthorName
		}
		if !s.visible && msg.AuthorID != s.viewerID {
			s.unread++
		}
	}
	s.mu.Unlock()

	if added {
		s.afterChange(ctx)
	}
}

func (s *Session) applyRead(ctx context.Context, data json.RawMessage) {
	var receipt models.ReadReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		s.log.Warnw("invalid message-read payload", "error", err)
		return
	}

	s.mu.Lock()
	changed := s.view.ApplyRead(receipt)
	_, known := s.names[receipt.ReaderID]
	s.mu.Unlock()

	if !known && receipt.ReaderID != "" {
		s.lookupNames(ctx, []string{receipt.ReaderID})
	}
	if changed > 0 {
		s.afterChange(ctx)
	}
}

func (s *Session) lookupNames(ctx context.Context, ids []string) {
	names, err := s.api.Usernames(ctx, ids)
	if err != nil {
		s.log.Debugw("username lookup failed", "ids", ids, "error", err)
		return
	}
	s.mu.Lock()
	s.mergeNames(names)
	s.mu.Unlock()
}

// SetVisible, görünürlüğü değiştirir. Görünür olunca okunmamış rozeti
// sıfırlanır ve bekleyen okundu bildirimleri gönderilir.
func (s *Session) SetVisible(ctx context.Context, visible bool) {
	s.mu.Lock()
	s.visible = visible
	if visible {
		s.unread = 0
	}
	s.mu.Unlock()

	if visible && s.retryReload(ctx) {
		return
	}
	s.afterChange(ctx)
}

// Unread, gizliyken gelen başkalarına ait mesaj sayısı.
func (s *Session) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Snapshot, view'ın türetilmiş görüntüsünü döner.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[string]string, len(s.names))
	for id, n := range s.names {
		names[id] = n
	}
	return Snapshot{
		Messages:     feed.Derive(s.view.Messages(), s.viewerID, s.participants, s.opts),
		Usernames:    names,
		Participants: s.participants,
		EndOfHistory: s.endOfHistory,
		Unread:       s.unread,
	}
}

// afterChange, okundu bildirimini gönderir ve OnChange'i tetikler.
func (s *Session) afterChange(ctx context.Context) {
	s.flushReads(ctx)
	s.notify()
}

// flushReads, view değişikliği başına bekleyen okundu bildirimlerini
// MaxMarkReadBatch'lik parçalar halinde gönderir.
func (s *Session) flushReads(ctx context.Context) {
	s.mu.Lock()
	if !s.visible {
		s.mu.Unlock()
		return
	}
	pending := s.tracker.Pending(s.view)
	if len(pending) == 0 {
		s.mu.Unlock()
		return
	}
	s.tracker.MarkSubmitted(pending)
	s.mu.Unlock()

	for start := 0; start < len(pending); start += models.MaxMarkReadBatch {
		end := min(start+models.MaxMarkReadBatch, len(pending))
		s.markChunk(ctx, pending[start:end])
	}
}

// markChunk, tek bir parçayı gönderir. Hata durumunda yalnızca bu parça
// bir sonraki değişiklikte yeniden denenir.
func (s *Session) markChunk(ctx context.Context, ids []int64) {
	receipt, err := s.api.MarkRead(ctx, ids)
	if err != nil {
		s.log.Warnw("failed to mark messages read", "count", len(ids), "error", err)
		s.mu.Lock()
		s.tracker.Forget(ids)
		s.mu.Unlock()
		return
	}

	// Sunucunun kabul ettiği id'ler yerelde de okundu sayılır; realtime
	// event'i gelince tekrar uygulanması etkisizdir.
	s.mu.Lock()
	s.view.ApplyRead(*receipt)
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// mergeNames, s.mu tutulurken çağrılır.
func (s *Session) mergeNames(names map[string]string) {
	for id, n := range names {
		s.names[id] = n
	}
}
