// Package pubsub, kanal bazlı yayın/abonelik broker'ıdır.
//
// Broker açıkça oluşturulan ve sahibi tarafından kapatılan bir nesnedir;
// process-global bir bağlantı yoktur. Her kanalın kendi artan sıra numarası (seq)
// vardır ve her event yayınlanırken bu numarayla damgalanır. Abone, seq'te bir
// boşluk görürse event kaçırmış demektir ve durumunu store'dan yeniden yüklemelidir.
//
// Teslimat en fazla birdir (at-most-once): abonenin tamponu doluysa abonelik
// düşürülür ve kanalı kapatılır. Yayıncı asla yavaş bir abone yüzünden beklemez.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/pkg/metrics"
)

// Varsayılan kanal ve event adları.
const (
	ChannelChat      = "chat"
	EventNewMessage  = "new-message"
	EventMessageRead = "message-read"
)

// DefaultBufferSize, abone başına tampon boyutu.
const DefaultBufferSize = 256

// ErrClosed, kapatılmış broker'a yapılan çağrılarda döner.
var ErrClosed = errors.New("pubsub: broker closed")

// Event, bir kanala yayınlanmış tek bir mesaj.
type Event struct {
	Channel string          `json:"channel"`
	Name    string          `json:"event"`
	Seq     int64           `json:"seq"`
	Payload json.RawMessage `json:"data"`
}

// Publisher, service katmanının broadcast için bağımlı olduğu interface.
// Testlerde sahte bir Publisher ile değiştirilir.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

type topic struct {
	seq  int64
	subs map[*Subscription]struct{}
}

// Broker, Publisher'ın süreç içi implementasyonu.
type Broker struct {
	mu         sync.Mutex
	topics     map[string]*topic
	bufferSize int
	closed     bool

	log *zap.SugaredLogger
}

// NewBroker, yeni bir broker oluşturur. bufferSize <= 0 ise DefaultBufferSize kullanılır.
func NewBroker(bufferSize int, log *zap.SugaredLogger) *Broker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broker{
		topics:     make(map[string]*topic),
		bufferSize: bufferSize,
		log:        log,
	}
}

func (b *Broker) topicLocked(channel string) *topic {
	t, ok := b.topics[channel]
	if !ok {
		t = &topic{subs: make(map[*Subscription]struct{})}
		b.topics[channel] = t
	}
	return t
}

// Subscribe, kanala yeni bir abonelik açar.
// Abonelik, açıldıktan sonra yayınlanan event'leri alır.
func (b *Broker) Subscribe(channel string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	t := b.topicLocked(channel)
	sub := &Subscription{
		broker:   b,
		channel:  channel,
		events:   make(chan Event, b.bufferSize),
		startSeq: t.seq,
	}
	t.subs[sub] = struct{}{}
	return sub, nil
}

// Publish, payload'ı JSON'a çevirir, kanalın bir sonraki seq'iyle damgalar
// ve tüm abonelere bloklamadan iletir.
//
// Seq ataması ve dağıtım aynı kilit altında yapılır; böylece eşzamanlı
// yayıncılar olsa bile her abone event'leri seq sırasıyla görür.
func (b *Broker) Publish(ctx context.Context, channel, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s payload: %w", event, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	t := b.topicLocked(channel)
	t.seq++
	ev := Event{Channel: channel, Name: event, Seq: t.seq, Payload: data}

	for sub := range t.subs {
		select {
		case sub.events <- ev:
		default:
			b.log.Warnw("subscriber too slow, dropping", "channel", channel, "seq", ev.Seq)
			metrics.SubscriptionsDropped.WithLabelValues(channel).Inc()
			sub.dropped = true
			b.removeLocked(sub)
		}
	}

	metrics.EventsPublished.WithLabelValues(channel, event).Inc()
	return nil
}

// LastSeq, kanalda en son atanan seq. Hiç yayın yapılmadıysa 0.
func (b *Broker) LastSeq(channel string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.topics[channel]; ok {
		return t.seq
	}
	return 0
}

// Subscribers, kanaldaki aktif abone sayısı.
func (b *Broker) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.topics[channel]; ok {
		return len(t.subs)
	}
	return 0
}

// Close, tüm abonelikleri kapatır. Sonraki Publish/Subscribe çağrıları ErrClosed döner.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, t := range b.topics {
		for sub := range t.subs {
			b.removeLocked(sub)
		}
	}
	b.log.Info("broker closed")
}

// removeLocked, aboneliği kanaldan çıkarır ve event kanalını kapatır.
// b.mu tutulurken çağrılmalıdır.
func (b *Broker) removeLocked(sub *Subscription) {
	t, ok := b.topics[sub.channel]
	if !ok {
		return
	}
	if _, ok := t.subs[sub]; !ok {
		return
	}
	delete(t.subs, sub)
	close(sub.events)
}

// Subscription, tek bir abonenin event akışı.
type Subscription struct {
	broker   *Broker
	channel  string
	events   chan Event
	startSeq int64

	// dropped, broker.mu altında yazılır ve okunur.
	dropped bool
}

// Events, event kanalı. Abonelik kapandığında veya düşürüldüğünde kapanır.
func (s *Subscription) Events() <-chan Event { return s.events }

// StartSeq, abonelik açıldığında kanalın son seq değeri.
// İlk gelen event'in seq'i StartSeq+1 olmalıdır.
func (s *Subscription) StartSeq() int64 { return s.startSeq }

// Dropped, abonelik tampon taşması yüzünden mi kapandı?
func (s *Subscription) Dropped() bool {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	return s.dropped
}

// Close, aboneliği sonlandırır. Birden fazla çağrı güvenlidir.
func (s *Subscription) Close() {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.broker.removeLocked(s)
}
