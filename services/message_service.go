// Package services, iş mantığı katmanıdır.
//
// Service'ler repository interface'lerine ve pubsub.Publisher'a bağımlıdır;
// HTTP veya websocket detayı bilmezler. Domain hataları pkg sentinel'leri ile
// sarılarak döner, handler katmanı bunları status code'a çevirir.
package services

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/pkg/metrics"
	"github.com/realAndi/PWAChat/pubsub"
	"github.com/realAndi/PWAChat/repository"
)

// MessageService, feed'in yazma/okuma sözleşmesi.
//
// Send ve MarkRead, commit başarılı olduktan SONRA tam olarak bir event yayınlar.
// Yayın hatası loglanır ve yutulur: veri zaten kalıcıdır, istemciler bir sonraki
// sayfa yüklemesinde veya yeniden bağlanmada durumu yakalar.
// Send asla otomatik tekrar denenmez; tekrar, çift mesaj demektir.
type MessageService interface {
	Send(ctx context.Context, authorID string, req *models.CreateMessageRequest) (*models.Message, error)
	Page(ctx context.Context, cursor int64, limit int) (*models.MessagePage, error)
	MarkRead(ctx context.Context, readerID string, req *models.MarkReadRequest) (*models.ReadReceipt, error)
}

type messageService struct {
	messageRepo     repository.MessageRepository
	participantRepo repository.ParticipantRepository
	publisher       pubsub.Publisher
	channel         string
	log             *zap.SugaredLogger
}

// NewMessageService, constructor. channel boşsa pubsub.ChannelChat kullanılır.
func NewMessageService(
	messageRepo repository.MessageRepository,
	participantRepo repository.ParticipantRepository,
	publisher pubsub.Publisher,
	channel string,
	log *zap.SugaredLogger,
) MessageService {
	if channel == "" {
		channel = pubsub.ChannelChat
	}
	return &messageService{
		messageRepo:     messageRepo,
		participantRepo: participantRepo,
		publisher:       publisher,
		channel:         channel,
		log:             log,
	}
}

// Send, mesajı doğrular, kaydeder ve "new-message" yayınlar.
func (s *messageService) Send(ctx context.Context, authorID string, req *models.CreateMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: message content must be 1-%d characters", pkg.ErrValidation, models.MaxContentLength)
	}

	author, err := s.participantRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Body:       req.Content,
	}
	if err := s.messageRepo.Append(ctx, message); err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()

	s.publish(ctx, pubsub.EventNewMessage, message)
	return message, nil
}

// Page, cursor'dan önceki en fazla limit mesajı artan ID sırasıyla döner.
//
// limit+1 satır istenir; fazladan satır gelirse daha eski mesaj var demektir.
// Yazar ve okuyucuların görünen adları tek bir toplu sorguyla eklenir.
func (s *messageService) Page(ctx context.Context, cursor int64, limit int) (*models.MessagePage, error) {
	if cursor < 0 {
		return nil, fmt.Errorf("%w: cursor must be positive", pkg.ErrValidation)
	}
	if limit <= 0 || limit > models.MaxPageSize {
		limit = models.PageSize
	}

	messages, err := s.messageRepo.ListBefore(ctx, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	// DB'den DESC gelir, feed ASC bekler (en eski başta).
	slices.Reverse(messages)

	if messages == nil {
		messages = []models.Message{}
	}

	var ids []string
	for _, m := range messages {
		ids = append(ids, m.AuthorID)
		ids = append(ids, m.ReadBy.Slice()...)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	names, err := s.participantRepo.DisplayNames(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Profili silinmiş yazarlar için mesajdaki kopya ad kullanılır.
	for _, m := range messages {
		if _, ok := names[m.AuthorID]; !ok {
			names[m.AuthorID] = m.AuthorName
		}
	}

	return &models.MessagePage{
		Messages:  messages,
		Usernames: names,
		HasMore:   hasMore,
	}, nil
}

// MarkRead, readerID'yi verilen mesajların okuyucu setine ekler ve
// "message-read" yayınlar. Hiçbir id var olmayan bir mesaja karşılık gelmiyorsa
// çağrı no-op'tur ve yayın yapılmaz.
func (s *messageService) MarkRead(ctx context.Context, readerID string, req *models.MarkReadRequest) (*models.ReadReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: message_ids must be a non-empty list of positive ids", pkg.ErrValidation)
	}

	known, err := s.messageRepo.MarkRead(ctx, readerID, req.MessageIDs)
	if err != nil {
		return nil, err
	}

	receipt := &models.ReadReceipt{MessageIDs: known, ReaderID: readerID}
	if len(known) == 0 {
		receipt.MessageIDs = []int64{}
		return receipt, nil
	}
	metrics.ReadsMarked.Add(float64(len(known)))

	s.publish(ctx, pubsub.EventMessageRead, receipt)
	return receipt, nil
}

// publish, commit sonrası yayını yapar. İstek context'i iptal edilmiş olsa bile
// yayın denenir; hata yalnızca loglanır.
func (s *messageService) publish(ctx context.Context, event string, payload any) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), s.channel, event, payload); err != nil {
		metrics.PublishFailures.WithLabelValues(event).Inc()
		s.log.Warnw("broadcast failed after commit", "event", event, "channel", s.channel, "error", err)
	}
}
