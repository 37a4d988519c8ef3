package services

import (
	"context"
	"fmt"
	"time"

	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/pkg/cache"
	"github.com/realAndi/PWAChat/repository"
)

// DefaultActiveCountTTL, aktif katılımcı sayısının cache süresi.
// İstemciler de sayıyı aynı aralıkla yeniler.
const DefaultActiveCountTTL = 5 * time.Minute

const activeCountKey = "active"

// ParticipantService, katılımcı okuma işlemleri.
type ParticipantService interface {
	// ActiveCount, okunmamış sayacının paydası olan aktif katılımcı sayısı.
	ActiveCount(ctx context.Context) (int, error)
	DisplayNames(ctx context.Context, req *models.UsernamesRequest) (map[string]string, error)
	GetByID(ctx context.Context, id string) (*models.Participant, error)
	Touch(ctx context.Context, id string) error
	Close()
}

type participantService struct {
	participantRepo repository.ParticipantRepository
	countCache      *cache.TTLCache[string, int]
}

// NewParticipantService, constructor. ttl <= 0 ise DefaultActiveCountTTL kullanılır.
func NewParticipantService(participantRepo repository.ParticipantRepository, ttl time.Duration) ParticipantService {
	if ttl <= 0 {
		ttl = DefaultActiveCountTTL
	}
	return &participantService{
		participantRepo: participantRepo,
		countCache:      cache.New[string, int](ttl, ttl),
	}
}

func (s *participantService) ActiveCount(ctx context.Context) (int, error) {
	return s.countCache.GetOrLoad(activeCountKey, func() (int, error) {
		return s.participantRepo.CountActive(ctx)
	})
}

func (s *participantService) DisplayNames(ctx context.Context, req *models.UsernamesRequest) (map[string]string, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: user_ids must be a non-empty list", pkg.ErrValidation)
	}
	return s.participantRepo.DisplayNames(ctx, req.UserIDs)
}

func (s *participantService) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	return s.participantRepo.GetByID(ctx, id)
}

func (s *participantService) Touch(ctx context.Context, id string) error {
	return s.participantRepo.TouchLastSeen(ctx, id)
}

// Close, cache'in temizleme goroutine'ini durdurur.
func (s *participantService) Close() {
	s.countCache.Close()
}
