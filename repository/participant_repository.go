package repository

import (
	"context"

	"github.com/realAndi/PWAChat/models"
)

// ParticipantRepository, "profiles" tablosu için interface.
type ParticipantRepository interface {
	GetByID(ctx context.Context, id string) (*models.Participant, error)
	// DisplayNames, id → username eşlemesini tek sorguda döner.
	// Bilinmeyen id'ler haritada yer almaz.
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)
	// CountActive, kaydı tamamlanmış ve bekleyen daveti olmayan katılımcı sayısı.
	CountActive(ctx context.Context) (int, error)
	Create(ctx context.Context, participant *models.Participant) error
	TouchLastSeen(ctx context.Context, id string) error
}
