// Package main — Repository katmanı başlatma.
//
// initRepositories, repository implementasyonlarını oluşturur.
// Her repository aynı *database.DB'yi alır ve interface döner.
package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/config"
	"github.com/realAndi/PWAChat/database"
	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/repository"
)

// Repositories, repository instance'larını tutan container struct.
type Repositories struct {
	Message     repository.MessageRepository
	Participant repository.ParticipantRepository
}

// initRepositories, veritabanı bağlantısından repository'leri oluşturur.
func initRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Message:     repository.NewSQLMessageRepo(db),
		Participant: repository.NewSQLParticipantRepo(db),
	}
}

// seedParticipants, DEV_PARTICIPANTS'taki profilleri yoksa oluşturur.
// Profil yönetimi bu servisin işi değildir; bu yalnızca yerel geliştirme içindir.
func seedParticipants(ctx context.Context, repo repository.ParticipantRepository, seeds []config.DevParticipant, log *zap.SugaredLogger) error {
	for _, seed := range seeds {
		_, err := repo.GetByID(ctx, seed.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("failed to look up participant %s: %w", seed.ID, err)
		}

		if err := repo.Create(ctx, &models.Participant{ID: seed.ID, Username: seed.Username}); err != nil {
			return fmt.Errorf("failed to seed participant %s: %w", seed.ID, err)
		}
		log.Infow("seeded participant", "id", seed.ID, "username", seed.Username)
	}
	return nil
}
