// Package main — Service katmanı başlatma.
//
// initServices, service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/config"
	"github.com/realAndi/PWAChat/pkg/ratelimit"
	"github.com/realAndi/PWAChat/pubsub"
	"github.com/realAndi/PWAChat/services"
)

// Services, service instance'larını tutan container struct.
type Services struct {
	Message     services.MessageService
	Participant services.ParticipantService
}

// RateLimiters, rate limiter instance'larını tutan container.
type RateLimiters struct {
	Send *ratelimit.SendLimiter
}

// Close, temizleme goroutine'lerini durdurur.
func (l *RateLimiters) Close() {
	l.Send.Close()
}

func initRateLimiters(cfg *config.Config) *RateLimiters {
	return &RateLimiters{
		Send: ratelimit.NewSendLimiter(cfg.RateLimit.SendRate, cfg.RateLimit.SendBurst, 10*time.Minute),
	}
}

// initServices, service'leri oluşturur. Broker, MessageService'in yayıncısıdır.
func initServices(repos *Repositories, broker *pubsub.Broker, cfg *config.Config, log *zap.SugaredLogger) *Services {
	return &Services{
		Message: services.NewMessageService(
			repos.Message,
			repos.Participant,
			broker,
			cfg.Chat.Channel,
			log.Named("message"),
		),
		Participant: services.NewParticipantService(repos.Participant, cfg.Chat.ParticipantTTL),
	}
}
