// Package main — Handler katmanı başlatma.
//
// Handler'lar "thin" dir: sadece HTTP parse + service call + response write.
package main

import (
	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/config"
	"github.com/realAndi/PWAChat/handlers"
	"github.com/realAndi/PWAChat/pkg/identity"
	"github.com/realAndi/PWAChat/pubsub"
	"github.com/realAndi/PWAChat/ws"
)

// Handlers, handler instance'larını tutan container struct.
type Handlers struct {
	Message     *handlers.MessageHandler
	Participant *handlers.ParticipantHandler
	WS          *ws.Handler
}

func initHandlers(
	svcs *Services,
	hub *ws.Hub,
	broker *pubsub.Broker,
	verifier identity.Verifier,
	cfg *config.Config,
	log *zap.SugaredLogger,
) *Handlers {
	return &Handlers{
		Message:     handlers.NewMessageHandler(svcs.Message),
		Participant: handlers.NewParticipantHandler(svcs.Participant),
		WS:          ws.NewHandler(hub, broker, cfg.Chat.Channel, verifier, svcs.Participant, log.Named("ws")),
	}
}
