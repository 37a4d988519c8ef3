// Package main — WebSocket Hub callback wire-up.
//
// Hub ws paketinde yaşıyor, ama last_seen güncellemesi service katmanında.
// main package wire-up noktasıdır; Hub'ın service'lere bağımlı olmasını istemiyoruz.
//
// Callback'ler Hub.Run() goroutine'inden ayrı goroutine'de çalışır.
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/services"
	"github.com/realAndi/PWAChat/ws"
)

func registerHubCallbacks(hub *ws.Hub, participants services.ParticipantService, log *zap.SugaredLogger) {
	touch := func(participantID, reason string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := participants.Touch(ctx, participantID); err != nil {
			log.Warnw("failed to update last seen", "participant", participantID, "reason", reason, "error", err)
		}
	}

	hub.OnConnect(func(participantID string) {
		touch(participantID, "connect")
	})
	hub.OnDisconnect(func(participantID string) {
		touch(participantID, "disconnect")
	})
}
