// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ları:
//   - auth: katılımcı kimliği doğrulaması
//   - authSend: auth + katılımcı başına gönderim sınırı
package main

import (
	"net/http"

	"github.com/realAndi/PWAChat/handlers"
	"github.com/realAndi/PWAChat/middleware"
	"github.com/realAndi/PWAChat/pkg/identity"
	"github.com/realAndi/PWAChat/pkg/metrics"
)

func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	svcs *Services,
	limiters *RateLimiters,
	verifier identity.Verifier,
	pinger handlers.Pinger,
) {
	// ─── Middleware ───
	identityMw := middleware.NewIdentityMiddleware(verifier, svcs.Participant)
	sendLimit := middleware.SendRateLimit(limiters.Send)

	// ─── Middleware Chain Helpers ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return identityMw.Require(handler)
	}
	authSend := func(handler http.HandlerFunc) http.Handler {
		return identityMw.Require(sendLimit(handler))
	}

	// Feed
	mux.Handle("GET /api/chat/messages", auth(h.Message.List))
	mux.Handle("POST /api/chat/messages", authSend(h.Message.Create))
	mux.Handle("POST /api/chat/messages/read", auth(h.Message.MarkRead))

	// Katılımcılar
	mux.Handle("GET /api/chat/active-users", auth(h.Participant.ActiveCount))
	mux.Handle("POST /api/profiles/usernames", auth(h.Participant.Usernames))
	mux.Handle("GET /api/profiles/me", auth(h.Participant.Me))

	// WebSocket: tarayıcılar upgrade'de header gönderemez, kimlik
	// query string'den okunur (?token= veya ?profile_id=). Handler kendisi doğrular.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)

	// Operasyon
	mux.HandleFunc("GET /api/health", handlers.Health(pinger))
	mux.Handle("GET /metrics", metrics.Handler())
}
