// Package handlers, HTTP endpoint'lerini barındırır.
//
// Handler'lar ince tutulur: isteği decode eder, service'i çağırır,
// sonucu pkg.JSON / pkg.Error ile zarflar. İş kuralı service katmanındadır.
package handlers

import (
	"context"

	"github.com/realAndi/PWAChat/models"
)

type contextKey string

// ParticipantContextKey, identity middleware'ının doğruladığı katılımcıyı context'te taşır.
const ParticipantContextKey contextKey = "participant"

// WithParticipant, katılımcıyı context'e ekler.
func WithParticipant(ctx context.Context, p *models.Participant) context.Context {
	return context.WithValue(ctx, ParticipantContextKey, p)
}

// ParticipantFromContext, middleware'ın eklediği katılımcıyı döner.
func ParticipantFromContext(ctx context.Context) (*models.Participant, bool) {
	p, ok := ctx.Value(ParticipantContextKey).(*models.Participant)
	return p, ok && p != nil
}
