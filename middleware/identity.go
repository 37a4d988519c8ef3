// Package middleware, HTTP request pipeline'ına eklenen ara katmanlar.
//
// Go'da middleware func(next http.Handler) http.Handler şeklindedir:
// kendi işini yapar, sonra next'i çağırır; hata varsa zinciri keser.
// Zincir: Logging → Identity → SendRateLimit → Handler
package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/realAndi/PWAChat/handlers"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/pkg/identity"
	"github.com/realAndi/PWAChat/services"
)

// IdentityMiddleware, isteğin katılımcısını doğrular ve context'e ekler.
type IdentityMiddleware struct {
	verifier           identity.Verifier
	participantService services.ParticipantService
}

// NewIdentityMiddleware, constructor.
func NewIdentityMiddleware(verifier identity.Verifier, participantService services.ParticipantService) *IdentityMiddleware {
	return &IdentityMiddleware{
		verifier:           verifier,
		participantService: participantService,
	}
}

// Require, kimlik zorunlu kılar. Kimlik yoksa, geçersizse veya profil
// bulunamazsa 401 döner ve next çağrılmaz.
func (m *IdentityMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		participantID, err := m.verifier.Verify(r)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		participant, err := m.participantService.GetByID(r.Context(), participantID)
		if err != nil {
			if errors.Is(err, pkg.ErrNotFound) {
				pkg.Error(w, fmt.Errorf("%w: unknown participant", pkg.ErrUnauthorized))
				return
			}
			pkg.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.WithParticipant(r.Context(), participant)))
	})
}
