package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/realAndi/PWAChat/handlers"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/pkg/metrics"
	"github.com/realAndi/PWAChat/pkg/ratelimit"
)

// SendRateLimit, katılımcı başına mesaj gönderme sınırı uygular.
// IdentityMiddleware'dan SONRA çalışmalıdır; katılımcı context'ten okunur.
func SendRateLimit(limiter *ratelimit.SendLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			participant, ok := handlers.ParticipantFromContext(r.Context())
			if !ok {
				pkg.ErrorWithMessage(w, http.StatusUnauthorized, "participant not found in context")
				return
			}

			if allowed, wait := limiter.Allow(participant.ID); !allowed {
				metrics.RateLimited.Inc()
				seconds := int(math.Ceil(wait.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
					fmt.Sprintf("%s: try again in %ds", pkg.ErrRateLimited, seconds))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
