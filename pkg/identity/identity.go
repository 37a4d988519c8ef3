// Package identity, isteğin hangi katılımcıdan geldiğini belirler.
//
// Kimlik dış bir sağlayıcıdan gelir; bu paket yalnızca taşınan kimliği okur:
//   - HeaderVerifier: X-Profile-Id header'ına (veya profile_id query'sine) güvenir.
//   - TokenVerifier:  HS256 imzalı JWT doğrular; participant_id claim'i kimliktir.
//
// Websocket bağlantıları tarayıcıdan header taşıyamadığı için her iki
// verifier da query parametresini de kabul eder.
package identity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
)

// Modlar (IDENTITY_MODE).
const (
	ModeHeader = "header"
	ModeToken  = "token"
)

// HeaderProfileID, header modunda kimliği taşıyan header.
const HeaderProfileID = "X-Profile-Id"

const issuer = "pwachat"

// Verifier, istekten katılımcı id'sini çıkarır.
// Kimlik yoksa veya geçersizse pkg.ErrUnauthorized ile sarılmış hata döner.
type Verifier interface {
	Verify(r *http.Request) (string, error)
}

// New, moda göre verifier döner.
func New(mode, secret string) (Verifier, error) {
	switch mode {
	case ModeHeader, "":
		return HeaderVerifier{}, nil
	case ModeToken:
		if secret == "" {
			return nil, fmt.Errorf("identity mode %q requires JWT_SECRET", ModeToken)
		}
		return NewTokenVerifier(secret), nil
	default:
		return nil, fmt.Errorf("unknown identity mode %q", mode)
	}
}

// HeaderVerifier, kimliği doğrudan header'dan okur.
type HeaderVerifier struct{}

func (HeaderVerifier) Verify(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderProfileID))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("profile_id"))
	}
	if id == "" {
		return "", fmt.Errorf("%w: %s header required", pkg.ErrUnauthorized, HeaderProfileID)
	}
	return id, nil
}

// TokenVerifier, HS256 JWT doğrular ve üretir.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier, constructor.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify, "Authorization: Bearer <token>" veya ?token= parametresini doğrular.
func (v *TokenVerifier) Verify(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if auth := r.Header.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, "Bearer ") {
			return "", fmt.Errorf("%w: invalid authorization format, use: Bearer <token>", pkg.ErrUnauthorized)
		}
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	if token == "" {
		return "", fmt.Errorf("%w: token required", pkg.ErrUnauthorized)
	}

	claims, err := v.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.ParticipantID, nil
}

// Parse, token'ı doğrular ve claim'leri döner.
func (v *TokenVerifier) Parse(tokenString string) (*models.IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.IdentityClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.IdentityClaims)
	if !ok || !token.Valid || claims.ParticipantID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}
	return claims, nil
}

// Issue, katılımcı için imzalı bir token üretir.
// Sunucu token dağıtmaz; chatcli ve testler dış sağlayıcıyı taklit etmek için kullanır.
func (v *TokenVerifier) Issue(participantID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.IdentityClaims{
		ParticipantID: participantID,
		Username:      username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
