package models

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims, token modunda kullanılan JWT payload'ı.
//
// participant_id claim'i istek sahibinin kimliğidir. Token'ı dış identity
// sağlayıcı üretir; sunucu yalnızca imzayı ve süreyi doğrular.
// models paketinde durur çünkü hem middleware hem ws hem client kullanır.
type IdentityClaims struct {
	ParticipantID string `json:"participant_id"`
	Username      string `json:"username,omitempty"`
	jwt.RegisteredClaims
}
