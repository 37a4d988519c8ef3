package models

import "time"

// ParticipantStatus, profil kaydının yaşam döngüsü durumu.
type ParticipantStatus string

const (
	ParticipantStatusRegistered  ParticipantStatus = "registered"
	ParticipantStatusPending     ParticipantStatus = "pending"
	ParticipantStatusRegenerated ParticipantStatus = "regenerated"
)

// Participant, "profiles" tablosundaki bir katılımcı.
//
// Kimlik (ID) dış bir identity sağlayıcıdan gelir; bu servis yalnızca
// görünen adı ve aktiflik durumunu okur.
type Participant struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	Status    ParticipantStatus `json:"status"`
	InviteKey *string           `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	LastSeen  *time.Time        `json:"last_seen,omitempty"`
}

// IsActive, kaydı tamamlanmış ve bekleyen daveti olmayan katılımcılar.
// Okunmamış sayacının paydası bu katılımcıların sayısıdır.
func (p *Participant) IsActive() bool {
	return p.Status == ParticipantStatusRegistered && p.InviteKey == nil
}

// ActiveCount, GET /api/chat/active-users yanıtı.
type ActiveCount struct {
	Count int `json:"count"`
}
