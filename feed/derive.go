// Package feed, istemci tarafının saf feed mantığıdır.
//
//   - View: artan ID sırasında, tekrarsız mesaj listesi; realtime event'leri uygular
//   - Derive: görüntüleme bayraklarını (gruplama, zaman arası, okunmamış) hesaplar
//   - ReadTracker: okundu bildiriminin her mesaj için bir kez gönderilmesini sağlar
//
// Bu paket I/O yapmaz; aynı girdi her zaman aynı çıktıyı verir.
package feed

import (
	"time"

	"github.com/realAndi/PWAChat/models"
)

// GroupOptions, gruplama eşikleri.
type GroupOptions struct {
	// GroupWindow: aynı yazarın iki mesajı arasındaki süre bundan KISA ise aynı gruptadır.
	GroupWindow time.Duration
	// TimeBreak: iki mesaj arası süre bundan UZUN ise araya zaman ayracı konur.
	TimeBreak time.Duration
}

// DefaultGroupOptions: 5 dakikalık grup penceresi, 24 saatlik zaman ayracı.
var DefaultGroupOptions = GroupOptions{
	GroupWindow: 5 * time.Minute,
	TimeBreak:   24 * time.Hour,
}

// DerivedMessage, bir mesajın görüntüleme bayraklarıyla birlikte hali.
type DerivedMessage struct {
	models.Message

	IsFirstInGroup bool `json:"is_first_in_group"`
	IsLastInGroup  bool `json:"is_last_in_group"`
	ShowTimeBreak  bool `json:"show_time_break"`
	// UnreadCount: max(0, toplam katılımcı - okuyucu sayısı).
	UnreadCount int `json:"unread_count"`
	// ShouldHideReadIndicator: sonraki mesajın okuyucu seti bu mesajınkini
	// kesin olarak kapsıyorsa okundu göstergesi sonraki mesajda gösterilir.
	ShouldHideReadIndicator bool `json:"should_hide_read_indicator"`
	SameReadersAsPrevious   bool `json:"same_readers_as_previous"`
	SameReadersAsNext       bool `json:"same_readers_as_next"`
	IsOwn                   bool `json:"is_own"`
	ReadByViewer            bool `json:"read_by_viewer"`
}

// Derive, artan ID sırasındaki mesajlar için görüntüleme bayraklarını hesaplar.
// msgs değiştirilmez; dönen her DerivedMessage kendi ReadBy kopyasını taşır.
func Derive(msgs []models.Message, viewerID string, totalParticipants int, opts GroupOptions) []DerivedMessage {
	out := make([]DerivedMessage, len(msgs))
	last := len(msgs) - 1

	for i, m := range msgs {
		d := DerivedMessage{
			Message:        m.Clone(),
			IsFirstInGroup: i == 0 || !consecutive(msgs[i-1], m, opts.GroupWindow),
			IsLastInGroup:  i == last || !consecutive(m, msgs[i+1], opts.GroupWindow),
			ShowTimeBreak:  i == 0 || m.CreatedAt.Sub(msgs[i-1].CreatedAt) > opts.TimeBreak,
			UnreadCount:    max(0, totalParticipants-m.ReadBy.Len()),
			IsOwn:          viewerID != "" && m.AuthorID == viewerID,
			ReadByViewer:   m.ReadBy.Has(viewerID),
		}
		if i > 0 {
			d.SameReadersAsPrevious = sameReaders(msgs[i-1].ReadBy, m.ReadBy)
		}
		if i < last {
			d.ShouldHideReadIndicator = m.ReadBy.StrictSubsetOf(msgs[i+1].ReadBy)
			d.SameReadersAsNext = sameReaders(m.ReadBy, msgs[i+1].ReadBy)
		}
		out[i] = d
	}

	return out
}

// consecutive: aynı yazar ve aradaki süre pencereden kısa.
func consecutive(prev, cur models.Message, window time.Duration) bool {
	return prev.AuthorID == cur.AuthorID && cur.CreatedAt.Sub(prev.CreatedAt) < window
}

func sameReaders(a, b models.ReadBySet) bool {
	return a.Len() == b.Len() && containsAll(b, a)
}

func containsAll(set, sub models.ReadBySet) bool {
	for _, id := range sub.Slice() {
		if !set.Has(id) {
			return false
		}
	}
	return true
}
