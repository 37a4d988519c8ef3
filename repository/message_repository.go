// Package repository, veritabanı erişim katmanıdır.
//
// Her entity için bir interface ve bir SQL implementasyonu vardır.
// Service katmanı yalnızca interface'e bağımlıdır; testlerde aynı
// implementasyon geçici bir SQLite dosyasına karşı çalışır.
package repository

import (
	"context"

	"github.com/realAndi/PWAChat/models"
)

// MessageRepository, feed mesajları ve okundu bilgisi için interface.
//
// ListBefore cursor-based pagination kullanır:
// cursor = bu ID'den küçük mesajları getir (0 ise en yenilerden başla).
// Sonuç en yeniden eskiye (DESC) sıralıdır; ters çevirmek service'in işidir.
type MessageRepository interface {
	// Append, mesajı ve yazarın kendi okundu kaydını tek transaction'da yazar.
	// message.ID, CreatedAt ve ReadBy doldurulur.
	Append(ctx context.Context, message *models.Message) error
	ListBefore(ctx context.Context, cursor int64, limit int) ([]models.Message, error)
	// MarkRead, readerID'yi verilen mesajların okuyucu setine ekler.
	// Var olmayan id'ler atlanır; dönen liste gerçekten var olan id'lerdir (artan sırada).
	MarkRead(ctx context.Context, readerID string, ids []int64) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)
}
