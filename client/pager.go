package client

import (
	"context"
	"fmt"

	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
)

// PageSource, mesaj sayfası sağlayan herhangi bir kaynak.
// *API ve services.MessageService bu interface'i karşılar.
type PageSource interface {
	Page(ctx context.Context, cursor int64, limit int) (*models.MessagePage, error)
}

// Page, Pager'ın döndüğü sayfa.
// Messages artan ID sırasındadır. EndOfHistory true ise daha eski mesaj yoktur;
// bu sayfanın mesajları yine de geçerlidir.
type Page struct {
	Messages     []models.Message
	Usernames    map[string]string
	EndOfHistory bool
}

// Pager, cursor-based sayfalama.
type Pager struct {
	src  PageSource
	size int
}

// NewPager, size <= 0 ise models.PageSize kullanılır.
func NewPager(src PageSource, size int) *Pager {
	if size <= 0 || size > models.MaxPageSize {
		size = models.PageSize
	}
	return &Pager{src: src, size: size}
}

// Size, sayfa boyutu.
func (p *Pager) Size() int { return p.size }

// LoadInitial, en yeni sayfayı yükler.
func (p *Pager) LoadInitial(ctx context.Context) (*Page, error) {
	return p.load(ctx, 0)
}

// LoadOlder, oldestKnownID'den eski sayfayı yükler.
func (p *Pager) LoadOlder(ctx context.Context, oldestKnownID int64) (*Page, error) {
	if oldestKnownID <= 0 {
		return nil, fmt.Errorf("%w: oldest known id must be positive", pkg.ErrValidation)
	}
	return p.load(ctx, oldestKnownID)
}

func (p *Pager) load(ctx context.Context, cursor int64) (*Page, error) {
	mp, err := p.src.Page(ctx, cursor, p.size)
	if err != nil {
		return nil, err
	}

	return &Page{
		Messages:     mp.Messages,
		Usernames:    mp.Usernames,
		EndOfHistory: !mp.HasMore || len(mp.Messages) < p.size,
	}, nil
}
