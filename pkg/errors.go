// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Error'lar sabit değişkenlerdir; karşılaştırma errors.Is ile yapılır,
// böylece wrap edilmiş error'lar da doğru eşleşir:
//
//	if errors.Is(err, pkg.ErrTransient) { ... }
package pkg

import "errors"

// Domain-level error'lar.
// Handler katmanı bu error'ları HTTP status code'larına map'ler,
// client SDK ise status code'ları tekrar bu error'lara çevirir.
var (
	// ErrValidation: boş/çok uzun mesaj, boş id listesi, geçersiz cursor.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound: bilinmeyen yazar veya kayıt.
	ErrNotFound = errors.New("not found")
	// ErrTransient: store geçici olarak ulaşılamaz (bağlantı, kilit, timeout).
	// Çağıran taraf kendi kararıyla tekrar deneyebilir.
	ErrTransient    = errors.New("store temporarily unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrInternal     = errors.New("internal error")
)
