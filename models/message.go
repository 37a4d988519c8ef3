// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model, veritabanındaki bir tablonun Go karşılığıdır ve aynı zamanda
// API'den gelen/giden verilerin şeklini belirler. `json:"..."` tag'leri
// alanların JSON'a nasıl serialize edileceğini söyler.
package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// PageSize, bir feed sayfasındaki varsayılan mesaj sayısı.
const PageSize = 20

// MaxPageSize, istemcinin isteyebileceği en büyük sayfa.
const MaxPageSize = 100

// MaxContentLength, mesaj içeriğinin rune cinsinden üst sınırı.
const MaxContentLength = 2000

// MaxMarkReadBatch, tek bir okundu bildirimindeki en fazla id sayısı.
// MarkReadRequest'teki max etiketiyle aynı tutulmalı.
const MaxMarkReadBatch = 500

// validate, paket genelinde paylaşılan validator instance'ı.
// validator.Validate thread-safe'tir ve struct metadata'sını cache'ler.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Message, tek bir chat mesajını temsil eder.
// DB'deki "messages" satırı + "message_reads" tablosundan toplanan okuyucu seti.
//
// ID store tarafından atanır ve kesin artandır; feed sıralaması ID'ye göredir.
// AuthorName, gönderim anındaki kullanıcı adının kopyasıdır.
type Message struct {
	ID         int64     `json:"id"`
	AuthorID   string    `json:"user_id"`
	AuthorName string    `json:"username"`
	Body       string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	ReadBy     ReadBySet `json:"read_by"`
}

// Clone, ReadBy setini paylaşmayan bir kopya döner.
func (m Message) Clone() Message {
	m.ReadBy = m.ReadBy.Clone()
	return m
}

// MessagePage, cursor-based pagination sonucu.
//
// Messages her zaman artan ID sırasındadır (en eski başta).
// Usernames, sayfadaki yazar ve okuyucuların görünen adlarını tek seferde taşır;
// client her okuyucu için ayrı istek atmaz.
type MessagePage struct {
	Messages  []Message         `json:"messages"`
	Usernames map[string]string `json:"usernames"`
	HasMore   bool              `json:"has_more"`
}

// CreateMessageRequest, yeni mesaj gönderme isteği.
type CreateMessageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// Validate, içeriği trim'ler ve 1-2000 karakter kuralını uygular.
// validator'ın max kuralı string'lerde rune sayar.
func (r *CreateMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	return validate.Struct(r)
}

// MarkReadRequest, okundu bildirimi isteği.
type MarkReadRequest struct {
	MessageIDs []int64 `json:"message_ids" validate:"required,min=1,max=500,dive,gt=0"`
}

// Validate, id listesinin boş olmadığını ve her id'nin pozitif olduğunu kontrol eder.
func (r *MarkReadRequest) Validate() error {
	return validate.Struct(r)
}

// UsernamesRequest, görünen ad toplu sorgusu (POST /api/profiles/usernames).
type UsernamesRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,max=500,dive,required"`
}

// Validate, id listesini kontrol eder.
func (r *UsernamesRequest) Validate() error {
	return validate.Struct(r)
}
