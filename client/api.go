// Package client, PWAChat sunucusu için Go istemci SDK'sı.
//
//   - API: HTTP endpoint'leri (sayfa, gönderim, okundu, katılımcı sayısı, isimler)
//   - Pager: cursor-based sayfalama, EndOfHistory tespiti
//   - Realtime: websocket aboneliği, heartbeat, exponential backoff ile reconnect
//   - Session: hepsini feed.View etrafında birleştiren istemci oturumu
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/pkg/identity"
)

// APIError, sunucunun döndüğü hata yanıtı.
// Unwrap, status code'a karşılık gelen pkg sentinel'ini döner;
// errors.Is(err, pkg.ErrRateLimited) gibi kontroller çalışır.
type APIError struct {
	Status  int
	Message string
	// RetryAfter, 429 yanıtlarında sunucunun önerdiği bekleme.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return pkg.ErrorForStatus(e.Status)
}

// API, HTTP istemcisi.
type API struct {
	baseURL   *url.URL
	http      *http.Client
	profileID string
	token     string
}

// Option, API yapılandırma fonksiyonu.
type Option func(*API)

// WithProfileID, header kimlik modunda X-Profile-Id gönderir.
func WithProfileID(id string) Option {
	return func(a *API) { a.profileID = id }
}

// WithToken, token kimlik modunda Bearer token gönderir.
func WithToken(token string) Option {
	return func(a *API) { a.token = token }
}

// WithHTTPClient, varsayılan http.Client'ı değiştirir.
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.http = c }
}

// NewAPI, baseURL (ör. "http://localhost:9090") için istemci oluşturur.
func NewAPI(baseURL string, opts ...Option) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base url: %v", pkg.ErrValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url must be http or https", pkg.ErrValidation)
	}

	a := &API{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Page, GET /api/chat/messages. cursor 0 ise en yeni sayfa.
func (a *API) Page(ctx context.Context, cursor int64, limit int) (*models.MessagePage, error) {
	q := url.Values{}
	if cursor > 0 {
		q.Set("cursor", strconv.FormatInt(cursor, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var page models.MessagePage
	if err := a.do(ctx, http.MethodGet, "/api/chat/messages", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Send, POST /api/chat/messages. Otomatik retry yapılmaz.
func (a *API) Send(ctx context.Context, content string) (*models.Message, error) {
	var msg models.Message
	body := models.CreateMessageRequest{Content: content}
	if err := a.do(ctx, http.MethodPost, "/api/chat/messages", nil, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead, POST /api/chat/messages/read.
func (a *API) MarkRead(ctx context.Context, ids []int64) (*models.ReadReceipt, error) {
	var receipt models.ReadReceipt
	body := models.MarkReadRequest{MessageIDs: ids}
	if err := a.do(ctx, http.MethodPost, "/api/chat/messages/read", nil, body, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ActiveCount, GET /api/chat/active-users.
func (a *API) ActiveCount(ctx context.Context) (int, error) {
	var out models.ActiveCount
	if err := a.do(ctx, http.MethodGet, "/api/chat/active-users", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Usernames, POST /api/profiles/usernames.
func (a *API) Usernames(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string)
	body := models.UsernamesRequest{UserIDs: ids}
	if err := a.do(ctx, http.MethodPost, "/api/profiles/usernames", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me, GET /api/profiles/me.
func (a *API) Me(ctx context.Context) (*models.Participant, error) {
	var p models.Participant
	if err := a.do(ctx, http.MethodGet, "/api/profiles/me", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// WebsocketURL, /ws adresini ve kimlik bilgisini döner.
// Tarayıcı uyumu için kimlik query string'de taşınır.
func (a *API) WebsocketURL() string {
	u := *a.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	q := url.Values{}
	if a.token != "" {
		q.Set("token", a.token)
	} else if a.profileID != "" {
		q.Set("profile_id", a.profileID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *a.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	a.authorize(req)

	resp, err := a.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", pkg.ErrTransient, err)
	}
	defer resp.Body.Close()

	var env pkg.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Error}
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

func (a *API) authorize(req *http.Request) {
	switch {
	case a.token != "":
		req.Header.Set("Authorization", "Bearer "+a.token)
	case a.profileID != "":
		req.Header.Set(identity.HeaderProfileID, a.profileID)
	}
}
