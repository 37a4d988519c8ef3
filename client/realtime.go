package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/ws"
)

const (
	// DefaultHeartbeatInterval, sunucunun 90 sn'lik read deadline'ının çok altında.
	DefaultHeartbeatInterval = 30 * time.Second

	writeTimeout = 10 * time.Second
)

// EventHandler, her frame için sırayla çağrılır.
// Aynı anda en fazla bir çağrı çalışır.
type EventHandler func(ctx context.Context, ev ws.Event)

// Realtime, websocket aboneliğini ayakta tutar.
//
// Bağlantı koparsa exponential backoff ile yeniden bağlanır. Başarılı bir
// bağlantıdan sonra backoff sıfırlanır. 401 kalıcı hatadır, retry edilmez.
type Realtime struct {
	url       string
	dialer    *websocket.Dialer
	heartbeat time.Duration
	newPolicy func() backoff.BackOff
	log       *zap.SugaredLogger
}

// RealtimeOption, Realtime yapılandırma fonksiyonu.
type RealtimeOption func(*Realtime)

// WithHeartbeat, heartbeat aralığını değiştirir.
func WithHeartbeat(d time.Duration) RealtimeOption {
	return func(r *Realtime) { r.heartbeat = d }
}

// WithBackoff, reconnect politikasını değiştirir (testlerde kısa aralıklar için).
func WithBackoff(newPolicy func() backoff.BackOff) RealtimeOption {
	return func(r *Realtime) { r.newPolicy = newPolicy }
}

// NewRealtime, wsURL için abone oluşturur. API.WebsocketURL() ile üretilebilir.
func NewRealtime(wsURL string, log *zap.SugaredLogger, opts ...RealtimeOption) *Realtime {
	r := &Realtime{
		url:       wsURL,
		dialer:    websocket.DefaultDialer,
		heartbeat: DefaultHeartbeatInterval,
		newPolicy: defaultBackoff,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run, ctx iptal edilene kadar bağlı kalır ve her frame'i handle'a verir.
// ctx iptalinde ctx.Err(), kalıcı hatada (401, backoff.Stop) son hatayı döner.
func (r *Realtime) Run(ctx context.Context, handle EventHandler) error {
	policy := r.newPolicy()

	for {
		connected, err := r.runOnce(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, pkg.ErrUnauthorized) {
			return err
		}
		if connected {
			policy.Reset()
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		r.log.Infow("realtime disconnected, reconnecting", "in", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runOnce, tek bir bağlantının ömrü. connected, dial başarılı olduysa true.
func (r *Realtime) runOnce(ctx context.Context, handle EventHandler) (bool, error) {
	conn, resp, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return false, fmt.Errorf("%w: websocket rejected", pkg.ErrUnauthorized)
		}
		return false, fmt.Errorf("%w: dial: %v", pkg.ErrTransient, err)
	}

	connCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	var writeMu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.heartbeatLoop(connCtx, conn, &writeMu)
	}()

	// ctx iptalinde bloklanmış ReadMessage'ı çöz.
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		var ev ws.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			r.log.Debugw("invalid frame", "error", err)
			continue
		}
		if ev.Op == ws.OpHeartbeatAck {
			continue
		}
		handle(ctx, ev)
	}
}

func (r *Realtime) heartbeatLoop(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	frame, _ := json.Marshal(ws.Event{Op: ws.OpHeartbeat})
	for {
		select {
		case <-ctx.Done():
			writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			writeMu.Unlock()
			return
		case <-ticker.C:
			writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.TextMessage, frame)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
