package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/pubsub"
)

const (
	// writeWait: tek bir frame yazımı için süre sınırı.
	writeWait = 10 * time.Second

	// pongWait: client'tan heartbeat beklenen süre. İstemci 30 sn'de bir gönderir;
	// 90 sn içinde gelmezse bağlantı ölü kabul edilir.
	pongWait = 90 * time.Second

	// maxMessageSize: client → server frame sınırı. Client yalnızca heartbeat gönderir.
	maxMessageSize = 4096

	sendBufferSize = 16
)

// Client, tek bir websocket bağlantısı.
//
// İki goroutine ile çalışır:
//   - ReadPump: client'tan gelen heartbeat'leri okur
//   - WritePump: hem doğrudan yanıtları (send) hem broker event'lerini (sub) socket'e yazar
//
// gorilla/websocket aynı anda tek okuyucu ve tek yazıcıya izin verir;
// yazmalar writeMu ile seri hale getirilir.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	id            string
	participantID string
	sub           *pubsub.Subscription

	send    chan []byte
	sendMu  sync.Mutex
	closed  bool
	writeMu sync.Mutex

	log *zap.SugaredLogger
}

func newClient(hub *Hub, conn *websocket.Conn, participantID string, sub *pubsub.Subscription, log *zap.SugaredLogger) *Client {
	id := uuid.NewString()
	return &Client{
		hub:           hub,
		conn:          conn,
		id:            id,
		participantID: participantID,
		sub:           sub,
		send:          make(chan []byte, sendBufferSize),
		log:           log.With("participant", participantID, "connection", id),
	}
}

// ReadPump, client'tan gelen frame'leri okur. Bağlantı kapanana kadar bloklar.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warnw("failed to set read deadline", "error", err)
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Infow("unexpected close", "error", err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.log.Debugw("invalid frame", "error", err)
			continue
		}

		switch event.Op {
		case OpHeartbeat:
			if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
				c.log.Warnw("failed to set read deadline", "error", err)
				return
			}
			c.sendEvent(Event{Op: OpHeartbeatAck})
		default:
			c.log.Debugw("unknown op", "op", event.Op)
		}
	}
}

// WritePump, send kanalını ve broker aboneliğini socket'e yazar.
//
// Abonelik kapanırsa (tampon taştı veya broker kapandı) client event kaçırmış
// olabilir; bağlantı CloseTryAgainLater ile kapatılır ve client yeniden bağlanıp
// feed'ini store'dan yeniden yükler.
func (c *Client) WritePump() {
	defer c.conn.Close()

	events := c.sub.Events()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.writeMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case ev, ok := <-events:
			if !ok {
				if c.sub.Dropped() {
					c.log.Warn("subscription dropped, closing connection")
				}
				_ = c.writeMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "resync required"))
				return
			}

			data, err := json.Marshal(Event{Op: ev.Name, Data: ev.Payload, Seq: ev.Seq})
			if err != nil {
				c.log.Errorw("failed to marshal event", "error", err)
				continue
			}
			if err := c.writeMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// sendEvent, doğrudan yanıtı send kanalına koyar. Tampon doluysa bağlantı düşürülür.
func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.log.Errorw("failed to marshal event", "error", err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("send buffer full, dropping connection")
		c.closed = true
		close(c.send)
	}
}

// writeJSON, frame'i doğrudan (pump'lar başlamadan) yazar.
func (c *Client) writeJSON(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.writeMessage(websocket.TextMessage, data)
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// close, send kanalını kapatır ve aboneliği sonlandırır. Birden fazla çağrı güvenlidir.
func (c *Client) close() {
	c.sendMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.sendMu.Unlock()

	c.sub.Close()
}
