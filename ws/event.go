// Package ws, websocket bağlantı yönetimi ve gerçek zamanlı event dağıtımı.
//
// Mimari:
//   - Hub: bağlı client'ların kaydı (Observer pattern)
//   - Client: tek bir websocket bağlantısı; pubsub aboneliğini socket'e taşır
//   - Handler: HTTP upgrade, kimlik doğrulama, abonelik açma
//
// Event akışı:
//  1. Katılımcı mesaj gönderir: HTTP POST → MessageService → DB commit
//  2. Service pubsub.Broker'a "new-message" yayınlar
//  3. Broker event'i seq ile damgalar, her client'ın aboneliğine iletir
//  4. Client'ın WritePump'ı event'i {op, d, seq} frame'i olarak yazar
package ws

import "encoding/json"

// Event, websocket üzerinden iletilen frame.
//
// Seq, kanal bazlı artan sayıdır. Client, ready'deki seq'ten itibaren
// her event'te bir artış bekler; boşluk görürse event kaçırmıştır.
type Event struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// Client → Server
const (
	OpHeartbeat = "heartbeat"
)

// Server → Client
const (
	OpReady        = "ready"
	OpHeartbeatAck = "heartbeat_ack"
	// Broker event'leri adlarıyla iletilir: "new-message", "message-read".
)

// ReadyData, bağlantı kurulunca ilk gönderilen payload.
// Seq, aboneliğin başladığı andaki son seq'tir; sonraki event Seq+1 taşır.
type ReadyData struct {
	ParticipantID string `json:"participant_id"`
	ConnectionID  string `json:"connection_id"`
	Channel       string `json:"channel"`
	Seq           int64  `json:"seq"`
}

// newEvent, payload'ı JSON'a çevirip Event oluşturur.
func newEvent(op string, payload any) (Event, error) {
	if payload == nil {
		return Event{Op: op}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Op: op, Data: data}, nil
}
