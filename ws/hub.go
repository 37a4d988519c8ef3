package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/pkg/metrics"
)

// Hub, tüm websocket bağlantılarının kaydını tutar.
//
// Event dağıtımı pubsub.Broker'dadır; Hub yalnızca kimin bağlı olduğunu bilir,
// bağlantı/ayrılma callback'lerini tetikler ve kapanışta herkesi düşürür.
// register/unregister channel'ları Run goroutine'inde seri işlenir.
type Hub struct {
	// clients: participantID → Client set (bir katılımcının birden fazla sekmesi olabilir).
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// onConnect, katılımcının İLK bağlantısında; onDisconnect SON bağlantısı kapanınca çağrılır.
	onConnect    func(participantID string)
	onDisconnect func(participantID string)

	log *zap.SugaredLogger
}

// NewHub, yeni bir Hub oluşturur.
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// OnConnect, ilk bağlantı callback'ini ayarlar. Run'dan önce çağrılmalıdır.
func (h *Hub) OnConnect(fn func(participantID string)) { h.onConnect = fn }

// OnDisconnect, son bağlantı kapanış callback'ini ayarlar. Run'dan önce çağrılmalıdır.
func (h *Hub) OnDisconnect(fn func(participantID string)) { h.onDisconnect = fn }

// Run, Hub'ın ana döngüsü. ctx iptal edilince tüm client'ları kapatır ve döner.
//
//	go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Done, Run döndüğünde kapanır.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Register, client'ı kaydeder. Hub kapandıysa false döner.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister, client'ı kayıttan çıkarır. Hub kapandıysa no-op.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	first := false
	if _, ok := h.clients[client.participantID]; !ok {
		h.clients[client.participantID] = make(map[*Client]bool)
		first = true
	}
	h.clients[client.participantID][client] = true
	total := len(h.clients[client.participantID])
	h.mu.Unlock()

	metrics.WSConnections.Inc()

	h.log.Infow("client connected", "participant", client.participantID, "connection", client.id, "connections", total)

	if first && h.onConnect != nil {
		go h.onConnect(client.participantID)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	last := false
	removed := false
	clients, ok := h.clients[client.participantID]
	if ok {
		if _, exists := clients[client]; exists {
			removed = true
			delete(clients, client)
			client.close()
			if len(clients) == 0 {
				delete(h.clients, client.participantID)
				last = true
			}
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}
	metrics.WSConnections.Dec()
	h.log.Infow("client disconnected", "participant", client.participantID, "connection", client.id)

	if last && h.onDisconnect != nil {
		go h.onDisconnect(client.participantID)
	}
}

// ConnectionCount, açık bağlantı sayısı.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// IsConnected, katılımcının en az bir açık bağlantısı var mı?
func (h *Hub) IsConnected(participantID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[participantID]) > 0
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	closed := 0
	for _, clients := range h.clients {
		for client := range clients {
			client.close()
			closed++
		}
	}
	h.clients = make(map[string]map[*Client]bool)
	metrics.WSConnections.Sub(float64(closed))
	h.log.Info("hub shut down, all connections closed")
}
