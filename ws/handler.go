package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/pkg/identity"
	"github.com/realAndi/PWAChat/pubsub"
)

// ParticipantResolver, bağlanan kimliğin gerçek bir katılımcı olduğunu doğrular.
// services.ParticipantService bu interface'i karşılar.
type ParticipantResolver interface {
	GetByID(ctx context.Context, id string) (*models.Participant, error)
}

// upgrader, HTTP bağlantısını websocket'e yükseltir.
// Origin kontrolü HTTP katmanındaki CORS ayarına bırakılır.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler, websocket endpoint'i.
type Handler struct {
	hub          *Hub
	broker       *pubsub.Broker
	channel      string
	verifier     identity.Verifier
	participants ParticipantResolver
	log          *zap.SugaredLogger
}

// NewHandler, constructor.
func NewHandler(
	hub *Hub,
	broker *pubsub.Broker,
	channel string,
	verifier identity.Verifier,
	participants ParticipantResolver,
	log *zap.SugaredLogger,
) *Handler {
	if channel == "" {
		channel = pubsub.ChannelChat
	}
	return &Handler{
		hub:          hub,
		broker:       broker,
		channel:      channel,
		verifier:     verifier,
		participants: participants,
		log:          log,
	}
}

// HandleConnection godoc
// GET /ws?token=<jwt> veya GET /ws?profile_id=<id>
//
// Akış:
//  1. Kimliği doğrula, katılımcıyı çöz
//  2. Broker'a abone ol (upgrade'den ÖNCE; arada yayınlanan event kaçmaz)
//  3. Upgrade et, ready frame'ini aboneliğin başlangıç seq'iyle yaz
//  4. Hub'a kaydet, pump'ları başlat
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	participantID, err := h.verifier.Verify(r)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	participant, err := h.participants.GetByID(r.Context(), participantID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			err = fmt.Errorf("%w: unknown participant", pkg.ErrUnauthorized)
		}
		pkg.Error(w, err)
		return
	}

	sub, err := h.broker.Subscribe(h.channel)
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusServiceUnavailable, "realtime unavailable")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		h.log.Warnw("upgrade failed", "participant", participant.ID, "error", err)
		return
	}

	client := newClient(h.hub, conn, participant.ID, sub, h.log)

	ready, err := newEvent(OpReady, ReadyData{
		ParticipantID: participant.ID,
		ConnectionID:  client.id,
		Channel:       h.channel,
		Seq:           sub.StartSeq(),
	})
	if err == nil {
		err = client.writeJSON(ready)
	}
	if err != nil {
		sub.Close()
		conn.Close()
		return
	}

	if !h.hub.Register(client) {
		client.close()
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}
