package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/services"
)

// MessageHandler, feed endpoint'lerini yöneten struct.
type MessageHandler struct {
	messageService services.MessageService
}

// NewMessageHandler, constructor.
func NewMessageHandler(messageService services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// List godoc
// GET /api/chat/messages?cursor=ID&limit=20
// Mesajları cursor-based pagination ile döner (artan ID sırası).
//
// cursor: bu ID'den küçük mesajlar (boşsa en yeniler)
// limit:  varsayılan 20, en fazla 100
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	var cursor int64
	if c := r.URL.Query().Get("cursor"); c != "" {
		parsed, err := strconv.ParseInt(c, 10, 64)
		if err != nil || parsed < 0 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "cursor must be a positive integer")
			return
		}
		cursor = parsed
	}

	limit := models.PageSize
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= models.MaxPageSize {
			limit = parsed
		}
	}

	page, err := h.messageService.Page(r.Context(), cursor, limit)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, page)
}

// Create godoc
// POST /api/chat/messages
// Body: {"content": "..."}
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	participant, ok := ParticipantFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "participant not found in context")
		return
	}

	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageService.Send(r.Context(), participant.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, message)
}

// MarkRead godoc
// POST /api/chat/messages/read
// Body: {"message_ids": [1, 2, 3]}
// İstek sahibini verilen mesajların okuyucu setine ekler.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	participant, ok := ParticipantFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "participant not found in context")
		return
	}

	var req models.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.messageService.MarkRead(r.Context(), participant.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, receipt)
}
