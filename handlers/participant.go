package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/services"
)

// ParticipantHandler, katılımcı okuma endpoint'leri.
type ParticipantHandler struct {
	participantService services.ParticipantService
}

// NewParticipantHandler, constructor.
func NewParticipantHandler(participantService services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService}
}

// ActiveCount godoc
// GET /api/chat/active-users
// Okunmamış sayacının paydası: aktif katılımcı sayısı.
func (h *ParticipantHandler) ActiveCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.participantService.ActiveCount(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, models.ActiveCount{Count: n})
}

// Usernames godoc
// POST /api/profiles/usernames
// Body: {"user_ids": ["a", "b"]} → {"a": "alice", "b": "bob"}
func (h *ParticipantHandler) Usernames(w http.ResponseWriter, r *http.Request) {
	var req models.UsernamesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	names, err := h.participantService.DisplayNames(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, names)
}

// Me godoc
// GET /api/profiles/me
// Doğrulanmış katılımcının profilini döner.
func (h *ParticipantHandler) Me(w http.ResponseWriter, r *http.Request) {
	participant, ok := ParticipantFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "participant not found in context")
		return
	}
	pkg.JSON(w, http.StatusOK, participant)
}
