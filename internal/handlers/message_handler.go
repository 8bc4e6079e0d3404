// File: internal/handlers/message_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lexserve/go-lexserve/internal/middleware"
	"github.com/lexserve/go-lexserve/internal/services"
)

type MessageHandler struct {
	RelayService *services.RelayService
}

func NewMessageHandler(rs *services.RelayService) *MessageHandler {
	return &MessageHandler{RelayService: rs}
}

// SendMessage persists a message and relays it to the counterpart. The
// persisted row comes back in the response so the sender confirms its
// optimistic entry from here, not from any broadcast.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	consultationID, ok := pathID(r)
	if !ok {
		writeError(w, "Invalid consultation ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}

	persisted, err := h.RelayService.SendMessage(r.Context(), consultationID, identity, req.Message, req.Kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, persisted)
}

// ListMessages returns the consultation's messages in send order.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	consultationID, ok := pathID(r)
	if !ok {
		writeError(w, "Invalid consultation ID", http.StatusBadRequest)
		return
	}

	limit, offset := pagination(r)
	messages, total, err := h.RelayService.ListMessages(r.Context(), consultationID, identity, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"total":    total,
	})
}

// MarkRead flags the counterpart's messages as read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	consultationID, ok := pathID(r)
	if !ok {
		writeError(w, "Invalid consultation ID", http.StatusBadRequest)
		return
	}

	flipped, err := h.RelayService.MarkMessagesRead(r.Context(), consultationID, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": flipped})
}

// GetChatHistory returns the caller's history overview.
func (h *MessageHandler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := h.RelayService.GetChatHistory(r.Context(), identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetHistoryMessages returns the full message list for one consultation.
func (h *MessageHandler) GetHistoryMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	consultationID, ok := pathID(r)
	if !ok {
		writeError(w, "Invalid consultation ID", http.StatusBadRequest)
		return
	}

	messages, err := h.RelayService.GetHistoryMessages(r.Context(), consultationID, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// DeleteHistory removes a client's history for a terminated consultation.
func (h *MessageHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	consultationID, ok := pathID(r)
	if !ok {
		writeError(w, "Invalid consultation ID", http.StatusBadRequest)
		return
	}

	if err := h.RelayService.DeleteHistory(r.Context(), consultationID, identity); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
