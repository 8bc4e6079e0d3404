// File: internal/handlers/assistant_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lexserve/go-lexserve/internal/services"
)

type AssistantHandler struct {
	AssistantService *services.AssistantService
}

func NewAssistantHandler(as *services.AssistantService) *AssistantHandler {
	return &AssistantHandler{AssistantService: as}
}

// Ask answers a general legal question. Stateless: no conversation memory.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}

	answer, err := h.AssistantService.Ask(r.Context(), req.Question)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
