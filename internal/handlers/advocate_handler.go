// File: internal/handlers/advocate_handler.go
package handlers

import (
	"net/http"

	"github.com/lexserve/go-lexserve/internal/domain"
	advocaterepo "github.com/lexserve/go-lexserve/internal/repository/advocate"
	"github.com/lexserve/go-lexserve/internal/ws"
)

type AdvocateHandler struct {
	AdvocateRepo advocaterepo.AdvocateRepository
	Presence     *ws.PresenceRegistry
}

func NewAdvocateHandler(repo advocaterepo.AdvocateRepository, presence *ws.PresenceRegistry) *AdvocateHandler {
	return &AdvocateHandler{AdvocateRepo: repo, Presence: presence}
}

// ListAdvocates returns the approved advocates. The stored is_online flag is
// overlaid with live registry state so a crashed instance's stale rows never
// show an advocate as reachable.
func (h *AdvocateHandler) ListAdvocates(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	if limit <= 0 {
		limit = 50
	}

	advocates, total, err := h.AdvocateRepo.FindApproved(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "Could not retrieve advocates", http.StatusInternalServerError)
		return
	}

	for i := range advocates {
		identity := domain.Identity{ID: advocates[i].ID, Role: domain.RoleAdvocate}
		advocates[i].IsOnline = h.Presence.IsOnline(identity)
		if lastSeen, ok := h.Presence.LastSeen(identity); ok {
			advocates[i].LastSeen = lastSeen
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"advocates": advocates,
		"total":     total,
	})
}
