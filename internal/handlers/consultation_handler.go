// File: internal/handlers/consultation_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lexserve/go-lexserve/internal/domain"
	"github.com/lexserve/go-lexserve/internal/middleware"
	"github.com/lexserve/go-lexserve/internal/services"
)

type ConsultationHandler struct {
	ConsultationService *services.ConsultationService
}

func NewConsultationHandler(cs *services.ConsultationService) *ConsultationHandler {
	return &ConsultationHandler{ConsultationService: cs}
}

// StartConsultation handles the request to open a session with an advocate.
// Only clients start consultations.
func (h *ConsultationHandler) StartConsultation(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if identity.Role != domain.RoleClient {
		writeError(w, "Only clients can start consultations", http.StatusForbidden)
		return
	}

	var req struct {
		AdvocateID uint   `json:"advocateId"`
		Type       string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AdvocateID == 0 {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}

	created, err := h.ConsultationService.StartConsultation(r.Context(), identity.ID, req.AdvocateID, req.Type)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// EndConsultation completes an active consultation for either participant.
func (h *ConsultationHandler) EndConsultation(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, domain.ConsultationCompleted)
}

// CancelConsultation cancels an active consultation for either participant.
func (h *ConsultationHandler) CancelConsultation(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, domain.ConsultationCancelled)
}

func (h *ConsultationHandler) terminate(w http.ResponseWriter, r *http.Request, status string) {
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

	var (
		terminated *domain.Consultation
		err        error
	)
	if status == domain.ConsultationCancelled {
		terminated, err = h.ConsultationService.CancelConsultation(r.Context(), consultationID, identity)
	} else {
		terminated, err = h.ConsultationService.EndConsultation(r.Context(), consultationID, identity)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, terminated)
}

// GetConsultation returns one consultation visible to the caller.
func (h *ConsultationHandler) GetConsultation(w http.ResponseWriter, r *http.Request) {
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

	record, err := h.ConsultationService.GetConsultation(r.Context(), consultationID, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ListConsultations returns the caller's consultations, newest first.
func (h *ConsultationHandler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, offset := pagination(r)
	list, total, err := h.ConsultationService.ListConsultations(r.Context(), identity, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"consultations": list,
		"total":         total,
	})
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pagination parses optional limit/offset query parameters.
func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
