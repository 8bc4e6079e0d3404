// File: internal/handlers/consultation_handler_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lexserve/go-lexserve/internal/auth"
	"github.com/lexserve/go-lexserve/internal/domain"
	"github.com/lexserve/go-lexserve/internal/middleware"
	advocaterepo "github.com/lexserve/go-lexserve/internal/repository/advocate"
	consultrepo "github.com/lexserve/go-lexserve/internal/repository/consultation"
	historyrepo "github.com/lexserve/go-lexserve/internal/repository/history"
	messagerepo "github.com/lexserve/go-lexserve/internal/repository/message"
	"github.com/lexserve/go-lexserve/internal/services"
	"github.com/lexserve/go-lexserve/internal/ws"
)

var apiTestSecret = []byte("api-test-secret")

type apiFixture struct {
	router     *mux.Router
	advocateID uint
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Advocate{}, &domain.Consultation{}, &domain.Message{}, &domain.ChatHistory{}))

	consultationRepo := consultrepo.NewConsultationRepository(db)
	messageRepo := messagerepo.NewMessageRepository(db)
	historyRepo := historyrepo.NewHistoryRepository(db)
	advocateRepo := advocaterepo.NewAdvocateRepository(db)

	adv, err := advocateRepo.Create(context.Background(), &domain.Advocate{
		Name:       "Asha Rao",
		Email:      "asha@example.com",
		FeeAmount:  500,
		IsApproved: true,
	})
	require.NoError(t, err)

	rooms := ws.NewRoomRouter()
	presence := ws.NewPresenceRegistry(nil)

	consultationService, err := services.NewConsultationService(
		consultationRepo, advocateRepo, messageRepo, historyRepo, rooms, &services.NoOpLogger{})
	require.NoError(t, err)
	relayService, err := services.NewRelayService(
		consultationRepo, messageRepo, historyRepo, rooms, &services.NoOpLogger{})
	require.NoError(t, err)

	consultationHandler := NewConsultationHandler(consultationService)
	messageHandler := NewMessageHandler(relayService)
	advocateHandler := NewAdvocateHandler(advocateRepo, presence)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewJWTMiddleware(apiTestSecret))
	api.HandleFunc("/advocates", advocateHandler.ListAdvocates).Methods("GET")
	api.HandleFunc("/consultations", consultationHandler.StartConsultation).Methods("POST")
	api.HandleFunc("/consultations", consultationHandler.ListConsultations).Methods("GET")
	api.HandleFunc("/consultations/{id:[0-9]+}/end", consultationHandler.EndConsultation).Methods("POST")
	api.HandleFunc("/consultations/{id:[0-9]+}/messages", messageHandler.SendMessage).Methods("POST")
	api.HandleFunc("/consultations/{id:[0-9]+}/messages", messageHandler.ListMessages).Methods("GET")
	api.HandleFunc("/history", messageHandler.GetChatHistory).Methods("GET")

	return &apiFixture{router: r, advocateID: adv.ID}
}

func (f *apiFixture) request(t *testing.T, identity domain.Identity, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if identity.IsValid() {
		token, err := auth.GenerateJWT(identity, apiTestSecret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestStartConsultationEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	client := domain.Identity{ID: 10, Role: domain.RoleClient}

	rec := f.request(t, client, http.MethodPost, "/api/consultations",
		map[string]interface{}{"advocateId": f.advocateID})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Consultation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	require.Equal(t, domain.ConsultationActive, created.Status)
	require.Equal(t, 500, created.FeeAmount)
}

func TestStartConsultationRejectsAdvocateCaller(t *testing.T) {
	f := newAPIFixture(t)
	advocate := domain.Identity{ID: f.advocateID, Role: domain.RoleAdvocate}

	rec := f.request(t, advocate, http.MethodPost, "/api/consultations",
		map[string]interface{}{"advocateId": f.advocateID})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStartConsultationRequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, domain.Identity{}, http.MethodPost, "/api/consultations",
		map[string]interface{}{"advocateId": f.advocateID})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEndConsultationTwice(t *testing.T) {
	f := newAPIFixture(t)
	client := domain.Identity{ID: 10, Role: domain.RoleClient}

	rec := f.request(t, client, http.MethodPost, "/api/consultations",
		map[string]interface{}{"advocateId": f.advocateID})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Consultation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	endPath := fmt.Sprintf("/api/consultations/%d/end", created.ID)
	rec = f.request(t, client, http.MethodPost, endPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, client, http.MethodPost, endPath, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendAndListMessages(t *testing.T) {
	f := newAPIFixture(t)
	client := domain.Identity{ID: 10, Role: domain.RoleClient}

	rec := f.request(t, client, http.MethodPost, "/api/consultations",
		map[string]interface{}{"advocateId": f.advocateID})
	var created domain.Consultation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	messagesPath := fmt.Sprintf("/api/consultations/%d/messages", created.ID)
	rec = f.request(t, client, http.MethodPost, messagesPath,
		map[string]string{"message": "Hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var persisted domain.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &persisted))
	require.NotZero(t, persisted.ID)
	require.Equal(t, "Hello", persisted.Body)

	// Empty bodies are rejected up front.
	rec = f.request(t, client, http.MethodPost, messagesPath,
		map[string]string{"message": "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// An outsider cannot read the transcript.
	rec = f.request(t, domain.Identity{ID: 99, Role: domain.RoleClient}, http.MethodGet, messagesPath, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.request(t, client, http.MethodGet, messagesPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Messages []domain.Message `json:"messages"`
		Total    int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.EqualValues(t, 1, listed.Total)
	require.Equal(t, "Hello", listed.Messages[0].Body)
}

func TestHistoryEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	client := domain.Identity{ID: 10, Role: domain.RoleClient}

	rec := f.request(t, client, http.MethodPost, "/api/consultations",
		map[string]interface{}{"advocateId": f.advocateID})
	var created domain.Consultation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.request(t, client, http.MethodPost,
		fmt.Sprintf("/api/consultations/%d/messages", created.ID),
		map[string]string{"message": "Hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.request(t, client, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []services.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, created.ID, entries[0].ConsultationID)
	require.Equal(t, "Hello", entries[0].LastMessage)
}

func TestListAdvocatesEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	client := domain.Identity{ID: 10, Role: domain.RoleClient}

	rec := f.request(t, client, http.MethodGet, "/api/advocates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Advocates []domain.Advocate `json:"advocates"`
		Total     int64             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.EqualValues(t, 1, listed.Total)
	require.False(t, listed.Advocates[0].IsOnline)
}
