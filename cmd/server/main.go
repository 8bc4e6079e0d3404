// File: cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/lexserve/go-lexserve/internal/config"
	"github.com/lexserve/go-lexserve/internal/domain"
	"github.com/lexserve/go-lexserve/internal/handlers"
	"github.com/lexserve/go-lexserve/internal/middleware"
	advocaterepo "github.com/lexserve/go-lexserve/internal/repository/advocate"
	consultrepo "github.com/lexserve/go-lexserve/internal/repository/consultation"
	historyrepo "github.com/lexserve/go-lexserve/internal/repository/history"
	messagerepo "github.com/lexserve/go-lexserve/internal/repository/message"
	"github.com/lexserve/go-lexserve/internal/ratelimit"
	"github.com/lexserve/go-lexserve/internal/services"
	"github.com/lexserve/go-lexserve/internal/ws"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// advocateStatusWriter adapts the advocate repository to the presence
// registry's durable write hook. Client presence has no durable columns, so
// non-advocate identities are a no-op.
type advocateStatusWriter struct {
	repo advocaterepo.AdvocateRepository
}

func (w *advocateStatusWriter) UpdatePresence(ctx context.Context, identity domain.Identity, online bool, lastSeen time.Time) error {
	if identity.Role != domain.RoleAdvocate {
		return nil
	}
	return w.repo.UpdatePresence(ctx, identity.ID, online, lastSeen)
}

func main() {
	cfg := config.Load()
	logger := services.NewLogger("lexserve")

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Advocate{},
		&domain.Consultation{},
		&domain.Message{},
		&domain.ChatHistory{},
	); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Repositories ---
	consultationRepo := consultrepo.NewConsultationRepository(db)
	messageRepo := messagerepo.NewMessageRepository(db)
	historyRepo := historyrepo.NewHistoryRepository(db)
	advocateRepo := advocaterepo.NewAdvocateRepository(db)

	// --- Transport ---
	rooms := ws.NewRoomRouter()
	presence := ws.NewPresenceRegistry(&advocateStatusWriter{repo: advocateRepo})
	broadcaster := ws.NewBroadcaster(rooms, presence)

	// --- Services ---
	consultationService, err := services.NewConsultationService(
		consultationRepo, advocateRepo, messageRepo, historyRepo, rooms, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Consultation Service: %v", err)
	}

	relayService, err := services.NewRelayService(
		consultationRepo, messageRepo, historyRepo, rooms, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Relay Service: %v", err)
	}

	var assistantService *services.AssistantService
	if cfg.AssistantAPIKey != "" {
		assistantConfig := services.DefaultAssistantConfig()
		assistantConfig.APIKey = cfg.AssistantAPIKey
		assistantConfig.BaseURL = cfg.AssistantBaseURL
		assistantConfig.Model = cfg.AssistantModel
		assistantService, err = services.NewAssistantService(assistantConfig, logger)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Assistant Service: %v", err)
		}
	}

	// --- Handlers ---
	consultationHandler := handlers.NewConsultationHandler(consultationService)
	messageHandler := handlers.NewMessageHandler(relayService)
	advocateHandler := handlers.NewAdvocateHandler(advocateRepo, presence)
	socketHandler := ws.NewHandler(rooms, presence, broadcaster, consultationService)

	// --- Rate limiters ---
	sendConfig := ratelimit.DefaultSendConfig()
	if cfg.SendRateLimit > 0 {
		sendConfig.MaxAttempts = cfg.SendRateLimit
	}
	sendLimiter := ratelimit.NewMemoryRateLimiter(sendConfig)
	defer sendLimiter.Close()

	// --- Router Setup ---
	r := mux.NewRouter()
	authMiddleware := middleware.NewJWTMiddleware([]byte(cfg.JWTSecretKey))
	sendRateLimit := middleware.RateLimitMiddleware(sendLimiter, "send_message")

	r.Use(corsMiddleware)
	r.Use(middleware.RecoverPanic)
	r.Use(middleware.LoggingMiddleware)

	// --- Public Routes ---
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("OK")) }).Methods("GET")

	// --- Protected Routes ---
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware)

	api.HandleFunc("/advocates", advocateHandler.ListAdvocates).Methods("GET")

	api.HandleFunc("/consultations", consultationHandler.StartConsultation).Methods("POST")
	api.HandleFunc("/consultations", consultationHandler.ListConsultations).Methods("GET")
	api.HandleFunc("/consultations/{id:[0-9]+}", consultationHandler.GetConsultation).Methods("GET")
	api.HandleFunc("/consultations/{id:[0-9]+}/end", consultationHandler.EndConsultation).Methods("POST")
	api.HandleFunc("/consultations/{id:[0-9]+}/cancel", consultationHandler.CancelConsultation).Methods("POST")

	api.Handle("/consultations/{id:[0-9]+}/messages",
		sendRateLimit(http.HandlerFunc(messageHandler.SendMessage))).Methods("POST")
	api.HandleFunc("/consultations/{id:[0-9]+}/messages", messageHandler.ListMessages).Methods("GET")
	api.HandleFunc("/consultations/{id:[0-9]+}/read", messageHandler.MarkRead).Methods("POST")

	api.HandleFunc("/history", messageHandler.GetChatHistory).Methods("GET")
	api.HandleFunc("/history/{id:[0-9]+}", messageHandler.GetHistoryMessages).Methods("GET")
	api.HandleFunc("/history/{id:[0-9]+}", messageHandler.DeleteHistory).Methods("DELETE")

	if assistantService != nil {
		assistantHandler := handlers.NewAssistantHandler(assistantService)
		assistantLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.AssistantConfig())
		defer assistantLimiter.Close()
		api.Handle("/assistant",
			middleware.RateLimitMiddleware(assistantLimiter, "assistant")(http.HandlerFunc(assistantHandler.Ask))).Methods("POST")
	}

	// The socket endpoint shares the JWT middleware; the upgrade happens
	// after authentication.
	r.Handle("/ws", authMiddleware(http.HandlerFunc(socketHandler.HandleSocket))).Methods("GET")

	// --- Server Setup with Graceful Shutdown ---
	// No global read/write timeouts: they would tear down long-lived
	// websocket connections. Per-write deadlines live on the connection.
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Shutdown Error: %v", err)
	}
}
