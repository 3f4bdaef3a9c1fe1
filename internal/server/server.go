package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medconnect/apiserver/config"
	"github.com/medconnect/apiserver/internal/credentials"
	"github.com/medconnect/apiserver/internal/db"
	"github.com/medconnect/apiserver/internal/handlers"
	"github.com/medconnect/apiserver/internal/mailer"
	"github.com/medconnect/apiserver/internal/services"
	"github.com/medconnect/apiserver/internal/storage"
	"github.com/medconnect/apiserver/internal/store"
)

// Server wraps the HTTP server, router, and owned connections.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mail       *mailer.Mailer
}

// New constructs a Server with all dependencies wired from config.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	creds, err := credentials.New(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	mail, err := newMailer(ctx, cfg.Mailer)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	avatarStore, err := newAvatarStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		_ = mail.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	adminRepo := store.NewAdminRepository(dbConn)
	sequenceRepo := store.NewSequenceRepository(dbConn)

	resetTTL := time.Duration(cfg.Auth.ResetTokenTTLMinutes) * time.Minute
	accountService := services.NewAccountService(userRepo, creds, mail)
	passwordService := services.NewPasswordService(userRepo, creds, mail, resetTTL)
	avatarService := services.NewAvatarService(userRepo, avatarStore)
	adminService := services.NewAdminService(adminRepo, sequenceRepo, creds)

	authHandler := handlers.NewAuthHandler(accountService, passwordService, avatarService, creds)
	adminHandler := handlers.NewAdminHandler(adminService, creds)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/admins", func(r chi.Router) {
		handlers.AdminRouter(r, adminHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mail:       mail,
	}, nil
}

func newMailer(ctx context.Context, cfg config.MailerConfig) (*mailer.Mailer, error) {
	var backend mailer.Backend
	switch cfg.Backend {
	case "rabbitmq":
		client, err := mailer.NewRabbitMQBackend(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		backend = client
	case "pubsub":
		client, err := mailer.NewPubSubBackend(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		backend = client
	case "":
		log.Println("mailer backend not configured; account emails will be logged only")
		backend = mailer.NewNoopBackend()
	default:
		return nil, fmt.Errorf("unknown mailer backend %q", cfg.Backend)
	}
	return mailer.New(backend, cfg.Channel), nil
}

func newAvatarStorage(ctx context.Context, cfg config.StorageConfig) (storage.AvatarStorage, error) {
	switch cfg.Backend {
	case "minio":
		client, err := storage.NewMinioStorage(cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return client, nil
	case "gcs":
		client, err := storage.NewGCSStorage(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return client, nil
	case "":
		log.Println("storage backend not configured; avatar uploads are disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.mail != nil {
		_ = s.mail.Close()
	}
	return s.httpServer.Close()
}
