package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/AlionaVr/Bank-cards-REST/internal/config"
	"github.com/AlionaVr/Bank-cards-REST/internal/handler"
	"github.com/AlionaVr/Bank-cards-REST/internal/middleware"
	"github.com/AlionaVr/Bank-cards-REST/internal/repository"
	"github.com/AlionaVr/Bank-cards-REST/internal/service"
	"github.com/AlionaVr/Bank-cards-REST/internal/utils"
	"github.com/AlionaVr/Bank-cards-REST/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration. A missing or malformed PAN key aborts startup here.
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	cipher, err := utils.NewPANCipher(cfg.PANKey)
	if err != nil {
		logger.Fatalf("Failed to initialize PAN cipher: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize layers
	store := repository.NewPostgres(db)
	var notifier service.Notifier
	if cfg.SMTPHost != "" {
		notifier = email.NewSender(cfg, logger)
	}
	authSvc := service.NewAuthService(store, cfg.JWTSecret, logger)
	cardSvc := service.NewCardService(store, cipher, cfg.HMACSecret, notifier, logger)
	transferSvc := service.NewTransferService(store, logger)
	userSvc := service.NewUserService(store, logger)
	h := handler.NewHandler(authSvc, cardSvc, transferSvc, userSvc, logger)

	// Nightly sweep persisting EXPIRED for cards past their expiry date.
	// Reads derive expiry independently; this keeps stored rows honest.
	c := cron.New()
	if _, err := c.AddFunc("@daily", func() {
		if err := cardSvc.MarkExpiredCards(context.Background()); err != nil {
			logger.Errorf("Expiry sweep failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/cards", h.CreateCard).Methods("POST")
	authRouter.HandleFunc("/cards", h.GetAllCards).Methods("GET")
	authRouter.HandleFunc("/cards/{cardId}", h.GetCardDetails).Methods("GET")
	authRouter.HandleFunc("/cards/{cardId}", h.DeleteCard).Methods("DELETE")
	authRouter.HandleFunc("/cards/{cardId}/activate", h.ActivateCard).Methods("PUT")
	authRouter.HandleFunc("/cards/{cardId}/block", h.BlockCard).Methods("PUT")
	authRouter.HandleFunc("/cards/{cardId}/block-request", h.RequestBlock).Methods("POST")
	authRouter.HandleFunc("/cards/{cardId}/balance", h.GetBalance).Methods("GET")
	authRouter.HandleFunc("/cards/user/{userId}", h.GetUserCards).Methods("GET")
	authRouter.HandleFunc("/transfers", h.Transfer).Methods("POST")
	authRouter.HandleFunc("/transfers", h.GetTransferHistory).Methods("GET")
	authRouter.HandleFunc("/users", h.GetAllUsers).Methods("GET")
	authRouter.HandleFunc("/users/{userId}", h.GetUser).Methods("GET")
	authRouter.HandleFunc("/users/{userId}", h.UpdateUser).Methods("PUT")
	authRouter.HandleFunc("/users/{userId}", h.DeleteUser).Methods("DELETE")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
