package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/finwell/finance-gateway/internal/alerts"
	"github.com/finwell/finance-gateway/internal/config"
	"github.com/finwell/finance-gateway/internal/gateway"
	"github.com/finwell/finance-gateway/internal/handler"
	"github.com/finwell/finance-gateway/internal/middleware"
	"github.com/finwell/finance-gateway/internal/monitor"
	"github.com/finwell/finance-gateway/internal/provider"
	"github.com/finwell/finance-gateway/internal/ratelimit"
	"github.com/finwell/finance-gateway/internal/repository"
	"github.com/finwell/finance-gateway/internal/service"
	"github.com/finwell/finance-gateway/internal/storage"
	"github.com/finwell/finance-gateway/internal/usage"
	"github.com/finwell/finance-gateway/internal/validate"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Retention windows for the local gateway state.
const (
	recordRetention = 90 * 24 * time.Hour
	windowRetention = time.Hour
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize record store
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize local gateway state store
	local, err := storage.NewLocal(cfg.LocalDBPath)
	if err != nil {
		logger.Fatalf("Failed to open local store: %v", err)
	}
	defer local.Close()

	// Initialize layers
	repo := repository.NewRepository(db)
	limiter := ratelimit.New(local, logger)
	client := provider.NewClient(cfg, limiter, logger)
	tracker := usage.NewTracker(local, logger)

	var alerter monitor.Alerter
	if sender := alerts.NewSender(cfg, logger); sender.Enabled() {
		alerter = sender
	}
	mon := monitor.New(limiter, local, alerter, logger)

	validator := validate.New(cfg.IsDevelopment())
	gw := gateway.New(validator, client, tracker, mon, local, logger)
	svc := service.NewService(repo, gw, logger, cfg)
	h := handler.NewHandler(svc, gw, local, limiter, logger)

	// Schedule local state maintenance
	scheduler := cron.New()
	scheduler.AddFunc("@daily", func() {
		cutoff := time.Now().Add(-recordRetention)
		if n, err := local.SweepUsageBefore(cutoff); err != nil {
			logger.Errorf("Usage sweep failed: %v", err)
		} else if n > 0 {
			logger.Infof("Swept %d old usage records", n)
		}
		if n, err := local.SweepEventsBefore(cutoff); err != nil {
			logger.Errorf("Security event sweep failed: %v", err)
		} else if n > 0 {
			logger.Infof("Swept %d old security events", n)
		}
	})
	scheduler.AddFunc("@hourly", func() {
		if _, err := local.SweepIdleWindows(time.Now().Add(-windowRetention)); err != nil {
			logger.Errorf("Rate window sweep failed: %v", err)
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/records/{type}", h.CreateRecord).Methods("POST")
	authRouter.HandleFunc("/provider/link-token", h.CreateLinkToken).Methods("POST")
	authRouter.HandleFunc("/provider/exchange", h.ExchangePublicToken).Methods("POST")
	authRouter.HandleFunc("/provider/items/{itemID}/accounts", h.Accounts).Methods("GET")
	authRouter.HandleFunc("/provider/items/{itemID}/balances", h.Balances).Methods("GET")
	authRouter.HandleFunc("/provider/items/{itemID}/sync", h.SyncTransactions).Methods("POST")
	authRouter.HandleFunc("/provider/items/{itemID}/status", h.ItemStatus).Methods("GET")
	authRouter.HandleFunc("/provider/items/{itemID}", h.RemoveItem).Methods("DELETE")
	authRouter.HandleFunc("/provider/institutions/{institutionID}", h.Institution).Methods("GET")
	authRouter.HandleFunc("/usage", h.Usage).Methods("GET")
	authRouter.HandleFunc("/import/statement", h.ImportStatement).Methods("POST")
	authRouter.HandleFunc("/security-events", h.SecurityEvents).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
