package main

import (
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/finvault/backend/src/config"
	"github.com/username/finvault/backend/src/database"
	"github.com/username/finvault/backend/src/handlers"
	"github.com/username/finvault/backend/src/logger"
	"github.com/username/finvault/backend/src/processors"
	"github.com/username/finvault/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == config.Cfg.AllowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, "+config.Cfg.UserIDHeader)
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Finvault derivatives ledger starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(config.Cfg.ReportCacheExpiry, config.Cfg.ReportCacheCleanup)
	logger.L.Info("Report cache initialized.")

	logger.L.Info("Initializing services and handlers...")
	normalizer := processors.NewTransactionNormalizer()
	futuresProcessor := processors.NewFuturesProcessor()
	optionProcessor := processors.NewOptionProcessor()
	reportProcessor := processors.NewReportProcessor()

	ledgerService := services.NewLedgerService(
		normalizer, futuresProcessor, optionProcessor, reportProcessor,
		reportCache,
	)
	derivativesHandler := handlers.NewDerivativesHandler(ledgerService)

	logger.L.Info("Configuring routes...")
	apiRouter := http.NewServeMux()
	apiRouter.HandleFunc("POST /api/derivatives/transactions", derivativesHandler.HandleImportTransactions)
	apiRouter.HandleFunc("GET /api/derivatives/transactions", derivativesHandler.HandleGetTransactions)
	apiRouter.HandleFunc("GET /api/derivatives/summary", derivativesHandler.HandleGetSummary)
	apiRouter.HandleFunc("GET /api/derivatives/positions", derivativesHandler.HandleGetOpenPositions)
	apiRouter.HandleFunc("GET /api/derivatives/matches", derivativesHandler.HandleGetRealizedMatches)
	apiRouter.HandleFunc("GET /api/derivatives/options", derivativesHandler.HandleGetOptionOutcomes)

	rootHandler := rateLimitMiddleware(enableCORS(handlers.UserScopingMiddleware(apiRouter)))

	logger.L.Info("Server starting", "port", config.Cfg.Port)
	if err := http.ListenAndServe(":"+config.Cfg.Port, rootHandler); err != nil {
		logger.L.Error("Server failed to start", "error", err)
	}
}
