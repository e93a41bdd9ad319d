// Package server provides the HTTP API for CLARA.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/clarafin/clara/internal/advisory"
	"github.com/clarafin/clara/internal/alerts"
	"github.com/clarafin/clara/internal/breach"
	"github.com/clarafin/clara/internal/clients/alphavantage"
	"github.com/clarafin/clara/internal/config"
	"github.com/clarafin/clara/internal/portfolio"
	"github.com/clarafin/clara/internal/quotes"
	"github.com/clarafin/clara/internal/risk"
)

// Config holds everything the server routes against.
type Config struct {
	Log           zerolog.Logger
	Config        *config.Config
	Portfolio     *portfolio.Service
	Enricher      *portfolio.Enricher
	Cascade       *quotes.Cascade
	Calculator    *risk.Calculator
	Advisory      *advisory.Service
	AlertMonitor  *alerts.Monitor
	BreachMonitor *breach.Monitor
	AlphaVantage  *alphavantage.Client
}

// Server is the HTTP server.
type Server struct {
	router        *chi.Mux
	server        *http.Server
	log           zerolog.Logger
	cfg           *config.Config
	portfolio     *portfolio.Service
	enricher      *portfolio.Enricher
	cascade       *quotes.Cascade
	calculator    *risk.Calculator
	advisory      *advisory.Service
	alertMonitor  *alerts.Monitor
	breachMonitor *breach.Monitor
	alphaVantage  *alphavantage.Client
	startTime     time.Time
}

// New creates the HTTP server with all routes configured.
func New(cfg Config) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		log:           cfg.Log.With().Str("component", "server").Logger(),
		cfg:           cfg.Config,
		portfolio:     cfg.Portfolio,
		enricher:      cfg.Enricher,
		cascade:       cfg.Cascade,
		calculator:    cfg.Calculator,
		advisory:      cfg.Advisory,
		alertMonitor:  cfg.AlertMonitor,
		breachMonitor: cfg.BreachMonitor,
		alphaVantage:  cfg.AlphaVantage,
		startTime:     time.Now(),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", s.handlePortfolioList)
			r.Post("/", s.handlePortfolioAdd)
			r.Delete("/", s.handlePortfolioClear)
			r.Get("/enriched", s.handlePortfolioEnriched)
			r.Get("/summary", s.handlePortfolioSummary)
			r.Get("/var", s.handleMultiVaR)
			r.Post("/var", s.handleMultiVaR)
			r.Get("/contributors", s.handleRiskContributors)
			r.Get("/montecarlo", s.handleMonteCarlo)
			r.Get("/sensitivity", s.handleSensitivity)
			r.Post("/sensitivity", s.handleSensitivity)
			r.Get("/analysis", s.handleAdvisoryAnalysis)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handlePortfolioGet)
				r.Patch("/", s.handlePortfolioUpdate)
				r.Delete("/", s.handlePortfolioDelete)
			})
		})

		r.Route("/stocks", func(r chi.Router) {
			r.Post("/quotes", s.handleBatchQuotes)
			r.Get("/search", s.handleSearch)
			r.Get("/sources", s.handleSourceStatus)
			r.Get("/rate-status", s.handleRateStatus)
			r.Route("/{symbol}", func(r chi.Router) {
				r.Get("/quote", s.handleQuote)
				r.Get("/history", s.handleHistory)
				r.Get("/indicators", s.handleIndicators)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleAlertsList)
			r.Delete("/", s.handleAlertsClear)
			r.Get("/config", s.handleAlertConfigGet)
			r.Patch("/config", s.handleAlertConfigPatch)
			r.Get("/status", s.handleAlertStatus)
			r.Get("/email-log", s.handleEmailLog)
			r.Post("/test", s.handleTestAlert)
			r.Post("/reset-cooldown", s.handleResetCooldown)
			r.Post("/{id}/acknowledge", s.handleAlertAcknowledge)
		})

		r.Route("/breach", func(r chi.Router) {
			r.Post("/configure", s.handleBreachConfigure)
			r.Put("/threshold", s.handleBreachThreshold)
			r.Post("/check", s.handleBreachCheck)
			r.Get("/history", s.handleBreachHistory)
			r.Get("/current", s.handleBreachCurrent)
			r.Post("/{id}/acknowledge", s.handleBreachAcknowledge)
			r.Delete("/history", s.handleBreachClear)
		})

		r.Get("/system/health", s.handleSystemHealth)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi mux, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
