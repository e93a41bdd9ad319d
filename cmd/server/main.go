// Package main is the entry point for CLARA, a portfolio risk monitoring
// service. It serves portfolio analytics over HTTP and runs the alert
// monitor in the background.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/clarafin/clara/internal/advisory"
	"github.com/clarafin/clara/internal/alerts"
	"github.com/clarafin/clara/internal/breach"
	"github.com/clarafin/clara/internal/clients/alphavantage"
	"github.com/clarafin/clara/internal/clients/twelvedata"
	"github.com/clarafin/clara/internal/clients/yahoofinance"
	"github.com/clarafin/clara/internal/config"
	"github.com/clarafin/clara/internal/database"
	"github.com/clarafin/clara/internal/domain"
	"github.com/clarafin/clara/internal/notify"
	"github.com/clarafin/clara/internal/portfolio"
	"github.com/clarafin/clara/internal/quotes"
	"github.com/clarafin/clara/internal/risk"
	"github.com/clarafin/clara/internal/server"
	"github.com/clarafin/clara/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting CLARA")

	// Portfolio database
	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "portfolio.db"),
		Name: "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	repo, err := portfolio.NewRepository(db.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize portfolio repository")
	}
	portfolioSvc := portfolio.NewService(repo, cfg.MaxPortfolioPositions, log)

	// Quote cascade: live providers in priority order, simulator as the
	// always-available last resort.
	avClient := alphavantage.NewClient(cfg.AlphaVantageAPIKey, cfg.AlphaVantageBaseURL, cfg.AlphaVantageDailyLimit, log)
	yahooClient := yahoofinance.NewClient(log)
	tdClient := twelvedata.NewClient(cfg.TwelveDataAPIKey, log)

	cascade := quotes.NewCascade(
		[]quotes.QuoteProvider{avClient, yahooClient, tdClient},
		[]quotes.HistoryProvider{avClient, yahooClient},
		quotes.NewSimulator(0),
		log,
	)

	enricher := portfolio.NewEnricher(portfolioSvc, cascade, log)

	// Advisory model, consulted for portfolio analysis and distribution
	// recommendations when a key is configured.
	advisorySvc := advisory.NewService(advisory.Config{
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		Timeout:      cfg.AdvisoryTimeout,
	}, log)

	var advisor risk.DistributionAdvisor
	if cfg.AdvisoryProvider != "off" {
		advisor = advisorySvc
	}
	calculator := risk.NewCalculator(cfg.VaRConfidenceLevels, cfg.VaRTimeHorizons, advisor, 0, log)

	dispatcher := notify.NewDispatcher(notify.Config{
		SendGridAPIKey: cfg.SendGridAPIKey,
		FromEmail:      cfg.SendGridFromEmail,
		FromName:       cfg.SendGridFromName,
		SMTPHost:       cfg.SMTPHost,
		SMTPPort:       cfg.SMTPPort,
		SMTPUsername:   cfg.SMTPUsername,
		SMTPPassword:   cfg.SMTPPassword,
		SMTPUseTLS:     cfg.SMTPUseTLS,
	}, log)

	alertMonitor := alerts.NewMonitor(enricher, dispatcher, domain.AlertConfig{
		Enabled:             true,
		CheckInterval:       cfg.AlertCheckInterval,
		Cooldown:            cfg.AlertCooldown,
		AlertOnSellTarget:   true,
		AlertOnStopLoss:     true,
		AlertOnTrailingStop: true,
		AlertOnBullTarget:   true,
	}, cfg.DailySummaryHour, log)

	breachMonitor := breach.NewMonitor(log)

	srv := server.New(server.Config{
		Log:           log,
		Config:        cfg,
		Portfolio:     portfolioSvc,
		Enricher:      enricher,
		Cascade:       cascade,
		Calculator:    calculator,
		Advisory:      advisorySvc,
		AlertMonitor:  alertMonitor,
		BreachMonitor: breachMonitor,
		AlphaVantage:  avClient,
	})

	// Start server in goroutine so the alert monitor can run concurrently.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		alertMonitor.Run(ctx)
	}()
	log.Info().Msg("Alert monitor started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	cancel()
	alertMonitor.Stop()
	wg.Wait()
	log.Info().Msg("Alert monitor stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
