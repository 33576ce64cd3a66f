// Package main provides the ticket-api server.
//
// This is a standalone REST API server that extracts railway tickets from
// posted text or PDF documents and returns them as pass payloads or as an
// iCalendar file. Page outcomes are logged to ClickHouse or SQLite when one
// is configured.
//
// Usage:
//
//	ticket-api [options]
//
// Options:
//
//	--addr ADDR          Listen address (env: API_ADDR, default :8080)
//	--api-keys KEYS      Comma-separated list of valid API keys (env: API_KEY)
//
// API Endpoints:
//
//	GET  /api/v1/health
//	POST /api/v1/tickets/text    Body: ticket text.
//	POST /api/v1/tickets/pdf     Body: PDF ticket.
//	POST /api/v1/tickets/ics     Body: text, or PDF with Content-Type application/pdf.
//	GET  /api/v1/outcomes/failures?since=24h
//	GET  /api/v1/submissions/{id}/outcomes
//	GET  /metrics
//
// Authentication:
//
//	When API keys are set, requests must include one via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"uzpass/internal/api"
	"uzpass/internal/config"
	"uzpass/internal/logging"
	"uzpass/internal/metrics"
	"uzpass/internal/parsers"
	"uzpass/internal/pdftext"
	"uzpass/internal/storage"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	addr := pflag.String("addr", cfg.HTTP.Addr, "HTTP listen address")
	apiKeys := pflag.String("api-keys", cfg.HTTP.APIKey, "Comma-separated list of valid API keys")
	pflag.Parse()

	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := storage.OpenOutcomeSink(ctx, cfg.Storage)
	if err != nil {
		log.Error("open outcome store", "error", err)
		os.Exit(1)
	}
	defer closeSink()

	// Parse API keys.
	var keys []string
	if *apiKeys != "" {
		keys = strings.Split(*apiKeys, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
	}

	server := api.NewServer(api.Deps{
		Registry: parsers.NewRegistry(),
		PDF:      &pdftext.Poppler{Path: cfg.PDFToText},
		Sink:     sink,
		Outcomes: sink,
		Metrics:  metrics.New(nil),
		Logger:   log,
	}, api.Config{
		Addr:           *addr,
		APIKeys:        keys,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	})

	if err := server.Run(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
