// Package main provides the ticket-worker, which extracts tickets from
// submissions queued on NATS.
//
// Workers join one queue group, so each submission published on the page
// subject (NATS_SUBJECT) is processed once. Every result is published on
// NATS_RESULT_SUBJECT and, for requests, sent back as the reply. Page
// outcomes are logged to ClickHouse or SQLite when one is configured, and
// Prometheus metrics are served on WORKER_METRICS_ADDR.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"uzpass/internal/config"
	"uzpass/internal/logging"
	"uzpass/internal/metrics"
	"uzpass/internal/parsers"
	"uzpass/internal/pdftext"
	"uzpass/internal/storage"
	"uzpass/internal/worker"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nc, err := worker.Connect(cfg.NATS.URL, "ticket-worker", log)
	if err != nil {
		log.Error("nats", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	sink, closeSink, err := storage.OpenOutcomeSink(ctx, cfg.Storage)
	if err != nil {
		log.Error("open outcome store", "error", err)
		os.Exit(1)
	}
	defer closeSink()

	w := worker.New(worker.Deps{
		Registry:  parsers.NewRegistry(),
		PDF:       &pdftext.Poppler{Path: cfg.PDFToText},
		Publisher: nc,
		Sink:      sink,
		Metrics:   metrics.New(nil),
		Logger:    log,
	}, cfg.NATS.ResultSubject)

	go func() {
		if err := w.ServeMetrics(ctx, cfg.NATS.MetricsAddr); err != nil {
			log.Error("metrics listener", "error", err)
		}
	}()

	if err := w.Run(ctx, nc, cfg.NATS.Subject, cfg.NATS.Queue); err != nil {
		log.Error("worker error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
