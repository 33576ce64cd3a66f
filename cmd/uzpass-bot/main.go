// Package main runs the Telegram bot that turns Ukrzaliznytsia tickets into
// Wallet passes.
//
// The bot uses a webhook when WEBHOOK_HOST is set, listening on PORT at
// /webhook/<token>, and long polling otherwise. Issued passes are kept in
// PostgreSQL and repeated submissions are detected through Redis when those
// are configured.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"uzpass/internal/bot"
	"uzpass/internal/config"
	"uzpass/internal/dedupe"
	"uzpass/internal/logging"
	"uzpass/internal/metrics"
	"uzpass/internal/parsers"
	"uzpass/internal/pdftext"
	"uzpass/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := cfg.NewPassSlot()
	if err != nil {
		return err
	}

	api, err := bot.NewAPI(cfg.Telegram.Token, cfg.Telegram.Debug, log)
	if err != nil {
		return err
	}

	deps := bot.Deps{
		Sender:   api,
		Files:    &bot.TelegramFiles{API: api},
		Registry: parsers.NewRegistry(),
		PDF:      &pdftext.Poppler{Path: cfg.PDFToText},
		Issuer:   issuer,
		Metrics:  metrics.New(nil),
		Logger:   log,
	}

	if cfg.Storage.Postgres.Enabled() {
		pg, err := storage.OpenPostgres(ctx, cfg.Storage.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.CreateSchema(ctx); err != nil {
			return err
		}
		deps.Passes = pg
	} else {
		log.Warn("POSTGRES_HOST not set, pass history disabled")
	}

	if cfg.Redis.Addr != "" {
		rdb, err := dedupe.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		deps.Guard = dedupe.New(rdb, cfg.Redis.TTL)
	} else {
		log.Warn("REDIS_ADDR not set, duplicate detection disabled")
	}

	sink, closeSink, err := storage.OpenOutcomeSink(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeSink()
	deps.Sink = sink

	b := bot.New(deps)

	webhookURL, err := cfg.Telegram.WebhookURL()
	if err != nil {
		return err
	}
	if webhookURL == "" {
		return b.Poll(ctx, api)
	}

	changed, err := bot.EnsureWebhook(api, webhookURL)
	if err != nil {
		return err
	}
	log.Info("webhook ready", "changed", changed)

	addr := ":" + strconv.Itoa(cfg.Telegram.Port)
	return b.ServeWebhook(ctx, addr, b.Router(ctx, cfg.Telegram.WebhookPath(), deps.Metrics))
}
