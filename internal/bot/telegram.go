package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"uzpass/internal/logging"
	"uzpass/internal/metrics"
)

// DefaultMaxFileBytes is the Bot API download limit.
const DefaultMaxFileBytes = 20 << 20

// TelegramFiles downloads attached files through the Bot API.
type TelegramFiles struct {
	API      *tgbotapi.BotAPI
	HTTP     *http.Client
	MaxBytes int64
}

func (f *TelegramFiles) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	url, err := f.API.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file larger than %d bytes", limit)
	}
	return data, nil
}

// WebhookAPI manages the bot's webhook. *tgbotapi.BotAPI implements it.
type WebhookAPI interface {
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// EnsureWebhook points Telegram at url, replacing any other webhook. It
// reports whether the webhook had to be changed.
func EnsureWebhook(api WebhookAPI, url string) (bool, error) {
	info, err := api.GetWebhookInfo()
	if err != nil {
		return false, fmt.Errorf("get webhook info: %w", err)
	}
	if info.URL == url {
		return false, nil
	}

	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return false, fmt.Errorf("delete webhook: %w", err)
	}

	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return false, fmt.Errorf("build webhook: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return false, fmt.Errorf("set webhook: %w", err)
	}
	return true, nil
}

// Poll receives updates by long polling until ctx is done.
func (b *Bot) Poll(ctx context.Context, api *tgbotapi.BotAPI) error {
	// Polling and webhooks are exclusive.
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	b.log.Info("polling for updates", "bot", api.Self.UserName)
	defer b.Wait()

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.Go(ctx, update)
		}
	}
}

// WebhookHandler accepts updates posted by Telegram. Each update is handled
// in the background under ctx so Telegram gets its answer at once.
func (b *Bot) WebhookHandler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			b.log.Warn("bad webhook payload", "error", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		b.Go(ctx, update)
		w.WriteHeader(http.StatusOK)
	})
}

// Router serves the webhook at webhookPath, plus /metrics and a health check.
// The last path segment is a secret: the route is registered as a pattern so
// the request log shows "{secret}" rather than the value.
func (b *Bot) Router(ctx context.Context, webhookPath string, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(b.log))
	r.Use(middleware.Recoverer)

	dir, secret := path.Split(webhookPath)
	webhook := b.WebhookHandler(ctx)
	r.Post(dir+"{secret}", func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(chi.URLParam(r, "secret")), []byte(secret)) != 1 {
			http.NotFound(w, r)
			return
		}
		webhook.ServeHTTP(w, r)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	return r
}

// ServeWebhook serves the webhook router on addr until ctx is done.
func (b *Bot) ServeWebhook(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		b.log.Info("webhook listener starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	b.Wait()
	return nil
}

// NewAPI connects to the Bot API.
func NewAPI(token string, debug bool, log *slog.Logger) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("TELEGRAM_API_TOKEN is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = debug
	log.Info("authorised on telegram", "bot", api.Self.UserName)
	return api, nil
}
