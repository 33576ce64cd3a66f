// Package bot turns tickets sent to a Telegram chat into Wallet passes.
package bot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"uzpass/internal/calendar"
	"uzpass/internal/dedupe"
	"uzpass/internal/document"
	"uzpass/internal/extractor"
	"uzpass/internal/metrics"
	"uzpass/internal/passslot"
	"uzpass/internal/pdftext"
	"uzpass/internal/registry"
	"uzpass/internal/storage"
	"uzpass/internal/ticket"
)

const (
	pdfMimeType     = "application/pdf"
	shutdownTimeout = 10 * time.Second
)

// Sender delivers messages to Telegram. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Files downloads documents attached to messages.
type Files interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// Issuer registers a pass for a ticket. *passslot.Client implements it.
type Issuer interface {
	Issue(ctx context.Context, t ticket.Ticket) (*passslot.Issued, error)
}

// Deps are the collaborators of the bot. Passes, Guard, Sink and Metrics
// are optional.
type Deps struct {
	Sender   Sender
	Files    Files
	Registry *registry.Registry
	PDF      pdftext.Extractor
	Issuer   Issuer
	Passes   storage.PassStore
	Guard    *dedupe.Guard
	Sink     storage.OutcomeSink
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Bot handles Telegram updates.
type Bot struct {
	sender  Sender
	files   Files
	reg     *registry.Registry
	pdf     pdftext.Extractor
	issuer  Issuer
	passes  storage.PassStore
	guard   *dedupe.Guard
	sink    storage.OutcomeSink
	metrics *metrics.Metrics
	log     *slog.Logger

	wg sync.WaitGroup
}

// New creates a bot.
func New(deps Deps) *Bot {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		sender:  deps.Sender,
		files:   deps.Files,
		reg:     deps.Registry,
		pdf:     deps.PDF,
		issuer:  deps.Issuer,
		passes:  deps.Passes,
		guard:   deps.Guard,
		sink:    deps.Sink,
		metrics: deps.Metrics,
		log:     log,
	}
}

// Go handles the update in its own goroutine. Wait blocks until every
// update started this way is done.
func (b *Bot) Go(ctx context.Context, update tgbotapi.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.HandleUpdate(ctx, update)
	}()
}

// Wait blocks until the updates started by Go are handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// HandleUpdate handles one update. Updates other than messages are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return
	}

	log := b.log.With("chat_id", m.Chat.ID, "message_id", m.MessageID)

	switch {
	case m.IsCommand():
		b.handleCommand(ctx, log, m)
	case m.Document != nil:
		if m.Document.MimeType != pdfMimeType {
			log.Debug("ignoring document", "mime_type", m.Document.MimeType)
			return
		}
		b.handlePDF(ctx, log, m)
	case strings.TrimSpace(m.Text) != "":
		b.handleText(ctx, log, m)
	}
}

func (b *Bot) handleCommand(ctx context.Context, log *slog.Logger, m *tgbotapi.Message) {
	log.Info("command received", "command", m.Command())

	switch m.Command() {
	case "start", "help":
		b.reply(log, m, helpText, "")
	case "todo":
		b.reply(log, m, todoText, tgbotapi.ModeMarkdown)
	case "passes":
		b.replyPasses(ctx, log, m, "")
	case "clear":
		b.clearPasses(ctx, log, m)
	default:
		b.reply(log, m, "Unknown command. "+helpText, "")
	}
}

func (b *Bot) handleText(ctx context.Context, log *slog.Logger, m *tgbotapi.Message) {
	key := dedupe.TextKey(m.Chat.ID, m.Text)
	if !b.claim(ctx, log, m, key) {
		return
	}

	sub := document.NewSubmission(document.SourceText, m.Text)
	sub.ChatID = document.ChatID(m.Chat.ID)
	b.process(ctx, log, m, sub, key)
}

func (b *Bot) handlePDF(ctx context.Context, log *slog.Logger, m *tgbotapi.Message) {
	doc := m.Document
	log = log.With("file_name", doc.FileName, "file_size", doc.FileSize)
	log.Info("pdf received")

	key := dedupe.FileKey(m.Chat.ID, doc.FileUniqueID)
	if !b.claim(ctx, log, m, key) {
		return
	}

	data, err := b.files.Fetch(ctx, doc.FileID)
	if err != nil {
		log.Error("download failed", "error", err)
		b.release(ctx, log, key)
		b.reply(log, m, fmt.Sprintf("download failed: %v", err), "")
		return
	}

	text, err := b.pdf.Extract(ctx, bytes.NewReader(data))
	if err != nil {
		log.Warn("pdf text extraction failed", "error", err)
		b.release(ctx, log, key)
		b.reply(log, m, fmt.Sprintf("parsing failed: %v", err), "")
		return
	}

	sub := document.NewSubmission(document.SourcePDF, text)
	sub.ChatID = document.ChatID(m.Chat.ID)
	b.process(ctx, log, m, sub, key)
}

// claim reports whether the submission is new. A duplicate is answered with
// the chat's pass list. Redis errors let the submission through.
func (b *Bot) claim(ctx context.Context, log *slog.Logger, m *tgbotapi.Message, key string) bool {
	ok, err := b.guard.Claim(ctx, key)
	if err != nil {
		log.Warn("dedupe claim failed", "error", err)
		return true
	}
	if !ok {
		log.Info("duplicate submission")
		b.metrics.Duplicate()
		b.replyPasses(ctx, log, m, "This ticket was already processed.\n\n")
		return false
	}
	return true
}

func (b *Bot) release(ctx context.Context, log *slog.Logger, key string) {
	if err := b.guard.Release(ctx, key); err != nil {
		log.Warn("dedupe release failed", "error", err)
	}
}

// process extracts the tickets of a submission and issues a pass for each.
// The dedupe key is released when no pass came out of it, so the user can
// send the ticket again.
func (b *Bot) process(ctx context.Context, log *slog.Logger, m *tgbotapi.Message, sub *document.Submission, key string) {
	log = log.With("submission_id", sub.ID, "source", sub.Source)

	res := extractor.Extract(b.reg, sub)
	b.metrics.ObserveResult(res)
	b.recordOutcomes(ctx, log, res)

	log.Info("submission parsed",
		"pages", res.Stats.Pages,
		"parsed", res.Stats.Parsed,
		"failed", res.Stats.Failed,
	)
	for _, f := range res.Failures {
		log.Info("page failed", "page", f.Page, "kind", f.Kind, "error", f.Error)
	}

	if len(res.Tickets) == 0 {
		b.release(ctx, log, key)
		b.reply(log, m, "parsing failed: "+failureReason(res), "")
		return
	}

	issued := 0
	for _, t := range res.Tickets {
		if b.issue(ctx, log, m, t) {
			issued++
		}
	}
	if issued == 0 {
		b.release(ctx, log, key)
	}
}

// issue registers a pass for t and sends the pass and its calendar event.
func (b *Bot) issue(ctx context.Context, log *slog.Logger, m *tgbotapi.Message, t ticket.Ticket) bool {
	log = log.With("ticket_uid", t.ID)

	pass, err := b.issuer.Issue(ctx, t)
	b.metrics.PassIssued(err)
	if err != nil {
		log.Error("registering failed", "error", err)
		b.reply(log, m, fmt.Sprintf("registering failed: %v", err), "")
		return false
	}
	log.Info("pass issued", "serial_number", pass.SerialNumber)

	b.sendFile(log, m, pass.FileName(), pass.Pkpass)
	b.sendFile(log, m, pass.SerialNumber+".ics", []byte(calendar.Calendar(t)))

	if b.passes != nil {
		err := b.passes.SavePass(ctx, storage.Pass{
			SerialNumber: pass.SerialNumber,
			ChatID:       m.Chat.ID,
			TicketUID:    t.ID,
			URL:          pass.URL,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			log.Error("save pass failed", "error", err)
		}
	}
	return true
}

func (b *Bot) recordOutcomes(ctx context.Context, log *slog.Logger, res extractor.Result) {
	if b.sink == nil {
		return
	}
	if err := b.sink.InsertOutcomes(ctx, storage.OutcomesFrom(res, time.Now())); err != nil {
		log.Warn("record outcomes failed", "error", err)
	}
}

func (b *Bot) replyPasses(ctx context.Context, log *slog.Logger, m *tgbotapi.Message, prefix string) {
	if b.passes == nil {
		b.reply(log, m, prefix+"Pass history is not available.", "")
		return
	}

	passes, err := b.passes.ListPasses(ctx, m.Chat.ID)
	if err != nil {
		log.Error("list passes failed", "error", err)
		b.reply(log, m, prefix+"Could not load your passes.", "")
		return
	}
	b.reply(log, m, prefix+FormatPasses(passes), "")
}

func (b *Bot) clearPasses(ctx context.Context, log *slog.Logger, m *tgbotapi.Message) {
	if b.passes == nil {
		b.reply(log, m, "Pass history is not available.", "")
		return
	}

	n, err := b.passes.ClearPasses(ctx, m.Chat.ID)
	if err != nil {
		log.Error("clear passes failed", "error", err)
		b.reply(log, m, "Could not clear your passes.", "")
		return
	}
	b.reply(log, m, fmt.Sprintf("Cleared %d passes.", n), "")
}

func (b *Bot) reply(log *slog.Logger, m *tgbotapi.Message, text, parseMode string) {
	msg := tgbotapi.NewMessage(m.Chat.ID, text)
	msg.ReplyToMessageID = m.MessageID
	msg.ParseMode = parseMode
	if _, err := b.sender.Send(msg); err != nil {
		log.Error("send message failed", "error", err)
	}
}

func (b *Bot) sendFile(log *slog.Logger, m *tgbotapi.Message, name string, data []byte) {
	doc := tgbotapi.NewDocument(m.Chat.ID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.ReplyToMessageID = m.MessageID
	if _, err := b.sender.Send(doc); err != nil {
		log.Error("send document failed", "file_name", name, "error", err)
	}
}

// failureReason describes why a submission produced no ticket.
func failureReason(res extractor.Result) string {
	switch len(res.Failures) {
	case 0:
		return "no pages with text"
	case 1:
		return res.Failures[0].Error
	}

	reasons := make([]string, 0, len(res.Failures))
	for _, f := range res.Failures {
		reasons = append(reasons, fmt.Sprintf("page %d: %s", f.Page, f.Error))
	}
	return strings.Join(reasons, "; ")
}

// FormatPasses renders a pass list for a chat message.
func FormatPasses(passes []storage.Pass) string {
	if len(passes) == 0 {
		return "You have no passes yet."
	}

	var sb strings.Builder
	sb.WriteString("Your passes:")
	for i, p := range passes {
		fmt.Fprintf(&sb, "\n%d. %s %s", i+1, p.TicketUID, p.URL)
	}
	return sb.String()
}
