// Package worker extracts tickets from submissions queued on NATS.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"uzpass/internal/document"
	"uzpass/internal/extractor"
	"uzpass/internal/metrics"
	"uzpass/internal/pdftext"
	"uzpass/internal/registry"
	"uzpass/internal/storage"
)

// ErrBadSubmission is returned for payloads that are not a usable submission.
var ErrBadSubmission = errors.New("bad submission")

// Publisher publishes results. *nats.Conn implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Reply is the message published for every submission.
type Reply struct {
	ChatID document.ChatID `json:"chat_id,omitempty"`
	extractor.Result
	Error string `json:"error,omitempty"`
}

// Deps are the collaborators of the worker. Sink and Metrics are optional.
type Deps struct {
	Registry  *registry.Registry
	PDF       pdftext.Extractor
	Publisher Publisher
	Sink      storage.OutcomeSink
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Worker turns queued submissions into extraction results.
type Worker struct {
	reg           *registry.Registry
	pdf           pdftext.Extractor
	pub           Publisher
	sink          storage.OutcomeSink
	metrics       *metrics.Metrics
	log           *slog.Logger
	resultSubject string
}

// New creates a worker publishing results on resultSubject.
func New(deps Deps, resultSubject string) *Worker {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		reg:           deps.Registry,
		pdf:           deps.PDF,
		pub:           deps.Publisher,
		sink:          deps.Sink,
		metrics:       deps.Metrics,
		log:           log,
		resultSubject: resultSubject,
	}
}

// Decode reads a submission payload. A submission without text must carry
// the raw PDF.
func Decode(data []byte) (*document.Submission, error) {
	var sub document.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSubmission, err)
	}

	switch sub.Source {
	case document.SourceText, document.SourcePDF:
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrBadSubmission, sub.Source)
	}
	if sub.Text == "" && (sub.Source != document.SourcePDF || len(sub.PDF) == 0) {
		return nil, fmt.Errorf("%w: no content", ErrBadSubmission)
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.ReceivedAt.IsZero() {
		sub.ReceivedAt = time.Now().UTC()
	}
	return &sub, nil
}

// Process extracts the tickets of one submission, recovering the text of a
// raw PDF first.
func (w *Worker) Process(ctx context.Context, sub *document.Submission) (extractor.Result, error) {
	if sub.Text == "" {
		text, err := w.pdf.Extract(ctx, bytes.NewReader(sub.PDF))
		if err != nil {
			return extractor.Result{SubmissionID: sub.ID, Source: sub.Source}, fmt.Errorf("extract pdf text: %w", err)
		}
		sub.Text = text
	}

	res := extractor.Extract(w.reg, sub)
	w.metrics.ObserveResult(res)

	if w.sink != nil {
		if err := w.sink.InsertOutcomes(ctx, storage.OutcomesFrom(res, time.Now())); err != nil {
			w.log.WarnContext(ctx, "record outcomes failed", "submission_id", sub.ID, "error", err)
		}
	}
	return res, nil
}

// Handle processes one payload and returns the reply to send for it.
func (w *Worker) Handle(ctx context.Context, data []byte) Reply {
	sub, err := Decode(data)
	if err != nil {
		w.log.WarnContext(ctx, "rejecting submission", "error", err)
		return Reply{Error: err.Error()}
	}

	log := w.log.With("submission_id", sub.ID, "source", sub.Source)

	res, err := w.Process(ctx, sub)
	reply := Reply{ChatID: sub.ChatID, Result: res}
	if err != nil {
		log.ErrorContext(ctx, "processing failed", "error", err)
		reply.Error = err.Error()
		return reply
	}

	log.InfoContext(ctx, "submission processed",
		"pages", res.Stats.Pages,
		"parsed", res.Stats.Parsed,
		"failed", res.Stats.Failed,
	)
	return reply
}

// MsgHandler answers request messages directly and publishes every reply on
// the result subject.
func (w *Worker) MsgHandler(ctx context.Context) nats.MsgHandler {
	return func(msg *nats.Msg) {
		reply := w.Handle(ctx, msg.Data)

		data, err := json.Marshal(reply)
		if err != nil {
			w.log.Error("marshal reply", "error", err)
			return
		}

		if msg.Reply != "" {
			if err := msg.Respond(data); err != nil {
				w.log.Warn("respond failed", "error", err)
			}
		}
		if w.pub != nil && w.resultSubject != "" {
			if err := w.pub.Publish(w.resultSubject, data); err != nil {
				w.log.Warn("publish result failed", "subject", w.resultSubject, "error", err)
			}
		}
	}
}

// Run consumes subject as a member of queue until ctx is done, then drains
// the subscription.
func (w *Worker) Run(ctx context.Context, nc *nats.Conn, subject, queue string) error {
	sub, err := nc.QueueSubscribe(subject, queue, w.MsgHandler(ctx))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	w.log.Info("worker subscribed", "subject", subject, "queue", queue, "results", w.resultSubject)

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain %s: %w", subject, err)
	}
	return nil
}

// Connect opens a NATS connection that keeps reconnecting.
func Connect(url, name string, log *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}
