// Command-line entry point for the ticket extractor.
//
// Input is either the text of a ticket copied from the booking site (--text)
// or a PDF ticket (--pdf), whose text layer is recovered with pdftotext.
// Pass "-" to read from stdin.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"uzpass/internal/calendar"
	"uzpass/internal/document"
	"uzpass/internal/extractor"
	"uzpass/internal/parsers"
	"uzpass/internal/pdftext"
	"uzpass/internal/registry"
	"uzpass/internal/storage"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "uzpass - commands:")
	fmt.Fprintln(w, "  extract  - parse tickets and output JSON")
	fmt.Fprintln(w, "  trace    - show how each parser located the ticket fields")
	fmt.Fprintln(w, "  ics      - write a calendar with one event per ticket")
	fmt.Fprintln(w, "  stats    - summarise outcomes logged with extract --db")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  uzpass extract --pdf ticket.pdf | --text ticket.txt [--db outcomes.db] [--pretty] [--passes]")
	fmt.Fprintln(w, "  uzpass trace   --pdf ticket.pdf | --text ticket.txt")
	fmt.Fprintln(w, "  uzpass ics     --pdf ticket.pdf | --text ticket.txt [--out trip.ics]")
	fmt.Fprintln(w, "  uzpass stats   --db outcomes.db")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - PDF input needs poppler's pdftotext (override with --pdftotext or PDFTOTEXT_PATH).")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "extract":
		err = runExtract(ctx, os.Args[2:])
	case "trace":
		err = runTrace(ctx, os.Args[2:])
	case "ics":
		err = runICS(ctx, os.Args[2:])
	case "stats":
		err = runStats(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// input holds the flags shared by the commands that read a ticket.
type input struct {
	pdf       string
	text      string
	pdftotext string
}

func (in *input) register(fs *pflag.FlagSet) {
	fs.StringVar(&in.pdf, "pdf", "", "PDF ticket file (- for stdin)")
	fs.StringVar(&in.text, "text", "", "Ticket text file (- for stdin)")
	fs.StringVar(&in.pdftotext, "pdftotext", os.Getenv("PDFTOTEXT_PATH"), "pdftotext binary")
}

// submission reads the selected input.
func (in *input) submission(ctx context.Context) (*document.Submission, error) {
	switch {
	case in.pdf != "" && in.text != "":
		return nil, fmt.Errorf("--pdf and --text are exclusive")
	case in.pdf != "":
		data, err := readInput(in.pdf)
		if err != nil {
			return nil, err
		}
		poppler := &pdftext.Poppler{Path: in.pdftotext}
		text, err := poppler.Extract(ctx, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", in.pdf, err)
		}
		return document.NewSubmission(document.SourcePDF, text), nil
	case in.text != "":
		data, err := readInput(in.text)
		if err != nil {
			return nil, err
		}
		return document.NewSubmission(document.SourceText, string(data)), nil
	default:
		return nil, fmt.Errorf("one of --pdf or --text is required")
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

type extractOut struct {
	SubmissionID string              `json:"submission_id"`
	Source       document.Source     `json:"source"`
	Tickets      any                 `json:"tickets"`
	Failures     []extractor.Failure `json:"failures"`
	Stats        extractor.Stats     `json:"stats"`
}

func runExtract(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("extract", pflag.ExitOnError)
	var in input
	in.register(fs)
	dbPath := fs.String("db", "", "SQLite file to log page outcomes to")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	passes := fs.Bool("passes", false, "Output pass payloads instead of tickets")
	_ = fs.Parse(args)

	sub, err := in.submission(ctx)
	if err != nil {
		return err
	}

	res := extractor.Extract(parsers.NewRegistry(), sub)

	if *dbPath != "" {
		db, err := storage.OpenSQLite(*dbPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.InsertOutcomes(ctx, storage.OutcomesFrom(res, sub.ReceivedAt)); err != nil {
			return err
		}
	}

	out := extractOut{
		SubmissionID: res.SubmissionID,
		Source:       res.Source,
		Tickets:      res.Tickets,
		Failures:     res.Failures,
		Stats:        res.Stats,
	}
	if *passes {
		out.Tickets = res.Passes()
	}

	if err := writeJSON(os.Stdout, out, *pretty); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "stats: pages=%d parsed=%d failed=%d\n", res.Stats.Pages, res.Stats.Parsed, res.Stats.Failed)
	return nil
}

type traceOut struct {
	Page   int                     `json:"page"`
	Traces []*registry.TraceResult `json:"traces"`
}

func runTrace(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("trace", pflag.ExitOnError)
	var in input
	in.register(fs)
	_ = fs.Parse(args)

	sub, err := in.submission(ctx)
	if err != nil {
		return err
	}

	reg := parsers.NewRegistry()
	var out []traceOut
	for _, page := range sub.Pages() {
		out = append(out, traceOut{Page: page.Number, Traces: reg.Trace(&page)})
	}
	return writeJSON(os.Stdout, out, true)
}

func runICS(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("ics", pflag.ExitOnError)
	var in input
	in.register(fs)
	outPath := fs.String("out", "", "Output .ics file (default: stdout)")
	_ = fs.Parse(args)

	sub, err := in.submission(ctx)
	if err != nil {
		return err
	}

	res := extractor.Extract(parsers.NewRegistry(), sub)
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "page %d: %s\n", f.Page, f.Error)
	}
	if len(res.Tickets) == 0 {
		return fmt.Errorf("no tickets found")
	}

	ics := calendar.Calendar(res.Tickets...)
	if *outPath == "" {
		_, err := io.WriteString(os.Stdout, ics)
		return err
	}
	return os.WriteFile(*outPath, []byte(ics), 0o644)
}

func runStats(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite outcome log")
	_ = fs.Parse(args)

	if *dbPath == "" {
		return fmt.Errorf("--db is required")
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	stats, err := db.OutcomeStats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Total pages: %d\n", stats.Total)
	printCounts("By status", stats.ByStatus)
	printCounts("Failures by kind", stats.ByKind)
	printCounts("Tickets by parser", stats.ByParser)
	return nil
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, counts[k])
	}
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
