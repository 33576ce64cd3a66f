package extractor

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"uzpass/internal/document"
	"uzpass/internal/parsers"
	"uzpass/internal/registry"
	"uzpass/internal/ticket"
)

var pdfPage = strings.Join([]string{
	"УКРЗАЛІЗНИЦЯ",
	"ПОСАДОЧНИЙ ДОКУМЕНТ",
	"ФК: 3000123456",
	"",
	"743 К",
	"05 П",
	"017 Н",
	"1234-5678-9012-3456",
	"24.12.2021 14:05",
	"24.12.2021 21:40",
	"ШЕВЧЕНКО ТАРАС",
	"2200001 КИЇВ-ПАСАЖИРСЬКИЙ",
	"2218000 ЛЬВІВ",
}, "\n")

func TestExtract_SkipsFailedPages(t *testing.T) {
	reg := parsers.NewRegistry()

	noTimes := strings.ReplaceAll(pdfPage, "24.12.2021", "24/12/2021")
	sub := document.NewSubmission(document.SourcePDF, "garbage\f"+noTimes+"\f\f"+pdfPage+"\f")

	res := Extract(reg, sub)

	if res.SubmissionID != sub.ID {
		t.Errorf("SubmissionID = %q, want %q", res.SubmissionID, sub.ID)
	}
	if res.Stats != (Stats{Pages: 3, Parsed: 1, Failed: 2}) {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if len(res.Tickets) != 1 || res.Tickets[0].ID != "1234-56789012-3456" {
		t.Fatalf("Tickets = %+v, want one ticket", res.Tickets)
	}

	wantFailures := []struct {
		page int
		kind string
	}{
		{1, KindNoParser},
		{2, "no_time_found"},
	}
	if len(res.Failures) != len(wantFailures) {
		t.Fatalf("len(Failures) = %d, want %d", len(res.Failures), len(wantFailures))
	}
	for i, want := range wantFailures {
		got := res.Failures[i]
		if got.Page != want.page || got.Kind != want.kind {
			t.Errorf("Failures[%d] = %+v, want page %d kind %s", i, got, want.page, want.kind)
		}
	}

	if len(res.Outcomes) != 3 {
		t.Fatalf("len(Outcomes) = %d, want 3", len(res.Outcomes))
	}
	last := res.Outcomes[2]
	if !last.OK() || last.Parser != "positional" || last.TicketID != "1234-56789012-3456" {
		t.Errorf("Outcomes[2] = %+v", last)
	}
}

func TestExtract_TextSubmission(t *testing.T) {
	reg := parsers.NewRegistry()

	text := "ПОСАДОЧНИЙ ДОКУМЕНТ\t1234-5678-9012-3456\n" +
		"Прізвище, Ім’я\tШЕВЧЕНКО ТАРАС\n" +
		"Поїзд\t743 К\tВагон\t05 П\n" +
		"Відправлення\t2200001\tКИЇВ-ПАСАЖИРСЬКИЙ\n" +
		"Призначення\t2218000\tЛЬВІВ\n" +
		"Місце\t017 Н\n" +
		"Дата/час відпр.\t24.12.2021 14:05\n" +
		"Дата/час приб.\t24.12.2021 21:40\n"

	res := Extract(reg, document.NewSubmission(document.SourceText, text))
	if len(res.Tickets) != 1 {
		t.Fatalf("Tickets = %+v, failures = %+v", res.Tickets, res.Failures)
	}
	if res.Outcomes[0].Parser != "labeled" {
		t.Errorf("Parser = %q, want labeled", res.Outcomes[0].Parser)
	}

	passes := res.Passes()
	if len(passes) != 1 || passes[0].RelevantDate != "2021-12-24T12:05:00+00:00" {
		t.Errorf("Passes() = %+v", passes)
	}
}

func TestExtract_Empty(t *testing.T) {
	res := Extract(parsers.NewRegistry(), document.NewSubmission(document.SourceText, ""))
	if res.Stats.Pages != 0 || len(res.Tickets) != 0 || len(res.Failures) != 0 {
		t.Errorf("Extract(empty) = %+v", res)
	}
	if res.Tickets == nil || res.Failures == nil {
		t.Error("Tickets and Failures should encode as empty arrays, not null")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w (source %q)", registry.ErrNoParser, "pdf"), KindNoParser},
		{fmt.Errorf("labeled: %w", &ticket.LabelError{Label: "Поїзд"}), "label_not_found"},
		{errors.New("boom"), "other"},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
