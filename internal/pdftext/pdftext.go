// Package pdftext recovers the text layer of PDF tickets.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrNoText is returned when a document has no text layer.
var ErrNoText = errors.New("pdf has no text layer")

// Extractor recovers text from a PDF. Pages are separated by a form feed.
type Extractor interface {
	Extract(ctx context.Context, pdf io.Reader) (string, error)
}

// Poppler runs poppler's pdftotext in its default reading-order mode, which
// puts each text block of a ticket on its own line.
type Poppler struct {
	// Path is the pdftotext binary; empty means look it up in PATH.
	Path string
}

func (p *Poppler) binary() string {
	if p.Path != "" {
		return p.Path
	}
	return "pdftotext"
}

// Extract pipes the document through pdftotext and returns its output.
func (p *Poppler) Extract(ctx context.Context, pdf io.Reader) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, p.binary(), "-enc", "UTF-8", "-", "-")
	cmd.Stdin = pdf
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("pdftotext: %w: %s", err, msg)
		}
		return "", fmt.Errorf("pdftotext: %w", err)
	}

	text := stdout.String()
	if strings.TrimSpace(strings.ReplaceAll(text, "\f", "")) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Static returns fixed text. It stands in for a real extractor when text has
// already been recovered elsewhere.
type Static string

func (s Static) Extract(ctx context.Context, pdf io.Reader) (string, error) {
	return string(s), nil
}
