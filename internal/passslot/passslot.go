// Package passslot issues Apple Wallet passes for tickets through the
// PassSlot template API.
package passslot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"uzpass/internal/ticket"
)

// Defaults for the hosted API and the railway ticket template.
const (
	DefaultBaseURL    = "https://api.passslot.com"
	DefaultTemplateID = "5786360806637568"
)

// ErrMissingField is returned when a registration response lacks a required key.
var ErrMissingField = errors.New("missing field in response")

// StatusError reports an unexpected HTTP status from the pass API.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Response is the decoded body of a pass registration.
type Response map[string]any

// Issued is a registered pass together with its downloaded .pkpass bundle.
type Issued struct {
	SerialNumber string
	URL          string
	Pkpass       []byte
}

// FileName is the name the bundle is sent under.
func (i *Issued) FileName() string {
	return i.SerialNumber + ".pkpass"
}

// Client talks to the PassSlot API.
type Client struct {
	BaseURL    string
	TemplateID string
	APIKey     string
	HTTP       *http.Client
}

// New creates a client for the hosted API with the default template.
func New(apiKey string) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		TemplateID: DefaultTemplateID,
		APIKey:     apiKey,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Register creates a pass from the template and returns the API response.
// The API answers 201 Created on success.
func (c *Client) Register(ctx context.Context, p ticket.Pass) (Response, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode pass: %w", err)
	}

	url := fmt.Sprintf("%s/v1/templates/%s/pass", strings.TrimRight(c.BaseURL, "/"), c.TemplateID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("register pass: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return nil, statusError("register pass", resp)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Validate checks that a registration response carries the pass URL and
// serial number and returns them.
func Validate(resp Response) (serial, url string, err error) {
	for _, key := range []string{"url", "serialNumber"} {
		if _, ok := resp[key]; !ok {
			return "", "", fmt.Errorf("%w: no %q", ErrMissingField, key)
		}
	}
	return fmt.Sprint(resp["serialNumber"]), fmt.Sprint(resp["url"]), nil
}

// PkpassURL returns the download URL of the .pkpass bundle for a pass URL:
// the extension goes before the query string.
//
//	"https://d.pslot.io/p/abc?x=1" -> "https://d.pslot.io/p/abc.pkpass?x=1"
func PkpassURL(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i] + ".pkpass" + url[i:]
	}
	return url + ".pkpass"
}

// Download fetches the bundle at url.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("download pass: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("download pass", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pass: %w", err)
	}
	return data, nil
}

// Issue registers a pass for the ticket and downloads its bundle.
func (c *Client) Issue(ctx context.Context, t ticket.Ticket) (*Issued, error) {
	resp, err := c.Register(ctx, t.Pass())
	if err != nil {
		return nil, err
	}

	serial, url, err := Validate(resp)
	if err != nil {
		return nil, err
	}

	pkpass, err := c.Download(ctx, PkpassURL(url))
	if err != nil {
		return nil, err
	}

	return &Issued{SerialNumber: serial, URL: url, Pkpass: pkpass}, nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
