package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"appointment-booking-api/internal/config"
)

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmail struct {
	Sender      address   `json:"sender"`
	To          []address `json:"to"`
	Subject     string    `json:"subject"`
	TextContent string    `json:"textContent"`
}

// Brevo sends transactional email through the Brevo (ex Sendinblue) API.
type Brevo struct {
	baseURL string
	apiKey  string
	sender  address
	http    *http.Client
}

func NewBrevo(cfg config.Mail) *Brevo {
	return &Brevo{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		sender:  address{Email: cfg.SenderEmail, Name: cfg.SenderName},
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *Brevo) WithHTTPClient(hc *http.Client) *Brevo {
	b.http = hc
	return b
}

func (b *Brevo) Send(ctx context.Context, m Message) error {
	payload, err := json.Marshal(brevoEmail{
		Sender:      b.sender,
		To:          []address{{Email: m.To}},
		Subject:     m.Subject,
		TextContent: m.Body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v3/smtp/email", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("brevo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
