package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pixelforge/intake-api/pkg/config"
)

// Client talks to the transactional email provider over its JSON HTTP API.
// Every call is bounded by the configured timeout so a slow provider can
// never stall the caller beyond it.
type Client struct {
	baseURL     string
	apiKey      string
	senderName  string
	senderEmail string
	httpClient  *http.Client
	logger      *zap.Logger
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New constructs a mailer client from configuration.
func New(cfg config.MailerConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		senderName:  cfg.SenderName,
		senderEmail: cfg.SenderEmail,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type party struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type message struct {
	From    party   `json:"from"`
	To      []party `json:"to"`
	Subject string  `json:"subject"`
	Text    string  `json:"text"`
}

// statusTemplate pairs a subject line with a body template. The body receives
// the client name, tracking code and optional admin note.
type statusTemplate struct {
	subject string
	body    string
}

var statusTemplates = map[string]statusTemplate{
	"submitted": {
		subject: "We received your request %s",
		body:    "Hi %s,\n\nYour request %s has been received and is waiting for review.",
	},
	"reviewing": {
		subject: "Your request %s is under review",
		body:    "Hi %s,\n\nOur team has started reviewing your request %s.",
	},
	"in-progress": {
		subject: "Work started on your request %s",
		body:    "Hi %s,\n\nYour request %s is now in progress. We will keep you posted.",
	},
	"revision": {
		subject: "Your request %s needs another pass",
		body:    "Hi %s,\n\nWe are revising the work on your request %s.",
	},
	"completed": {
		subject: "Your request %s is completed",
		body:    "Hi %s,\n\nThe work for your request %s is complete and being prepared for delivery.",
	},
	"delivered": {
		subject: "Your request %s has been delivered",
		body:    "Hi %s,\n\nThe deliverables for your request %s are ready. Thank you for working with us!",
	},
	"cancelled": {
		subject: "Your request %s was cancelled",
		body:    "Hi %s,\n\nYour request %s has been cancelled. Reach out if this was unexpected.",
	},
}

// SendStatusUpdate emails the client about a lifecycle status change.
func (c *Client) SendStatusUpdate(ctx context.Context, email, name, trackingCode, status, note string) error {
	tpl, ok := statusTemplates[status]
	if !ok {
		tpl = statusTemplate{
			subject: "Update on your request %s",
			body:    "Hi %s,\n\nThere is an update on your request %s.",
		}
	}
	body := fmt.Sprintf(tpl.body, name, trackingCode)
	if note != "" {
		body += "\n\nNote from our team: " + note
	}
	body += fmt.Sprintf("\n\nTrack your request anytime using code %s.\n\n— %s", trackingCode, c.senderName)

	return c.send(ctx, message{
		From:    party{Name: c.senderName, Email: c.senderEmail},
		To:      []party{{Name: name, Email: email}},
		Subject: fmt.Sprintf(tpl.subject, trackingCode),
		Text:    body,
	})
}

// SendCustom sends a free-form email composed by an admin.
func (c *Client) SendCustom(ctx context.Context, name, email, subject, body string) error {
	return c.send(ctx, message{
		From:    party{Name: c.senderName, Email: c.senderEmail},
		To:      []party{{Name: name, Email: email}},
		Subject: subject,
		Text:    body,
	})
}

func (c *Client) send(ctx context.Context, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	c.logger.Debug("email dispatched",
		zap.String("to", msg.To[0].Email),
		zap.String("subject", msg.Subject),
	)
	return nil
}
