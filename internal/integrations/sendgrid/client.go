// Package sendgrid sends notifications through the SendGrid v3 mail API.
package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"

	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"supplyfinder/internal/notify"
)

// sendAPI is the subset of *sendgrid.Client used here.
type sendAPI interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// HTTPStatusError captures a non-2xx answer from the mail API.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("sendgrid: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a notify.Transport for SendGrid.
type Client struct {
	apiKey string
	api    sendAPI
	logger *slog.Logger
}

type Option func(*Client)

// WithAPI replaces the SendGrid client, mainly for tests.
func WithAPI(api sendAPI) Option {
	return func(c *Client) {
		c.api = api
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Client for apiKey. An empty key yields an unconfigured transport.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: strings.TrimSpace(apiKey), logger: slog.Default()}
	if c.apiKey != "" {
		c.api = sg.NewSendClient(c.apiKey)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "sendgrid" }

func (c *Client) Configured() bool {
	return c.apiKey != "" && c.api != nil
}

func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if !c.Configured() {
		return errors.New("sendgrid: client not configured")
	}
	res, err := c.api.SendWithContext(ctx, c.buildMail(msg))
	if err != nil {
		return fmt.Errorf("sendgrid: send: %w", err)
	}
	if res == nil {
		return errors.New("sendgrid: empty response")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body := res.Body
		if len(body) > 4096 {
			body = body[:4096]
		}
		return &HTTPStatusError{StatusCode: res.StatusCode, Body: body}
	}
	return nil
}

func (c *Client) buildMail(msg notify.Message) *sgmail.SGMailV3 {
	m := sgmail.NewSingleEmail(
		sgmail.NewEmail("", msg.From),
		msg.Subject,
		sgmail.NewEmail("", msg.To),
		msg.Text,
		msg.HTML,
	)
	if msg.ReplyTo != "" {
		if addr, err := netmail.ParseAddress(msg.ReplyTo); err != nil {
			c.logger.Warn("dropping unparsable reply-to address", "replyTo", msg.ReplyTo, "err", err)
		} else {
			m.SetReplyTo(sgmail.NewEmail(addr.Name, addr.Address))
		}
	}
	return m
}
