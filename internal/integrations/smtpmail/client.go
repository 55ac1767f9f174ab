// Package smtpmail sends notifications through an authenticated SMTP relay.
package smtpmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"supplyfinder/internal/notify"
)

const (
	DefaultPort    = 465
	defaultTimeout = 10 * time.Second
)

// Config holds the relay settings. ImplicitTLS selects SMTPS; otherwise
// STARTTLS is required.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ImplicitTLS bool
	Timeout     time.Duration
}

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// Client is a notify.Transport backed by go-mail.
type Client struct {
	cfg    Config
	send   sendFunc
	logger *slog.Logger
}

type Option func(*Client)

// WithSender replaces the dial-and-send step, mainly for tests.
func WithSender(fn func(ctx context.Context, msg *mail.Msg) error) Option {
	return func(c *Client) {
		c.send = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Client. It does not dial; an incomplete Config yields an
// unconfigured transport.
func New(cfg Config, opts ...Option) *Client {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{cfg: cfg, logger: slog.Default()}
	c.send = c.dialAndSend
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "smtp" }

// Configured reports whether host, username and password are all set.
func (c *Client) Configured() bool {
	return c.cfg.Host != "" && c.cfg.Username != "" && c.cfg.Password != ""
}

func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if !c.Configured() {
		return errors.New("smtpmail: client not configured")
	}
	m, err := c.buildMsg(msg)
	if err != nil {
		return err
	}
	if err := c.send(ctx, m); err != nil {
		return fmt.Errorf("smtpmail: send via %s:%d: %w", c.cfg.Host, c.cfg.Port, err)
	}
	return nil
}

func (c *Client) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(c.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(c.cfg.Username),
		mail.WithPassword(c.cfg.Password),
		mail.WithTimeout(c.cfg.Timeout),
	}
	if c.cfg.ImplicitTLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	client, err := mail.NewClient(c.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

func (c *Client) buildMsg(msg notify.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("smtpmail: from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("smtpmail: to address: %w", err)
	}
	// Reply-To is the submitter's address, which only passed a loose format
	// check. An unparsable one must not cost the request.
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			c.logger.Warn("dropping unparsable reply-to address", "replyTo", msg.ReplyTo, "err", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
