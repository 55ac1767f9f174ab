// Package notify turns a validated sourcing request into an email and hands it
// to the highest priority configured mail transport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"supplyfinder/internal/domain"
)

const (
	DefaultAddress         = "hello@supplyfinder.ai"
	DefaultSubjectTemplate = "New SupplyFinder Request from {{.Company}}"
)

// ErrNotConfigured is returned when no transport has usable credentials.
var ErrNotConfigured = errors.New("notify: no mail transport configured")

// Message is a rendered email ready for a transport.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers a Message. Configured reports whether the transport has
// the credentials it needs; unconfigured transports are skipped.
type Transport interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, msg Message) error
}

// Config holds the addressing of outgoing notifications.
type Config struct {
	To              string
	From            string
	SubjectTemplate string
}

// Dispatcher renders requests and sends them through one transport.
type Dispatcher struct {
	to         string
	from       string
	subject    *texttemplate.Template
	transports []Transport
	logger     *slog.Logger
}

// NewDispatcher returns a Dispatcher trying transports in the given priority
// order. Nil transports are ignored.
func NewDispatcher(cfg Config, logger *slog.Logger, transports ...Transport) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	to := strings.TrimSpace(cfg.To)
	if to == "" {
		to = DefaultAddress
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = DefaultAddress
	}
	subjectText := cfg.SubjectTemplate
	if strings.TrimSpace(subjectText) == "" {
		subjectText = DefaultSubjectTemplate
	}
	subject, err := texttemplate.New("subject").Option("missingkey=error").Parse(subjectText)
	if err != nil {
		return nil, fmt.Errorf("notify: parse subject template: %w", err)
	}

	d := &Dispatcher{to: to, from: from, subject: subject, logger: logger}
	for _, t := range transports {
		if t != nil {
			d.transports = append(d.transports, t)
		}
	}
	return d, nil
}

// Transport returns the transport that would be used, or nil.
func (d *Dispatcher) Transport() Transport {
	for _, t := range d.transports {
		if t.Configured() {
			return t
		}
	}
	return nil
}

// Notify renders req and sends it. Exactly one send is attempted; a failing
// transport is not followed by another.
func (d *Dispatcher) Notify(ctx context.Context, req domain.Request) error {
	t := d.Transport()
	if t == nil {
		d.logger.Error("mail transport not configured")
		return ErrNotConfigured
	}

	msg, err := d.Render(req)
	if err != nil {
		return err
	}
	if err := t.Send(ctx, msg); err != nil {
		d.logger.Error("failed to send request email",
			"transport", t.Name(),
			"company", req.Company,
			"err", err,
		)
		return fmt.Errorf("notify: send via %s: %w", t.Name(), err)
	}

	d.logger.Info("request email sent",
		"transport", t.Name(),
		"name", req.Name,
		"company", req.Company,
		"email", req.Email,
	)
	return nil
}

// Render builds the Message for req without sending it.
func (d *Dispatcher) Render(req domain.Request) (Message, error) {
	var subject strings.Builder
	if err := d.subject.Execute(&subject, req); err != nil {
		return Message{}, fmt.Errorf("notify: render subject: %w", err)
	}
	text, err := renderText(req)
	if err != nil {
		return Message{}, err
	}
	html, err := renderHTML(req)
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    d.from,
		To:      d.to,
		ReplyTo: req.Email,
		Subject: strings.TrimSpace(subject.String()),
		Text:    text,
		HTML:    html,
	}, nil
}
