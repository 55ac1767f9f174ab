package usecase

import (
	"context"
	"errors"

	"supplyfinder/internal/domain"
	"supplyfinder/internal/notify"
)

type Notifier interface {
	Notify(ctx context.Context, req domain.Request) error
}

// SubmitService validates sourcing requests and forwards them by email.
type SubmitService struct {
	notifier Notifier
}

func NewSubmitService(n Notifier) (*SubmitService, error) {
	if n == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	return &SubmitService{notifier: n}, nil
}

func (s *SubmitService) Submit(ctx context.Context, in domain.Submission) error {
	req, err := ValidateSubmission(in)
	if err != nil {
		return err
	}
	if err := s.notifier.Notify(ctx, req); err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			return newError(ErrorNotConfigured, "mail_transport_missing", err)
		}
		return newError(ErrorDelivery, "mail_send_error", err)
	}
	return nil
}
