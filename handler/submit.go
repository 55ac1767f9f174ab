package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"supplyfinder/internal/domain"
	"supplyfinder/internal/ratelimit"
	"supplyfinder/internal/usecase"
)

var submitCORS = cors{
	methods: "GET,OPTIONS,PATCH,DELETE,POST,PUT",
	headers: "X-CSRF-Token, X-Requested-With, Accept, Accept-Version, Content-Length, Content-MD5, Content-Type, Date, X-Api-Version",
}

type Submitter interface {
	Submit(ctx context.Context, in domain.Submission) error
}

type RateLimiter interface {
	Check(cookieValue string, now time.Time) (ratelimit.Decision, error)
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// numberish accepts a JSON number or string and keeps its text. Other JSON
// values decode to the empty string.
type numberish string

func (n *numberish) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case json.Number:
		*n = numberish(t.String())
	case string:
		*n = numberish(t)
	default:
		*n = ""
	}
	return nil
}

// SubmitHandler serves POST /api/submit-request.
type SubmitHandler struct {
	submitter Submitter
	limiter   RateLimiter
	now       func() time.Time
	logger    *slog.Logger
}

func NewSubmitHandler(s Submitter, l RateLimiter, logger *slog.Logger) (*SubmitHandler, error) {
	if s == nil {
		return nil, errors.New("handler: submitter must not be nil")
	}
	if l == nil {
		return nil, errors.New("handler: rate limiter must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitHandler{submitter: s, limiter: l, now: time.Now, logger: logger}, nil
}

func (h *SubmitHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	r := newResponder(submitCORS, req)
	switch req.HTTPMethod {
	case http.MethodOptions:
		return r.empty(http.StatusOK), nil
	case http.MethodPost:
	default:
		return r.methodNotAllowed(), nil
	}
	log := h.logger.With("correlationId", r.correlationID)

	decision, err := h.limiter.Check(cookieValue(req, ratelimit.CookieName), h.now())
	if err != nil {
		log.Error("rate limiter failed", "err", err)
		return r.json(http.StatusInternalServerError, errorResponse{Error: "Internal server error", Code: string(usecase.ErrorInternal)}), nil
	}
	if decision.State == ratelimit.Limited {
		log.Info("submission rate limited", "retryAfter", decision.RetryAfterSeconds)
		resp := r.json(http.StatusTooManyRequests, errorResponse{
			Error: "Too many requests. Please wait a bit and try again.",
			Code:  "RATE_LIMITED",
		})
		resp.Headers["Retry-After"] = strconv.Itoa(decision.RetryAfterSeconds)
		return resp, nil
	}

	in, err := decodeSubmission(req)
	if err != nil {
		log.Info("invalid submission body", "err", err)
		return r.json(http.StatusBadRequest, errorResponse{Error: "Invalid request body", Code: "INVALID_BODY"}), nil
	}

	if err := h.submitter.Submit(ctx, in); err != nil {
		status, body := mapSubmitError(err)
		if status >= http.StatusInternalServerError {
			log.Error("submission failed", "err", err)
		} else {
			log.Info("submission rejected", "code", body.Code)
		}
		return r.json(status, body), nil
	}

	// The cooldown starts with an accepted submission only, so a rejected or
	// undelivered request can be corrected and resent at once.
	resp := r.json(http.StatusOK, submitResponse{Success: true, Message: "Request submitted successfully"})
	if c := decision.Cookie(); c != nil {
		resp.Headers["Set-Cookie"] = c.String()
	}
	return resp, nil
}

// decodeSubmission needs a JSON object but tolerates mistyped fields: a
// field of the wrong type reads as empty, so the honeypot and field checks
// still run on the rest.
func decodeSubmission(req events.APIGatewayProxyRequest) (domain.Submission, error) {
	raw, err := requestBody(req)
	if err != nil {
		return domain.Submission{}, err
	}
	var fields map[string]json.RawMessage
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return domain.Submission{}, err
		}
	}
	return domain.Submission{
		Name:           stringField(fields, "name"),
		Company:        stringField(fields, "company"),
		Email:          stringField(fields, "email"),
		RequestDetails: stringField(fields, "requestDetails"),
		Website:        numberishField(fields, "website"),
		CaptchaA:       numberishField(fields, "captchaA"),
		CaptchaB:       numberishField(fields, "captchaB"),
		CaptchaAnswer:  numberishField(fields, "captchaAnswer"),
	}, nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return ""
	}
	return s
}

func numberishField(fields map[string]json.RawMessage, key string) string {
	var n numberish
	if err := json.Unmarshal(fields[key], &n); err != nil {
		return ""
	}
	return string(n)
}

func mapSubmitError(err error) (int, errorResponse) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, deliveryFailed(usecase.ErrorInternal)
	}
	body := errorResponse{Code: string(ue.Code)}
	switch ue.Code {
	case usecase.ErrorInvalidSubmission:
		body.Error = "Invalid submission"
		return http.StatusBadRequest, body
	case usecase.ErrorCaptchaFailed:
		body.Error = "Captcha validation failed"
		return http.StatusBadRequest, body
	case usecase.ErrorMissingFields:
		body.Error = "Missing required fields"
		body.Details = "Name, company, email, and request details are required"
		body.Fields = ue.Fields
		return http.StatusBadRequest, body
	case usecase.ErrorInvalidEmail:
		body.Error = "Invalid email format"
		body.Fields = ue.Fields
		return http.StatusBadRequest, body
	case usecase.ErrorNotConfigured:
		body.Error = "Email configuration missing"
		body.Message = "Please configure SMTP (Zoho) or SendGrid environment variables."
		return http.StatusInternalServerError, body
	default:
		return http.StatusInternalServerError, deliveryFailed(ue.Code)
	}
}

func deliveryFailed(code usecase.ErrorCode) errorResponse {
	return errorResponse{
		Error:   "Failed to send request",
		Code:    string(code),
		Message: "There was an error processing your request. Please try again later.",
	}
}
