package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"supplyfinder/internal/domain"
	"supplyfinder/internal/ratelimit"
	"supplyfinder/internal/usecase"
)

type stubSubmitter struct {
	err   error
	calls []domain.Submission
}

func (s *stubSubmitter) Submit(_ context.Context, in domain.Submission) error {
	s.calls = append(s.calls, in)
	return s.err
}

type stubNotifier struct {
	sent []domain.Request
}

func (s *stubNotifier) Notify(_ context.Context, req domain.Request) error {
	s.sent = append(s.sent, req)
	return nil
}

const validBody = `{"name":"Ada","company":"Analytical Engines","email":"ada@example.com","requestDetails":"500 LFP cells","website":"","captchaA":2,"captchaB":3,"captchaAnswer":5}`

func mustLimiter(t *testing.T, secret string) *ratelimit.Limiter {
	t.Helper()
	l, err := ratelimit.New(secret)
	require.NoError(t, err)
	return l
}

func newSubmitHandler(t *testing.T, s Submitter, l RateLimiter) *SubmitHandler {
	t.Helper()
	h, err := NewSubmitHandler(s, l, quietLogger())
	require.NoError(t, err)
	return h
}

func post(body string) events.APIGatewayProxyRequest {
	return makeEvent(http.MethodPost, "/api/submit-request", body)
}

func TestNewSubmitHandler_ValidatesDependencies(t *testing.T) {
	_, err := NewSubmitHandler(nil, mustLimiter(t, ""), nil)
	require.Error(t, err)
	_, err = NewSubmitHandler(&stubSubmitter{}, nil, nil)
	require.Error(t, err)
}

func TestSubmit_Preflight(t *testing.T) {
	s := &stubSubmitter{}
	h := newSubmitHandler(t, s, mustLimiter(t, "secret"))

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodOptions, "/api/submit-request", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Body)
	require.Contains(t, resp.Headers["Access-Control-Allow-Methods"], "POST")
	require.Contains(t, resp.Headers["Access-Control-Allow-Headers"], "Content-Type")
	require.Empty(t, resp.Headers["Set-Cookie"])
	require.Empty(t, s.calls)
}

func TestSubmit_MethodNotAllowed(t *testing.T) {
	h := newSubmitHandler(t, &stubSubmitter{}, mustLimiter(t, ""))
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/api/submit-request", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, "Method not allowed", parseBody[errorResponse](t, resp.Body).Error)
}

func TestSubmit_HappyPath(t *testing.T) {
	s := &stubSubmitter{}
	h := newSubmitHandler(t, s, mustLimiter(t, ""))

	resp, err := h.Handle(context.Background(), post(validBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Headers["Content-Type"])

	out := parseBody[submitResponse](t, resp.Body)
	require.True(t, out.Success)
	require.Equal(t, "Request submitted successfully", out.Message)
	require.Empty(t, resp.Headers["Set-Cookie"], "disabled limiter sets no cookie")

	require.Len(t, s.calls, 1)
	require.Equal(t, domain.Submission{
		Name: "Ada", Company: "Analytical Engines", Email: "ada@example.com", RequestDetails: "500 LFP cells",
		CaptchaA: "2", CaptchaB: "3", CaptchaAnswer: "5",
	}, s.calls[0])
}

func TestSubmit_RateLimitedSecondAttempt(t *testing.T) {
	n := &stubNotifier{}
	svc, err := usecase.NewSubmitService(n)
	require.NoError(t, err)
	h := newSubmitHandler(t, svc, mustLimiter(t, "secret"))
	now := time.UnixMilli(1_700_000_000_000)
	h.now = func() time.Time { return now }

	first, err := h.Handle(context.Background(), post(validBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, first.StatusCode)
	setCookie := first.Headers["Set-Cookie"]
	require.Contains(t, setCookie, "sf_rl=")
	require.Contains(t, setCookie, "Path=/")
	require.Contains(t, setCookie, "HttpOnly")
	require.Contains(t, setCookie, "SameSite=Lax")
	require.Contains(t, setCookie, "Max-Age=604800")

	cookie, err := parseSetCookie(setCookie)
	require.NoError(t, err)

	now = now.Add(12 * time.Second)
	second := post(validBody)
	second.Headers["Cookie"] = cookie.Name + "=" + cookie.Value
	resp, err := h.Handle(context.Background(), second)
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "18", resp.Headers["Retry-After"])
	require.Equal(t, "RATE_LIMITED", parseBody[errorResponse](t, resp.Body).Code)
	require.Len(t, n.sent, 1)

	now = now.Add(18 * time.Second)
	resp, err = h.Handle(context.Background(), second)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, n.sent, 2)
}

func TestSubmit_CaptchaAsStrings(t *testing.T) {
	n := &stubNotifier{}
	svc, err := usecase.NewSubmitService(n)
	require.NoError(t, err)
	h := newSubmitHandler(t, svc, mustLimiter(t, ""))

	body := `{"name":"Ada","company":"AE","email":"ada@example.com","requestDetails":"x","captchaA":"2","captchaB":"3","captchaAnswer":"5"}`
	resp, err := h.Handle(context.Background(), post(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body = `{"name":"Ada","company":"AE","email":"ada@example.com","requestDetails":"x","captchaA":2,"captchaB":3,"captchaAnswer":6}`
	resp, err = h.Handle(context.Background(), post(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Captcha validation failed", parseBody[errorResponse](t, resp.Body).Error)
	require.Len(t, n.sent, 1)
}

func TestSubmit_HoneypotRejectedRegardlessOfFields(t *testing.T) {
	svc, err := usecase.NewSubmitService(&stubNotifier{})
	require.NoError(t, err)
	h := newSubmitHandler(t, svc, mustLimiter(t, ""))

	body := `{"name":"Ada","company":"AE","email":"ada@example.com","requestDetails":"x","website":"spam.example","captchaA":2,"captchaB":3,"captchaAnswer":5}`
	resp, err := h.Handle(context.Background(), post(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid submission", parseBody[errorResponse](t, resp.Body).Error)
}

func TestSubmit_InvalidBody(t *testing.T) {
	s := &stubSubmitter{}
	h := newSubmitHandler(t, s, mustLimiter(t, "secret"))

	resp, err := h.Handle(context.Background(), post(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_BODY", parseBody[errorResponse](t, resp.Body).Code)
	require.Empty(t, resp.Headers["Set-Cookie"])

	resp, err = h.Handle(context.Background(), post(`["name"]`))
	require.NoError(t, err)
	require.Equal(t, "INVALID_BODY", parseBody[errorResponse](t, resp.Body).Code)
	require.Empty(t, s.calls)
}

func TestSubmit_HoneypotCheckedDespiteMistypedFields(t *testing.T) {
	svc, err := usecase.NewSubmitService(&stubNotifier{})
	require.NoError(t, err)
	h := newSubmitHandler(t, svc, mustLimiter(t, ""))

	for _, body := range []string{
		`{"website":"x","name":5}`,
		`{"website":"x","company":{"a":1},"captchaA":[1]}`,
		`{"website":42}`,
	} {
		resp, err := h.Handle(context.Background(), post(body))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		require.Equal(t, string(usecase.ErrorInvalidSubmission), parseBody[errorResponse](t, resp.Body).Code, body)
	}
}

func TestSubmit_MistypedFieldReadsAsMissing(t *testing.T) {
	svc, err := usecase.NewSubmitService(&stubNotifier{})
	require.NoError(t, err)
	h := newSubmitHandler(t, svc, mustLimiter(t, ""))

	body := `{"name":5,"company":"AE","email":"ada@example.com","requestDetails":"x","captchaA":2,"captchaB":3,"captchaAnswer":5}`
	resp, err := h.Handle(context.Background(), post(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorMissingFields), out.Code)
	require.Contains(t, out.Fields, "name")
}

func TestSubmit_CaptchaTypoDoesNotStartCooldown(t *testing.T) {
	n := &stubNotifier{}
	svc, err := usecase.NewSubmitService(n)
	require.NoError(t, err)
	h := newSubmitHandler(t, svc, mustLimiter(t, "secret"))
	now := time.UnixMilli(1_700_000_000_000)
	h.now = func() time.Time { return now }

	typo := `{"name":"Ada","company":"AE","email":"ada@example.com","requestDetails":"x","captchaA":2,"captchaB":3,"captchaAnswer":6}`
	resp, err := h.Handle(context.Background(), post(typo))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, resp.Headers["Set-Cookie"])

	now = now.Add(5 * time.Second)
	resp, err = h.Handle(context.Background(), post(validBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Headers["Set-Cookie"])
	require.Len(t, n.sent, 1)
}

func TestSubmit_FailedDeliveryDoesNotStartCooldown(t *testing.T) {
	s := &stubSubmitter{err: &usecase.Error{Code: usecase.ErrorDelivery}}
	h := newSubmitHandler(t, s, mustLimiter(t, "secret"))

	resp, err := h.Handle(context.Background(), post(validBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Empty(t, resp.Headers["Set-Cookie"])

	s.err = nil
	resp, err = h.Handle(context.Background(), post(validBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, s.calls, 2)
}

func TestSubmit_EmptyBodyFailsCaptcha(t *testing.T) {
	svc, err := usecase.NewSubmitService(&stubNotifier{})
	require.NoError(t, err)
	h := newSubmitHandler(t, svc, mustLimiter(t, ""))

	resp, err := h.Handle(context.Background(), post(""))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, string(usecase.ErrorCaptchaFailed), parseBody[errorResponse](t, resp.Body).Code)
}

func TestSubmit_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "honeypot", err: &usecase.Error{Code: usecase.ErrorInvalidSubmission}, status: http.StatusBadRequest, message: "Invalid submission"},
		{name: "captcha", err: &usecase.Error{Code: usecase.ErrorCaptchaFailed}, status: http.StatusBadRequest, message: "Captcha validation failed"},
		{name: "missing", err: &usecase.Error{Code: usecase.ErrorMissingFields, Fields: map[string]string{"name": "Name is required"}}, status: http.StatusBadRequest, message: "Missing required fields"},
		{name: "email", err: &usecase.Error{Code: usecase.ErrorInvalidEmail}, status: http.StatusBadRequest, message: "Invalid email format"},
		{name: "not configured", err: &usecase.Error{Code: usecase.ErrorNotConfigured}, status: http.StatusInternalServerError, message: "Email configuration missing"},
		{name: "delivery", err: &usecase.Error{Code: usecase.ErrorDelivery, Err: errors.New("535 5.7.8 bad credentials for smtp.zoho.eu")}, status: http.StatusInternalServerError, message: "Failed to send request"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, message: "Failed to send request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newSubmitHandler(t, &stubSubmitter{err: tc.err}, mustLimiter(t, ""))
			resp, err := h.Handle(context.Background(), post(validBody))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.message, out.Error)
			require.NotContains(t, resp.Body, "smtp.zoho.eu")
		})
	}
}

func TestSubmit_MissingFieldsDetail(t *testing.T) {
	svc, err := usecase.NewSubmitService(&stubNotifier{})
	require.NoError(t, err)
	h := newSubmitHandler(t, svc, mustLimiter(t, ""))

	resp, err := h.Handle(context.Background(), post(`{"name":"Ada","email":"notanemail","captchaA":1,"captchaB":1,"captchaAnswer":2}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, "Missing required fields", out.Error)
	require.NotEmpty(t, out.Details)
	require.Contains(t, out.Fields, "company")
	require.Contains(t, out.Fields, "requestDetails")

	resp, err = h.Handle(context.Background(), post(`{"name":"Ada","company":"AE","requestDetails":"x","email":"notanemail","captchaA":1,"captchaB":1,"captchaAnswer":2}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid email format", parseBody[errorResponse](t, resp.Body).Error)
}

func TestSubmit_UsesProvidedCorrelationID(t *testing.T) {
	h := newSubmitHandler(t, &stubSubmitter{}, mustLimiter(t, ""))
	event := post(validBody)
	event.Headers["x-correlation-id"] = "corr-123"

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

func TestSubmit_RetryAfterIsWholeSeconds(t *testing.T) {
	h := newSubmitHandler(t, &stubSubmitter{}, mustLimiter(t, "secret"))
	now := time.UnixMilli(1_700_000_000_000)
	h.now = func() time.Time { return now }

	first, err := h.Handle(context.Background(), post(validBody))
	require.NoError(t, err)
	cookie, err := parseSetCookie(first.Headers["Set-Cookie"])
	require.NoError(t, err)

	now = now.Add(29*time.Second + 500*time.Millisecond)
	event := post(validBody)
	event.Headers["Cookie"] = cookie.Name + "=" + cookie.Value
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	secs, err := strconv.Atoi(resp.Headers["Retry-After"])
	require.NoError(t, err)
	require.Equal(t, 1, secs)
}

// parseSetCookie stands in for http.ParseSetCookie (Go 1.23+) on older toolchains.
func parseSetCookie(line string) (*http.Cookie, error) {
	cookies := (&http.Response{Header: http.Header{"Set-Cookie": {line}}}).Cookies()
	if len(cookies) != 1 {
		return nil, errors.New("http: invalid Set-Cookie header")
	}
	return cookies[0], nil
}
