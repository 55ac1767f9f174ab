package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"supplyfinder/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateSubmission runs the honeypot, captcha and field checks in order and
// returns the trimmed request. Only the required-field check accumulates.
func ValidateSubmission(s domain.Submission) (domain.Request, error) {
	if strings.TrimSpace(s.Website) != "" {
		return domain.Request{}, newError(ErrorInvalidSubmission, "honeypot_filled", nil)
	}
	if !captchaSolved(s.CaptchaA, s.CaptchaB, s.CaptchaAnswer) {
		return domain.Request{}, newError(ErrorCaptchaFailed, "captcha_mismatch", nil)
	}

	req := domain.Request{
		Name:           strings.TrimSpace(s.Name),
		Company:        strings.TrimSpace(s.Company),
		Email:          strings.TrimSpace(s.Email),
		RequestDetails: strings.TrimSpace(s.RequestDetails),
	}

	missing := map[string]string{}
	if req.Name == "" {
		missing["name"] = "Name is required"
	}
	if req.Company == "" {
		missing["company"] = "Company is required"
	}
	if req.Email == "" {
		missing["email"] = "Email is required"
	}
	if req.RequestDetails == "" {
		missing["requestDetails"] = "Request details are required"
	}
	if len(missing) > 0 {
		err := newError(ErrorMissingFields, "missing_required_fields", nil)
		err.Fields = missing
		return domain.Request{}, err
	}

	if !emailPattern.MatchString(req.Email) {
		err := newError(ErrorInvalidEmail, "invalid_email_format", nil)
		err.Fields = map[string]string{"email": "Please enter a valid email address"}
		return domain.Request{}, err
	}
	return req, nil
}

func captchaSolved(a, b, answer string) bool {
	x, ok := parseFinite(a)
	if !ok {
		return false
	}
	y, ok := parseFinite(b)
	if !ok {
		return false
	}
	z, ok := parseFinite(answer)
	if !ok {
		return false
	}
	return x+y == z
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
