package domain

// Submission is a sourcing request as posted by the request form.
// The captcha fields stay raw so numbers and numeric strings are both accepted.
type Submission struct {
	Name           string
	Company        string
	Email          string
	RequestDetails string
	Website        string
	CaptchaA       string
	CaptchaB       string
	CaptchaAnswer  string
}

// Request is a validated submission with trimmed contact fields.
type Request struct {
	Name           string
	Company        string
	Email          string
	RequestDetails string
}
