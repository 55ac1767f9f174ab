package notify

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"supplyfinder/internal/domain"
)

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb; border-bottom: 2px solid #2563eb; padding-bottom: 10px;">New SupplyFinder Request</h2>
  <div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #1e293b; margin-bottom: 15px;">Contact Information</h3>
    <p><strong>Name:</strong> {{.Name}}</p>
    <p><strong>Company:</strong> {{.Company}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
  </div>
  <div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #1e293b; margin-bottom: 15px;">Sourcing Requirements</h3>
    <p style="white-space: pre-wrap; line-height: 1.6;">{{.RequestDetails}}</p>
  </div>
  <div style="text-align: center; margin-top: 30px; padding-top: 20px; border-top: 1px solid #e5e7eb;">
    <p style="color: #64748b; font-size: 14px;">Submitted via SupplyFinder.ai</p>
  </div>
</div>
`))

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`New SupplyFinder Request

Contact Information:
- Name: {{.Name}}
- Company: {{.Company}}
- Email: {{.Email}}

Sourcing Requirements:
{{.RequestDetails}}
`))

func renderHTML(req domain.Request) (string, error) {
	var b strings.Builder
	if err := htmlBody.Execute(&b, req); err != nil {
		return "", fmt.Errorf("notify: render html: %w", err)
	}
	return b.String(), nil
}

func renderText(req domain.Request) (string, error) {
	var b strings.Builder
	if err := textBody.Execute(&b, req); err != nil {
		return "", fmt.Errorf("notify: render text: %w", err)
	}
	return b.String(), nil
}
