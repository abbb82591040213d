package email

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
	"time"

	"contentops/internal/core"
)

// EmailTemplate holds the styling applied to notification emails
type EmailTemplate struct {
	Name            string
	Subject         string
	HeaderColor     string
	BackgroundColor string
	TextColor       string
	BorderColor     string
	MaxWidth        string
	FontFamily      string
}

// GetNotificationTemplate returns the template used for internal form notifications
func GetNotificationTemplate() *EmailTemplate {
	return &EmailTemplate{
		Name:            "notification",
		Subject:         "New quote request from {{.Name}}{{if .Company}} ({{.Company}}){{end}}",
		HeaderColor:     "#0f172a", // Slate-900
		BackgroundColor: "#f8fafc", // Slate-50
		TextColor:       "#1e293b", // Slate-800
		BorderColor:     "#e2e8f0", // Slate-200
		MaxWidth:        "600px",
		FontFamily:      "system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif",
	}
}

// ContactData is the view model for a contact notification
type ContactData struct {
	Name        string
	Email       string
	Company     string
	Phone       string
	Service     string
	Message     string
	SubmittedAt string
}

// NewContactData converts a stored submission into template data
func NewContactData(s core.ContactSubmission) ContactData {
	submitted := s.CreatedAt
	if submitted.IsZero() {
		submitted = time.Now().UTC()
	}
	return ContactData{
		Name:        s.Name,
		Email:       s.Email,
		Company:     s.Company,
		Phone:       s.Phone,
		Service:     s.Service,
		Message:     s.Message,
		SubmittedAt: submitted.Format("January 2, 2006 15:04 MST"),
	}
}

const contactHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>New quote request</title>
    <style>{{.CSS}}</style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>New quote request</h1>
            <p class="date">{{.Data.SubmittedAt}}</p>
        </div>
        <table role="presentation" cellpadding="8" class="fields">
            <tr><td><strong>Name</strong></td><td>{{.Data.Name}}</td></tr>
            <tr><td><strong>Email</strong></td><td><a href="mailto:{{.Data.Email}}">{{.Data.Email}}</a></td></tr>
            {{if .Data.Company}}<tr><td><strong>Company</strong></td><td>{{.Data.Company}}</td></tr>{{end}}
            {{if .Data.Phone}}<tr><td><strong>Phone</strong></td><td>{{.Data.Phone}}</td></tr>{{end}}
            {{if .Data.Service}}<tr><td><strong>Service</strong></td><td>{{.Data.Service}}</td></tr>{{end}}
        </table>
        <div class="message">
            <h2>Message</h2>
            <p>{{.Data.Message}}</p>
        </div>
    </div>
</body>
</html>`

// getEmailCSS builds the stylesheet from trusted template settings
func getEmailCSS(t *EmailTemplate) template.CSS {
	return template.CSS(fmt.Sprintf(`
body { margin: 0; padding: 24px; background: %s; font-family: %s; color: %s; }
.container { max-width: %s; margin: 0 auto; background: #ffffff; border: 1px solid %s; border-radius: 8px; }
.header { background: %s; color: #ffffff; padding: 16px 24px; border-radius: 8px 8px 0 0; }
.header h1 { margin: 0; font-size: 20px; }
.date { margin: 4px 0 0; font-size: 13px; }
.fields { width: 100%%; padding: 16px; }
.message { padding: 0 24px 24px; }
.message h2 { font-size: 16px; }
.message p { white-space: pre-wrap; }
`, t.BackgroundColor, t.FontFamily, t.TextColor, t.MaxWidth, t.BorderColor, t.HeaderColor))
}

var contactTmpl = template.Must(template.New("contact").Parse(contactHTML))

// RenderContactEmail renders the HTML body of a contact notification
func RenderContactEmail(data ContactData, emailTemplate *EmailTemplate) (string, error) {
	var buf bytes.Buffer
	err := contactTmpl.Execute(&buf, struct {
		Data ContactData
		CSS  template.CSS
	}{data, getEmailCSS(emailTemplate)})
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return buf.String(), nil
}

// GenerateSubject generates the email subject using the template
func GenerateSubject(emailTemplate *EmailTemplate, data ContactData) (string, error) {
	tmpl, err := texttemplate.New("subject").Parse(emailTemplate.Subject)
	if err != nil {
		return "", fmt.Errorf("failed to parse subject template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute subject template: %w", err)
	}

	return buf.String(), nil
}
