package mail

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	SubjectVerificationCode = "Your new TerraScope verification code"
	SubjectPasswordReset    = "Reset your TerraScope password"
)

// Recipient is the subset of a user record the templates may reference.
type Recipient struct {
	Email string
}

// VerificationCodeData is rendered into the verification code email.
type VerificationCodeData struct {
	User         Recipient
	Code         string
	ValidMinutes int
}

// PasswordResetData is rendered into the password reset email.
type PasswordResetData struct {
	User     Recipient
	ResetURL string
}

// Renderer holds the parsed notification templates.
type Renderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
	app  string
}

// NewRenderer parses the embedded templates. appName replaces "TerraScope"
// in bodies; subjects are fixed.
func NewRenderer(appName string) (*Renderer, error) {
	if strings.TrimSpace(appName) == "" {
		appName = "TerraScope"
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, err
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, err
	}
	return &Renderer{text: text, html: html, app: appName}, nil
}

// VerificationCode renders the verification code notice.
func (r *Renderer) VerificationCode(data VerificationCodeData) (Message, error) {
	if data.ValidMinutes <= 0 {
		data.ValidMinutes = 10
	}
	return r.render("verification_code", SubjectVerificationCode, data.User.Email, data)
}

// PasswordReset renders the reset link notice.
func (r *Renderer) PasswordReset(data PasswordResetData) (Message, error) {
	return r.render("password_reset", SubjectPasswordReset, data.User.Email, data)
}

func (r *Renderer) render(name, subject, to string, data any) (Message, error) {
	view := map[string]any{"App": r.app, "Data": data}

	var text bytes.Buffer
	if err := r.text.ExecuteTemplate(&text, name+".txt.tmpl", view); err != nil {
		return Message{}, err
	}
	var html bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, name+".html.tmpl", view); err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		Subject: subject,
		Text:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}
