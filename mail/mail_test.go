package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrascope/authcore/logging"
)

func TestRendererVerificationCode(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	msg, err := r.VerificationCode(VerificationCodeData{
		User: Recipient{Email: "alice@example.com"},
		Code: "048213",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Your new TerraScope verification code", msg.Subject)
	assert.True(t, strings.HasPrefix(msg.Text, "Your new verification code is: 048213"))
	assert.Contains(t, msg.Text, "10 minutes")
	assert.Contains(t, msg.HTML, "<strong>048213</strong>")
	assert.Contains(t, msg.HTML, "alice@example.com")
}

func TestRendererPasswordResetEscapesHTML(t *testing.T) {
	r, err := NewRenderer("TerraScope")
	require.NoError(t, err)

	url := "https://shop.example.com/password-reset/dTE/tok?a=1&b=2"
	msg, err := r.PasswordReset(PasswordResetData{
		User:     Recipient{Email: "<b>bob</b>@example.com"},
		ResetURL: url,
	})
	require.NoError(t, err)

	assert.Equal(t, "Reset your TerraScope password", msg.Subject)
	assert.Contains(t, msg.Text, url)
	assert.Contains(t, msg.HTML, "a=1&amp;b=2")
	assert.NotContains(t, msg.HTML, "<b>bob</b>")
}

func TestSMTPMailerComposesMultipart(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "noreply@example.com"})
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	var gotAuth smtp.Auth
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotBody = addr, a, from, to, msg
		return nil
	}

	err = m.Send(context.Background(), Message{
		To:      "alice@example.com",
		Subject: "Your new TerraScope verification code",
		Text:    "Your new verification code is: 048213",
		HTML:    "<p>048213</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)

	body := string(gotBody)
	assert.Contains(t, body, "multipart/alternative; boundary=")
	assert.Contains(t, body, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, body, "Content-Type: text/html; charset=utf-8")
	assert.Contains(t, body, "Your new verification code is: 048213")
}

func TestSMTPMailerWrapsSendError(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, From: "noreply@example.com"})
	require.NoError(t, err)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err = m.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestSMTPMailerRejectsHeaderInjection(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, From: "noreply@example.com"})
	require.NoError(t, err)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	err = m.Send(context.Background(), Message{To: "a@example.com\r\nBcc: x@example.com", Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestSMTPMailerHonorsCanceledContext(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, From: "noreply@example.com"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.Send(ctx, Message{To: "a@example.com", Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSMTPMailerValidation(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{Port: 25, From: "x@example.com"})
	assert.Error(t, err)
	_, err = NewSMTPMailer(SMTPConfig{Host: "h", Port: 0, From: "x@example.com"})
	assert.Error(t, err)
	_, err = NewSMTPMailer(SMTPConfig{Host: "h", Port: 25})
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	err := NewLogMailer(log).Send(context.Background(), Message{To: "a@example.com", Subject: "hello", Text: "code 123456"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "to=a@example.com")
	assert.Contains(t, buf.String(), "subject=hello")
}
