// Package mail delivers policy summaries by SMTP.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"

	"gopkg.in/gomail.v2"

	"policylens-backend/internal/export"
)

const (
	// Subject of every summary email.
	Subject = "Your Insurance Policy Summary — PolicyLens AI"

	previewRunes = 600
)

var (
	// ErrInvalidAddress is returned for recipients that are not email addresses.
	ErrInvalidAddress = errors.New("invalid recipient address")
	// ErrNotConfigured is returned when SMTP credentials are missing.
	ErrNotConfigured = errors.New("email delivery is not configured")
)

// Options configures the SMTP account. Port 465 uses implicit TLS.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Sender sends summary emails through one SMTP account.
type Sender struct {
	opts Options
	send func(ctx context.Context, m *gomail.Message) error
}

// NewSender builds a Sender that dials the SMTP server once per message.
func NewSender(opts Options) *Sender {
	s := &Sender{opts: opts}
	s.send = s.dialAndSend
	return s
}

// Configured reports whether credentials are present.
func (s *Sender) Configured() bool {
	return s != nil && strings.TrimSpace(s.opts.Username) != "" && s.opts.Password != ""
}

// SendSummary emails a preview of summary with the PDF attached.
func (s *Sender) SendSummary(ctx context.Context, to, summary string, pdf []byte) error {
	to = strings.TrimSpace(to)
	if !strings.Contains(to, "@") {
		return ErrInvalidAddress
	}
	if !s.Configured() {
		return ErrNotConfigured
	}
	msg, err := s.compose(to, summary, pdf)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("send summary email: %w", err)
	}
	return nil
}

func (s *Sender) compose(to, summary string, pdf []byte) (*gomail.Message, error) {
	body, err := renderBody(summary)
	if err != nil {
		return nil, err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.opts.Username)
	m.SetHeader("To", to)
	m.SetHeader("Subject", Subject)
	m.SetBody("text/html", body)
	m.Attach(export.SummaryFileName,
		gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(pdf)
			return err
		}),
	)
	return m, nil
}

func (s *Sender) dialAndSend(ctx context.Context, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := gomail.NewDialer(s.opts.Host, s.opts.Port, s.opts.Username, s.opts.Password)
	d.SSL = s.opts.Port == 465
	return d.DialAndSend(m)
}

var bodyTemplate = template.Must(template.New("summary-email").Parse(`<html>
<body style="font-family:Arial,sans-serif;padding:20px;background:#f5f5f5;">
  <div style="max-width:600px;margin:0 auto;background:white;border-radius:16px;padding:30px;">
    <h2 style="color:#1a3a5c;">Your Insurance Policy Summary</h2>
    <p>Hello,</p>
    <p>Your AI-generated insurance policy summary is attached as PDF.</p>
    <div style="background:#f0f7ff;border-radius:10px;padding:20px;margin:20px 0;border-left:4px solid #4fc3f7;">
      <h3 style="color:#1a3a5c;margin-top:0;">Quick Preview:</h3>
      <pre style="font-size:13px;white-space:pre-wrap;color:#333;">{{.Preview}}...</pre>
    </div>
    <p style="color:#888;font-size:12px;border-top:1px solid #eee;padding-top:15px;">{{.Footer}}.</p>
  </div>
</body>
</html>
`))

func renderBody(summary string) (string, error) {
	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, struct {
		Preview string
		Footer  string
	}{
		Preview: preview(summary, previewRunes),
		Footer:  export.Footer,
	})
	if err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
