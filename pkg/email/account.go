package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">
  <h2>Verify your email</h2>
  <p>Confirm this address to finish setting it up on your account.</p>
  <p><a href="{{.Link}}">Verify email address</a></p>
  <p>This link expires in {{.TTL}}. If you did not request it, ignore this message.</p>
</body>
</html>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">
  <h2>Reset your password</h2>
  <p>We received a request to reset the password for your account.</p>
  <p><a href="{{.Link}}">Choose a new password</a></p>
  <p>This link expires in {{.TTL}} and can be used once. If you did not request
  a reset, your password is unchanged and you can ignore this message.</p>
</body>
</html>`))

// AccountEmails composes and sends the account lifecycle messages. Links
// are built on the application base URL so the token lands back on the
// right deployment.
type AccountEmails struct {
	sender  Sender
	baseURL string
}

// NewAccountEmails creates the account mailer. baseURL is the externally
// reachable application root, without a trailing slash.
func NewAccountEmails(sender Sender, baseURL string) *AccountEmails {
	return &AccountEmails{sender: sender, baseURL: baseURL}
}

// SendVerification delivers the email verification link.
func (a *AccountEmails) SendVerification(ctx context.Context, to, token string, ttl time.Duration) error {
	body, err := render(verificationTmpl, map[string]any{
		"Link": fmt.Sprintf("%s/auth/email/verify?token=%s", a.baseURL, token),
		"TTL":  humanDuration(ttl),
	})
	if err != nil {
		return err
	}
	return a.sender.Send(ctx, Message{
		To:       to,
		Subject:  "Verify your email address",
		BodyHTML: body,
		Tag:      "email-verification",
	})
}

// SendPasswordReset delivers the password reset link.
func (a *AccountEmails) SendPasswordReset(ctx context.Context, to, token string, expiresAt time.Time) error {
	body, err := render(resetTmpl, map[string]any{
		"Link": fmt.Sprintf("%s/auth/password/reset?token=%s", a.baseURL, token),
		"TTL":  humanDuration(time.Until(expiresAt)),
	})
	if err != nil {
		return err
	}
	return a.sender.Send(ctx, Message{
		To:       to,
		Subject:  "Reset your password",
		BodyHTML: body,
		Tag:      "password-reset",
	})
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: render template: %v", ErrSendFailed, err)
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour {
		hours := int(d.Round(time.Hour).Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(d.Round(time.Minute).Minutes())
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
