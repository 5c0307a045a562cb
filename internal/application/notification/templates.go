package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

// Kind names one notification and its template.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindWelcome       Kind = "welcome"
	KindPasswordReset Kind = "password_reset"
	KindResetSuccess  Kind = "reset_success"
)

var kinds = []Kind{KindVerification, KindWelcome, KindPasswordReset, KindResetSuccess}

var subjects = map[Kind]string{
	KindVerification:  "Verify your email",
	KindWelcome:       "Welcome",
	KindPasswordReset: "Reset your password",
	KindResetSuccess:  "Password reset successful",
}

// templateData is what every template can reference.
type templateData struct {
	Name     string
	Email    string
	Code     string
	ResetURL string
}

const layoutStart = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
`

const layoutEnd = `<p>Best regards,<br>The Auth Team</p>
</body>
</html>
`

var builtin = map[Kind]string{
	KindVerification: `<h1>Verify your email</h1>
<p>Hello,</p>
<p>Thank you for signing up. Your verification code is:</p>
<p style="font-size: 32px; font-weight: bold; letter-spacing: 5px;">{{.Code}}</p>
<p>Enter this code on the verification page to complete your registration.</p>
<p>This code will expire in 24 hours for security reasons.</p>
<p>If you didn't create an account with us, please ignore this email.</p>
`,
	KindWelcome: `<h1>Welcome, {{.Name}}</h1>
<p>Your email address has been verified and your account is ready to use.</p>
`,
	KindPasswordReset: `<h1>Password reset</h1>
<p>Hello,</p>
<p>We received a request to reset your password. If you didn't make this request, please ignore this email.</p>
<p>To reset your password, click the link below:</p>
<p><a href="{{.ResetURL}}">Reset Password</a></p>
<p>This link will expire in 1 hour for security reasons.</p>
`,
	KindResetSuccess: `<h1>Password reset successful</h1>
<p>Hello,</p>
<p>This is a confirmation that your password has been successfully reset.</p>
<p>If you did not initiate this password reset, please contact our support team immediately.</p>
`,
}

// parseTemplate wraps body in the shared layout.
func parseTemplate(kind Kind, body string) (*template.Template, error) {
	t, err := template.New(string(kind)).Parse(layoutStart + body + layoutEnd)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", kind, err)
	}
	return t, nil
}

func render(t *template.Template, subject string, data templateData) (string, error) {
	var buf bytes.Buffer
	err := t.Execute(&buf, struct {
		templateData
		Subject string
	}{data, subject})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
