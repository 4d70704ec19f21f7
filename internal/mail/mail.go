// Package mail builds and delivers the account emails sent by the auth flow
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// Message is a single outgoing HTML email
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

const layout = `<h1>{{.Heading}}</h1>
<p>Hello {{.Username}},</p>
<p>{{.Text}}</p>
<p><a href="{{.Link}}">{{.Action}}</a></p>
<p>The link expires in 24 hours. If you did not request this, ignore this email.</p>`

var emailTemplate = template.Must(template.New("email").Parse(layout))

type emailData struct {
	Heading  string
	Username string
	Text     string
	Link     string
	Action   string
}

// VerificationEmail builds the email carrying the address verification link
func VerificationEmail(to, username, link string) (Message, error) {
	return render(to, "Verify your email", emailData{
		Heading:  "Welcome to Marketplace",
		Username: username,
		Text:     "Please confirm your email address to activate your account.",
		Link:     link,
		Action:   "Verify email",
	})
}

// ResetPasswordEmail builds the email carrying the password reset link
func ResetPasswordEmail(to, username, link string) (Message, error) {
	return render(to, "Reset your password", emailData{
		Heading:  "Password reset",
		Username: username,
		Text:     "We received a request to reset your password.",
		Link:     link,
		Action:   "Reset password",
	})
}

func render(to, subject string, data emailData) (Message, error) {
	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %q email: %w", subject, err)
	}
	return Message{To: to, Subject: subject, Body: body.String()}, nil
}

// Sender delivers a message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
