package domain

import "context"

// EmailTemplate names an embedded template set: <name>_subject.txt, <name>.html and <name>.txt.
type EmailTemplate string

const EmailTemplateWelcome EmailTemplate = "welcome"

// EmailMessage is a rendered message. Either body may be empty.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailTemplateRenderer renders a template set; the returned message has no recipient.
type EmailTemplateRenderer interface {
	Render(tmpl EmailTemplate, data any) (EmailMessage, error)
}

// WelcomeMessageEmailData is the data for EmailTemplateWelcome.
type WelcomeMessageEmailData struct {
	Email string
	Name  string
}

type EmailService interface {
	SendWelcomeMessage(ctx context.Context, data *WelcomeMessageEmailData) error
}
