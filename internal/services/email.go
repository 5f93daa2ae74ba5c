package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventplanner/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

func (s *emailService) SendWelcomeMessage(ctx context.Context, data *domain.WelcomeMessageEmailData) error {
	if data == nil || data.Email == "" {
		return errors.New("welcome message needs a recipient")
	}
	return s.send(ctx, domain.EmailTemplateWelcome, data.Email, data)
}

func (s *emailService) send(ctx context.Context, tmpl domain.EmailTemplate, to string, data any) error {
	msg, err := s.renderer.Render(tmpl, data)
	if err != nil {
		return fmt.Errorf("render %s email: %w", tmpl, err)
	}
	msg.To = to
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", tmpl, err)
	}
	s.logger.InfoContext(ctx, "email sent", "template", tmpl, "to", to)
	return nil
}
