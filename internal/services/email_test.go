package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner/internal/domain"
)

type fakeMailer struct {
	sent []domain.EmailMessage
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg domain.EmailMessage) error {
	m.sent = append(m.sent, msg)
	return m.err
}

type fakeRenderer struct {
	rendered domain.EmailTemplate
	err      error
}

func (r *fakeRenderer) Render(tmpl domain.EmailTemplate, _ any) (domain.EmailMessage, error) {
	r.rendered = tmpl
	if r.err != nil {
		return domain.EmailMessage{}, r.err
	}
	return domain.EmailMessage{Subject: "Welcome", HTML: "<p>hi</p>", Text: "hi"}, nil
}

func TestEmailService_SendWelcomeMessage(t *testing.T) {
	ctx := context.Background()
	data := &domain.WelcomeMessageEmailData{Email: "alice@example.com", Name: "Alice"}

	t.Run("renders and sends", func(t *testing.T) {
		mailer, renderer := &fakeMailer{}, &fakeRenderer{}
		svc := NewEmailService(mailer, renderer, discardLogger())

		require.NoError(t, svc.SendWelcomeMessage(ctx, data))
		assert.Equal(t, domain.EmailTemplateWelcome, renderer.rendered)
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, domain.EmailMessage{To: "alice@example.com", Subject: "Welcome", HTML: "<p>hi</p>", Text: "hi"}, mailer.sent[0])
	})

	t.Run("nil data", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{}, &fakeRenderer{}, discardLogger())
		require.Error(t, svc.SendWelcomeMessage(ctx, nil))
		require.Error(t, svc.SendWelcomeMessage(ctx, &domain.WelcomeMessageEmailData{Name: "Alice"}))
	})

	t.Run("render failure", func(t *testing.T) {
		mailer := &fakeMailer{}
		svc := NewEmailService(mailer, &fakeRenderer{err: errors.New("bad template")}, discardLogger())
		require.ErrorContains(t, svc.SendWelcomeMessage(ctx, data), "render")
		assert.Empty(t, mailer.sent)
	})

	t.Run("send failure", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{err: errors.New("throttled")}, &fakeRenderer{}, discardLogger())
		require.ErrorContains(t, svc.SendWelcomeMessage(ctx, data), "throttled")
	})
}
