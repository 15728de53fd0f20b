// Package email sends transactional mail for completed checkouts.
package email

import "context"

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
}

// NoopProvider is used when no email credentials are configured; sends are
// silently skipped.
type NoopProvider struct{}

func (NoopProvider) SendEmail(context.Context, *Email) error {
	return nil
}
