package domain

import "context"

// MailMessage is a fully composed message ready for the transport.
// When HTML is true, Body is sent as HTML content, otherwise as plain text.
type MailMessage struct {
	Subject string
	Body    string
	HTML    bool
	To      []string
}

// Mailer defines the contract for sending emails (infrastructure port).
// Connection lifecycle is the implementation's responsibility, scoped per call.
type Mailer interface {
	Send(ctx context.Context, msg *MailMessage) error
}
