package port

import "context"

// Mail is an outbound message. The identity core treats delivery as
// best-effort: a failed send never unwinds a committed registration.
type Mail struct {
	Subject string
	Body    string
	To      []string
}

// Mailer delivers mail through an external transport.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}
