// Package email defines the interfaces for transactional email delivery and
// provides a Resend-backed transport, an SMTP transport, and a fallback that
// joins the two.
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nyashahama/bottled/internal/bottle"
)

// Subjects of the two emails the service sends.
const (
	SubjectSealed   = "Your bottle has been sealed!"
	SubjectDelivery = "A message in a bottle has arrived 🍾"
)

// Message is a fully rendered email ready for a transport.
type Message struct {
	From    string // "Name <addr>"
	To      string
	Subject string
	HTML    string
}

// Receipt describes an accepted send. Both fields may be empty for transports
// that return nothing (SMTP).
type Receipt struct {
	Provider  string          // "resend" or "smtp"
	MessageID string          // provider-assigned id
	Raw       json.RawMessage // raw provider response body
}

// Transport delivers one rendered message. Implementations must be safe to
// call concurrently. Every failure wraps bottle.ErrTransport.
type Transport interface {
	Send(ctx context.Context, m Message) (Receipt, error)
}

// SealedParams holds the data for the "your bottle has been sealed" email.
type SealedParams struct {
	To           string    // the sender of the bottle
	Recipient    string    // shown in the body
	DeliveryDate time.Time // calendar date, UTC midnight
}

// BottleParams holds the data for the delivery email sent to the recipient.
type BottleParams struct {
	To          string
	SenderEmail string // may be empty; rendered as "Anonymous"
	Message     string
	SentAt      time.Time
	Theme       string
	BottleColor string
	ImageURL    string // optional
}

// Sender is the interface the notifier and the delivery sweep use to send
// email. Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// SendSealed sends the confirmation email to the bottle's author.
	SendSealed(ctx context.Context, p SealedParams) (Receipt, error)

	// SendBottle sends the bottle itself to its recipient.
	SendBottle(ctx context.Context, p BottleParams) (Receipt, error)
}

// mailer renders the Bottled templates and hands them to a Transport.
type mailer struct {
	transport Transport
	from      string
}

// NewSender returns a Sender that renders messages and delivers them through
// t, using "fromName <fromAddr>" as the From header.
func NewSender(t Transport, fromAddr, fromName string) Sender {
	return &mailer{
		transport: t,
		from:      fmt.Sprintf("%s <%s>", fromName, fromAddr),
	}
}

func (m *mailer) SendSealed(ctx context.Context, p SealedParams) (Receipt, error) {
	return m.transport.Send(ctx, Message{
		From:    m.from,
		To:      p.To,
		Subject: SubjectSealed,
		HTML:    SealedHTML(p.Recipient, bottle.FormatLongDate(p.DeliveryDate)),
	})
}

func (m *mailer) SendBottle(ctx context.Context, p BottleParams) (Receipt, error) {
	return m.transport.Send(ctx, Message{
		From:    m.from,
		To:      p.To,
		Subject: SubjectDelivery,
		HTML: DeliveryHTML(DeliveryView{
			SenderEmail: p.SenderEmail,
			SentOn:      bottle.FormatLongDate(p.SentAt.UTC()),
			Message:     p.Message,
			Theme:       p.Theme,
			BottleColor: p.BottleColor,
			ImageURL:    p.ImageURL,
		}),
	})
}
