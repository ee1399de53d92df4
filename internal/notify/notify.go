// Package notify sends the "your bottle has been sealed" confirmation email.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nyashahama/bottled/internal/bottle"
	"github.com/nyashahama/bottled/internal/email"
	"github.com/nyashahama/bottled/internal/metrics"
)

// Request is the sealing detail the composer submits. Theme is optional and
// only affects styling elsewhere; the confirmation email ignores it.
type Request struct {
	SenderEmail    string `json:"senderEmail"`
	RecipientEmail string `json:"recipientEmail"`
	DeliveryDate   string `json:"deliveryDate"`
	BottleColor    string `json:"bottleColor"`
	Theme          string `json:"theme,omitempty"`
}

// ErrMissingFields is returned when one of the required fields is empty. It
// wraps bottle.ErrValidation.
var ErrMissingFields = fmt.Errorf("%w: missing required fields", bottle.ErrValidation)

// Validate checks that the four required fields are present and that the
// date is a calendar date. It returns the parsed date.
func (r Request) Validate() (time.Time, error) {
	required := []struct{ name, value string }{
		{"senderEmail", r.SenderEmail},
		{"recipientEmail", r.RecipientEmail},
		{"deliveryDate", r.DeliveryDate},
		{"bottleColor", r.BottleColor},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return bottle.ParseDate(strings.TrimSpace(r.DeliveryDate))
}

// Notifier renders and sends the confirmation email.
type Notifier struct {
	sender  email.Sender // nil when no transport is configured
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New returns a Notifier. sender may be nil (an untyped nil, not a nil
// pointer in an interface); Seal then fails with bottle.ErrConfiguration after
// validating the request.
func New(sender email.Sender, logger *slog.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{sender: sender, logger: logger, metrics: m}
}

// Seal validates r and sends exactly one email to the sender. No retries.
//
// Errors:
//   - bottle.ErrValidation    a required field is missing or the date is malformed
//   - bottle.ErrConfiguration no email transport is configured
//   - bottle.ErrTransport     the provider rejected or could not take the send
func (n *Notifier) Seal(ctx context.Context, r Request) error {
	date, err := r.Validate()
	if err != nil {
		return err
	}
	if n.sender == nil {
		return fmt.Errorf("%w: email service not configured", bottle.ErrConfiguration)
	}

	receipt, err := n.sender.SendSealed(ctx, email.SealedParams{
		To:           strings.TrimSpace(r.SenderEmail),
		Recipient:    strings.TrimSpace(r.RecipientEmail),
		DeliveryDate: date,
	})
	n.metrics.EmailSent(metrics.KindSealed, err)
	if err != nil {
		n.logger.Error("notify: send confirmation failed",
			"error", err,
			"sender", r.SenderEmail,
		)
		return fmt.Errorf("notify: %w", err)
	}

	n.logger.Info("notify: confirmation sent",
		"sender", r.SenderEmail,
		"provider", receipt.Provider,
		"message_id", receipt.MessageID,
	)
	return nil
}
