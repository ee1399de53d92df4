package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nyashahama/bottled/internal/bottle"
)

// fallbackTransport wraps two Transports. It calls the primary first; if that
// returns an error it logs the failure and tries the secondary. Resend is the
// primary with the SMTP relay as the safety net; the choice is made in main.go.
type fallbackTransport struct {
	primary   Transport
	secondary Transport
	logger    *slog.Logger
}

// NewFallback returns a Transport that calls primary and, on failure, falls
// back to secondary. Either argument may be nil: if primary is nil it goes
// straight to secondary; if secondary is nil and primary fails, the primary
// error is returned. Both nil is a configuration error.
func NewFallback(primary, secondary Transport, logger *slog.Logger) (Transport, error) {
	switch {
	case primary == nil && secondary == nil:
		return nil, fmt.Errorf("%w: no email transport configured", bottle.ErrConfiguration)
	case secondary == nil:
		return primary, nil
	case primary == nil:
		return secondary, nil
	}
	return &fallbackTransport{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}, nil
}

func (f *fallbackTransport) Send(ctx context.Context, m Message) (Receipt, error) {
	r, err := f.primary.Send(ctx, m)
	if err == nil {
		return r, nil
	}
	if ctx.Err() != nil {
		return Receipt{}, err
	}
	f.logger.Warn("email: primary transport failed, trying secondary",
		"error", err,
		"subject", m.Subject,
	)
	r, err2 := f.secondary.Send(ctx, m)
	if err2 != nil {
		return Receipt{}, fmt.Errorf("email: primary: %v; secondary: %w", err, err2)
	}
	return r, nil
}
