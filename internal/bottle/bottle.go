// Package bottle holds the dependency-free domain rules for bottles: the
// calendar-date helpers used for due-ness, the draft validation the composer
// form applies, and the error kinds shared across packages.
package bottle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Themes and statuses as stored in the bottles table.
const (
	ThemeParchment = "parchment"
	ThemeLedger    = "ledger"

	StatusPending   = "pending"
	StatusSending   = "sending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"

	DefaultColor = "#3498db"

	// MaxMessageLength bounds the message body in characters.
	MaxMessageLength = 10000
)

// DateLayout is the ISO calendar form used on the wire and in queries.
const DateLayout = "2006-01-02"

// longDateLayout renders e.g. "Saturday, March 1, 2025".
const longDateLayout = "Monday, January 2, 2006"

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// The composer form only checks that an address looks like one; the
	// built-in "email" rule rejects addresses the form accepted.
	_ = v.RegisterValidation("emailish", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	return v
}

// Draft is a bottle as submitted by the composer, before it is stored.
type Draft struct {
	SenderEmail    string `validate:"required,emailish,max=254"`
	RecipientEmail string `validate:"required,emailish,max=254"`
	Message        string `validate:"required,max=10000"`
	DeliveryDate   string `validate:"required"`
	Theme          string `validate:"oneof=parchment ledger"`
	BottleColor    string `validate:"hexcolor"`
	ImageURL       string `validate:"omitempty,http_url"`
}

// Normalize trims whitespace from the address fields and fills defaults for
// the cosmetic fields. The message body is kept as written.
func (d *Draft) Normalize() {
	d.SenderEmail = strings.TrimSpace(d.SenderEmail)
	d.RecipientEmail = strings.TrimSpace(d.RecipientEmail)
	d.DeliveryDate = strings.TrimSpace(d.DeliveryDate)
	d.ImageURL = strings.TrimSpace(d.ImageURL)
	if d.Theme == "" {
		d.Theme = ThemeParchment
	}
	if d.BottleColor == "" {
		d.BottleColor = DefaultColor
	}
}

// Validate checks d against the composer rules and returns the parsed
// delivery date. today is the current calendar date; the delivery date must
// be strictly after it.
func (d Draft) Validate(today time.Time) (time.Time, error) {
	if strings.TrimSpace(d.Message) == "" {
		return time.Time{}, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if err := validate.Struct(d); err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrValidation, describe(err))
	}

	date, err := ParseDate(d.DeliveryDate)
	if err != nil {
		return time.Time{}, err
	}
	if !date.After(CalendarDate(today)) {
		return time.Time{}, fmt.Errorf("%w: delivery_date must be tomorrow or later", ErrValidation)
	}
	return date, nil
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "emailish":
		return field + " must be a valid email address"
	case "max":
		return field + " is too long"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "hexcolor":
		return field + " must be a hex color"
	case "http_url":
		return field + " must be an http(s) URL"
	default:
		return field + " is invalid"
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ─── CALENDAR DATES ──────────────────────────────────────────────────────────

// ParseDate parses an ISO calendar date ("2025-03-01") as midnight UTC, so
// formatting it back never shifts the day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: delivery_date must be YYYY-MM-DD", ErrValidation)
	}
	return t, nil
}

// CalendarDate drops the time of day from t, keeping t's own calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar date.
func Today(now time.Time) time.Time {
	return CalendarDate(now.UTC())
}

// FormatLongDate renders t in the long weekday/month form used in emails.
func FormatLongDate(t time.Time) string {
	return t.Format(longDateLayout)
}

// IsDue reports whether a bottle with the given delivery date is due on today.
// Only calendar dates are compared.
func IsDue(deliveryDate, today time.Time) bool {
	return !CalendarDate(deliveryDate).After(CalendarDate(today))
}
