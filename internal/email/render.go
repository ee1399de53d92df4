package email

import (
	"fmt"
	"strings"

	"github.com/nyashahama/bottled/internal/bottle"
)

// messageEscaper escapes the five HTML-significant characters and turns
// newlines into <br>. It is a single pass, so the & of a produced entity is
// never escaped again.
var messageEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
	"\r\n", "<br>",
	"\n", "<br>",
)

// attrEscaper is messageEscaper without the newline rule, for attribute values
// and single-line fields.
var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeMessage makes user text safe to embed in an HTML body.
func EscapeMessage(s string) string {
	return messageEscaper.Replace(s)
}

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────

// SealedHTML renders the confirmation email. longDate is the already formatted
// delivery date ("Saturday, March 1, 2025").
func SealedHTML(recipient, longDate string) string {
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 500px; margin: 0 auto; padding: 20px;">
  <h1 style="text-align: center; color: #2c3e50;">Your bottle has been sealed!</h1>
  <p style="text-align: center; color: #555;">
    Your message to <strong>%s</strong> will be delivered on:
  </p>
  <p style="text-align: center; color: #3498db; font-size: 18px; font-weight: bold;">
    %s
  </p>
  <p style="text-align: center; color: #888; font-size: 14px;">
    Thank you for using Bottled.
  </p>
</div>`, escapeAttr(recipient), longDate)
}

// DeliveryView is the data the delivery template needs.
type DeliveryView struct {
	SenderEmail string
	SentOn      string // long-form date
	Message     string // raw, escaped by the template
	Theme       string
	BottleColor string
	ImageURL    string
}

const (
	parchmentStyle = "font-family: Georgia, serif; background-color: #f5e7c9; padding: 20px; border-radius: 4px;"
	ledgerStyle    = "font-family: 'Courier New', monospace; background-color: #fff9e6; padding: 20px; border-radius: 4px;"
)

// messageStyle picks the message block style. Anything that is not parchment
// gets the ledger look.
func messageStyle(theme string) string {
	if theme == bottle.ThemeParchment {
		return parchmentStyle
	}
	return ledgerStyle
}

// DeliveryHTML renders the email that carries the bottle to its recipient.
func DeliveryHTML(v DeliveryView) string {
	from := v.SenderEmail
	if from == "" {
		from = "Anonymous"
	}
	color := v.BottleColor
	if color == "" {
		color = bottle.DefaultColor
	}

	var image string
	if v.ImageURL != "" {
		image = fmt.Sprintf(`
  <div style="text-align: center; margin-bottom: 20px;">
    <img src="%s" alt="Attached image" style="max-width: 100%%; border-radius: 4px;">
  </div>`, escapeAttr(v.ImageURL))
	}

	return fmt.Sprintf(`<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 500px; margin: 0 auto; padding: 20px; background-color: #ffffff; border: 1px solid #e0e0e0; border-radius: 8px;">
  <div style="text-align: center; margin-bottom: 20px;">
    <svg width="40" height="40" viewBox="0 0 64 64">
      <path fill="%s" d="M26 6h12v6c0 1.2.5 2.3 1.3 3.1l3.2 3.2c1.7 1.7 2.7 4 2.7 6.4V52c0 3.3-2.7 6-6 6H25c-3.3 0-6-2.7-6-6V28.7c0-2.4 1-4.7 2.7-6.4l3.2-3.2c.8-.8 1.3-1.9 1.3-3.1V6z"/>
    </svg>
  </div>
  <h1 style="text-align: center; color: #2c3e50; margin-bottom: 20px;">A message in a bottle has arrived</h1>
  <p style="color: #555; margin-bottom: 5px;"><strong>From:</strong> %s</p>
  <p style="color: #888; margin-bottom: 20px;"><strong>Sent on:</strong> %s</p>
  <hr style="border: none; border-top: 1px solid #e0e0e0; margin: 20px 0;">%s
  <div style="%s">
    %s
  </div>
  <hr style="border: none; border-top: 1px solid #e0e0e0; margin: 20px 0;">
  <p style="text-align: center; color: #888; font-size: 12px;">
    This message was sent using Bottled · <a href="https://bottled.to" style="color: #3498db;">bottled.to</a>
  </p>
</div>`,
		escapeAttr(color),
		escapeAttr(from),
		v.SentOn,
		image,
		messageStyle(v.Theme),
		EscapeMessage(v.Message),
	)
}
