package email

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/nyashahama/bottled/internal/bottle"
)

// sendMailFunc matches smtp.SendMail; swapped in tests.
type sendMailFunc func(addr string, a sasl.Client, from string, to []string, r *bytes.Reader) error

// smtpClient is the Transport backed by a plain SMTP relay. STARTTLS is used
// when the server offers it.
type smtpClient struct {
	addr     string // host:port
	username string
	password string
	send     sendMailFunc
}

// NewSMTPClient returns a Transport that submits mail to the relay at addr.
// Credentials are optional; when username is set PLAIN auth is used.
func NewSMTPClient(addr, username, password string) (Transport, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: SMTP_ADDR is not set", bottle.ErrConfiguration)
	}
	return &smtpClient{
		addr:     addr,
		username: username,
		password: password,
		send: func(addr string, a sasl.Client, from string, to []string, r *bytes.Reader) error {
			return smtp.SendMail(addr, a, from, to, r)
		},
	}, nil
}

func (c *smtpClient) Send(ctx context.Context, m Message) (Receipt, error) {
	from, err := mail.ParseAddress(m.From)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: smtp from address %q: %v", bottle.ErrConfiguration, m.From, err)
	}

	host := c.addr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	msgID := fmt.Sprintf("<%s@%s>", uuid.NewString(), host)

	raw := buildMIME(m, msgID, time.Now())

	var auth sasl.Client
	if c.username != "" {
		auth = sasl.NewPlainClient("", c.username, c.password)
	}

	// smtp.SendMail takes no context; run it aside so a cancelled sweep does
	// not wait on a slow relay.
	done := make(chan error, 1)
	go func() {
		done <- c.send(c.addr, auth, from.Address, []string{m.To}, bytes.NewReader(raw))
	}()

	select {
	case <-ctx.Done():
		return Receipt{}, fmt.Errorf("%w: smtp send: %v", bottle.ErrTransport, ctx.Err())
	case err := <-done:
		if err != nil {
			return Receipt{}, fmt.Errorf("%w: smtp send: %v", bottle.ErrTransport, err)
		}
	}
	return Receipt{Provider: "smtp", MessageID: msgID}, nil
}

// buildMIME renders a single-part HTML message with CRLF line endings.
func buildMIME(m Message, msgID string, now time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	header("From", m.From)
	header("To", m.To)
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", msgID)
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.HTML, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}
