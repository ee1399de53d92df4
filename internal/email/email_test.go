package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/bottled/internal/bottle"
)

// ─── RENDERING ────────────────────────────────────────────────────────────────

func TestEscapeMessage_AllFiveAndNewlines(t *testing.T) {
	got := EscapeMessage("<script>&\"'\nline two")
	assert.Equal(t, "&lt;script&gt;&amp;&quot;&#039;<br>line two", got)
}

func TestEscapeMessage_CRLF(t *testing.T) {
	assert.Equal(t, "a<br>b", EscapeMessage("a\r\nb"))
}

func TestDeliveryHTML_NoRawMarkupFromUserInput(t *testing.T) {
	html := DeliveryHTML(DeliveryView{
		SenderEmail: "<b>@x.io",
		SentOn:      "Saturday, March 1, 2025",
		Message:     "<script>alert('x')</script>",
		Theme:       bottle.ThemeParchment,
		BottleColor: "#123456",
	})
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<b>")
	assert.Contains(t, html, "&lt;script&gt;alert(&#039;x&#039;)&lt;/script&gt;")
	assert.Contains(t, html, `fill="#123456"`)
	assert.Contains(t, html, "Georgia, serif")
	assert.Contains(t, html, "Sent on:</strong> Saturday, March 1, 2025")
}

func TestDeliveryHTML_Defaults(t *testing.T) {
	html := DeliveryHTML(DeliveryView{Message: "hi", Theme: bottle.ThemeLedger})
	assert.Contains(t, html, "From:</strong> Anonymous")
	assert.Contains(t, html, "'Courier New', monospace")
	assert.Contains(t, html, `fill="#3498db"`)
	assert.NotContains(t, html, "<img")
}

func TestDeliveryHTML_Image(t *testing.T) {
	html := DeliveryHTML(DeliveryView{Message: "hi", ImageURL: "https://cdn.example.com/uploads/1-a.png"})
	assert.Contains(t, html, `<img src="https://cdn.example.com/uploads/1-a.png"`)
}

func TestSealedHTML(t *testing.T) {
	html := SealedHTML("grace@example.com", "Saturday, March 1, 2025")
	assert.Contains(t, html, "Your message to <strong>grace@example.com</strong> will be delivered on:")
	assert.Contains(t, html, "Saturday, March 1, 2025")
	assert.Contains(t, html, "Thank you for using Bottled.")
}

// ─── SENDER ───────────────────────────────────────────────────────────────────

type recordingTransport struct {
	got []Message
	err error
}

func (r *recordingTransport) Send(_ context.Context, m Message) (Receipt, error) {
	r.got = append(r.got, m)
	if r.err != nil {
		return Receipt{}, r.err
	}
	return Receipt{Provider: "stub", MessageID: "id-1"}, nil
}

func TestSender_SendSealed(t *testing.T) {
	tr := &recordingTransport{}
	s := NewSender(tr, "noreply@bottled.to", "Bottled")

	date, err := bottle.ParseDate("2025-03-01")
	require.NoError(t, err)

	_, err = s.SendSealed(context.Background(), SealedParams{
		To:           "ada@example.com",
		Recipient:    "grace@example.com",
		DeliveryDate: date,
	})
	require.NoError(t, err)
	require.Len(t, tr.got, 1)

	m := tr.got[0]
	assert.Equal(t, "Bottled <noreply@bottled.to>", m.From)
	assert.Equal(t, "ada@example.com", m.To)
	assert.Equal(t, SubjectSealed, m.Subject)
	assert.Contains(t, m.HTML, "Saturday, March 1, 2025")
}

func TestSender_SendBottle(t *testing.T) {
	tr := &recordingTransport{}
	s := NewSender(tr, "noreply@bottled.to", "Bottled")

	_, err := s.SendBottle(context.Background(), BottleParams{
		To:          "grace@example.com",
		SenderEmail: "ada@example.com",
		Message:     "line one\nline two",
		SentAt:      time.Date(2025, time.February, 10, 22, 0, 0, 0, time.UTC),
		Theme:       bottle.ThemeLedger,
		BottleColor: "#2ecc71",
	})
	require.NoError(t, err)
	require.Len(t, tr.got, 1)
	assert.Equal(t, SubjectDelivery, tr.got[0].Subject)
	assert.Contains(t, tr.got[0].HTML, "Monday, February 10, 2025")
	assert.Contains(t, tr.got[0].HTML, "line one<br>line two")
}

// ─── RESEND ───────────────────────────────────────────────────────────────────

func TestNewResendClient_RequiresKey(t *testing.T) {
	_, err := NewResendClient("")
	assert.ErrorIs(t, err, bottle.ErrConfiguration)
}

func TestResend_Success(t *testing.T) {
	var gotAuth string
	var gotBody resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"re_123"}`)
	}))
	defer srv.Close()

	c, err := NewResendClient("key_abc", WithEndpoint(srv.URL))
	require.NoError(t, err)

	r, err := c.Send(context.Background(), Message{From: "Bottled <noreply@bottled.to>", To: "a@b.co", Subject: "s", HTML: "<p>x</p>"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer key_abc", gotAuth)
	assert.Equal(t, []string{"a@b.co"}, gotBody.To)
	assert.Equal(t, "re_123", r.MessageID)
	assert.JSONEq(t, `{"id":"re_123"}`, string(r.Raw))
}

func TestResend_ErrorStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`)
	}))
	defer srv.Close()

	c, err := NewResendClient("key", WithEndpoint(srv.URL))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), Message{To: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, bottle.ErrTransport)
	assert.Contains(t, err.Error(), "Invalid to field")
}

func TestResend_NetworkErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewResendClient("key", WithEndpoint(url))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), Message{To: "x"})
	assert.ErrorIs(t, err, bottle.ErrTransport)
}

// ─── SMTP ─────────────────────────────────────────────────────────────────────

func TestSMTP_SendBuildsMessage(t *testing.T) {
	tr, err := NewSMTPClient("mail.example.com:587", "user", "pass")
	require.NoError(t, err)
	c := tr.(*smtpClient)

	var gotFrom string
	var gotTo []string
	var gotRaw []byte
	var gotAuth sasl.Client
	c.send = func(addr string, a sasl.Client, from string, to []string, r *bytes.Reader) error {
		gotFrom, gotTo, gotAuth = from, to, a
		gotRaw, _ = io.ReadAll(r)
		return nil
	}

	rcpt, err := c.Send(context.Background(), Message{
		From:    "Bottled <noreply@bottled.to>",
		To:      "grace@example.com",
		Subject: SubjectDelivery,
		HTML:    "<p>one\ntwo</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "noreply@bottled.to", gotFrom)
	assert.Equal(t, []string{"grace@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "smtp", rcpt.Provider)
	assert.True(t, strings.HasSuffix(rcpt.MessageID, "@mail.example.com>"))

	raw := string(gotRaw)
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.Contains(t, raw, "Content-Type: text/html")
	assert.Contains(t, raw, "<p>one\r\ntwo</p>")
}

func TestSMTP_FailureIsTransportError(t *testing.T) {
	tr, err := NewSMTPClient("mail.example.com:25", "", "")
	require.NoError(t, err)
	c := tr.(*smtpClient)
	c.send = func(string, sasl.Client, string, []string, *bytes.Reader) error {
		return errors.New("554 relay denied")
	}

	_, err = c.Send(context.Background(), Message{From: "noreply@bottled.to", To: "a@b.co"})
	assert.ErrorIs(t, err, bottle.ErrTransport)
}

func TestNewSMTPClient_RequiresAddr(t *testing.T) {
	_, err := NewSMTPClient("", "", "")
	assert.ErrorIs(t, err, bottle.ErrConfiguration)
}

// ─── FALLBACK ─────────────────────────────────────────────────────────────────

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestFallback_UsesSecondaryOnPrimaryError(t *testing.T) {
	primary := &recordingTransport{err: errors.New("boom")}
	secondary := &recordingTransport{}
	tr, err := NewFallback(primary, secondary, discard())
	require.NoError(t, err)

	r, err := tr.Send(context.Background(), Message{To: "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", r.MessageID)
	assert.Len(t, primary.got, 1)
	assert.Len(t, secondary.got, 1)
}

func TestFallback_PrimarySuccessSkipsSecondary(t *testing.T) {
	primary := &recordingTransport{}
	secondary := &recordingTransport{}
	tr, err := NewFallback(primary, secondary, discard())
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), Message{})
	require.NoError(t, err)
	assert.Empty(t, secondary.got)
}

func TestFallback_BothFail(t *testing.T) {
	tr, err := NewFallback(
		&recordingTransport{err: errors.New("a")},
		&recordingTransport{err: bottle.ErrTransport},
		discard(),
	)
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, bottle.ErrTransport)
}

func TestFallback_NoneConfigured(t *testing.T) {
	_, err := NewFallback(nil, nil, discard())
	assert.ErrorIs(t, err, bottle.ErrConfiguration)
}
