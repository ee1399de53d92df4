package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nyashahama/bottled/internal/bottle"
)

// DefaultResendURL is the Resend send endpoint.
const DefaultResendURL = "https://api.resend.com/emails"

// resendClient is the Transport backed by the Resend API.
type resendClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// ResendOption customises the Resend transport.
type ResendOption func(*resendClient)

// WithEndpoint points the client at a different URL (tests use httptest).
func WithEndpoint(url string) ResendOption {
	return func(c *resendClient) { c.endpoint = url }
}

// WithHTTPClient replaces the default 15s-timeout HTTP client.
func WithHTTPClient(hc *http.Client) ResendOption {
	return func(c *resendClient) { c.httpClient = hc }
}

// NewResendClient returns a Transport that delivers email via Resend.
// An empty apiKey is a configuration error.
func NewResendClient(apiKey string, opts ...ResendOption) (Transport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: RESEND_API_KEY is not set", bottle.ErrConfiguration)
	}
	c := &resendClient{
		apiKey:   apiKey,
		endpoint: DefaultResendURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`

	// Error responses are flat: {"statusCode":422,"name":"...","message":"..."}
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) Send(ctx context.Context, m Message) (Receipt, error) {
	bodyBytes, err := json.Marshal(resendRequest{
		From:    m.From,
		To:      []string{m.To},
		Subject: m.Subject,
		HTML:    m.HTML,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return Receipt{}, fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: resend request: %v", bottle.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: resend read response: %v", bottle.ErrTransport, err)
	}

	var parsed resendResponse
	_ = json.Unmarshal(respBytes, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Message != "" {
			return Receipt{}, fmt.Errorf("%w: resend status %d: %s: %s",
				bottle.ErrTransport, resp.StatusCode, parsed.Name, parsed.Message)
		}
		return Receipt{}, fmt.Errorf("%w: resend status %d: %.200s",
			bottle.ErrTransport, resp.StatusCode, string(respBytes))
	}

	r := Receipt{Provider: "resend", MessageID: parsed.ID}
	if json.Valid(respBytes) {
		r.Raw = json.RawMessage(respBytes)
	}
	return r, nil
}
