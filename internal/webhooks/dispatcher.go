package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the request body.
	SignatureHeader = "X-Feedbackhub-Signature"
	// EventHeader names the event without requiring body parsing.
	EventHeader = "X-Feedbackhub-Event"

	deliveryTimeout = 10 * time.Second
)

// Dispatcher delivers envelopes to subscriber endpoints. A non-2xx response
// is an error so the job queue retries with backoff.
type Dispatcher struct {
	client *http.Client
}

// NewDispatcher constructs a Dispatcher. client may be nil.
func NewDispatcher(client *http.Client) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: deliveryTimeout}
	}
	return &Dispatcher{client: client}
}

// Deliver signs and POSTs the envelope to the webhook endpoint.
func (d *Dispatcher) Deliver(ctx context.Context, wh Webhook, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, env.Event)
	req.Header.Set(SignatureHeader, Sign(wh.Secret, body))

	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		_ = res.Body.Close()
	}()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("webhook %d: endpoint returned %d", wh.ID, res.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 signature subscribers verify against.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
