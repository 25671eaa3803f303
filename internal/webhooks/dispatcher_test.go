package webhooks

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverSignsBody(t *testing.T) {
	var gotBody []byte
	var gotSignature, gotEvent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get(SignatureHeader)
		gotEvent = r.Header.Get(EventHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := Webhook{ID: 1, ProjectID: 1, URL: srv.URL, Secret: "topsecret"}
	env := Envelope{
		Event:      EventFeedbackCreated,
		ProjectID:  1,
		OccurredAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"feedback_id":7}`),
	}

	require.NoError(t, NewDispatcher(nil).Deliver(context.Background(), wh, env))

	assert.Equal(t, EventFeedbackCreated, gotEvent)
	assert.True(t, hmac.Equal([]byte(Sign("topsecret", gotBody)), []byte(gotSignature)))

	var decoded Envelope
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, env.Event, decoded.Event)
	assert.JSONEq(t, `{"feedback_id":7}`, string(decoded.Data))
}

func TestDeliverFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := Webhook{ID: 1, URL: srv.URL, Secret: "topsecret"}
	err := NewDispatcher(nil).Deliver(context.Background(), wh, Envelope{Event: EventIssueCreated})
	require.Error(t, err)
}

func TestServiceValidation(t *testing.T) {
	// Validation runs before any repository call, so a nil repo is safe here.
	svc := NewService(nil)
	ctx := context.Background()

	_, err := svc.CreateWebhook(ctx, 1, "not a url", []string{EventFeedbackCreated})
	require.Error(t, err)

	_, err = svc.CreateWebhook(ctx, 1, "ftp://example.com/hook", []string{EventFeedbackCreated})
	require.Error(t, err)

	_, err = svc.CreateWebhook(ctx, 1, "https://example.com/hook", nil)
	require.Error(t, err)

	_, err = svc.CreateWebhook(ctx, 1, "https://example.com/hook", []string{"weird.event"})
	require.Error(t, err)
}

func TestSubscribed(t *testing.T) {
	wh := Webhook{Events: []string{EventFeedbackCreated, EventIssueStatusChanged}}
	assert.True(t, wh.Subscribed(EventFeedbackCreated))
	assert.False(t, wh.Subscribed(EventIssueCreated))
}
