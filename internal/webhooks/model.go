package webhooks

import (
	"encoding/json"
	"time"
)

// Event names published to subscribers.
const (
	EventFeedbackCreated    = "feedback.created"
	EventIssueCreated       = "issue.created"
	EventIssueStatusChanged = "issue.status_changed"
)

// KnownEvents lists every publishable event in a stable order.
func KnownEvents() []string {
	return []string{EventFeedbackCreated, EventIssueCreated, EventIssueStatusChanged}
}

// Webhook is one subscriber endpoint for a project.
type Webhook struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	URL       string    `json:"url"`
	Secret    string    `json:"secret"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscribed reports whether the hook wants the event.
func (w Webhook) Subscribed(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Envelope is the delivery body POSTed to subscribers.
type Envelope struct {
	Event      string          `json:"event"`
	ProjectID  int64           `json:"project_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}
