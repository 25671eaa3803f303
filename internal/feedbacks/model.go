package feedbacks

import "time"

// Feedback is one submitted entry on a channel. Custom field values are kept
// as a JSONB document validated against the channel schema at intake time;
// later schema edits do not rewrite stored entries.
type Feedback struct {
	ID             int64          `json:"id"`
	ProjectID      int64          `json:"project_id"`
	ChannelID      int64          `json:"channel_id"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Fields         map[string]any `json:"fields,omitempty"`
	SubmitterEmail string         `json:"submitter_email,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ListFilter narrows feedback listings.
type ListFilter struct {
	ChannelID int64
	Query     string
	Page      int
	PerPage   int
}
