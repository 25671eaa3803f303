package apikeys

import "time"

// APIKey authorizes public feedback submission into one channel. The key
// itself is an opaque UUID; revocation is a soft delete so old submissions
// stay attributable.
type APIKey struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"project_id"`
	ChannelID int64      `json:"channel_id"`
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the key still authorizes submissions.
func (k APIKey) Active() bool {
	return k.RevokedAt == nil
}
