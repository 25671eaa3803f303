package projects

import "time"

// Project is the tenant boundary: channels, feedback, issues, roles and
// assignments all hang off a project.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
