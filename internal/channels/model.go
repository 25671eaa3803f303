package channels

import "time"

// FieldType enumerates the supported custom field kinds.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldKeyword FieldType = "keyword"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldSelect  FieldType = "select"
)

// FieldDef describes one custom field a channel collects with each feedback
// entry. Definitions are stored as a JSONB document on the channel row.
type FieldDef struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// Channel is an intake surface for one project: a web widget, an email
// address, an import, each with its own field schema.
type Channel struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Fields      []FieldDef `json:"fields"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func validFieldType(t FieldType) bool {
	switch t {
	case FieldText, FieldKeyword, FieldNumber, FieldDate, FieldSelect:
		return true
	}
	return false
}
