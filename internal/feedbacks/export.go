package feedbacks

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/feedbackhub/feedbackhub/internal/channels"
)

// WriteFeedbackCSV serialises entries to CSV. Fixed columns come first, then
// one column per custom field in schema order.
func WriteFeedbackCSV(w io.Writer, fields []channels.FieldDef, stream func(fn func(Feedback) error) error) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"ID", "Channel", "Title", "Body", "Submitter", "Created At"}
	for _, f := range fields {
		header = append(header, f.Label)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	err := stream(func(fb Feedback) error {
		row := []string{
			fmt.Sprintf("%d", fb.ID),
			fmt.Sprintf("%d", fb.ChannelID),
			fb.Title,
			fb.Body,
			fb.SubmitterEmail,
			fb.CreatedAt.UTC().Format(time.RFC3339),
		}
		for _, f := range fields {
			row = append(row, formatFieldValue(fb.Fields[f.Key]))
		}
		return writer.Write(row)
	})
	if err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func formatFieldValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
