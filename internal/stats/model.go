package stats

// ChannelCount is the number of feedback entries on one channel.
type ChannelCount struct {
	ChannelID   int64  `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Count       int64  `json:"count"`
}

// StatusCount is the number of issues in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DayCount is the number of feedback entries submitted on one day.
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// Overview is the project dashboard aggregate.
type Overview struct {
	TotalFeedbacks     int64          `json:"total_feedbacks"`
	TotalIssues        int64          `json:"total_issues"`
	FeedbacksByChannel []ChannelCount `json:"feedbacks_by_channel"`
	IssuesByStatus     []StatusCount  `json:"issues_by_status"`
}
