package shared

// Feedback collection permissions.
const (
	PermChannelView   = "channel.view"
	PermChannelCreate = "channel.create"
	PermChannelEdit   = "channel.edit"
	PermChannelDelete = "channel.delete"

	PermFeedbackView   = "feedback.view"
	PermFeedbackEdit   = "feedback.edit"
	PermFeedbackExport = "feedback.export"

	PermIssueView = "issue.view"
	PermIssueEdit = "issue.edit"

	PermStatsView = "stats.view"

	PermWebhookView = "webhook.view"
	PermWebhookEdit = "webhook.edit"

	PermAPIKeyView = "apikey.view"
	PermAPIKeyEdit = "apikey.edit"
)

// FeedbackScopes lists all permissions related to feedback collection and triage.
func FeedbackScopes() []string {
	return []string{
		PermChannelView,
		PermChannelCreate,
		PermChannelEdit,
		PermChannelDelete,
		PermFeedbackView,
		PermFeedbackEdit,
		PermFeedbackExport,
		PermIssueView,
		PermIssueEdit,
		PermStatsView,
		PermWebhookView,
		PermWebhookEdit,
		PermAPIKeyView,
		PermAPIKeyEdit,
	}
}
