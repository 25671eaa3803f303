package audit

import (
	"context"
	"strconv"
	"time"

	"log/slog"

	"github.com/feedbackhub/feedbackhub/internal/rbac"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const sinkWriteTimeout = 2 * time.Second

// DecisionSink persists denied authorization decisions into the audit trail.
// Allowed decisions are not recorded; they would dwarf every other entry.
// Writes happen on a detached context so a slow database never delays or
// alters the request that triggered the check.
type DecisionSink struct {
	logger *slog.Logger
	audit  *shared.AuditLogger
}

// NewDecisionSink returns a sink backed by the shared audit logger.
func NewDecisionSink(logger *slog.Logger, audit *shared.AuditLogger) *DecisionSink {
	return &DecisionSink{logger: logger, audit: audit}
}

// RecordDecision implements rbac.AuditSink.
func (s *DecisionSink) RecordDecision(ctx context.Context, userID int64, scope shared.Scope, required []string, decision rbac.Decision) {
	if s == nil || s.audit == nil || decision == rbac.DecisionAllow {
		return
	}
	entry := shared.AuditLog{
		ActorID:  userID,
		Action:   "authz.deny",
		Entity:   "project",
		EntityID: strconv.FormatInt(scope.ProjectID, 10),
		Meta: map[string]any{
			"decision": string(decision),
			"required": required,
		},
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		writeCtx, cancel := context.WithTimeout(detached, sinkWriteTimeout)
		defer cancel()
		if err := s.audit.Record(writeCtx, entry); err != nil && s.logger != nil {
			s.logger.Warn("audit decision write",
				slog.Any("error", err),
				slog.Int64("user_id", userID),
				slog.String("decision", string(decision)))
		}
	}()
}
