package observability

import (
	"context"

	"github.com/feedbackhub/feedbackhub/internal/rbac"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// DecisionCounter counts guard outcomes. It implements rbac.AuditSink and is
// usually combined with the persistent audit sink via CombineSinks.
type DecisionCounter struct {
	metrics *Metrics
}

// NewDecisionCounter returns a counter backed by the metrics registry.
func NewDecisionCounter(metrics *Metrics) *DecisionCounter {
	return &DecisionCounter{metrics: metrics}
}

// RecordDecision implements rbac.AuditSink.
func (c *DecisionCounter) RecordDecision(_ context.Context, _ int64, _ shared.Scope, _ []string, decision rbac.Decision) {
	if c == nil {
		return
	}
	c.metrics.AddAuthzDecision(string(decision))
}

type multiSink []rbac.AuditSink

func (m multiSink) RecordDecision(ctx context.Context, userID int64, scope shared.Scope, required []string, decision rbac.Decision) {
	for _, sink := range m {
		if sink != nil {
			sink.RecordDecision(ctx, userID, scope, required, decision)
		}
	}
}

// CombineSinks fans one guard decision out to several sinks.
func CombineSinks(sinks ...rbac.AuditSink) rbac.AuditSink {
	return multiSink(sinks)
}
