package rbac

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// AssignmentSource reads the effective permission set for a user within a
// scope. It is the guard's single read of role-assignment state; the backing
// store owns its own transaction discipline.
type AssignmentSource interface {
	EffectivePermissions(ctx context.Context, userID, projectID int64) ([]string, error)
}

// AuditSink receives guard decisions. Implementations must not block; a sink
// failure never alters the decision.
type AuditSink interface {
	RecordDecision(ctx context.Context, userID int64, scope shared.Scope, required []string, decision Decision)
}

// Guard is the authorization decision procedure. It is a pure function of
// (principal, scope, required permissions, current assignment state): the
// permission set is read once per evaluation and never cached across
// requests, so a revoke is reflected on the next request.
type Guard struct {
	Source AssignmentSource
	Sink   AuditSink
	Logger *slog.Logger
}

// Authorize decides whether the user may perform an operation requiring any
// one of the given permissions (disjunctive match). A zero userID denotes an
// anonymous request. With no required permissions the check degrades to
// "authenticated only". Holding the manage.all wildcard in the scope allows
// unconditionally. The guard fails closed: a source error denies.
func (g *Guard) Authorize(ctx context.Context, userID int64, scope shared.Scope, required ...string) error {
	return g.evaluate(ctx, userID, scope, required, false)
}

// AuthorizeAll is the explicit conjunctive variant: the user must hold every
// required permission. Disjunctive Authorize is the default everywhere else.
func (g *Guard) AuthorizeAll(ctx context.Context, userID int64, scope shared.Scope, required ...string) error {
	return g.evaluate(ctx, userID, scope, required, true)
}

func (g *Guard) evaluate(ctx context.Context, userID int64, scope shared.Scope, required []string, all bool) error {
	normalized := normalizePermissions(required)

	if userID == 0 {
		g.emit(ctx, userID, scope, normalized, DecisionUnauthenticated)
		return shared.ErrUnauthenticated
	}
	if len(normalized) == 0 {
		g.emit(ctx, userID, scope, normalized, DecisionAllow)
		return nil
	}

	granted, err := g.Source.EffectivePermissions(ctx, userID, scope.ProjectID)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Error("rbac effective permissions", slog.Any("error", err), slog.Int64("user_id", userID), slog.Int64("project_id", scope.ProjectID))
		}
		g.emit(ctx, userID, scope, normalized, DecisionError)
		return fmt.Errorf("rbac: resolve permissions: %w", err)
	}

	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	if _, ok := set[shared.PermManageAll]; ok {
		g.emit(ctx, userID, scope, normalized, DecisionAllow)
		return nil
	}

	matched := 0
	for _, p := range normalized {
		if _, ok := set[p]; ok {
			matched++
		}
	}
	allowed := matched > 0
	if all {
		allowed = matched == len(normalized)
	}
	if allowed {
		g.emit(ctx, userID, scope, normalized, DecisionAllow)
		return nil
	}
	g.emit(ctx, userID, scope, normalized, DecisionForbidden)
	return shared.ErrForbidden
}

func (g *Guard) emit(ctx context.Context, userID int64, scope shared.Scope, required []string, decision Decision) {
	if g.Sink == nil {
		return
	}
	g.Sink.RecordDecision(ctx, userID, scope, required, decision)
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := unique[p]; ok {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
