package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

type fakeSource struct {
	// perms maps (userID, projectID) to granted permissions.
	perms map[[2]int64][]string
	err   error
	calls int
}

func (f *fakeSource) EffectivePermissions(ctx context.Context, userID, projectID int64) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.perms[[2]int64{userID, projectID}], nil
}

type recordingSink struct {
	mu        sync.Mutex
	decisions []Decision
}

func (s *recordingSink) RecordDecision(ctx context.Context, userID int64, scope shared.Scope, required []string, decision Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, decision)
}

func TestGuardAuthorize(t *testing.T) {
	source := &fakeSource{perms: map[[2]int64][]string{
		{1, 10}: {"feedback.view", "issue.edit"},
		{2, 10}: {shared.PermManageAll},
		{3, 10}: {},
	}}
	guard := &Guard{Source: source}
	ctx := context.Background()
	scope := shared.Scope{ProjectID: 10}

	tests := []struct {
		name     string
		userID   int64
		scope    shared.Scope
		required []string
		wantErr  error
	}{
		{"anonymous denied", 0, scope, []string{"feedback.view"}, shared.ErrUnauthenticated},
		{"anonymous denied even without requirements", 0, scope, nil, shared.ErrUnauthenticated},
		{"authenticated only gate", 1, scope, nil, nil},
		{"direct match", 1, scope, []string{"feedback.view"}, nil},
		{"disjunctive match on second tag", 1, scope, []string{"channel.edit", "issue.edit"}, nil},
		{"no overlap forbidden", 1, scope, []string{"channel.edit", "webhook.edit"}, shared.ErrForbidden},
		{"wildcard allows anything", 2, scope, []string{"channel.delete"}, nil},
		{"empty grant set forbidden", 3, scope, []string{"feedback.view"}, shared.ErrForbidden},
		{"scope isolation", 1, shared.Scope{ProjectID: 20}, []string{"feedback.view"}, shared.ErrForbidden},
		{"case and whitespace normalized", 1, scope, []string{"  Feedback.View "}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Authorize(ctx, tt.userID, tt.scope, tt.required...)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGuardAuthorizeAll(t *testing.T) {
	source := &fakeSource{perms: map[[2]int64][]string{
		{1, 10}: {"feedback.view", "issue.edit"},
		{2, 10}: {shared.PermManageAll},
	}}
	guard := &Guard{Source: source}
	ctx := context.Background()
	scope := shared.Scope{ProjectID: 10}

	require.NoError(t, guard.AuthorizeAll(ctx, 1, scope, "feedback.view", "issue.edit"))
	require.ErrorIs(t, guard.AuthorizeAll(ctx, 1, scope, "feedback.view", "channel.edit"), shared.ErrForbidden)
	// The wildcard also satisfies conjunctive checks.
	require.NoError(t, guard.AuthorizeAll(ctx, 2, scope, "feedback.view", "channel.edit"))
}

func TestGuardFailsClosedOnSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("store unreachable")}
	sink := &recordingSink{}
	guard := &Guard{Source: source, Sink: sink}

	err := guard.Authorize(context.Background(), 1, shared.Scope{ProjectID: 10}, "feedback.view")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrForbidden)
	assert.NotErrorIs(t, err, shared.ErrUnauthenticated)
	assert.Equal(t, []Decision{DecisionError}, sink.decisions)
}

func TestGuardEmitsDecisions(t *testing.T) {
	source := &fakeSource{perms: map[[2]int64][]string{
		{1, 10}: {"feedback.view"},
	}}
	sink := &recordingSink{}
	guard := &Guard{Source: source, Sink: sink}
	ctx := context.Background()
	scope := shared.Scope{ProjectID: 10}

	_ = guard.Authorize(ctx, 1, scope, "feedback.view")
	_ = guard.Authorize(ctx, 1, scope, "channel.edit")
	_ = guard.Authorize(ctx, 0, scope, "feedback.view")

	assert.Equal(t, []Decision{DecisionAllow, DecisionForbidden, DecisionUnauthenticated}, sink.decisions)
}

func TestGuardReadsSourceOncePerEvaluation(t *testing.T) {
	source := &fakeSource{perms: map[[2]int64][]string{
		{1, 10}: {"feedback.view"},
	}}
	guard := &Guard{Source: source}

	require.NoError(t, guard.Authorize(context.Background(), 1, shared.Scope{ProjectID: 10}, "feedback.view", "issue.view", "channel.view"))
	assert.Equal(t, 1, source.calls)
}

func TestGuardReflectsRevocationOnNextEvaluation(t *testing.T) {
	source := &fakeSource{perms: map[[2]int64][]string{
		{1, 10}: {"feedback.view"},
	}}
	guard := &Guard{Source: source}
	ctx := context.Background()
	scope := shared.Scope{ProjectID: 10}

	require.NoError(t, guard.Authorize(ctx, 1, scope, "feedback.view"))

	// Revoke between requests: no caching means the next evaluation denies.
	delete(source.perms, [2]int64{1, 10})
	require.ErrorIs(t, guard.Authorize(ctx, 1, scope, "feedback.view"), shared.ErrForbidden)
}
