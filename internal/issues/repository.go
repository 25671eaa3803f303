package issues

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const pgUniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const issueColumns = `i.id, i.project_id, i.title, i.description, i.status,
	(SELECT COUNT(*) FROM feedback_issues fi WHERE fi.issue_id = i.id) AS feedback_count,
	i.created_at, i.updated_at`

// CreateIssue inserts an issue in the open status.
func (r *Repository) CreateIssue(ctx context.Context, issue Issue) (Issue, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO issues (project_id, title, description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		issue.ProjectID, issue.Title, issue.Description, issue.Status).
		Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return Issue{}, err
	}
	return issue, nil
}

// ListIssues returns one page of issues plus the unpaged total.
func (r *Repository) ListIssues(ctx context.Context, projectID int64, filter ListFilter) ([]Issue, int, error) {
	where := "i.project_id = $1"
	args := []any{projectID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND i.status = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issues i WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, p.PerPage, p.Offset())
	query := fmt.Sprintf(`SELECT %s FROM issues i WHERE %s ORDER BY i.created_at DESC, i.id DESC LIMIT $%d OFFSET $%d`,
		issueColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Issue
	for rows.Next() {
		var issue Issue
		if err := rows.Scan(&issue.ID, &issue.ProjectID, &issue.Title, &issue.Description, &issue.Status, &issue.FeedbackCount, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, issue)
	}
	return out, total, rows.Err()
}

// GetIssue fetches one issue scoped to the project.
func (r *Repository) GetIssue(ctx context.Context, projectID, id int64) (Issue, error) {
	var issue Issue
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM issues i WHERE i.project_id = $1 AND i.id = $2`, issueColumns),
		projectID, id).
		Scan(&issue.ID, &issue.ProjectID, &issue.Title, &issue.Description, &issue.Status, &issue.FeedbackCount, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issue{}, shared.ErrNotFound
		}
		return Issue{}, err
	}
	return issue, nil
}

// UpdateIssue replaces title and description.
func (r *Repository) UpdateIssue(ctx context.Context, projectID, id int64, title, description string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE issues SET title = $3, description = $4, updated_at = NOW() WHERE project_id = $1 AND id = $2`,
		projectID, id, title, description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetStatus moves the issue to a new status.
func (r *Repository) SetStatus(ctx context.Context, projectID, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE issues SET status = $3, updated_at = NOW() WHERE project_id = $1 AND id = $2`,
		projectID, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AttachFeedback links a feedback entry to the issue. Linking twice is a
// conflict; linking across projects fails before touching the link table.
func (r *Repository) AttachFeedback(ctx context.Context, projectID, issueID, feedbackID int64) error {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM issues i JOIN feedbacks f ON f.project_id = i.project_id
			WHERE i.project_id = $1 AND i.id = $2 AND f.id = $3
		 )`, projectID, issueID, feedbackID).Scan(&ok)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrNotFound
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO feedback_issues (issue_id, feedback_id, created_at) VALUES ($1, $2, NOW())`,
		issueID, feedbackID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("feedback already linked: %w", shared.ErrConflict)
		}
		return err
	}
	return nil
}

// DetachFeedback removes a link. Detaching a missing link is not found.
func (r *Repository) DetachFeedback(ctx context.Context, projectID, issueID, feedbackID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM feedback_issues fi
		 USING issues i
		 WHERE fi.issue_id = i.id AND i.project_id = $1 AND fi.issue_id = $2 AND fi.feedback_id = $3`,
		projectID, issueID, feedbackID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListLinkedFeedbackIDs returns the ids of entries linked to the issue.
func (r *Repository) ListLinkedFeedbackIDs(ctx context.Context, projectID, issueID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT fi.feedback_id FROM feedback_issues fi
		 JOIN issues i ON i.id = fi.issue_id
		 WHERE i.project_id = $1 AND fi.issue_id = $2 ORDER BY fi.feedback_id`,
		projectID, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
