package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs joined with the actor's account.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const timelineColumns = `a.occurred_at, a.actor_id, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, a.meta`

// TimelineWindow returns one page of timeline rows, newest first. The caller
// passes limit = pageSize+1 to detect whether a next page exists.
func (r *Repository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	where, args := buildFilterClause(filters)
	args = append(args, limit)
	limitPos := len(args)
	args = append(args, offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_logs a LEFT JOIN users u ON u.id = a.actor_id%s ORDER BY a.occurred_at DESC, a.id DESC LIMIT $%d OFFSET $%d`,
		timelineColumns, where, limitPos, limitPos+1)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit timeline: %w", err)
	}
	defer rows.Close()
	return collectTimelineRows(rows)
}

// TimelineAll returns every matching row without paging, for export.
func (r *Repository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	where, args := buildFilterClause(filters)
	query := fmt.Sprintf(`SELECT %s FROM audit_logs a LEFT JOIN users u ON u.id = a.actor_id%s ORDER BY a.occurred_at DESC, a.id DESC`,
		timelineColumns, where)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit export: %w", err)
	}
	defer rows.Close()
	return collectTimelineRows(rows)
}

func buildFilterClause(filters TimelineFilters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(condition string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(condition, len(args)))
	}
	if !filters.From.IsZero() {
		add("a.occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("a.occurred_at <= $%d", filters.To)
	}
	if filters.ActorID > 0 {
		add("a.actor_id = $%d", filters.ActorID)
	}
	if entity := strings.TrimSpace(filters.Entity); entity != "" {
		add("a.entity = $%d", entity)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		add("a.action = $%d", action)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func collectTimelineRows(rows pgx.Rows) ([]TimelineRow, error) {
	var out []TimelineRow
	for rows.Next() {
		var (
			row      TimelineRow
			at       time.Time
			metaJSON []byte
		)
		if err := rows.Scan(&at, &row.ActorID, &row.ActorEmail, &row.Action, &row.Entity, &row.EntityID, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		row.At = at
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &row.Meta); err != nil {
				return nil, fmt.Errorf("decode audit meta: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
