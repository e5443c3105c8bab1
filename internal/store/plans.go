package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"docket/internal/lifecycle"
	"docket/internal/plan"
	"docket/internal/services"
)

// SavePlan persists a plan and its items atomically. Plans are immutable
// once stored; saving an existing plan id fails.
func (s *Store) SavePlan(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return errors.New("plan is nil")
	}
	if err := p.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "store", "save plan", "Plan violates structural invariants", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin plan tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO plans (plan_id, created_by, mode, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.CreatedBy, p.Mode, formatTime(p.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for position, item := range p.Items {
		trace, err := json.Marshal(item.RuleTrace)
		if err != nil {
			return fmt.Errorf("marshal rule trace: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO plan_items (
                plan_id, position, file_id, action, from_path, to_path,
                status, blocked_reason, target_state, rule_trace
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID,
			position,
			item.FileID,
			string(item.Action),
			item.FromPath,
			nullableString(item.ToPath),
			string(item.Status),
			nullableString(string(item.BlockedReason)),
			nullableString(string(item.TargetState)),
			string(trace),
		); err != nil {
			return fmt.Errorf("insert plan item %d: %w", position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit plan: %w", err)
	}
	return nil
}

// GetPlan loads a stored plan with items in build order.
func (s *Store) GetPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT plan_id, created_by, mode, created_at FROM plans WHERE plan_id = ?`, planID)

	var (
		p          plan.Plan
		createdRaw string
	)
	err := row.Scan(&p.ID, &p.CreatedBy, &p.Mode, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get plan", fmt.Sprintf("unknown plan %s", planID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if parsed, parseErr := parseTimeString(createdRaw); parseErr == nil {
		p.CreatedAt = parsed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT file_id, action, from_path, to_path, status, blocked_reason, target_state, rule_trace
         FROM plan_items WHERE plan_id = ? ORDER BY position`, planID)
	if err != nil {
		return nil, fmt.Errorf("get plan items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item          plan.Item
			toPath        sql.NullString
			blockedReason sql.NullString
			targetState   sql.NullString
			traceRaw      sql.NullString
			action        string
			status        string
		)
		if err := rows.Scan(&item.FileID, &action, &item.FromPath, &toPath, &status, &blockedReason, &targetState, &traceRaw); err != nil {
			return nil, err
		}
		item.Action = plan.Action(action)
		item.Status = plan.ItemStatus(status)
		item.ToPath = toPath.String
		item.BlockedReason = plan.BlockedReason(blockedReason.String)
		item.TargetState = lifecycle.State(targetState.String)
		if traceRaw.Valid && traceRaw.String != "" {
			if err := json.Unmarshal([]byte(traceRaw.String), &item.RuleTrace); err != nil {
				return nil, fmt.Errorf("unmarshal rule trace: %w", err)
			}
		}
		p.Items = append(p.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

// PlanSummary is the listing row for stored plans.
type PlanSummary struct {
	ID        string
	CreatedBy string
	Mode      string
	CreatedAt string
	Total     int
	Allowed   int
	Blocked   int
}

// Plans lists stored plans, newest first.
func (s *Store) Plans(ctx context.Context) ([]PlanSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.plan_id, p.created_by, p.mode, p.created_at,
                COUNT(i.file_id),
                SUM(CASE WHEN i.status = 'allowed' THEN 1 ELSE 0 END),
                SUM(CASE WHEN i.status = 'blocked' THEN 1 ELSE 0 END)
         FROM plans p
         LEFT JOIN plan_items i ON i.plan_id = p.plan_id
         GROUP BY p.plan_id
         ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var summaries []PlanSummary
	for rows.Next() {
		var (
			summary PlanSummary
			allowed sql.NullInt64
			blocked sql.NullInt64
		)
		if err := rows.Scan(&summary.ID, &summary.CreatedBy, &summary.Mode, &summary.CreatedAt, &summary.Total, &allowed, &blocked); err != nil {
			return nil, err
		}
		summary.Allowed = int(allowed.Int64)
		summary.Blocked = int(blocked.Int64)
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
