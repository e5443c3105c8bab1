package plan

import (
	"fmt"
	"time"

	"docket/internal/lifecycle"
)

// Action identifies what an item proposes to do. Only moves exist today.
type Action string

const ActionMove Action = "move"

// ItemStatus partitions plan items into applicable and held-back.
type ItemStatus string

const (
	StatusAllowed ItemStatus = "allowed"
	StatusBlocked ItemStatus = "blocked"
)

// BlockedReason explains why an item was held back.
type BlockedReason string

const (
	BlockedImmutable            BlockedReason = "immutable"
	BlockedRequiresConfirmation BlockedReason = "requires_confirmation"
	BlockedExtractionFailed     BlockedReason = "extraction_failed"
)

// Item is one proposed action inside a plan.
type Item struct {
	FileID        string          `json:"file_id"`
	Action        Action          `json:"action"`
	FromPath      string          `json:"from_path"`
	ToPath        string          `json:"to_path"`
	Status        ItemStatus      `json:"status"`
	BlockedReason BlockedReason   `json:"blocked_reason,omitempty"`
	TargetState   lifecycle.State `json:"target_lifecycle_state,omitempty"`
	RuleTrace     []string        `json:"rule_trace,omitempty"`
}

// Blocked reports whether the item is held back.
func (i Item) Blocked() bool {
	return i.Status == StatusBlocked
}

// Plan is a named, immutable-once-built batch of proposed moves.
type Plan struct {
	ID        string    `json:"plan_id"`
	CreatedBy string    `json:"created_by"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	Items     []Item    `json:"items"`
}

// Validate checks the structural invariants every stored plan must satisfy:
// at most one item per file id, and status/blocked_reason set together.
func (p *Plan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("plan is missing an id")
	}
	seen := make(map[string]struct{}, len(p.Items))
	for _, item := range p.Items {
		if item.FileID == "" {
			return fmt.Errorf("plan %s has an item without a file id", p.ID)
		}
		if _, dup := seen[item.FileID]; dup {
			return fmt.Errorf("plan %s has duplicate items for file %s", p.ID, item.FileID)
		}
		seen[item.FileID] = struct{}{}
		switch item.Status {
		case StatusAllowed:
			if item.BlockedReason != "" {
				return fmt.Errorf("plan %s: allowed item %s carries blocked reason %s", p.ID, item.FileID, item.BlockedReason)
			}
		case StatusBlocked:
			if item.BlockedReason == "" {
				return fmt.Errorf("plan %s: blocked item %s is missing a reason", p.ID, item.FileID)
			}
		default:
			return fmt.Errorf("plan %s: item %s has unknown status %q", p.ID, item.FileID, item.Status)
		}
	}
	return nil
}

// CountByStatus summarizes item statuses for reporting.
func (p *Plan) CountByStatus() (allowed, blocked int) {
	for _, item := range p.Items {
		if item.Blocked() {
			blocked++
		} else {
			allowed++
		}
	}
	return allowed, blocked
}
