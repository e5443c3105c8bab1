package routing

import (
	"fmt"
	"path"
	"strings"

	"docket/internal/extract"
	"docket/internal/lifecycle"
)

// Decision is the routing outcome for a single file.
type Decision struct {
	// TargetPath is the destination folder relative to the library root. For
	// confirmation-required outcomes it is a best-guess staging folder only.
	TargetPath string
	// TargetState is the lifecycle state to apply after a successful move.
	TargetState lifecycle.State
	// RequiresConfirmation marks outcomes too ambiguous for automatic
	// application.
	RequiresConfirmation bool
	// Reasoning lists, in evaluation order, every rule or gate that
	// materially affected the decision. Non-empty whenever
	// RequiresConfirmation is true.
	Reasoning []string
}

// Engine evaluates an ordered rule list against extraction results. It is a
// pure function of its inputs: no I/O, no clock, no stored state beyond the
// immutable rule list, so one engine is safely shared across workers.
type Engine struct {
	rules        []Rule
	threshold    float64
	reviewFolder string
}

// NewEngine builds an engine over the given rules. threshold is the
// confidence gate; reviewFolder is the staging folder (relative to the
// library root) used for confirmation-required outcomes.
func NewEngine(rules []Rule, threshold float64, reviewFolder string) *Engine {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	reviewFolder = strings.Trim(strings.TrimSpace(reviewFolder), "/")
	if reviewFolder == "" {
		reviewFolder = "Review"
	}
	return &Engine{rules: cp, threshold: threshold, reviewFolder: reviewFolder}
}

// Route maps an extraction result and the file's current lifecycle state to a
// destination. Immutable-state enforcement is deliberately absent here; the
// plan builder owns it so routing stays side-effect free.
func (e *Engine) Route(result extract.Result, filePath string, current lifecycle.State) Decision {
	var (
		reasoning  []string
		candidates []Rule
		best       = -1
	)

	for _, rule := range e.rules {
		if !rule.Matches(result) {
			continue
		}
		reasoning = append(reasoning, fmt.Sprintf(
			"rule %s matched (doc_type=%s specificity=%d)", rule.Name, orNone(result.DocType), rule.Specificity()))
		switch spec := rule.Specificity(); {
		case spec > best:
			best = spec
			candidates = candidates[:0]
			candidates = append(candidates, rule)
		case spec == best:
			candidates = append(candidates, rule)
		}
	}

	if len(candidates) == 0 {
		reasoning = append(reasoning, "no routing rule matched; holding for confirmation")
		return Decision{
			TargetPath:           path.Join(e.reviewFolder, "Unclassified"),
			TargetState:          current,
			RequiresConfirmation: true,
			Reasoning:            reasoning,
		}
	}

	winner := candidates[0]
	target := winner.Instantiate(result)

	if len(candidates) > 1 {
		names := make([]string, len(candidates))
		for i, rule := range candidates {
			names[i] = rule.Name
		}
		reasoning = append(reasoning, fmt.Sprintf(
			"rules tied at specificity %d (%s); first-declared %s is the best guess, holding for confirmation",
			best, strings.Join(names, ", "), winner.Name))
		return Decision{
			TargetPath:           path.Join(e.reviewFolder, target),
			TargetState:          current,
			RequiresConfirmation: true,
			Reasoning:            reasoning,
		}
	}

	if result.Confidence < e.threshold {
		reasoning = append(reasoning, fmt.Sprintf(
			"confidence %.2f below threshold %.2f; holding for confirmation", result.Confidence, e.threshold))
		return Decision{
			TargetPath:           path.Join(e.reviewFolder, target),
			TargetState:          current,
			RequiresConfirmation: true,
			Reasoning:            reasoning,
		}
	}

	reasoning = append(reasoning, fmt.Sprintf("selected rule %s -> %s", winner.Name, target))
	return Decision{
		TargetPath:  target,
		TargetState: winner.TargetState,
		Reasoning:   reasoning,
	}
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}
