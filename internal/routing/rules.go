package routing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"docket/internal/extract"
	"docket/internal/lifecycle"
)

// Rule describes one routing decision candidate. Rules are evaluated in
// declaration order; the most specific fully-matching rule wins, with
// declaration order breaking specificity ties. That ordering is part of the
// contract: repeated runs over the same inputs must route identically.
type Rule struct {
	// Name identifies the rule in audit trails.
	Name string
	// DocType restricts the rule to one extracted document type. Empty means
	// the rule does not key on a specific type.
	DocType string
	// AnyDocType requires some document type to be present without naming one.
	AnyDocType bool
	// RequiresGroupKey restricts the rule to results carrying a grouping key.
	RequiresGroupKey bool
	// Template is the destination folder relative to the library root.
	// Placeholders: {group} (grouping key), {type} (title-cased doc type).
	Template string
	// TargetState is the lifecycle state applied after a successful move.
	TargetState lifecycle.State
}

// Matches reports whether the rule fully matches the extraction result.
func (r Rule) Matches(result extract.Result) bool {
	if r.DocType != "" && result.DocType != r.DocType {
		return false
	}
	if r.AnyDocType && result.DocType == "" {
		return false
	}
	if r.RequiresGroupKey && result.GroupingKey == "" {
		return false
	}
	return true
}

// Specificity orders rules: an exact doc type beats a wildcard type, and a
// grouping-key requirement beats its absence.
func (r Rule) Specificity() int {
	score := 0
	if r.DocType != "" {
		score += 4
	} else if r.AnyDocType {
		score++
	}
	if r.RequiresGroupKey {
		score += 2
	}
	return score
}

var titleCaser = cases.Title(language.English)

// Instantiate fills the rule template with fields from the result.
func (r Rule) Instantiate(result extract.Result) string {
	segmentType := titleCaser.String(strings.ToLower(result.DocType))
	replacer := strings.NewReplacer(
		"{group}", result.GroupingKey,
		"{type}", segmentType,
	)
	return strings.Trim(replacer.Replace(r.Template), "/")
}

// LegalRules is the default ruleset for the LEGAL policy mode. Declaration
// order is load-bearing; append new rules rather than reordering.
func LegalRules() []Rule {
	return []Rule{
		{
			Name:             "case-motion",
			DocType:          "motion",
			RequiresGroupKey: true,
			Template:         "Cases/{group}/Court_Filings/{type}",
			TargetState:      lifecycle.StateFiled,
		},
		{
			Name:             "case-brief",
			DocType:          "brief",
			RequiresGroupKey: true,
			Template:         "Cases/{group}/Court_Filings/{type}",
			TargetState:      lifecycle.StateFiled,
		},
		{
			Name:             "case-order",
			DocType:          "order",
			RequiresGroupKey: true,
			Template:         "Cases/{group}/Court_Filings/{type}",
			TargetState:      lifecycle.StateFiled,
		},
		{
			Name:             "case-contract",
			DocType:          "contract",
			RequiresGroupKey: true,
			Template:         "Cases/{group}/Contracts",
			TargetState:      lifecycle.StateFiled,
		},
		{
			Name:             "case-correspondence",
			DocType:          "correspondence",
			RequiresGroupKey: true,
			Template:         "Cases/{group}/Correspondence",
			TargetState:      lifecycle.StateActive,
		},
		{
			Name:             "case-memo",
			DocType:          "memo",
			RequiresGroupKey: true,
			Template:         "Cases/{group}/Memos",
			TargetState:      lifecycle.StateActive,
		},
		{
			Name:        "invoice",
			DocType:     "invoice",
			Template:    "Finance/Invoices",
			TargetState: lifecycle.StateFiled,
		},
		{
			Name:             "case-misc",
			RequiresGroupKey: true,
			Template:         "Cases/{group}/Misc",
			TargetState:      lifecycle.StateActive,
		},
		{
			Name:        "typed-unsorted",
			AnyDocType:  true,
			Template:    "Unsorted/{type}",
			TargetState: lifecycle.StateActive,
		},
	}
}

// RulesForMode returns the ruleset registered for a policy mode.
func RulesForMode(mode string) []Rule {
	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case "", "LEGAL":
		return LegalRules()
	default:
		return LegalRules()
	}
}
