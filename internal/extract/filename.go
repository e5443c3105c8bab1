package extract

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"docket/internal/services"
)

// FilenameExtractor derives metadata from the file name alone. It is the
// default extractor wired by the CLI; content-based extractors (PDF text,
// LLM classification) plug in through the same interface.
type FilenameExtractor struct{}

var caseKeyPattern = regexp.MustCompile(`(?i)\b(case-\d{4}-\d{3,})\b`)

// docTypeKeywords maps filename tokens to canonical document types. Longer,
// more distinctive tokens are listed under the type they indicate.
var docTypeKeywords = map[string][]string{
	"motion":         {"motion"},
	"brief":          {"brief"},
	"order":          {"order", "ruling"},
	"contract":       {"contract", "agreement"},
	"invoice":        {"invoice", "bill"},
	"correspondence": {"letter", "correspondence", "email"},
	"memo":           {"memo", "memorandum"},
}

func (FilenameExtractor) Extract(ctx context.Context, path string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return Result{}, services.Wrap(services.ErrExtraction, "extract", "stat file", "File unreadable at classification time", err)
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	normalized := strings.ToLower(stem)

	result := Result{
		Confidence: 0.3,
		Fields:     map[string]string{"title": titleFromStem(stem)},
	}

	if match := caseKeyPattern.FindString(stem); match != "" {
		result.GroupingKey = canonicalCaseKey(match)
	}
	result.DocType = matchDocType(normalized)

	switch {
	case result.DocType != "" && result.GroupingKey != "":
		result.Confidence = 0.9
	case result.DocType != "":
		result.Confidence = 0.7
	case result.GroupingKey != "":
		result.Confidence = 0.5
	}
	return result, nil
}

func matchDocType(normalized string) string {
	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		tokenSet[token] = struct{}{}
	}
	// Deterministic scan order keeps repeated runs stable.
	for _, docType := range []string{"motion", "brief", "order", "contract", "invoice", "correspondence", "memo"} {
		for _, keyword := range docTypeKeywords[docType] {
			if _, ok := tokenSet[keyword]; ok {
				return docType
			}
		}
	}
	return ""
}

func canonicalCaseKey(match string) string {
	upper := strings.ToUpper(match)
	return "Case-" + strings.TrimPrefix(upper, "CASE-")
}

func titleFromStem(stem string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	return strings.Join(strings.Fields(cleaned), " ")
}
