package dqsi

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	domain "github.com/sentinel-analytics/dqsi-engine/internal/domain/dqsi"
)

// fieldCategory drives the per-category heuristics. Classification is
// by field name, not value, so a malformed value still lands in the
// right step function.
type fieldCategory int

const (
	categoryUnknown fieldCategory = iota
	categoryIdentifier
	categoryTimestamp
	categoryNumeric
	categoryText
)

var numericNameHints = []string{"notional", "price", "quantity", "qty", "amount", "volume", "rate", "size"}

var textNameHints = []string{"name", "desc", "currency", "venue", "status", "type", "comment", "label", "side"}

func classifyField(name string) fieldCategory {
	n := strings.ToLower(name)
	switch {
	case n == "id" || strings.HasSuffix(n, "_id") || strings.Contains(n, "identifier") || strings.HasSuffix(n, "_code") || strings.HasSuffix(n, "_ref"):
		return categoryIdentifier
	case strings.Contains(n, "timestamp") || strings.Contains(n, "time") || strings.Contains(n, "date"):
		return categoryTimestamp
	}
	for _, hint := range numericNameHints {
		if strings.Contains(n, hint) {
			return categoryNumeric
		}
	}
	for _, hint := range textNameHints {
		if strings.Contains(n, hint) {
			return categoryText
		}
	}
	return categoryUnknown
}

// FallbackStrategy is the lightweight, role-agnostic scoring mode for
// low-maturity setups. Per-field scores come from business-calibrated
// step functions whose exact breakpoints are part of the output
// contract with downstream consumers.
type FallbackStrategy struct {
	core
}

// NewFallbackStrategy builds the fallback strategy.
func NewFallbackStrategy(cfg domain.QualityConfig, logger *zap.Logger) *FallbackStrategy {
	return &FallbackStrategy{core: newCore(cfg, logger)}
}

func (s *FallbackStrategy) Name() string { return domain.StrategyFallback }

// ScoreKDEs scores every configured field present in the input plus the
// two synthetic feed-level signals.
func (s *FallbackStrategy) ScoreKDEs(data map[string]interface{}, meta Metadata) []domain.KDEResult {
	return s.scoreKDEs(s.scoreField, data, meta)
}

func (s *FallbackStrategy) scoreField(name string, value domain.FieldValue, _ Metadata) domain.KDEResult {
	rule, _ := s.cfg.RuleFor(name)

	if value.IsEmpty() {
		return s.newResult(name, 0.0, rule).WithDetails("missing or empty value")
	}
	if isPlaceholder(value) {
		return s.newResult(name, domain.ScoreImputed, rule).
			WithImputed().
			WithDetails(fmt.Sprintf("placeholder value %q", value.String()))
	}

	score, details := heuristicScore(name, value)
	return s.newResult(name, score, rule).WithDetails(details)
}

// heuristicScore dispatches a present, non-placeholder value to its
// category step function.
func heuristicScore(name string, value domain.FieldValue) (float64, string) {
	switch classifyField(name) {
	case categoryIdentifier:
		return identifierScore(value)
	case categoryTimestamp:
		return timestampScore(value)
	case categoryNumeric:
		return numericScore(value)
	case categoryText:
		return textScore(value)
	default:
		return 1.0, "unrecognized field, present"
	}
}

func identifierScore(value domain.FieldValue) (float64, string) {
	s := value.String()
	switch {
	case value.Len() < 2:
		return 0.3, "identifier too short"
	case value.Len() > 50:
		return 0.7, "identifier unusually long"
	case isIdentifierShaped(s):
		return 1.0, "well-formed identifier"
	default:
		return 0.5, "identifier contains unexpected characters"
	}
}

func isIdentifierShaped(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func timestampScore(value domain.FieldValue) (float64, string) {
	if _, ok := parseTimestamp(value); ok {
		return 1.0, "parseable timestamp"
	}
	return 0.3, "unparseable timestamp"
}

func numericScore(value domain.FieldValue) (float64, string) {
	d, ok := value.Number()
	if !ok {
		return 0.1, "not numeric"
	}
	f, _ := d.Float64()
	switch {
	case f < 0:
		return 0.2, "negative value"
	case f == 0:
		return 0.6, "zero value"
	case f > 1e12:
		return 0.7, "extremely large value"
	default:
		return 1.0, "plausible numeric value"
	}
}

func textScore(value domain.FieldValue) (float64, string) {
	switch {
	case value.Len() < 2:
		return 0.4, "text too short"
	case value.Len() > 100:
		return 0.6, "text unusually long"
	default:
		return 1.0, "plausible text value"
	}
}
