package dqsi

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/sentinel-analytics/dqsi-engine/internal/domain/dqsi"
)

// Relative tolerances for numeric accuracy comparison.
var (
	relTolTight = decimal.RequireFromString("0.001")
	relTolLoose = decimal.RequireFromString("0.01")
)

// Component weight tables. Producers own the field and bear full
// validation responsibility; consumers validate more lightly.
var producerWeights = map[string]float64{
	"completeness":   0.25,
	"conformity":     0.20,
	"accuracy":       0.25,
	"reconciliation": 0.15,
	"business_rules": 0.10,
	"uniqueness":     0.03,
	"consistency":    0.02,
}

var consumerWeights = map[string]float64{
	"completeness":         0.40,
	"conformity":           0.30,
	"reference_validation": 0.20,
	"basic_rules":          0.10,
}

// Placeholder component scores. Real duplicate and cross-system checks
// need estate-wide state this engine does not hold; these constants
// mark the extension points until such feeds exist.
const (
	uniquenessPlaceholder  = 0.8
	consistencyPlaceholder = 0.75
)

// RoleAwareStrategy is the full-featured scoring mode differentiating
// producer from consumer responsibilities, with reference and
// reconciliation checks for producers.
type RoleAwareStrategy struct {
	core
}

// NewRoleAwareStrategy builds the role-aware strategy.
func NewRoleAwareStrategy(cfg domain.QualityConfig, logger *zap.Logger) *RoleAwareStrategy {
	return &RoleAwareStrategy{core: newCore(cfg, logger)}
}

func (s *RoleAwareStrategy) Name() string { return domain.StrategyRoleAware }

// ScoreKDEs scores every configured field present in the input plus the
// two synthetic feed-level signals.
func (s *RoleAwareStrategy) ScoreKDEs(data map[string]interface{}, meta Metadata) []domain.KDEResult {
	return s.scoreKDEs(s.scoreField, data, meta)
}

func (s *RoleAwareStrategy) scoreField(name string, value domain.FieldValue, meta Metadata) domain.KDEResult {
	rule, _ := s.cfg.RuleFor(name)

	if value.IsEmpty() {
		return s.newResult(name, 0.0, rule).WithDetails("missing or empty value")
	}

	imputed := isPlaceholder(value)
	completeness := 1.0
	if imputed {
		completeness = domain.ScoreImputed
	}
	conformity, _ := heuristicScore(name, value)

	components := map[string]float64{
		"completeness": completeness,
		"conformity":   conformity,
	}

	role := meta.NormalizedRole()
	var weights map[string]float64
	if role == domain.RoleProducer {
		weights = producerWeights
		components["accuracy"] = compareAgainst(name, value, meta.ReferenceData)
		components["reconciliation"] = compareAgainst(name, value, meta.ReconciliationData)
		components["business_rules"] = businessRuleScore(name, value)
		if s.cfg.DimensionTierOf(rule.Dimension) == domain.TierEnhanced {
			components["uniqueness"] = uniquenessPlaceholder
			components["consistency"] = consistencyPlaceholder
		}
	} else {
		weights = consumerWeights
		components["reference_validation"] = referenceTypeScore(name, value, meta.ReferenceData)
		components["basic_rules"] = basicRuleScore(name, value)
	}

	var num, den float64
	for component, score := range components {
		w := weights[component]
		num += score * w
		den += w
	}
	blended := 0.0
	if den > 0 {
		blended = num / den
	}

	// An imputed placeholder is a statement about the value itself, not
	// about how well it blends; override the weighted result.
	if imputed {
		result := s.newResult(name, domain.ScoreImputed, rule).WithImputed()
		return result.WithDetails(fmt.Sprintf("placeholder value %q (%s role)", value.String(), role))
	}

	return s.newResult(name, blended, rule).
		WithDetails(componentDetails(role, components))
}

func componentDetails(role string, components map[string]float64) string {
	parts := make([]string, 0, len(components))
	for _, key := range []string{"completeness", "conformity", "accuracy", "reconciliation", "business_rules", "reference_validation", "basic_rules", "uniqueness", "consistency"} {
		if score, ok := components[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%.2f", key, score))
		}
	}
	return fmt.Sprintf("%s role: %s", role, strings.Join(parts, " "))
}

// compareAgainst scores a value against a supplied reference or
// reconciliation map. No entry means no opinion: 0.5.
func compareAgainst(name string, value domain.FieldValue, source map[string]interface{}) float64 {
	if source == nil {
		return 0.5
	}
	raw, ok := source[name]
	if !ok {
		return 0.5
	}
	return compareValues(value, domain.FieldValueOf(raw))
}

// compareValues grades agreement between an observed and an expected
// value: exact match, then numeric tolerance, then relaxed string
// matching.
func compareValues(observed, expected domain.FieldValue) float64 {
	if observed.String() == expected.String() {
		return 1.0
	}

	if od, ok := observed.Number(); ok {
		if ed, ok := expected.Number(); ok {
			if ed.IsZero() {
				if od.IsZero() {
					return 1.0
				}
				return 0.3
			}
			diff := od.Sub(ed).Abs().Div(ed.Abs())
			switch {
			case diff.LessThanOrEqual(relTolTight):
				return 0.95
			case diff.LessThanOrEqual(relTolLoose):
				return 0.8
			default:
				return 0.3
			}
		}
	}

	if strings.EqualFold(observed.String(), expected.String()) {
		return 0.9
	}
	if foldSpaces(observed.String()) == foldSpaces(expected.String()) {
		return 0.8
	}
	return 0.2
}

func foldSpaces(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// businessRuleScore applies field-specific domain checks for producers.
func businessRuleScore(name string, value domain.FieldValue) float64 {
	switch classifyField(name) {
	case categoryNumeric:
		d, ok := value.Number()
		if !ok {
			return 0.3
		}
		switch d.Sign() {
		case 1:
			return 1.0
		case 0:
			return 0.5
		default:
			return 0.2
		}
	case categoryTimestamp:
		if _, ok := parseTimestamp(value); ok {
			return 1.0
		}
		return 0.3
	case categoryIdentifier:
		if value.Len() >= 2 {
			return 1.0
		}
		return 0.4
	default:
		return 0.8
	}
}

// basicRuleScore is the consumer-side lighter presence/parse check.
func basicRuleScore(name string, value domain.FieldValue) float64 {
	switch classifyField(name) {
	case categoryNumeric:
		if _, ok := value.Number(); ok {
			return 1.0
		}
		return 0.5
	case categoryTimestamp:
		if _, ok := parseTimestamp(value); ok {
			return 1.0
		}
		return 0.5
	default:
		if value.Len() >= 1 {
			return 1.0
		}
		return 0.5
	}
}

// referenceTypeScore is the consumer-side looser check: the reference
// only needs to be type-compatible, not equal.
func referenceTypeScore(name string, value domain.FieldValue, reference map[string]interface{}) float64 {
	if reference == nil {
		return 0.5
	}
	raw, ok := reference[name]
	if !ok {
		return 0.5
	}
	expected := domain.FieldValueOf(raw)
	if value.Kind() == expected.Kind() {
		return 0.9
	}
	if _, vOK := value.Number(); vOK {
		if _, eOK := expected.Number(); eOK {
			return 0.8
		}
	}
	return 0.4
}
