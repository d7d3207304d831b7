package dqsi

import (
	"fmt"
	"math"
	"strings"
)

// RiskTier categorizes how much a KDE matters to surveillance outcomes.
type RiskTier string

const (
	RiskTierHigh   RiskTier = "high"
	RiskTierMedium RiskTier = "medium"
	RiskTierLow    RiskTier = "low"
)

// ParseRiskTier normalizes a configured tier name.
func ParseRiskTier(s string) (RiskTier, error) {
	switch RiskTier(strings.ToLower(strings.TrimSpace(s))) {
	case RiskTierHigh:
		return RiskTierHigh, nil
	case RiskTierMedium:
		return RiskTierMedium, nil
	case RiskTierLow:
		return RiskTierLow, nil
	default:
		return "", fmt.Errorf("unknown risk tier %q", s)
	}
}

// Weight returns the aggregation weight for the tier.
func (t RiskTier) Weight() int {
	switch t {
	case RiskTierHigh:
		return 3
	case RiskTierMedium:
		return 2
	default:
		return 1
	}
}

// DimensionTier groups quality dimensions by maturity.
type DimensionTier string

const (
	TierFoundational DimensionTier = "foundational"
	TierEnhanced     DimensionTier = "enhanced"
)

// Weight returns the dimension-tier multiplier used in aggregation.
func (t DimensionTier) Weight() float64 {
	if t == TierEnhanced {
		return 0.75
	}
	return 1.0
}

// ScoreImputed is the fixed score assigned to recognized placeholder
// values ("unknown", "n/a", ...). It sits between failed and valid so a
// populated-but-imputed field still signals partial evidence.
const ScoreImputed = 0.6

// KDEResult is the immutable per-field outcome of one calculation.
// RiskWeight and TierWeight are resolved from configuration when the
// result is built, so aggregation never reaches back into the tables.
type KDEResult struct {
	Name       string        `json:"name"`
	Score      float64       `json:"score"`
	RiskTier   RiskTier      `json:"risk_tier"`
	RiskWeight int           `json:"risk_weight"`
	Dimension  string        `json:"dimension"`
	Tier       DimensionTier `json:"tier"`
	TierWeight float64       `json:"tier_weight"`
	Synthetic  bool          `json:"is_synthetic"`
	Imputed    bool          `json:"imputed"`
	Details    string        `json:"details,omitempty"`
}

// NewKDEResult builds a validated result. Score must be a finite value
// in [0,1]; everything else is trusted because it comes straight out of
// validated configuration.
func NewKDEResult(name string, score float64, tier RiskTier, dimension string, dimTier DimensionTier) (KDEResult, error) {
	if name == "" {
		return KDEResult{}, fmt.Errorf("kde result requires a name")
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return KDEResult{}, fmt.Errorf("kde %s: score must be finite", name)
	}
	if score < 0.0 || score > 1.0 {
		return KDEResult{}, fmt.Errorf("kde %s: score %v outside [0,1]", name, score)
	}
	return KDEResult{
		Name:       name,
		Score:      score,
		RiskTier:   tier,
		RiskWeight: tier.Weight(),
		Dimension:  dimension,
		Tier:       dimTier,
		TierWeight: dimTier.Weight(),
	}, nil
}

// WithWeights returns a copy carrying configuration-resolved weights in
// place of the tier defaults.
func (r KDEResult) WithWeights(riskWeight int, tierWeight float64) KDEResult {
	r.RiskWeight = riskWeight
	r.TierWeight = tierWeight
	return r
}

// WithDetails returns a copy carrying a diagnostic note.
func (r KDEResult) WithDetails(details string) KDEResult {
	r.Details = details
	return r
}

// WithImputed returns a copy flagged as an imputed placeholder.
func (r KDEResult) WithImputed() KDEResult {
	r.Imputed = true
	return r
}

// WithSynthetic returns a copy flagged as a feed-level synthetic KDE.
func (r KDEResult) WithSynthetic() KDEResult {
	r.Synthetic = true
	return r
}

// WeightedScore is the result's contribution to the overall numerator.
func (r KDEResult) WeightedScore() float64 {
	return r.Score * float64(r.RiskWeight) * r.TierWeight
}

// Weight is the result's contribution to the overall denominator.
func (r KDEResult) Weight() float64 {
	return float64(r.RiskWeight) * r.TierWeight
}

func (r KDEResult) String() string {
	return fmt.Sprintf("KDEResult{%s score=%.2f tier=%s dim=%s}", r.Name, r.Score, r.RiskTier, r.Dimension)
}
