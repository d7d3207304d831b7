package dqsi

import (
	"fmt"
	"sort"
	"strings"
)

// Quality dimension names. Foundational dimensions measure whether data
// is usable at all; enhanced dimensions measure whether it agrees with
// the rest of the estate.
const (
	DimensionCompleteness = "completeness"
	DimensionConformity   = "conformity"
	DimensionTimeliness   = "timeliness"
	DimensionCoverage     = "coverage"
	DimensionAccuracy     = "accuracy"
	DimensionUniqueness   = "uniqueness"
	DimensionConsistency  = "consistency"
)

// Strategy names.
const (
	StrategyFallback  = "fallback"
	StrategyRoleAware = "role_aware"
)

// Roles for the role-aware strategy.
const (
	RoleProducer = "producer"
	RoleConsumer = "consumer"
)

// Synthetic KDE names. Both double as their own dimension name.
const (
	SyntheticTimeliness = "timeliness"
	SyntheticCoverage   = "coverage"
)

// KDERule is the per-KDE portion of the quality configuration.
type KDERule struct {
	RiskTier  RiskTier `koanf:"risk_tier"`
	Dimension string   `koanf:"dimension"`
}

// ScoreBucket maps an upper bound (elapsed hours for timeliness,
// percentage drop for coverage) onto a score. Buckets are evaluated in
// ascending bound order; the first bound >= the measured value wins.
type ScoreBucket struct {
	Bound float64 `koanf:"bound"`
	Score float64 `koanf:"score"`
}

// SyntheticKDE configures one of the always-present feed-level signals.
type SyntheticKDE struct {
	Name       string        `koanf:"name"`
	Weight     int           `koanf:"weight"`
	Dimension  string        `koanf:"dimension"`
	Tier       DimensionTier `koanf:"tier"`
	Buckets    []ScoreBucket `koanf:"buckets"`
	FloorScore float64       `koanf:"floor_score"`
}

// ConfidenceParams tune the confidence-index formula.
type ConfidenceParams struct {
	ImputationPenalty float64 `koanf:"imputation_penalty"`
	MissingKDEPenalty float64 `koanf:"missing_kde_penalty"`
	FallbackModifier  float64 `koanf:"fallback_modifier"`
}

// QualityConfig aggregates everything the scoring engine needs. It is
// built once, validated eagerly, and read-only afterwards.
type QualityConfig struct {
	Strategy     string                    `koanf:"strategy"`
	Dimensions   map[string]DimensionTier  `koanf:"dimensions"`
	TierWeights  map[DimensionTier]float64 `koanf:"tier_weights"`
	KDERules     map[string]KDERule        `koanf:"kde_rules"`
	RiskWeights  map[RiskTier]int          `koanf:"risk_weights"`
	CriticalKDEs []string                  `koanf:"critical_kdes"`
	CriticalCap  float64                   `koanf:"critical_cap"`
	Synthetic    map[string]SyntheticKDE   `koanf:"synthetic"`
	Confidence   ConfidenceParams          `koanf:"confidence"`
}

// DefaultQualityConfig returns the business-calibrated defaults used
// when no rules file is supplied.
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		Strategy: StrategyFallback,
		Dimensions: map[string]DimensionTier{
			DimensionCompleteness: TierFoundational,
			DimensionConformity:   TierFoundational,
			DimensionTimeliness:   TierFoundational,
			DimensionCoverage:     TierFoundational,
			DimensionAccuracy:     TierEnhanced,
			DimensionUniqueness:   TierEnhanced,
			DimensionConsistency:  TierEnhanced,
		},
		TierWeights: map[DimensionTier]float64{
			TierFoundational: 1.0,
			TierEnhanced:     0.75,
		},
		KDERules: map[string]KDERule{
			"trader_id":       {RiskTier: RiskTierHigh, Dimension: DimensionCompleteness},
			"account_id":      {RiskTier: RiskTierHigh, Dimension: DimensionCompleteness},
			"instrument_id":   {RiskTier: RiskTierHigh, Dimension: DimensionConformity},
			"counterparty_id": {RiskTier: RiskTierMedium, Dimension: DimensionConformity},
			"order_id":        {RiskTier: RiskTierMedium, Dimension: DimensionConformity},
			"notional":        {RiskTier: RiskTierHigh, Dimension: DimensionAccuracy},
			"price":           {RiskTier: RiskTierMedium, Dimension: DimensionAccuracy},
			"quantity":        {RiskTier: RiskTierMedium, Dimension: DimensionAccuracy},
			"trade_date":      {RiskTier: RiskTierMedium, Dimension: DimensionConformity},
			"settlement_date": {RiskTier: RiskTierLow, Dimension: DimensionConformity},
			"currency":        {RiskTier: RiskTierLow, Dimension: DimensionConsistency},
			"venue":           {RiskTier: RiskTierLow, Dimension: DimensionConsistency},
			"desk_id":         {RiskTier: RiskTierLow, Dimension: DimensionCompleteness},
		},
		RiskWeights: map[RiskTier]int{
			RiskTierHigh:   3,
			RiskTierMedium: 2,
			RiskTierLow:    1,
		},
		CriticalKDEs: []string{"trader_id", "account_id", "instrument_id"},
		CriticalCap:  0.75,
		Synthetic: map[string]SyntheticKDE{
			SyntheticTimeliness: {
				Name:      SyntheticTimeliness,
				Weight:    3,
				Dimension: SyntheticTimeliness,
				Tier:      TierFoundational,
				Buckets: []ScoreBucket{
					{Bound: 1, Score: 1.0},
					{Bound: 6, Score: 0.9},
					{Bound: 24, Score: 0.75},
					{Bound: 48, Score: 0.6},
				},
				FloorScore: 0.3,
			},
			SyntheticCoverage: {
				Name:      SyntheticCoverage,
				Weight:    3,
				Dimension: SyntheticCoverage,
				Tier:      TierFoundational,
				Buckets: []ScoreBucket{
					{Bound: 10, Score: 1.0},
					{Bound: 20, Score: 0.9},
					{Bound: 40, Score: 0.75},
					{Bound: 60, Score: 0.5},
				},
				FloorScore: 0.25,
			},
		},
		Confidence: ConfidenceParams{
			ImputationPenalty: 0.2,
			MissingKDEPenalty: 0.1,
			FallbackModifier:  0.75,
		},
	}
}

// Validate enforces the configuration invariants. A failure here is
// fatal at startup; the engine never runs on a partially valid config.
func (c QualityConfig) Validate() error {
	if len(c.Dimensions) == 0 {
		return fmt.Errorf("quality config: dimensions section is required")
	}
	if len(c.RiskWeights) == 0 {
		return fmt.Errorf("quality config: risk_weights section is required")
	}
	if len(c.TierWeights) == 0 {
		return fmt.Errorf("quality config: tier_weights section is required")
	}
	if len(c.KDERules) == 0 {
		return fmt.Errorf("quality config: kde_rules section is required")
	}
	if c.CriticalCap < 0.0 || c.CriticalCap > 1.0 {
		return fmt.Errorf("quality config: critical_cap %v outside [0,1]", c.CriticalCap)
	}
	for tier, w := range c.TierWeights {
		if w <= 0 {
			return fmt.Errorf("quality config: tier weight for %s must be positive", tier)
		}
	}
	for tier, w := range c.RiskWeights {
		if w <= 0 {
			return fmt.Errorf("quality config: risk weight for %s must be positive", tier)
		}
	}
	for name, rule := range c.KDERules {
		if rule.Dimension == "" {
			continue
		}
		if _, ok := c.Dimensions[rule.Dimension]; !ok {
			return fmt.Errorf("quality config: kde %s references unknown dimension %q", name, rule.Dimension)
		}
	}
	for _, name := range c.CriticalKDEs {
		if _, ok := c.KDERules[name]; !ok {
			return fmt.Errorf("quality config: critical kde %s has no rule", name)
		}
	}
	for name, syn := range c.Synthetic {
		if syn.Weight <= 0 {
			return fmt.Errorf("quality config: synthetic %s weight must be positive", name)
		}
		for i := 1; i < len(syn.Buckets); i++ {
			if syn.Buckets[i].Bound <= syn.Buckets[i-1].Bound {
				return fmt.Errorf("quality config: synthetic %s buckets must be ascending", name)
			}
		}
	}
	return nil
}

// RuleFor resolves a KDE name against configuration.
func (c QualityConfig) RuleFor(name string) (KDERule, bool) {
	rule, ok := c.KDERules[strings.ToLower(name)]
	if !ok {
		return KDERule{}, false
	}
	if rule.Dimension == "" {
		rule.Dimension = DimensionCompleteness
	}
	return rule, true
}

// DimensionTierOf returns the tier of a dimension, defaulting to
// foundational for the synthetic self-named dimensions.
func (c QualityConfig) DimensionTierOf(dimension string) DimensionTier {
	if tier, ok := c.Dimensions[dimension]; ok {
		return tier
	}
	return TierFoundational
}

// IsCritical reports whether a KDE is on the critical list.
func (c QualityConfig) IsCritical(name string) bool {
	for _, k := range c.CriticalKDEs {
		if k == name {
			return true
		}
	}
	return false
}

// KnownKDEs returns every configured KDE name, sorted.
func (c QualityConfig) KnownKDEs() []string {
	names := make([]string, 0, len(c.KDERules))
	for name := range c.KDERules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
