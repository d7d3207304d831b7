package dqsi

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	domain "github.com/sentinel-analytics/dqsi-engine/internal/domain/dqsi"
)

// Strategy turns raw field values plus configuration into per-KDE
// results. Aggregation is shared; only per-field scoring differs.
type Strategy interface {
	Name() string
	ScoreKDEs(data map[string]interface{}, meta Metadata) []domain.KDEResult
}

// fieldScorer is the per-field hook a concrete strategy supplies to the
// shared scoring driver.
type fieldScorer func(name string, value domain.FieldValue, meta Metadata) domain.KDEResult

// core holds the aggregation algorithms shared by both strategies and
// the orchestrator. It is stateless beyond the immutable configuration.
type core struct {
	cfg    domain.QualityConfig
	logger *zap.Logger
}

func newCore(cfg domain.QualityConfig, logger *zap.Logger) core {
	if logger == nil {
		logger = zap.NewNop()
	}
	return core{cfg: cfg, logger: logger}
}

// placeholderTokens are recognized imputed values. Case-insensitive.
var placeholderTokens = map[string]bool{
	"unknown": true,
	"n/a":     true,
	"na":      true,
	"null":    true,
	"missing": true,
	"none":    true,
}

func isPlaceholder(v domain.FieldValue) bool {
	if v.Kind() != domain.KindString {
		return false
	}
	return placeholderTokens[strings.ToLower(strings.TrimSpace(v.String()))]
}

// scoreKDEs runs the per-field scorer over every field both present in
// the input and known to configuration, sorted by name so output order
// is reproducible, then appends the two synthetic results. A panic in
// one field scorer is contained to that field.
//
// Rule lookup folds case, so result names are folded to the configured
// lowercase form as well; otherwise a "Trader_ID" key would score under
// one name and be checked against the critical list under another. When
// both casings of a key appear, the exact lowercase one wins.
func (c core) scoreKDEs(scorer fieldScorer, data map[string]interface{}, meta Metadata) []domain.KDEResult {
	sources := make(map[string]string, len(data))
	names := make([]string, 0, len(data))
	for name := range data {
		if _, ok := c.cfg.RuleFor(name); !ok {
			continue
		}
		folded := strings.ToLower(name)
		prev, seen := sources[folded]
		if seen && prev == folded {
			continue
		}
		if !seen {
			names = append(names, folded)
		}
		sources[folded] = name
	}
	sort.Strings(names)

	results := make([]domain.KDEResult, 0, len(names)+2)
	for _, name := range names {
		results = append(results, c.scoreOne(scorer, name, domain.FieldValueOf(data[sources[name]]), meta))
	}
	return append(results, c.syntheticKDEs(data, meta)...)
}

func (c core) scoreOne(scorer fieldScorer, name string, value domain.FieldValue, meta Metadata) (result domain.KDEResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("kde scoring failed, recording conservative result",
				zap.String("kde", name), zap.Any("panic", r))
			result = c.failedResult(name, fmt.Sprintf("scoring failed: %v", r))
		}
	}()
	return scorer(name, value, meta)
}

// riskWeight resolves a risk tier through the configured table, falling
// back to the tier default when the table omits it.
func (c core) riskWeight(tier domain.RiskTier) int {
	if w, ok := c.cfg.RiskWeights[tier]; ok {
		return w
	}
	return tier.Weight()
}

// tierWeight resolves a dimension tier through the configured table.
func (c core) tierWeight(tier domain.DimensionTier) float64 {
	if w, ok := c.cfg.TierWeights[tier]; ok {
		return w
	}
	return tier.Weight()
}

// failedResult is the conservative per-field outcome when scoring one
// field blows up: score zero, never aborts the calculation.
func (c core) failedResult(name, details string) domain.KDEResult {
	rule, _ := c.cfg.RuleFor(name)
	dimTier := c.cfg.DimensionTierOf(rule.Dimension)
	result, err := domain.NewKDEResult(name, 0.0, rule.RiskTier, rule.Dimension, dimTier)
	if err != nil {
		result = domain.KDEResult{Name: name, RiskTier: domain.RiskTierLow, Dimension: domain.DimensionCompleteness, Tier: domain.TierFoundational}
	}
	return result.WithWeights(c.riskWeight(result.RiskTier), c.tierWeight(result.Tier)).WithDetails(details)
}

// newResult builds a result for a configured KDE, clamping any scorer
// output that drifted outside [0,1]. Weights come from the configured
// risk_weights and tier_weights tables, not the tier defaults.
func (c core) newResult(name string, score float64, rule domain.KDERule) domain.KDEResult {
	dimTier := c.cfg.DimensionTierOf(rule.Dimension)
	result, err := domain.NewKDEResult(name, clamp01(score), rule.RiskTier, rule.Dimension, dimTier)
	if err != nil {
		return c.failedResult(name, err.Error())
	}
	return result.WithWeights(c.riskWeight(rule.RiskTier), c.tierWeight(dimTier))
}

// calculateScore computes the risk- and tier-weighted mean, then
// enforces the critical cap: an alert is never reported sufficiently
// supported while a critical identifying field is absent.
func (c core) calculateScore(results []domain.KDEResult) float64 {
	if len(results) == 0 {
		return 0.0
	}
	var num, den float64
	for _, r := range results {
		num += r.WeightedScore()
		den += r.Weight()
	}
	if den == 0 {
		return 0.0
	}
	raw := num / den
	if len(c.criticalMissing(results)) > 0 && raw > c.cfg.CriticalCap {
		raw = c.cfg.CriticalCap
	}
	return clamp01(raw)
}

// criticalMissing returns critical-listed KDEs that either produced no
// result at all or scored exactly zero. Sorted for stable output.
func (c core) criticalMissing(results []domain.KDEResult) []string {
	scored := make(map[string]float64, len(results))
	for _, r := range results {
		if !r.Synthetic {
			scored[r.Name] = r.Score
		}
	}
	missing := []string{}
	for _, name := range c.cfg.CriticalKDEs {
		score, present := scored[strings.ToLower(name)]
		if !present || score == 0.0 {
			missing = append(missing, strings.ToLower(name))
		}
	}
	sort.Strings(missing)
	return missing
}

// confidenceIndex computes the confidence signal and its explanatory
// note. The coverage term is the plain fraction of non-zero results;
// an earlier sub-dimension-level second term collapsed into it and was
// retired.
func (c core) confidenceIndex(results []domain.KDEResult, fallbackMode bool) (float64, string) {
	if len(results) == 0 {
		return 0.0, "no KDEs available for confidence assessment"
	}

	var nonZero, imputed int
	for _, r := range results {
		if r.Score > 0 {
			nonZero++
		}
		if r.Imputed {
			imputed++
		}
	}
	coverage := float64(nonZero) / float64(len(results))
	imputationRate := float64(imputed) / float64(len(results))
	missingCritical := len(c.criticalMissing(results))

	confidence := coverage -
		c.cfg.Confidence.MissingKDEPenalty*float64(missingCritical) -
		c.cfg.Confidence.ImputationPenalty*imputationRate
	if fallbackMode {
		confidence *= c.cfg.Confidence.FallbackModifier
	}

	note := fmt.Sprintf("%d critical KDEs missing; %.0f%% of KDEs imputed",
		missingCritical, imputationRate*100)
	if fallbackMode {
		note += "; fallback mode confidence modifier applied"
	}
	return clamp01(confidence), note
}

// dimensionScores groups the weighted mean by dimension.
func (c core) dimensionScores(results []domain.KDEResult) map[string]float64 {
	nums := map[string]float64{}
	dens := map[string]float64{}
	for _, r := range results {
		nums[r.Dimension] += r.WeightedScore()
		dens[r.Dimension] += r.Weight()
	}
	scores := make(map[string]float64, len(nums))
	for dim, den := range dens {
		if den > 0 {
			scores[dim] = clamp01(nums[dim] / den)
		}
	}
	return scores
}

// kdeWeights maps every result to its risk weight for the output.
func (c core) kdeWeights(results []domain.KDEResult) map[string]int {
	weights := make(map[string]int, len(results))
	for _, r := range results {
		weights[r.Name] = r.RiskWeight
	}
	return weights
}

// timelinessFields is the ordered priority list of timestamp-like names
// searched for the synthetic timeliness signal.
var timelinessFields = []string{
	"event_timestamp",
	"trade_timestamp",
	"transaction_timestamp",
	"execution_timestamp",
	"timestamp",
	"trade_date",
	"created_at",
}

// syntheticKDEs produces the two always-present feed-level results.
// Sorted by name to match the deterministic ordering contract.
func (c core) syntheticKDEs(data map[string]interface{}, meta Metadata) []domain.KDEResult {
	results := []domain.KDEResult{
		c.coverageKDE(meta),
		c.timelinessKDE(data, meta),
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

func (c core) timelinessKDE(data map[string]interface{}, meta Metadata) domain.KDEResult {
	def := c.syntheticDef(domain.SyntheticTimeliness)

	var observed domain.FieldValue
	var source string
	for _, field := range timelinessFields {
		if raw, ok := data[field]; ok {
			observed = domain.FieldValueOf(raw)
			source = field
			break
		}
		if raw, ok := meta.Extra[field]; ok {
			observed = domain.FieldValueOf(raw)
			source = field
			break
		}
	}

	ts, ok := parseTimestamp(observed)
	if source == "" || !ok {
		return c.syntheticResult(def, 0.0, "no usable timestamp field found")
	}

	hours := meta.Now().Sub(ts).Hours()
	if hours < 0 {
		hours = 0
	}
	score := bucketScore(def, hours)
	return c.syntheticResult(def, score,
		fmt.Sprintf("feed lag %.1fh from %s", hours, source))
}

func (c core) coverageKDE(meta Metadata) domain.KDEResult {
	def := c.syntheticDef(domain.SyntheticCoverage)

	if !meta.HasBaseline || meta.BaselineVolume <= 0 {
		return c.syntheticResult(def, 0.0, "no baseline volume supplied")
	}
	current := meta.CurrentVolume
	if !meta.HasCurrent {
		current = 0
	}
	dropPct := (meta.BaselineVolume - current) / meta.BaselineVolume * 100
	if dropPct < 0 {
		dropPct = 0
	}
	score := bucketScore(def, dropPct)
	return c.syntheticResult(def, score,
		fmt.Sprintf("volume drop %.1f%% against baseline %.0f", dropPct, meta.BaselineVolume))
}

func (c core) syntheticDef(name string) domain.SyntheticKDE {
	if def, ok := c.cfg.Synthetic[name]; ok {
		if def.Name == "" {
			def.Name = name
		}
		if def.Dimension == "" {
			def.Dimension = name
		}
		return def
	}
	// Fall back to the defaults so a partial rules file still yields
	// both synthetic results.
	return domain.DefaultQualityConfig().Synthetic[name]
}

func (c core) syntheticResult(def domain.SyntheticKDE, score float64, details string) domain.KDEResult {
	weight := def.Weight
	if weight <= 0 {
		weight = c.riskWeight(domain.RiskTierHigh)
	}
	result := domain.KDEResult{
		Name:       def.Name,
		Score:      clamp01(score),
		RiskTier:   domain.RiskTierHigh,
		RiskWeight: weight,
		Dimension:  def.Dimension,
		Tier:       domain.TierFoundational,
		TierWeight: c.tierWeight(domain.TierFoundational),
	}
	return result.WithSynthetic().WithDetails(details)
}

// bucketScore walks the ascending buckets and returns the first score
// whose bound covers the measured value, falling through to the floor.
func bucketScore(def domain.SyntheticKDE, measured float64) float64 {
	for _, b := range def.Buckets {
		if measured <= b.Bound {
			return b.Score
		}
	}
	return def.FloorScore
}

func clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
