package dqsi

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/sentinel-analytics/dqsi-engine/internal/domain/dqsi"
	domainerrors "github.com/sentinel-analytics/dqsi-engine/internal/domain/errors"
)

// Conventional sub-keys of persisted alert/case records.
const (
	recordKDEDataKey  = "kde_data"
	recordMetadataKey = "dq_metadata"
	recordAlertsKey   = "alerts"
)

// Service orchestrates DQSI calculations. It is stateless per call;
// the only persistent object is the read-only configuration.
type Service struct {
	core
	strategy     Strategy
	fallbackMode bool
}

// NewService validates the configuration eagerly and selects the
// scoring strategy. An unrecognized strategy name degrades to fallback
// rather than failing, because a misconfigured plant still needs a
// trust signal.
func NewService(cfg domain.QualityConfig, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, domainerrors.NewConfigurationError("quality_rules", err.Error()).WithCause(err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{core: newCore(cfg, logger)}
	switch cfg.Strategy {
	case domain.StrategyRoleAware:
		s.strategy = NewRoleAwareStrategy(cfg, logger)
	case domain.StrategyFallback:
		s.strategy = NewFallbackStrategy(cfg, logger)
		s.fallbackMode = true
	default:
		logger.Warn("unrecognized dqsi strategy, using fallback",
			zap.String("strategy", cfg.Strategy))
		s.strategy = NewFallbackStrategy(cfg, logger)
		s.fallbackMode = true
	}
	return s, nil
}

// Strategy returns the name of the active scoring strategy.
func (s *Service) Strategy() string { return s.strategy.Name() }

// Calculate runs a full calculation. It never propagates a panic or an
// error for malformed input; an unexpected internal failure produces
// the fail-closed error assessment instead.
func (s *Service) Calculate(data map[string]interface{}, meta Metadata) (assessment domain.Assessment) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dqsi calculation failed, returning error assessment",
				zap.Any("panic", r))
			assessment = domain.NewErrorAssessment(s.strategy.Name(),
				fmt.Sprintf("calculation failed: %v", r))
		}
	}()

	results := s.strategy.ScoreKDEs(data, meta)
	return s.assemble(results, meta)
}

// assemble runs the shared aggregation over an already-scored result
// set. Used by Calculate and by the case-level pooled path.
func (s *Service) assemble(results []domain.KDEResult, meta Metadata) domain.Assessment {
	score := s.calculateScore(results)
	confidence, note := s.confidenceIndex(results, s.fallbackMode)

	return domain.Assessment{
		ID:              uuid.New(),
		Score:           score,
		ConfidenceIndex: confidence,
		Mode:            s.strategy.Name(),
		CriticalMissing: s.criticalMissing(results),
		SubScores:       s.dimensionScores(results),
		KDEWeights:      s.kdeWeights(results),
		ConfidenceNote:  note,
		Results:         results,
		Timestamp:       time.Now().UTC(),
	}
}

// CalculateForAlert scores one alert record and returns the flattened
// map ready for re-embedding into the record.
func (s *Service) CalculateForAlert(record map[string]interface{}) map[string]interface{} {
	data, meta := splitRecord(record)
	return s.Calculate(data, meta).Flatten()
}

// CalculateForCase scores a case record. Each sub-alert is scored
// independently; the pooled result set is aggregated once, answering
// whether the case as a whole is sufficiently supported rather than
// averaging per-alert scores.
func (s *Service) CalculateForCase(record map[string]interface{}) (out map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dqsi case calculation failed, returning error assessment",
				zap.Any("panic", r))
			failed := domain.NewErrorAssessment(s.strategy.Name(),
				fmt.Sprintf("case calculation failed: %v", r))
			out = failed.Flatten()
		}
	}()

	alerts := subAlerts(record)
	pooled := make([]domain.KDEResult, 0, len(alerts)*8)
	var meta Metadata
	for i, alert := range alerts {
		data, alertMeta := splitRecord(alert)
		if i == 0 {
			meta = alertMeta
		}
		pooled = append(pooled, s.strategy.ScoreKDEs(data, alertMeta)...)
	}

	assessment := s.assemble(pooled, meta)
	assessment.AlertCount = len(alerts)
	return assessment.Flatten()
}

func splitRecord(record map[string]interface{}) (map[string]interface{}, Metadata) {
	data := map[string]interface{}{}
	if raw, ok := record[recordKDEDataKey].(map[string]interface{}); ok {
		data = raw
	}
	meta := Metadata{Extra: map[string]interface{}{}}
	if raw, ok := record[recordMetadataKey].(map[string]interface{}); ok {
		meta = ParseMetadata(raw)
	}
	return data, meta
}

func subAlerts(record map[string]interface{}) []map[string]interface{} {
	raw, ok := record[recordAlertsKey]
	if !ok {
		// A case without sub-alerts scores its own payload as one alert.
		return []map[string]interface{}{record}
	}
	var alerts []map[string]interface{}
	switch list := raw.(type) {
	case []map[string]interface{}:
		alerts = list
	case []interface{}:
		for _, item := range list {
			if m, ok := item.(map[string]interface{}); ok {
				alerts = append(alerts, m)
			}
		}
	}
	return alerts
}

// CoverageReport is the read-only diagnostic over an input field map.
type CoverageReport struct {
	CoverageRatio   float64             `json:"coverage_ratio"`
	MissingKDEs     []string            `json:"missing_kdes"`
	MissingByTier   map[string][]string `json:"missing_by_risk_tier"`
	UnexpectedKDEs  []string            `json:"unexpected_kdes"`
	MissingCritical []string            `json:"missing_critical_kdes"`
}

// ValidateCoverage reports which configured KDEs the input covers.
// Unexpected fields are reported but never affect any score.
func (s *Service) ValidateCoverage(data map[string]interface{}) CoverageReport {
	report := CoverageReport{
		MissingKDEs:     []string{},
		MissingByTier:   map[string][]string{},
		UnexpectedKDEs:  []string{},
		MissingCritical: []string{},
	}

	// Fold input keys the same way rule lookup does, so a mixed-case
	// key counts as covering its configured KDE.
	provided := make(map[string]bool, len(data))
	for name := range data {
		provided[strings.ToLower(name)] = true
	}

	known := s.cfg.KnownKDEs()
	present := 0
	for _, name := range known {
		if provided[name] {
			present++
			continue
		}
		report.MissingKDEs = append(report.MissingKDEs, name)
		rule, _ := s.cfg.RuleFor(name)
		tier := string(rule.RiskTier)
		report.MissingByTier[tier] = append(report.MissingByTier[tier], name)
		if s.cfg.IsCritical(name) {
			report.MissingCritical = append(report.MissingCritical, name)
		}
	}
	if len(known) > 0 {
		report.CoverageRatio = float64(present) / float64(len(known))
	}

	for name := range data {
		if _, ok := s.cfg.RuleFor(name); !ok {
			report.UnexpectedKDEs = append(report.UnexpectedKDEs, name)
		}
	}
	sort.Strings(report.UnexpectedKDEs)
	return report
}

// ImpactSimulation is the before/after outcome of a what-if run.
type ImpactSimulation struct {
	BaselineScore      float64 `json:"baseline_score"`
	ModifiedScore      float64 `json:"modified_score"`
	BaselineConfidence float64 `json:"baseline_confidence"`
	ModifiedConfidence float64 `json:"modified_confidence"`
	ScoreDelta         float64 `json:"score_delta"`
	Impact             string  `json:"impact"`
}

// SimulateImpact scores the input before and after applying the given
// field modifications, and labels the score movement.
func (s *Service) SimulateImpact(data map[string]interface{}, modifications map[string]interface{}, meta Metadata) ImpactSimulation {
	before := s.Calculate(data, meta)

	modified := make(map[string]interface{}, len(data)+len(modifications))
	for k, v := range data {
		modified[k] = v
	}
	for k, v := range modifications {
		modified[k] = v
	}
	after := s.Calculate(modified, meta)

	delta := after.Score - before.Score
	return ImpactSimulation{
		BaselineScore:      before.Score,
		ModifiedScore:      after.Score,
		BaselineConfidence: before.ConfidenceIndex,
		ModifiedConfidence: after.ConfidenceIndex,
		ScoreDelta:         delta,
		Impact:             impactLabel(delta),
	}
}

func impactLabel(delta float64) string {
	magnitude := math.Abs(delta)
	switch {
	case magnitude < 0.01:
		return "minimal_change"
	case delta > 0 && magnitude > 0.1:
		return "significant_improvement"
	case delta > 0:
		return "moderate_improvement"
	case magnitude > 0.1:
		return "significant_degradation"
	default:
		return "moderate_degradation"
	}
}

// Recommendation priorities, best first.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Recommendation is one ranked remediation suggestion.
type Recommendation struct {
	KDE             string          `json:"kde"`
	Score           float64         `json:"score"`
	RiskTier        domain.RiskTier `json:"risk_tier"`
	Priority        string          `json:"priority"`
	Suggestion      string          `json:"suggestion"`
	EstimatedImpact float64         `json:"estimated_impact"`
}

// maxWeightedGap normalizes estimated impact: a high-risk KDE at score
// zero is the largest possible weighted gap under the configured
// risk_weights table.
func (s *Service) maxWeightedGap() float64 {
	max := s.riskWeight(domain.RiskTierHigh)
	for _, w := range s.cfg.RiskWeights {
		if w > max {
			max = w
		}
	}
	if max < 1 {
		max = 1
	}
	return float64(max)
}

// RecommendImprovements ranks remediation suggestions for every result
// scoring below 0.8, by priority, then risk tier, then estimated impact.
func (s *Service) RecommendImprovements(assessment domain.Assessment) []Recommendation {
	recs := []Recommendation{}
	for _, r := range assessment.Results {
		if r.Score >= 0.8 {
			continue
		}
		recs = append(recs, Recommendation{
			KDE:             r.Name,
			Score:           r.Score,
			RiskTier:        r.RiskTier,
			Priority:        s.priorityFor(r),
			Suggestion:      suggestionFor(r),
			EstimatedImpact: (1.0 - r.Score) * float64(r.RiskWeight) / s.maxWeightedGap(),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if pi, pj := priorityRank(recs[i].Priority), priorityRank(recs[j].Priority); pi != pj {
			return pi < pj
		}
		if wi, wj := s.riskWeight(recs[i].RiskTier), s.riskWeight(recs[j].RiskTier); wi != wj {
			return wi > wj
		}
		return recs[i].EstimatedImpact > recs[j].EstimatedImpact
	})
	return recs
}

func (s *Service) priorityFor(r domain.KDEResult) string {
	switch {
	case s.cfg.IsCritical(r.Name) && r.Score < 0.5:
		return PriorityCritical
	case (r.RiskTier == domain.RiskTierHigh && r.Score < 0.6) || r.Score < 0.4:
		return PriorityHigh
	case r.Score < 0.7:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func priorityRank(p string) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

func suggestionFor(r domain.KDEResult) string {
	switch {
	case r.Synthetic && r.Name == domain.SyntheticCoverage:
		return "supply baseline and current volume figures so feed coverage can be assessed"
	case r.Synthetic && r.Name == domain.SyntheticTimeliness:
		return "reduce feed lag or supply a usable event timestamp"
	case r.Score == 0.0:
		return fmt.Sprintf("populate %s at source; it is currently missing or empty", r.Name)
	case r.Imputed:
		return fmt.Sprintf("replace the placeholder value in %s with the real value", r.Name)
	default:
		return fmt.Sprintf("review the source mapping and validation rules for %s", r.Name)
	}
}
