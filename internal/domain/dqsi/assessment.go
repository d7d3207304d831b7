package dqsi

import (
	"time"

	"github.com/google/uuid"
)

// Assessment is the aggregate output of one calculation. Created once,
// immutable, consumed by external alert/case stores.
type Assessment struct {
	ID              uuid.UUID          `json:"assessment_id"`
	Score           float64            `json:"dqsi_score"`
	ConfidenceIndex float64            `json:"dqsi_confidence_index"`
	Mode            string             `json:"dqsi_mode"`
	CriticalMissing []string           `json:"dqsi_critical_kdes_missing"`
	SubScores       map[string]float64 `json:"dqsi_sub_scores"`
	KDEWeights      map[string]int     `json:"dqsi_kde_weights"`
	ConfidenceNote  string             `json:"dqsi_confidence_note"`
	Results         []KDEResult        `json:"kde_results"`
	AlertCount      int                `json:"case_alert_count,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// NewErrorAssessment is the fail-closed output: a broken scoring path
// degrades the trust signal to zero instead of crashing the pipeline.
func NewErrorAssessment(mode, note string) Assessment {
	return Assessment{
		ID:              uuid.New(),
		Score:           0.0,
		ConfidenceIndex: 0.0,
		Mode:            mode,
		CriticalMissing: []string{},
		SubScores:       map[string]float64{},
		KDEWeights:      map[string]int{},
		ConfidenceNote:  note,
		Results:         []KDEResult{},
		Timestamp:       time.Now().UTC(),
	}
}

// Flatten produces the map shape embedded into alert/case records.
func (a Assessment) Flatten() map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(a.Results))
	for _, r := range a.Results {
		results = append(results, map[string]interface{}{
			"name":         r.Name,
			"score":        r.Score,
			"risk_tier":    string(r.RiskTier),
			"risk_weight":  r.RiskWeight,
			"dimension":    r.Dimension,
			"tier":         string(r.Tier),
			"is_synthetic": r.Synthetic,
			"imputed":      r.Imputed,
			"details":      r.Details,
		})
	}

	out := map[string]interface{}{
		"dqsi_score":                 a.Score,
		"dqsi_confidence_index":      a.ConfidenceIndex,
		"dqsi_mode":                  a.Mode,
		"dqsi_critical_kdes_missing": a.CriticalMissing,
		"dqsi_sub_scores":            a.SubScores,
		"dqsi_kde_weights":           a.KDEWeights,
		"dqsi_confidence_note":       a.ConfidenceNote,
		"kde_results":                results,
		"timestamp":                  a.Timestamp.UTC().Format(time.RFC3339),
	}
	if a.AlertCount > 0 {
		out["case_alert_count"] = a.AlertCount
	}
	return out
}
