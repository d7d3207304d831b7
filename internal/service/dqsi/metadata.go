package dqsi

import (
	"strings"
	"time"

	domain "github.com/sentinel-analytics/dqsi-engine/internal/domain/dqsi"
)

// Metadata carries the optional, already-resolved context for one
// calculation. Reference and reconciliation values arrive as in-memory
// maps; the engine never performs live lookups.
type Metadata struct {
	Role               string
	ReferenceData      map[string]interface{}
	ReconciliationData map[string]interface{}
	BaselineVolume     float64
	CurrentVolume      float64
	HasBaseline        bool
	HasCurrent         bool
	ReferenceTime      time.Time
	Extra              map[string]interface{}
}

// NormalizedRole returns producer or consumer, defaulting to consumer.
func (m Metadata) NormalizedRole() string {
	if strings.EqualFold(strings.TrimSpace(m.Role), domain.RoleProducer) {
		return domain.RoleProducer
	}
	return domain.RoleConsumer
}

// Now returns the reference timestamp for timeliness, or wall-clock
// time when none was supplied. A fixed reference time keeps repeated
// calculations idempotent.
func (m Metadata) Now() time.Time {
	if !m.ReferenceTime.IsZero() {
		return m.ReferenceTime
	}
	return time.Now().UTC()
}

// ParseMetadata extracts the recognized keys from a raw metadata map.
// Unrecognized keys are preserved in Extra so timestamp-bearing fields
// remain visible to the synthetic timeliness signal.
func ParseMetadata(raw map[string]interface{}) Metadata {
	meta := Metadata{Extra: map[string]interface{}{}}
	for key, value := range raw {
		switch strings.ToLower(key) {
		case "role":
			if s, ok := value.(string); ok {
				meta.Role = s
			}
		case "reference_data":
			if m, ok := value.(map[string]interface{}); ok {
				meta.ReferenceData = m
			}
		case "reconciliation_data":
			if m, ok := value.(map[string]interface{}); ok {
				meta.ReconciliationData = m
			}
		case "baseline_volume":
			if d, ok := domain.FieldValueOf(value).Number(); ok {
				f, _ := d.Float64()
				meta.BaselineVolume = f
				meta.HasBaseline = true
			}
		case "current_volume":
			if d, ok := domain.FieldValueOf(value).Number(); ok {
				f, _ := d.Float64()
				meta.CurrentVolume = f
				meta.HasCurrent = true
			}
		case "reference_timestamp":
			if ts, ok := parseTimestamp(domain.FieldValueOf(value)); ok {
				meta.ReferenceTime = ts
			}
		default:
			meta.Extra[key] = value
		}
	}
	return meta
}

// timestampFormats are tried in order before giving up on a value.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// parseTimestamp interprets a field value as a point in time. Numeric
// values are treated as unix seconds.
func parseTimestamp(v domain.FieldValue) (time.Time, bool) {
	switch v.Kind() {
	case domain.KindNumber:
		secs := int64(v.Float())
		if secs <= 0 {
			return time.Time{}, false
		}
		return time.Unix(secs, 0).UTC(), true
	case domain.KindString:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampFormats {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
