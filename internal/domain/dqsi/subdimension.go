package dqsi

// MeasurementType classifies how a sub-dimension is measured.
type MeasurementType string

const (
	MeasurementPresence   MeasurementType = "presence"
	MeasurementFormat     MeasurementType = "format"
	MeasurementRange      MeasurementType = "range"
	MeasurementLag        MeasurementType = "lag"
	MeasurementVolume     MeasurementType = "volume"
	MeasurementComparison MeasurementType = "comparison"
	MeasurementStatistic  MeasurementType = "statistic"
)

// ComparisonType classifies what the measurement is compared against.
type ComparisonType string

const (
	CompareNone           ComparisonType = "none"
	CompareThreshold      ComparisonType = "threshold"
	CompareReferenceValue ComparisonType = "reference_value"
	CompareGoldenSource   ComparisonType = "golden_source"
	CompareCrossSystem    ComparisonType = "cross_system"
)

// SubDimension is one declarative entry in the quality-check registry.
// The table is populated once at process start and never mutated.
type SubDimension struct {
	Name             string
	Measurement      MeasurementType
	Comparison       ComparisonType
	Dimension        string
	Tier             DimensionTier
	Rationale        string
	RequiredFallback bool
	RequiredConsumer bool
	RequiredProducer bool
}

// subDimensionRegistry maps every known quality check to its parent
// dimension and to the strategy/role combinations that exercise it.
var subDimensionRegistry = []SubDimension{
	{
		Name:             "null_presence",
		Measurement:      MeasurementPresence,
		Comparison:       CompareNone,
		Dimension:        DimensionCompleteness,
		Tier:             TierFoundational,
		Rationale:        "a missing field carries no evidentiary weight",
		RequiredFallback: true,
		RequiredConsumer: true,
		RequiredProducer: true,
	},
	{
		Name:             "format",
		Measurement:      MeasurementFormat,
		Comparison:       CompareThreshold,
		Dimension:        DimensionConformity,
		Tier:             TierFoundational,
		Rationale:        "malformed identifiers and dates cannot be joined downstream",
		RequiredFallback: true,
		RequiredConsumer: true,
		RequiredProducer: true,
	},
	{
		Name:             "range",
		Measurement:      MeasurementRange,
		Comparison:       CompareThreshold,
		Dimension:        DimensionConformity,
		Tier:             TierFoundational,
		Rationale:        "out-of-range numerics point at feed corruption",
		RequiredFallback: true,
		RequiredConsumer: true,
		RequiredProducer: true,
	},
	{
		Name:             "timeliness_lag",
		Measurement:      MeasurementLag,
		Comparison:       CompareThreshold,
		Dimension:        DimensionTimeliness,
		Tier:             TierFoundational,
		Rationale:        "stale feeds degrade every downstream judgement",
		RequiredFallback: true,
		RequiredConsumer: true,
		RequiredProducer: true,
	},
	{
		Name:             "volume_drop",
		Measurement:      MeasurementVolume,
		Comparison:       CompareThreshold,
		Dimension:        DimensionCoverage,
		Tier:             TierFoundational,
		Rationale:        "a silent volume drop hides the records that matter",
		RequiredFallback: true,
		RequiredConsumer: true,
		RequiredProducer: true,
	},
	{
		Name:             "reference_match",
		Measurement:      MeasurementComparison,
		Comparison:       CompareReferenceValue,
		Dimension:        DimensionAccuracy,
		Tier:             TierEnhanced,
		Rationale:        "producers own the field and must match the reference value",
		RequiredProducer: true,
	},
	{
		Name:             "reconciliation_match",
		Measurement:      MeasurementComparison,
		Comparison:       CompareGoldenSource,
		Dimension:        DimensionAccuracy,
		Tier:             TierEnhanced,
		Rationale:        "independent reconciliation catches one-sided corrections",
		RequiredProducer: true,
	},
	{
		Name:             "reference_type",
		Measurement:      MeasurementComparison,
		Comparison:       CompareReferenceValue,
		Dimension:        DimensionAccuracy,
		Tier:             TierEnhanced,
		Rationale:        "consumers only need type-compatible values",
		RequiredConsumer: true,
	},
	{
		Name:             "duplicate_rate",
		Measurement:      MeasurementStatistic,
		Comparison:       CompareCrossSystem,
		Dimension:        DimensionUniqueness,
		Tier:             TierEnhanced,
		Rationale:        "duplicate records inflate apparent evidence",
		RequiredProducer: true,
	},
	{
		Name:             "cross_consistency",
		Measurement:      MeasurementStatistic,
		Comparison:       CompareCrossSystem,
		Dimension:        DimensionConsistency,
		Tier:             TierEnhanced,
		Rationale:        "the same trade should look the same in every system",
		RequiredProducer: true,
	},
}

// SubDimensions returns the full registry.
func SubDimensions() []SubDimension {
	out := make([]SubDimension, len(subDimensionRegistry))
	copy(out, subDimensionRegistry)
	return out
}

// SubDimensionsFor returns the names of the checks required for the
// given strategy and role. Pure lookup over the static table.
func SubDimensionsFor(strategy, role string) []string {
	var names []string
	for _, sd := range subDimensionRegistry {
		if requiredFor(sd, strategy, role) {
			names = append(names, sd.Name)
		}
	}
	return names
}

// DimensionsFor returns the distinct parent dimensions of the checks
// required for the given strategy and role, in registry order.
func DimensionsFor(strategy, role string) []string {
	seen := make(map[string]bool)
	var dims []string
	for _, sd := range subDimensionRegistry {
		if !requiredFor(sd, strategy, role) || seen[sd.Dimension] {
			continue
		}
		seen[sd.Dimension] = true
		dims = append(dims, sd.Dimension)
	}
	return dims
}

func requiredFor(sd SubDimension, strategy, role string) bool {
	if strategy == StrategyFallback {
		return sd.RequiredFallback
	}
	if role == RoleProducer {
		return sd.RequiredProducer
	}
	return sd.RequiredConsumer
}
