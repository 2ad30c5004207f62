package tree

import "github.com/cran/literanger/literangererr"

// SplitRule identifies the objective evaluated at each candidate split.
// The literal names below don't correspond to survival analysis despite
// "LogRank": it is the sum-of-squares/Gini criterion.
type SplitRule int

const (
	LogRank SplitRule = iota
	MaxStat
	ExtraTrees
	Beta
	Hellinger
)

func (r SplitRule) String() string {
	switch r {
	case LogRank:
		return "logrank"
	case MaxStat:
		return "maxstat"
	case ExtraTrees:
		return "extratrees"
	case Beta:
		return "beta"
	case Hellinger:
		return "hellinger"
	default:
		return "unknown"
	}
}

// ParseSplitRule maps the external, case-sensitive rule name strings from
// the training call (§6) to a SplitRule.
func ParseSplitRule(name string) (SplitRule, error) {
	switch name {
	case "gini", "variance":
		return LogRank, nil
	case "maxstat":
		return MaxStat, nil
	case "extratrees":
		return ExtraTrees, nil
	case "beta":
		return Beta, nil
	case "hellinger":
		return Hellinger, nil
	default:
		return 0, literangererr.InvalidArgumentf("unknown split rule %q", name)
	}
}

// TrainingParameters configures the growth of a single tree. Plant builds
// one from its Config and passes it to the Grow call of every tree.
type TrainingParameters struct {
	Replace        bool
	SampleFraction []float64 // scalar (length 1) = uniform; length R = per-response-class

	NTry                    int
	DrawAlwaysPredictorKeys []int     // sorted
	DrawPredictorWeights    []float64 // empty = uniform, else length n_predictor

	ResponseWeights []float64 // classification only; empty = uniform

	// IsOrdered reports, per predictor column, whether that column is an
	// ordered (numeric) predictor or a categorical one whose integer levels
	// are routed by bit partition. Empty/nil means every column is ordered.
	IsOrdered []bool

	SplitRule         SplitRule
	MinMetricDecrease float64
	MaxDepth          int // 0 = unlimited
	MinSplitNSample   int
	MinLeafNSample    int
	NRandomSplit      int     // > 0 iff ExtraTrees
	MinProp           float64 // MaxStat
	Alpha             float64 // MaxStat: MinMetricDecrease = -Alpha
}

// isOrdered reports whether predictor col is ordered under p, defaulting
// to ordered when IsOrdered was left empty.
func (p *TrainingParameters) isOrdered(col int) bool {
	if len(p.IsOrdered) == 0 {
		return true
	}
	return p.IsOrdered[col]
}

// Validate checks the structural invariants from §7 that do not depend on
// data seen only at grow time (those are checked in Base.Grow).
func (p *TrainingParameters) Validate(nPredictor int) error {
	if p.NTry <= 0 {
		return literangererr.InvalidArgumentf("n_try must be > 0, got %d", p.NTry)
	}
	if len(p.DrawPredictorWeights) > 0 && len(p.DrawPredictorWeights) != nPredictor {
		return literangererr.InvalidArgumentf(
			"draw_predictor_weights length %d != n_predictor %d", len(p.DrawPredictorWeights), nPredictor)
	}
	if len(p.IsOrdered) > 0 && len(p.IsOrdered) != nPredictor {
		return literangererr.InvalidArgumentf(
			"is_ordered length %d != n_predictor %d", len(p.IsOrdered), nPredictor)
	}
	if len(p.SampleFraction) == 0 {
		return literangererr.InvalidArgumentf("sample_fraction must not be empty")
	}
	for _, f := range p.SampleFraction {
		if f < 0 {
			return literangererr.DomainErrorf("sample_fraction entries must be non-negative, got %v", f)
		}
	}
	if p.SplitRule == ExtraTrees && p.NRandomSplit <= 0 {
		return literangererr.InvalidArgumentf("n_random_split must be > 0 for extratrees")
	}
	if p.SplitRule != ExtraTrees && p.NRandomSplit > 0 {
		return literangererr.InvalidArgumentf("n_random_split is only valid for extratrees")
	}
	return nil
}
