package forest

import (
	"runtime"
	"sort"

	"github.com/cran/literanger/literangererr"
	"github.com/cran/literanger/tree"
)

// TreeType selects classification or regression semantics for Plant.
type TreeType int

const (
	Classification TreeType = iota
	Regression
)

func ParseTreeType(name string) (TreeType, error) {
	switch name {
	case "classification":
		return Classification, nil
	case "regression":
		return Regression, nil
	default:
		return 0, literangererr.InvalidArgumentf("unknown tree_type %q", name)
	}
}

// Config collects the training-call inputs from §6. It is a plain record
// rather than a chain of functional options: nearly every field is
// mandatory domain configuration, not an optional knob layered onto a
// sensible default the way the teacher's NumWorkers/ComputeOOB were.
type Config struct {
	TreeType TreeType
	NTree    int

	PredictorNames    []string
	NamesOfUnordered  []string // subset of PredictorNames
	NamesOfAlwaysDraw []string // subset of PredictorNames

	CaseWeights          []float64
	Replace              bool
	SampleFraction       []float64
	NTry                 int
	DrawPredictorWeights []float64
	ResponseWeights      []float64 // classification only

	SplitRuleName   string
	MaxDepth        int
	MinSplitNSample int
	MinLeafNSample  int
	NRandomSplit    int     // EXTRATREES
	Alpha           float64 // MAXSTAT
	MinProp         float64 // MAXSTAT

	Seed            uint64 // 0 = non-deterministic
	SaveMemory      bool
	NThread         int // 0 = implementation default
	Verbose         bool
	ComputeOOBError bool

	Printer Printer
	Clock   Clock
	Probe   InterruptProbe
}

// resolved holds the post-default, post-validation values Plant actually
// uses; nThread, nTry, minSplitNSample, minLeafNSample, splitRule and the
// predictor name/ordered-flag vectors are all subject to §6's "0 ⇒ default"
// rules, which Config.resolve applies once up front.
type resolved struct {
	nPredictor      int
	isOrdered       []bool
	alwaysDrawKeys  []int
	splitRule       tree.SplitRule
	nTry            int
	minSplitNSample int
	minLeafNSample  int
	nThread         int
}

// resolve applies §6's default-resolution rules and the structural checks
// from §7's InvalidArgument list that do not depend on the response values
// (those are checked by the Classification/Regression-specific Plant).
func (c *Config) resolve(nPredictor int) (resolved, error) {
	var r resolved
	r.nPredictor = nPredictor

	if len(c.PredictorNames) != nPredictor {
		return r, literangererr.InvalidArgumentf(
			"predictor_names length %d != n_predictor %d", len(c.PredictorNames), nPredictor)
	}

	index := make(map[string]int, nPredictor)
	for i, name := range c.PredictorNames {
		index[name] = i
	}

	r.isOrdered = make([]bool, nPredictor)
	for i := range r.isOrdered {
		r.isOrdered[i] = true
	}
	for _, name := range c.NamesOfUnordered {
		i, ok := index[name]
		if !ok {
			return r, literangererr.InvalidArgumentf("names_of_unordered: %q is not a predictor name", name)
		}
		r.isOrdered[i] = false
	}

	for _, name := range c.NamesOfAlwaysDraw {
		i, ok := index[name]
		if !ok {
			return r, literangererr.InvalidArgumentf("names_of_always_draw: %q is not a predictor name", name)
		}
		r.alwaysDrawKeys = append(r.alwaysDrawKeys, i)
	}
	sort.Ints(r.alwaysDrawKeys)

	splitRule, err := tree.ParseSplitRule(c.SplitRuleName)
	if err != nil {
		return r, err
	}
	if splitRule == tree.Hellinger && c.TreeType != Classification {
		return r, literangererr.InvalidArgumentf("hellinger is only valid for classification trees")
	}
	if (splitRule == tree.MaxStat || splitRule == tree.Beta) && c.TreeType != Regression {
		return r, literangererr.InvalidArgumentf("%s is only valid for regression trees", splitRule)
	}
	r.splitRule = splitRule

	r.nTry = c.NTry
	if r.nTry == 0 {
		r.nTry = intMax(1, isqrt(nPredictor))
	}
	if r.nTry <= 0 || r.nTry > nPredictor {
		return r, literangererr.InvalidArgumentf("n_try must be in [1, n_predictor], got %d", r.nTry)
	}

	r.minSplitNSample = c.MinSplitNSample
	if r.minSplitNSample == 0 {
		if c.TreeType == Classification {
			r.minSplitNSample = 2
		} else {
			r.minSplitNSample = 5
		}
	}

	r.minLeafNSample = c.MinLeafNSample
	if r.minLeafNSample == 0 {
		r.minLeafNSample = 1
	}

	r.nThread = c.NThread
	if r.nThread == 0 {
		r.nThread = runtime.GOMAXPROCS(0)
	}
	if r.nThread < 1 {
		return r, literangererr.InvalidArgumentf("n_thread must be >= 1 after default resolution, got %d", r.nThread)
	}

	if len(c.CaseWeights) > 0 && len(c.SampleFraction) > 1 {
		return r, literangererr.InvalidArgumentf("case_weights cannot be combined with response-wise sample_fraction")
	}

	return r, nil
}

// trainingParameters builds the TrainingParameters shared by every tree in
// the forest; Plant passes the same record to each tree's Grow.
func (r *resolved) trainingParameters(c *Config) *tree.TrainingParameters {
	minMetricDecrease := 0.0
	if r.splitRule == tree.MaxStat {
		minMetricDecrease = -c.Alpha
	}
	sampleFraction := c.SampleFraction
	if len(sampleFraction) == 0 {
		sampleFraction = []float64{1.0}
	}
	return &tree.TrainingParameters{
		Replace:                 c.Replace,
		SampleFraction:          append([]float64(nil), sampleFraction...),
		IsOrdered:               append([]bool(nil), r.isOrdered...),
		NTry:                    r.nTry,
		DrawAlwaysPredictorKeys: append([]int(nil), r.alwaysDrawKeys...),
		DrawPredictorWeights:    append([]float64(nil), c.DrawPredictorWeights...),
		ResponseWeights:         append([]float64(nil), c.ResponseWeights...),
		SplitRule:               r.splitRule,
		MinMetricDecrease:       minMetricDecrease,
		MaxDepth:                c.MaxDepth,
		MinSplitNSample:         r.minSplitNSample,
		MinLeafNSample:          r.minLeafNSample,
		NRandomSplit:            c.NRandomSplit,
		MinProp:                 c.MinProp,
		Alpha:                   c.Alpha,
	}
}

func intMax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	x := 1
	for x*x <= n {
		x++
	}
	return x - 1
}
