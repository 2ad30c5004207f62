package tree

import (
	"math"
	"math/rand"
	"sync"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/draw"
)

// Regression is a regression tree: Base's flat node arrays plus, per leaf,
// the response values of the in-bag rows that landed there.
type Regression struct {
	Base

	leafResponseValues [][]float64

	mu        sync.Mutex
	meanCache []float64
	hasMean   []bool
}

// NewRegression allocates an ungrown regression tree over nPredictor
// predictor columns.
func NewRegression(nPredictor int) *Regression {
	return &Regression{Base: newBase(nPredictor)}
}

// Grow builds the tree over sampleKeys, delegating the breadth-first split
// loop to Base and supplying the regression-specific decrease search.
func (r *Regression) Grow(view *data.View, sampleKeys []int, params *TrainingParameters, rng *rand.Rand) error {
	return r.Base.Grow(r, view, sampleKeys, params, rng)
}

// LeafResponseValues returns the response values stored at leaf nodeID.
func (r *Regression) LeafResponseValues(nodeID int) []float64 {
	if nodeID >= len(r.leafResponseValues) {
		return nil
	}
	return r.leafResponseValues[nodeID]
}

// SetLeafResponseValues installs the response values for leaf nodeID
// directly, used by serialize.Load to reconstruct a tree without re-growing
// it.
func (r *Regression) SetLeafResponseValues(nodeID int, values []float64) {
	if nodeID >= len(r.leafResponseValues) {
		grown := make([][]float64, nodeID+1)
		copy(grown, r.leafResponseValues)
		r.leafResponseValues = grown
	}
	r.leafResponseValues[nodeID] = values
}

func (r *Regression) allResponsesEqual(view *data.View, sampleKeys []int) bool {
	if len(sampleKeys) == 0 {
		return true
	}
	first := view.GetY(sampleKeys[0], 0)
	for _, row := range sampleKeys[1:] {
		if view.GetY(row, 0) != first {
			return false
		}
	}
	return true
}

func (r *Regression) recordLeaf(view *data.View, nodeID int, sampleKeys []int) {
	if nodeID >= len(r.leafResponseValues) {
		grown := make([][]float64, nodeID+1)
		copy(grown, r.leafResponseValues)
		r.leafResponseValues = grown
	}
	values := make([]float64, len(sampleKeys))
	for i, row := range sampleKeys {
		values[i] = view.GetY(row, 0)
	}
	r.leafResponseValues[nodeID] = values
}

// MeanResponse returns the cached mean of leaf nodeID's in-bag response
// values, the BAGGED prediction for a regression tree.
func (r *Regression) MeanResponse(nodeID int) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nodeID >= len(r.hasMean) {
		growMean := make([]float64, nodeID+1)
		copy(growMean, r.meanCache)
		growHas := make([]bool, nodeID+1)
		copy(growHas, r.hasMean)
		r.meanCache, r.hasMean = growMean, growHas
	}
	if r.hasMean[nodeID] {
		return r.meanCache[nodeID]
	}
	mean, _ := draw.MeanVariance(r.leafResponseValues[nodeID])
	r.meanCache[nodeID] = mean
	r.hasMean[nodeID] = true
	return mean
}

// DrawResponseValue uniformly draws one in-bag response value from leaf
// nodeID, the INBAG prediction for a regression tree: a multiple-
// imputation primitive distinct from MeanResponse's aggregate.
func (r *Regression) DrawResponseValue(nodeID int, rng *rand.Rand) float64 {
	values := r.leafResponseValues[nodeID]
	if len(values) == 0 {
		return 0
	}
	return values[rng.Intn(len(values))]
}

func (r *Regression) bucketStats(view *data.View, sampleKeys []int, col int) (values []float64, counts []int, sums, sumSqs []float64, err error) {
	values, bucketOf, err := Bucketize(view, sampleKeys, col)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	counts = make([]int, len(values))
	sums = make([]float64, len(values))
	sumSqs = make([]float64, len(values))
	for _, row := range sampleKeys {
		b := bucketOf(row)
		y := view.GetY(row, 0)
		counts[b]++
		sums[b] += y
		sumSqs[b] += y * y
	}
	return values, counts, sums, sumSqs, nil
}

// sumSquaresDecrease implements the LOGRANK criterion for a scalar
// response: sum_rhs^2/n_rhs + sum_lhs^2/n_lhs. Higher is better.
func sumSquaresDecrease(leftSum, rightSum, nLeft, nRight float64) float64 {
	return rightSum*rightSum/nRight + leftSum*leftSum/nLeft
}

// variance returns the population variance of n values from their sum and
// sum of squares: E[x^2] - E[x]^2.
func variance(sum, sumSq, n float64) float64 {
	mean := sum / n
	return sumSq/n - mean*mean
}

func (r *Regression) bestOrderedSplitVariance(view *data.View, sampleKeys []int, col int, minLeafNSample int) (bool, SplitValue, float64) {
	values, counts, sums, _, err := r.bucketStats(view, sampleKeys, col)
	if err != nil || len(values) < 2 {
		return false, SplitValue{}, 0
	}
	nParent := len(sampleKeys)
	var totalSum float64
	for i := range sums {
		totalSum += sums[i]
	}

	found := false
	var bestVal SplitValue
	bestDecrease := math.Inf(-1)

	leftN := 0
	var leftSum float64
	for b := 0; b < len(values)-1; b++ {
		leftN += counts[b]
		leftSum += sums[b]
		rightN := nParent - leftN
		if leftN < minLeafNSample || rightN < minLeafNSample {
			continue
		}
		rightSum := totalSum - leftSum
		dec := sumSquaresDecrease(leftSum, rightSum, float64(leftN), float64(rightN))
		if dec > bestDecrease {
			bestDecrease = dec
			bestVal = Threshold((values[b] + values[b+1]) / 2)
			found = true
		}
	}
	return found, bestVal, bestDecrease
}

// bestUnorderedSplitVariance mirrors Classification.bestUnorderedSplit:
// level 0 is always routed left, and every nonzero mask over the
// remaining L-1 levels is scored.
func (r *Regression) bestUnorderedSplitVariance(view *data.View, sampleKeys []int, col int, minLeafNSample int) (bool, SplitValue, float64) {
	values, counts, sums, _, err := r.bucketStats(view, sampleKeys, col)
	if err != nil {
		return false, SplitValue{}, 0
	}
	level := len(values)
	if level < 2 || level > 20 {
		return false, SplitValue{}, 0
	}
	nParent := len(sampleKeys)
	var totalSum float64
	for i := range sums {
		totalSum += sums[i]
	}

	found := false
	var bestVal SplitValue
	bestDecrease := math.Inf(-1)

	nMasks := uint64(1) << uint(level-1)
	for m := uint64(1); m < nMasks; m++ {
		leftN, leftSum := counts[0], sums[0]
		var mask uint64
		for b := 1; b < level; b++ {
			if m&(uint64(1)<<uint(b-1)) != 0 {
				mask |= uint64(1) << uint(int(values[b])-1)
			} else {
				leftN += counts[b]
				leftSum += sums[b]
			}
		}
		rightN := nParent - leftN
		if leftN < minLeafNSample || rightN < minLeafNSample {
			continue
		}
		rightSum := totalSum - leftSum
		dec := sumSquaresDecrease(leftSum, rightSum, float64(leftN), float64(rightN))
		if dec > bestDecrease {
			bestDecrease = dec
			bestVal = Partition(mask)
			found = true
		}
	}
	return found, bestVal, bestDecrease
}

func (r *Regression) bestExtraTreesSplit(view *data.View, sampleKeys []int, col int, params *TrainingParameters, rng *rand.Rand) (bool, SplitValue, float64) {
	min, max, err := view.GetMinMaxValues(sampleKeys, col, false)
	if err != nil || min >= max {
		return false, SplitValue{}, 0
	}
	n := len(sampleKeys)
	var totalSum float64
	for _, row := range sampleKeys {
		totalSum += view.GetY(row, 0)
	}

	found := false
	var bestVal SplitValue
	bestDecrease := math.Inf(-1)

	for t := 0; t < params.NRandomSplit; t++ {
		threshold := min + rng.Float64()*(max-min)
		leftN := 0
		var leftSum float64
		for _, row := range sampleKeys {
			if view.GetX(row, col, false) <= threshold {
				leftN++
				leftSum += view.GetY(row, 0)
			}
		}
		rightN := n - leftN
		if leftN < params.MinLeafNSample || rightN < params.MinLeafNSample {
			continue
		}
		rightSum := totalSum - leftSum
		dec := sumSquaresDecrease(leftSum, rightSum, float64(leftN), float64(rightN))
		if dec > bestDecrease {
			bestDecrease = dec
			bestVal = Threshold(threshold)
			found = true
		}
	}
	return found, bestVal, bestDecrease
}

// bestMaxStatSplit scores ordered cutpoints by the absolute standardized
// rank statistic |b| = |S - E[S]| / sqrt(Var[S]) (Lausen & Schumacher),
// restricted to cutpoints whose left fraction lies in
// [MinProp, 1-MinProp], then converts the winning |b| to a decrease via
// -p-value so MinMetricDecrease = -Alpha accepts splits with p <= Alpha.
func (r *Regression) bestMaxStatSplit(view *data.View, sampleKeys []int, col int, params *TrainingParameters) (bool, SplitValue, float64) {
	values, counts, _, _, err := r.bucketStats(view, sampleKeys, col)
	if err != nil || len(values) < 2 {
		return false, SplitValue{}, 0
	}
	_, bucketOf, err := Bucketize(view, sampleKeys, col)
	if err != nil {
		return false, SplitValue{}, 0
	}

	n := len(sampleKeys)
	ys := make([]float64, n)
	for i, row := range sampleKeys {
		ys[i] = view.GetY(row, 0)
	}
	ranks := draw.Rank(ys)

	rankSumByBucket := make([]float64, len(values))
	for i, row := range sampleKeys {
		rankSumByBucket[bucketOf(row)] += ranks[i]
	}

	found := false
	var bestVal SplitValue
	bestAbsB := -1.0
	leftN := 0
	var leftRankSum float64
	for b := 0; b < len(values)-1; b++ {
		leftN += counts[b]
		leftRankSum += rankSumByBucket[b]
		rightN := n - leftN
		if leftN < params.MinLeafNSample || rightN < params.MinLeafNSample {
			continue
		}
		prop := float64(leftN) / float64(n)
		if prop < params.MinProp || prop > 1-params.MinProp {
			continue
		}
		expected := float64(leftN) * float64(n+1) / 2
		varS := float64(leftN) * float64(rightN) * float64(n+1) / 12
		if varS <= 0 {
			continue
		}
		bStat := math.Abs((leftRankSum - expected) / math.Sqrt(varS))
		if bStat > bestAbsB {
			bestAbsB = bStat
			bestVal = Threshold((values[b] + values[b+1]) / 2)
			found = true
		}
	}
	if !found {
		return false, SplitValue{}, 0
	}
	p1992 := draw.PValueLausen1992(bestAbsB, params.MinProp, 1-params.MinProp)
	p1994 := draw.PValueLausen1994(bestAbsB, params.MinProp, 1-params.MinProp)
	pValue := math.Min(p1992, p1994)
	return true, bestVal, -pValue
}

// bestBetaSplit scores ordered cutpoints by total method-of-moments beta
// log-likelihood, left plus right, with no parent baseline subtracted:
// spec's BETA rule is an absolute score, not a decrease relative to the
// unsplit node.
func (r *Regression) bestBetaSplit(view *data.View, sampleKeys []int, col int, minLeafNSample int) (bool, SplitValue, float64) {
	values, counts, _, _, err := r.bucketStats(view, sampleKeys, col)
	if err != nil || len(values) < 2 {
		return false, SplitValue{}, 0
	}
	_, bucketOf, err := Bucketize(view, sampleKeys, col)
	if err != nil {
		return false, SplitValue{}, 0
	}

	byBucket := make([][]float64, len(values))
	for _, row := range sampleKeys {
		y := view.GetY(row, 0)
		b := bucketOf(row)
		byBucket[b] = append(byBucket[b], y)
	}
	nParent := len(sampleKeys)

	found := false
	var bestVal SplitValue
	bestDecrease := math.Inf(-1)

	var left []float64
	leftN := 0
	for b := 0; b < len(values)-1; b++ {
		left = append(left, byBucket[b]...)
		leftN += counts[b]
		rightN := nParent - leftN
		if leftN < minLeafNSample || rightN < minLeafNSample {
			continue
		}
		var right []float64
		for bb := b + 1; bb < len(values); bb++ {
			right = append(right, byBucket[bb]...)
		}
		leftLL, okL := draw.BetaLogLikelihood(left)
		rightLL, okR := draw.BetaLogLikelihood(right)
		if !okL || !okR {
			continue
		}
		dec := leftLL + rightLL
		if dec > bestDecrease {
			bestDecrease = dec
			bestVal = Threshold((values[b] + values[b+1]) / 2)
			found = true
		}
	}
	return found, bestVal, bestDecrease
}

func (r *Regression) bestSplit(view *data.View, sampleKeys, candidateKeys []int, params *TrainingParameters, rng *rand.Rand) (bool, int, SplitValue, float64) {
	found := false
	var bestKey int
	var bestVal SplitValue
	bestDecrease := math.Inf(-1)

	consider := func(ok bool, col int, val SplitValue, dec float64) {
		if ok && dec > bestDecrease {
			found, bestKey, bestVal, bestDecrease = true, col, val, dec
		}
	}

	for _, col := range candidateKeys {
		switch params.SplitRule {
		case ExtraTrees:
			ok, val, dec := r.bestExtraTreesSplit(view, sampleKeys, col, params, rng)
			consider(ok, col, val, dec)
		case MaxStat:
			ok, val, dec := r.bestMaxStatSplit(view, sampleKeys, col, params)
			consider(ok, col, val, dec)
		case Beta:
			ok, val, dec := r.bestBetaSplit(view, sampleKeys, col, params.MinLeafNSample)
			consider(ok, col, val, dec)
		default:
			if params.isOrdered(col) {
				ok, val, dec := r.bestOrderedSplitVariance(view, sampleKeys, col, params.MinLeafNSample)
				consider(ok, col, val, dec)
			} else {
				ok, val, dec := r.bestUnorderedSplitVariance(view, sampleKeys, col, params.MinLeafNSample)
				consider(ok, col, val, dec)
			}
		}
	}
	return found, bestKey, bestVal, bestDecrease
}
