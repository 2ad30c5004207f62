package tree

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/literangererr"
)

// Classification is a classification tree: Base's flat node arrays plus,
// per leaf, the response keys of the in-bag rows that landed there.
type Classification struct {
	Base

	NResponseValues int
	ResponseWeights []float64 // empty = uniform

	leafResponseKeys [][]int

	mu                sync.Mutex
	mostFrequentCache []int
}

// NewClassification allocates an ungrown classification tree over
// nPredictor predictor columns and a response space of nResponseValues
// classes, optionally weighting classes for the LOGRANK/HELLINGER impurity
// by responseWeights (empty means uniform).
func NewClassification(nPredictor, nResponseValues int, responseWeights []float64) *Classification {
	return &Classification{
		Base:            newBase(nPredictor),
		NResponseValues: nResponseValues,
		ResponseWeights: responseWeights,
	}
}

// Grow builds the tree over sampleKeys, delegating the breadth-first split
// loop to Base and supplying the classification-specific impurity search.
func (c *Classification) Grow(view *data.View, sampleKeys []int, params *TrainingParameters, rng *rand.Rand) error {
	return c.Base.Grow(c, view, sampleKeys, params, rng)
}

// LeafResponseKeys returns the response keys stored at leaf nodeID.
func (c *Classification) LeafResponseKeys(nodeID int) []int {
	if nodeID >= len(c.leafResponseKeys) {
		return nil
	}
	return c.leafResponseKeys[nodeID]
}

// SetLeafResponseKeys installs the response keys for leaf nodeID directly,
// used by serialize.Load to reconstruct a tree without re-growing it.
func (c *Classification) SetLeafResponseKeys(nodeID int, keys []int) {
	if nodeID >= len(c.leafResponseKeys) {
		grown := make([][]int, nodeID+1)
		copy(grown, c.leafResponseKeys)
		c.leafResponseKeys = grown
	}
	c.leafResponseKeys[nodeID] = keys
}

func (c *Classification) allResponsesEqual(view *data.View, sampleKeys []int) bool {
	if len(sampleKeys) == 0 {
		return true
	}
	first := view.ResponseKey(sampleKeys[0])
	for _, row := range sampleKeys[1:] {
		if view.ResponseKey(row) != first {
			return false
		}
	}
	return true
}

func (c *Classification) recordLeaf(view *data.View, nodeID int, sampleKeys []int) {
	if nodeID >= len(c.leafResponseKeys) {
		grown := make([][]int, nodeID+1)
		copy(grown, c.leafResponseKeys)
		c.leafResponseKeys = grown
	}
	keys := make([]int, len(sampleKeys))
	for i, row := range sampleKeys {
		keys[i] = view.ResponseKey(row)
	}
	c.leafResponseKeys[nodeID] = keys
}

// TransformResponseKeys rewrites every leaf's stored response keys through
// remap, used by Merge to align a second forest's response-value ordering
// onto the first's. Unlike TransformSplitKeys, remap need not be a total
// bijection: the second forest's response values are only required to be a
// subset of the first's, so remap's domain can be smaller than its range.
func (c *Classification) TransformResponseKeys(remap map[int]int) error {
	for i, keys := range c.leafResponseKeys {
		for j, k := range keys {
			v, ok := remap[k]
			if !ok {
				return literangererr.DomainErrorf("transform_response_keys: key %d has no entry in remap", k)
			}
			c.leafResponseKeys[i][j] = v
		}
	}
	c.mu.Lock()
	c.mostFrequentCache = nil
	c.mu.Unlock()
	return nil
}

func (c *Classification) weight(k int) float64 {
	if len(c.ResponseWeights) == 0 {
		return 1
	}
	return c.ResponseWeights[k]
}

func (c *Classification) classCounts(view *data.View, sampleKeys []int) []float64 {
	counts := make([]float64, c.NResponseValues)
	for _, row := range sampleKeys {
		counts[view.ResponseKey(row)]++
	}
	return counts
}

// MostFrequentResponseKey returns the majority response key at leaf
// nodeID, ties broken by a uniform draw among the tied keys, computing
// and caching the result on first use under a mutex so concurrent predict
// workers don't race to populate it. rng is only consulted the first time
// a given leaf is resolved; later calls return the cached value.
func (c *Classification) MostFrequentResponseKey(nodeID int, rng *rand.Rand) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mostFrequentCache == nil {
		c.mostFrequentCache = make([]int, len(c.leafResponseKeys))
		for i := range c.mostFrequentCache {
			c.mostFrequentCache[i] = -1
		}
	}
	if nodeID >= len(c.mostFrequentCache) {
		grown := make([]int, nodeID+1)
		for i := range grown {
			grown[i] = -1
		}
		copy(grown, c.mostFrequentCache)
		c.mostFrequentCache = grown
	}
	if c.mostFrequentCache[nodeID] >= 0 {
		return c.mostFrequentCache[nodeID]
	}

	counts := make(map[int]float64)
	for _, k := range c.leafResponseKeys[nodeID] {
		counts[k] += c.weight(k)
	}
	bestCount := -1.0
	for _, ct := range counts {
		if ct > bestCount {
			bestCount = ct
		}
	}
	var tied []int
	for k, ct := range counts {
		if ct == bestCount {
			tied = append(tied, k)
		}
	}
	sort.Ints(tied) // fix iteration order before the draw so it depends only on rng, not map order
	best := tied[0]
	if len(tied) > 1 {
		best = tied[rng.Intn(len(tied))]
	}
	c.mostFrequentCache[nodeID] = best
	return best
}

// DrawResponseKey uniformly draws one in-bag response key from leaf
// nodeID, the INBAG prediction for a classification tree: a multiple-
// imputation primitive distinct from MostFrequentResponseKey's argmax.
func (c *Classification) DrawResponseKey(nodeID int, rng *rand.Rand) int {
	keys := c.leafResponseKeys[nodeID]
	if len(keys) == 0 {
		return 0
	}
	return keys[rng.Intn(len(keys))]
}

func weightedCount(counts []float64) float64 {
	total := 0.0
	for _, ct := range counts {
		total += ct
	}
	return total
}

// decreaseFunc scores a candidate left/right split; higher is better.
type decreaseFunc func(left, right []float64, nLeft, nRight float64) float64

// sumSquaresDecreaseFunc implements the LOGRANK criterion: for each
// response key r with weight w_r, sum w_r*(n_lhs_r^2/n_lhs + n_rhs_r^2/n_rhs).
// left/right must hold unweighted per-key counts; weights is empty for
// uniform weighting.
func sumSquaresDecreaseFunc(weights []float64) decreaseFunc {
	return func(left, right []float64, nLeft, nRight float64) float64 {
		dec := 0.0
		for r := range left {
			w := 1.0
			if len(weights) > 0 {
				w = weights[r]
			}
			dec += w * (left[r]*left[r]/nLeft + right[r]*right[r]/nRight)
		}
		return dec
	}
}

// hellingerDecrease scores a binary-response split by the Hellinger
// distance between the left and right class-conditional rate vectors
// (Cieslak & Chawla 2008), which unlike Gini is insensitive to class
// imbalance. Defined only for a two-class response.
func hellingerDecrease(left, right []float64, nLeft, nRight float64) float64 {
	if len(left) != 2 {
		return math.Inf(-1)
	}
	totalClass0 := left[0] + right[0]
	totalClass1 := left[1] + right[1]
	if totalClass0 <= 0 || totalClass1 <= 0 {
		return math.Inf(-1)
	}
	tpr := math.Sqrt(left[1] / totalClass1)
	fpr := math.Sqrt(left[0] / totalClass0)
	tnr := math.Sqrt(right[1] / totalClass1)
	fnr := math.Sqrt(right[0] / totalClass0)
	return math.Sqrt((tpr-fpr)*(tpr-fpr) + (tnr-fnr)*(tnr-fnr))
}

func (c *Classification) bestSplit(view *data.View, sampleKeys, candidateKeys []int, params *TrainingParameters, rng *rand.Rand) (bool, int, SplitValue, float64) {
	parentCounts := c.classCounts(view, sampleKeys)
	nParent := weightedCount(parentCounts)
	if nParent <= 0 {
		return false, 0, SplitValue{}, 0
	}

	var decreaseFn decreaseFunc
	switch params.SplitRule {
	case Hellinger:
		decreaseFn = hellingerDecrease
	default:
		decreaseFn = sumSquaresDecreaseFunc(c.ResponseWeights)
	}

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
		if params.SplitRule == ExtraTrees {
			ok, val, dec := c.bestExtraTreesSplit(view, sampleKeys, col, parentCounts, params, rng)
			consider(ok, col, val, dec)
			continue
		}
		if params.isOrdered(col) {
			ok, val, dec := c.bestOrderedSplit(view, sampleKeys, col, parentCounts, decreaseFn, params.MinLeafNSample)
			consider(ok, col, val, dec)
		} else {
			ok, val, dec := c.bestUnorderedSplit(view, sampleKeys, col, parentCounts, decreaseFn, params.MinLeafNSample)
			consider(ok, col, val, dec)
		}
	}

	return found, bestKey, bestVal, bestDecrease
}

func (c *Classification) bucketCountsByResponse(view *data.View, sampleKeys []int, col int) ([]float64, [][]float64, error) {
	values, bucketOf, err := Bucketize(view, sampleKeys, col)
	if err != nil {
		return nil, nil, err
	}
	counts := make([][]float64, len(values))
	for i := range counts {
		counts[i] = make([]float64, c.NResponseValues)
	}
	for _, row := range sampleKeys {
		counts[bucketOf(row)][view.ResponseKey(row)]++
	}
	return values, counts, nil
}

func (c *Classification) bestOrderedSplit(view *data.View, sampleKeys []int, col int, parentCounts []float64, decreaseFn decreaseFunc, minLeafNSample int) (bool, SplitValue, float64) {
	values, bucketCounts, err := c.bucketCountsByResponse(view, sampleKeys, col)
	if err != nil || len(values) < 2 {
		return false, SplitValue{}, 0
	}

	nParent := weightedCount(parentCounts)
	leftCounts := make([]float64, len(parentCounts))
	rightCounts := make([]float64, len(parentCounts))
	copy(rightCounts, parentCounts)

	found := false
	var bestVal SplitValue
	bestDecrease := math.Inf(-1)

	for b := 0; b < len(values)-1; b++ {
		for k := range leftCounts {
			leftCounts[k] += bucketCounts[b][k]
			rightCounts[k] -= bucketCounts[b][k]
		}
		// leftCounts/rightCounts hold unweighted per-key counts, so their
		// sums are the plain left/right sample counts used for the
		// min-leaf-size gate; the decrease function applies response
		// weighting separately below.
		nLeft := weightedCount(leftCounts)
		nRight := nParent - nLeft
		if nLeft <= 0 || nRight <= 0 {
			continue
		}
		if int(nLeft) < minLeafNSample || int(nRight) < minLeafNSample {
			continue
		}
		dec := decreaseFn(leftCounts, rightCounts, nLeft, nRight)
		if dec > bestDecrease {
			bestDecrease = dec
			bestVal = Threshold((values[b] + values[b+1]) / 2)
			found = true
		}
	}
	return found, bestVal, bestDecrease
}

// bestUnorderedSplit enumerates every nontrivial routing of factor levels
// to the right child: level at sorted position 0 is always routed left,
// and each of the remaining L-1 levels independently joins the right side
// under one of the 2^(L-1)-1 nonzero bitmasks.
func (c *Classification) bestUnorderedSplit(view *data.View, sampleKeys []int, col int, parentCounts []float64, decreaseFn decreaseFunc, minLeafNSample int) (bool, SplitValue, float64) {
	values, bucketCounts, err := c.bucketCountsByResponse(view, sampleKeys, col)
	if err != nil {
		return false, SplitValue{}, 0
	}
	level := len(values)
	if level < 2 || level > 20 {
		// either nothing to split on, or the mask space (2^(L-1)) is too
		// large to enumerate exhaustively for this predictor at this node.
		return false, SplitValue{}, 0
	}

	found := false
	var bestVal SplitValue
	bestDecrease := math.Inf(-1)

	nMasks := uint64(1) << uint(level-1)
	for m := uint64(1); m < nMasks; m++ {
		leftCounts := make([]float64, len(parentCounts))
		rightCounts := make([]float64, len(parentCounts))
		var mask uint64
		copy(leftCounts, bucketCounts[0])
		for b := 1; b < level; b++ {
			if m&(uint64(1)<<uint(b-1)) != 0 {
				mask |= uint64(1) << uint(int(values[b])-1)
				for k := range rightCounts {
					rightCounts[k] += bucketCounts[b][k]
				}
			} else {
				for k := range leftCounts {
					leftCounts[k] += bucketCounts[b][k]
				}
			}
		}
		nLeft := weightedCount(leftCounts)
		nRight := weightedCount(rightCounts)
		if nLeft <= 0 || nRight <= 0 {
			continue
		}
		if int(nLeft) < minLeafNSample || int(nRight) < minLeafNSample {
			continue
		}
		dec := decreaseFn(leftCounts, rightCounts, nLeft, nRight)
		if dec > bestDecrease {
			bestDecrease = dec
			bestVal = Partition(mask)
			found = true
		}
	}
	return found, bestVal, bestDecrease
}

func (c *Classification) bestExtraTreesSplit(view *data.View, sampleKeys []int, col int, parentCounts []float64, params *TrainingParameters, rng *rand.Rand) (bool, SplitValue, float64) {
	min, max, err := view.GetMinMaxValues(sampleKeys, col, false)
	if err != nil || min >= max {
		return false, SplitValue{}, 0
	}
	decreaseFn := sumSquaresDecreaseFunc(c.ResponseWeights)

	found := false
	var bestVal SplitValue
	bestDecrease := math.Inf(-1)

	for t := 0; t < params.NRandomSplit; t++ {
		threshold := min + rng.Float64()*(max-min)
		leftCounts := make([]float64, len(parentCounts))
		rightCounts := make([]float64, len(parentCounts))
		for _, row := range sampleKeys {
			k := view.ResponseKey(row)
			if view.GetX(row, col, false) <= threshold {
				leftCounts[k]++
			} else {
				rightCounts[k]++
			}
		}
		nLeft := weightedCount(leftCounts)
		nRight := weightedCount(rightCounts)
		if nLeft <= 0 || nRight <= 0 {
			continue
		}
		if int(nLeft) < params.MinLeafNSample || int(nRight) < params.MinLeafNSample {
			continue
		}
		dec := decreaseFn(leftCounts, rightCounts, nLeft, nRight)
		if dec > bestDecrease {
			bestDecrease = dec
			bestVal = Threshold(threshold)
			found = true
		}
	}
	return found, bestVal, bestDecrease
}
