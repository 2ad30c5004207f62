package tree

import (
	"math/rand"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/draw"
	"github.com/cran/literanger/literangererr"
)

// splitSearcher supplies the rule-specific parts of Base.Grow: whether a
// node's samples are already pure, the best candidate split (if any), and
// how to record a leaf's payload once growth stops there. Classification
// and Regression each embed a Base and implement this interface.
type splitSearcher interface {
	allResponsesEqual(view *data.View, sampleKeys []int) bool
	bestSplit(view *data.View, sampleKeys, candidateKeys []int, params *TrainingParameters, rng *rand.Rand) (found bool, splitKey int, splitVal SplitValue, decrease float64)
	recordLeaf(view *data.View, nodeID int, sampleKeys []int)
}

// Grow builds one tree in breadth-first node-creation order: node 0 is the
// root, and a node's children are always appended after every node created
// before it, so the loop bound len(b.SplitKey) widens to cover the frontier
// without an explicit queue. sampleKeys is the (possibly repeated) in-bag
// row set; it is partitioned in place as splits are chosen.
func (b *Base) Grow(search splitSearcher, view *data.View, sampleKeys []int, params *TrainingParameters, rng *rand.Rand) error {
	if err := params.Validate(b.NPredictor); err != nil {
		return err
	}
	if len(sampleKeys) == 0 {
		return literangererr.DomainErrorf("Grow: empty sample-key set")
	}

	root := b.addNode()
	b.sampleKeys = make([]int, len(sampleKeys))
	copy(b.sampleKeys, sampleKeys)
	b.startPos[root], b.endPos[root] = 0, len(sampleKeys)

	depth := []int{0}

	for i := 0; i < len(b.SplitKey); i++ {
		keys := b.sampleKeys[b.startPos[i]:b.endPos[i]]

		if b.shouldStop(view, depth[i], keys, params, search) {
			search.recordLeaf(view, i, keys)
			continue
		}

		candidateKeys, err := draw.CandidatePredictors(
			b.NPredictor, params.NTry, params.DrawPredictorWeights, params.DrawAlwaysPredictorKeys, rng)
		if err != nil {
			return err
		}

		found, splitKey, splitVal, decrease := search.bestSplit(view, keys, candidateKeys, params, rng)
		if !found || decrease < params.MinMetricDecrease {
			search.recordLeaf(view, i, keys)
			continue
		}

		mid := partition(keys, view, splitKey, splitVal)
		if mid < params.MinLeafNSample || len(keys)-mid < params.MinLeafNSample {
			// a nominally valid split that leaves a child under the leaf
			// floor (ties piled at the boundary) is treated as no split.
			search.recordLeaf(view, i, keys)
			continue
		}

		start := b.startPos[i]
		leftID := b.addNode()
		rightID := b.addNode()
		b.startPos[leftID], b.endPos[leftID] = start, start+mid
		b.startPos[rightID], b.endPos[rightID] = start+mid, start+len(keys)
		depth = append(depth, depth[i]+1, depth[i]+1)

		b.SplitKey[i] = splitKey
		b.SplitVal[i] = splitVal
		b.LeftChild[i] = leftID
		b.RightChild[i] = rightID
	}
	return nil
}

// Traverse walks from the root to the leaf a given row falls into.
func (b *Base) Traverse(view *data.View, row int) int {
	node := 0
	for !b.IsLeaf(node) {
		x := view.GetX(row, b.SplitKey[node], false)
		if b.SplitVal[node].RoutesRight(x) {
			node = b.RightChild[node]
		} else {
			node = b.LeftChild[node]
		}
	}
	return node
}

func (b *Base) shouldStop(view *data.View, depth int, keys []int, params *TrainingParameters, search splitSearcher) bool {
	if len(keys) <= params.MinSplitNSample {
		return true
	}
	if len(keys) < 2*params.MinLeafNSample {
		return true
	}
	if params.MaxDepth > 0 && depth >= params.MaxDepth {
		return true
	}
	return search.allResponsesEqual(view, keys)
}

// partition reorders keys in place so that every key routed left by
// splitVal on predictor splitKey precedes every key routed right, and
// returns the count routed left.
func partition(keys []int, view *data.View, splitKey int, splitVal SplitValue) int {
	i, j := 0, len(keys)-1
	for i <= j {
		for i <= j && !splitVal.RoutesRight(view.GetX(keys[i], splitKey, false)) {
			i++
		}
		for i <= j && splitVal.RoutesRight(view.GetX(keys[j], splitKey, false)) {
			j--
		}
		if i < j {
			keys[i], keys[j] = keys[j], keys[i]
			i++
			j--
		}
	}
	return i
}
