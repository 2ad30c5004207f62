package forest

import (
	"github.com/cran/literanger/literangererr"
	"github.com/cran/literanger/tree"
)

func buildPredictorIndex(names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return idx
}

func predictorBijection(aNames []string, aOrdered []bool, bNames []string, bOrdered []bool) (map[int]int, error) {
	if len(aNames) != len(bNames) {
		return nil, literangererr.InvalidArgumentf(
			"merge: predictor counts differ (%d vs %d)", len(aNames), len(bNames))
	}
	aIndex := buildPredictorIndex(aNames)
	remap := make(map[int]int, len(bNames))
	for bi, name := range bNames {
		ai, ok := aIndex[name]
		if !ok {
			return nil, literangererr.InvalidArgumentf("merge: predictor %q not found in first forest", name)
		}
		if aOrdered[ai] != bOrdered[bi] {
			return nil, literangererr.InvalidArgumentf(
				"merge: predictor %q has inconsistent is_ordered between forests", name)
		}
		remap[bi] = ai
	}
	return remap, nil
}

// MergeClassification merges b into a per §4.6: same tree type is implicit
// in the Go type system, n_predictor and is_ordered must align via a name
// bijection, and b's response values must be a subset of a's. The merged
// forest reports OOBError = nil, matching the spec's "oob_error = null".
func MergeClassification(a, b *Classification) (*Classification, error) {
	remap, err := predictorBijection(a.PredictorNames, a.IsOrdered, b.PredictorNames, b.IsOrdered)
	if err != nil {
		return nil, err
	}

	responseRemap, err := responseKeyRemap(a.ResponseValues, b.ResponseValues)
	if err != nil {
		return nil, err
	}

	mergedTrees := make([]*tree.Classification, 0, len(a.Trees)+len(b.Trees))
	mergedTrees = append(mergedTrees, a.Trees...)
	for _, t := range b.Trees {
		if err := t.TransformSplitKeys(remap); err != nil {
			return nil, err
		}
		if err := t.TransformResponseKeys(responseRemap); err != nil {
			return nil, err
		}
		t.NResponseValues = len(a.ResponseValues)
		mergedTrees = append(mergedTrees, t)
	}

	return &Classification{
		NPredictor:      a.NPredictor,
		IsOrdered:       append([]bool(nil), a.IsOrdered...),
		PredictorNames:  append([]string(nil), a.PredictorNames...),
		ResponseValues:  append([]float64(nil), a.ResponseValues...),
		Trees:           mergedTrees,
		SaveMemory:      a.SaveMemory,
		NTry:            a.NTry,
		SplitRule:       a.SplitRule,
		MaxDepth:        a.MaxDepth,
		MinSplitNSample: a.MinSplitNSample,
		MinLeafNSample:  a.MinLeafNSample,
		NRandomSplit:    a.NRandomSplit,
		Seed:            a.Seed,
		OOBError:        nil,
	}, nil
}

// MergeRegression merges b into a per §4.6; regression has no response
// values to reconcile, only the predictor bijection.
func MergeRegression(a, b *Regression) (*Regression, error) {
	remap, err := predictorBijection(a.PredictorNames, a.IsOrdered, b.PredictorNames, b.IsOrdered)
	if err != nil {
		return nil, err
	}

	mergedTrees := make([]*tree.Regression, 0, len(a.Trees)+len(b.Trees))
	mergedTrees = append(mergedTrees, a.Trees...)
	for _, t := range b.Trees {
		if err := t.TransformSplitKeys(remap); err != nil {
			return nil, err
		}
		mergedTrees = append(mergedTrees, t)
	}

	return &Regression{
		NPredictor:      a.NPredictor,
		IsOrdered:       append([]bool(nil), a.IsOrdered...),
		PredictorNames:  append([]string(nil), a.PredictorNames...),
		Trees:           mergedTrees,
		SaveMemory:      a.SaveMemory,
		NTry:            a.NTry,
		SplitRule:       a.SplitRule,
		MaxDepth:        a.MaxDepth,
		MinSplitNSample: a.MinSplitNSample,
		MinLeafNSample:  a.MinLeafNSample,
		NRandomSplit:    a.NRandomSplit,
		Seed:            a.Seed,
		OOBError:        nil,
	}, nil
}

// responseKeyRemap requires b's response values to be a subset of a's
// (§4.6) and returns the map from b's response keys to a's.
func responseKeyRemap(aValues, bValues []float64) (map[int]int, error) {
	aIndex := make(map[float64]int, len(aValues))
	for i, v := range aValues {
		aIndex[v] = i
	}
	remap := make(map[int]int, len(bValues))
	for bi, v := range bValues {
		ai, ok := aIndex[v]
		if !ok {
			return nil, literangererr.InvalidArgumentf(
				"merge: response value %v not present in first forest", v)
		}
		remap[bi] = ai
	}
	return remap, nil
}
