package tree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cran/literanger/data"
)

func xorDataset() (*data.View, []int) {
	// two predictors; response is 1 iff exactly one predictor is 1 (XOR),
	// so no single ordered split on either predictor alone can separate
	// the classes perfectly, but the tree should still reduce impurity.
	x := data.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := data.NewDense(8, 1, []float64{0, 1, 1, 0, 0, 1, 1, 0})
	view, err := data.NewView(x, y)
	if err != nil {
		panic(err)
	}
	if err := view.BuildResponseIndex(); err != nil {
		panic(err)
	}
	keys := make([]int, 8)
	for i := range keys {
		keys[i] = i
	}
	return view, keys
}

func baseClassificationParams() *TrainingParameters {
	return &TrainingParameters{
		NTry:            2,
		SampleFraction:  []float64{1},
		SplitRule:       LogRank,
		MinSplitNSample: 2,
		MinLeafNSample:  1,
	}
}

func TestClassificationGrowAndTraverse(t *testing.T) {
	view, keys := xorDataset()
	params := baseClassificationParams()
	c := NewClassification(2, 2, nil)
	rng := rand.New(rand.NewSource(1))

	if err := c.Grow(view, keys, params, rng); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if c.NNode() < 3 {
		t.Fatalf("expected at least one split, got %d nodes", c.NNode())
	}
	for _, row := range keys {
		leaf := c.Traverse(view, row)
		if !c.IsLeaf(leaf) {
			t.Fatalf("Traverse(%d) landed on non-leaf node %d", row, leaf)
		}
	}
}

func TestClassificationAllResponsesEqualStopsGrowth(t *testing.T) {
	view, _ := xorDataset()
	params := baseClassificationParams()
	c := NewClassification(2, 2, nil)
	rng := rand.New(rand.NewSource(2))

	pureKeys := []int{0, 4} // both response key 0
	if err := c.Grow(view, pureKeys, params, rng); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if c.NNode() != 1 {
		t.Fatalf("expected a single leaf node for a pure sample, got %d nodes", c.NNode())
	}
}

func TestClassificationMostFrequentResponseKey(t *testing.T) {
	view, keys := xorDataset()
	params := baseClassificationParams()
	c := NewClassification(2, 2, nil)
	rng := rand.New(rand.NewSource(3))
	if err := c.Grow(view, keys, params, rng); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	leaf := c.Traverse(view, 0)
	k := c.MostFrequentResponseKey(leaf, rng)
	if k != 0 && k != 1 {
		t.Fatalf("unexpected response key %d", k)
	}
	// calling twice exercises the cache path.
	if k2 := c.MostFrequentResponseKey(leaf, rng); k2 != k {
		t.Fatalf("cached call returned %d, first call returned %d", k2, k)
	}
}

func TestClassificationHellingerRejectsMultiClass(t *testing.T) {
	d := hellingerDecrease([]float64{1, 1, 1}, []float64{1, 1, 1}, 3, 3)
	if !math.IsInf(d, -1) {
		t.Errorf("expected -inf for a 3-class vector, got %v", d)
	}
}
