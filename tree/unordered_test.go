package tree

import (
	"math/rand"
	"testing"

	"github.com/cran/literanger/data"
)

// categoricalDataset gives predictor 0 three categories where category 1
// is pure class-1 and categories 0/2 are pure class-0; no single ordered
// split on a 0/1/2-coded column separates the classes, but one partition
// split (category 1 right, categories 0 and 2 left) does, so a tree grown
// with IsOrdered[0]==false reaches pure leaves after a single root split.
func categoricalDataset() (*data.View, []int) {
	x := data.NewDense(6, 1, []float64{0, 1, 2, 0, 1, 2})
	y := data.NewDense(6, 1, []float64{0, 1, 0, 0, 1, 0})
	view, err := data.NewView(x, y)
	if err != nil {
		panic(err)
	}
	if err := view.BuildResponseIndex(); err != nil {
		panic(err)
	}
	keys := []int{0, 1, 2, 3, 4, 5}
	return view, keys
}

func TestClassificationUnorderedSplitSeparatesCategories(t *testing.T) {
	view, keys := categoricalDataset()
	params := &TrainingParameters{
		NTry:            1,
		SampleFraction:  []float64{1},
		SplitRule:       LogRank,
		MinSplitNSample: 2,
		MinLeafNSample:  1,
		IsOrdered:       []bool{false},
	}
	c := NewClassification(1, 2, nil)
	rng := rand.New(rand.NewSource(1))
	if err := c.Grow(view, keys, params, rng); err != nil {
		t.Fatalf("Grow: %v", err)
	}

	for _, row := range keys {
		leaf := c.Traverse(view, row)
		key := c.MostFrequentResponseKey(leaf, rng)
		want := view.ResponseKey(row)
		if key != want {
			t.Errorf("row %d: leaf predicts response key %d, want %d", row, key, want)
		}
	}
}

func TestClassificationMinLeafNSampleRejectsUnbalancedSplit(t *testing.T) {
	// every category of this 6-row dataset holds 2 rows, so every partition
	// split is 2/4 or 4/2; with min_leaf_n_sample=4 no split can leave 4 rows
	// on both sides, so growth must refuse to split at all, leaving a single
	// node.
	view, keys := categoricalDataset()
	params := &TrainingParameters{
		NTry:            1,
		SampleFraction:  []float64{1},
		SplitRule:       LogRank,
		MinSplitNSample: 2,
		MinLeafNSample:  4,
		IsOrdered:       []bool{false},
	}
	c := NewClassification(1, 2, nil)
	rng := rand.New(rand.NewSource(1))
	if err := c.Grow(view, keys, params, rng); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if c.NNode() != 1 {
		t.Fatalf("expected min_leaf_n_sample=4 to block every candidate split, got %d nodes", c.NNode())
	}
}
