package tree

import (
	"math/rand"
	"testing"

	"github.com/cran/literanger/data"
)

func TestPartitionRoutesConsistentlyWithRoutesRight(t *testing.T) {
	x := data.NewDense(6, 1, []float64{5, 1, 3, 2, 4, 0})
	y := data.NewDense(6, 1, []float64{0, 0, 0, 0, 0, 0})
	view, err := data.NewView(x, y)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	keys := []int{0, 1, 2, 3, 4, 5}
	splitVal := Threshold(2.5)

	mid := partition(keys, view, 0, splitVal)
	for i, row := range keys {
		goesRight := splitVal.RoutesRight(view.GetX(row, 0, false))
		if i < mid && goesRight {
			t.Errorf("row %d at position %d (< mid %d) should be left of threshold", row, i, mid)
		}
		if i >= mid && !goesRight {
			t.Errorf("row %d at position %d (>= mid %d) should be right of threshold", row, i, mid)
		}
	}
}

func TestGrowRespectsMaxDepth(t *testing.T) {
	view, keys := linearDataset()
	params := baseRegressionParams(LogRank)
	params.MaxDepth = 1
	r := NewRegression(1)
	rng := rand.New(rand.NewSource(7))
	if err := r.Grow(view, keys, params, rng); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	// depth 1 allows the root to split once, but neither child may split again.
	for i := 0; i < r.NNode(); i++ {
		if !r.IsLeaf(i) && i != 0 {
			t.Errorf("node %d split beyond max depth 1", i)
		}
	}
}

func TestGrowRespectsMinLeafNSample(t *testing.T) {
	view, keys := linearDataset()
	params := baseRegressionParams(LogRank)
	params.MinLeafNSample = 4
	r := NewRegression(1)
	rng := rand.New(rand.NewSource(8))
	if err := r.Grow(view, keys, params, rng); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	for i := 0; i < r.NNode(); i++ {
		if r.IsLeaf(i) {
			continue
		}
		leftCount := r.endPos[r.LeftChild[i]] - r.startPos[r.LeftChild[i]]
		rightCount := r.endPos[r.RightChild[i]] - r.startPos[r.RightChild[i]]
		if leftCount < params.MinLeafNSample || rightCount < params.MinLeafNSample {
			t.Errorf("node %d split into children smaller than MinLeafNSample: %d/%d", i, leftCount, rightCount)
		}
	}
}

func TestGrowIsDeterministicForFixedSeed(t *testing.T) {
	view, keys := xorDataset()
	params := baseClassificationParams()

	run := func(seed int64) []int {
		c := NewClassification(2, 2, nil)
		rng := rand.New(rand.NewSource(seed))
		if err := c.Grow(view, keys, params, rng); err != nil {
			t.Fatalf("Grow: %v", err)
		}
		return append([]int{}, c.SplitKey...)
	}

	a := run(42)
	b := run(42)
	if len(a) != len(b) {
		t.Fatalf("two runs with the same seed produced different tree sizes: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("split key at node %d differs between identically-seeded runs: %d vs %d", i, a[i], b[i])
		}
	}
}
