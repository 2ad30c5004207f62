package draw

import (
	"math"
	"math/rand"
	"testing"
)

func TestUnweightedReplace(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := Unweighted(10, true, 1.0, rng)
	if len(r.InBag) != 10 {
		t.Errorf("expected 10 in-bag draws, got %d", len(r.InBag))
	}
	seen := make(map[int]bool)
	for _, k := range r.InBag {
		if k < 0 || k >= 10 {
			t.Fatalf("in-bag index %d out of range", k)
		}
		seen[k] = true
	}
	for _, k := range r.OOB {
		if seen[k] {
			t.Errorf("row %d is both in-bag and OOB", k)
		}
	}
}

func TestUnweightedNoReplace(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	r := Unweighted(10, false, 0.5, rng)
	if len(r.InBag) != 5 || len(r.OOB) != 5 {
		t.Fatalf("expected 5/5 split, got %d/%d", len(r.InBag), len(r.OOB))
	}
	all := make(map[int]bool)
	for _, k := range append(append([]int{}, r.InBag...), r.OOB...) {
		all[k] = true
	}
	if len(all) != 10 {
		t.Errorf("expected all 10 rows covered exactly once, got %d distinct", len(all))
	}
}

func TestWeightedRejectsNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	_, err := Weighted(3, true, 1.0, []float64{1, -1, 2}, rng)
	if err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestResponseWiseClipsOverrun(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	// two classes of size 3 and 3; fractions chosen so rounded cumulative
	// sums would request more than a bucket holds.
	buckets := [][]int{{0, 1, 2}, {3, 4, 5}}
	r, err := ResponseWise(6, false, []float64{0.9, 0.9}, buckets, rng)
	if err != nil {
		t.Fatalf("ResponseWise: %v", err)
	}
	if len(r.InBag) > 6 {
		t.Errorf("in-bag overruns available rows: %d", len(r.InBag))
	}
}

func TestCandidatePredictorsAlwaysDraw(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	keys, err := CandidatePredictors(5, 2, nil, []int{4}, rng)
	if err != nil {
		t.Fatalf("CandidatePredictors: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 2 drawn + 1 always = 3 keys, got %d", len(keys))
	}
	found4 := false
	for _, k := range keys {
		if k == 4 {
			found4 = true
		}
		if k < 0 || k >= 5 {
			t.Errorf("candidate key %d out of range", k)
		}
	}
	if !found4 {
		t.Error("expected always-draw key 4 to be present")
	}
}

func TestCandidatePredictorsTooFewEligible(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	_, err := CandidatePredictors(2, 3, nil, nil, rng)
	if err == nil {
		t.Error("expected error when fewer predictors than n_try")
	}
}

func TestRankTies(t *testing.T) {
	ranks := Rank([]float64{1, 2, 2, 3})
	want := []float64{1, 2.5, 2.5, 4}
	for i, w := range want {
		if ranks[i] != w {
			t.Errorf("rank[%d] = %v, want %v", i, ranks[i], w)
		}
	}
}

func TestBetaLogLikelihoodRejectsBoundary(t *testing.T) {
	if _, ok := BetaLogLikelihood([]float64{0.2, 0.3, 1.0}); ok {
		t.Error("expected rejection when a value is exactly 1")
	}
	if _, ok := BetaLogLikelihood([]float64{0.5}); ok {
		t.Error("expected rejection for fewer than 2 values")
	}
}

func TestBetaLogLikelihoodFinite(t *testing.T) {
	ll, ok := BetaLogLikelihood([]float64{0.2, 0.25, 0.3, 0.22, 0.28})
	if !ok {
		t.Fatal("expected a valid beta fit")
	}
	if math.IsNaN(ll) || math.IsInf(ll, 0) {
		t.Errorf("expected finite log-likelihood, got %v", ll)
	}
}

func TestPValueMonotoneInB(t *testing.T) {
	small := PValueLausen1992(1.0, 0.1, 0.9)
	large := PValueLausen1992(3.0, 0.1, 0.9)
	if !(large < small) {
		t.Errorf("expected p-value to decrease as statistic grows: p(1)=%v p(3)=%v", small, large)
	}
	if small < 0 || small > 1 || large < 0 || large > 1 {
		t.Errorf("p-values must lie in [0,1], got %v, %v", small, large)
	}
}
