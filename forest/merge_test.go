package forest

import (
	"testing"

	"github.com/cran/literanger/data"
)

func plantSmallClassification(t *testing.T, predictorNames []string, seed uint64) *Classification {
	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := data.NewDense(4, 1, []float64{0, 0, 1, 1})
	cfg := baseConfig(Classification, "gini")
	cfg.NTree = 3
	cfg.PredictorNames = predictorNames
	cfg.Seed = seed
	f, err := PlantClassification(x, y, cfg)
	if err != nil {
		t.Fatalf("PlantClassification: %v", err)
	}
	return f
}

func TestMergeClassificationTreeCountAndPredictions(t *testing.T) {
	a := plantSmallClassification(t, []string{"x1"}, 1)
	b := plantSmallClassification(t, []string{"x1"}, 2)

	merged, err := MergeClassification(a, b)
	if err != nil {
		t.Fatalf("MergeClassification: %v", err)
	}
	if len(merged.Trees) != len(a.Trees)+len(b.Trees) {
		t.Fatalf("merged n_tree = %d, want %d", len(merged.Trees), len(a.Trees)+len(b.Trees))
	}
	if merged.OOBError != nil {
		t.Fatalf("merged forest should report nil OOBError, got %v", *merged.OOBError)
	}

	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	result, err := merged.Predict(x, Bagged, 1, 1)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []float64{0, 0, 1, 1}
	for i, v := range result.Values {
		if v != want[i] {
			t.Errorf("row %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestMergeClassificationRejectsMismatchedPredictorNames(t *testing.T) {
	a := plantSmallClassification(t, []string{"x1"}, 1)
	b := plantSmallClassification(t, []string{"other"}, 2)

	if _, err := MergeClassification(a, b); err == nil {
		t.Fatal("expected an error merging forests with disjoint predictor names")
	}
}

func TestResponseKeyRemapAllowsSubset(t *testing.T) {
	remap, err := responseKeyRemap([]float64{0, 1, 2}, []float64{1, 2})
	if err != nil {
		t.Fatalf("responseKeyRemap: %v", err)
	}
	if remap[0] != 1 || remap[1] != 2 {
		t.Fatalf("unexpected remap: %v", remap)
	}
}

func TestResponseKeyRemapRejectsValueNotInFirstForest(t *testing.T) {
	if _, err := responseKeyRemap([]float64{0, 1}, []float64{0, 5}); err == nil {
		t.Fatal("expected an error when b has a response value absent from a")
	}
}
