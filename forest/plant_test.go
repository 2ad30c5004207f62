package forest

import (
	"testing"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/literangererr"
)

func baseConfig(treeType TreeType, splitRule string) Config {
	return Config{
		TreeType:        treeType,
		NTree:           1,
		PredictorNames:  []string{"x0"},
		Replace:         false,
		SampleFraction:  []float64{1.0},
		NTry:            1,
		SplitRuleName:   splitRule,
		MinSplitNSample: 2,
		MinLeafNSample:  1,
		Seed:            1,
		NThread:         1,
		ComputeOOBError: true,
	}
}

// TestPlantClassificationTrivialSplit covers §8 scenario 1: a single
// ordered predictor perfectly separating a binary response should split
// once and predict the training labels back exactly under BAGGED.
func TestPlantClassificationTrivialSplit(t *testing.T) {
	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := data.NewDense(4, 1, []float64{0, 0, 1, 1})

	f, err := PlantClassification(x, y, baseConfig(Classification, "gini"))
	if err != nil {
		t.Fatalf("PlantClassification: %v", err)
	}
	if len(f.Trees) != 1 {
		t.Fatalf("expected 1 tree, got %d", len(f.Trees))
	}
	if f.Trees[0].NNode() == 1 {
		t.Fatalf("expected the root to split, got a single terminal node")
	}

	result, err := f.Predict(x, Bagged, 1, 1)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []float64{0, 0, 1, 1}
	for i, v := range want {
		if result.Values[i] != v {
			t.Errorf("row %d: got %v, want %v", i, result.Values[i], v)
		}
	}
}

// TestPlantRegressionTrivialSplit covers §8 scenario 2: BAGGED predictions
// must be non-decreasing in the single ordered predictor.
func TestPlantRegressionTrivialSplit(t *testing.T) {
	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := data.NewDense(4, 1, []float64{1, 2, 3, 4})

	cfg := baseConfig(Regression, "variance")
	cfg.MinSplitNSample = 2
	f, err := PlantRegression(x, y, cfg)
	if err != nil {
		t.Fatalf("PlantRegression: %v", err)
	}

	result, err := f.Predict(x, Bagged, 1, 1)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := 1; i < len(result.Values); i++ {
		if result.Values[i] < result.Values[i-1] {
			t.Errorf("predictions not non-decreasing: %v", result.Values)
		}
	}
}

// TestPlantClassificationHellingerGuard covers §8 scenario 3.
func TestPlantClassificationHellingerGuard(t *testing.T) {
	x := data.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := data.NewDense(6, 1, []float64{0, 0, 1, 1, 2, 2})

	_, err := PlantClassification(x, y, baseConfig(Classification, "hellinger"))
	if !literangererr.Is(err, literangererr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument for hellinger on a 3-class response, got %v", err)
	}
}

// TestPlantResponseWiseWithCaseWeightsRejected covers §8 scenario 4.
func TestPlantResponseWiseWithCaseWeightsRejected(t *testing.T) {
	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := data.NewDense(4, 1, []float64{0, 0, 1, 1})

	cfg := baseConfig(Classification, "gini")
	cfg.SampleFraction = []float64{0.5, 0.5}
	cfg.CaseWeights = []float64{1, 1, 1, 1}

	_, err := PlantClassification(x, y, cfg)
	if !literangererr.Is(err, literangererr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument combining case_weights with response-wise sampling, got %v", err)
	}
}

func TestPlantRejectsZeroNTree(t *testing.T) {
	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := data.NewDense(4, 1, []float64{0, 0, 1, 1})

	cfg := baseConfig(Classification, "gini")
	cfg.NTree = 0
	_, err := PlantClassification(x, y, cfg)
	if !literangererr.Is(err, literangererr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument for n_tree == 0, got %v", err)
	}
}

func TestPlantNodesPredictionShape(t *testing.T) {
	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := data.NewDense(4, 1, []float64{0, 0, 1, 1})

	cfg := baseConfig(Classification, "gini")
	cfg.NTree = 3
	f, err := PlantClassification(x, y, cfg)
	if err != nil {
		t.Fatalf("PlantClassification: %v", err)
	}
	result, err := f.Predict(x, Nodes, 1, 2)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(result.NodeIndex) != 4*3 {
		t.Fatalf("expected a 4x3 node-index matrix, got %d entries", len(result.NodeIndex))
	}
}
