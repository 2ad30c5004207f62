package serialize

import (
	"bytes"
	"testing"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/forest"
)

func plantedClassification(t *testing.T) *forest.Classification {
	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := data.NewDense(4, 1, []float64{0, 0, 1, 1})
	cfg := forest.Config{
		TreeType:        forest.Classification,
		NTree:           2,
		PredictorNames:  []string{"x0"},
		SampleFraction:  []float64{1.0},
		NTry:            1,
		SplitRuleName:   "gini",
		MinSplitNSample: 2,
		MinLeafNSample:  1,
		Seed:            7,
		NThread:         1,
		ComputeOOBError: true,
	}
	f, err := forest.PlantClassification(x, y, cfg)
	if err != nil {
		t.Fatalf("PlantClassification: %v", err)
	}
	return f
}

func plantedRegression(t *testing.T) *forest.Regression {
	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := data.NewDense(4, 1, []float64{1, 2, 3, 4})
	cfg := forest.Config{
		TreeType:        forest.Regression,
		NTree:           2,
		PredictorNames:  []string{"x0"},
		SampleFraction:  []float64{1.0},
		NTry:            1,
		SplitRuleName:   "variance",
		MinSplitNSample: 2,
		MinLeafNSample:  1,
		Seed:            7,
		NThread:         1,
		ComputeOOBError: true,
	}
	f, err := forest.PlantRegression(x, y, cfg)
	if err != nil {
		t.Fatalf("PlantRegression: %v", err)
	}
	return f
}

func TestRoundTripClassification(t *testing.T) {
	f := plantedClassification(t)

	var buf bytes.Buffer
	if err := Save(&buf, f); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := loaded.(*forest.Classification)
	if !ok {
		t.Fatalf("Load returned %T, want *forest.Classification", loaded)
	}

	if got.NPredictor != f.NPredictor {
		t.Errorf("NPredictor = %d, want %d", got.NPredictor, f.NPredictor)
	}
	if len(got.Trees) != len(f.Trees) {
		t.Errorf("n_tree = %d, want %d", len(got.Trees), len(f.Trees))
	}
	for i, v := range f.ResponseValues {
		if got.ResponseValues[i] != v {
			t.Errorf("ResponseValues[%d] = %v, want %v", i, got.ResponseValues[i], v)
		}
	}

	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	want, err := f.Predict(x, forest.Bagged, 1, 1)
	if err != nil {
		t.Fatalf("Predict (original): %v", err)
	}
	have, err := got.Predict(x, forest.Bagged, 1, 1)
	if err != nil {
		t.Fatalf("Predict (round-tripped): %v", err)
	}
	for i := range want.Values {
		if want.Values[i] != have.Values[i] {
			t.Errorf("row %d: round-tripped prediction %v, want %v", i, have.Values[i], want.Values[i])
		}
	}
}

func TestRoundTripRegression(t *testing.T) {
	f := plantedRegression(t)

	var buf bytes.Buffer
	if err := Save(&buf, f); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := loaded.(*forest.Regression)
	if !ok {
		t.Fatalf("Load returned %T, want *forest.Regression", loaded)
	}
	if len(got.Trees) != len(f.Trees) {
		t.Errorf("n_tree = %d, want %d", len(got.Trees), len(f.Trees))
	}

	x := data.NewDense(4, 1, []float64{0, 1, 2, 3})
	want, err := f.Predict(x, forest.Bagged, 1, 1)
	if err != nil {
		t.Fatalf("Predict (original): %v", err)
	}
	have, err := got.Predict(x, forest.Bagged, 1, 1)
	if err != nil {
		t.Fatalf("Predict (round-tripped): %v", err)
	}
	for i := range want.Values {
		if want.Values[i] != have.Values[i] {
			t.Errorf("row %d: round-tripped prediction %v, want %v", i, have.Values[i], want.Values[i])
		}
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("not-a-literanger-model")
	if _, err := Load(&buf); err == nil {
		t.Fatal("expected an error loading a stream with a bad magic string")
	}
}
