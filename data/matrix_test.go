package data

import "testing"

func TestDensePredictorIndex(t *testing.T) {
	// one predictor column, values with a repeat
	x := NewDense(5, 1, []float64{3, 1, 2, 1, 5})
	y := NewDense(5, 1, []float64{0, 0, 1, 1, 1})

	v, err := NewView(x, y)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}

	if err := v.BuildPredictorIndex(); err != nil {
		t.Fatalf("BuildPredictorIndex: %v", err)
	}

	uniq := v.UniqueValues(0)
	want := []float64{1, 2, 3, 5}
	if len(uniq) != len(want) {
		t.Fatalf("expected %d unique values, got %d (%v)", len(want), len(uniq), uniq)
	}
	for i := range want {
		if uniq[i] != want[i] {
			t.Errorf("unique[%d] = %v, want %v", i, uniq[i], want[i])
		}
	}

	for row := 0; row < 5; row++ {
		key := v.GetUniqueKey(row, 0, false)
		if uniq[key] != v.GetX(row, 0, false) {
			t.Errorf("row %d: unique[index[row]]=%v != get_x(row)=%v", row, uniq[key], v.GetX(row, 0, false))
		}
	}
}

func TestSparseZeroFill(t *testing.T) {
	// 4 rows, 2 cols; col 0 has a nonzero only at rows 0 and 2
	s := NewSparse(4, 2, []int{0, 2}, []int{0, 2, 2}, []float64{5, 7})

	v, err := NewView(s, NewDense(4, 1, []float64{0, 1, 0, 1}))
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}

	want := []float64{5, 0, 7, 0}
	for row, w := range want {
		if got := v.GetX(row, 0, false); got != w {
			t.Errorf("row %d col 0 = %v, want %v", row, got, w)
		}
	}
	// col 1 is entirely implicit zero
	for row := 0; row < 4; row++ {
		if got := v.GetX(row, 1, false); got != 0 {
			t.Errorf("row %d col 1 = %v, want 0", row, got)
		}
	}
}

func TestPermutation(t *testing.T) {
	x := NewDense(3, 1, []float64{10, 20, 30})
	v, _ := NewView(x, NewDense(3, 1, []float64{0, 0, 0}))

	v.SetPermutation([]int{2, 0, 1})

	if got := v.GetX(0, 0, true); got != 30 {
		t.Errorf("permuted row 0 = %v, want 30", got)
	}
	if got := v.GetX(1, 0, true); got != 10 {
		t.Errorf("permuted row 1 = %v, want 10", got)
	}
	if got := v.GetX(0, 0, false); got != 10 {
		t.Errorf("unpermuted row 0 = %v, want 10", got)
	}
}

func TestGetMinMaxValues(t *testing.T) {
	x := NewDense(5, 1, []float64{3, 1, 2, 1, 5})
	v, _ := NewView(x, NewDense(5, 1, make([]float64, 5)))

	min, max, err := v.GetMinMaxValues([]int{0, 1, 2, 3, 4}, 0, false)
	if err != nil {
		t.Fatalf("GetMinMaxValues: %v", err)
	}
	if min != 1 || max != 5 {
		t.Errorf("got min=%v max=%v, want 1, 5", min, max)
	}

	if _, _, err := v.GetMinMaxValues(nil, 0, false); err == nil {
		t.Error("expected error for empty sample-key range")
	}
}

func TestResponseIndexAndBuckets(t *testing.T) {
	y := NewDense(6, 1, []float64{1, 0, 1, 2, 0, 1})
	v, _ := NewView(NewDense(6, 1, make([]float64, 6)), y)

	if err := v.BuildResponseIndex(); err != nil {
		t.Fatalf("BuildResponseIndex: %v", err)
	}

	// first appearance order: 1, 0, 2
	wantValues := []float64{1, 0, 2}
	for i, w := range wantValues {
		if v.ResponseValues()[i] != w {
			t.Errorf("responseValues[%d] = %v, want %v", i, v.ResponseValues()[i], w)
		}
	}

	wantKeys := []int{0, 1, 0, 2, 1, 0}
	for row, w := range wantKeys {
		if got := v.ResponseKey(row); got != w {
			t.Errorf("responseKey(%d) = %d, want %d", row, got, w)
		}
	}

	if err := v.BuildSampleKeysByResponse(); err != nil {
		t.Fatalf("BuildSampleKeysByResponse: %v", err)
	}
	buckets := v.SampleKeysByResponse()
	if len(buckets[0]) != 3 {
		t.Errorf("bucket 0 has %d rows, want 3", len(buckets[0]))
	}
}

func TestGetMaxNUniqueValueFloor(t *testing.T) {
	x := NewDense(2, 1, []float64{1, 1})
	v, _ := NewView(x, NewDense(2, 1, make([]float64, 2)))

	if got := v.GetMaxNUniqueValue(); got != 3 {
		t.Errorf("GetMaxNUniqueValue() = %d, want floor of 3", got)
	}
}
