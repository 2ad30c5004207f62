// Package data provides a uniform, index-friendly view over dense or sparse
// predictor matrices. It produces sorted-unique-value indexes that make
// split search over a predictor column cost O(unique values) rather than
// O(samples log samples), the way ranger/literanger's Data class does for
// the C++ core this module generalizes.
package data

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/cran/literanger/literangererr"
)

// Matrix is a read-only predictor or response matrix. Implementations are
// Dense (row-major with column stride) or Sparse (compressed sparse column).
type Matrix interface {
	NRow() int
	NCol() int
	At(row, col int) float64
}

// Dense is a row-major matrix with a fixed column stride, the simplest
// possible backend and the one exercised by the CLI's CSV loader.
type Dense struct {
	nRow, nCol int
	x          []float64
}

// NewDense wraps a flat, row-major slice of length nRow*nCol as a Matrix.
func NewDense(nRow, nCol int, x []float64) *Dense {
	if len(x) != nRow*nCol {
		panic("data: dense matrix length mismatch")
	}
	return &Dense{nRow: nRow, nCol: nCol, x: x}
}

func (d *Dense) NRow() int { return d.nRow }
func (d *Dense) NCol() int { return d.nCol }

func (d *Dense) At(row, col int) float64 {
	return d.x[row*d.nCol+col]
}

// Sparse is a compressed-sparse-column matrix: for column j, the nonzero
// rows are I[P[j]:P[j+1]] with values X[P[j]:P[j+1]], mirroring the
// dim/i/p/x triple the specification names directly.
type Sparse struct {
	nRow, nCol int
	i          []int
	p          []int
	x          []float64
}

// NewSparse builds a CSC matrix. p must have length nCol+1 and be
// non-decreasing; i and x must have equal length p[nCol].
func NewSparse(nRow, nCol int, i, p []int, x []float64) *Sparse {
	if len(p) != nCol+1 {
		panic("data: sparse matrix column-pointer length mismatch")
	}
	if len(i) != len(x) || len(i) != p[nCol] {
		panic("data: sparse matrix row-index/value length mismatch")
	}
	return &Sparse{nRow: nRow, nCol: nCol, i: i, p: p, x: x}
}

func (s *Sparse) NRow() int { return s.nRow }
func (s *Sparse) NCol() int { return s.nCol }

// At materializes the zero implicit in the CSC representation when row is
// absent from column col's nonzero list.
func (s *Sparse) At(row, col int) float64 {
	lo, hi := s.p[col], s.p[col+1]
	rows := s.i[lo:hi]
	// rows within a column need not be sorted by the producer; fall back to
	// a linear scan when a binary search precondition (sortedness) can't be
	// assumed, but try the sorted path first since most CSC producers emit
	// sorted row indices per column.
	k := sort.SearchInts(rows, row)
	if k < len(rows) && rows[k] == row {
		return s.x[lo+k]
	}
	for idx, r := range rows {
		if r == row {
			return s.x[lo+idx]
		}
	}
	return 0
}

// View wraps a predictor Matrix and a response Matrix and lazily builds the
// derived indexes described in §3/§4.1 of the specification: the per-column
// sorted-unique predictor index, the classification response-key index, the
// response-stratified sample buckets, and an optional row permutation.
type View struct {
	x Matrix
	y Matrix

	permutation []int

	unique            [][]float64
	index             [][]int
	hasPredictorIndex bool

	responseValues       []float64
	responseIndex        []int
	hasResponseIndex     bool
	sampleKeysByResponse [][]int
}

// NewView constructs a Data view over predictor matrix x and response
// matrix y (y has at least one column; for classification only column 0 is
// used by BuildResponseIndex).
func NewView(x, y Matrix) (*View, error) {
	if x.NRow() != y.NRow() {
		return nil, literangererr.InvalidArgumentf(
			"predictor and response matrices have different row counts: %d vs %d",
			x.NRow(), y.NRow())
	}
	return &View{x: x, y: y}, nil
}

func (v *View) NRow() int { return v.x.NRow() }
func (v *View) NCol() int { return v.x.NCol() }

// GetX returns the value of predictor column col for sample row, optionally
// resolved through the permutation (get_x(k, j, permute=true) = get_x(perm[k], j, false)).
func (v *View) GetX(row, col int, permute bool) float64 {
	if permute && v.permutation != nil {
		row = v.permutation[row]
	}
	return v.x.At(row, col)
}

// GetY returns the value of response column col for sample row. The
// response matrix is never permuted: permutation affects only how
// predictor rows are read for a given sample key.
func (v *View) GetY(row, col int) float64 {
	return v.y.At(row, col)
}

// SetPermutation installs a caller-supplied permutation of row indices
// (copied, not retained); GetX with permute=true then reads row
// rowIndices[k] for sample key k.
func (v *View) SetPermutation(rowIndices []int) {
	perm := make([]int, len(rowIndices))
	copy(perm, rowIndices)
	v.permutation = perm
}

func (v *View) HasPermutation() bool { return v.permutation != nil }

// HasPredictorIndex reports whether BuildPredictorIndex has run.
func (v *View) HasPredictorIndex() bool { return v.hasPredictorIndex }

// BuildPredictorIndex constructs, for every predictor column, the sorted
// set of unique values and, per row, the offset of that row's value within
// it. It is idempotent: a second call is a no-op. For sparse data the
// sorted-unique build emits exactly one zero entry if any row lacks a
// nonzero in that column, per the specification.
func (v *View) BuildPredictorIndex() error {
	if v.hasPredictorIndex {
		return nil
	}

	nRow, nCol := v.NRow(), v.NCol()
	v.unique = make([][]float64, nCol)
	v.index = make([][]int, nCol)

	for col := 0; col < nCol; col++ {
		vals := make([]float64, nRow)
		for row := 0; row < nRow; row++ {
			vals[row] = v.x.At(row, col)
		}
		uniq, offsets := sortUniqueWithOffsets(vals)
		v.unique[col] = uniq
		v.index[col] = offsets
	}

	v.hasPredictorIndex = true
	return nil
}

// sortUniqueWithOffsets returns the sorted deduplicated values observed in
// vals along with, per original position, the offset of that position's
// value within the sorted-unique slice.
func sortUniqueWithOffsets(vals []float64) ([]float64, []int) {
	n := len(vals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return vals[order[a]] < vals[order[b]] })

	uniq := make([]float64, 0, n)
	offsets := make([]int, n)
	for _, idx := range order {
		v := vals[idx]
		if len(uniq) == 0 || uniq[len(uniq)-1] != v {
			uniq = append(uniq, v)
		}
		offsets[idx] = len(uniq) - 1
	}
	return uniq, offsets
}

// GetUniqueKey returns the offset of row's value for predictor col into the
// sorted-unique vector built by BuildPredictorIndex; it panics if the index
// has not been built, since callers are expected to check HasPredictorIndex
// (or rely on save_memory=false during Plant, per §4.1).
func (v *View) GetUniqueKey(row, col int, permute bool) int {
	if permute && v.permutation != nil {
		row = v.permutation[row]
	}
	return v.index[col][row]
}

// RawGetUniqueKey is GetUniqueKey without permutation resolution, used by
// the classification/regression split search's bucketization fast path.
func (v *View) RawGetUniqueKey(row, col int) int {
	return v.index[col][row]
}

// UniqueValues returns the sorted-unique value vector for predictor col.
func (v *View) UniqueValues(col int) []float64 {
	return v.unique[col]
}

// GetAllValues returns the sorted, deduplicated values of predictor col
// observed among sampleKeys. It is the fallback bucketization path used
// when save_memory is true or no predictor index has been built. Unlike
// sortUniqueWithOffsets it only needs the sorted-unique values themselves,
// not per-row offsets, so it sorts the values with sort.Float64s directly
// instead of sorting an index permutation.
func (v *View) GetAllValues(sampleKeys []int, col int, permute bool) ([]float64, error) {
	vals := make([]float64, len(sampleKeys))
	for i, row := range sampleKeys {
		vals[i] = v.GetX(row, col, permute)
	}
	sort.Float64s(vals)
	uniq := vals[:0]
	for i, val := range vals {
		if i == 0 || uniq[len(uniq)-1] != val {
			uniq = append(uniq, val)
		}
	}
	return uniq, nil
}

// ColumnStats returns the min and max of vals via gonum/floats, the
// pointwise-reduction helper backing GetMinMaxValues.
func ColumnStats(vals []float64) (min, max float64) {
	return floats.Min(vals), floats.Max(vals)
}

// GetMinMaxValues returns the pointwise min and max of predictor col over
// sampleKeys. It is used by EXTRATREES to draw uniform thresholds within a
// node's observed range.
func (v *View) GetMinMaxValues(sampleKeys []int, col int, permute bool) (min, max float64, err error) {
	if len(sampleKeys) == 0 {
		return 0, 0, literangererr.DomainErrorf("GetMinMaxValues: empty sample-key range")
	}
	vals := make([]float64, len(sampleKeys))
	for i, row := range sampleKeys {
		vals[i] = v.GetX(row, col, permute)
	}
	min, max = ColumnStats(vals)
	return min, max, nil
}

// GetMaxNUniqueValue returns max(3, the largest per-column unique-value
// count), a conservative floor that shapes split-search workspace sizing.
func (v *View) GetMaxNUniqueValue() int {
	maxN := 0
	if v.hasPredictorIndex {
		for _, u := range v.unique {
			if len(u) > maxN {
				maxN = len(u)
			}
		}
	} else {
		nCol := v.NCol()
		for col := 0; col < nCol; col++ {
			seen := make(map[float64]struct{})
			for row := 0; row < v.NRow(); row++ {
				seen[v.x.At(row, col)] = struct{}{}
			}
			if len(seen) > maxN {
				maxN = len(seen)
			}
		}
	}
	if maxN < 3 {
		return 3
	}
	return maxN
}

// BuildResponseIndex recodes the classification response column (column 0
// of the response matrix, by convention) into a sorted-by-first-appearance
// key space: responseValues[k] is the kth distinct value seen, and
// responseIndex[row] is that row's key.
func (v *View) BuildResponseIndex() error {
	if v.hasResponseIndex {
		return nil
	}
	nRow := v.NRow()
	keys := make(map[float64]int)
	values := make([]float64, 0)
	idx := make([]int, nRow)
	for row := 0; row < nRow; row++ {
		val := v.y.At(row, 0)
		k, ok := keys[val]
		if !ok {
			k = len(values)
			keys[val] = k
			values = append(values, val)
		}
		idx[row] = k
	}
	v.responseValues = values
	v.responseIndex = idx
	v.hasResponseIndex = true
	return nil
}

func (v *View) HasResponseIndex() bool { return v.hasResponseIndex }

// ResponseValues returns the sorted-by-first-appearance distinct response
// values observed at training time.
func (v *View) ResponseValues() []float64 { return v.responseValues }

// ResponseKey returns the response key (offset into ResponseValues) for row.
func (v *View) ResponseKey(row int) int { return v.responseIndex[row] }

// NResponseValues is the number of distinct classification response values.
func (v *View) NResponseValues() int { return len(v.responseValues) }

// BuildSampleKeysByResponse buckets row indices by response key. It is only
// built when at least one tree uses response-stratified sampling
// (sample_fraction vector length > 1), per §3.
func (v *View) BuildSampleKeysByResponse() error {
	if !v.hasResponseIndex {
		return literangererr.RuntimeErrorf("BuildSampleKeysByResponse: response index not built")
	}
	if v.sampleKeysByResponse != nil {
		return nil
	}
	buckets := make([][]int, len(v.responseValues))
	for row, key := range v.responseIndex {
		buckets[key] = append(buckets[key], row)
	}
	v.sampleKeysByResponse = buckets
	return nil
}

// SampleKeysByResponse returns the row indices bucketed by response key.
func (v *View) SampleKeysByResponse() [][]int { return v.sampleKeysByResponse }
