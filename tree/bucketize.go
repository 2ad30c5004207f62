package tree

import (
	"sort"

	"github.com/cran/literanger/data"
)

// Bucketize returns the sorted distinct values predictor col takes among
// sampleKeys and a function mapping any row in sampleKeys to the offset of
// its value within that slice. It follows whichever of the two
// bucketization paths the view supports: the O(unique values) fast path
// when a predictor index was built at Plant time, or a sort/dedupe of the
// node's own rows when save_memory left no index to consult.
func Bucketize(view *data.View, sampleKeys []int, col int) (values []float64, bucketOf func(row int) int, err error) {
	if view.HasPredictorIndex() {
		return bucketizeIndexed(view, sampleKeys, col)
	}
	return bucketizeByValue(view, sampleKeys, col)
}

func bucketizeIndexed(view *data.View, sampleKeys []int, col int) ([]float64, func(int) int, error) {
	seen := make(map[int]bool)
	for _, row := range sampleKeys {
		seen[view.RawGetUniqueKey(row, col)] = true
	}
	globalKeys := make([]int, 0, len(seen))
	for gk := range seen {
		globalKeys = append(globalKeys, gk)
	}
	sort.Ints(globalKeys)

	uniq := view.UniqueValues(col)
	values := make([]float64, len(globalKeys))
	localOf := make(map[int]int, len(globalKeys))
	for i, gk := range globalKeys {
		values[i] = uniq[gk]
		localOf[gk] = i
	}

	bucketOf := func(row int) int {
		return localOf[view.RawGetUniqueKey(row, col)]
	}
	return values, bucketOf, nil
}

func bucketizeByValue(view *data.View, sampleKeys []int, col int) ([]float64, func(int) int, error) {
	values, err := view.GetAllValues(sampleKeys, col, false)
	if err != nil {
		return nil, nil, err
	}
	localOf := make(map[float64]int, len(values))
	for i, v := range values {
		localOf[v] = i
	}
	bucketOf := func(row int) int {
		return localOf[view.GetX(row, col, false)]
	}
	return values, bucketOf, nil
}
