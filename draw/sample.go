// Package draw implements the sampling and numeric helpers shared by the
// classification and regression trees: weighted/unweighted resampling with
// and without replacement, candidate-predictor draws, rank computation, and
// the beta-likelihood / maxstat numerics used by the BETA and MAXSTAT split
// rules. Centralizing this in one package mirrors how the teacher package
// centralizes bSort for reuse across both tree flavors.
package draw

import (
	"math"
	"math/rand"

	"github.com/cran/literanger/literangererr"
)

// Resample holds the in-bag sample keys (with repeats when drawn with
// replacement) and the out-of-bag row indices for one tree.
type Resample struct {
	InBag []int
	OOB   []int
}

// Unweighted draws a bootstrap (or subsample) of nRow rows uniformly.
// With replacement, floor(nRow*fraction) rows are drawn with repeats and
// OOB holds every row never drawn; its capacity is sized to
// n*exp(-fraction+0.15), a conservative estimate of the OOB fraction.
// Without replacement, the row indices are shuffled and the first
// floor(nRow*fraction) become the bag; the remainder is OOB.
func Unweighted(nRow int, replace bool, fraction float64, rng *rand.Rand) Resample {
	nBag := int(float64(nRow) * fraction)

	if replace {
		inBag := make([]int, nBag)
		drawn := make([]bool, nRow)
		for i := range inBag {
			k := rng.Intn(nRow)
			inBag[i] = k
			drawn[k] = true
		}
		oob := make([]int, 0, int(float64(nRow)*math.Exp(-fraction+0.15))+1)
		for row, d := range drawn {
			if !d {
				oob = append(oob, row)
			}
		}
		return Resample{InBag: inBag, OOB: oob}
	}

	order := make([]int, nRow)
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(nRow, func(i, j int) { order[i], order[j] = order[j], order[i] })

	inBag := make([]int, nBag)
	copy(inBag, order[:nBag])
	oob := make([]int, nRow-nBag)
	copy(oob, order[nBag:])
	return Resample{InBag: inBag, OOB: oob}
}

// Weighted draws the same bag sizes as Unweighted but samples rows via a
// discrete distribution over non-negative caseWeights (one weight per row).
func Weighted(nRow int, replace bool, fraction float64, caseWeights []float64, rng *rand.Rand) (Resample, error) {
	if len(caseWeights) != nRow {
		return Resample{}, literangererr.InvalidArgumentf(
			"Weighted: case_weights length %d != n_row %d", len(caseWeights), nRow)
	}
	for _, w := range caseWeights {
		if w < 0 {
			return Resample{}, literangererr.DomainErrorf("Weighted: negative case weight %v", w)
		}
	}

	cum := make([]float64, nRow)
	sum := 0.0
	for i, w := range caseWeights {
		sum += w
		cum[i] = sum
	}
	if sum <= 0 {
		return Resample{}, literangererr.DomainErrorf("Weighted: case weights sum to zero")
	}

	drawOne := func() int {
		target := rng.Float64() * sum
		return searchCumulative(cum, target)
	}

	nBag := int(float64(nRow) * fraction)

	if replace {
		inBag := make([]int, nBag)
		drawn := make([]bool, nRow)
		for i := range inBag {
			k := drawOne()
			inBag[i] = k
			drawn[k] = true
		}
		oob := make([]int, 0, int(float64(nRow)*math.Exp(-fraction+0.15))+1)
		for row, d := range drawn {
			if !d {
				oob = append(oob, row)
			}
		}
		return Resample{InBag: inBag, OOB: oob}, nil
	}

	// without replacement: repeatedly draw and remove, tracking which rows
	// are still eligible via a live population so probabilities stay
	// proportional to the remaining weight mass.
	alive := make([]int, nRow)
	for i := range alive {
		alive[i] = i
	}
	aliveWeights := make([]float64, nRow)
	copy(aliveWeights, caseWeights)

	inBag := make([]int, 0, nBag)
	for len(inBag) < nBag && len(alive) > 0 {
		cumAlive := make([]float64, len(alive))
		s := 0.0
		for i, w := range aliveWeights {
			s += w
			cumAlive[i] = s
		}
		if s <= 0 {
			break
		}
		target := rng.Float64() * s
		pos := searchCumulative(cumAlive, target)
		inBag = append(inBag, alive[pos])

		alive = append(alive[:pos], alive[pos+1:]...)
		aliveWeights = append(aliveWeights[:pos], aliveWeights[pos+1:]...)
	}

	inBagSet := make(map[int]bool, len(inBag))
	for _, k := range inBag {
		inBagSet[k] = true
	}
	oob := make([]int, 0, nRow-len(inBag))
	for row := 0; row < nRow; row++ {
		if !inBagSet[row] {
			oob = append(oob, row)
		}
	}
	return Resample{InBag: inBag, OOB: oob}, nil
}

func searchCumulative(cum []float64, target float64) int {
	lo, hi := 0, len(cum)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cum[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// ResponseWise draws a response-stratified bag: for class c with fraction
// fractions[c], it draws round(cumsum-through-c)-round(cumsum-through-c-1)
// row indices from that class's bucket. Fractions need not sum to 1; the
// cumulative-rounded scheme is authoritative and fractions are clipped
// rather than allowed to overrun a bucket's size when that bucket is
// sampled without replacement.
func ResponseWise(nRow int, replace bool, fractions []float64, sampleKeysByResponse [][]int, rng *rand.Rand) (Resample, error) {
	if len(fractions) != len(sampleKeysByResponse) {
		return Resample{}, literangererr.InvalidArgumentf(
			"ResponseWise: fractions length %d != number of response classes %d",
			len(fractions), len(sampleKeysByResponse))
	}
	for _, f := range fractions {
		if f < 0 {
			return Resample{}, literangererr.DomainErrorf("ResponseWise: negative sample fraction %v", f)
		}
	}

	cumPrev := 0.0
	inBagTotal := 0
	var inBag []int
	drawn := make([]bool, nRow)

	for c, bucket := range sampleKeysByResponse {
		cumNow := cumPrev + fractions[c]
		nDraw := int(math.Round(float64(nRow)*cumNow) - math.Round(float64(nRow)*cumPrev))
		cumPrev = cumNow

		if nDraw <= 0 || len(bucket) == 0 {
			continue
		}
		if !replace && nDraw > len(bucket) {
			nDraw = len(bucket) // clip rather than overrun, per §8 boundary case
		}

		if replace {
			for i := 0; i < nDraw; i++ {
				row := bucket[rng.Intn(len(bucket))]
				inBag = append(inBag, row)
				drawn[row] = true
			}
		} else {
			perm := make([]int, len(bucket))
			copy(perm, bucket)
			rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
			for i := 0; i < nDraw; i++ {
				inBag = append(inBag, perm[i])
				drawn[perm[i]] = true
			}
		}
		inBagTotal += nDraw
	}

	oob := make([]int, 0, nRow-inBagTotal)
	for row := 0; row < nRow; row++ {
		if !drawn[row] {
			oob = append(oob, row)
		}
	}
	return Resample{InBag: inBag, OOB: oob}, nil
}

// CandidatePredictors draws nTry candidate predictor keys without
// replacement from [0, nPredictor), weighted by weights when non-empty,
// then appends alwaysDraw (assumed sorted and disjoint-safe: duplicates
// against the random draw are deduplicated).
func CandidatePredictors(nPredictor, nTry int, weights []float64, alwaysDraw []int, rng *rand.Rand) ([]int, error) {
	if nTry <= 0 {
		return nil, literangererr.InvalidArgumentf("CandidatePredictors: n_try must be > 0, got %d", nTry)
	}

	excluded := make(map[int]bool, len(alwaysDraw))
	for _, k := range alwaysDraw {
		excluded[k] = true
	}

	var drawn []int
	if len(weights) == 0 {
		population := make([]int, 0, nPredictor)
		for k := 0; k < nPredictor; k++ {
			if !excluded[k] {
				population = append(population, k)
			}
		}
		if len(population) < nTry {
			return nil, literangererr.DomainErrorf(
				"CandidatePredictors: only %d eligible predictors for n_try=%d", len(population), nTry)
		}
		drawn = unweightedWithoutReplacement(population, nTry, rng)
	} else {
		if len(weights) != nPredictor {
			return nil, literangererr.InvalidArgumentf(
				"CandidatePredictors: draw_predictor_weights length %d != n_predictor %d", len(weights), nPredictor)
		}
		population := make([]int, 0, nPredictor)
		w := make([]float64, 0, nPredictor)
		for k := 0; k < nPredictor; k++ {
			if weights[k] < 0 {
				return nil, literangererr.DomainErrorf("CandidatePredictors: negative draw weight %v", weights[k])
			}
			if !excluded[k] && weights[k] > 0 {
				population = append(population, k)
				w = append(w, weights[k])
			}
		}
		if len(population) < nTry {
			return nil, literangererr.DomainErrorf(
				"CandidatePredictors: only %d non-zero-weight eligible predictors for n_try=%d", len(population), nTry)
		}
		drawn = weightedWithoutReplacement(population, w, nTry, rng)
	}

	result := make([]int, 0, len(drawn)+len(alwaysDraw))
	result = append(result, drawn...)
	result = append(result, alwaysDraw...)
	return result, nil
}

// unweightedWithoutReplacement performs a partial Fisher-Yates shuffle
// (Algorithm P, Knuth TAOCP Vol. 2 §3.4.2), the same draw the teacher's
// split search uses to pick candidate features.
func unweightedWithoutReplacement(population []int, k int, rng *rand.Rand) []int {
	pop := make([]int, len(population))
	copy(pop, population)
	n := len(pop)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		pop[i], pop[j] = pop[j], pop[i]
	}
	return pop[:k]
}

// weightedWithoutReplacement uses the Efraimidis-Spirakis exponential-key
// method: assign each item a key = -ln(U)/weight for uniform U in (0,1),
// then take the k items with the smallest keys. This draws a weighted
// sample without replacement in a single pass, without needing to rebuild
// a cumulative-weight array after each draw.
func weightedWithoutReplacement(population []int, weights []float64, k int, rng *rand.Rand) []int {
	type keyed struct {
		idx int
		key float64
	}
	keys := make([]keyed, len(population))
	for i, w := range weights {
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		keys[i] = keyed{idx: population[i], key: -math.Log(u) / w}
	}
	// partial selection sort for the k smallest keys; k is small (n_try)
	// relative to len(population) in the typical case, so this stays cheap.
	for i := 0; i < k; i++ {
		minIdx := i
		for j := i + 1; j < len(keys); j++ {
			if keys[j].key < keys[minIdx].key {
				minIdx = j
			}
		}
		keys[i], keys[minIdx] = keys[minIdx], keys[i]
	}
	result := make([]int, k)
	for i := 0; i < k; i++ {
		result[i] = keys[i].idx
	}
	return result
}
