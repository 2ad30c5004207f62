package forest

import (
	"sync"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/literangererr"
)

// PredictionType selects one of the three modes from §4.5/§6.
type PredictionType int

const (
	Bagged PredictionType = iota
	Inbag
	Nodes
)

func ParsePredictionType(name string) (PredictionType, error) {
	switch name {
	case "bagged":
		return Bagged, nil
	case "inbag":
		return Inbag, nil
	case "nodes":
		return Nodes, nil
	default:
		return 0, literangererr.InvalidArgumentf("unknown prediction_type %q", name)
	}
}

// Predict predicts over x in the given mode, sharded by tree interval
// exactly as Plant shards growth. NODES fills an (n_row x n_tree) matrix of
// terminal-node indices; BAGGED/INBAG return one response value per row.
// seed drives the INBAG row-to-tree assignment and the per-shard draws made
// at leaves (INBAG draws, BAGGED tie-breaks); nThread is the worker count,
// matching §6's prediction-call inputs.
func (f *Classification) Predict(x data.Matrix, mode PredictionType, seed uint64, nThread int) (*PredictResult, error) {
	if x.NCol() != f.NPredictor {
		return nil, literangererr.InvalidArgumentf(
			"predict: x has %d columns, forest has n_predictor %d", x.NCol(), f.NPredictor)
	}
	nRow := x.NRow()
	nTree := len(f.Trees)
	if nThread <= 0 {
		nThread = 1
	}
	view, err := data.NewView(x, x) // response unused for prediction; self-reference keeps NewView's row-count check meaningful
	if err != nil {
		return nil, err
	}

	switch mode {
	case Nodes:
		nodeIndex := make([]int, nRow*nTree)
		var wg sync.WaitGroup
		for _, iv := range splitIntervals(nTree, nThread) {
			iv := iv
			wg.Add(1)
			go func() {
				defer wg.Done()
				for t := iv.start; t < iv.end; t++ {
					for row := 0; row < nRow; row++ {
						nodeIndex[row*nTree+t] = f.Trees[t].Traverse(view, row)
					}
				}
			}()
		}
		wg.Wait()
		return &PredictResult{Mode: Nodes, NRow: nRow, NTree: nTree, NodeIndex: nodeIndex}, nil

	case Inbag:
		// INBAG draws uniformly from each leaf's in-bag response-key list
		// rather than taking its argmax, the multiple-imputation semantics
		// distinguishing it from BAGGED.
		assignment := assignRowsToTrees(nRow, nTree, seed)
		values := make([]float64, nRow)
		var wg sync.WaitGroup
		for _, iv := range splitIntervals(nTree, nThread) {
			iv := iv
			wg.Add(1)
			go func() {
				defer wg.Done()
				rng := shardRNG(seed, iv.start)
				for t := iv.start; t < iv.end; t++ {
					for _, row := range assignment[t] {
						leaf := f.Trees[t].Traverse(view, row)
						key := f.Trees[t].DrawResponseKey(leaf, rng)
						values[row] = f.ResponseValues[key]
					}
				}
			}()
		}
		wg.Wait()
		return &PredictResult{Mode: Inbag, NRow: nRow, Values: values}, nil

	default: // Bagged
		votes := make([]map[int]int, nRow)
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, iv := range splitIntervals(nTree, nThread) {
			iv := iv
			wg.Add(1)
			go func() {
				defer wg.Done()
				rng := shardRNG(seed, iv.start)
				for t := iv.start; t < iv.end; t++ {
					for row := 0; row < nRow; row++ {
						leaf := f.Trees[t].Traverse(view, row)
						key := f.Trees[t].MostFrequentResponseKey(leaf, rng)
						mu.Lock()
						if votes[row] == nil {
							votes[row] = make(map[int]int)
						}
						votes[row][key]++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		values := make([]float64, nRow)
		for row, tally := range votes {
			best, bestCount := 0, -1
			for key, count := range tally {
				if count > bestCount {
					best, bestCount = key, count
				}
			}
			if bestCount >= 0 {
				values[row] = f.ResponseValues[best]
			}
		}
		return &PredictResult{Mode: Bagged, NRow: nRow, Values: values}, nil
	}
}

// Predict mirrors Classification.Predict for regression; BAGGED/INBAG
// aggregate via mean rather than majority vote.
func (f *Regression) Predict(x data.Matrix, mode PredictionType, seed uint64, nThread int) (*PredictResult, error) {
	if x.NCol() != f.NPredictor {
		return nil, literangererr.InvalidArgumentf(
			"predict: x has %d columns, forest has n_predictor %d", x.NCol(), f.NPredictor)
	}
	nRow := x.NRow()
	nTree := len(f.Trees)
	if nThread <= 0 {
		nThread = 1
	}
	view, err := data.NewView(x, x)
	if err != nil {
		return nil, err
	}

	switch mode {
	case Nodes:
		nodeIndex := make([]int, nRow*nTree)
		var wg sync.WaitGroup
		for _, iv := range splitIntervals(nTree, nThread) {
			iv := iv
			wg.Add(1)
			go func() {
				defer wg.Done()
				for t := iv.start; t < iv.end; t++ {
					for row := 0; row < nRow; row++ {
						nodeIndex[row*nTree+t] = f.Trees[t].Traverse(view, row)
					}
				}
			}()
		}
		wg.Wait()
		return &PredictResult{Mode: Nodes, NRow: nRow, NTree: nTree, NodeIndex: nodeIndex}, nil

	case Inbag:
		// INBAG draws uniformly from each leaf's in-bag response-value
		// list rather than averaging it, the multiple-imputation semantics
		// distinguishing it from BAGGED's mean.
		assignment := assignRowsToTrees(nRow, nTree, seed)
		values := make([]float64, nRow)
		var wg sync.WaitGroup
		for _, iv := range splitIntervals(nTree, nThread) {
			iv := iv
			wg.Add(1)
			go func() {
				defer wg.Done()
				rng := shardRNG(seed, iv.start)
				for t := iv.start; t < iv.end; t++ {
					for _, row := range assignment[t] {
						leaf := f.Trees[t].Traverse(view, row)
						values[row] = f.Trees[t].DrawResponseValue(leaf, rng)
					}
				}
			}()
		}
		wg.Wait()
		return &PredictResult{Mode: Inbag, NRow: nRow, Values: values}, nil

	default: // Bagged
		sums := make([]float64, nRow)
		counts := make([]int, nRow)
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, iv := range splitIntervals(nTree, nThread) {
			iv := iv
			wg.Add(1)
			go func() {
				defer wg.Done()
				for t := iv.start; t < iv.end; t++ {
					for row := 0; row < nRow; row++ {
						leaf := f.Trees[t].Traverse(view, row)
						pred := f.Trees[t].MeanResponse(leaf)
						mu.Lock()
						sums[row] += pred
						counts[row]++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		values := make([]float64, nRow)
		for row := range values {
			if counts[row] > 0 {
				values[row] = sums[row] / float64(counts[row])
			}
		}
		return &PredictResult{Mode: Bagged, NRow: nRow, Values: values}, nil
	}
}

// PredictResult holds the output of a Predict call; exactly one of
// Values/NodeIndex is populated, matching the mode requested.
type PredictResult struct {
	Mode  PredictionType
	NRow  int
	NTree int

	Values    []float64 // length NRow, BAGGED/INBAG
	NodeIndex []int     // length NRow*NTree, row-major, NODES
}

// assignRowsToTrees implements INBAG's setup step: each row is assigned to
// exactly one tree, uniformly, deterministically in seed.
func assignRowsToTrees(nRow, nTree int, seed uint64) [][]int {
	rng := newForestRNG(seed)
	assignment := make([][]int, nTree)
	for row := 0; row < nRow; row++ {
		t := rng.Intn(nTree)
		assignment[t] = append(assignment[t], row)
	}
	return assignment
}
