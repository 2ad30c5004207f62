package forest

import (
	"math/rand"
	"sync"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/draw"
	"github.com/cran/literanger/literangererr"
	"github.com/cran/literanger/tree"
)

// Regression is a planted forest of regression trees; see Classification
// for the shared Plant/OOB grounding notes.
type Regression struct {
	NPredictor     int
	IsOrdered      []bool
	PredictorNames []string

	Trees []*tree.Regression

	SaveMemory      bool
	NTry            int
	SplitRule       tree.SplitRule
	MaxDepth        int
	MinSplitNSample int
	MinLeafNSample  int
	NRandomSplit    int
	Seed            uint64

	OOBError *float64
}

// PlantRegression grows a forest of regression trees from x/y following
// the same 6-step procedure as PlantClassification, minus the response
// index (a regression response is consumed directly as a float64 column).
func PlantRegression(x, y data.Matrix, cfg Config) (*Regression, error) {
	if cfg.TreeType != Regression {
		return nil, literangererr.InvalidArgumentf("PlantRegression requires cfg.TreeType == Regression")
	}
	nPredictor := x.NCol()
	r, err := cfg.resolve(nPredictor)
	if err != nil {
		return nil, err
	}
	if cfg.NTree <= 0 {
		return nil, literangererr.InvalidArgumentf("n_tree must be > 0, got %d", cfg.NTree)
	}
	if len(cfg.ResponseWeights) > 0 {
		return nil, literangererr.InvalidArgumentf("response_weights is only valid for classification")
	}

	view, err := data.NewView(x, y)
	if err != nil {
		return nil, err
	}
	if needsResponseWise(&cfg) {
		return nil, literangererr.InvalidArgumentf("response-wise sample_fraction requires a categorical response")
	}
	if !cfg.SaveMemory {
		if err := view.BuildPredictorIndex(); err != nil {
			return nil, err
		}
	}

	forestRNG := newForestRNG(cfg.Seed)
	treeSeeds := make([]int64, cfg.NTree)
	for i := range treeSeeds {
		treeSeeds[i] = forestRNG.Int63()
	}

	params := r.trainingParameters(&cfg)
	trees := make([]*tree.Regression, cfg.NTree)
	resamples := make([]draw.Resample, cfg.NTree)

	prog := newProgress(cfg.NTree)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	intervals := splitIntervals(cfg.NTree, r.nThread)
	for _, iv := range intervals {
		iv := iv
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := iv.start; i < iv.end; i++ {
				if prog.Interrupted() {
					return
				}
				rng := rand.New(rand.NewSource(treeSeeds[i]))
				resample, err := resampleRows(&cfg, view, rng)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				t := tree.NewRegression(nPredictor)
				if err := t.Grow(view, resample.InBag, params, rng); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				trees[i] = t
				resamples[i] = resample
				prog.increment()
			}
		}()
	}
	go prog.run(cfg.Printer, orDefaultClock(cfg.Clock), cfg.Probe)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if prog.Interrupted() {
		return nil, literangererr.Cancelledf("plant: interrupted")
	}

	f := &Regression{
		NPredictor:      nPredictor,
		IsOrdered:       r.isOrdered,
		PredictorNames:  append([]string(nil), cfg.PredictorNames...),
		Trees:           trees,
		SaveMemory:      cfg.SaveMemory,
		NTry:            r.nTry,
		SplitRule:       r.splitRule,
		MaxDepth:        cfg.MaxDepth,
		MinSplitNSample: r.minSplitNSample,
		MinLeafNSample:  r.minLeafNSample,
		NRandomSplit:    cfg.NRandomSplit,
		Seed:            cfg.Seed,
	}

	if cfg.ComputeOOBError {
		f.OOBError = f.computeOOBError(view, resamples, r.nThread)
	}
	return f, nil
}

// computeOOBError implements §4.5 step 6 for regression: a per-row list of
// OOB-predicted means, sharded over n_thread intervals, then mean squared
// error against the truth over rows with at least one OOB prediction.
func (f *Regression) computeOOBError(view *data.View, resamples []draw.Resample, nThread int) *float64 {
	nRow := view.NRow()
	sums := make([]float64, nRow)
	counts := make([]int, nRow)
	var mu sync.Mutex
	var wg sync.WaitGroup

	intervals := splitIntervals(len(f.Trees), nThread)
	for _, iv := range intervals {
		iv := iv
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := iv.start; i < iv.end; i++ {
				t := f.Trees[i]
				for _, row := range resamples[i].OOB {
					leaf := t.Traverse(view, row)
					pred := t.MeanResponse(leaf)
					mu.Lock()
					sums[row] += pred
					counts[row]++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	var sumSq float64
	var total int
	for row, c := range counts {
		if c == 0 {
			continue
		}
		mean := sums[row] / float64(c)
		diff := mean - view.GetY(row, 0)
		sumSq += diff * diff
		total++
	}
	if total == 0 {
		return nil
	}
	mse := sumSq / float64(total)
	return &mse
}
