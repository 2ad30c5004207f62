package forest

import (
	"math/rand"
	"sync"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/draw"
	"github.com/cran/literanger/literangererr"
	"github.com/cran/literanger/tree"
)

// Classification is a planted forest of classification trees, grounded on
// the teacher's forest.Classifier but rebuilt around the flat-array
// tree.Classification representation and sharded-by-interval workers
// described in §4.5/§5.
type Classification struct {
	NPredictor     int
	IsOrdered      []bool
	PredictorNames []string
	ResponseValues []float64

	Trees []*tree.Classification

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

// PlantClassification grows a forest of classification trees from x/y
// following the 6-step procedure in §4.5.
func PlantClassification(x, y data.Matrix, cfg Config) (*Classification, error) {
	if cfg.TreeType != Classification {
		return nil, literangererr.InvalidArgumentf("PlantClassification requires cfg.TreeType == Classification")
	}
	nPredictor := x.NCol()
	r, err := cfg.resolve(nPredictor)
	if err != nil {
		return nil, err
	}
	if cfg.NTree <= 0 {
		return nil, literangererr.InvalidArgumentf("n_tree must be > 0, got %d", cfg.NTree)
	}
	if len(cfg.ResponseWeights) > 0 && y.NRow() != x.NRow() {
		return nil, literangererr.InvalidArgumentf("x and y row counts differ")
	}

	view, err := data.NewView(x, y)
	if err != nil {
		return nil, err
	}
	if err := view.BuildResponseIndex(); err != nil {
		return nil, err
	}
	if len(cfg.ResponseWeights) > 0 && len(cfg.ResponseWeights) != view.NResponseValues() {
		return nil, literangererr.InvalidArgumentf(
			"response_weights length %d != n_response_values %d", len(cfg.ResponseWeights), view.NResponseValues())
	}
	if r.splitRule == tree.Hellinger && view.NResponseValues() != 2 {
		return nil, literangererr.InvalidArgumentf(
			"hellinger requires a binary response, got %d distinct values", view.NResponseValues())
	}
	if needsResponseWise(&cfg) {
		if err := view.BuildSampleKeysByResponse(); err != nil {
			return nil, err
		}
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
	trees := make([]*tree.Classification, cfg.NTree)
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
				t := tree.NewClassification(nPredictor, view.NResponseValues(), cfg.ResponseWeights)
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

	f := &Classification{
		NPredictor:      nPredictor,
		IsOrdered:       r.isOrdered,
		PredictorNames:  append([]string(nil), cfg.PredictorNames...),
		ResponseValues:  append([]float64(nil), view.ResponseValues()...),
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
		oobErr, err := f.computeOOBError(view, resamples, r.nThread)
		if err != nil {
			return nil, err
		}
		f.OOBError = oobErr
	}
	return f, nil
}

// computeOOBError implements §4.5 step 6 for classification: a per-row
// multiset of OOB-predicted response keys, sharded again over n_thread
// intervals, then majority-vote compared against the truth.
func (f *Classification) computeOOBError(view *data.View, resamples []draw.Resample, nThread int) (*float64, error) {
	nRow := view.NRow()
	votes := make([]map[int]int, nRow)
	var mu sync.Mutex
	var wg sync.WaitGroup

	intervals := splitIntervals(len(f.Trees), nThread)
	for _, iv := range intervals {
		iv := iv
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := shardRNG(f.Seed, iv.start)
			for i := iv.start; i < iv.end; i++ {
				t := f.Trees[i]
				for _, row := range resamples[i].OOB {
					leaf := t.Traverse(view, row)
					key := t.MostFrequentResponseKey(leaf, rng)
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

	var wrong, total int
	for row, tally := range votes {
		if len(tally) == 0 {
			continue
		}
		best, bestCount := -1, -1
		for key, count := range tally {
			if count > bestCount {
				best, bestCount = key, count
			}
		}
		total++
		if best != view.ResponseKey(row) {
			wrong++
		}
	}
	if total == 0 {
		return nil, nil
	}
	e := float64(wrong) / float64(total)
	return &e, nil
}
