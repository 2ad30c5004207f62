package forest

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/draw"
)

// interval is one contiguous [start, end) slice of tree indices assigned
// to a single worker, per §4.5 step 5 / §5's scheduling model.
type interval struct{ start, end int }

// splitIntervals partitions [0, n) into at most nThread contiguous,
// roughly-equal intervals. The leading intervals absorb the remainder, one
// extra index each, and nThread is capped at n so no interval is empty
// when n > 0.
func splitIntervals(n, nThread int) []interval {
	if nThread > n {
		nThread = n
	}
	if nThread < 1 {
		nThread = 1
	}
	base := n / nThread
	rem := n % nThread
	intervals := make([]interval, 0, nThread)
	start := 0
	for i := 0; i < nThread; i++ {
		size := base
		if i < rem {
			size++
		}
		intervals = append(intervals, interval{start: start, end: start + size})
		start += size
	}
	return intervals
}

// newForestRNG seeds the forest-level PRNG per §4.5 step 2: seed == 0 asks
// for a non-deterministic run, drawn from the OS CSPRNG; any other value
// makes the whole plant call deterministic.
func newForestRNG(seed uint64) *rand.Rand {
	if seed == 0 {
		var buf [8]byte
		crand.Read(buf[:])
		seed = binary.LittleEndian.Uint64(buf[:])
	}
	return rand.New(rand.NewSource(int64(seed)))
}

// shardRNG derives a worker's own draw stream for a tree-interval,
// distinct from the forest-level and per-tree RNGs: deterministic when
// seed != 0 (one stream per shard start, so intervals don't all replay the
// same sequence), OS-seeded otherwise.
func shardRNG(seed uint64, shardStart int) *rand.Rand {
	if seed == 0 {
		return newForestRNG(0)
	}
	return rand.New(rand.NewSource(int64(seed) + int64(shardStart) + 1))
}

func orDefaultClock(c Clock) Clock {
	if c == nil {
		return realClock{}
	}
	return c
}

func needsResponseWise(cfg *Config) bool {
	return len(cfg.SampleFraction) > 1
}

// resampleRows draws one tree's in-bag/out-of-bag row sets per §4.5 step 5,
// choosing among the unweighted, case-weighted, and response-stratified
// paths exactly as §3/§4.2 describe; case weights and response-wise
// sampling are mutually exclusive (already rejected in Config.resolve).
func resampleRows(cfg *Config, view *data.View, rng *rand.Rand) (draw.Resample, error) {
	nRow := view.NRow()
	fraction := 1.0
	if len(cfg.SampleFraction) == 1 {
		fraction = cfg.SampleFraction[0]
	}

	switch {
	case needsResponseWise(cfg):
		return draw.ResponseWise(nRow, cfg.Replace, cfg.SampleFraction, view.SampleKeysByResponse(), rng)
	case len(cfg.CaseWeights) > 0:
		return draw.Weighted(nRow, cfg.Replace, fraction, cfg.CaseWeights, rng)
	default:
		return draw.Unweighted(nRow, cfg.Replace, fraction, rng), nil
	}
}
