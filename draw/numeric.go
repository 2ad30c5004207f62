package draw

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Rank returns the tie-averaged rank (1-based) of each element of y, the
// rank-transform used by the MAXSTAT split rule's standardized score.
// Elements with equal value receive the mean of the ranks they would
// otherwise occupy.
func Rank(y []float64) []float64 {
	n := len(y)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return y[order[a]] < y[order[b]] })

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && y[order[j+1]] == y[order[i]] {
			j++
		}
		// positions i..j (inclusive) are tied; average rank is the mean of
		// the 1-based ranks i+1..j+1.
		avg := float64(i+1+j+1) / 2.0
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// MeanVariance returns the sample mean and (population) variance of y,
// reusing gonum/stat for the numerically stable two-pass computation the
// regression tree's node aggregates and the BETA/MAXSTAT rules both need.
func MeanVariance(y []float64) (mean, variance float64) {
	mean = stat.Mean(y, nil)
	if len(y) < 2 {
		return mean, 0
	}
	variance = stat.Variance(y, nil) * float64(len(y)-1) / float64(len(y))
	return mean, variance
}

// betaMoments fits a Beta(alpha, beta) distribution to values by the
// method of moments: nu = mu(1-mu)/var - 1, alpha = mu*nu, beta = (1-mu)*nu.
// ok is false when the sample variance is at or below eps (the fit is
// degenerate) or fewer than 2 observations are given.
func betaMoments(values []float64) (alpha, beta float64, ok bool) {
	const eps = 1e-8
	if len(values) < 2 {
		return 0, 0, false
	}
	mu, v := MeanVariance(values)
	if v <= eps || mu <= 0 || mu >= 1 {
		return 0, 0, false
	}
	nu := mu*(1-mu)/v - 1
	if nu <= 0 {
		return 0, 0, false
	}
	alpha = mu * nu
	beta = (1 - mu) * nu
	if alpha <= 0 || beta <= 0 {
		return 0, 0, false
	}
	return alpha, beta, true
}

// logBeta is ln B(alpha, beta) = lnGamma(alpha)+lnGamma(beta)-lnGamma(alpha+beta),
// computed via math.Lgamma (the standard library already provides the
// numerically stable log-gamma the specification's design notes call for;
// duplicating it via an external special-functions package would add a
// second numerics path for no behavioral gain).
func logBeta(alpha, beta float64) float64 {
	lgA, _ := math.Lgamma(alpha)
	lgB, _ := math.Lgamma(beta)
	lgAB, _ := math.Lgamma(alpha + beta)
	return lgA + lgB - lgAB
}

// BetaLogLikelihood fits a method-of-moments Beta distribution to values
// and returns the total log-likelihood of values under that fit. ok is
// false when fewer than 2 values are supplied, the fit is degenerate, or
// the resulting likelihood is NaN (e.g. a value at exactly 0 or 1).
func BetaLogLikelihood(values []float64) (ll float64, ok bool) {
	alpha, beta, ok := betaMoments(values)
	if !ok {
		return 0, false
	}
	nB := logBeta(alpha, beta)
	total := -float64(len(values)) * nB
	for _, y := range values {
		if y <= 0 || y >= 1 {
			return 0, false
		}
		total += (alpha-1)*math.Log(y) + (beta-1)*math.Log(1-y)
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, false
	}
	return total, true
}

func stdNormalDensity(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func stdNormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// PValueLausen1992 approximates the boundary-crossing p-value for a
// maximally-selected standardized rank statistic of magnitude b, searched
// over a relative cutpoint range [minProp, maxProp], following Lausen &
// Schumacher (1992)'s Ornstein-Uhlenbeck approximation.
func PValueLausen1992(b, minProp, maxProp float64) float64 {
	if b <= 0 {
		return 1
	}
	phi := stdNormalDensity(b)
	p := 4*phi/b + phi*(b-1/b)*math.Log(((1-minProp)*maxProp)/(minProp*(1-maxProp)))
	p += 2 * (1 - stdNormalCDF(b))
	return clampProbability(p)
}

// PValueLausen1994 refines PValueLausen1992 with the second-order
// correction proposed by Lausen, Sauerbrei & Schumacher (1994), which
// tightens the approximation away from the symmetric minProp/maxProp case.
func PValueLausen1994(b, minProp, maxProp float64) float64 {
	if b <= 0 {
		return 1
	}
	base := PValueLausen1992(b, minProp, maxProp)
	phi := stdNormalDensity(b)
	correction := phi * b * (b*b - 1) / 24 *
		(1/(minProp*(1-minProp)) - 1/(maxProp*(1-maxProp))) * (maxProp - minProp)
	return clampProbability(base - correction)
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return 1
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
