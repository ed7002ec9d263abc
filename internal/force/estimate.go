package force

import "math"

// finiteDifferenceErrors converts interval bounds into per-component
// approximation errors: half the interval width, which is the worst-case
// error of approximating every represented triple by the interval midpoint.
func finiteDifferenceErrors(gb *GradientBounds) ComponentErrors {
	var errs ComponentErrors
	for c := 0; c < NumComponents; c++ {
		errs[c] = 0.5 * gb[c].Width()
	}
	return errs
}

// sampleStats accumulates running order statistics and moments for the six
// gradient components over Monte Carlo draws.
type sampleStats struct {
	min, max   [NumComponents]float64
	sum, sumSq [NumComponents]float64
	n          int
}

func newSampleStats() *sampleStats {
	var s sampleStats
	for c := 0; c < NumComponents; c++ {
		s.min[c] = math.MaxFloat64
		s.max[c] = -math.MaxFloat64
	}
	return &s
}

func (s *sampleStats) add(gb *GradientBounds) {
	for c := 0; c < NumComponents; c++ {
		x := gb[c].Min // degenerate interval: Min == Max
		s.min[c] = math.Min(s.min[c], x)
		s.max[c] = math.Max(s.max[c], x)
		s.sum[c] += x
		s.sumSq[c] += x * x
	}
	s.n++
}

func (s *sampleStats) mean(c int) float64 {
	return s.sum[c] / float64(s.n)
}

// errors returns the z-scaled square root of the unbiased sample variance per
// component: z * sqrt((sum(x^2) - sum(x)^2/n) / (n-1)). Needs n >= 2.
func (s *sampleStats) errors(zScore float64) ComponentErrors {
	var errs ComponentErrors
	inv := 1.0 / float64(s.n-1)
	for c := 0; c < NumComponents; c++ {
		variance := inv * (s.sumSq[c] - s.sum[c]*s.sum[c]/float64(s.n))
		// Guard tiny negative values from cancellation.
		if variance < 0 {
			variance = 0
		}
		errs[c] = zScore * math.Sqrt(variance)
	}
	return errs
}

// finiteErrors reports whether every component error is a usable number.
func finiteErrors(errs *ComponentErrors) bool {
	for _, e := range errs {
		if !finite(e) {
			return false
		}
	}
	return true
}
