package force

import "math"

// axpy adds alpha*x into y in place. Vectors must have equal length.
func axpy(alpha float64, x, y []float64) {
	for i := range y {
		y[i] += alpha * x[i]
	}
}

func l1Norm(v []float64) float64 {
	var n float64
	for _, x := range v {
		n += math.Abs(x)
	}
	return n
}

func distanceSq(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
