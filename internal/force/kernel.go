// Package force implements the triple-interaction approximation engine for an
// Axilrod-Teller-type potential. Given three entities of a spatial index
// (tree nodes or individual points), it bounds the three pairwise gradient
// magnitudes that compose the 3-body force, decides whether the aggregate
// contribution of every point triple the entities represent can be
// approximated within a relative-error tolerance, and either deposits
// postponed aggregate deltas on the nodes' statistics or reports that the
// caller must descend. A Monte Carlo sampler refines the decision when the
// deterministic interval bounds are too loose, and an exact evaluator handles
// the terminal point-triple case.
package force

import (
	"math"
	"math/rand"
)

// DefaultCoeff is the nu constant in front of the Axilrod-Teller potential.
const DefaultCoeff = 1e-18

// Batch size of the Monte Carlo sampler and the default total sample budget.
const (
	sampleBatch       = 25
	defaultMaxSamples = 250
)

// Component indices for the six gradient quantities of a triple. Component 1
// belongs to the pair (entity0, entity1), component 2 to (entity0, entity2),
// component 3 to (entity1, entity2). Each pair has an attractive ("negative",
// always <= 0) and a repulsive ("positive", always >= 0) term.
const (
	NegGrad1 = iota
	PosGrad1
	NegGrad2
	PosGrad2
	NegGrad3
	PosGrad3
	NumComponents
)

// Interval is a closed bound [Min, Max] on an unknown exact quantity. Exact
// evaluations produce degenerate intervals with Min == Max.
type Interval struct {
	Min, Max float64
}

// Width returns Max - Min.
func (iv Interval) Width() float64 { return iv.Max - iv.Min }

// Mid returns the midpoint, used as the point estimate of the interval.
func (iv Interval) Mid() float64 { return 0.5 * (iv.Min + iv.Max) }

// GradientBounds holds one interval per gradient component.
type GradientBounds [NumComponents]Interval

// Finite reports whether every bound is a usable number. Non-finite bounds
// must never feed an approximation.
func (gb *GradientBounds) Finite() bool {
	for _, iv := range gb {
		if !finite(iv.Min) || !finite(iv.Max) {
			return false
		}
	}
	return true
}

// ComponentErrors is the scalar approximation error per gradient component.
type ComponentErrors [NumComponents]float64

// Kernel evaluates distance and gradient bounds for triples and carries the
// scratch state those evaluations share. A Kernel is not safe for concurrent
// use; the traversal driver owns one per goroutine.
type Kernel struct {
	coeff      float64
	maxSamples int
	rng        *rand.Rand

	// dist[i][j] for i < j holds the minimum squared distance of pair
	// (i, j); dist[j][i] holds the maximum.
	dist [3][3]float64
}

// NewKernel returns a kernel for the given potential coefficient.
// maxSamples caps the Monte Carlo budget per triple (<= 0 selects the
// default). rng drives the sampler; nil disables the Monte Carlo path.
func NewKernel(coeff float64, maxSamples int, rng *rand.Rand) *Kernel {
	if maxSamples <= 0 {
		maxSamples = defaultMaxSamples
	}
	return &Kernel{coeff: coeff, maxSamples: maxSamples, rng: rng}
}

// Coeff returns the configured potential coefficient.
func (k *Kernel) Coeff() float64 { return k.coeff }

// nodeDistances fills the distance table from the bounding volumes of a node
// triple.
func (k *Kernel) nodeDistances(nodes *[3]Node) {
	for i := 0; i < 2; i++ {
		bi := nodes[i].Bound()
		for j := i + 1; j < 3; j++ {
			bj := nodes[j].Bound()
			k.dist[i][j] = bi.MinDistanceSq(bj)
			k.dist[j][i] = bi.MaxDistanceSq(bj)
		}
	}
}

// pointDistances fills the distance table with exact squared distances of a
// point triple (min == max).
func (k *Kernel) pointDistances(data Points, idx *[3]int) {
	for i := 0; i < 2; i++ {
		pi := data[idx[i]]
		for j := i + 1; j < 3; j++ {
			d := distanceSq(pi, data[idx[j]])
			k.dist[i][j] = d
			k.dist[j][i] = d
		}
	}
}

// pairPowers caches the odd powers of a pairwise distance that appear in the
// gradient formulas.
type pairPowers struct {
	d1, d2, d3, d4, d5, d6 float64
}

func (k *Kernel) powers(a, b int) (lo, hi pairPowers) {
	i, j := a, b
	if i > j {
		i, j = j, i
	}
	lo = newPairPowers(k.dist[i][j])
	hi = newPairPowers(k.dist[j][i])
	return lo, hi
}

func newPairPowers(dsq float64) pairPowers {
	d := math.Sqrt(dsq)
	return pairPowers{
		d1: d,
		d2: dsq,
		d3: dsq * d,
		d4: dsq * dsq,
		d5: dsq * dsq * d,
		d6: dsq * dsq * dsq,
	}
}

// gradient bounds for the pair (a, b) of the triple, with c the remaining
// entity. The first pair's distance is the shared denominator d1 of the
// common factor 3*coeff/(8*d1): the minimum gradient bound therefore reads
// maximum distances where the formula shrinks with distance and vice versa.
// When exact is true only the minimum side is evaluated (the table is
// degenerate, so both sides coincide) and mirrored into Max.
func (k *Kernel) gradient(a, b, c int, exact bool) (neg, pos Interval) {
	lo1, hi1 := k.powers(a, b)
	lo2, hi2 := k.powers(a, c)
	lo3, hi3 := k.powers(b, c)

	minCommon := 3.0 * k.coeff / (8.0 * hi1.d1)
	maxCommon := 3.0 * k.coeff / (8.0 * lo1.d1)

	neg.Min = maxCommon *
		(-8.0/(lo1.d4*lo2.d3*lo3.d3) -
			1.0/(lo2.d5*lo3.d5) -
			1.0/(lo1.d2*lo2.d3*lo3.d5) -
			1.0/(lo1.d2*lo2.d5*lo3.d3) -
			3.0/(lo1.d4*lo2.d1*lo3.d5) -
			3.0/(lo1.d4*lo2.d5*lo3.d1) -
			5.0/(lo1.d6*lo2.d1*lo3.d3) -
			5.0/(lo1.d6*lo2.d3*lo3.d1))
	pos.Min = minCommon *
		(5.0*lo2.d1/(hi1.d6*hi3.d5) +
			5.0*lo3.d1/(hi1.d6*hi2.d5) +
			6.0/(hi1.d4*hi2.d3*hi3.d3))

	if exact {
		neg.Max = neg.Min
		pos.Max = pos.Min
		return neg, pos
	}

	neg.Max = minCommon *
		(-8.0/(hi1.d4*hi2.d3*hi3.d3) -
			1.0/(hi2.d5*hi3.d5) -
			1.0/(hi1.d2*hi2.d3*hi3.d5) -
			1.0/(hi1.d2*hi2.d5*hi3.d3) -
			3.0/(hi1.d4*hi2.d1*hi3.d5) -
			3.0/(hi1.d4*hi2.d5*hi3.d1) -
			5.0/(hi1.d6*hi2.d1*hi3.d3) -
			5.0/(hi1.d6*hi2.d3*hi3.d1))
	pos.Max = maxCommon *
		(5.0*hi2.d1/(lo1.d6*lo3.d5) +
			5.0*hi3.d1/(lo1.d6*lo2.d5) +
			6.0/(lo1.d4*lo2.d3*lo3.d3))
	return neg, pos
}

// gradients evaluates all six components from the current distance table.
func (k *Kernel) gradients(exact bool) GradientBounds {
	var gb GradientBounds
	gb[NegGrad1], gb[PosGrad1] = k.gradient(0, 1, 2, exact)
	gb[NegGrad2], gb[PosGrad2] = k.gradient(0, 2, 1, exact)
	gb[NegGrad3], gb[PosGrad3] = k.gradient(2, 1, 0, exact)
	return gb
}

// NodeGradientBounds computes the gradient bound intervals for a node triple
// without any pruning side effects. The traversal driver uses it to seed
// per-node magnitude bounds before the main walk.
func (k *Kernel) NodeGradientBounds(nodes [3]Node) GradientBounds {
	k.nodeDistances(&nodes)
	return k.gradients(false)
}
