package force

import "math/rand"

// The deterministic interval bounds of EvalNodes are often far too wide for
// well-separated but large nodes. The Monte Carlo path replaces them with
// sample statistics: index triples are drawn uniformly from the three nodes'
// ranges, each accepted draw is evaluated exactly, and the z-scaled sample
// standard deviation per component stands in for the interval half-width in
// the same relative-error test.
//
// Stopping rule: samples are drawn in batches of 25 accepted draws. After
// each batch the Monte Carlo errors are tested; if every distinct node
// passes, the triple is pruned using the sample means as zero-width bounds
// and the evaluation reports success. Sampling stops unsuccessfully when the
// total budget (maxSamples) is exhausted or when the rejection loop cannot
// assemble a batch. A successful prune is therefore backed by the confidence
// level of the caller's z-score per component, not by a guaranteed interval.

// Upper bound on draw attempts per accepted sample before giving up on a
// batch. Ascending-order rejection discards at most 5 of 6 orderings for
// disjoint ranges, so 64 attempts per acceptance is far beyond the expected
// need unless the ranges cannot interleave at all.
const maxAttemptsPerSample = 64

// MonteCarloEvalNodes attempts a sampling-based prune of a node triple.
// Draws are rejected unless index0 < index1 < index2, which keeps symmetric
// configurations from being double-counted. Returns true and deposits the
// postponed contribution when the confidence-interval error meets the same
// criterion as the deterministic test.
func (k *Kernel) MonteCarloEvalNodes(data Points, nodes [3]Node, relErr, zScore, totalTuples float64) bool {
	if k.rng == nil {
		return false
	}

	tc := computeNumTwoTuples(&nodes)
	rs := roles(&nodes, tc)
	stats := newSampleStats()
	attempts := 0

	var idx [3]int
	for stats.n < k.maxSamples {
		target := stats.n + sampleBatch
		for stats.n < target {
			if attempts >= maxAttemptsPerSample*target {
				return false
			}
			attempts++

			if !drawTriple(k.rng, &nodes, &idx) {
				continue
			}

			k.pointDistances(data, &idx)
			gb := k.gradients(true)
			stats.add(&gb)
		}

		errs := stats.errors(zScore)
		if !finiteErrors(&errs) {
			return false
		}
		if !prunable(&rs, &errs, relErr, totalTuples) {
			continue
		}

		// Prune on the sample means: a zero-width interval per component,
		// exactly as a degenerate deterministic bound would be deposited.
		var gb GradientBounds
		for c := 0; c < NumComponents; c++ {
			m := stats.mean(c)
			if !finite(m) {
				return false
			}
			gb[c] = Interval{Min: m, Max: m}
		}
		accumulate(&rs, &gb)
		return true
	}
	return false
}

// drawTriple fills idx with one uniform draw from the three node ranges and
// reports whether it is accepted: strictly ascending indices, so no point
// repeats and symmetric configurations are counted once.
func drawTriple(rng *rand.Rand, nodes *[3]Node, idx *[3]int) bool {
	idx[0] = randRange(rng, nodes[0].Begin(), nodes[0].End())
	idx[1] = randRange(rng, nodes[1].Begin(), nodes[1].End())
	idx[2] = randRange(rng, nodes[2].Begin(), nodes[2].End())
	return idx[0] < idx[1] && idx[1] < idx[2]
}

// randRange returns a uniform int in [lo, hi).
func randRange(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo)
}
