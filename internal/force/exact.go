package force

// Results holds the per-point force accumulators. First-order fields are
// scalars projected onto each point's own coordinates at readout; the
// second-order fields couple a point's force to its neighbors' coordinate
// vectors. The {estimate, upper, lower} families mirror the node statistics
// so exact and flushed postponed contributions land in the same ledger.
type Results struct {
	Dim int

	NegForce1E []float64
	NegForce1U []float64
	PosForce1L []float64
	PosForce1E []float64

	NegForce2E [][]float64
	NegForce2U [][]float64
	PosForce2L [][]float64
	PosForce2E [][]float64
}

// NewResults allocates accumulators for n points of the given dimension.
func NewResults(n, dim int) *Results {
	mat := func() [][]float64 {
		m := make([][]float64, n)
		for i := range m {
			m[i] = make([]float64, dim)
		}
		return m
	}
	return &Results{
		Dim:        dim,
		NegForce1E: make([]float64, n),
		NegForce1U: make([]float64, n),
		PosForce1L: make([]float64, n),
		PosForce1E: make([]float64, n),
		NegForce2E: mat(),
		NegForce2U: mat(),
		PosForce2L: mat(),
		PosForce2E: mat(),
	}
}

// Force assembles the final force vector of point i from the estimate
// accumulators: the first-order scalar projects onto the point's own
// coordinates and the second-order vector removes the neighbor-coupled part.
func (r *Results) Force(i int, coords []float64, out []float64) {
	first := r.NegForce1E[i] + r.PosForce1E[i]
	for d := 0; d < r.Dim; d++ {
		out[d] = first*coords[d] - (r.NegForce2E[i][d] + r.PosForce2E[i][d])
	}
}

// contribute adds one cyclic role-assignment's share to the accumulators:
// self receives the raw gradient sums of its two incident pairs in first
// order, and each incident gradient scaled by the partner point's
// coordinates in second order.
func contribute(res *Results, data Points, self, pa, pb int, negA, posA, negB, posB float64) {
	res.NegForce1E[self] += negA + negB
	res.NegForce1U[self] += negA + negB
	res.PosForce1L[self] += posA + posB
	res.PosForce1E[self] += posA + posB

	axpy(negA, data[pa], res.NegForce2E[self])
	axpy(negB, data[pb], res.NegForce2E[self])
	axpy(negA, data[pa], res.NegForce2U[self])
	axpy(negB, data[pb], res.NegForce2U[self])

	axpy(posA, data[pa], res.PosForce2E[self])
	axpy(posB, data[pb], res.PosForce2E[self])
	axpy(posA, data[pa], res.PosForce2L[self])
	axpy(posB, data[pb], res.PosForce2L[self])
}

// EvalPoints is the exact base case: the precise mutual contribution of a
// concrete point triple, deposited for all three points. idx entries are
// indices into data; the caller guarantees they are distinct.
func (k *Kernel) EvalPoints(data Points, idx [3]int, res *Results) {
	k.pointDistances(data, &idx)
	gb := k.gradients(true)

	n1, p1 := gb[NegGrad1].Min, gb[PosGrad1].Min
	n2, p2 := gb[NegGrad2].Min, gb[PosGrad2].Min
	n3, p3 := gb[NegGrad3].Min, gb[PosGrad3].Min

	// Component 1 joins points 0 and 1, component 2 points 0 and 2,
	// component 3 points 1 and 2; each point collects its two incident
	// components.
	contribute(res, data, idx[0], idx[1], idx[2], n1, p1, n2, p2)
	contribute(res, data, idx[1], idx[0], idx[2], n1, p1, n3, p3)
	contribute(res, data, idx[2], idx[0], idx[1], n2, p2, n3, p3)
}
