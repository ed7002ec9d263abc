package force

import "math"

// tupleCounts holds the number of ordered point two-tuples contributed by the
// "other two" entities of each role: JK pairs weight entity0's deposits, IK
// pairs entity1's, IJ pairs entity2's.
type tupleCounts struct {
	jk, ik, ij float64
}

func binomial2(n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(n) * float64(n-1) / 2.0
}

// computeNumTwoTuples counts the point pairs each node's deposit must be
// weighted by, collapsing repeated entities through binomial coefficients:
// a self-triple must not count a point paired with itself.
func computeNumTwoTuples(nodes *[3]Node) tupleCounts {
	var tc tupleCounts
	switch {
	case nodes[0] == nodes[1] && nodes[1] == nodes[2]:
		tc.jk = binomial2(nodes[0].Count() - 1)
		tc.ik = tc.jk
		tc.ij = tc.jk
	case nodes[0] == nodes[1]:
		tc.jk = float64(nodes[0].Count()-1) * float64(nodes[2].Count())
		tc.ik = tc.jk
		tc.ij = binomial2(nodes[0].Count())
	case nodes[1] == nodes[2]:
		tc.jk = binomial2(nodes[1].Count())
		tc.ik = float64(nodes[0].Count()) * float64(nodes[2].Count()-1)
		tc.ij = float64(nodes[0].Count()) * float64(nodes[1].Count()-1)
	default:
		tc.jk = float64(nodes[1].Count()) * float64(nodes[2].Count())
		tc.ik = float64(nodes[0].Count()) * float64(nodes[2].Count())
		tc.ij = float64(nodes[0].Count()) * float64(nodes[1].Count())
	}
	return tc
}

// role describes one node's view of the triple: its two incident gradient
// components, the partner node across each incident pair, the remaining node
// of each pair, and the pair count of the two other entities.
type role struct {
	node               Node
	compA, compB       int // negative-component indices; positive is +1
	partnerA, partnerB Node
	remA, remB         Node
	weight             float64
}

// roles returns the per-node views in evaluation order. Component 1 joins
// entities 0 and 1, component 2 entities 0 and 2, component 3 entities 1
// and 2.
func roles(nodes *[3]Node, tc tupleCounts) [3]role {
	return [3]role{
		{
			node:  nodes[0],
			compA: NegGrad1, partnerA: nodes[1], remA: nodes[2],
			compB: NegGrad2, partnerB: nodes[2], remB: nodes[1],
			weight: tc.jk,
		},
		{
			node:  nodes[1],
			compA: NegGrad1, partnerA: nodes[0], remA: nodes[2],
			compB: NegGrad3, partnerB: nodes[2], remB: nodes[0],
			weight: tc.ik,
		},
		{
			node:  nodes[2],
			compA: NegGrad2, partnerA: nodes[0], remA: nodes[1],
			compB: NegGrad3, partnerB: nodes[1], remB: nodes[0],
			weight: tc.ij,
		},
	}
}

// nodePrunable runs the two-part relative-error test for a single node. The
// budget is relErr/totalTuples of the node's accumulated magnitude lower
// bounds, postponed deltas included: the upper (least-magnitude) bound for
// the negative family and the lower bound for the positive family.
func nodePrunable(r *role, errs *ComponentErrors, relErr, totalTuples float64) bool {
	st := r.node.Stat()
	budget := relErr / totalTuples

	negErr := errs[r.compA] + errs[r.compB]
	if negErr > budget*math.Abs(st.NegGrad1Upper+st.PostponedNegGrad1U) {
		return false
	}
	posErr := errs[r.compA+1] + errs[r.compB+1]
	if posErr > budget*(st.PosGrad1Lower+st.PostponedPosGrad1L) {
		return false
	}

	// Second-order test: errors are projected through the partners'
	// coordinate-sum L1 norms and weighted by the other entities' pair
	// count.
	wA := float64(r.remA.Count()) * r.partnerA.Stat().CoordSumL1
	wB := float64(r.remB.Count()) * r.partnerB.Stat().CoordSumL1
	budget2 := relErr * r.weight / totalTuples

	neg2 := wA*errs[r.compA] + wB*errs[r.compB]
	if neg2 > budget2*(l1Norm(st.NegGrad2Upper)+l1Norm(st.PostponedNegGrad2U)) {
		return false
	}
	pos2 := wA*errs[r.compA+1] + wB*errs[r.compB+1]
	return pos2 <= budget2*(l1Norm(st.PosGrad2Lower)+l1Norm(st.PostponedPosGrad2L))
}

// prunable tests every distinct node of the triple, short-circuiting on the
// first failure. A repeated entity inherits the preceding result, so a
// self-triple is tested once.
func prunable(rs *[3]role, errs *ComponentErrors, relErr, totalTuples float64) bool {
	for i := range rs {
		if i > 0 && rs[i].node == rs[i-1].node {
			continue
		}
		if !nodePrunable(&rs[i], errs, relErr, totalTuples) {
			return false
		}
	}
	return true
}

// accumulate deposits the postponed aggregate contribution of the whole
// triple on every distinct node. First-order deltas are the node's two
// incident gradient bounds weighted by the pair count of the other two
// entities; second-order deltas project each incident bound onto the pair
// partner's coordinate sum, scaled by the remaining entity's point count.
func accumulate(rs *[3]role, gb *GradientBounds) {
	for i := range rs {
		if i > 0 && rs[i].node == rs[i-1].node {
			continue
		}
		r := &rs[i]
		st := r.node.Stat()
		nA, nB := gb[r.compA], gb[r.compB]
		pA, pB := gb[r.compA+1], gb[r.compB+1]

		st.PostponedNegGrad1E += r.weight * (nA.Mid() + nB.Mid())
		st.PostponedNegGrad1U += r.weight * (nA.Max + nB.Max)
		st.PostponedPosGrad1L += r.weight * (pA.Min + pB.Min)
		st.PostponedPosGrad1E += r.weight * (pA.Mid() + pB.Mid())

		cntA := float64(r.remA.Count())
		cntB := float64(r.remB.Count())
		sumA := r.partnerA.Stat().CoordSum
		sumB := r.partnerB.Stat().CoordSum

		axpy(cntA*nA.Mid(), sumA, st.PostponedNegGrad2E)
		axpy(cntB*nB.Mid(), sumB, st.PostponedNegGrad2E)
		axpy(cntA*nA.Max, sumA, st.PostponedNegGrad2U)
		axpy(cntB*nB.Max, sumB, st.PostponedNegGrad2U)
		axpy(cntA*pA.Min, sumA, st.PostponedPosGrad2L)
		axpy(cntB*pB.Min, sumB, st.PostponedPosGrad2L)
		axpy(cntA*pA.Mid(), sumA, st.PostponedPosGrad2E)
		axpy(cntB*pB.Mid(), sumB, st.PostponedPosGrad2E)
	}
}

// EvalNodes runs the deterministic finite-difference pruning test on a node
// triple. When the triple is prunable its aggregate contribution is deposited
// on the nodes' postponed accumulators and true is returned; the caller must
// not descend further. False means the caller has to recurse (or fall back to
// the Monte Carlo path).
//
// relErr is the caller's relative-error tolerance, totalTuples the global
// count of (n-1)-point tuples normalizing the error budget.
func (k *Kernel) EvalNodes(nodes [3]Node, relErr, totalTuples float64) bool {
	k.nodeDistances(&nodes)

	// A touching pair makes the gradient singular; never approximate.
	for i := 0; i < 2; i++ {
		for j := i + 1; j < 3; j++ {
			if k.dist[i][j] == 0 {
				return false
			}
		}
	}

	gb := k.gradients(false)
	if !gb.Finite() {
		return false
	}

	errs := finiteDifferenceErrors(&gb)
	tc := computeNumTwoTuples(&nodes)
	rs := roles(&nodes, tc)
	if !prunable(&rs, &errs, relErr, totalTuples) {
		return false
	}
	accumulate(&rs, &gb)
	return true
}
