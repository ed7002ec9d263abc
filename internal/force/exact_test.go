package force

import (
	"math"
	"testing"
)

func TestComputeNumTwoTuplesAllEqual(t *testing.T) {
	data := Points{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	n := newMockNode(data, 0, 4)
	nodes := [3]Node{n, n, n}
	tc := computeNumTwoTuples(&nodes)

	// each point pairs the other three: C(3, 2) = 3
	if tc.jk != 3 || tc.ik != 3 || tc.ij != 3 {
		t.Errorf("self-triple counts = (%g, %g, %g), want (3, 3, 3)", tc.jk, tc.ik, tc.ij)
	}
}

func TestComputeNumTwoTuplesFirstPairEqual(t *testing.T) {
	data := Points{{0, 0}, {1, 0}, {2, 0}, {10, 0}, {11, 0}}
	a := newMockNode(data, 0, 3)
	c := newMockNode(data, 3, 5)
	nodes := [3]Node{a, a, c}
	tc := computeNumTwoTuples(&nodes)

	if tc.jk != 4 { // (3-1) * 2
		t.Errorf("jk = %g, want 4", tc.jk)
	}
	if tc.ik != 4 {
		t.Errorf("ik = %g, want 4", tc.ik)
	}
	if tc.ij != 3 { // C(3, 2)
		t.Errorf("ij = %g, want 3", tc.ij)
	}
}

func TestComputeNumTwoTuplesLastPairEqual(t *testing.T) {
	data := Points{{0, 0}, {1, 0}, {10, 0}, {11, 0}, {12, 0}}
	a := newMockNode(data, 0, 2)
	b := newMockNode(data, 2, 5)
	nodes := [3]Node{a, b, b}
	tc := computeNumTwoTuples(&nodes)

	if tc.jk != 3 { // C(3, 2)
		t.Errorf("jk = %g, want 3", tc.jk)
	}
	if tc.ik != 4 { // 2 * (3-1)
		t.Errorf("ik = %g, want 4", tc.ik)
	}
	if tc.ij != 4 { // 2 * (3-1)
		t.Errorf("ij = %g, want 4", tc.ij)
	}
}

func TestComputeNumTwoTuplesDistinct(t *testing.T) {
	data := Points{{0, 0}, {1, 0}, {10, 0}, {11, 0}, {20, 0}, {21, 0}, {22, 0}}
	a := newMockNode(data, 0, 2)
	b := newMockNode(data, 2, 4)
	c := newMockNode(data, 4, 7)
	nodes := [3]Node{a, b, c}
	tc := computeNumTwoTuples(&nodes)

	if tc.jk != 6 || tc.ik != 6 || tc.ij != 4 {
		t.Errorf("distinct counts = (%g, %g, %g), want (6, 6, 4)", tc.jk, tc.ik, tc.ij)
	}
}

// A symmetric collinear triple must produce zero net force on the center
// point and opposite forces on the ends.
func TestEvalPointsSymmetry(t *testing.T) {
	data := Points{
		{0, 0, 0},
		{1, 0, 0},
		{2, 0, 0},
	}
	k := NewKernel(DefaultCoeff, 0, nil)
	res := NewResults(3, 3)
	k.EvalPoints(data, [3]int{0, 1, 2}, res)

	out := make([]float64, 3)

	res.Force(1, data[1], out)
	for d, v := range out {
		if math.Abs(v) > 1e-30 {
			t.Errorf("center force[%d] = %g, want 0", d, v)
		}
	}

	f0 := make([]float64, 3)
	f2 := make([]float64, 3)
	res.Force(0, data[0], f0)
	res.Force(2, data[2], f2)
	for d := range f0 {
		if math.Abs(f0[d]+f2[d]) > 1e-25*math.Max(math.Abs(f0[d]), 1) {
			t.Errorf("end forces not opposite in dim %d: %g vs %g", d, f0[d], f2[d])
		}
	}
	if f0[0] == 0 {
		t.Error("expected a nonzero axial force on the end points")
	}
}

// Closed-form reference for the collinear triple (0,0,0), (1,0,0), (2,0,0):
// the inverse powers are exact dyadics, so every component reduces to a
// rational multiple of the coupling coefficient. A wrong shared factor or a
// swapped power would shift these values far beyond the tolerance.
func TestEvalPointsReferenceValues(t *testing.T) {
	data := Points{
		{0, 0, 0},
		{1, 0, 0},
		{2, 0, 0},
	}
	k := NewKernel(DefaultCoeff, 0, nil)
	k.pointDistances(data, &[3]int{0, 1, 2})
	gb := k.gradients(true)

	// pairs (0,1) and (1,2) share the same geometry; (0,2) spans distance 2
	want := [NumComponents]float64{
		NegGrad1: -2.21484375 * DefaultCoeff,
		PosGrad1: 4.08984375 * DefaultCoeff,
		NegGrad2: -0.474609375 * DefaultCoeff,
		PosGrad2: 0.099609375 * DefaultCoeff,
		NegGrad3: -2.21484375 * DefaultCoeff,
		PosGrad3: 4.08984375 * DefaultCoeff,
	}
	for c := 0; c < NumComponents; c++ {
		if rel := math.Abs(gb[c].Min-want[c]) / math.Abs(want[c]); rel > 1e-9 {
			t.Errorf("component %d = %g, want %g", c, gb[c].Min, want[c])
		}
	}

	res := NewResults(3, 3)
	k.EvalPoints(data, [3]int{0, 1, 2}, res)

	wantForces := [3][3]float64{
		{-1.125 * DefaultCoeff, 0, 0},
		{0, 0, 0},
		{1.125 * DefaultCoeff, 0, 0},
	}
	out := make([]float64, 3)
	for i := range data {
		res.Force(i, data[i], out)
		for d, v := range out {
			w := wantForces[i][d]
			if w == 0 {
				if math.Abs(v) > 1e-9*DefaultCoeff {
					t.Errorf("force[%d][%d] = %g, want 0", i, d, v)
				}
				continue
			}
			if rel := math.Abs(v-w) / math.Abs(w); rel > 1e-9 {
				t.Errorf("force[%d][%d] = %g, want %g", i, d, v, w)
			}
		}
	}
}

func TestResultsForceAssembly(t *testing.T) {
	res := NewResults(1, 2)
	res.NegForce1E[0] = -3
	res.PosForce1E[0] = 5
	res.NegForce2E[0] = []float64{1, -1}
	res.PosForce2E[0] = []float64{0.5, 0.5}

	out := make([]float64, 2)
	res.Force(0, []float64{2, 4}, out)

	// (neg1 + pos1)*x - (neg2 + pos2)
	if out[0] != 2*2-1.5 {
		t.Errorf("force[0] = %g, want %g", out[0], 2*2-1.5)
	}
	if out[1] != 2*4-(-0.5) {
		t.Errorf("force[1] = %g, want %g", out[1], 2*4+0.5)
	}
}

func TestStatSetCoordSum(t *testing.T) {
	st := NewStat(3)
	st.SetCoordSum([]float64{1, -2, 3})
	if st.CoordSumL1 != 6 {
		t.Errorf("CoordSumL1 = %g, want 6", st.CoordSumL1)
	}
	if st.CoordSum[1] != -2 {
		t.Errorf("CoordSum[1] = %g, want -2", st.CoordSum[1])
	}
}
