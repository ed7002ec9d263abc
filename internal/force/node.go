package force

// Bound is the bounding-volume capability the engine needs from a spatial
// index: minimum and maximum squared distance to another volume.
type Bound interface {
	MinDistanceSq(other Bound) float64
	MaxDistanceSq(other Bound) float64
}

// Node is one entity of a triple. It exposes the node's bounding volume, the
// contiguous range [Begin, End) of point indices it owns, and its mutable
// statistic. Implementations are provided by the spatial index; the engine
// never creates or destroys nodes.
type Node interface {
	Bound() Bound
	Count() int
	Begin() int
	End() int
	Stat() *Stat
}

// Points holds one coordinate vector per point. All vectors share the same
// dimension.
type Points [][]float64

// Dim returns the dimensionality of the point set (0 when empty).
func (p Points) Dim() int {
	if len(p) == 0 {
		return 0
	}
	return len(p[0])
}

// Stat is the per-node accumulator record. The scalar fields bound the
// first-order (per-point) force components accumulated for points owned by
// the node; the vector fields bound the second-order (neighbor-coupled)
// components. Postponed fields are additive deltas deposited by pruned
// triples and not yet pushed down to descendants; the engine only ever
// appends to them.
//
// Invariant: lower <= estimate <= upper for every {l, e, u} family.
type Stat struct {
	NegGrad1Upper float64
	PosGrad1Lower float64
	NegGrad2Upper []float64
	PosGrad2Lower []float64

	PostponedNegGrad1E float64
	PostponedNegGrad1U float64
	PostponedPosGrad1L float64
	PostponedPosGrad1E float64
	PostponedNegGrad2E []float64
	PostponedNegGrad2U []float64
	PostponedPosGrad2L []float64
	PostponedPosGrad2E []float64

	// CoordSum is the sum of all owned points' coordinate vectors, used to
	// project aggregate scalar contributions onto concrete directions
	// without visiting every point. CoordSumL1 is its L1 norm.
	CoordSum   []float64
	CoordSumL1 float64
}

// NewStat returns a Stat with all vector fields allocated for dim dimensions.
func NewStat(dim int) *Stat {
	return &Stat{
		NegGrad2Upper:      make([]float64, dim),
		PosGrad2Lower:      make([]float64, dim),
		PostponedNegGrad2E: make([]float64, dim),
		PostponedNegGrad2U: make([]float64, dim),
		PostponedPosGrad2L: make([]float64, dim),
		PostponedPosGrad2E: make([]float64, dim),
		CoordSum:           make([]float64, dim),
	}
}

// SetCoordSum records the coordinate sum of the node's owned points and its
// L1 norm. Called once by the spatial index at build time.
func (s *Stat) SetCoordSum(sum []float64) {
	copy(s.CoordSum, sum)
	s.CoordSumL1 = l1Norm(sum)
}
