package simulation

import (
	"math"
	"math/rand"
	"sort"

	"github.com/onnwee/tripletree/internal/force"
	"github.com/onnwee/tripletree/internal/kdtree"
)

// traversal walks all canonical node triples of the tree depth-first,
// delegating every pruning and evaluation decision to the force kernel. A
// triple is retired either by a prune (deterministic or Monte Carlo) or by
// exact evaluation of its point triples once all three entities are leaves.
type traversal struct {
	tree        *kdtree.Tree
	kernel      *force.Kernel
	res         *force.Results
	relErr      float64
	zScore      float64
	totalTuples float64
	monteCarlo  bool

	visited    int64
	detPrunes  int64
	mcPrunes   int64
	exactEvals int64

	// retired counts point triples whose contribution has been deposited,
	// for progress reporting against totalTriples.
	retired      float64
	totalTriples float64
	onProgress   func(fraction float64)
}

func newTraversal(tree *kdtree.Tree, k *force.Kernel, relErr, zScore float64, monteCarlo bool, onProgress func(float64)) *traversal {
	n := tree.Len()
	return &traversal{
		tree:         tree,
		kernel:       k,
		res:          force.NewResults(n, tree.Data.Dim()),
		relErr:       relErr,
		zScore:       zScore,
		totalTuples:  binomial2(n - 1),
		monteCarlo:   monteCarlo,
		totalTriples: binomial3(n),
		onProgress:   onProgress,
	}
}

func binomial2(n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(n) * float64(n-1) / 2.0
}

func binomial3(n int) float64 {
	if n < 3 {
		return 0
	}
	return float64(n) * float64(n-1) * float64(n-2) / 6.0
}

// tripleCount is the number of distinct point triples a node triple
// represents, collapsing repeated entities.
func tripleCount(a, b, c *kdtree.Node) float64 {
	switch {
	case a == b && b == c:
		return binomial3(a.Count())
	case a == b:
		return binomial2(a.Count()) * float64(c.Count())
	case b == c:
		return float64(a.Count()) * binomial2(b.Count())
	default:
		return float64(a.Count()) * float64(b.Count()) * float64(c.Count())
	}
}

func (tr *traversal) retire(a, b, c *kdtree.Node) {
	tr.retired += tripleCount(a, b, c)
	if tr.onProgress != nil && tr.totalTriples > 0 {
		tr.onProgress(tr.retired / tr.totalTriples)
	}
}

// run seeds the per-node bounds and processes the root self-triple.
func (tr *traversal) run() *force.Results {
	root := tr.tree.Root()
	tr.seedBounds()
	tr.process(root, root, root)
	tr.flush(root)
	return tr.res
}

// Cell count of the seeding partition. More cells tighten the seeds at
// quadratic cost in configurations per leaf.
const seedPartitionLimit = 16

// seedBounds initializes every node's accumulated magnitude lower bounds.
// The tree is cut into a coarse partition and each leaf sums, over every
// unordered pair of cells, the least-magnitude gradient bounds of the
// (leaf, cell, cell) triple weighted by that pair's two-tuple count. Every
// triple of points falls in exactly one cell pair, negative terms are
// strictly negative and positive terms strictly positive, so the per-cell
// magnitudes add without cancellation and the sum is a sound per-point
// lower bound on the final accumulated magnitude. Nearby cells dominate the
// sum, which keeps the relative-error denominators on the scale of the
// force a point actually feels. Internal nodes take the weaker of their
// children's seeds.
//
// The second-order projections require coordinates in the positive orthant
// (mixed-sign coordinate sums could cancel below the per-pair bound);
// Compute translates the dataset before building the tree.
func (tr *traversal) seedBounds() {
	cells := tr.partition(seedPartitionLimit)
	tr.seedNode(tr.tree.Root(), cells)
}

// partition cuts the tree into at most limit disjoint cells covering all
// points, splitting the largest cell first.
func (tr *traversal) partition(limit int) []*kdtree.Node {
	cells := []*kdtree.Node{tr.tree.Root()}
	for len(cells) < limit {
		best := -1
		for i, c := range cells {
			if c.IsLeaf() {
				continue
			}
			if best < 0 || c.Count() > cells[best].Count() {
				best = i
			}
		}
		if best < 0 {
			break
		}
		c := cells[best]
		cells[best] = c.Left()
		cells = append(cells, c.Right())
	}
	return cells
}

func rangesOverlap(a, b *kdtree.Node) bool {
	return a.Begin() < b.End() && b.Begin() < a.End()
}

// cellSum is the partner coordinate sum a point of the leaf can rely on: a
// cell containing the leaf's points loses the leaf's largest coordinate,
// since a point never pairs with itself.
func cellSum(cell, leaf *kdtree.Node, leafRect *kdtree.Rect, d int) float64 {
	s := cell.Stat().CoordSum[d]
	if rangesOverlap(cell, leaf) {
		s -= leafRect.Max[d]
	}
	if s < 0 {
		return 0
	}
	return s
}

func (tr *traversal) seedNode(n *kdtree.Node, cells []*kdtree.Node) {
	st := n.Stat()
	if !n.IsLeaf() {
		tr.seedNode(n.Left(), cells)
		tr.seedNode(n.Right(), cells)
		ls, rs := n.Left().Stat(), n.Right().Stat()
		st.NegGrad1Upper = math.Max(ls.NegGrad1Upper, rs.NegGrad1Upper)
		st.PosGrad1Lower = math.Min(ls.PosGrad1Lower, rs.PosGrad1Lower)
		for d := range st.NegGrad2Upper {
			st.NegGrad2Upper[d] = math.Max(ls.NegGrad2Upper[d], rs.NegGrad2Upper[d])
			st.PosGrad2Lower[d] = math.Min(ls.PosGrad2Lower[d], rs.PosGrad2Lower[d])
		}
		return
	}

	rect := n.Bound().(*kdtree.Rect)
	for bi, bCell := range cells {
		for _, cCell := range cells[bi:] {
			gb := tr.kernel.NodeGradientBounds([3]force.Node{n, bCell, cCell})
			neg1, neg2 := gb[force.NegGrad1].Max, gb[force.NegGrad2].Max
			pos1, pos2 := gb[force.PosGrad1].Min, gb[force.PosGrad2].Min
			if !finiteVal(neg1) || !finiteVal(neg2) || !finiteVal(pos1) || !finiteVal(pos2) {
				continue
			}

			bCnt := float64(bCell.Count())
			if rangesOverlap(bCell, n) {
				bCnt--
			}
			cCnt := float64(cCell.Count())
			if rangesOverlap(cCell, n) {
				cCnt--
			}
			var pairs float64
			if bCell == cCell {
				pairs = bCnt * (bCnt - 1) / 2
			} else {
				pairs = bCnt * cCnt
			}
			if pairs <= 0 {
				continue
			}

			st.NegGrad1Upper += pairs * (neg1 + neg2)
			st.PosGrad1Lower += pairs * (pos1 + pos2)

			for d := range st.NegGrad2Upper {
				sb := cellSum(bCell, n, rect, d)
				if bCell == cCell {
					st.NegGrad2Upper[d] += (bCnt - 1) * neg1 * sb
					st.PosGrad2Lower[d] += (bCnt - 1) * pos1 * sb
					continue
				}
				sc := cellSum(cCell, n, rect, d)
				st.NegGrad2Upper[d] += cCnt*neg1*sb + bCnt*neg2*sc
				st.PosGrad2Lower[d] += cCnt*pos1*sb + bCnt*pos2*sc
			}
		}
	}
}

func finiteVal(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// process handles one canonical triple (a.Begin <= b.Begin <= c.Begin).
func (tr *traversal) process(a, b, c *kdtree.Node) {
	tr.visited++

	nodes := [3]force.Node{a, b, c}
	if tr.kernel.EvalNodes(nodes, tr.relErr, tr.totalTuples) {
		tr.detPrunes++
		tr.retire(a, b, c)
		return
	}
	if tr.monteCarlo && tr.kernel.MonteCarloEvalNodes(tr.tree.Data, nodes, tr.relErr, tr.zScore, tr.totalTuples) {
		tr.mcPrunes++
		tr.retire(a, b, c)
		return
	}

	if a.IsLeaf() && b.IsLeaf() && c.IsLeaf() {
		tr.exactBase(a, b, c)
		tr.retire(a, b, c)
		return
	}

	tr.descend(a, b, c)
}

// descend splits the largest non-leaf entity and recurses over the child
// combinations, keeping triples canonical. Every slot holding the split node
// is replaced together so self-triples expand without double-counting.
func (tr *traversal) descend(a, b, c *kdtree.Node) {
	split := pickSplit(a, b, c)
	l, r := split.Left(), split.Right()

	occ := 0
	var rest []*kdtree.Node
	for _, n := range []*kdtree.Node{a, b, c} {
		if n == split {
			occ++
		} else {
			rest = append(rest, n)
		}
	}

	var expansions [][]*kdtree.Node
	switch occ {
	case 1:
		expansions = [][]*kdtree.Node{{l}, {r}}
	case 2:
		expansions = [][]*kdtree.Node{{l, l}, {l, r}, {r, r}}
	default:
		expansions = [][]*kdtree.Node{{l, l, l}, {l, l, r}, {l, r, r}, {r, r, r}}
	}

	for _, exp := range expansions {
		triple := make([]*kdtree.Node, 0, 3)
		triple = append(triple, rest...)
		triple = append(triple, exp...)
		sort.Slice(triple, func(i, j int) bool {
			return triple[i].Begin() < triple[j].Begin()
		})
		tr.process(triple[0], triple[1], triple[2])
	}
}

func pickSplit(a, b, c *kdtree.Node) *kdtree.Node {
	var split *kdtree.Node
	for _, n := range []*kdtree.Node{a, b, c} {
		if n.IsLeaf() {
			continue
		}
		if split == nil || n.Count() > split.Count() {
			split = n
		}
	}
	return split
}

// exactBase enumerates the strictly ascending point triples of three leaves
// and evaluates each exactly. Ascending order makes overlapping (identical)
// leaves contribute each combination once.
func (tr *traversal) exactBase(a, b, c *kdtree.Node) {
	for i := a.Begin(); i < a.End(); i++ {
		jLo := max(i+1, b.Begin())
		for j := jLo; j < b.End(); j++ {
			kLo := max(j+1, c.Begin())
			for k := kLo; k < c.End(); k++ {
				tr.kernel.EvalPoints(tr.tree.Data, [3]int{i, j, k}, tr.res)
				tr.exactEvals++
			}
		}
	}
}

// flush pushes postponed deltas down the tree and deposits them on the owned
// points at the leaves. Internal nodes hand their deltas to both children;
// nothing is ever read back up.
func (tr *traversal) flush(n *kdtree.Node) {
	st := n.Stat()
	if !n.IsLeaf() {
		for _, child := range []*kdtree.Node{n.Left(), n.Right()} {
			cs := child.Stat()
			cs.PostponedNegGrad1E += st.PostponedNegGrad1E
			cs.PostponedNegGrad1U += st.PostponedNegGrad1U
			cs.PostponedPosGrad1L += st.PostponedPosGrad1L
			cs.PostponedPosGrad1E += st.PostponedPosGrad1E
			addVec(cs.PostponedNegGrad2E, st.PostponedNegGrad2E)
			addVec(cs.PostponedNegGrad2U, st.PostponedNegGrad2U)
			addVec(cs.PostponedPosGrad2L, st.PostponedPosGrad2L)
			addVec(cs.PostponedPosGrad2E, st.PostponedPosGrad2E)
		}
		clearPostponed(st)
		tr.flush(n.Left())
		tr.flush(n.Right())
		return
	}

	for i := n.Begin(); i < n.End(); i++ {
		tr.res.NegForce1E[i] += st.PostponedNegGrad1E
		tr.res.NegForce1U[i] += st.PostponedNegGrad1U
		tr.res.PosForce1L[i] += st.PostponedPosGrad1L
		tr.res.PosForce1E[i] += st.PostponedPosGrad1E
		addVec(tr.res.NegForce2E[i], st.PostponedNegGrad2E)
		addVec(tr.res.NegForce2U[i], st.PostponedNegGrad2U)
		addVec(tr.res.PosForce2L[i], st.PostponedPosGrad2L)
		addVec(tr.res.PosForce2E[i], st.PostponedPosGrad2E)
	}
	clearPostponed(st)
}

func addVec(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func clearPostponed(st *force.Stat) {
	st.PostponedNegGrad1E = 0
	st.PostponedNegGrad1U = 0
	st.PostponedPosGrad1L = 0
	st.PostponedPosGrad1E = 0
	zero(st.PostponedNegGrad2E)
	zero(st.PostponedNegGrad2U)
	zero(st.PostponedPosGrad2L)
	zero(st.PostponedPosGrad2E)
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}

// newRNG returns the sampler source for a run; a zero seed keeps sampling
// deterministic per run ID hash rather than wall clock.
func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
