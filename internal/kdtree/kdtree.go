// Package kdtree provides the bounding-volume tree the traversal driver
// walks. Points are recursively median-split along the widest dimension and
// reordered so every node owns a contiguous index range, which is what lets
// the engine sample and flush per-node without indirection.
package kdtree

import (
	"sort"

	"github.com/onnwee/tripletree/internal/force"
)

// DefaultLeafSize is the bucket capacity used when the caller passes 0.
const DefaultLeafSize = 8

// Rect is an axis-aligned hyperrectangle bound.
type Rect struct {
	Min, Max []float64
}

// MinDistanceSq returns the minimum squared distance between two rectangles;
// zero when they touch or overlap.
func (r *Rect) MinDistanceSq(other force.Bound) float64 {
	o := other.(*Rect)
	var d float64
	for i := range r.Min {
		var gap float64
		if r.Min[i] > o.Max[i] {
			gap = r.Min[i] - o.Max[i]
		} else if o.Min[i] > r.Max[i] {
			gap = o.Min[i] - r.Max[i]
		}
		d += gap * gap
	}
	return d
}

// MaxDistanceSq returns the maximum squared distance between two rectangles.
func (r *Rect) MaxDistanceSq(other force.Bound) float64 {
	o := other.(*Rect)
	var d float64
	for i := range r.Min {
		a := r.Max[i] - o.Min[i]
		b := o.Max[i] - r.Min[i]
		if b > a {
			a = b
		}
		d += a * a
	}
	return d
}

// Node is one tree node. It owns the points at permuted indices
// [begin, end) and carries the statistic the force engine mutates.
type Node struct {
	rect        *Rect
	begin, end  int
	stat        *force.Stat
	left, right *Node
}

// Bound implements force.Node.
func (n *Node) Bound() force.Bound { return n.rect }

// Count returns the number of points the node owns.
func (n *Node) Count() int { return n.end - n.begin }

// Begin returns the first owned permuted point index.
func (n *Node) Begin() int { return n.begin }

// End returns one past the last owned permuted point index.
func (n *Node) End() int { return n.end }

// Stat returns the node's mutable statistic.
func (n *Node) Stat() *force.Stat { return n.stat }

// Left returns the left child, nil for leaves.
func (n *Node) Left() *Node { return n.left }

// Right returns the right child, nil for leaves.
func (n *Node) Right() *Node { return n.right }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.left == nil }

// Tree is a kd-tree over a reordered copy of the input points.
type Tree struct {
	root *Node

	// Data is the permuted point matrix; node ranges index into it.
	Data force.Points

	// Perm maps a permuted index back to the original point index.
	Perm []int

	leafSize int
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Len returns the number of points in the tree.
func (t *Tree) Len() int { return len(t.Data) }

// Build constructs a kd-tree over points. The input is not modified; the
// tree keeps its own permuted copy.
func Build(points force.Points, leafSize int) *Tree {
	if leafSize <= 0 {
		leafSize = DefaultLeafSize
	}
	n := len(points)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	t := &Tree{Perm: perm, leafSize: leafSize}
	t.root = t.split(points, 0, n)

	t.Data = make(force.Points, n)
	for i, p := range perm {
		t.Data[i] = points[p]
	}
	t.initNode(t.root)
	return t
}

// split partitions perm[begin:end) around the median of the widest dimension
// and recurses until ranges fit in a leaf.
func (t *Tree) split(points force.Points, begin, end int) *Node {
	node := &Node{begin: begin, end: end}
	if end-begin <= t.leafSize {
		return node
	}

	dim := widestDim(points, t.Perm[begin:end])
	sub := t.Perm[begin:end]
	sort.Slice(sub, func(a, b int) bool {
		return points[sub[a]][dim] < points[sub[b]][dim]
	})

	mid := (begin + end) / 2
	node.left = t.split(points, begin, mid)
	node.right = t.split(points, mid, end)
	return node
}

func widestDim(points force.Points, idx []int) int {
	dim := points.Dim()
	best, bestSpread := 0, -1.0
	for d := 0; d < dim; d++ {
		lo, hi := points[idx[0]][d], points[idx[0]][d]
		for _, i := range idx[1:] {
			v := points[i][d]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > bestSpread {
			best, bestSpread = d, hi-lo
		}
	}
	return best
}

// initNode fills in bounds, coordinate sums and statistics bottom-up once the
// permuted data is in place.
func (t *Tree) initNode(n *Node) {
	dim := t.Data.Dim()
	n.rect = &Rect{Min: make([]float64, dim), Max: make([]float64, dim)}
	n.stat = force.NewStat(dim)

	copy(n.rect.Min, t.Data[n.begin])
	copy(n.rect.Max, t.Data[n.begin])
	sum := make([]float64, dim)
	for i := n.begin; i < n.end; i++ {
		for d, v := range t.Data[i] {
			if v < n.rect.Min[d] {
				n.rect.Min[d] = v
			}
			if v > n.rect.Max[d] {
				n.rect.Max[d] = v
			}
			sum[d] += v
		}
	}
	n.stat.SetCoordSum(sum)

	if n.left != nil {
		t.initNode(n.left)
		t.initNode(n.right)
	}
}
