// Package spatial provides the nearest neighbour searches the meshing stages
// need, backed by a gonum kd-tree. An Index is built for one conversion and
// must not be shared between concurrent conversions.
package spatial

import (
	"math"
	"sort"

	"github.com/EliCDavis/vector/vector3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/stat"
)

// Neighbor is a search hit: the index of the point in the slice the Index was
// built from and its euclidean distance to the query.
type Neighbor struct {
	Index    int
	Distance float64
}

// Index answers k-nearest, radius and hybrid queries over a fixed point set.
type Index struct {
	tree   *kdtree.Tree
	points []vector3.Float64
}

func New(points []vector3.Float64) *Index {
	es := make(entries, len(points))
	for i, p := range points {
		es[i] = entry{pos: [3]float64{p.X(), p.Y(), p.Z()}, idx: i}
	}
	return &Index{tree: kdtree.New(es, false), points: points}
}

func (ix *Index) Len() int { return len(ix.points) }

// KNearest returns up to k points closest to q, nearest first. The query point
// itself is included when it belongs to the set.
func (ix *Index) KNearest(q vector3.Float64, k int) []Neighbor {
	if k <= 0 || len(ix.points) == 0 {
		return nil
	}
	keeper := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keeper, query(q))
	return collect(keeper.Heap)
}

// Radius returns every point within r of q, nearest first.
func (ix *Index) Radius(q vector3.Float64, r float64) []Neighbor {
	if len(ix.points) == 0 {
		return nil
	}
	keeper := kdtree.NewDistKeeper(r * r)
	ix.tree.NearestSet(keeper, query(q))
	return collect(keeper.Heap)
}

// Hybrid returns at most maxNN points that also lie within radius of q.
func (ix *Index) Hybrid(q vector3.Float64, radius float64, maxNN int) []Neighbor {
	found := ix.KNearest(q, maxNN)
	for i, n := range found {
		if n.Distance > radius {
			return found[:i]
		}
	}
	return found
}

// Nearest returns the index of the closest point to q and its distance.
func (ix *Index) Nearest(q vector3.Float64) (int, float64) {
	if len(ix.points) == 0 {
		return -1, math.Inf(1)
	}
	c, d := ix.tree.Nearest(query(q))
	return c.(entry).idx, math.Sqrt(d)
}

// NearestNeighborDistances returns, for every indexed point, the distance to
// its closest other point. A lone point reports zero.
func (ix *Index) NearestNeighborDistances() []float64 {
	out := make([]float64, len(ix.points))
	for i, p := range ix.points {
		for _, n := range ix.KNearest(p, 2) {
			if n.Index != i {
				out[i] = n.Distance
				break
			}
		}
	}
	return out
}

// MeanSpacing is the mean of NearestNeighborDistances.
func (ix *Index) MeanSpacing() float64 {
	if len(ix.points) < 2 {
		return 0
	}
	return stat.Mean(ix.NearestNeighborDistances(), nil)
}

func collect(heap kdtree.Heap) []Neighbor {
	out := make([]Neighbor, 0, len(heap))
	for _, cd := range heap {
		if cd.Comparable == nil {
			continue
		}
		out = append(out, Neighbor{Index: cd.Comparable.(entry).idx, Distance: math.Sqrt(cd.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out
}

func query(q vector3.Float64) entry {
	return entry{pos: [3]float64{q.X(), q.Y(), q.Z()}, idx: -1}
}

// entry is a kd-tree point that remembers its position in the source slice.
type entry struct {
	pos [3]float64
	idx int
}

func (e entry) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return e.pos[d] - c.(entry).pos[d]
}

func (e entry) Dims() int { return 3 }

// Distance is the squared euclidean distance, as kdtree expects.
func (e entry) Distance(c kdtree.Comparable) float64 {
	o := c.(entry)
	dx := e.pos[0] - o.pos[0]
	dy := e.pos[1] - o.pos[1]
	dz := e.pos[2] - o.pos[2]
	return dx*dx + dy*dy + dz*dz
}

type entries []entry

func (es entries) Index(i int) kdtree.Comparable         { return es[i] }
func (es entries) Len() int                              { return len(es) }
func (es entries) Pivot(d kdtree.Dim) int                { return plane{entries: es, dim: d}.Pivot() }
func (es entries) Slice(start, end int) kdtree.Interface { return es[start:end] }

// plane sorts entries along one dimension while the tree is built.
type plane struct {
	entries
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.entries[i].pos[p.dim] < p.entries[j].pos[p.dim] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Swap(i, j int)      { p.entries[i], p.entries[j] = p.entries[j], p.entries[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.entries = p.entries[start:end]
	return p
}
