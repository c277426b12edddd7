package normals

import (
	"container/heap"
	"math"
	"sort"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/spatial"
)

// Orient flips normals in place so that neighbouring normals agree. It walks
// a minimum spanning tree of the symmetric k-nearest graph weighted by
// 1-|ni·nj|, so orientation is propagated across nearly parallel tangent
// planes first. Each connected component is seeded at its highest point with
// the normal pointing up.
func Orient(ix *spatial.Index, points, normals []vector3.Float64, k int) {
	n := len(points)
	if n == 0 || k <= 0 {
		return
	}

	adj := make([][]int, n)
	for i, p := range points {
		for _, nb := range ix.KNearest(p, k+1) {
			if nb.Index == i {
				continue
			}
			adj[i] = append(adj[i], nb.Index)
			adj[nb.Index] = append(adj[nb.Index], i)
		}
	}

	seeds := make([]int, n)
	for i := range seeds {
		seeds[i] = i
	}
	sort.SliceStable(seeds, func(a, b int) bool {
		return points[seeds[a]].Z() > points[seeds[b]].Z()
	})

	visited := make([]bool, n)
	for _, seed := range seeds {
		if visited[seed] {
			continue
		}
		if normals[seed].Z() < 0 {
			normals[seed] = normals[seed].Scale(-1)
		}
		visited[seed] = true

		frontier := &edgeHeap{}
		pushEdges(frontier, seed, adj, normals, visited)
		for frontier.Len() > 0 {
			e := heap.Pop(frontier).(edge)
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			if normals[e.from].Dot(normals[e.to]) < 0 {
				normals[e.to] = normals[e.to].Scale(-1)
			}
			pushEdges(frontier, e.to, adj, normals, visited)
		}
	}
}

func pushEdges(h *edgeHeap, from int, adj [][]int, normals []vector3.Float64, visited []bool) {
	for _, to := range adj[from] {
		if visited[to] {
			continue
		}
		w := 1 - math.Abs(normals[from].Dot(normals[to]))
		heap.Push(h, edge{from: from, to: to, weight: w})
	}
}

// OrientOutward returns the normals flipped as a whole when, on average, they
// point toward the centroid of the points.
func OrientOutward(points, normals []vector3.Float64) []vector3.Float64 {
	if len(points) == 0 {
		return normals
	}
	centroid := vector3.Zero[float64]()
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.DivByConstant(float64(len(points)))

	var score float64
	for i, p := range points {
		score += normals[i].Dot(p.Sub(centroid))
	}
	if score >= 0 {
		return normals
	}
	out := make([]vector3.Float64, len(normals))
	for i, nrm := range normals {
		out[i] = nrm.Scale(-1)
	}
	return out
}

type edge struct {
	from, to int
	weight   float64
}

type edgeHeap []edge

func (h edgeHeap) Len() int            { return len(h) }
func (h edgeHeap) Less(i, j int) bool  { return h[i].weight < h[j].weight }
func (h edgeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *edgeHeap) Push(x interface{}) { *h = append(*h, x.(edge)) }
func (h *edgeHeap) Pop() interface{} {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}
