package native

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
	"gonum.org/v1/gonum/mat"
)

// boundaryWeight scales the planes that pin open borders in place.
const boundaryWeight = 100.

// Decimate collapses edges in order of increasing quadric error until the
// mesh has at most target triangles, no collapse is left, or the cheapest
// remaining collapse costs more than maxError. Pass math.Inf(1) to only stop
// on the triangle count. Collapses that would flip a face are skipped.
// Vertex colors are averaged across each collapse.
func (b *Backend) Decimate(m *geometry.Mesh, target int, maxError float64) (*geometry.Mesh, error) {
	if target < 0 {
		return nil, fmt.Errorf("%w: target %d", ErrDegenerate, target)
	}
	d := newDecimator(m)
	d.run(target, maxError)
	return d.result(), nil
}

// quadric is a symmetric 4x4 error matrix stored as its upper triangle.
type quadric [10]float64

func planeQuadric(n vector3.Float64, d, w float64) quadric {
	a, b, c := n.X(), n.Y(), n.Z()
	return quadric{
		w * a * a, w * a * b, w * a * c, w * a * d,
		w * b * b, w * b * c, w * b * d,
		w * c * c, w * c * d,
		w * d * d,
	}
}

func (q quadric) add(o quadric) quadric {
	for i := range q {
		q[i] += o[i]
	}
	return q
}

func (q quadric) eval(v vector3.Float64) float64 {
	x, y, z := v.X(), v.Y(), v.Z()
	e := q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
	return math.Max(e, 0)
}

// optimum returns the position minimising the quadric, if it is well defined.
func (q quadric) optimum() (vector3.Float64, bool) {
	a := mat.NewDense(3, 3, []float64{
		q[0], q[1], q[2],
		q[1], q[4], q[5],
		q[2], q[5], q[7],
	})
	if math.Abs(mat.Det(a)) < 1e-12 {
		return vector3.Float64{}, false
	}
	var x mat.VecDense
	if err := x.SolveVec(a, mat.NewVecDense(3, []float64{-q[3], -q[6], -q[8]})); err != nil {
		return vector3.Float64{}, false
	}
	return vector3.New(x.AtVec(0), x.AtVec(1), x.AtVec(2)), true
}

type collapse struct {
	from, to int
	pos      vector3.Float64
	cost     float64
	// versions of both endpoints when the collapse was priced.
	vFrom, vTo int
}

type collapseHeap []collapse

func (h collapseHeap) Len() int            { return len(h) }
func (h collapseHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h collapseHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *collapseHeap) Push(x interface{}) { *h = append(*h, x.(collapse)) }
func (h *collapseHeap) Pop() interface{} {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

type decimator struct {
	src *geometry.Mesh

	pos      []vector3.Float64
	colors   []vector3.Float64
	quadrics []quadric
	version  []int
	removed  []bool

	tris      [][3]int
	triAlive  []bool
	vertTris  [][]int
	aliveTris int

	queue *collapseHeap
}

func newDecimator(m *geometry.Mesh) *decimator {
	d := &decimator{
		src:       m,
		pos:       append([]vector3.Float64(nil), m.Vertices...),
		quadrics:  make([]quadric, m.VertexCount()),
		version:   make([]int, m.VertexCount()),
		removed:   make([]bool, m.VertexCount()),
		tris:      append([][3]int(nil), m.Triangles...),
		triAlive:  make([]bool, m.TriangleCount()),
		vertTris:  make([][]int, m.VertexCount()),
		aliveTris: m.TriangleCount(),
		queue:     &collapseHeap{},
	}
	if m.HasColors() {
		d.colors = append([]vector3.Float64(nil), m.Colors...)
	}

	edgeUse := make(map[[2]int][]int)
	for t, tri := range d.tris {
		d.triAlive[t] = true
		n := m.FaceNormal(t)
		if l := n.Length(); l > 0 {
			n = n.DivByConstant(l)
			q := planeQuadric(n, -n.Dot(d.pos[tri[0]]), 1)
			for _, v := range tri {
				d.quadrics[v] = d.quadrics[v].add(q)
			}
		}
		for k := 0; k < 3; k++ {
			v := tri[k]
			d.vertTris[v] = append(d.vertTris[v], t)
			key := edgeKey(tri[k], tri[(k+1)%3])
			edgeUse[key] = append(edgeUse[key], t)
		}
	}

	for key, faces := range edgeUse {
		if len(faces) == 1 {
			d.pinBoundary(key, faces[0])
		}
	}
	for key := range edgeUse {
		d.push(key[0], key[1])
	}
	return d
}

// pinBoundary adds a plane through a border edge, perpendicular to its face,
// so collapses do not eat into open borders.
func (d *decimator) pinBoundary(e [2]int, face int) {
	a, b := d.pos[e[0]], d.pos[e[1]]
	fn := d.src.FaceNormal(face)
	n := b.Sub(a).Cross(fn)
	l := n.Length()
	if l == 0 {
		return
	}
	n = n.DivByConstant(l)
	q := planeQuadric(n, -n.Dot(a), boundaryWeight)
	d.quadrics[e[0]] = d.quadrics[e[0]].add(q)
	d.quadrics[e[1]] = d.quadrics[e[1]].add(q)
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func (d *decimator) push(i, j int) {
	q := d.quadrics[i].add(d.quadrics[j])
	best, ok := q.optimum()
	cost := math.Inf(1)
	if ok {
		cost = q.eval(best)
	}
	mid := d.pos[i].Add(d.pos[j]).Scale(0.5)
	for _, cand := range []vector3.Float64{d.pos[i], d.pos[j], mid} {
		if c := q.eval(cand); c < cost {
			best, cost = cand, c
		}
	}
	heap.Push(d.queue, collapse{
		from: j, to: i, pos: best, cost: cost,
		vFrom: d.version[j], vTo: d.version[i],
	})
}

func (d *decimator) run(target int, maxError float64) {
	for d.aliveTris > target && d.queue.Len() > 0 {
		c := heap.Pop(d.queue).(collapse)
		if d.removed[c.from] || d.removed[c.to] ||
			d.version[c.from] != c.vFrom || d.version[c.to] != c.vTo {
			continue
		}
		if c.cost > maxError {
			return
		}
		if d.flips(c) {
			continue
		}
		d.apply(c)
	}
}

// flips reports whether moving both endpoints to the collapse position would
// turn any surviving face over or squash it flat.
func (d *decimator) flips(c collapse) bool {
	for _, v := range [2]int{c.from, c.to} {
		for _, t := range d.vertTris[v] {
			if !d.triAlive[t] {
				continue
			}
			tri := d.tris[t]
			if contains(tri, c.from) && contains(tri, c.to) {
				continue
			}
			var before, after [3]vector3.Float64
			for k, idx := range tri {
				before[k] = d.pos[idx]
				after[k] = d.pos[idx]
				if idx == c.from || idx == c.to {
					after[k] = c.pos
				}
			}
			n0 := before[1].Sub(before[0]).Cross(before[2].Sub(before[0]))
			n1 := after[1].Sub(after[0]).Cross(after[2].Sub(after[0]))
			if n1.Length() <= 1e-12*n0.Length() || n0.Dot(n1) <= 0 {
				return true
			}
		}
	}
	return false
}

func (d *decimator) apply(c collapse) {
	keep, drop := c.to, c.from
	d.pos[keep] = c.pos
	d.quadrics[keep] = d.quadrics[keep].add(d.quadrics[drop])
	if d.colors != nil {
		d.colors[keep] = d.colors[keep].Add(d.colors[drop]).Scale(0.5)
	}
	d.removed[drop] = true
	d.version[keep]++

	for _, t := range d.vertTris[drop] {
		if !d.triAlive[t] {
			continue
		}
		tri := d.tris[t]
		if contains(tri, keep) {
			d.triAlive[t] = false
			d.aliveTris--
			continue
		}
		for k := range tri {
			if tri[k] == drop {
				d.tris[t][k] = keep
			}
		}
		d.vertTris[keep] = append(d.vertTris[keep], t)
	}
	d.vertTris[drop] = nil

	live := d.vertTris[keep][:0]
	neighbours := make(map[int]bool)
	for _, t := range d.vertTris[keep] {
		if !d.triAlive[t] {
			continue
		}
		live = append(live, t)
		for _, v := range d.tris[t] {
			if v != keep {
				neighbours[v] = true
			}
		}
	}
	d.vertTris[keep] = live
	for v := range neighbours {
		d.push(keep, v)
	}
}

func (d *decimator) result() *geometry.Mesh {
	out := &geometry.Mesh{Vertices: d.pos, Colors: d.colors}
	for t, tri := range d.tris {
		if d.triAlive[t] {
			out.Triangles = append(out.Triangles, tri)
		}
	}
	return out.Compact(out.Referenced())
}

func contains(tri [3]int, v int) bool {
	return tri[0] == v || tri[1] == v || tri[2] == v
}
