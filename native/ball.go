package native

import (
	"math"
	"sort"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/spatial"
)

// side selects which of the two balls through a triangle's corners has to be
// empty for the triangle to be accepted.
type side int

const (
	// normalSide only considers the ball on the side the point normals face.
	normalSide side = iota
	// eitherSide accepts the triangle if either ball is empty.
	eitherSide
)

// emptyBalls enumerates the triangles of a point set whose corners lie on the
// surface of a ball of radius r containing no other sample. These are the
// triangles a pivoting ball of radius r can rest on, and for side=eitherSide
// the r-exposed faces of the alpha complex. Triangles are wound so their face
// normal points toward the empty ball.
//
// Every directed edge is claimed by at most one triangle, across all radii,
// so no edge ends up with more than two faces and neighbouring faces agree on
// winding.
type emptyBalls struct {
	points  []vector3.Float64
	normals []vector3.Float64
	ix      *spatial.Index

	seen  map[[3]int]bool
	edges map[[2]int]bool
	tris  [][3]int
}

func newEmptyBalls(points, normals []vector3.Float64) *emptyBalls {
	return &emptyBalls{
		points:  points,
		normals: normals,
		ix:      spatial.New(points),
		seen:    make(map[[3]int]bool),
		edges:   make(map[[2]int]bool),
	}
}

// surfaceTolerance is the relative slack on r^2 within which a sample counts
// as lying on a ball's surface.
const surfaceTolerance = 1e-7

// collect adds every empty-ball triangle of radius r not found by an earlier
// call.
func (eb *emptyBalls) collect(r float64, s side) {
	if r <= 0 {
		return
	}
	r2 := r * r

	for i, pi := range eb.points {
		hood := eb.ix.Radius(pi, 2*r)
		cand := make([]int, 0, len(hood))
		for _, n := range hood {
			if n.Index > i {
				cand = append(cand, n.Index)
			}
		}
		sort.Ints(cand)

		for a := 0; a < len(cand); a++ {
			j := cand[a]
			for b := a + 1; b < len(cand); b++ {
				k := cand[b]
				pj, pk := eb.points[j], eb.points[k]
				if distSq(pj, pk) > 4*r2 {
					continue
				}

				center, rho2, normal, ok := circumcircle(pi, pj, pk)
				if !ok || rho2 >= r2 {
					continue
				}
				key := [3]int{i, j, k}
				if eb.seen[key] {
					continue
				}
				h := math.Sqrt(r2 - rho2)
				up := center.Add(normal.Scale(h))
				down := center.Sub(normal.Scale(h))

				var balls []vector3.Float64
				switch s {
				case normalSide:
					ref := eb.normals[i].Add(eb.normals[j]).Add(eb.normals[k])
					if ref.Dot(normal) >= 0 {
						balls = []vector3.Float64{up}
					} else {
						balls = []vector3.Float64{down}
					}
				default:
					balls = []vector3.Float64{up, down}
				}

				for _, ball := range balls {
					touching, empty := eb.contacts(ball, r2, hood, i, j, k)
					if !empty || !eb.canonical(key, touching, center, normal, r) {
						continue
					}
					tri := [3]int{i, k, j}
					if normal.Dot(ball.Sub(center)) >= 0 {
						tri = [3]int{i, j, k}
					}
					if !eb.claim(tri) {
						continue
					}
					eb.seen[key] = true
					eb.tris = append(eb.tris, tri)
					break
				}
			}
		}
	}
}

// contacts reports whether no sample other than the triangle's corners lies
// strictly inside the ball, and which samples sit on its surface. Any such
// sample is within 2r of corner i, so the neighbourhood of i is a complete
// candidate list.
func (eb *emptyBalls) contacts(ball vector3.Float64, r2 float64, hood []spatial.Neighbor, i, j, k int) ([]int, bool) {
	slack := r2 * surfaceTolerance
	var touching []int
	for _, n := range hood {
		if n.Index == i || n.Index == j || n.Index == k {
			continue
		}
		d2 := distSq(eb.points[n.Index], ball)
		if d2 < r2-slack {
			return nil, false
		}
		if d2 <= r2+slack {
			touching = append(touching, n.Index)
		}
	}
	return touching, true
}

// canonical breaks ties when more than three samples lie on the ball. Samples
// on the triangle's circumcircle are fanned from the lowest index in angular
// order and only the fan's triangles pass. Any other cospherical set only
// admits its three lowest indices.
func (eb *emptyBalls) canonical(tri [3]int, touching []int, center, normal vector3.Float64, r float64) bool {
	if len(touching) == 0 {
		return true
	}
	ring := append([]int{tri[0], tri[1], tri[2]}, touching...)
	sort.Ints(ring)

	for _, t := range touching {
		if math.Abs(normal.Dot(eb.points[t].Sub(center))) > 1e-6*r {
			return tri == [3]int{ring[0], ring[1], ring[2]}
		}
	}

	first := ring[0]
	if tri[0] != first {
		return false
	}
	u := eb.points[first].Sub(center).Normalized()
	v := normal.Cross(u)
	angle := make(map[int]float64, len(ring))
	for _, idx := range ring {
		d := eb.points[idx].Sub(center)
		a := math.Atan2(d.Dot(v), d.Dot(u))
		if a < 0 {
			a += 2 * math.Pi
		}
		angle[idx] = a
	}
	angle[first] = 0
	sort.SliceStable(ring, func(a, b int) bool { return angle[ring[a]] < angle[ring[b]] })

	pos := make(map[int]int, len(ring))
	for p, idx := range ring {
		pos[idx] = p
	}
	d := pos[tri[1]] - pos[tri[2]]
	return d == 1 || d == -1
}

// claim records the directed edges of tri, failing without side effects if
// another triangle already runs along one of them in the same direction.
func (eb *emptyBalls) claim(tri [3]int) bool {
	edges := [3][2]int{{tri[0], tri[1]}, {tri[1], tri[2]}, {tri[2], tri[0]}}
	for _, e := range edges {
		if eb.edges[e] {
			return false
		}
	}
	for _, e := range edges {
		eb.edges[e] = true
	}
	return true
}

// circumcircle returns the circumcenter, squared circumradius and unit normal
// of triangle abc. ok is false for degenerate triangles.
func circumcircle(a, b, c vector3.Float64) (center vector3.Float64, rho2 float64, normal vector3.Float64, ok bool) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	n := ab.Cross(ac)
	n2 := n.Dot(n)
	if n2 <= 1e-18*ab.Dot(ab)*ac.Dot(ac) || n2 == 0 {
		return center, 0, normal, false
	}
	offset := n.Cross(ab).Scale(ac.Dot(ac)).
		Add(ac.Cross(n).Scale(ab.Dot(ab))).
		Scale(1 / (2 * n2))
	center = a.Add(offset)
	return center, offset.Dot(offset), n.Scale(1 / math.Sqrt(n2)), true
}

func distSq(a, b vector3.Float64) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}
