// Package repair closes holes in triangle meshes.
package repair

import (
	"errors"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
)

// ErrNonManifold is returned when a boundary cannot be traced into loops.
var ErrNonManifold = errors.New("boundary is not manifold")

// Filler fills boundary loops with triangle fans.
type Filler struct{}

func NewFiller() *Filler { return &Filler{} }

// FillHoles closes every boundary loop whose perimeter is at most maxSize by
// adding a vertex at the loop's centroid and fanning triangles around it. The
// new vertex takes the average color of the loop. Loops are found from edges
// used by exactly one triangle; boundaries where a vertex has more than one
// outgoing border edge are reported as ErrNonManifold and nothing is filled.
func (f *Filler) FillHoles(m *geometry.Mesh, maxSize float64) (*geometry.Mesh, error) {
	loops, err := boundaryLoops(m)
	if err != nil {
		return nil, err
	}

	out := m.Clone()
	out.Normals = nil
	for _, loop := range loops {
		if perimeter(m, loop) > maxSize {
			continue
		}
		fill(out, loop)
	}
	return out, nil
}

// boundaryLoops traces the directed border edges into closed loops. Border
// edges run the same way as their triangle, so walking them visits a hole in
// the opposite sense to the faces that would close it.
func boundaryLoops(m *geometry.Mesh) ([][]int, error) {
	uses := make(map[[2]int]int)
	for _, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			uses[[2]int{a, b}]++
		}
	}

	next := make(map[int]int)
	var starts []int
	for _, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if uses[[2]int{b, a}] > 0 || uses[[2]int{a, b}] > 1 {
				continue
			}
			if _, dup := next[a]; dup {
				return nil, ErrNonManifold
			}
			next[a] = b
			starts = append(starts, a)
		}
	}

	visited := make(map[int]bool)
	var loops [][]int
	for _, s := range starts {
		if visited[s] {
			continue
		}
		var loop []int
		v := s
		for !visited[v] {
			visited[v] = true
			loop = append(loop, v)
			n, ok := next[v]
			if !ok {
				return nil, ErrNonManifold
			}
			v = n
		}
		if v != s {
			return nil, ErrNonManifold
		}
		if len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}
	return loops, nil
}

func perimeter(m *geometry.Mesh, loop []int) float64 {
	var total float64
	for i, v := range loop {
		w := loop[(i+1)%len(loop)]
		total += m.Vertices[v].Sub(m.Vertices[w]).Length()
	}
	return total
}

func fill(m *geometry.Mesh, loop []int) {
	centroid := vector3.Zero[float64]()
	color := vector3.Zero[float64]()
	for _, v := range loop {
		centroid = centroid.Add(m.Vertices[v])
		if m.HasColors() {
			color = color.Add(m.Colors[v])
		}
	}
	n := float64(len(loop))
	center := len(m.Vertices)
	m.Vertices = append(m.Vertices, centroid.DivByConstant(n))
	if m.HasColors() {
		m.Colors = append(m.Colors, color.DivByConstant(n))
	}

	for i, v := range loop {
		w := loop[(i+1)%len(loop)]
		// Reverse the border edge so the patch agrees with its neighbours.
		m.Triangles = append(m.Triangles, [3]int{w, v, center})
	}
}
