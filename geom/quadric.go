package geom

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/halfedge"
)

// Quadric is the symmetric 4x4 matrix K = p*p^T for plane p = (n, -n.v),
// stored as its 10 distinct entries (upper triangle, row-major: a..j).
// Summing quadrics accumulates the sum of squared-plane-distance metrics
// QEM simplification minimizes.
type Quadric struct {
	a, b, c, d float32
	e, f, g    float32
	h, i       float32
	j          float32
}

// PlaneQuadric builds the quadric for the plane through point with unit
// normal n.
func PlaneQuadric(n mgl32.Vec3, point mgl32.Vec3) Quadric {
	d := -n.Dot(point)
	return Quadric{
		a: n[0] * n[0], b: n[0] * n[1], c: n[0] * n[2], d: n[0] * d,
		e: n[1] * n[1], f: n[1] * n[2], g: n[1] * d,
		h: n[2] * n[2], i: n[2] * d,
		j: d * d,
	}
}

// Add returns the sum of q and o.
func (q Quadric) Add(o Quadric) Quadric {
	return Quadric{
		a: q.a + o.a, b: q.b + o.b, c: q.c + o.c, d: q.d + o.d,
		e: q.e + o.e, f: q.f + o.f, g: q.g + o.g,
		h: q.h + o.h, i: q.i + o.i,
		j: q.j + o.j,
	}
}

// Cost evaluates v^T K v at the homogeneous point (v, 1).
func (q Quadric) Cost(v mgl32.Vec3) float32 {
	x, y, z := v[0], v[1], v[2]
	return x*x*q.a + 2*x*y*q.b + 2*x*z*q.c + 2*x*q.d +
		y*y*q.e + 2*y*z*q.f + 2*y*q.g +
		z*z*q.h + 2*z*q.i +
		q.j
}

// OptimalPosition solves the 3x3 linear system formed by the quadric's
// upper-left block and negated last column/row for the position
// minimizing Cost, falling back to the midpoint of a and b if that system
// is singular (near-planar or degenerate configurations).
func (q Quadric) OptimalPosition(a, b mgl32.Vec3) (mgl32.Vec3, bool) {
	// A x = rhs, A = [[a,b,c],[b,e,f],[c,f,h]], rhs = -[d,g,i].
	m00, m01, m02 := q.a, q.b, q.c
	m10, m11, m12 := q.b, q.e, q.f
	m20, m21, m22 := q.c, q.f, q.h
	r0, r1, r2 := -q.d, -q.g, -q.i

	det := m00*(m11*m22-m12*m21) - m01*(m10*m22-m12*m20) + m02*(m10*m21-m11*m20)
	if det > -1e-9 && det < 1e-9 {
		return a.Add(b).Mul(0.5), false
	}

	invDet := 1.0 / det
	x := (r0*(m11*m22-m12*m21) - m01*(r1*m22-m12*r2) + m02*(r1*m21-m11*r2)) * invDet
	y := (m00*(r1*m22-m12*r2) - r0*(m10*m22-m12*m20) + m02*(m10*r2-r1*m20)) * invDet
	z := (m00*(m11*r2-r1*m21) - m01*(m10*r2-r1*m20) + r0*(m10*m21-m11*m20)) * invDet
	return mgl32.Vec3{x, y, z}, true
}

// VertexQuadric accumulates the plane quadric of every face incident to v.
func VertexQuadric(m *halfedge.Mesh, v halfedge.VertexHandle) Quadric {
	var q Quadric
	for _, h := range outgoingHalfedges(m, v) {
		f := m.Face(h)
		if f.IsNil() {
			continue
		}
		n := FaceNormal(m, f)
		if n.Len() == 0 {
			continue
		}
		q = q.Add(PlaneQuadric(n, m.Position(v)))
	}
	return q
}
