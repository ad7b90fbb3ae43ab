package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/halfedge"
)

// GeodesicParams configures the heat-method distance solve.
type GeodesicParams struct {
	TimeStep           float64 // diffusion time; <= 0 picks h^2 from mean edge length
	MaxSolverIterations int
	SolverTolerance     float64
}

// GeodesicResult holds per-vertex geodesic distance from the source set, plus
// solver diagnostics.
type GeodesicResult struct {
	Distances            []float64
	HeatSolveIterations   int
	PoissonSolveIterations int
	Converged             bool
}

// cotanLaplacian is a matrix-free symmetric Laplace-Beltrami operator built
// once per call to ComputeDistance: mass is the lumped (1/3 adjacent-area)
// vertex mass, and weights[v] holds, for each edge leaving v, the neighbor
// vertex and the symmetric cotangent weight w_ij = 0.5*(cot(alpha)+cot(beta)).
// Building it by walking faces once (rather than per-vertex one-rings) also
// naturally yields the symmetric half-weight per edge side.
type cotanLaplacian struct {
	mass    []float64
	weights []map[halfedge.VertexHandle]float64
}

func buildCotanLaplacian(m *halfedge.Mesh) *cotanLaplacian {
	n := m.VertexRowCount()
	l := &cotanLaplacian{
		mass:    make([]float64, n),
		weights: make([]map[halfedge.VertexHandle]float64, n),
	}
	for i := range l.weights {
		l.weights[i] = make(map[halfedge.VertexHandle]float64)
	}

	addWeight := func(a, b halfedge.VertexHandle, w float64) {
		l.weights[a.Index][b] += w
		l.weights[b.Index][a] += w
	}

	for fi := 0; fi < m.FaceRowCount(); fi++ {
		f := halfedge.FaceHandle{Index: uint32(fi)}
		if m.IsDeletedFace(f) {
			continue
		}
		verts := FaceVertices(m, f)
		if len(verts) != 3 {
			continue
		}
		a, b, c := verts[0], verts[1], verts[2]
		pa, pb, pc := m.Position(a), m.Position(b), m.Position(c)

		area := pb.Sub(pa).Cross(pc.Sub(pa)).Len() * 0.5
		third := float64(area) / 3
		l.mass[a.Index] += third
		l.mass[b.Index] += third
		l.mass[c.Index] += third

		cotA := cotangent(pb.Sub(pa), pc.Sub(pa))
		cotB := cotangent(pa.Sub(pb), pc.Sub(pb))
		cotC := cotangent(pa.Sub(pc), pb.Sub(pc))

		addWeight(b, c, 0.5*cotA)
		addWeight(a, c, 0.5*cotB)
		addWeight(a, b, 0.5*cotC)
	}
	return l
}

// cotangent returns cot(theta) where theta is the angle between u and v.
func cotangent(u, v mgl32.Vec3) float64 {
	cross := u.Cross(v).Len()
	if cross < 1e-12 {
		cross = 1e-12
	}
	return float64(u.Dot(v)) / float64(cross)
}

// apply computes (L*x)_i = sum_j w_ij*(x_i - x_j) for every vertex i.
func (l *cotanLaplacian) apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, nbrs := range l.weights {
		var sum float64
		for nb, w := range nbrs {
			sum += w * (x[i] - x[int(nb.Index)])
		}
		out[i] = sum
	}
	return out
}

// solveShiftedCG solves (diag(massCoef*mass) + lapCoef*L) x = rhs via
// conjugate gradient, matrix-free via l.apply. The system is symmetric
// positive-(semi)definite for lapCoef, massCoef > 0.
func solveShiftedCG(l *cotanLaplacian, massCoef, lapCoef float64, rhs []float64, maxIter int, tol float64) (x []float64, iters int, converged bool) {
	n := len(rhs)
	x = make([]float64, n)
	applyA := func(v []float64) []float64 {
		lv := l.apply(v)
		out := make([]float64, n)
		for i := range out {
			out[i] = massCoef*l.mass[i]*v[i] + lapCoef*lv[i]
		}
		return out
	}

	r := make([]float64, n)
	copy(r, rhs)
	p := make([]float64, n)
	copy(p, r)
	rsOld := dot(r, r)
	if rsOld < tol*tol {
		return x, 0, true
	}
	if maxIter <= 0 {
		maxIter = 1000
	}

	for iter := 0; iter < maxIter; iter++ {
		ap := applyA(p)
		denom := dot(p, ap)
		if math.Abs(denom) < 1e-30 {
			return x, iter, false
		}
		alpha := rsOld / denom
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
		}
		rsNew := dot(r, r)
		if math.Sqrt(rsNew) < tol {
			return x, iter + 1, true
		}
		beta := rsNew / rsOld
		for i := range p {
			p[i] = r[i] + beta*p[i]
		}
		rsOld = rsNew
	}
	return x, maxIter, false
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

type faceGradient struct {
	dir   mgl32.Vec3
	valid bool
}

// computeNormalizedGradient returns, per face, the unit vector -grad(u)/|grad(u)|.
func computeNormalizedGradient(m *halfedge.Mesh, u []float64) []faceGradient {
	out := make([]faceGradient, m.FaceRowCount())
	for fi := range out {
		f := halfedge.FaceHandle{Index: uint32(fi)}
		if m.IsDeletedFace(f) {
			continue
		}
		verts := FaceVertices(m, f)
		if len(verts) != 3 {
			continue
		}
		a, b, c := verts[0], verts[1], verts[2]
		pa, pb, pc := m.Position(a), m.Position(b), m.Position(c)
		ua, ub, uc := u[a.Index], u[b.Index], u[c.Index]

		n := pb.Sub(pa).Cross(pc.Sub(pa))
		areaTimesTwo := n.Len()
		if areaTimesTwo < 1e-10 {
			continue
		}
		n = n.Mul(1 / areaTimesTwo)

		ea := pc.Sub(pb)
		eb := pa.Sub(pc)
		ec := pb.Sub(pa)

		invTwoA := 1 / areaTimesTwo
		grad := n.Cross(ea).Mul(float32(ua)).
			Add(n.Cross(eb).Mul(float32(ub))).
			Add(n.Cross(ec).Mul(float32(uc))).
			Mul(invTwoA)

		gradLen := grad.Len()
		if gradLen < 1e-10 {
			continue
		}
		out[fi] = faceGradient{dir: grad.Mul(-1 / gradLen), valid: true}
	}
	return out
}

// computeDivergence integrates the vector field X over each vertex's
// incident faces using cotangent-weighted edge projections.
func computeDivergence(m *halfedge.Mesh, x []faceGradient) []float64 {
	div := make([]float64, m.VertexRowCount())
	for fi := range x {
		f := halfedge.FaceHandle{Index: uint32(fi)}
		if m.IsDeletedFace(f) || !x[fi].valid {
			continue
		}
		verts := FaceVertices(m, f)
		if len(verts) != 3 {
			continue
		}
		a, b, c := verts[0], verts[1], verts[2]
		pa, pb, pc := m.Position(a), m.Position(b), m.Position(c)
		xf := x[fi].dir

		cotA := cotangent(pb.Sub(pa), pc.Sub(pa))
		cotB := cotangent(pa.Sub(pb), pc.Sub(pb))
		cotC := cotangent(pa.Sub(pc), pb.Sub(pc))

		dotBA := float64(pa.Sub(pb).Dot(xf))
		dotCA := float64(pa.Sub(pc).Dot(xf))
		div[a.Index] += 0.5 * (cotB*dotBA + cotC*dotCA)

		dotAB := float64(pb.Sub(pa).Dot(xf))
		dotCB := float64(pb.Sub(pc).Dot(xf))
		div[b.Index] += 0.5 * (cotA*dotAB + cotC*dotCB)

		dotAC := float64(pc.Sub(pa).Dot(xf))
		dotBC := float64(pc.Sub(pb).Dot(xf))
		div[c.Index] += 0.5 * (cotA*dotAC + cotB*dotBC)
	}
	return div
}

// ComputeDistance computes approximate geodesic distance from sourceVertices
// to every vertex of m via the heat method: diffuse a delta at the sources
// for a short time t=h^2, take the normalized negative gradient of the
// result per face, integrate its divergence per vertex via cotangent
// weights, then recover distance as the function whose gradient best
// matches that field by solving a Poisson equation, shifted so the minimum
// is zero.
func ComputeDistance(m *halfedge.Mesh, sourceVertices []int, params GeodesicParams) (*GeodesicResult, bool) {
	if m.FaceCount() == 0 || len(sourceVertices) == 0 {
		return nil, false
	}
	nV := m.VertexRowCount()

	h := MeanEdgeLength(m)
	t := params.TimeStep
	if t <= 0 {
		t = float64(h) * float64(h)
	}

	rhs := make([]float64, nV)
	for _, s := range sourceVertices {
		if s < 0 || s >= nV {
			continue
		}
		v := halfedge.VertexHandle{Index: uint32(s)}
		if m.IsDeletedVertex(v) || m.IsIsolated(v) {
			continue
		}
		rhs[s] = 1.0
	}

	l := buildCotanLaplacian(m)

	u, heatIters, heatOk := solveShiftedCG(l, 1.0, t, rhs, params.MaxSolverIterations, nonZeroTol(params.SolverTolerance))

	x := computeNormalizedGradient(m, u)
	divX := computeDivergence(m, x)

	// L has a one-dimensional null space (constants); regularize with a
	// tiny uniform mass term instead of pinning a vertex, then shift the
	// result so its minimum is zero.
	reg := &cotanLaplacian{mass: make([]float64, nV), weights: l.weights}
	for i := range reg.mass {
		reg.mass[i] = 1e-8
	}
	phi, poissonIters, poissonOk := solveShiftedCG(reg, 1.0, 1.0, divX, params.MaxSolverIterations, nonZeroTol(params.SolverTolerance))

	minDist := math.Inf(1)
	for vi := 0; vi < nV; vi++ {
		v := halfedge.VertexHandle{Index: uint32(vi)}
		if m.IsDeletedVertex(v) || m.IsIsolated(v) {
			continue
		}
		if phi[vi] < minDist {
			minDist = phi[vi]
		}
	}
	if math.IsInf(minDist, 1) {
		minDist = 0
	}

	distances := make([]float64, nV)
	for vi := 0; vi < nV; vi++ {
		v := halfedge.VertexHandle{Index: uint32(vi)}
		if m.IsDeletedVertex(v) || m.IsIsolated(v) {
			continue
		}
		distances[vi] = phi[vi] - minDist
	}

	return &GeodesicResult{
		Distances:              distances,
		HeatSolveIterations:    heatIters,
		PoissonSolveIterations: poissonIters,
		Converged:              heatOk && poissonOk,
	}, true
}

func nonZeroTol(tol float64) float64 {
	if tol <= 0 {
		return 1e-8
	}
	return tol
}
