package geom

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/halfedge"
)

// RemeshStats counts the operations one IsotropicRemesh/AdaptiveRemesh call
// performed, across every iteration.
type RemeshStats struct {
	Splits, Collapses, Flips, SmoothedVertices int
}

// IsotropicRemesh runs the split/collapse/equalize/smooth loop toward a
// uniform target edge length for iterations passes.
func IsotropicRemesh(m *halfedge.Mesh, targetLength float32, iterations int, lambda float32) RemeshStats {
	sizing := func(halfedge.VertexHandle) float32 { return targetLength }
	return remesh(m, sizing, iterations, lambda)
}

// AdaptiveRemeshParams configures AdaptiveRemesh's per-vertex sizing
// function: size = baseSize / (1 + alpha*|H|), clamped to [minSize,
// maxSize], where H is each vertex's discrete mean curvature magnitude.
type AdaptiveRemeshParams struct {
	BaseSize, Alpha, MinSize, MaxSize float32
	Iterations                       int
	Lambda                           float32
}

// AdaptiveRemesh is IsotropicRemesh with a curvature-derived per-vertex
// size field instead of one uniform target length; each edge uses the
// average of its two endpoints' sizes.
func AdaptiveRemesh(m *halfedge.Mesh, p AdaptiveRemeshParams) RemeshStats {
	sizing := func(v halfedge.VertexHandle) float32 {
		h := meanCurvatureMagnitude(m, v)
		size := p.BaseSize / (1 + p.Alpha*h)
		if size < p.MinSize {
			size = p.MinSize
		}
		if size > p.MaxSize {
			size = p.MaxSize
		}
		return size
	}
	return remesh(m, sizing, p.Iterations, p.Lambda)
}

// meanCurvatureMagnitude estimates |H| at v via the uniform-weighted
// discrete Laplace-Beltrami operator (the umbrella operator): the
// displacement of v from its 1-ring centroid divided by the squared mean
// 1-ring edge length, so the estimate has units of inverse length like a
// curvature.
func meanCurvatureMagnitude(m *halfedge.Mesh, v halfedge.VertexHandle) float32 {
	ring := outgoingHalfedges(m, v)
	if len(ring) == 0 {
		return 0
	}
	var centroid mgl32.Vec3
	var meanLen float32
	for _, h := range ring {
		p := m.Position(m.ToVertex(h))
		centroid = centroid.Add(p)
		meanLen += p.Sub(m.Position(v)).Len()
	}
	n := float32(len(ring))
	centroid = centroid.Mul(1 / n)
	meanLen /= n
	if meanLen == 0 {
		return 0
	}
	laplacian := centroid.Sub(m.Position(v))
	return laplacian.Len() / (meanLen * meanLen)
}

func remesh(m *halfedge.Mesh, sizing func(halfedge.VertexHandle) float32, iterations int, lambda float32) RemeshStats {
	var stats RemeshStats
	for it := 0; it < iterations; it++ {
		stats.Splits += splitLongEdges(m, sizing)
		stats.Collapses += collapseShortEdges(m, sizing)
		stats.Flips += equalizeValence(m)
		stats.SmoothedVertices += tangentialSmooth(m, lambda)
	}
	return stats
}

func edgeTargetLength(m *halfedge.Mesh, e halfedge.EdgeHandle, sizing func(halfedge.VertexHandle) float32) float32 {
	h := halfedge.HalfedgeOf(e, 0)
	return (sizing(m.FromVertex(h)) + sizing(m.ToVertex(h))) * 0.5
}

func splitLongEdges(m *halfedge.Mesh, sizing func(halfedge.VertexHandle) float32) int {
	count := 0
	for i := 0; i < m.EdgeRowCount(); i++ {
		e := halfedge.EdgeHandle{Index: uint32(i)}
		if m.IsDeletedEdge(e) {
			continue
		}
		target := edgeTargetLength(m, e, sizing)
		upper := (4.0 / 3.0) * target
		if EdgeLengthSquared(m, e) <= upper*upper {
			continue
		}
		h := halfedge.HalfedgeOf(e, 0)
		mid := m.Position(m.FromVertex(h)).Add(m.Position(m.ToVertex(h))).Mul(0.5)
		m.Split(e, mid)
		count++
	}
	return count
}

func collapseShortEdges(m *halfedge.Mesh, sizing func(halfedge.VertexHandle) float32) int {
	count := 0
	for i := 0; i < m.EdgeRowCount(); i++ {
		e := halfedge.EdgeHandle{Index: uint32(i)}
		if m.IsDeletedEdge(e) {
			continue
		}
		target := edgeTargetLength(m, e, sizing)
		lower := (4.0 / 5.0) * target
		if EdgeLengthSquared(m, e) >= lower*lower {
			continue
		}
		if !m.IsCollapseOk(e) {
			continue
		}
		if collapseWouldExceedUpperBound(m, e, (4.0/3.0)*target) {
			continue
		}
		h := halfedge.HalfedgeOf(e, 0)
		target3 := m.Position(m.ToVertex(h))
		if _, ok := m.Collapse(e, target3); ok {
			count++
		}
	}
	return count
}

// collapseWouldExceedUpperBound forbids a collapse that would stretch any
// surviving incident edge past upperBound, per the spec's split/collapse
// hysteresis band.
func collapseWouldExceedUpperBound(m *halfedge.Mesh, e halfedge.EdgeHandle, upperBound float32) bool {
	h := halfedge.HalfedgeOf(e, 0)
	vFrom, vTo := m.FromVertex(h), m.ToVertex(h)
	target := m.Position(vTo)
	for _, out := range outgoingHalfedges(m, vFrom) {
		other := m.ToVertex(out)
		if other == vTo {
			continue
		}
		if target.Sub(m.Position(other)).Len() > upperBound {
			return true
		}
	}
	return false
}

func equalizeValence(m *halfedge.Mesh) int {
	count := 0
	for i := 0; i < m.EdgeRowCount(); i++ {
		e := halfedge.EdgeHandle{Index: uint32(i)}
		if m.IsDeletedEdge(e) || !m.IsFlipOk(e) {
			continue
		}
		h := halfedge.HalfedgeOf(e, 0)
		o := halfedge.Opposite(h)
		a, b := m.FromVertex(h), m.ToVertex(h)
		c, d := m.ToVertex(m.Next(h)), m.ToVertex(m.Next(o))

		targetOf := func(v halfedge.VertexHandle) int {
			if m.VertexIsBoundary(v) {
				return 4
			}
			return 6
		}
		before := devSq(m.Valence(a), targetOf(a)) + devSq(m.Valence(b), targetOf(b)) +
			devSq(m.Valence(c), targetOf(c)) + devSq(m.Valence(d), targetOf(d))
		after := devSq(m.Valence(a)-1, targetOf(a)) + devSq(m.Valence(b)-1, targetOf(b)) +
			devSq(m.Valence(c)+1, targetOf(c)) + devSq(m.Valence(d)+1, targetOf(d))

		if after < before {
			if m.Flip(e) {
				count++
			}
		}
	}
	return count
}

func devSq(valence, target int) int {
	d := valence - target
	return d * d
}

// tangentialSmooth moves every non-boundary vertex by lambda times the
// 1-ring centroid offset, projected onto the tangent plane of the area-
// weighted vertex normal.
func tangentialSmooth(m *halfedge.Mesh, lambda float32) int {
	n := m.VertexRowCount()
	newPos := make([]mgl32.Vec3, n)
	move := make([]bool, n)

	for i := 0; i < n; i++ {
		v := halfedge.VertexHandle{Index: uint32(i)}
		if m.IsDeletedVertex(v) || m.VertexIsBoundary(v) || m.IsIsolated(v) {
			continue
		}
		ring := outgoingHalfedges(m, v)
		var centroid mgl32.Vec3
		for _, h := range ring {
			centroid = centroid.Add(m.Position(m.ToVertex(h)))
		}
		centroid = centroid.Mul(1.0 / float32(len(ring)))

		normal := VertexNormal(m, v)
		offset := centroid.Sub(m.Position(v))
		if normal.Len() > 0 {
			offset = offset.Sub(normal.Mul(offset.Dot(normal)))
		}
		newPos[i] = m.Position(v).Add(offset.Mul(lambda))
		move[i] = true
	}

	count := 0
	for i := 0; i < n; i++ {
		if !move[i] {
			continue
		}
		m.SetPosition(halfedge.VertexHandle{Index: uint32(i)}, newPos[i])
		count++
	}
	return count
}
