package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestEstimatePointNormalsFlatPlane(t *testing.T) {
	var points []mgl32.Vec3
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			points = append(points, mgl32.Vec3{float32(i), 0, float32(j)})
		}
	}

	normals := EstimatePointNormals(points, 8)
	if len(normals) != len(points) {
		t.Fatalf("got %d normals, want %d", len(normals), len(points))
	}

	for i, n := range normals {
		if !approxEqual(n.Len(), 1.0, 1e-3) {
			t.Fatalf("normal %d has length %v, want 1", i, n.Len())
		}
		if absf(n[1]) < 0.9 {
			t.Errorf("normal %d = %v, want roughly +-Y for a flat plane", i, n)
		}
	}

	// Global consistency: every normal should agree in sign with its
	// neighbors (a flat plane's normals should not alternate).
	ref := normals[0]
	for i, n := range normals {
		if n.Dot(ref) < 0 {
			t.Errorf("normal %d = %v disagrees in sign with normal 0 = %v", i, n, ref)
		}
	}
}

func TestEstimatePointNormalsEmpty(t *testing.T) {
	if got := EstimatePointNormals(nil, 5); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
