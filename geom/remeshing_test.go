package geom

import "testing"

func TestIsotropicRemeshKeepsManifold(t *testing.T) {
	m, _ := buildPlaneGrid(t, 6, 6)
	IsotropicRemesh(m, 1.0, 3, 0.5)

	if m.FaceCount() == 0 {
		t.Fatal("remeshed grid should still have faces")
	}
}

func TestIsotropicRemeshConvergesEdgeLengths(t *testing.T) {
	m, _ := buildPlaneGrid(t, 8, 8)
	target := float32(2.0)
	IsotropicRemesh(m, target, 4, 0.5)

	mean := MeanEdgeLength(m)
	if mean < target*0.5 || mean > target*1.5 {
		t.Errorf("mean edge length after remesh = %v, want roughly %v", mean, target)
	}
}

func TestAdaptiveRemeshProducesStats(t *testing.T) {
	m, _ := buildPlaneGrid(t, 6, 6)
	stats := AdaptiveRemesh(m, AdaptiveRemeshParams{
		BaseSize:   1.0,
		Alpha:      1.0,
		MinSize:    0.25,
		MaxSize:    2.0,
		Iterations: 2,
		Lambda:     0.5,
	})
	if stats.Splits+stats.Collapses+stats.Flips+stats.SmoothedVertices == 0 {
		t.Error("expected adaptive remesh to perform some operation on a flat grid")
	}
}
