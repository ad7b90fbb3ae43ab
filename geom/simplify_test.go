package geom

import "testing"

func TestSimplifyQEMReducesPlaneGrid(t *testing.T) {
	m, _ := buildPlaneGrid(t, 5, 5)
	before := m.FaceCount()

	result := SimplifyQEM(m, before/2, 0, 0.1)

	if result.CollapsesApplied == 0 {
		t.Fatal("expected at least one collapse on a 5x5 grid")
	}
	if m.FaceCount() >= before {
		t.Errorf("FaceCount after simplify = %d, want < %d", m.FaceCount(), before)
	}
	if m.FaceCount() != result.FacesRemaining {
		t.Errorf("FacesRemaining = %d, want %d (actual FaceCount)", result.FacesRemaining, m.FaceCount())
	}
}

func TestSimplifyQEMNoopAboveTarget(t *testing.T) {
	m, _ := buildPlaneGrid(t, 3, 3)
	before := m.FaceCount()

	result := SimplifyQEM(m, before+10, 0, 0)

	if result.CollapsesApplied != 0 {
		t.Errorf("CollapsesApplied = %d, want 0 when already below target", result.CollapsesApplied)
	}
	if m.FaceCount() != before {
		t.Errorf("FaceCount changed with nothing to do: %d -> %d", before, m.FaceCount())
	}
}

func TestSimplifyQEMRespectsErrorCeiling(t *testing.T) {
	m, _ := buildPlaneGrid(t, 5, 5)

	result := SimplifyQEM(m, 0, 1e-9, 0)

	if !result.HitErrorCeiling && result.FacesRemaining > 0 {
		t.Error("expected a tight maxCost to either stop early or fully simplify")
	}
}
