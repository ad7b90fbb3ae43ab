package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func spherePoints(n int, radius float32) ([]mgl32.Vec3, []mgl32.Vec3) {
	points := make([]mgl32.Vec3, 0, n)
	normals := make([]mgl32.Vec3, 0, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		y := 1 - (float64(i)/float64(n-1))*2
		r := math.Sqrt(1 - y*y)
		theta := golden * float64(i)
		x := math.Cos(theta) * r
		z := math.Sin(theta) * r
		n := mgl32.Vec3{float32(x), float32(y), float32(z)}
		points = append(points, n.Mul(radius))
		normals = append(normals, n)
	}
	return points, normals
}

func TestBuildSignedDistanceGridSphereSignsAgree(t *testing.T) {
	points, normals := spherePoints(200, 2.0)
	grid := BuildSignedDistanceGrid(points, normals, ReconstructParams{
		Padding: 0.5, Nx: 12, Ny: 12, Nz: 12, K: 8, Beta: 2,
	})

	if grid.Nx != 12 || grid.Ny != 12 || grid.Nz != 12 {
		t.Fatalf("grid dims = (%d,%d,%d), want (12,12,12)", grid.Nx, grid.Ny, grid.Nz)
	}

	centerVal := grid.at(grid.Nx/2, grid.Ny/2, grid.Nz/2)
	cornerVal := grid.at(0, 0, 0)
	if centerVal >= 0 {
		t.Errorf("grid center signed distance = %v, want negative (inside sphere)", centerVal)
	}
	if cornerVal <= 0 {
		t.Errorf("grid corner signed distance = %v, want positive (outside sphere)", cornerVal)
	}
}

func TestExtractIsosurfaceProducesClosedMesh(t *testing.T) {
	points, normals := spherePoints(300, 2.0)
	grid := BuildSignedDistanceGrid(points, normals, ReconstructParams{
		Padding: 0.5, Nx: 14, Ny: 14, Nz: 14, K: 10, Beta: 2,
	})

	m := ExtractIsosurface(grid)
	if m.FaceCount() == 0 {
		t.Fatal("expected a non-empty reconstructed mesh")
	}
	if m.VertexCount() == 0 {
		t.Fatal("expected reconstructed vertices")
	}
}

func TestExtractIsosurfaceEmptyGrid(t *testing.T) {
	grid := &SignedDistanceGrid{Nx: 0, Ny: 0, Nz: 0}
	m := ExtractIsosurface(grid)
	if m.FaceCount() != 0 {
		t.Errorf("empty grid should produce an empty mesh, got %d faces", m.FaceCount())
	}
}
