package geom

import (
	"context"
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/prim_kruskal"

	"github.com/intrinsic3d/enginecore/spatial"
)

// EstimatePointNormals computes a globally consistent unit normal for every
// point in points. Each normal is first fit locally by PCA over the point's
// k nearest neighbors (the plane minimizing squared distance is spanned by
// the two largest-eigenvalue eigenvectors, so the normal is the smallest
// one); local fits carry no sign, so a Riemannian graph connecting near
// neighbors (weighted by 1-|n_i . n_j|, cheap where normals agree) is built
// and its minimum spanning tree is used to propagate a consistent sign
// outward from each connected component's highest point, per Hoppe et al.'s
// orientation scheme.
func EstimatePointNormals(points []mgl32.Vec3, k int) []mgl32.Vec3 {
	n := len(points)
	if n == 0 {
		return nil
	}
	if k >= n {
		k = n - 1
	}
	if k < 1 {
		return make([]mgl32.Vec3, n)
	}

	tree := spatial.NewKDTree()
	aabbs := make([]spatial.AABB, n)
	for i, p := range points {
		aabbs[i] = spatial.PointAABB(p)
	}
	tree.Build(aabbs, spatial.KDTreeParams{})

	neighbors := make([][]int, n)
	raw := make([]mgl32.Vec3, n)

	g, _ := errgroup.WithContext(context.Background())
	const chunk = 512
	for start := 0; start < n; start += chunk {
		start := start
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				found, _ := tree.QueryKNN(points[i], k+1)
				nb := make([]int, 0, len(found))
				for _, idx := range found {
					if idx != i {
						nb = append(nb, idx)
					}
				}
				neighbors[i] = nb
				raw[i] = pcaNormal(points, i, nb)
			}
			return nil
		})
	}
	_ = g.Wait()

	oriented := make([]mgl32.Vec3, n)
	copy(oriented, raw)
	orientNormalsByMST(points, raw, neighbors, oriented)
	return oriented
}

// pcaNormal returns the unit eigenvector of smallest eigenvalue of the
// covariance matrix of points[i] and its neighbors: the direction of least
// variance, i.e. the local surface normal up to sign.
func pcaNormal(points []mgl32.Vec3, i int, neighbors []int) mgl32.Vec3 {
	if len(neighbors) < 2 {
		return mgl32.Vec3{0, 0, 1}
	}
	var centroid mgl32.Vec3
	centroid = centroid.Add(points[i])
	for _, idx := range neighbors {
		centroid = centroid.Add(points[idx])
	}
	centroid = centroid.Mul(1.0 / float32(len(neighbors)+1))

	var cxx, cxy, cxz, cyy, cyz, czz float64
	accumulate := func(p mgl32.Vec3) {
		d := p.Sub(centroid)
		cxx += float64(d[0] * d[0])
		cxy += float64(d[0] * d[1])
		cxz += float64(d[0] * d[2])
		cyy += float64(d[1] * d[1])
		cyz += float64(d[1] * d[2])
		czz += float64(d[2] * d[2])
	}
	accumulate(points[i])
	for _, idx := range neighbors {
		accumulate(points[idx])
	}

	return smallestEigenvector(cxx, cxy, cxz, cyy, cyz, czz)
}

// smallestEigenvector finds the eigenvector of the smallest eigenvalue of
// the symmetric 3x3 matrix [[a,b,c],[b,d,e],[c,e,f]] via Cardano's closed-
// form cubic formula for its characteristic polynomial, then recovers the
// eigenvector as the cross product of two rows of (A - lambda*I), which is
// rank-deficient at an eigenvalue.
func smallestEigenvector(a, b, c, d, e, f float64) mgl32.Vec3 {
	p1 := a + d + f
	p2 := (a*d - b*b) + (a*f - c*c) + (d*f - e*e)
	p3 := a*(d*f-e*e) - b*(b*f-c*e) + c*(b*e-c*d)

	p := p2 - p1*p1/3
	q := -2*p1*p1*p1/27 + p1*p2/3 - p3

	var lambda float64
	if math.Abs(p) < 1e-12 {
		lambda = p1 / 3
	} else {
		r := math.Sqrt(-p / 3)
		cosArg := (3 * q) / (2 * p * r)
		if cosArg > 1 {
			cosArg = 1
		}
		if cosArg < -1 {
			cosArg = -1
		}
		theta := math.Acos(cosArg) / 3
		t0 := 2*r*math.Cos(theta) + p1/3
		t1 := 2*r*math.Cos(theta-2*math.Pi/3) + p1/3
		t2 := 2*r*math.Cos(theta-4*math.Pi/3) + p1/3
		lambda = math.Min(t0, math.Min(t1, t2))
	}

	row1 := mgl32.Vec3{float32(a - lambda), float32(b), float32(c)}
	row2 := mgl32.Vec3{float32(b), float32(d - lambda), float32(e)}
	row3 := mgl32.Vec3{float32(c), float32(e), float32(f - lambda)}

	v := row1.Cross(row2)
	if v.Len() < 1e-8 {
		v = row1.Cross(row3)
	}
	if v.Len() < 1e-8 {
		v = row2.Cross(row3)
	}
	if v.Len() < 1e-8 {
		return mgl32.Vec3{0, 0, 1}
	}
	return v.Normalize()
}

// orientNormalsByMST partitions the k-NN adjacency into connected
// components (prim_kruskal.Prim requires a fully connected graph), builds a
// Riemannian graph per component, runs Prim's MST from each component's
// highest point, and propagates sign agreement outward along the tree.
func orientNormalsByMST(points []mgl32.Vec3, raw []mgl32.Vec3, neighbors [][]int, out []mgl32.Vec3) {
	n := len(points)
	unweighted := core.NewGraph()
	weighted := core.NewGraph(core.WithWeighted())
	for i := 0; i < n; i++ {
		id := vertexID(i)
		unweighted.AddVertex(id)
		weighted.AddVertex(id)
	}

	seenEdge := make(map[[2]int]bool)
	for i := 0; i < n; i++ {
		for _, j := range neighbors[i] {
			lo, hi := i, j
			if lo > hi {
				lo, hi = hi, lo
			}
			key := [2]int{lo, hi}
			if seenEdge[key] {
				continue
			}
			seenEdge[key] = true
			w := riemannianWeight(raw[i], raw[j])
			unweighted.AddEdge(vertexID(lo), vertexID(hi), 0)
			weighted.AddEdge(vertexID(lo), vertexID(hi), w)
		}
	}

	visited := make([]bool, n)
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		result, err := bfs.BFS(unweighted, vertexID(start))
		if err != nil {
			visited[start] = true
			continue
		}
		component := result.Order
		if len(component) == 0 {
			component = []string{vertexID(start)}
		}
		for _, id := range component {
			visited[vertexIndex(id)] = true
		}

		root := component[0]
		bestZ := points[vertexIndex(root)][2]
		for _, id := range component {
			if z := points[vertexIndex(id)][2]; z > bestZ {
				bestZ = z
				root = id
			}
		}

		mstEdges, _, err := prim_kruskal.Prim(weighted, root)
		if err != nil {
			continue
		}
		propagateSigns(root, mstEdges, points, out)
	}
}

func propagateSigns(root string, edges []core.Edge, points []mgl32.Vec3, out []mgl32.Vec3) {
	adj := make(map[string][]string, len(edges)*2)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}

	ri := vertexIndex(root)
	if out[ri][2] < 0 {
		out[ri] = out[ri].Mul(-1)
	}

	visited := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		ci := vertexIndex(cur)
		for _, next := range adj[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			ni := vertexIndex(next)
			if out[ni].Dot(out[ci]) < 0 {
				out[ni] = out[ni].Mul(-1)
			}
			queue = append(queue, next)
		}
	}
}

// riemannianWeight scores an edge cheap when its endpoints' raw normals
// nearly agree (up to sign) and expensive when they disagree, scaled to the
// int64 weight prim_kruskal.Prim requires.
func riemannianWeight(a, b mgl32.Vec3) int64 {
	agreement := math.Abs(float64(a.Dot(b)))
	if agreement > 1 {
		agreement = 1
	}
	const scale = 1 << 20
	return int64((1 - agreement) * scale)
}

func vertexID(i int) string { return strconv.Itoa(i) }

func vertexIndex(id string) int {
	i, _ := strconv.Atoi(id)
	return i
}
