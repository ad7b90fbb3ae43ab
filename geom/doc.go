// Package geom implements the geometry-processing operators that run on
// top of halfedge.Mesh and property.Registry: isotropic/adaptive
// remeshing, QEM simplification, Loop/Catmull-Clark subdivision, heat-
// method geodesics, PCA+MST normal estimation and surface reconstruction,
// and mesh repair. Every operator mutates its mesh in place or returns a
// new one, reporting counts of operations performed; none of them panic
// on malformed input, mirroring the halfedge package's own "return false/
// zero value on failure" discipline.
package geom
