// Package meshio loads triangle meshes from Wavefront OBJ files for the
// poplod CLI, adapting recast.MeshLoaderObj's OBJ-ingestion flow to feed
// poplod.Characterize instead of Recast's voxelizer.
package meshio

import (
	"fmt"

	"github.com/arl/gobj"
	"github.com/arl/gogeo/f32/d3"
)

// Mesh is a loaded, triangulated, indexed mesh ready to be characterized.
type Mesh struct {
	Verts []d3.Vec3
	Faces []int32 // 3 indices per triangle, into Verts

	BBoxMin, BBoxMax d3.Vec3
}

// Load reads filename as a Wavefront OBJ file, fan-triangulating any
// polygon with more than 3 vertices the way recast.MeshLoaderObj does,
// and computes the mesh's bounding box via gobj's own AABB routine.
func Load(filename string) (*Mesh, error) {
	obj, err := gobj.Load(filename)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filename, err)
	}

	objVerts := obj.Verts()
	verts := make([]d3.Vec3, len(objVerts))
	for i, v := range objVerts {
		verts[i] = d3.NewVec3XYZ(float32(v.X()), float32(v.Y()), float32(v.Z()))
	}

	var faces []int32
	vcnt := int32(len(verts))
	for _, p := range obj.Polys() {
		for i := 2; i < len(p); i++ {
			a, b, c := p[0], p[i-1], p[i]
			if a < 0 || a >= vcnt || b < 0 || b >= vcnt || c < 0 || c >= vcnt {
				continue
			}
			faces = append(faces, a, b, c)
		}
	}

	bb := obj.AABB()
	m := &Mesh{
		Verts:   verts,
		Faces:   faces,
		BBoxMin: d3.NewVec3XYZ(float32(bb.MinX), float32(bb.MinY), float32(bb.MinZ)),
		BBoxMax: d3.NewVec3XYZ(float32(bb.MaxX), float32(bb.MaxY), float32(bb.MaxZ)),
	}
	return m, nil
}
