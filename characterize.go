package poplod

import (
	"fmt"

	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

// Characterization is the one-time, build-only output of Characterize: a
// per-triangle pop-level assignment, a level-respecting vertex reordering,
// and the threshold level beyond which POP storage stops paying for
// itself.
type Characterization struct {
	Quantizer Quantizer

	BBoxMin, BBoxMax d3.Vec3 // world-space bounds of the original mesh

	VertMinLevel []int     // per original vertex: smallest level at which it's needed
	LevelTris    [][]int32 // per level: triangle indices (into the original face array) whose pop level is exactly that level
	LevelVerts   [][]int32 // per level: original vertex indices first needed at that level, in ascending original-index order
	VertReorder  []int32   // per original vertex: new index in the level-respecting global ordering

	TriThreshold int // smallest level whose cumulative triangle count passes TriThresholdFraction, one lower (floored at 0) if that level already holds every triangle

	verts []d3.Vec3 // borrowed input, valid only during Characterize
	faces []int32   // borrowed input, valid only during Characterize
}

// Characterize runs the mesh characterization described in SPEC_FULL.md
// §4.2: it assigns every triangle its pop level, derives each vertex's
// minimum level, and builds the level-respecting vertex reorder map.
//
// verts and faces are borrowed for the duration of the call only; faces
// holds 3 indices per triangle into verts.
func Characterize(ctx *Context, verts []d3.Vec3, faces []int32) (*Characterization, error) {
	if len(verts) == 0 || len(faces) == 0 || len(faces)%3 != 0 {
		return nil, newCacheError(InvalidInput, "empty or malformed mesh arrays", nil)
	}

	ctx.StartTimer(TimerCharacterize)
	defer ctx.StopTimer(TimerCharacterize)

	vcnt := len(verts)
	fcnt := len(faces) / 3

	c := &Characterization{
		VertMinLevel: make([]int, vcnt),
		LevelTris:    make([][]int32, NumLevels),
		LevelVerts:   make([][]int32, NumLevels),
		VertReorder:  make([]int32, vcnt),
		verts:        verts,
		faces:        faces,
	}
	for i := range c.VertMinLevel {
		c.VertMinLevel[i] = NumLevels - 1
	}

	// Step 1: tight bounds, padded by BoundsBumpFactor into quantization bounds.
	bmin, bmax := tightBounds(verts)
	c.BBoxMin, c.BBoxMax = bmin, bmax
	qmin := d3.NewVec3XYZ(
		bmin[0]-math32.Abs(BoundsBumpFactor*bmin[0]),
		bmin[1]-math32.Abs(BoundsBumpFactor*bmin[1]),
		bmin[2]-math32.Abs(BoundsBumpFactor*bmin[2]),
	)
	qmax := d3.NewVec3XYZ(
		bmax[0]+math32.Abs(BoundsBumpFactor*bmax[0]),
		bmax[1]+math32.Abs(BoundsBumpFactor*bmax[1]),
		bmax[2]+math32.Abs(BoundsBumpFactor*bmax[2]),
	)
	// A mesh flat on some axis (every coordinate 0 on that axis, e.g. a
	// single planar triangle) bumps to a zero-width range on that axis,
	// which would divide by zero in Quantizer.ToCell. Widen it by a
	// nominal half-unit so quantization stays well-defined.
	for i := 0; i < 3; i++ {
		if qmax[i] <= qmin[i] {
			qmin[i] -= 0.5
			qmax[i] += 0.5
		}
	}
	c.Quantizer = NewQuantizer(qmin, qmax)

	// Step 2 & 3: per-triangle pop level, propagated to incident vertices.
	q := c.Quantizer
	for i := 0; i < fcnt; i++ {
		v0 := faces[3*i+0]
		v1 := faces[3*i+1]
		v2 := faces[3*i+2]
		r0 := q.ToCell(verts[v0])
		r1 := q.ToCell(verts[v1])
		r2 := q.ToCell(verts[v2])

		lvl := NumLevels - 1
		for j := 0; j < NumLevels; j++ {
			if !q.TriDegenerate(r0, r1, r2, j) {
				lvl = j
				break
			}
		}
		c.LevelTris[lvl] = append(c.LevelTris[lvl], int32(i))

		for _, v := range [3]int32{v0, v1, v2} {
			if c.VertMinLevel[v] > lvl {
				c.VertMinLevel[v] = lvl
			}
		}
	}

	// Build level vertex sets from vert_min_level, in ascending original index order.
	for v := 0; v < vcnt; v++ {
		lvl := c.VertMinLevel[v]
		c.LevelVerts[lvl] = append(c.LevelVerts[lvl], int32(v))
	}

	// Step 4: level-respecting global vertex reordering.
	vind := int32(0)
	for lvl := 0; lvl < NumLevels; lvl++ {
		for _, v := range c.LevelVerts[lvl] {
			c.VertReorder[v] = vind
			vind++
		}
	}

	// Step 5: cumulative-coverage threshold, with the documented back-off.
	c.TriThreshold = computeTriThreshold(c.LevelTris, fcnt)

	for lvl := 0; lvl < NumLevels; lvl++ {
		ctx.Progressf("bucket %d count: %d", lvl, len(c.LevelTris[lvl]))
	}
	for lvl := 0; lvl < NumLevels; lvl++ {
		ctx.Progressf("vert %d count: %d", lvl, len(c.LevelVerts[lvl]))
	}

	return c, nil
}

// computeTriThreshold implements the documented open question verbatim:
// scan levels in ascending order accumulating a running triangle count S;
// at the first level where S exceeds TriThresholdFraction*fcnt, take that
// level unless S has already reached the full triangle count, in which
// case back off by one level (floored at zero).
func computeTriThreshold(levelTris [][]int32, fcnt int) int {
	s := 0
	cutoff := int(float64(fcnt) * TriThresholdFraction)
	for lvl := 0; lvl < len(levelTris); lvl++ {
		s += len(levelTris[lvl])
		if s > cutoff {
			if s < fcnt {
				return lvl
			}
			if lvl == 0 {
				return 0
			}
			return lvl - 1
		}
	}
	return len(levelTris) - 1
}

func tightBounds(verts []d3.Vec3) (min, max d3.Vec3) {
	min = d3.NewVec3XYZ(verts[0][0], verts[0][1], verts[0][2])
	max = d3.NewVec3XYZ(verts[0][0], verts[0][1], verts[0][2])
	for _, v := range verts[1:] {
		d3.Vec3Min(min, v)
		d3.Vec3Max(max, v)
	}
	return min, max
}

// PopLevel returns the pop level assigned to triangle i, i.e. the level ℓ
// such that i appears in c.LevelTris[ℓ].
func (c *Characterization) PopLevel(i int32) int {
	for lvl, tris := range c.LevelTris {
		for _, t := range tris {
			if t == i {
				return lvl
			}
		}
	}
	return -1
}

func (c *Characterization) String() string {
	return fmt.Sprintf("Characterization{verts:%d tris:%d threshold:%d}",
		len(c.VertMinLevel), len(c.faces)/3, c.TriThreshold)
}
