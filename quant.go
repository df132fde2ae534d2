package poplod

import (
	"math"

	"github.com/arl/gogeo/f32/d3"
)

// NumLevels is the fixed number of quantization levels, L in the spec.
// Level 0 is the coarsest; NumLevels-1 is the finest the POP
// representation goes before the engine switches to full fidelity.
const NumLevels = 16

// BoundsBumpFactor is MBUMP: each axis of the tight input bounding box is
// padded outward by |BoundsBumpFactor * c| so that every source coordinate
// lies within [qmin, qmax]. An extreme that is exactly 0 gets no padding,
// so coordinates at it sit on the bound itself rather than strictly inside.
const BoundsBumpFactor = 1.01

// TriThresholdFraction is the fraction of total triangles that must be
// covered, cumulatively by ascending level, before POP storage is judged
// not worth it beyond that level. Fixed by the spec; not user-configurable.
const TriThresholdFraction = 0.66

// QRec is a quantized coordinate: three unsigned 16-bit grid indices.
type QRec struct {
	X, Y, Z uint16
}

// Quantizer maps world coordinates within [qmin, qmax] to grid indices at
// any of the NumLevels quantization levels, and back.
//
// It is a small value type, precomputing the per-level truncation masks
// once so it can be copied and threaded through hot loops without
// allocation, the way detour.QueryFilter is threaded through query.go.
type Quantizer struct {
	qmin, qmax d3.Vec3
	mask       [NumLevels]uint32
}

// NewQuantizer returns a Quantizer configured for the padded bounds
// (qmin, qmax). Every coordinate passed to its methods must satisfy
// qmin[i] <= v[i] <= qmax[i] componentwise.
func NewQuantizer(qmin, qmax d3.Vec3) Quantizer {
	q := Quantizer{qmin: d3.NewVec3From(qmin), qmax: d3.NewVec3From(qmax)}
	for lvl := 0; lvl < NumLevels; lvl++ {
		q.mask[lvl] = 1 << uint(NumLevels-lvl-1)
	}
	return q
}

// QMin returns the padded minimum quantization bound.
func (q Quantizer) QMin() d3.Vec3 { return q.qmin }

// QMax returns the padded maximum quantization bound.
func (q Quantizer) QMax() d3.Vec3 { return q.qmax }

// toCellAxis maps a single coordinate in [cmin, cmax] to a grid index in
// [0, 65535].
func toCellAxis(v, cmin, cmax float32) uint16 {
	return uint16(math.Floor(float64((v - cmin) / (cmax - cmin) * 65535)))
}

// ToCell quantizes a world-space point to its grid cell, per axis.
func (q Quantizer) ToCell(p d3.Vec3) QRec {
	return QRec{
		X: toCellAxis(p[0], q.qmin[0], q.qmax[0]),
		Y: toCellAxis(p[1], q.qmin[1], q.qmax[1]),
		Z: toCellAxis(p[2], q.qmin[2], q.qmax[2]),
	}
}

// Truncate reduces a grid cell index to its bucket index at level lvl.
func (q Quantizer) Truncate(cell uint16, lvl int) uint32 {
	return uint32(cell) / q.mask[lvl]
}

// IsEqual reports whether r1 and r2 truncate to the same bucket, on every
// axis, at level lvl.
func (q Quantizer) IsEqual(r1, r2 QRec, lvl int) bool {
	return q.Truncate(r1.X, lvl) == q.Truncate(r2.X, lvl) &&
		q.Truncate(r1.Y, lvl) == q.Truncate(r2.Y, lvl) &&
		q.Truncate(r1.Z, lvl) == q.Truncate(r2.Z, lvl)
}

// TriDegenerate reports whether any two of the three quantized vertices
// collapse to the same bucket at level lvl.
func (q Quantizer) TriDegenerate(r0, r1, r2 QRec, lvl int) bool {
	return q.IsEqual(r0, r1, lvl) || q.IsEqual(r1, r2, lvl) || q.IsEqual(r0, r2, lvl)
}

// snapAxis maps a single world coordinate to the midpoint of its enclosing
// level-lvl bucket, then back to world space.
func snapAxis(v, cmin, cmax float32, mask uint32) float32 {
	vf := math.Floor(float64((v - cmin) / (cmax - cmin) * 65535))
	lo := math.Floor(vf / float64(mask))
	vc := math.Ceil(float64((v - cmin) / (cmax - cmin) * 65535))
	hi := math.Ceil(vc / float64(mask))
	grid := (lo + hi) * 0.5 * float64(mask)
	return float32((grid/65535)*float64(cmax-cmin) + float64(cmin))
}

// Snap maps a world-space point to the coordinate it snaps to at level
// lvl: the midpoint of the level-lvl bucket each axis falls into.
func (q Quantizer) Snap(p d3.Vec3, lvl int) d3.Vec3 {
	return d3.NewVec3XYZ(
		snapAxis(p[0], q.qmin[0], q.qmax[0], q.mask[lvl]),
		snapAxis(p[1], q.qmin[1], q.qmax[1], q.mask[lvl]),
		snapAxis(p[2], q.qmin[2], q.qmax[2], q.mask[lvl]),
	)
}
