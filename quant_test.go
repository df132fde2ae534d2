package poplod

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
)

func TestQuantizerToCellKnownValues(t *testing.T) {
	q := NewQuantizer(d3.NewVec3XYZ(0, 0, 0), d3.NewVec3XYZ(100, 100, 100))

	tests := []struct {
		p    d3.Vec3
		want QRec
	}{
		{d3.NewVec3XYZ(0, 0, 0), QRec{0, 0, 0}},
		{d3.NewVec3XYZ(50, 50, 50), QRec{32767, 32767, 32767}},
	}
	for _, tt := range tests {
		got := q.ToCell(tt.p)
		if got != tt.want {
			t.Errorf("ToCell(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestQuantizerTruncateBucketCountGrowsWithLevel(t *testing.T) {
	q := NewQuantizer(d3.NewVec3XYZ(0, 0, 0), d3.NewVec3XYZ(100, 100, 100))

	// Each level halves the bucket width, so the bucket index for a fixed
	// cell never decreases as level increases.
	cell := uint16(40000)
	prev := q.Truncate(cell, 0)
	for lvl := 1; lvl < NumLevels; lvl++ {
		got := q.Truncate(cell, lvl)
		if got < prev {
			t.Errorf("Truncate bucket shrank from level %d to %d: %d -> %d", lvl-1, lvl, prev, got)
		}
		prev = got
	}
	if got := q.Truncate(cell, NumLevels-1); got != uint32(cell) {
		t.Errorf("Truncate at finest level = %d, want the raw cell index %d", got, cell)
	}
}

func TestQuantizerIsEqualAtLevelZero(t *testing.T) {
	q := NewQuantizer(d3.NewVec3XYZ(0, 0, 0), d3.NewVec3XYZ(100, 100, 100))

	// Level 0's mask covers half the 16-bit cell range: two points
	// both well within the lower half share bucket 0 on every axis.
	r1 := q.ToCell(d3.NewVec3XYZ(1, 1, 1))
	r2 := q.ToCell(d3.NewVec3XYZ(40, 40, 40))
	if !q.IsEqual(r1, r2, 0) {
		t.Errorf("IsEqual(%v, %v, 0) = false, want true", r1, r2)
	}
}

func TestQuantizerTriDegenerateFinestLevel(t *testing.T) {
	q := NewQuantizer(d3.NewVec3XYZ(0, 0, 0), d3.NewVec3XYZ(100, 100, 100))

	sep0 := q.ToCell(d3.NewVec3XYZ(1, 1, 1))
	sep1 := q.ToCell(d3.NewVec3XYZ(99, 1, 1))
	sep2 := q.ToCell(d3.NewVec3XYZ(1, 99, 1))
	if q.TriDegenerate(sep0, sep1, sep2, NumLevels-1) {
		t.Errorf("TriDegenerate() = true at finest level for a well-separated triangle, want false")
	}

	// All three points fall in the lower half of every axis, so they
	// share bucket 0 everywhere at the coarsest level.
	close0 := q.ToCell(d3.NewVec3XYZ(1, 1, 1))
	close1 := q.ToCell(d3.NewVec3XYZ(2, 3, 1))
	close2 := q.ToCell(d3.NewVec3XYZ(3, 2, 2))
	if !q.TriDegenerate(close0, close1, close2, 0) {
		t.Errorf("TriDegenerate() = false at coarsest level for a tight cluster, want true")
	}
}

// TestQuantizerSnapBounds covers the snap-bounds invariant: a snapped
// coordinate never leaves [cmin, cmax], and never moves further than the
// level's bucket width, at any level and for an assortment of source
// coordinates spread across the axis range.
func TestQuantizerSnapBounds(t *testing.T) {
	const cmin, cmax = float32(0), float32(100)
	q := NewQuantizer(d3.NewVec3XYZ(cmin, cmin, cmin), d3.NewVec3XYZ(cmax, cmax, cmax))

	pts := []float32{0.01, 1, 25, 33.3, 50, 66.6, 90, 99.99}
	for lvl := 0; lvl < NumLevels; lvl++ {
		bound := (cmax - cmin) * float32(q.mask[lvl]) / 65535
		for _, v := range pts {
			s := q.Snap(d3.NewVec3XYZ(v, v, v), lvl)
			for axis := 0; axis < 3; axis++ {
				if s[axis] < cmin || s[axis] > cmax {
					t.Errorf("Snap(%v, %d)[%d] = %v, outside bounds [%v, %v]", v, lvl, axis, s[axis], cmin, cmax)
				}
				diff := s[axis] - v
				if diff < 0 {
					diff = -diff
				}
				if diff > bound+1e-2 {
					t.Errorf("Snap(%v, %d)[%d] error %v exceeds documented bound %v", v, lvl, axis, diff, bound)
				}
			}
		}
	}
}

func TestQuantizerSnapIsStableWithinBucket(t *testing.T) {
	q := NewQuantizer(d3.NewVec3XYZ(0, 0, 0), d3.NewVec3XYZ(100, 100, 100))

	p1 := d3.NewVec3XYZ(10, 10, 10)
	p2 := d3.NewVec3XYZ(10.001, 10.001, 10.001)

	s1 := q.Snap(p1, 0)
	s2 := q.Snap(p2, 0)
	if s1[0] != s2[0] || s1[1] != s2[1] || s1[2] != s2[2] {
		t.Errorf("Snap at level 0 differs for nearby points: %v vs %v", s1, s2)
	}
}
