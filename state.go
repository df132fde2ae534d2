package poplod

import (
	"math"

	assert "github.com/arl/assertgo"
	"github.com/arl/gogeo/f32/d3"
)

// LoD is an opaque, loaded handle onto a cached POP mesh. It is never
// constructed directly; callers obtain one from Init.
//
// Not safe for concurrent use by multiple goroutines against the same
// handle: all state transitions are serialized through SetLevel and its
// callers are expected to own the handle from a single goroutine at a
// time.
type LoD struct {
	id HandleID

	reader *cacheReader

	bboxMin, bboxMax d3.Vec3
	quantizer        Quantizer
	maxPopLevel      int

	currLevel int

	// vertsWorld holds, in POP regime, the unsnapped vertex positions
	// loaded so far (levels [0, currLevel]); in Full regime, the entire
	// original mesh.
	vertsWorld []d3.Vec3
	// vertsSnapped holds vertsWorld re-snapped at currLevel. Populated
	// only in POP regime.
	vertsSnapped []d3.Vec3
	// tris holds, in POP regime, triangle indices into vertsWorld for
	// levels loaded so far; in Full regime, the entire original mesh's
	// triangles.
	tris []int32

	// levelVertCount[ℓ] and levelTriCount[ℓ] record how many entries of
	// vertsWorld/tris belong to level ℓ, so POP→POP down can truncate
	// precisely.
	levelVertCount [NumLevels]int
	levelTriCount  [NumLevels]int

	callback DrawCallback
}

// Init loads a handle onto the cache entry identified by hash, at level
// 0. It returns an error if the cache entry does not exist or is
// incompatible or corrupt.
func Init(hash uint64) (*LoD, error) {
	r, err := openCache(hash)
	if err != nil {
		return nil, err
	}

	l := &LoD{
		reader:      r,
		bboxMin:     r.bboxMin,
		bboxMax:     r.bboxMax,
		quantizer:   r.quantizer,
		maxPopLevel: r.maxPopLevel,
		currLevel:   -1,
	}
	l.id = register(l)

	ctx := NewContext(false)
	if err := l.SetLevel(ctx, 0); err != nil {
		unregister(l.id)
		return nil, err
	}
	return l, nil
}

// Destroy releases the handle's owned buffers and its registry entry.
// The handle must not be used afterward.
func (l *LoD) Destroy() {
	unregister(l.id)
	l.vertsWorld = nil
	l.vertsSnapped = nil
	l.tris = nil
}

// CurrentLevel returns the level the handle is currently displaying.
func (l *LoD) CurrentLevel() int { return l.currLevel }

// MaxPopLevel returns the largest level for which a POP representation
// was cached; levels above it fall back to the full, unquantized mesh.
func (l *LoD) MaxPopLevel() int { return l.maxPopLevel }

// BBox returns the original mesh's world-space bounding box.
func (l *LoD) BBox() (min, max d3.Vec3) { return l.bboxMin, l.bboxMax }

// TriCount returns the number of triangles currently loaded at the
// handle's current level.
func (l *LoD) TriCount() int { return len(l.tris) / 3 }

// inPOPRegime reports whether level ℓ belongs to the quantized POP
// representation (ℓ ≤ maxPopLevel) rather than the full, unquantized
// mesh.
func (l *LoD) inPOPRegime(lvl int) bool { return lvl <= l.maxPopLevel }

// GetLevel chooses the coarsest level whose bucket diagonal falls below
// a view-relative threshold, for the given view size.
func (l *LoD) GetLevel(viewSize float32) int {
	qmin, qmax := l.quantizer.QMin(), l.quantizer.QMax()
	bdiag := float32(math.Sqrt(float64(
		sqr(qmax[0]-qmin[0]) + sqr(qmax[1]-qmin[1]) + sqr(qmax[2]-qmin[2]))))
	delta := 0.01 * viewSize
	for lvl := 0; lvl < NumLevels; lvl++ {
		if bdiag/float32(uint32(1)<<uint(lvl)) < delta {
			return lvl
		}
	}
	return NumLevels - 1
}

func sqr(v float32) float32 { return v * v }

// View computes a target level from viewSize and scaleOffset, transitions
// to it, and returns the resulting level, or -1 on failure.
func (l *LoD) View(ctx *Context, viewSize float32, scaleOffset int) int {
	lvl := clampInt(l.GetLevel(viewSize)+scaleOffset, 0, NumLevels-1)
	if err := l.SetLevel(ctx, lvl); err != nil {
		return -1
	}
	return lvl
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetLevel is the central state machine: it transitions the handle from
// its current level to target, loading or discarding runtime buffers as
// needed, and re-snapping whenever the post-transition regime is POP.
//
// A target equal to the current level is a no-op.
func (l *LoD) SetLevel(ctx *Context, target int) error {
	target = clampInt(target, 0, NumLevels-1)
	c := l.currLevel
	if c == target {
		return nil
	}

	before := ctx.AccumulatedTime(TimerSetLevel)
	ctx.StartTimer(TimerSetLevel)
	defer func() {
		ctx.StopTimer(TimerSetLevel)
		ctx.Progressf("set_level(%d): %s", target, ctx.AccumulatedTime(TimerSetLevel)-before)
	}()

	M := l.maxPopLevel

	switch {
	case c < 0 && target <= M:
		// Construction: Full-regime "nothing loaded yet" behaves like
		// Full→POP (load from scratch up to target).
		fallthrough
	case c > M && target <= M:
		// Full→POP.
		l.vertsWorld = nil
		l.tris = nil
		l.levelVertCount = [NumLevels]int{}
		l.levelTriCount = [NumLevels]int{}
		if err := l.loadLevels(0, target); err != nil {
			ctx.Errorf("set_level(%d): %s", target, StatusFromErr(err))
			return err
		}
		l.resnap(target)

	case c >= 0 && c <= M && target > c && target <= M:
		// POP→POP up: load the new range and append.
		if err := l.loadLevels(c+1, target); err != nil {
			ctx.Errorf("set_level(%d): %s", target, StatusFromErr(err))
			return err
		}
		l.resnap(target)

	case c >= 0 && c <= M && target < c:
		// POP→POP down: truncate to the prefix for levels [0, target].
		l.truncateTo(target)
		l.resnap(target)

	case c >= 0 && c <= M && target > M:
		// POP→Full.
		verts, err := l.reader.readAllVerts()
		if err != nil {
			ctx.Errorf("set_level(%d): %s", target, StatusFromErr(err))
			return err
		}
		faces, err := l.reader.readAllFaces()
		if err != nil {
			ctx.Errorf("set_level(%d): %s", target, StatusFromErr(err))
			return err
		}
		l.vertsWorld = verts
		l.tris = faces
		l.vertsSnapped = nil
		l.levelVertCount = [NumLevels]int{}
		l.levelTriCount = [NumLevels]int{}

	case c > M && target > M:
		// Full→Full: already holding the entire original mesh, so moving
		// between two Full-regime levels is bookkeeping only.

	default:
		// c < 0 && target > M: construction straight into Full regime.
		verts, err := l.reader.readAllVerts()
		if err != nil {
			ctx.Errorf("set_level(%d): %s", target, StatusFromErr(err))
			return err
		}
		faces, err := l.reader.readAllFaces()
		if err != nil {
			ctx.Errorf("set_level(%d): %s", target, StatusFromErr(err))
			return err
		}
		l.vertsWorld = verts
		l.tris = faces
		l.vertsSnapped = nil
	}

	l.currLevel = target
	return nil
}

// loadLevels appends vertex and triangle data for levels [from, to] to
// the handle's running buffers. Triangle indices are appended as stored,
// since they already point into the cumulative vertsWorld slice.
func (l *LoD) loadLevels(from, to int) error {
	// Triangle indices on disk are already expressed in the global,
	// level-respecting reorder space, and vertsWorld is always built by
	// loading levels strictly from 0 upward, so they index directly into
	// vertsWorld with no translation.
	for lvl := from; lvl <= to; lvl++ {
		verts, err := l.reader.readVertLevel(lvl)
		if err != nil {
			return err
		}
		l.vertsWorld = append(l.vertsWorld, verts...)
		l.levelVertCount[lvl] = len(verts)

		tris, err := l.reader.readTriLevel(lvl)
		if err != nil {
			return err
		}
		for _, t := range tris {
			l.tris = append(l.tris, t[0], t[1], t[2])
		}
		l.levelTriCount[lvl] = len(tris)
	}
	return nil
}

// truncateTo discards any vertex/triangle data loaded for levels beyond
// target.
func (l *LoD) truncateTo(target int) {
	vcnt, tcnt := 0, 0
	for lvl := 0; lvl <= target; lvl++ {
		vcnt += l.levelVertCount[lvl]
		tcnt += l.levelTriCount[lvl]
	}
	assert.True(vcnt <= len(l.vertsWorld), "truncateTo(%d): vcnt %d exceeds loaded verts %d", target, vcnt, len(l.vertsWorld))
	l.vertsWorld = l.vertsWorld[:vcnt]
	l.tris = l.tris[:tcnt*3]
	for lvl := target + 1; lvl < NumLevels; lvl++ {
		l.levelVertCount[lvl] = 0
		l.levelTriCount[lvl] = 0
	}
}

// resnap recomputes vertsSnapped from vertsWorld at level lvl.
func (l *LoD) resnap(lvl int) {
	l.vertsSnapped = make([]d3.Vec3, len(l.vertsWorld))
	for i, v := range l.vertsWorld {
		l.vertsSnapped[i] = l.quantizer.Snap(v, lvl)
	}
}
