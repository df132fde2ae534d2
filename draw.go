package poplod

import "github.com/arl/gogeo/f32/d3"

// HandleID is a non-owning reference to a live LoD handle, used instead
// of a back-pointer so DrawInfo can refer to its handle without
// introducing a reference cycle between LoD and its own draw buffers.
type HandleID int32

// DrawInfo is handed to the installed DrawCallback on every Draw call. It
// describes exactly the geometry the handle currently holds for its
// current level.
type DrawInfo struct {
	FaceSetCount int32   // unused by this core, always 0.
	FaceSet      []int32 // unused by this core, always nil.

	FaceCount int32 // number of triangles in Triangles.
	Triangles []int32

	PointsOrig []d3.Vec3 // unquantized vertex buffer.
	Points     []d3.Vec3 // buffer the renderer should use: snapped in POP regime, equal to PointsOrig in Full regime.

	FaceNormals, VertexNormals []d3.Vec3 // always nil; this core does not compute normals.

	Mode int32 // opaque pass-through, meaningful only to the callback.

	LoD HandleID // non-owning reference back to the handle that produced this DrawInfo.
}

// DrawCallback is the renderer-supplied function invoked by (*LoD).Draw.
// Its return value is opaque to the core and is returned verbatim from
// Draw.
type DrawCallback func(ctx any, info *DrawInfo) int32

// InstallCallback registers fn as the handle's draw callback, replacing
// any previously installed one.
func (l *LoD) InstallCallback(fn DrawCallback) { l.callback = fn }

// Draw builds a DrawInfo describing the handle's current level and
// invokes the installed callback with it, returning the callback's
// result. Draw panics if no callback has been installed.
func (l *LoD) Draw(drawCtx any, mode int32) int32 {
	info := &DrawInfo{
		FaceCount:  int32(len(l.tris) / 3),
		Triangles:  l.tris,
		PointsOrig: l.vertsWorld,
		Mode:       mode,
		LoD:        l.id,
	}
	if l.inPOPRegime(l.currLevel) {
		info.Points = l.vertsSnapped
	} else {
		info.Points = l.vertsWorld
	}
	return l.callback(drawCtx, info)
}
