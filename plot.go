package poplod

import (
	"bufio"
	"fmt"
	"os"

	"github.com/arl/gogeo/f32/d3"
)

// Plot writes a vector-plot file of the geometry currently drawn by l to
// rootPrefix + ".plot", for visual debugging.
//
// The on-disk format is a minimal newline-delimited ASCII polyline
// format (moveto/lineto per triangle edge), the logical equivalent of
// the original's plot3 calls; this repo does not vendor a plot3 writer,
// so this deliberate substitution is consumed only by the CLI's debug
// view and never asserted on by tests.
func (l *LoD) Plot(rootPrefix string) error {
	f, err := os.Create(rootPrefix + ".plot")
	if err != nil {
		return newCacheError(IoError, "creating plot file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	if l.inPOPRegime(l.currLevel) {
		for lvl := 0; lvl <= l.currLevel; lvl++ {
			// Triangles whose pop level is exactly lvl occupy the range
			// [sum(levelTriCount[0:lvl]), sum(levelTriCount[0:lvl+1])) of
			// l.tris, in the order loadLevels appended them.
			start := 0
			for i := 0; i < lvl; i++ {
				start += l.levelTriCount[i]
			}
			count := l.levelTriCount[lvl]
			for i := 0; i < count; i++ {
				t := start + i
				if err := plotTriangle(w, l.vertsSnapped, l.tris[3*t], l.tris[3*t+1], l.tris[3*t+2]); err != nil {
					return err
				}
			}
		}
	} else {
		for t := 0; t < len(l.tris)/3; t++ {
			if err := plotTriangle(w, l.vertsWorld, l.tris[3*t], l.tris[3*t+1], l.tris[3*t+2]); err != nil {
				return err
			}
		}
	}

	if err := w.Flush(); err != nil {
		return newCacheError(IoError, "flushing plot file", err)
	}
	return nil
}

func plotTriangle(w *bufio.Writer, verts []d3.Vec3, i0, i1, i2 int32) error {
	v0, v1, v2 := verts[i0], verts[i1], verts[i2]
	if _, err := fmt.Fprintf(w, "moveto %f %f %f\n", v0[0], v0[1], v0[2]); err != nil {
		return newCacheError(IoError, "writing plot data", err)
	}
	for _, v := range []d3.Vec3{v1, v2, v0} {
		if _, err := fmt.Fprintf(w, "lineto %f %f %f\n", v[0], v[1], v[2]); err != nil {
			return newCacheError(IoError, "writing plot data", err)
		}
	}
	return nil
}
