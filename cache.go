package poplod

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	assert "github.com/arl/assertgo"
	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/go-poplod/internal/cachedir"
	"github.com/cespare/xxhash/v2"
)

// formatMarker is the on-disk format version this package writes and is
// willing to read. Bumped from the original's "1" to "2" to widen the
// all_verts/all_faces counts from a platform usize to a portable uint64.
const formatMarker = 2

// hashMesh computes the content hash a mesh's cache entry is keyed by: a
// single xxhash.Sum64 digest streamed over the vertex bytes followed by
// the triangle-index bytes, in that order.
func hashMesh(verts []d3.Vec3, faces []int32) uint64 {
	h := xxhash.New()
	var buf [4]byte
	for _, v := range verts {
		for _, c := range v {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(c))
			h.Write(buf[:])
		}
	}
	for _, idx := range faces {
		binary.LittleEndian.PutUint32(buf[:], uint32(idx))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Cache ensures a characterized, on-disk representation of the mesh
// (verts, faces) exists, building and writing it if absent, and returns
// the content hash callers pass to Init to open it.
//
// If a cache directory already exists for this mesh's hash, Cache trusts
// it is complete and returns immediately without re-running
// Characterize, mirroring the original's short-circuit construction path.
//
// There is no corresponding eviction function: a stale or unwanted entry
// is removed by deleting its directory directly.
func Cache(ctx *Context, verts []d3.Vec3, faces []int32) (uint64, error) {
	hash := hashMesh(verts, faces)

	exists, err := cachedir.Exists(hash)
	if err != nil {
		return 0, newCacheError(IoError, "checking cache existence", err)
	}
	if exists {
		return hash, nil
	}

	c, err := Characterize(ctx, verts, faces)
	if err != nil {
		return 0, err
	}

	ctx.StartTimer(TimerCacheWrite)
	defer ctx.StopTimer(TimerCacheWrite)

	if err := writeCache(hash, c, verts, faces); err != nil {
		return 0, err
	}
	return hash, nil
}

func writeCache(hash uint64, c *Characterization, verts []d3.Vec3, faces []int32) error {
	assert.True(c.TriThreshold >= 0 && c.TriThreshold < NumLevels,
		"tri threshold out of range: %d", c.TriThreshold)

	path, err := cachedir.EntryPath(hash)
	if err != nil {
		return newCacheError(IoError, "resolving cache entry path", err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return newCacheError(IoError, "creating cache entry directory", err)
	}

	if err := writeFormat(path); err != nil {
		return err
	}
	if err := writeMinMax(path, c); err != nil {
		return err
	}

	for lvl := 0; lvl <= c.TriThreshold; lvl++ {
		if len(c.LevelVerts[lvl]) > 0 {
			// LevelVerts[lvl] holds original indices in ascending order,
			// which VertReorder assigns consecutive new indices within a
			// level in that same order, so writing verts[orig] in this
			// order already matches the reordered global index.
			vs := make([]d3.Vec3, len(c.LevelVerts[lvl]))
			for i, orig := range c.LevelVerts[lvl] {
				vs[i] = verts[orig]
			}
			if err := writeVertLevel(path, lvl, vs); err != nil {
				return err
			}
		}
		if len(c.LevelTris[lvl]) > 0 {
			if err := writeTriLevel(path, lvl, c.LevelTris[lvl], faces, c.VertReorder); err != nil {
				return err
			}
		}
	}

	if err := writeAllVerts(path, verts); err != nil {
		return err
	}
	if err := writeAllFaces(path, faces); err != nil {
		return err
	}
	return nil
}

func writeFormat(dir string) error {
	f, err := os.Create(filepath.Join(dir, "format"))
	if err != nil {
		return newCacheError(IoError, "writing format marker", err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n", formatMarker)
	if err != nil {
		return newCacheError(IoError, "writing format marker", err)
	}
	return nil
}

func writeMinMax(dir string, c *Characterization) error {
	f, err := os.Create(filepath.Join(dir, "minmax"))
	if err != nil {
		return newCacheError(IoError, "writing minmax", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fields := []float32{
		c.BBoxMin[0], c.BBoxMin[1], c.BBoxMin[2],
		c.BBoxMax[0], c.BBoxMax[1], c.BBoxMax[2],
		c.Quantizer.QMin()[0], c.Quantizer.QMin()[1], c.Quantizer.QMin()[2],
		c.Quantizer.QMax()[0], c.Quantizer.QMax()[1], c.Quantizer.QMax()[2],
	}
	for _, v := range fields {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return newCacheError(IoError, "writing minmax", err)
		}
	}
	return newCacheErrorIfFlushFails(w)
}

func writeVertLevel(dir string, lvl int, verts []d3.Vec3) error {
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("tri_verts_level_%d", lvl)))
	if err != nil {
		return newCacheError(IoError, "writing vertex level file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, int32(len(verts))); err != nil {
		return newCacheError(IoError, "writing vertex level count", err)
	}
	for _, v := range verts {
		if err := binary.Write(w, binary.LittleEndian, [3]float32{v[0], v[1], v[2]}); err != nil {
			return newCacheError(IoError, "writing vertex level data", err)
		}
	}
	return newCacheErrorIfFlushFails(w)
}

func writeTriLevel(dir string, lvl int, tris []int32, faces []int32, reorder []int32) error {
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("tris_level_%d", lvl)))
	if err != nil {
		return newCacheError(IoError, "writing triangle level file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, int32(len(tris))); err != nil {
		return newCacheError(IoError, "writing triangle level count", err)
	}
	for _, t := range tris {
		idx := [3]int32{
			reorder[faces[3*t+0]],
			reorder[faces[3*t+1]],
			reorder[faces[3*t+2]],
		}
		if err := binary.Write(w, binary.LittleEndian, idx); err != nil {
			return newCacheError(IoError, "writing triangle level data", err)
		}
	}
	return newCacheErrorIfFlushFails(w)
}

func writeAllVerts(dir string, verts []d3.Vec3) error {
	f, err := os.Create(filepath.Join(dir, "all_verts"))
	if err != nil {
		return newCacheError(IoError, "writing all_verts", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(verts))); err != nil {
		return newCacheError(IoError, "writing all_verts count", err)
	}
	for _, v := range verts {
		if err := binary.Write(w, binary.LittleEndian, [3]float32{v[0], v[1], v[2]}); err != nil {
			return newCacheError(IoError, "writing all_verts data", err)
		}
	}
	return newCacheErrorIfFlushFails(w)
}

func writeAllFaces(dir string, faces []int32) error {
	f, err := os.Create(filepath.Join(dir, "all_faces"))
	if err != nil {
		return newCacheError(IoError, "writing all_faces", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fcnt := len(faces) / 3
	if err := binary.Write(w, binary.LittleEndian, uint64(fcnt)); err != nil {
		return newCacheError(IoError, "writing all_faces count", err)
	}
	for i := 0; i < fcnt; i++ {
		idx := [3]int32{faces[3*i+0], faces[3*i+1], faces[3*i+2]}
		if err := binary.Write(w, binary.LittleEndian, idx); err != nil {
			return newCacheError(IoError, "writing all_faces data", err)
		}
	}
	return newCacheErrorIfFlushFails(w)
}

func newCacheErrorIfFlushFails(w *bufio.Writer) error {
	if err := w.Flush(); err != nil {
		return newCacheError(IoError, "flushing cache file", err)
	}
	return nil
}

// cacheReader is an opened hash directory: its path, its parsed minmax
// record and its discovered max pop level. (*LoD).SetLevel reads level
// data through it incrementally.
type cacheReader struct {
	dir string

	bboxMin, bboxMax d3.Vec3
	quantizer        Quantizer
	maxPopLevel      int
}

// openCache validates and opens the cache entry for hash, reading its
// format marker and minmax record. It does not load any level data.
func openCache(hash uint64) (*cacheReader, error) {
	path, err := cachedir.EntryPath(hash)
	if err != nil {
		return nil, newCacheError(IoError, "resolving cache entry path", err)
	}
	exists, err := cachedir.Exists(hash)
	if err != nil {
		return nil, newCacheError(IoError, "checking cache existence", err)
	}
	if !exists {
		return nil, newCacheError(CacheAbsent, fmt.Sprintf("no cache entry for hash %016x", hash), nil)
	}

	if err := checkFormat(path); err != nil {
		return nil, err
	}

	bmin, bmax, qmin, qmax, err := readMinMax(path)
	if err != nil {
		return nil, err
	}

	r := &cacheReader{
		dir:       path,
		bboxMin:   bmin,
		bboxMax:   bmax,
		quantizer: NewQuantizer(qmin, qmax),
	}
	r.maxPopLevel = r.discoverMaxPopLevel()
	return r, nil
}

func checkFormat(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, "format"))
	if err != nil {
		return newCacheError(CacheIncompatible, "reading format marker", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return newCacheError(CacheCorrupt, "parsing format marker", err)
	}
	if v != formatMarker {
		return newCacheError(CacheIncompatible, fmt.Sprintf("unsupported format marker %d", v), nil)
	}
	return nil
}

func readMinMax(dir string) (bmin, bmax, qmin, qmax d3.Vec3, err error) {
	f, oerr := os.Open(filepath.Join(dir, "minmax"))
	if oerr != nil {
		err = newCacheError(CacheCorrupt, "opening minmax", oerr)
		return
	}
	defer f.Close()

	var fields [12]float32
	if rerr := binary.Read(f, binary.LittleEndian, &fields); rerr != nil {
		err = newCacheError(CacheCorrupt, "reading minmax", rerr)
		return
	}
	bmin = d3.NewVec3XYZ(fields[0], fields[1], fields[2])
	bmax = d3.NewVec3XYZ(fields[3], fields[4], fields[5])
	qmin = d3.NewVec3XYZ(fields[6], fields[7], fields[8])
	qmax = d3.NewVec3XYZ(fields[9], fields[10], fields[11])
	return
}

func (r *cacheReader) discoverMaxPopLevel() int {
	max := -1
	for lvl := 0; lvl < NumLevels; lvl++ {
		if _, err := os.Stat(filepath.Join(r.dir, fmt.Sprintf("tris_level_%d", lvl))); err == nil {
			max = lvl
		}
	}
	return max
}

// readVertLevel reads tri_verts_level_ℓ, returning an empty slice if the
// file does not exist (the level has zero entries for this kind).
func (r *cacheReader) readVertLevel(lvl int) ([]d3.Vec3, error) {
	f, err := os.Open(filepath.Join(r.dir, fmt.Sprintf("tri_verts_level_%d", lvl)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, newCacheError(CacheCorrupt, "opening vertex level file", err)
	}
	defer f.Close()
	return readVec3Records(f)
}

// readTriLevel reads tris_level_ℓ, returning an empty slice if the file
// does not exist.
func (r *cacheReader) readTriLevel(lvl int) ([][3]int32, error) {
	f, err := os.Open(filepath.Join(r.dir, fmt.Sprintf("tris_level_%d", lvl)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, newCacheError(CacheCorrupt, "opening triangle level file", err)
	}
	defer f.Close()

	var n int32
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, newCacheError(CacheCorrupt, "reading triangle level count", err)
	}
	out := make([][3]int32, n)
	for i := range out {
		if err := binary.Read(f, binary.LittleEndian, &out[i]); err != nil {
			return nil, newCacheError(CacheCorrupt, "reading triangle level data", err)
		}
	}
	return out, nil
}

func (r *cacheReader) readAllVerts() ([]d3.Vec3, error) {
	f, err := os.Open(filepath.Join(r.dir, "all_verts"))
	if err != nil {
		return nil, newCacheError(CacheCorrupt, "opening all_verts", err)
	}
	defer f.Close()

	var n uint64
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, newCacheError(CacheCorrupt, "reading all_verts count", err)
	}
	out := make([]d3.Vec3, n)
	for i := range out {
		var rec [3]float32
		if err := binary.Read(f, binary.LittleEndian, &rec); err != nil {
			return nil, newCacheError(CacheCorrupt, "reading all_verts data", err)
		}
		out[i] = d3.NewVec3XYZ(rec[0], rec[1], rec[2])
	}
	return out, nil
}

func (r *cacheReader) readAllFaces() ([]int32, error) {
	f, err := os.Open(filepath.Join(r.dir, "all_faces"))
	if err != nil {
		return nil, newCacheError(CacheCorrupt, "opening all_faces", err)
	}
	defer f.Close()

	var n uint64
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, newCacheError(CacheCorrupt, "reading all_faces count", err)
	}
	out := make([]int32, n*3)
	for i := uint64(0); i < n; i++ {
		var rec [3]int32
		if err := binary.Read(f, binary.LittleEndian, &rec); err != nil {
			return nil, newCacheError(CacheCorrupt, "reading all_faces data", err)
		}
		out[3*i+0], out[3*i+1], out[3*i+2] = rec[0], rec[1], rec[2]
	}
	return out, nil
}

func readVec3Records(r io.Reader) ([]d3.Vec3, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, newCacheError(CacheCorrupt, "reading vertex level count", err)
	}
	out := make([]d3.Vec3, n)
	for i := range out {
		var rec [3]float32
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, newCacheError(CacheCorrupt, "reading vertex level data", err)
		}
		out[i] = d3.NewVec3XYZ(rec[0], rec[1], rec[2])
	}
	return out, nil
}
