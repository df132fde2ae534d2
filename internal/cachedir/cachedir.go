// Package cachedir resolves and creates the on-disk root directory POP
// caches are stored under, the Go analogue of bg_dir(..., BU_DIR_CACHE,
// POP_CACHEDIR, ...) in the original BRL-CAD source.
package cachedir

import (
	"os"
	"path/filepath"
)

// subdir is the fixed subfolder name every cache entry lives under,
// carried over from the original's ".POPLoD".
const subdir = "poplod"

// Root returns the directory all POP cache entries are stored under,
// creating it (and any missing parents) if necessary.
func Root() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	root := filepath.Join(base, subdir)
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", err
	}
	return root, nil
}

// EntryPath returns the path a cache entry keyed by hash lives at, under
// Root(). It does not create the directory.
func EntryPath(hash uint64) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, hashName(hash)), nil
}

// Exists reports whether a cache entry keyed by hash already exists on
// disk.
func Exists(hash uint64) (bool, error) {
	path, err := EntryPath(hash)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func hashName(hash uint64) string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = hexDigits[hash&0xf]
		hash >>= 4
	}
	return string(b)
}
