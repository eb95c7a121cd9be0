// Package pkginfo looks up the package metadata that file scopes are
// tagged with.
package pkginfo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/Zhangdroid/vanilla-extract/internal/errors"
)

// Info describes the package owning a style source file.
type Info struct {
	// Name is the package name from package.json.
	Name string

	// Dir is the directory containing package.json.
	Dir string
}

// Lookup finds the nearest package.json at or above dir.
// Results are cached per directory for the lifetime of the process.
func Lookup(dir string) (Info, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Info{}, err
	}

	if info, ok := cacheGet(abs); ok {
		return info, nil
	}

	info, err := find(abs)
	if err != nil {
		return Info{}, err
	}

	cachePut(abs, info)
	return info, nil
}

func find(dir string) (Info, error) {
	for current := dir; ; {
		manifest := filepath.Join(current, "package.json")
		data, err := os.ReadFile(manifest)
		if err == nil {
			var pkg struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(data, &pkg); err == nil && pkg.Name != "" {
				return Info{Name: pkg.Name, Dir: current}, nil
			}
			// Nameless manifests are skipped; keep walking up.
		} else if !os.IsNotExist(err) {
			return Info{}, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return Info{}, errors.New("E303").WithDetail("searched upward from " + dir)
		}
		current = parent
	}
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]Info)
)

func cacheGet(dir string) (Info, bool) {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	info, ok := cache[dir]
	return info, ok
}

func cachePut(dir string, info Info) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache[dir] = info
}

// ResetCache clears the lookup cache. Intended for tests.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]Info)
}
