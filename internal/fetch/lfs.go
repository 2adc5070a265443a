package fetch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

const pointerVersionLine = "version https://git-lfs.github.com/spec/v1"

// Pointer files are tiny; anything larger is real content.
const maxPointerSize = 1024

// Pointer is a parsed large-object pointer file.
type Pointer struct {
	Oid  string
	Size int64
}

// ParsePointer reports whether body is an LFS pointer file and, if so,
// its oid and declared size.
func ParsePointer(body []byte) (*Pointer, bool) {
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) < 3 || lines[0] != pointerVersionLine {
		return nil, false
	}

	p := &Pointer{}
	for _, line := range lines[1:] {
		if oid, ok := strings.CutPrefix(line, "oid sha256:"); ok {
			p.Oid = oid
		}
		if sizeStr, ok := strings.CutPrefix(line, "size "); ok {
			size, err := strconv.ParseInt(sizeStr, 10, 64)
			if err != nil {
				return nil, false
			}
			p.Size = size
		}
	}

	if len(p.Oid) != 64 || p.Size < 0 {
		return nil, false
	}
	return p, true
}

// resolvePointers replaces every pointer file under dir with its
// downloaded content. Returns the number of pointer files replaced.
func (f *Fetcher) resolvePointers(dir string) (int, error) {
	pointers := map[string]*Pointer{}
	oids := mapset.NewSet[string]()

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxPointerSize {
			return nil
		}

		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if p, ok := ParsePointer(body); ok {
			pointers[path] = p
			oids.Add(p.Oid)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan worktree for lfs pointers: %w", err)
	}

	if len(pointers) == 0 {
		return 0, nil
	}

	// Objects already scheduled (per-object override URLs) keep their
	// source; the base endpoint only covers the rest.
	var schedErr error
	unresolvable := 0
	oids.Each(func(oid string) bool {
		if f.store.IsScheduled(oid) {
			return false
		}
		if f.mediaBaseUrl == "" {
			unresolvable++
			return false
		}
		if err := f.store.Schedule(oid, f.mediaUrl(oid)); err != nil {
			schedErr = fmt.Errorf("failed to schedule object %s: %w", oid, err)
			return true
		}
		return false
	})
	if schedErr != nil {
		return 0, schedErr
	}
	if unresolvable > 0 {
		return 0, fmt.Errorf("worktree has %d lfs objects but no media endpoint is configured", unresolvable)
	}

	for path, p := range pointers {
		body, err := f.store.Await(p.Oid)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve pointer %s: %w", path, err)
		}
		if int64(len(body)) != p.Size {
			return 0, fmt.Errorf("object %s has size %d, pointer %s declares %d", p.Oid, len(body), path, p.Size)
		}
		if err := os.WriteFile(path, body, 0644); err != nil {
			return 0, fmt.Errorf("failed to replace pointer %s: %w", path, err)
		}
	}

	return len(pointers), nil
}

func (f *Fetcher) mediaUrl(oid string) string {
	return strings.TrimSuffix(f.mediaBaseUrl, "/") + "/" + oid
}
