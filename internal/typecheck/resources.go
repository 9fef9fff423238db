package typecheck

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
)

// LoadResources materializes the bytes of every resource that declares a
// source, relative to baseDir. FromDisk paths that name a regular file are
// read directly; paths that name a directory are zipped deterministically.
// Inline sources are UTF-8 encoded as-is. I/O failure produces an Error
// diagnostic carrying the resource's defining span; resources with no
// source are left with nil Data (a runtime-supplied input).
func LoadResources(g *graph.Graph, baseDir string, bag *diagnostics.Bag) {
	for _, id := range g.ResourceIDs() {
		res := g.Resources[id]
		switch res.Source {
		case graph.ResourceSourceInline:
			res.Data = []byte(res.Inline)
		case graph.ResourceSourceFromDisk:
			data, err := loadFromDisk(filepath.Join(baseDir, res.Path))
			if err != nil {
				bag.Errorf(&diagnostics.Label{TargetID: id, Message: "declared here"},
					"resource %q: %v", res.Name, err)
				continue
			}
			res.Data = data
		case graph.ResourceSourceNone:
			// runtime-supplied input; nothing to materialize.
		}
	}
}

func loadFromDisk(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if info.IsDir() {
		return zipDirectory(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, nil
}

// zipDirectory produces a deterministic ZIP archive of dir's contents:
// entries are visited in sorted relative-path order and stored uncompressed
// (zip.Store) so byte-identical input trees always produce byte-identical
// archives.
func zipDirectory(dir string) ([]byte, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, rel := range paths {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   filepath.ToSlash(rel),
			Method: zip.Store,
		})
		if err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", rel, err)
		}
		f, err := os.Open(filepath.Join(dir, rel))
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", rel, err)
		}
		_, copyErr := io.Copy(w, f)
		closeErr := f.Close()
		if copyErr != nil {
			return nil, fmt.Errorf("writing %s into zip: %w", rel, copyErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("closing %s: %w", rel, closeErr)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing zip: %w", err)
	}
	return buf.Bytes(), nil
}
