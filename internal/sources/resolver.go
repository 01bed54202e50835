// Package sources expands the file groups of a target into the flat
// list of images to resize.
package sources

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/giobyte8/picturefill/internal/models"
)

// AllowedExtensions lists the accepted image extensions, lower case and
// without the leading dot.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif"}

// SourceFile is one image to resize, together with the directory its
// variants are written to.
type SourceFile struct {
	Path           string
	DestinationDir string
}

// Resolve expands every src entry of groups. Plain paths and glob
// patterns are both accepted; directories are walked recursively.
//
// Resolution is best effort: missing paths and files with a disallowed
// extension are logged and skipped.
func Resolve(groups []models.FileGroup) []SourceFile {
	var files []SourceFile
	seen := make(map[SourceFile]struct{})

	add := func(path, dest string) {
		sf := SourceFile{Path: path, DestinationDir: dest}
		if _, ok := seen[sf]; ok {
			return
		}
		seen[sf] = struct{}{}
		files = append(files, sf)
	}

	for _, group := range groups {
		for _, entry := range group.Src {
			for _, path := range expand(entry) {
				info, err := os.Stat(path)
				if err != nil {
					slog.Warn("Source file not found", "path", path)
					continue
				}

				if !info.IsDir() {
					if CheckFile(path) {
						add(path, group.Dest)
					}
					continue
				}

				walkDir(path, map[string]bool{}, func(filePath string) {
					add(filePath, group.Dest)
				})
			}
		}
	}

	return files
}

// expand resolves entry as a glob pattern. Entries that are not patterns,
// or patterns matching nothing, are returned unchanged so the caller's
// existence check reports them.
func expand(entry string) []string {
	if !hasMeta(entry) {
		return []string{entry}
	}

	matches, err := filepath.Glob(entry)
	if err != nil {
		slog.Warn("Invalid source pattern", "pattern", entry, "error", err)
		return nil
	}
	if len(matches) == 0 {
		return []string{entry}
	}
	return matches
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, `*?[\`)
}

// walkDir visits the files under root. Symlinks are followed; visited
// holds the real path of every directory walked so far, which stops
// link cycles.
func walkDir(root string, visited map[string]bool, visit func(path string)) {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		slog.Warn("Failed to resolve source directory", "path", root, "error", err)
		return
	}
	if visited[realRoot] {
		slog.Debug("Source directory already walked", "path", root, "target", realRoot)
		return
	}
	visited[realRoot] = true

	// Walk the resolved directory and report paths under the requested root
	err = filepath.WalkDir(realRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Failed to read source entry", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(realRoot, path)
		if err != nil {
			return nil
		}
		shown := filepath.Join(root, rel)

		if d.IsDir() {
			if path != realRoot {
				visited[path] = true
			}
			return nil
		}

		mode := d.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				slog.Warn("Broken symlink in source directory", "path", shown, "error", err)
				return nil
			}
			if info.IsDir() {
				walkDir(shown, visited, visit)
				return nil
			}
			mode = info.Mode()
		}

		if mode.IsRegular() && CheckFile(shown) {
			visit(shown)
		}
		return nil
	})
	if err != nil {
		slog.Warn("Failed to walk source directory", "path", root, "error", err)
	}
}

// CheckFile reports whether path has one of the AllowedExtensions.
// Rejected files are logged.
func CheckFile(path string) bool {
	if AllowedExt(path) {
		return true
	}

	slog.Error("File doesn't match the required file types", "path", path)
	return false
}

// AllowedExt reports whether the extension of path is in
// AllowedExtensions, ignoring case.
func AllowedExt(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return slices.Contains(AllowedExtensions, strings.ToLower(ext))
}
