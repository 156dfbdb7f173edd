package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/mdbind/internal/epub"
	"github.com/hpungsan/mdbind/internal/errors"
)

// ValidateScaffoldDir checks that scaffoldDir is safe to wipe and recreate.
// All paths must be absolute and cleaned. It rejects:
// 1. The filesystem root, the home directory, and the working directory
// 2. Any directory that is or contains the input directory (sources would be deleted)
// 3. Any directory that is or contains the output directory (the archive would be deleted
// together with the scaffold)
// 4. An existing path that is not a directory, or a directory holding anything
// besides the scaffold layout (mimetype, META-INF/, OEBPS/)
func ValidateScaffoldDir(scaffoldDir, inputDir, outputDir string) error {
	if scaffoldDir == "" {
		return errors.NewInvalidRequest("scaffold directory is required")
	}

	if filepath.Dir(scaffoldDir) == scaffoldDir {
		return errors.NewInvalidRequest("scaffold directory must not be the filesystem root")
	}

	if home, err := os.UserHomeDir(); err == nil && isWithin(home, scaffoldDir) {
		return errors.NewInvalidRequest(fmt.Sprintf("scaffold directory must not contain the home directory: %s", scaffoldDir))
	}
	if wd, err := os.Getwd(); err == nil && isWithin(wd, scaffoldDir) {
		return errors.NewInvalidRequest(fmt.Sprintf("scaffold directory must not contain the working directory: %s", scaffoldDir))
	}

	if isWithin(inputDir, scaffoldDir) {
		return errors.NewInvalidRequest(fmt.Sprintf("scaffold directory %s overlaps the input directory %s", scaffoldDir, inputDir))
	}
	if isWithin(outputDir, scaffoldDir) {
		return errors.NewInvalidRequest(fmt.Sprintf("scaffold directory %s overlaps the output directory %s", scaffoldDir, outputDir))
	}

	return checkScaffoldContents(scaffoldDir)
}

// scaffoldEntries are the only top-level names a reusable scaffold may hold.
var scaffoldEntries = map[string]bool{
	epub.MarkerName:  false,
	epub.MetaInfDir:  true,
	epub.ContentRoot: true,
}

// checkScaffoldContents accepts an absent or empty directory, or one that
// holds only a previous scaffold.
func checkScaffoldContents(scaffoldDir string) error {
	info, err := os.Lstat(scaffoldDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewFilesystem("inspect scaffold directory", err)
	}
	if !info.IsDir() {
		return errors.NewInvalidRequest(fmt.Sprintf("scaffold path is not a directory: %s", scaffoldDir))
	}

	entries, err := os.ReadDir(scaffoldDir)
	if err != nil {
		return errors.NewFilesystem("inspect scaffold directory", err)
	}
	for _, e := range entries {
		wantDir, known := scaffoldEntries[e.Name()]
		if !known || e.IsDir() != wantDir {
			return errors.NewInvalidRequest(fmt.Sprintf("scaffold directory %s holds %s, which is not part of a scaffold; refusing to wipe it", scaffoldDir, e.Name()))
		}
	}
	return nil
}

// isWithin reports whether path equals dir or lies below it.
// Symlinks in existing prefixes are resolved so aliases of the same directory match.
func isWithin(path, dir string) bool {
	path = resolveExisting(path)
	dir = resolveExisting(dir)

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// resolveExisting evaluates symlinks in the longest existing prefix of p.
func resolveExisting(p string) string {
	p = filepath.Clean(p)
	var rest []string
	for {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return filepath.Join(append([]string{p}, rest...)...)
		}
		rest = append([]string{filepath.Base(p)}, rest...)
		p = parent
	}
}
