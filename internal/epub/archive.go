package epub

import (
	"archive/zip"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/mdbind/internal/errors"
)

// illegalNameChars are replaced with '_' in archive file names.
const illegalNameChars = `<>:"/\|?*`

// SanitizeArchiveName replaces characters that are illegal in file names
// with '_' and appends ".epub" unless the name already ends with it
// (case-insensitive).
func SanitizeArchiveName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalNameChars, r) {
			return '_'
		}
		return r
	}, name)

	if !strings.HasSuffix(strings.ToLower(name), Extension) {
		name += Extension
	}
	return name
}

// Pack serializes scaffoldDir into an EPUB archive in outputDir and validates it.
// archiveName defaults to "<title>.epub". Every registered item must exist under
// the content root before anything is written. The archive is written to a
// temporary file in outputDir and renamed into place only after it validates;
// on any failure the temporary file is deleted, an existing file at the
// destination is left alone, and a failed validation returns INVALID_ARCHIVE.
// The scaffold is never modified.
func (b *Builder) Pack(scaffoldDir, outputDir, archiveName string) (string, error) {
	if missing := b.missingContent(scaffoldDir); len(missing) > 0 {
		return "", errors.NewMissingContentFile(missing)
	}

	if archiveName == "" {
		archiveName = b.identity.Title + Extension
	}
	archiveName = SanitizeArchiveName(archiveName)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errors.NewFilesystem("create output directory", err)
	}
	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", errors.NewFilesystem("resolve output directory", err)
	}
	archivePath := filepath.Join(absOutputDir, archiveName)

	// Write next to the destination and rename after validation so an
	// existing path is only ever replaced by a validated archive.
	tmp, err := os.CreateTemp(absOutputDir, "."+archiveName+".*.tmp")
	if err != nil {
		return "", errors.NewFilesystem("create archive", err)
	}
	tempPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if err := writeArchive(tmp, scaffoldDir, tempPath, archiveName); err != nil {
		return "", err
	}

	result := b.validate(tempPath, b.registry.Items())
	b.lastResult = &result
	if !result.OK {
		return "", errors.NewInvalidArchive(string(result.Reason), result.Message)
	}

	if info, err := os.Lstat(archivePath); err == nil && info.IsDir() {
		return "", errors.NewFilesystem("finalize archive", fmt.Errorf("%s is a directory", archivePath))
	}
	if err := os.Rename(tempPath, archivePath); err != nil {
		return "", errors.NewFilesystem("finalize archive", err)
	}

	success = true
	return archivePath, nil
}

// missingContent returns the hrefs whose backing files are absent under the content root.
func (b *Builder) missingContent(scaffoldDir string) []string {
	contentDir := ContentDir(scaffoldDir)
	var missing []string
	for _, item := range b.registry.Items() {
		info, err := os.Stat(filepath.Join(contentDir, filepath.FromSlash(item.Href)))
		if err != nil || info.IsDir() {
			missing = append(missing, item.Href)
		}
	}
	return missing
}

// writeArchive writes the marker entry first (stored) and then every other
// file under scaffoldDir (deflated) with slash-separated relative names.
// file is closed on return; archivePath is its path and is never packed.
func writeArchive(file *os.File, scaffoldDir, archivePath, archiveName string) (err error) {
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = errors.NewFilesystem("close archive", closeErr)
		}
	}()

	if err := file.Chmod(0o644); err != nil {
		return errors.NewFilesystem("create archive", err)
	}

	zw := zip.NewWriter(file)
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = errors.NewFilesystem("finalize archive", closeErr)
		}
	}()

	if err := writeMarker(zw, scaffoldDir); err != nil {
		return err
	}

	walkErr := filepath.WalkDir(scaffoldDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(scaffoldDir, path)
		if relErr != nil {
			return relErr
		}
		name := filepath.ToSlash(relPath)

		// Marker already written; never pack the archive into itself.
		if name == MarkerName || d.Name() == archiveName {
			return nil
		}
		if absPath, absErr := filepath.Abs(path); absErr == nil && absPath == archivePath {
			return nil
		}

		return addFile(zw, path, name)
	})
	if walkErr != nil {
		if errors.Is(walkErr, errors.ErrFilesystem) {
			return walkErr
		}
		return errors.NewFilesystem("archive scaffold", walkErr)
	}

	return nil
}

// writeMarker writes the mimetype entry uncompressed and without a data descriptor.
func writeMarker(zw *zip.Writer, scaffoldDir string) error {
	data, err := os.ReadFile(filepath.Join(scaffoldDir, MarkerName))
	if err != nil {
		return errors.NewFilesystem("read mimetype", err)
	}

	header := &zip.FileHeader{
		Name:               MarkerName,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	}
	w, err := zw.CreateRaw(header)
	if err != nil {
		return errors.NewFilesystem("create mimetype entry", err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.NewFilesystem("write mimetype entry", err)
	}
	return nil
}

// addFile copies one scaffold file into the archive using Deflate.
func addFile(zw *zip.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
