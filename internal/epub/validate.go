package epub

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// FailureReason classifies why an archive failed validation.
type FailureReason string

const (
	ReasonNone            FailureReason = ""
	ReasonCorrupted       FailureReason = "corrupted"
	ReasonMissingEntry    FailureReason = "missing_entry"
	ReasonMarkerContent   FailureReason = "marker_content"
	ReasonMarkerPlacement FailureReason = "marker_placement"
	ReasonMissingContent  FailureReason = "missing_content"
	ReasonBadDescriptor   FailureReason = "bad_descriptor"
)

// EntryChecksum is the advisory SHA-256 of one archive entry.
type EntryChecksum struct {
	Name   string `json:"name"`
	Method uint16 `json:"method"`
	Size   uint64 `json:"size"`
	SHA256 string `json:"sha256"`
}

// Result is the outcome of Validate.
type Result struct {
	OK        bool            `json:"ok"`
	Reason    FailureReason   `json:"reason,omitempty"`
	Message   string          `json:"message"`
	Checksums []EntryChecksum `json:"checksums,omitempty"`
}

func failure(reason FailureReason, format string, args ...any) Result {
	return Result{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Validate opens archivePath read-only and checks, stopping at the first failure:
// member integrity, presence of the fixed entries, marker content, marker
// placement and compression, and that every item's href exists under the
// content root. Checksums are advisory and never cause a failure.
func Validate(archivePath string, items []ContentItem) Result {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return failure(ReasonCorrupted, "archive corrupted: %v", err)
	}
	defer zr.Close()

	// Reading every member to EOF makes archive/zip verify its CRC.
	checksums := make([]EntryChecksum, 0, len(zr.File))
	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		sum, err := entrySHA256(f)
		if err != nil {
			return failure(ReasonCorrupted, "archive corrupted, first bad entry: %s", f.Name)
		}
		entries[f.Name] = f
		checksums = append(checksums, EntryChecksum{
			Name:   f.Name,
			Method: f.Method,
			Size:   f.UncompressedSize64,
			SHA256: sum,
		})
	}

	for _, required := range []string{MarkerName, ContainerPath, DescriptorPath} {
		if _, ok := entries[required]; !ok {
			return failure(ReasonMissingEntry, "missing required entry: %s", required)
		}
	}

	marker, err := readEntry(entries[MarkerName])
	if err != nil {
		return failure(ReasonCorrupted, "archive corrupted, first bad entry: %s", MarkerName)
	}
	if string(marker) != MimeType {
		return failure(ReasonMarkerContent, "mimetype content is %q, want %q", marker, MimeType)
	}

	first := zr.File[0]
	if first.Name != MarkerName {
		return failure(ReasonMarkerPlacement, "mimetype must be the first entry, found %s", first.Name)
	}
	if first.Method != zip.Store {
		return failure(ReasonMarkerPlacement, "mimetype must be stored uncompressed (method %d)", first.Method)
	}

	for _, item := range items {
		name := ContentRoot + "/" + item.Href
		if _, ok := entries[name]; !ok {
			return failure(ReasonMissingContent, "referenced file not found: %s", name)
		}
	}

	return Result{OK: true, Message: "ok", Checksums: checksums}
}

// ValidateArchive checks an archive whose registry is unknown. The items are
// taken from the archive's own content.opf manifest and returned alongside the
// result. An archive without a descriptor fails on the missing entry.
func ValidateArchive(archivePath string) (Result, []ContentItem) {
	items, err := archiveManifest(archivePath)
	if err != nil {
		return failure(ReasonBadDescriptor, "cannot read %s: %v", DescriptorPath, err), nil
	}
	return Validate(archivePath, items), items
}

// archiveManifest returns the manifest of the archive's content.opf, or nil
// items when the archive cannot be opened or has no descriptor.
func archiveManifest(archivePath string) ([]ContentItem, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, nil
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != DescriptorPath {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, nil
		}
		return ReadManifest(data)
	}
	return nil, nil
}

// entrySHA256 reads f fully and returns its hex SHA-256.
func entrySHA256(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
