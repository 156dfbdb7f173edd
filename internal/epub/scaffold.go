package epub

import (
	"os"
	"path/filepath"

	"github.com/hpungsan/mdbind/internal/errors"
)

// Fixed package layout.
const (
	MimeType       = "application/epub+zip"
	MarkerName     = "mimetype"
	MetaInfDir     = "META-INF"
	ContainerPath  = "META-INF/container.xml"
	ContentRoot    = "OEBPS"
	DescriptorName = "content.opf"
	DescriptorPath = ContentRoot + "/" + DescriptorName
	Extension      = ".epub"
)

// containerXML points readers at the package descriptor.
const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
    <rootfiles>
        <rootfile full-path="` + DescriptorPath + `" media-type="application/oebps-package+xml"/>
    </rootfiles>
</container>`

// CreateStructure lays down the fixed skeleton under rootDir: META-INF/,
// the content root, the mimetype marker and META-INF/container.xml.
// Existing directories are reused; existing fixed files are rewritten.
func CreateStructure(rootDir string) error {
	for _, dir := range []string{MetaInfDir, ContentRoot} {
		if err := os.MkdirAll(filepath.Join(rootDir, dir), 0o755); err != nil {
			return errors.NewFilesystem("create scaffold directory", err)
		}
	}

	// Exact bytes: no trailing newline, no BOM.
	if err := os.WriteFile(filepath.Join(rootDir, MarkerName), []byte(MimeType), 0o644); err != nil {
		return errors.NewFilesystem("write mimetype", err)
	}

	containerFile := filepath.Join(rootDir, filepath.FromSlash(ContainerPath))
	if err := os.WriteFile(containerFile, []byte(containerXML), 0o644); err != nil {
		return errors.NewFilesystem("write container.xml", err)
	}

	return nil
}

// ContentDir returns the content root directory inside a scaffold.
func ContentDir(rootDir string) string {
	return filepath.Join(rootDir, ContentRoot)
}
