package epub

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/hpungsan/mdbind/internal/errors"
)

const (
	opfNamespace = "http://www.idpf.org/2007/opf"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"
	bookIDRef    = "BookId"
)

// opfPackage is the content.opf document. Prefixed names ("dc:title") are
// emitted verbatim by encoding/xml; all values are escaped on marshal.
type opfPackage struct {
	XMLName          xml.Name    `xml:"http://www.idpf.org/2007/opf package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	DC         string        `xml:"xmlns:dc,attr"`
	OPF        string        `xml:"xmlns:opf,attr"`
	Identifier opfIdentifier `xml:"dc:identifier"`
	Title      string        `xml:"dc:title"`
	Creator    string        `xml:"dc:creator"`
	Language   string        `xml:"dc:language"`
	Meta       []opfMeta     `xml:"meta"`
}

type opfIdentifier struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type opfMeta struct {
	Property string `xml:"property,attr"`
	Value    string `xml:",chardata"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfSpine struct {
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// renderDescriptor builds the content.opf bytes for an identity and item list.
func renderDescriptor(id Identity, items []ContentItem, modified string) ([]byte, error) {
	pkg := opfPackage{
		Version:          "3.0",
		UniqueIdentifier: bookIDRef,
		Metadata: opfMetadata{
			DC:         dcNamespace,
			OPF:        opfNamespace,
			Identifier: opfIdentifier{ID: bookIDRef, Value: id.UniqueID},
			Title:      id.Title,
			Creator:    id.Author,
			Language:   id.Language,
			Meta:       []opfMeta{{Property: "dcterms:modified", Value: modified}},
		},
	}

	pkg.Manifest.Items = make([]opfItem, 0, len(items))
	pkg.Spine.ItemRefs = make([]opfItemRef, 0, len(items))
	for _, it := range items {
		pkg.Manifest.Items = append(pkg.Manifest.Items, opfItem{
			ID:        it.ID,
			Href:      it.Href,
			MediaType: it.MediaType,
		})
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfItemRef{IDRef: it.ID})
	}

	body, err := xml.MarshalIndent(pkg, "", "    ")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// GenerateDescriptor writes <rootDir>/OEBPS/content.opf from the registry and
// returns its path. The content root is created if absent. Output differs
// between calls only in the dcterms:modified value, which is kept on the
// builder's Identity.
func (b *Builder) GenerateDescriptor(rootDir string) (string, error) {
	contentDir := ContentDir(rootDir)
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return "", errors.NewFilesystem("create content root", err)
	}

	modified := formatModified(b.now())
	data, err := renderDescriptor(b.identity, b.registry.Items(), modified)
	if err != nil {
		return "", errors.NewInternal(err)
	}

	outPath := filepath.Join(contentDir, DescriptorName)
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", errors.NewFilesystem("write content.opf", err)
	}
	b.identity.Modified = modified
	return outPath, nil
}

// opfManifestDoc is the subset of content.opf needed to read a manifest back.
type opfManifestDoc struct {
	Items []opfItem `xml:"manifest>item"`
}

// ReadManifest parses content.opf bytes and returns the manifest items.
func ReadManifest(data []byte) ([]ContentItem, error) {
	var doc opfManifestDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	items := make([]ContentItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		items = append(items, ContentItem{ID: it.ID, Href: it.Href, MediaType: it.MediaType})
	}
	return items, nil
}
