// Package epub assembles and verifies EPUB 3 containers.
//
// A Builder owns one content registry and one package identity for exactly
// one book. The build steps must run in order, each one's output being the
// next one's input:
//
//	b, _ := epub.NewBuilder(epub.Metadata{Title: "Notes"})
//	_ = epub.CreateStructure(scaffold)
//	// ... write XHTML files under scaffold/OEBPS ...
//	b.AddItem("chap1.xhtml", "")
//	_, _ = b.GenerateDescriptor(scaffold)
//	path, err := b.Pack(scaffold, outDir, "")
//
// Builders are not safe for concurrent use. Parallel builds need separate
// builders and separate scaffold directories.
package epub

import "time"

// Builder assembles one EPUB package.
type Builder struct {
	identity Identity
	registry *Registry

	now      func() time.Time
	validate func(string, []ContentItem) Result

	lastResult *Result
}

// NewBuilder creates a builder with a freshly generated unique identifier.
func NewBuilder(meta Metadata) (*Builder, error) {
	id, err := newIdentity(meta)
	if err != nil {
		return nil, err
	}
	return &Builder{
		identity: id,
		registry: NewRegistry(),
		now:      time.Now,
		validate: Validate,
	}, nil
}

// Identity returns the package identity.
func (b *Builder) Identity() Identity {
	return b.identity
}

// AddItem registers a content file (relative to the content root) and returns its id.
// An empty mediaType means DefaultMediaType.
func (b *Builder) AddItem(href, mediaType string) string {
	return b.registry.Add(href, mediaType).ID
}

// Items returns the registered items in reading order.
func (b *Builder) Items() []ContentItem {
	return b.registry.Items()
}

// CreateStructure creates the scaffold skeleton under rootDir.
func (b *Builder) CreateStructure(rootDir string) error {
	return CreateStructure(rootDir)
}

// Validate checks archivePath against this builder's registry.
func (b *Builder) Validate(archivePath string) Result {
	return b.validate(archivePath, b.registry.Items())
}

// LastResult returns the validation result of the most recent Pack that
// reached validation, or nil.
func (b *Builder) LastResult() *Result {
	return b.lastResult
}
