package epub

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// DefaultMediaType is used for items added without an explicit media type.
const DefaultMediaType = "application/xhtml+xml"

// ContentItem is one entry in the package manifest and reading order.
type ContentItem struct {
	// ID is the manifest id ("item_1", "item_2", ...)
	ID string `json:"id"`

	// Href is the path relative to the content root, forward-slash separated
	Href string `json:"href"`

	// MediaType is the item's MIME type
	MediaType string `json:"media_type"`
}

// Registry is the ordered, append-only list of content items for one build.
// Insertion order is both manifest order and spine order.
type Registry struct {
	items []ContentItem
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends an item and returns it with its assigned id.
// The backing file is not checked here; Pack verifies it.
func (r *Registry) Add(href, mediaType string) ContentItem {
	if mediaType == "" {
		mediaType = DefaultMediaType
	}
	item := ContentItem{
		ID:        fmt.Sprintf("item_%d", len(r.items)+1),
		Href:      filepath.ToSlash(href),
		MediaType: mediaType,
	}
	r.items = append(r.items, item)
	return item
}

// Items returns a copy of the registered items in insertion order.
func (r *Registry) Items() []ContentItem {
	out := make([]ContentItem, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of registered items.
func (r *Registry) Len() int {
	return len(r.items)
}

// mediaTypes maps lowercase file extensions to EPUB core media types.
var mediaTypes = map[string]string{
	".xhtml": "application/xhtml+xml",
	".html":  "application/xhtml+xml",
	".htm":   "application/xhtml+xml",
	".css":   "text/css",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".ncx":   "application/x-dtbncx+xml",
	".js":    "application/javascript",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// MediaTypeFor guesses the media type from an href's extension.
// Unknown extensions return "application/octet-stream".
func MediaTypeFor(href string) string {
	if mt, ok := mediaTypes[strings.ToLower(path.Ext(href))]; ok {
		return mt
	}
	return "application/octet-stream"
}
