package epub

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/hpungsan/mdbind/internal/errors"
)

const (
	// DefaultLanguage is the dc:language tag used when none is configured.
	DefaultLanguage = "zh-CN"

	// DefaultAuthor is the dc:creator used when none is given ("anonymous").
	DefaultAuthor = "佚名"

	// modifiedLayout is the dcterms:modified format: UTC, second precision, literal Z.
	modifiedLayout = "2006-01-02T15:04:05Z"
)

// Identity is the package metadata for one book.
// UniqueID is generated once and stays fixed for the builder's lifetime.
// Modified is the dcterms:modified value of the last descriptor written,
// empty until GenerateDescriptor succeeds.
type Identity struct {
	UniqueID string `json:"unique_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Language string `json:"language"`
	Modified string `json:"modified,omitempty"`
}

// Metadata holds caller-supplied book metadata for NewBuilder.
type Metadata struct {
	Title    string
	Author   string
	Language string // BCP 47 tag, default DefaultLanguage
}

// newIdentity validates metadata and assigns a fresh urn:uuid identifier.
func newIdentity(meta Metadata) (Identity, error) {
	title := norm.NFC.String(strings.TrimSpace(meta.Title))
	if title == "" {
		return Identity{}, errors.NewInvalidRequest("title is required")
	}

	author := norm.NFC.String(strings.TrimSpace(meta.Author))
	if author == "" {
		author = DefaultAuthor
	}

	lang, err := CanonicalLanguage(meta.Language)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		UniqueID: "urn:uuid:" + uuid.NewString(),
		Title:    title,
		Author:   author,
		Language: lang,
	}, nil
}

// CanonicalLanguage parses a BCP 47 tag and returns its canonical form.
// An empty tag yields DefaultLanguage.
func CanonicalLanguage(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = DefaultLanguage
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid language tag %q: %v", tag, err))
	}
	return t.String(), nil
}

// formatModified renders t as a dcterms:modified value.
func formatModified(t time.Time) string {
	return t.UTC().Format(modifiedLayout)
}
