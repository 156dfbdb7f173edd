package ops

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/mdbind/internal/epub"
	"github.com/hpungsan/mdbind/internal/errors"
)

// ValidateInput contains parameters for the Validate operation.
type ValidateInput struct {
	Path string // required, path to an .epub file
}

// ValidateOutput contains the result of the Validate operation.
// A structurally invalid archive is a successful call with Valid false.
type ValidateOutput struct {
	Path      string               `json:"path"`
	Valid     bool                 `json:"valid"`
	Reason    epub.FailureReason   `json:"reason,omitempty"`
	Message   string               `json:"message"`
	Items     []epub.ContentItem   `json:"items"`
	Checksums []epub.EntryChecksum `json:"checksums,omitempty"`
}

// Validate checks an existing EPUB archive. The content items are read from
// the archive's own package descriptor.
func Validate(input ValidateInput) (*ValidateOutput, error) {
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewInvalidRequest("invalid path: " + err.Error())
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewFilesystem("stat archive", err)
	}
	if info.IsDir() {
		return nil, errors.NewInvalidRequest("path is a directory: " + path)
	}

	result, items := epub.ValidateArchive(abs)
	if items == nil {
		items = []epub.ContentItem{}
	}

	return &ValidateOutput{
		Path:      abs,
		Valid:     result.OK,
		Reason:    result.Reason,
		Message:   result.Message,
		Items:     items,
		Checksums: result.Checksums,
	}, nil
}
