package record

// Status is the outcome of a build.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Build is one recorded run of the EPUB pipeline.
type Build struct {
	// ID is a ULID that uniquely identifies this build
	ID string `json:"id"`

	// Title is the dc:title the package was built with
	Title string `json:"title"`

	// Author is the dc:creator the package was built with
	Author string `json:"author"`

	// Language is the canonical dc:language tag
	Language string `json:"language"`

	// UniqueID is the urn:uuid book identifier, empty if the build failed
	// before an identity was assigned
	UniqueID string `json:"unique_id,omitempty"`

	// InputDir is the absolute Markdown source directory
	InputDir string `json:"input_dir"`

	// ArchivePath is the absolute path of the produced .epub (nullable)
	ArchivePath *string `json:"archive_path,omitempty"`

	// ItemCount is the number of manifest items
	ItemCount int `json:"item_count"`

	Status Status `json:"status"`

	// ErrorCode is the BindError code of a failed build (nullable)
	ErrorCode *string `json:"error_code,omitempty"`

	// Message is the human-readable outcome
	Message string `json:"message"`

	// DurationMS is the wall time of the build in milliseconds
	DurationMS int64 `json:"duration_ms"`

	// CreatedAt is the Unix timestamp when the build started
	CreatedAt int64 `json:"created_at"`
}

// Entry is the checksum of one member of a produced archive.
type Entry struct {
	// Position is the zero-based order of the member in the archive
	Position int    `json:"position"`
	Name     string `json:"name"`

	// Method is the zip compression method (0 stored, 8 deflate)
	Method uint16 `json:"method"`
	Size   uint64 `json:"size"`
	SHA256 string `json:"sha256"`
}
