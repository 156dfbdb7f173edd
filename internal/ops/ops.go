package ops

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
)

// Pagination limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Build defaults
const (
	DefaultInputDir    = "markdown"
	DefaultScaffoldDir = ".epub_temp"

	// UntitledBook is the title used when the input directory name carries no meaning.
	UntitledBook = "未命名书籍"
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// loggerOrDiscard returns l, or a logger that writes nowhere.
func loggerOrDiscard(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.New(io.Discard)
}
