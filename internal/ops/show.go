package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/mdbind/internal/db"
	"github.com/hpungsan/mdbind/internal/errors"
	"github.com/hpungsan/mdbind/internal/record"
)

// ShowInput contains parameters for the Show operation.
type ShowInput struct {
	ID string // required
}

// ShowOutput is one build with the checksums of its archive entries.
type ShowOutput struct {
	record.Build
	Entries []record.Entry `json:"entries"`
}

// Show retrieves a recorded build by id.
func Show(database *sql.DB, input ShowInput) (*ShowOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	b, err := db.GetBuild(database, id)
	if err != nil {
		return nil, err
	}

	entries, err := db.ListEntries(database, b.ID)
	if err != nil {
		return nil, err
	}

	return &ShowOutput{Build: *b, Entries: entries}, nil
}
