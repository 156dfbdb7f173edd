package ops

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/mdbind/internal/db"
	"github.com/hpungsan/mdbind/internal/errors"
	"github.com/hpungsan/mdbind/internal/record"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
	Status string // optional: "succeeded" or "failed"
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []record.Build `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sort       string         `json:"sort"`
}

// History lists recorded builds, newest first, with pagination.
func History(database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	status := record.Status(strings.ToLower(strings.TrimSpace(input.Status)))
	if status != "" && !status.Valid() {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("status must be one of: %s, %s", record.StatusSucceeded, record.StatusFailed))
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	offset := max(input.Offset, 0)

	builds, total, err := db.ListBuilds(database, db.ListFilter{Status: status}, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if builds == nil {
		builds = []record.Build{}
	}

	return &HistoryOutput{
		Items: builds,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(builds) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
