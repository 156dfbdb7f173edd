package ops

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/mdbind/internal/db"
	"github.com/hpungsan/mdbind/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	OlderThanDays *int // optional, only purge builds created before (now - N days); nil purges all
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes build history records. Archives on disk are untouched.
func Purge(database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	// Everything created up to now, including this second
	cutoff := time.Now().Unix() + 1
	if input.OlderThanDays != nil {
		if *input.OlderThanDays < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must not be negative")
		}
		cutoff = time.Now().AddDate(0, 0, -*input.OlderThanDays).Unix()
	}

	count, err := db.PurgeBuilds(database, cutoff)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		return "No build records to purge"
	}

	word := "build record"
	if count > 1 {
		word = "build records"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)

	if olderThanDays != nil {
		msg += fmt.Sprintf(" (older than %d days)", *olderThanDays)
	}

	return msg
}
