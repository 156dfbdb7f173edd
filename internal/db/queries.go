package db

import (
	"database/sql"

	"github.com/hpungsan/mdbind/internal/errors"
	"github.com/hpungsan/mdbind/internal/record"
)

const buildColumns = `
	id, title, author, language, unique_id, input_dir, archive_path,
	item_count, status, error_code, message, duration_ms, created_at
`

// InsertBuild stores a build record together with its archive entries.
// Both are written in one transaction.
func InsertBuild(db *sql.DB, b *record.Build, entries []record.Entry) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.Exec(`INSERT INTO builds (`+buildColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Author, b.Language, nullIfEmpty(b.UniqueID), b.InputDir,
		toNullString(b.ArchivePath), b.ItemCount, string(b.Status), toNullString(b.ErrorCode),
		b.Message, b.DurationMS, b.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	if len(entries) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO build_entries (build_id, position, name, method, size, sha256)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return errors.NewInternal(err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.Exec(b.ID, e.Position, e.Name, e.Method, int64(e.Size), e.SHA256); err != nil {
				return errors.NewInternal(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetBuild retrieves a build by its ULID.
func GetBuild(db *sql.DB, id string) (*record.Build, error) {
	row := db.QueryRow(`SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return b, nil
}

// ListFilter narrows ListBuilds. Zero values match everything.
type ListFilter struct {
	Status record.Status
}

// ListBuilds returns builds newest first, plus the total number of matches
// ignoring limit and offset.
func ListBuilds(db *sql.DB, filter ListFilter, limit, offset int) ([]record.Build, int, error) {
	where := ""
	var args []any
	if filter.Status != "" {
		where = " WHERE status = ?"
		args = append(args, string(filter.Status))
	}

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM builds`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + buildColumns + ` FROM builds` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	builds := []record.Build{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		builds = append(builds, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return builds, total, nil
}

// ListEntries returns the archive entries of a build in archive order.
func ListEntries(db *sql.DB, buildID string) ([]record.Entry, error) {
	rows, err := db.Query(`
		SELECT position, name, method, size, sha256
		FROM build_entries
		WHERE build_id = ?
		ORDER BY position
	`, buildID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := []record.Entry{}
	for rows.Next() {
		var (
			e    record.Entry
			size int64
		)
		if err := rows.Scan(&e.Position, &e.Name, &e.Method, &size, &e.SHA256); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Size = uint64(size)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

// PurgeBuilds permanently deletes builds created before the cutoff
// (Unix seconds) along with their entries. Returns the number of builds removed.
func PurgeBuilds(db *sql.DB, before int64) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`
		DELETE FROM build_entries
		WHERE build_id IN (SELECT id FROM builds WHERE created_at < ?)
	`, before); err != nil {
		return 0, errors.NewInternal(err)
	}

	result, err := tx.Exec(`DELETE FROM builds WHERE created_at < ?`, before)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanBuild scans a single row into a Build struct.
func scanBuild(row rowScanner) (*record.Build, error) {
	var (
		b           record.Build
		uniqueID    sql.NullString
		archivePath sql.NullString
		status      string
		errorCode   sql.NullString
	)

	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Language, &uniqueID, &b.InputDir, &archivePath,
		&b.ItemCount, &status, &errorCode, &b.Message, &b.DurationMS, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.UniqueID = uniqueID.String
	b.ArchivePath = fromNullString(archivePath)
	b.Status = record.Status(status)
	b.ErrorCode = fromNullString(errorCode)

	return &b, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
