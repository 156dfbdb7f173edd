package db

import (
	"database/sql"
	"testing"

	"github.com/hpungsan/mdbind/internal/errors"
	"github.com/hpungsan/mdbind/internal/record"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestBuild creates a succeeded build with default values for testing.
func newTestBuild(id string, createdAt int64) *record.Build {
	path := "/books/" + id + ".epub"
	return &record.Build{
		ID:          id,
		Title:       "Book " + id,
		Author:      "Author",
		Language:    "en",
		UniqueID:    "urn:uuid:00000000-0000-4000-8000-000000000000",
		InputDir:    "/src/markdown",
		ArchivePath: &path,
		ItemCount:   2,
		Status:      record.StatusSucceeded,
		Message:     "ok",
		DurationMS:  12,
		CreatedAt:   createdAt,
	}
}

func stringPtr(s string) *string {
	return &s
}

func TestInsertAndGetBuild(t *testing.T) {
	db := openTestDB(t)

	b := newTestBuild("01BUILD001", 1000)
	entries := []record.Entry{
		{Position: 0, Name: "mimetype", Method: 0, Size: 20, SHA256: "aa"},
		{Position: 1, Name: "META-INF/container.xml", Method: 8, Size: 250, SHA256: "bb"},
	}

	if err := InsertBuild(db, b, entries); err != nil {
		t.Fatalf("InsertBuild failed: %v", err)
	}

	got, err := GetBuild(db, b.ID)
	if err != nil {
		t.Fatalf("GetBuild failed: %v", err)
	}

	if got.Title != b.Title {
		t.Errorf("Title = %q, want %q", got.Title, b.Title)
	}
	if got.UniqueID != b.UniqueID {
		t.Errorf("UniqueID = %q, want %q", got.UniqueID, b.UniqueID)
	}
	if got.ArchivePath == nil || *got.ArchivePath != *b.ArchivePath {
		t.Errorf("ArchivePath = %v, want %q", got.ArchivePath, *b.ArchivePath)
	}
	if got.Status != record.StatusSucceeded {
		t.Errorf("Status = %q, want %q", got.Status, record.StatusSucceeded)
	}
	if got.ErrorCode != nil {
		t.Errorf("ErrorCode = %v, want nil", *got.ErrorCode)
	}
	if got.ItemCount != 2 || got.DurationMS != 12 || got.CreatedAt != 1000 {
		t.Errorf("counters = (%d, %d, %d), want (2, 12, 1000)", got.ItemCount, got.DurationMS, got.CreatedAt)
	}

	gotEntries, err := ListEntries(db, b.ID)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(gotEntries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(gotEntries))
	}
	if gotEntries[0] != entries[0] || gotEntries[1] != entries[1] {
		t.Errorf("entries = %+v, want %+v", gotEntries, entries)
	}
}

func TestInsertBuild_FailedWithoutArchive(t *testing.T) {
	db := openTestDB(t)

	b := newTestBuild("01BUILD002", 1000)
	b.ArchivePath = nil
	b.UniqueID = ""
	b.Status = record.StatusFailed
	b.ErrorCode = stringPtr("NO_CONTENT")
	b.Message = "no markdown files"

	if err := InsertBuild(db, b, nil); err != nil {
		t.Fatalf("InsertBuild failed: %v", err)
	}

	got, err := GetBuild(db, b.ID)
	if err != nil {
		t.Fatalf("GetBuild failed: %v", err)
	}
	if got.ArchivePath != nil {
		t.Errorf("ArchivePath = %q, want nil", *got.ArchivePath)
	}
	if got.UniqueID != "" {
		t.Errorf("UniqueID = %q, want empty", got.UniqueID)
	}
	if got.ErrorCode == nil || *got.ErrorCode != "NO_CONTENT" {
		t.Errorf("ErrorCode = %v, want NO_CONTENT", got.ErrorCode)
	}

	entries, err := ListEntries(db, b.ID)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestInsertBuild_DuplicateID(t *testing.T) {
	db := openTestDB(t)

	if err := InsertBuild(db, newTestBuild("01DUP", 1), nil); err != nil {
		t.Fatalf("first InsertBuild failed: %v", err)
	}
	err := InsertBuild(db, newTestBuild("01DUP", 2), nil)
	if !errors.Is(err, errors.ErrInternal) {
		t.Errorf("second InsertBuild error = %v, want INTERNAL", err)
	}

	// The failed insert leaves the original row in place.
	got, err := GetBuild(db, "01DUP")
	if err != nil {
		t.Fatalf("GetBuild failed: %v", err)
	}
	if got.CreatedAt != 1 {
		t.Errorf("CreatedAt = %d, want 1 (original row)", got.CreatedAt)
	}
}

func TestGetBuild_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := GetBuild(db, "01MISSING")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetBuild error = %v, want NOT_FOUND", err)
	}
}

func TestListBuilds_OrderAndPagination(t *testing.T) {
	db := openTestDB(t)

	for i, id := range []string{"01A", "01B", "01C"} {
		if err := InsertBuild(db, newTestBuild(id, int64(100*(i+1))), nil); err != nil {
			t.Fatalf("InsertBuild(%s) failed: %v", id, err)
		}
	}

	builds, total, err := ListBuilds(db, ListFilter{}, 2, 0)
	if err != nil {
		t.Fatalf("ListBuilds failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(builds) != 2 || builds[0].ID != "01C" || builds[1].ID != "01B" {
		t.Errorf("first page = %v, want [01C 01B]", ids(builds))
	}

	builds, _, err = ListBuilds(db, ListFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("ListBuilds failed: %v", err)
	}
	if len(builds) != 1 || builds[0].ID != "01A" {
		t.Errorf("second page = %v, want [01A]", ids(builds))
	}
}

func TestListBuilds_FilterByStatus(t *testing.T) {
	db := openTestDB(t)

	ok := newTestBuild("01OK", 100)
	failed := newTestBuild("01FAIL", 200)
	failed.Status = record.StatusFailed
	failed.ArchivePath = nil

	for _, b := range []*record.Build{ok, failed} {
		if err := InsertBuild(db, b, nil); err != nil {
			t.Fatalf("InsertBuild failed: %v", err)
		}
	}

	builds, total, err := ListBuilds(db, ListFilter{Status: record.StatusFailed}, 10, 0)
	if err != nil {
		t.Fatalf("ListBuilds failed: %v", err)
	}
	if total != 1 || len(builds) != 1 || builds[0].ID != "01FAIL" {
		t.Errorf("ListBuilds(failed) = %v (total %d), want [01FAIL]", ids(builds), total)
	}
}

func TestListBuilds_Empty(t *testing.T) {
	db := openTestDB(t)

	builds, total, err := ListBuilds(db, ListFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("ListBuilds failed: %v", err)
	}
	if builds == nil {
		t.Error("builds should be an empty slice, not nil")
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
}

func TestPurgeBuilds(t *testing.T) {
	db := openTestDB(t)

	entries := []record.Entry{{Position: 0, Name: "mimetype", SHA256: "aa"}}
	if err := InsertBuild(db, newTestBuild("01OLD", 100), entries); err != nil {
		t.Fatalf("InsertBuild failed: %v", err)
	}
	if err := InsertBuild(db, newTestBuild("01NEW", 500), entries); err != nil {
		t.Fatalf("InsertBuild failed: %v", err)
	}

	n, err := PurgeBuilds(db, 300)
	if err != nil {
		t.Fatalf("PurgeBuilds failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}

	if _, err := GetBuild(db, "01OLD"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("old build still present: %v", err)
	}
	if _, err := GetBuild(db, "01NEW"); err != nil {
		t.Errorf("new build missing: %v", err)
	}

	var orphans int
	if err := db.QueryRow("SELECT COUNT(*) FROM build_entries WHERE build_id = '01OLD'").Scan(&orphans); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if orphans != 0 {
		t.Errorf("orphaned entries = %d, want 0", orphans)
	}
}

func ids(builds []record.Build) []string {
	out := make([]string, len(builds))
	for i, b := range builds {
		out[i] = b.ID
	}
	return out
}
