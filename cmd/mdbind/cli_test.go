package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/mdbind/internal/config"
	"github.com/hpungsan/mdbind/internal/db"
	"github.com/hpungsan/mdbind/internal/ops"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	cleanup := func() {
		database.Close()
	}
	return database, cleanup
}

// runCapture runs the app and returns what it wrote to stdout.
func runCapture(t *testing.T, app *cli.App, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	runErr := app.Run(append([]string{"mdbind"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), runErr
}

// writeBook creates a Markdown source directory and returns the build flags for it.
func writeBook(t *testing.T, files map[string]string) []string {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "Travel Log")
	if err := os.MkdirAll(input, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(input, name), []byte(body), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	return []string{
		"--input", input,
		"--output", filepath.Join(root, "epub"),
		"--temp", filepath.Join(root, ".epub_temp"),
		"--quiet",
	}
}

// TestParseDuration tests the parseDuration helper function.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int
		expectError bool
	}{
		{
			name:     "valid days",
			input:    "7d",
			expected: 7,
		},
		{
			name:     "zero days",
			input:    "0d",
			expected: 0,
		},
		{
			name:     "large number",
			input:    "365d",
			expected: 365,
		},
		{
			name:        "negative days",
			input:       "-7d",
			expectError: true,
		},
		{
			name:        "no suffix",
			input:       "7",
			expectError: true,
		},
		{
			name:        "wrong suffix",
			input:       "7h",
			expectError: true,
		},
		{
			name:        "invalid number",
			input:       "abcd",
			expectError: true,
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDuration(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

// TestCLIBuild tests the build command end to end, then validate/history/show on its result.
func TestCLIBuild(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	app := newCLIApp(database, config.DefaultConfig(), nil)

	flags := writeBook(t, map[string]string{
		"01-arrival.md":   "# Arrival\n\nWe landed at dawn.",
		"02-departure.md": "# Departure\n\n| day | city |\n|---|---|\n| 1 | Kyoto |\n",
	})
	out, err := runCapture(t, app, append([]string{"build", "--author", "Ada"}, flags...)...)
	if err != nil {
		t.Fatalf("build command failed: %v", err)
	}

	var built ops.BuildOutput
	if err := json.Unmarshal([]byte(out), &built); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if built.Title != "Travel Log" {
		t.Errorf("title = %q, want Travel Log", built.Title)
	}
	if built.Author != "Ada" {
		t.Errorf("author = %q, want Ada", built.Author)
	}
	if filepath.Base(built.ArchivePath) != "Travel Log.epub" {
		t.Errorf("archive_path = %q, want .../Travel Log.epub", built.ArchivePath)
	}
	if len(built.Items) != 2 || built.Items[0].Href != "01-arrival.xhtml" {
		t.Errorf("items = %+v, want 01-arrival.xhtml first", built.Items)
	}

	// validate
	out, err = runCapture(t, app, "validate", built.ArchivePath)
	if err != nil {
		t.Fatalf("validate command failed: %v", err)
	}
	var validated ops.ValidateOutput
	if err := json.Unmarshal([]byte(out), &validated); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if !validated.Valid {
		t.Errorf("expected valid archive, got %s", validated.Message)
	}

	// history
	out, err = runCapture(t, app, "history")
	if err != nil {
		t.Fatalf("history command failed: %v", err)
	}
	var history ops.HistoryOutput
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(history.Items) != 1 || history.Items[0].ID != built.ID {
		t.Errorf("history = %+v, want one build %s", history.Items, built.ID)
	}

	// show
	out, err = runCapture(t, app, "show", built.ID)
	if err != nil {
		t.Fatalf("show command failed: %v", err)
	}
	var shown ops.ShowOutput
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(shown.Entries) != len(built.Checksums) {
		t.Errorf("entries = %d, want %d", len(shown.Entries), len(built.Checksums))
	}
}

// TestCLIBuildName tests --name and --language.
func TestCLIBuildName(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	app := newCLIApp(database, config.DefaultConfig(), nil)
	flags := writeBook(t, map[string]string{"a.md": "# A"})

	out, err := runCapture(t, app, append([]string{"build", "-n", "custom", "-l", "en"}, flags...)...)
	if err != nil {
		t.Fatalf("build command failed: %v", err)
	}
	var built ops.BuildOutput
	if err := json.Unmarshal([]byte(out), &built); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if filepath.Base(built.ArchivePath) != "custom.epub" {
		t.Errorf("archive_path = %q, want .../custom.epub", built.ArchivePath)
	}
	if built.Language != "en" {
		t.Errorf("language = %q, want en", built.Language)
	}
}

// TestCLIPurge tests the purge command.
func TestCLIPurge(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	app := newCLIApp(database, config.DefaultConfig(), nil)
	if _, err := runCapture(t, app, append([]string{"build"}, writeBook(t, map[string]string{"a.md": "# A"})...)...); err != nil {
		t.Fatalf("build command failed: %v", err)
	}

	// Recent records survive --older-than
	out, err := runCapture(t, app, "purge", "--older-than=7d")
	if err != nil {
		t.Fatalf("purge command failed: %v", err)
	}
	var output ops.PurgeOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Purged != 0 {
		t.Errorf("expected purged=0, got %d", output.Purged)
	}

	// Purge without --older-than removes everything
	out, err = runCapture(t, app, "purge")
	if err != nil {
		t.Fatalf("purge command failed: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Purged != 1 {
		t.Errorf("expected purged=1, got %d", output.Purged)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	app := newCLIApp(database, config.DefaultConfig(), nil)

	t.Run("build with empty input returns NO_CONTENT", func(t *testing.T) {
		_, err := runCapture(t, app, append([]string{"build"}, writeBook(t, nil)...)...)
		if err == nil || !strings.Contains(err.Error(), "[NO_CONTENT]") {
			t.Errorf("expected [NO_CONTENT] error, got %v", err)
		}
	})

	t.Run("build with missing input returns INPUT_NOT_FOUND", func(t *testing.T) {
		root := t.TempDir()
		_, err := runCapture(t, app, "build",
			"--input", filepath.Join(root, "missing"),
			"--output", filepath.Join(root, "epub"),
			"--temp", filepath.Join(root, ".tmp"),
			"--quiet")
		if err == nil || !strings.Contains(err.Error(), "[INPUT_NOT_FOUND]") {
			t.Errorf("expected [INPUT_NOT_FOUND] error, got %v", err)
		}
	})

	t.Run("validate corrupt archive returns INVALID_ARCHIVE", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.epub")
		if err := os.WriteFile(bad, []byte("not a zip"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		out, err := runCapture(t, app, "validate", bad)
		if err == nil || !strings.Contains(err.Error(), "[INVALID_ARCHIVE]") {
			t.Errorf("expected [INVALID_ARCHIVE] error, got %v", err)
		}
		if !strings.Contains(out, `"valid": false`) {
			t.Errorf("expected JSON report on stdout, got %q", out)
		}
	})

	t.Run("validate without path returns error", func(t *testing.T) {
		if _, err := runCapture(t, app, "validate"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("show not found returns error", func(t *testing.T) {
		_, err := runCapture(t, app, "show", "01NONEXISTENT")
		if err == nil || !strings.Contains(err.Error(), "[NOT_FOUND]") {
			t.Errorf("expected [NOT_FOUND] error, got %v", err)
		}
	})

	t.Run("invalid history status returns error", func(t *testing.T) {
		if _, err := runCapture(t, app, "history", "--status=pending"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("invalid duration format returns error", func(t *testing.T) {
		if _, err := runCapture(t, app, "purge", "--older-than=invalid"); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"mdbind"},
			expected: false,
		},
		{
			name:     "build command",
			args:     []string{"mdbind", "build"},
			expected: true,
		},
		{
			name:     "validate command",
			args:     []string{"mdbind", "validate"},
			expected: true,
		},
		{
			name:     "help flag",
			args:     []string{"mdbind", "--help"},
			expected: true,
		},
		{
			name:     "version flag",
			args:     []string{"mdbind", "--version"},
			expected: true,
		},
		{
			name:     "short help flag",
			args:     []string{"mdbind", "-h"},
			expected: true,
		},
		{
			name:     "short version flag",
			args:     []string{"mdbind", "-v"},
			expected: true,
		},
		{
			name:     "unknown arg defaults to MCP",
			args:     []string{"mdbind", "--unknown"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save and restore os.Args
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isCLIMode()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"mdbind"},
			expected: false,
		},
		{
			name:     "help flag",
			args:     []string{"mdbind", "--help"},
			expected: true,
		},
		{
			name:     "short help flag",
			args:     []string{"mdbind", "-h"},
			expected: true,
		},
		{
			name:     "version flag",
			args:     []string{"mdbind", "--version"},
			expected: true,
		},
		{
			name:     "short version flag",
			args:     []string{"mdbind", "-v"},
			expected: true,
		},
		{
			name:     "help subcommand",
			args:     []string{"mdbind", "help"},
			expected: true,
		},
		{
			name:     "build command is not help",
			args:     []string{"mdbind", "build"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isHelpOrVersion()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
