package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/mdbind/internal/errors"
)

func TestValidateScaffoldDir(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "markdown")
	output := filepath.Join(root, "epub")

	tests := []struct {
		name     string
		scaffold string
		wantErr  bool
	}{
		{"sibling ok", filepath.Join(root, ".epub_temp"), false},
		{"nested elsewhere ok", filepath.Join(root, "tmp", "scaffold"), false},
		{"empty", "", true},
		{"filesystem root", string(filepath.Separator), true},
		{"equals input", input, true},
		{"contains input", root, true},
		{"equals output", output, true},
		{"inside input is fine", filepath.Join(input, ".build"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScaffoldDir(tt.scaffold, input, output)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrInvalidRequest) {
					t.Errorf("ValidateScaffoldDir(%q) error = %v, want INVALID_REQUEST", tt.scaffold, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateScaffoldDir(%q) unexpected error: %v", tt.scaffold, err)
			}
		})
	}
}

func TestValidateScaffoldDir_WorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	other := t.TempDir()

	if err := ValidateScaffoldDir(wd, filepath.Join(other, "in"), filepath.Join(other, "out")); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("ValidateScaffoldDir(cwd) error = %v, want INVALID_REQUEST", err)
	}
}

func TestValidateScaffoldDir_SymlinkAlias(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "markdown")
	if err := os.MkdirAll(input, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	alias := filepath.Join(t.TempDir(), "alias")
	if err := os.Symlink(input, alias); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if err := ValidateScaffoldDir(alias, input, filepath.Join(root, "epub")); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("ValidateScaffoldDir(alias of input) error = %v, want INVALID_REQUEST", err)
	}
}

func TestIsWithin(t *testing.T) {
	sep := string(filepath.Separator)
	base := filepath.Join(sep, "a", "b")

	tests := []struct {
		path string
		want bool
	}{
		{base, true},
		{filepath.Join(base, "c"), true},
		{filepath.Join(sep, "a"), false},
		{filepath.Join(sep, "a", "bc"), false},
		{filepath.Join(sep, "a", "..b"), false},
	}
	for _, tt := range tests {
		if got := isWithin(tt.path, base); got != tt.want {
			t.Errorf("isWithin(%q, %q) = %v, want %v", tt.path, base, got, tt.want)
		}
	}
}

func TestValidateScaffoldDir_Contents(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "markdown")
	output := filepath.Join(root, "epub")

	tests := []struct {
		name    string
		setup   func(dir string) error
		wantErr bool
	}{
		{"empty directory", func(dir string) error { return nil }, false},
		{"previous scaffold", func(dir string) error {
			if err := os.MkdirAll(filepath.Join(dir, "OEBPS"), 0755); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Join(dir, "META-INF"), 0755); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dir, "mimetype"), []byte("application/epub+zip"), 0644)
		}, false},
		{"foreign file", func(dir string) error {
			return os.WriteFile(filepath.Join(dir, "chapter1.docx"), []byte("draft"), 0644)
		}, true},
		{"foreign directory", func(dir string) error {
			return os.MkdirAll(filepath.Join(dir, "photos"), 0755)
		}, true},
		{"mimetype as directory", func(dir string) error {
			return os.MkdirAll(filepath.Join(dir, "mimetype"), 0755)
		}, true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(root, "scaffolds", string(rune('a'+i)))
			if err := os.MkdirAll(dir, 0755); err != nil {
				t.Fatalf("MkdirAll() error = %v", err)
			}
			if err := tt.setup(dir); err != nil {
				t.Fatalf("setup error = %v", err)
			}

			err := ValidateScaffoldDir(dir, input, output)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrInvalidRequest) {
					t.Errorf("ValidateScaffoldDir() error = %v, want INVALID_REQUEST", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateScaffoldDir() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateScaffoldDir_RegularFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(path, []byte("keep"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := ValidateScaffoldDir(path, filepath.Join(root, "in"), filepath.Join(root, "out")); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("ValidateScaffoldDir(file) error = %v, want INVALID_REQUEST", err)
	}
}
