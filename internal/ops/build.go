package ops

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hpungsan/mdbind/internal/config"
	"github.com/hpungsan/mdbind/internal/db"
	"github.com/hpungsan/mdbind/internal/epub"
	"github.com/hpungsan/mdbind/internal/errors"
	"github.com/hpungsan/mdbind/internal/markdown"
	"github.com/hpungsan/mdbind/internal/record"
)

// BuildInput contains parameters for the Build operation.
type BuildInput struct {
	InputDir     string // default: "markdown"
	OutputDir    string // default: cfg.OutputDir
	ScaffoldDir  string // default: ".epub_temp"; wiped before use
	Title        string // default: derived from the input directory name
	Author       string // default: cfg.Author
	Language     string // default: cfg.Language
	ArchiveName  string // default: "<title>.epub"
	KeepScaffold bool   // OR-ed with cfg.KeepScaffold
	NoRecursive  bool   // only convert files directly in InputDir
	Logger       *log.Logger
}

// BuildOutput contains the result of the Build operation.
type BuildOutput struct {
	// ID is the history record id, empty when no database was given
	ID          string               `json:"id,omitempty"`
	ArchivePath string               `json:"archive_path"`
	UniqueID    string               `json:"unique_id"`
	Title       string               `json:"title"`
	Author      string               `json:"author"`
	Language    string               `json:"language"`
	Modified    string               `json:"modified"`
	Items       []epub.ContentItem   `json:"items"`
	Checksums   []epub.EntryChecksum `json:"checksums"`
	ScaffoldDir string               `json:"scaffold_dir,omitempty"` // set when kept
	DurationMS  int64                `json:"duration_ms"`
}

// buildPlan is a BuildInput with defaults applied and paths made absolute.
type buildPlan struct {
	inputDir     string
	outputDir    string
	scaffoldDir  string
	title        string
	author       string
	language     string
	archiveName  string
	extensions   []string
	keepScaffold bool
	recursive    bool
}

// buildState collects what a run produced, including partial progress on failure.
type buildState struct {
	identity    epub.Identity
	items       []epub.ContentItem
	checksums   []epub.EntryChecksum
	archivePath string
}

// Build converts a directory of Markdown files into a validated EPUB archive.
//
// The scaffold directory is wiped and recreated, every Markdown file is
// converted to XHTML under its content root in lexical order, the package
// descriptor is generated and the archive is packed and validated. An input
// directory without Markdown files fails with NO_CONTENT and produces no
// archive. When database is non-nil every attempt, successful or not, is
// recorded in the build history.
func Build(ctx context.Context, database *sql.DB, cfg *config.Config, input BuildInput) (*BuildOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := loggerOrDiscard(input.Logger)

	plan, err := planBuild(cfg, input)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	state := &buildState{}
	buildErr := runBuild(ctx, plan, state, logger)
	elapsed := time.Since(started)

	var recordID string
	if database != nil {
		id, err := recordBuild(database, plan, state, buildErr, started, elapsed)
		if err != nil {
			logger.Warn("failed to record build", "err", err)
		} else {
			recordID = id
		}
	}

	if buildErr != nil {
		logger.Error("build failed", "title", plan.title, "err", buildErr)
		return nil, buildErr
	}

	out := &BuildOutput{
		ID:          recordID,
		ArchivePath: state.archivePath,
		UniqueID:    state.identity.UniqueID,
		Title:       state.identity.Title,
		Author:      state.identity.Author,
		Language:    state.identity.Language,
		Modified:    state.identity.Modified,
		Items:       state.items,
		Checksums:   state.checksums,
		DurationMS:  elapsed.Milliseconds(),
	}
	if plan.keepScaffold {
		out.ScaffoldDir = plan.scaffoldDir
	}

	logger.Info("book created", "path", out.ArchivePath, "items", len(out.Items), "duration", elapsed.Round(time.Millisecond))
	return out, nil
}

// planBuild applies defaults and resolves every directory to an absolute path.
func planBuild(cfg *config.Config, input BuildInput) (*buildPlan, error) {
	inputDir, err := absDir(input.InputDir, DefaultInputDir, "input")
	if err != nil {
		return nil, err
	}
	outputDir, err := absDir(input.OutputDir, firstNonBlank(cfg.OutputDir, config.DefaultOutputDir), "output")
	if err != nil {
		return nil, err
	}
	scaffoldDir, err := absDir(input.ScaffoldDir, DefaultScaffoldDir, "scaffold")
	if err != nil {
		return nil, err
	}

	if err := ValidateScaffoldDir(scaffoldDir, inputDir, outputDir); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = TitleFromDir(inputDir)
	}

	return &buildPlan{
		inputDir:     inputDir,
		outputDir:    outputDir,
		scaffoldDir:  scaffoldDir,
		title:        title,
		author:       firstNonBlank(input.Author, cfg.Author),
		language:     firstNonBlank(input.Language, cfg.Language),
		archiveName:  strings.TrimSpace(input.ArchiveName),
		extensions:   cfg.Extensions,
		keepScaffold: input.KeepScaffold || cfg.KeepScaffold,
		recursive:    !input.NoRecursive,
	}, nil
}

// TitleFromDir derives a book title from the input directory's base name.
// The generic "markdown" directory name yields UntitledBook.
func TitleFromDir(dir string) string {
	base := strings.TrimSpace(filepath.Base(filepath.Clean(dir)))
	if base == "" || base == "." || base == string(filepath.Separator) || base == DefaultInputDir {
		return UntitledBook
	}
	return base
}

func runBuild(ctx context.Context, plan *buildPlan, state *buildState, logger *log.Logger) error {
	info, statErr := os.Stat(plan.inputDir)
	if statErr != nil || !info.IsDir() {
		return errors.NewInputNotFound(plan.inputDir)
	}

	builder, err := epub.NewBuilder(epub.Metadata{
		Title:    plan.title,
		Author:   plan.author,
		Language: plan.language,
	})
	if err != nil {
		return err
	}
	state.identity = builder.Identity()
	logger.Info("building book", "title", state.identity.Title, "author", state.identity.Author, "id", state.identity.UniqueID)

	if err := checkCancelled(ctx); err != nil {
		return err
	}

	if err := os.RemoveAll(plan.scaffoldDir); err != nil {
		return errors.NewFilesystem("clear scaffold directory", err)
	}
	defer func() {
		if plan.keepScaffold {
			logger.Debug("scaffold kept", "dir", plan.scaffoldDir)
			return
		}
		if rmErr := os.RemoveAll(plan.scaffoldDir); rmErr != nil {
			logger.Warn("failed to remove scaffold", "dir", plan.scaffoldDir, "err", rmErr)
		}
	}()

	if err := builder.CreateStructure(plan.scaffoldDir); err != nil {
		return err
	}

	conv := markdown.NewConverter(plan.extensions)
	hrefs, err := conv.ConvertDirectory(ctx, plan.inputDir, epub.ContentDir(plan.scaffoldDir), plan.recursive)
	if err != nil {
		return err
	}
	if len(hrefs) == 0 {
		return errors.NewNoContent(plan.inputDir)
	}
	logger.Info("converted markdown", "files", len(hrefs))

	for _, href := range hrefs {
		builder.AddItem(href, "")
	}
	state.items = builder.Items()

	if err := checkCancelled(ctx); err != nil {
		return err
	}
	if _, err := builder.GenerateDescriptor(plan.scaffoldDir); err != nil {
		return err
	}
	state.identity = builder.Identity()

	if err := checkCancelled(ctx); err != nil {
		return err
	}
	archivePath, err := builder.Pack(plan.scaffoldDir, plan.outputDir, plan.archiveName)
	if err != nil {
		return err
	}
	if res := builder.LastResult(); res != nil {
		state.checksums = res.Checksums
	}
	state.archivePath = archivePath

	return nil
}

// recordBuild writes one history row for the attempt and returns its id.
func recordBuild(database *sql.DB, plan *buildPlan, state *buildState, buildErr error, started time.Time, elapsed time.Duration) (string, error) {
	id, err := generateULID()
	if err != nil {
		return "", errors.NewInternal(err)
	}

	b := &record.Build{
		ID:         id,
		Title:      firstNonBlank(state.identity.Title, plan.title),
		Author:     firstNonBlank(state.identity.Author, plan.author),
		Language:   firstNonBlank(state.identity.Language, plan.language),
		UniqueID:   state.identity.UniqueID,
		InputDir:   plan.inputDir,
		ItemCount:  len(state.items),
		Status:     record.StatusSucceeded,
		Message:    "ok",
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  started.Unix(),
	}

	if buildErr != nil {
		code := string(errors.ErrInternal)
		b.Message = buildErr.Error()
		var bErr *errors.BindError
		if stderrors.As(buildErr, &bErr) {
			code = string(bErr.Code)
			b.Message = bErr.Message
		}
		b.Status = record.StatusFailed
		b.ErrorCode = &code
	} else {
		path := state.archivePath
		b.ArchivePath = &path
	}

	entries := make([]record.Entry, 0, len(state.checksums))
	for i, c := range state.checksums {
		entries = append(entries, record.Entry{
			Position: i,
			Name:     c.Name,
			Method:   c.Method,
			Size:     c.Size,
			SHA256:   c.SHA256,
		})
	}

	if err := db.InsertBuild(database, b, entries); err != nil {
		return "", err
	}
	return id, nil
}

func absDir(dir, fallback, what string) (string, error) {
	dir = firstNonBlank(dir, fallback)
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.NewInvalidRequest("invalid " + what + " directory: " + err.Error())
	}
	return abs, nil
}

func checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return errors.NewCancelled("build")
	}
	return nil
}

func firstNonBlank(a, b string) string {
	if s := strings.TrimSpace(a); s != "" {
		return s
	}
	return strings.TrimSpace(b)
}
