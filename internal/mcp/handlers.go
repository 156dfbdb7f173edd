package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/mdbind/internal/config"
	"github.com/hpungsan/mdbind/internal/errors"
	"github.com/hpungsan/mdbind/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	logger *log.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, logger *log.Logger) *Handlers {
	return &Handlers{db: db, cfg: cfg, logger: logger}
}

// Request types for each tool

// BuildRequest represents the arguments for book_build.
type BuildRequest struct {
	InputDir     string `json:"input_dir,omitempty"`
	OutputDir    string `json:"output_dir,omitempty"`
	ScaffoldDir  string `json:"scaffold_dir,omitempty"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Language     string `json:"language,omitempty"`
	ArchiveName  string `json:"archive_name,omitempty"`
	KeepScaffold bool   `json:"keep_scaffold,omitempty"`
	NoRecursive  bool   `json:"no_recursive,omitempty"`
}

// ValidateRequest represents the arguments for book_validate.
type ValidateRequest struct {
	Path string `json:"path"`
}

// HistoryRequest represents the arguments for book_history.
type HistoryRequest struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ShowRequest represents the arguments for book_show.
type ShowRequest struct {
	ID string `json:"id"`
}

// PurgeRequest represents the arguments for book_purge.
type PurgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// Handler implementations

// HandleBuild handles the book_build tool call.
func (h *Handlers) HandleBuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BuildRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Build(ctx, h.db, h.cfg, ops.BuildInput{
		InputDir:     input.InputDir,
		OutputDir:    input.OutputDir,
		ScaffoldDir:  input.ScaffoldDir,
		Title:        input.Title,
		Author:       input.Author,
		Language:     input.Language,
		ArchiveName:  input.ArchiveName,
		KeepScaffold: input.KeepScaffold,
		NoRecursive:  input.NoRecursive,
		Logger:       h.logger,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleValidate handles the book_validate tool call.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ValidateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Validate(ops.ValidateInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the book_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(h.db, ops.HistoryInput{
		Status: input.Status,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleShow handles the book_show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Show(h.db, ops.ShowInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the book_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(h.db, ops.PurgeInput{
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var bindErr *errors.BindError
	if stderrors.As(err, &bindErr) {
		// Keep wrapper context ("items[2]: ...") in front of the coded message
		message := bindErr.Message
		if prefix, ok := strings.CutSuffix(err.Error(), bindErr.Error()); ok && prefix != "" {
			message = prefix + message
		}
		errorObj := map[string]any{
			"code":    bindErr.Code,
			"message": message,
			"status":  bindErr.Status,
		}
		if bindErr.Code != errors.ErrInternal && bindErr.Details != nil {
			errorObj["details"] = bindErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
