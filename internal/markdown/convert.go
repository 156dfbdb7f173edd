// Package markdown renders Markdown files into standalone XHTML documents
// laid out for an EPUB content root.
package markdown

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/hpungsan/mdbind/internal/errors"
)

// DefaultTitle is the XHTML <title> used when a file has no front matter title.
const DefaultTitle = "Converted from Markdown"

// DefaultExtensions are the file extensions treated as Markdown.
var DefaultExtensions = []string{".md", ".markdown"}

// Converter turns Markdown into XHTML documents.
type Converter struct {
	md         goldmark.Markdown
	extensions []string
}

// NewConverter creates a Converter. Empty extensions means DefaultExtensions.
func NewConverter(extensions []string) *Converter {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}

	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Table,
				extension.Strikethrough,
				extension.Footnote,
			),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
		extensions: normalized,
	}
}

// RenderFragment converts Markdown source to an XHTML body fragment.
func (c *Converter) RenderFragment(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WrapXHTML places a body fragment into the fixed XHTML page template.
func WrapXHTML(fragment, title string) string {
	if title == "" {
		title = DefaultTitle
	}
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(title))

	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
    <title>` + escaped.String() + `</title>
    <meta charset="utf-8"/>
</head>
<body>
` + fragment + `
</body>
</html>`
}

// Convert renders a Markdown document (front matter included) into a full XHTML page.
func (c *Converter) Convert(src []byte) (string, error) {
	fm, body := SplitFrontMatter(src)
	fragment, err := c.RenderFragment(body)
	if err != nil {
		return "", err
	}
	return WrapXHTML(fragment, fm["title"]), nil
}

// ConvertFile converts inPath and writes the page to outPath.
// An empty outPath means inPath with its extension replaced by ".xhtml".
func (c *Converter) ConvertFile(inPath, outPath string) (string, error) {
	src, err := os.ReadFile(inPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound(inPath)
		}
		return "", errors.NewFilesystem("read markdown", err)
	}

	page, err := c.Convert(src)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("render %s: %w", inPath, err))
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".xhtml"
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", errors.NewFilesystem("create output directory", err)
	}
	if err := os.WriteFile(outPath, []byte(page), 0o644); err != nil {
		return "", errors.NewFilesystem("write xhtml", err)
	}
	return outPath, nil
}

// Discover returns the Markdown files under inputDir as slash-separated
// relative paths in lexical order. With recursive=false only the top
// level is scanned. Symlinks to files are followed; anything else that is
// not a regular file is skipped.
func (c *Converter) Discover(inputDir string, recursive bool) ([]string, error) {
	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		return nil, errors.NewInputNotFound(inputDir)
	}

	var found []string
	walkErr := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != inputDir && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !c.isMarkdown(d.Name()) || !isRegularFile(path, d) {
			return nil
		}
		rel, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}
		found = append(found, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, errors.NewFilesystem("scan input directory", walkErr)
	}

	sort.Strings(found)
	return found, nil
}

// ConvertDirectory converts every Markdown file under inputDir into
// contentRoot, mirroring relative paths with the extension replaced by
// ".xhtml". It returns the written files relative to contentRoot
// (slash-separated) in the same lexical order as Discover.
func (c *Converter) ConvertDirectory(ctx context.Context, inputDir, contentRoot string, recursive bool) ([]string, error) {
	sources, err := c.Discover(inputDir, recursive)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(contentRoot, 0o755); err != nil {
		return nil, errors.NewFilesystem("create content root", err)
	}

	hrefs := make([]string, 0, len(sources))
	seen := make(map[string]string, len(sources))
	for _, rel := range sources {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("convert")
		default:
		}

		href := strings.TrimSuffix(rel, filepath.Ext(rel)) + ".xhtml"
		if prev, ok := seen[href]; ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("%s and %s both convert to %s", prev, rel, href))
		}
		seen[href] = rel

		in := filepath.Join(inputDir, filepath.FromSlash(rel))
		out := filepath.Join(contentRoot, filepath.FromSlash(href))
		if _, err := c.ConvertFile(in, out); err != nil {
			return nil, err
		}
		hrefs = append(hrefs, href)
	}

	return hrefs, nil
}

// isRegularFile reports whether d is a regular file or a symlink to one.
// Symlinked directories are not descended into.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (c *Converter) isMarkdown(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range c.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
