package mcp

import "github.com/mark3labs/mcp-go/mcp"

var buildToolDef = mcp.NewTool("book_build",
	mcp.WithDescription("Convert a directory of Markdown files into a validated EPUB 3 book. "+
		"Files are converted in lexical order of their relative paths; the archive is written to output_dir "+
		"and checked before it is reported. Every attempt is recorded in the build history."),
	mcp.WithString("input_dir",
		mcp.Description("Directory containing Markdown files (default: ./markdown)"),
	),
	mcp.WithString("output_dir",
		mcp.Description("Directory the .epub is written to (default: config output_dir, ./epub)"),
	),
	mcp.WithString("scaffold_dir",
		mcp.Description("Temporary package directory; must be absent, empty, or a previous scaffold because it is wiped before use (default: ./.epub_temp)"),
	),
	mcp.WithString("title",
		mcp.Description("Book title (default: input directory name)"),
	),
	mcp.WithString("author",
		mcp.Description("Book author (default: config author)"),
	),
	mcp.WithString("language",
		mcp.Description("BCP 47 language tag (default: config language, zh-CN)"),
	),
	mcp.WithString("archive_name",
		mcp.Description("Output file name (default: <title>.epub); unsafe characters are replaced"),
	),
	mcp.WithBoolean("keep_scaffold",
		mcp.Description("Keep the temporary package directory after the build"),
	),
	mcp.WithBoolean("no_recursive",
		mcp.Description("Only convert files directly inside input_dir"),
	),
)

var validateToolDef = mcp.NewTool("book_validate",
	mcp.WithDescription("Check the structure and integrity of an existing EPUB file. "+
		"An invalid archive is reported with valid=false and a reason, not as an error."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the .epub file"),
	),
)

var historyToolDef = mcp.NewTool("book_history",
	mcp.WithDescription("List recorded builds, newest first."),
	mcp.WithString("status",
		mcp.Description("Filter by outcome"),
		mcp.Enum("succeeded", "failed"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum results (default: 20, max: 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Results to skip"),
	),
)

var showToolDef = mcp.NewTool("book_show",
	mcp.WithDescription("Show one recorded build with the SHA-256 of every archive entry."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Build id from book_build or book_history"),
	),
)

var purgeToolDef = mcp.NewTool("book_purge",
	mcp.WithDescription("Permanently delete build history records. Archives on disk are not touched."),
	mcp.WithNumber("older_than_days",
		mcp.Description("Only delete records older than this many days (default: all)"),
	),
)
