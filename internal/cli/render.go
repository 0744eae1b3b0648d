// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Terminal rendering for tool output.
//
// Markdown goes through glamour, source code through chroma, and
// tabular output is aligned with runewidth so wide characters line up.
// Everything degrades to plain text when rendering is unavailable.

package cli

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"
)

// =============================================================================
// MARKDOWN RENDERING (glamour)
// =============================================================================

// markdownRenderer is shared by all commands that render markdown.
// Stays nil when the terminal cannot support it; renderMarkdown then
// passes text through unchanged.
var markdownRenderer *glamour.TermRenderer

func init() {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		markdownRenderer = renderer
	}
}

// renderMarkdown renders markdown text for terminal display.
// Returns the original text if rendering is unavailable or fails.
func renderMarkdown(text string) string {
	if markdownRenderer == nil {
		return text
	}
	rendered, err := markdownRenderer.Render(text)
	if err != nil {
		return text
	}
	return rendered
}

// looksLikeMarkdown reports whether content has enough markdown cues
// to be worth running through the renderer.
func looksLikeMarkdown(s string) bool {
	if strings.Contains(s, "```") {
		return true
	}
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") ||
			strings.HasPrefix(trimmed, "## ") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") {
			return true
		}
	}
	return false
}

// =============================================================================
// SYNTAX HIGHLIGHTING (chroma)
// =============================================================================

// highlightCode applies syntax highlighting to code using the chroma library.
// This provides proper ANSI-safe syntax highlighting for terminal output.
func highlightCode(code, language string) string {
	// Get lexer for language
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	// Get style (use terminal-friendly style)
	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	// Get terminal formatter
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	// Tokenize and format
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code // Fallback to plain text
	}

	var buf strings.Builder
	err = formatter.Format(&buf, style, iterator)
	if err != nil {
		return code
	}

	return buf.String()
}

// languageForPath returns the chroma language name for a file path, or
// empty when the extension is not recognized.
func languageForPath(path string) string {
	lexer := lexers.Match(path)
	if lexer == nil {
		return ""
	}
	return strings.ToLower(lexer.Config().Name)
}

// renderPretty renders tool output for display: markdown through
// glamour, recognizable source files through chroma, anything else
// unchanged. pathHint is the file path the content came from, if any.
func renderPretty(content, pathHint string) string {
	if pathHint != "" {
		lang := languageForPath(pathHint)
		switch {
		case lang == "markdown":
			return renderMarkdown(content)
		case lang != "":
			return highlightCode(content, lang)
		}
	}
	if looksLikeMarkdown(content) {
		return renderMarkdown(content)
	}
	return content
}

// =============================================================================
// TABLE RENDERING (runewidth)
// =============================================================================

// columnWidths returns the display width of the widest cell per column,
// headers included. Widths are measured with runewidth so CJK model
// names and note titles align.
func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// padCell pads a cell to the given display width.
// Pad before styling: ANSI escapes would skew the width measurement.
func padCell(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// renderTable renders headers and rows as aligned plain-text columns
// separated by two spaces. Headers are dimmed and uppercased.
func renderTable(headers []string, rows [][]string) string {
	widths := columnWidths(headers, rows)

	var b strings.Builder
	for i, h := range headers {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(DimStyle.Render(padCell(strings.ToUpper(h), widths[i])))
	}
	b.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(padCell(cell, widths[i]))
		}
		b.WriteString("\n")
	}
	return b.String()
}
