package poem

import (
	"errors"
	"strings"
)

var (
	// ErrMalformedDocument indicates the metadata header is missing required keys.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrEmptyBody indicates the document has no poem text after the header.
	ErrEmptyBody = errors.New("empty body")
)

// Line is one line of poem text with its position in the document.
type Line struct {
	Text        string
	PauseBefore bool
	Index       int
}

// Document is a parsed poem. Immutable once parsed.
type Document struct {
	Title  string
	Author string
	Lines  []Line
}

var (
	titleKeys  = map[string]struct{}{"titulo": {}, "título": {}, "title": {}}
	authorKeys = map[string]struct{}{"autor": {}, "author": {}}
)

// Parse converts poem source text into a Document. The header must provide
// both a title and an author; the body must contain at least one non-blank
// line. A document with no text at all is an empty body, not a bad header.
func Parse(source string) (*Document, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyBody
	}

	header, body := splitHeader(source)

	title, author := readHeader(header)
	if title == "" || author == "" {
		return nil, ErrMalformedDocument
	}

	lines := readBody(body)
	if len(lines) == 0 {
		return nil, ErrEmptyBody
	}

	return &Document{Title: title, Author: author, Lines: lines}, nil
}

// ExtractHeader reads title and author leniently, for ledger display columns
// on documents that may not parse strictly. Missing values stay empty.
func ExtractHeader(source string) (title, author string) {
	header, _ := splitHeader(source)
	return readHeader(header)
}

// Text returns the poem body rejoined with newlines, blank pause lines
// restored, as it should be narrated.
func (d *Document) Text() string {
	var b strings.Builder
	for i, line := range d.Lines {
		if i > 0 {
			b.WriteByte('\n')
			if line.PauseBefore {
				b.WriteByte('\n')
			}
		}
		b.WriteString(line.Text)
	}
	return b.String()
}

// splitHeader separates the metadata header from the body. The header runs
// until the first blank line that follows at least one key: value line.
func splitHeader(source string) (header []string, body []string) {
	normalized := strings.ReplaceAll(source, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	all := strings.Split(normalized, "\n")

	split := 0
	seenMeta := false
	for i, line := range all {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if seenMeta {
				split = i + 1
				break
			}
			continue
		}
		if !isHeaderLine(trimmed) {
			split = i
			break
		}
		seenMeta = true
		split = i + 1
	}
	return all[:split], all[split:]
}

func isHeaderLine(line string) bool {
	key, _, ok := strings.Cut(line, ":")
	if !ok {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(key))
	if _, isTitle := titleKeys[normalized]; isTitle {
		return true
	}
	_, isAuthor := authorKeys[normalized]
	return isAuthor
}

func readHeader(header []string) (title, author string) {
	for _, line := range header {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if _, isTitle := titleKeys[normalized]; isTitle && title == "" {
			title = value
		}
		if _, isAuthor := authorKeys[normalized]; isAuthor && author == "" {
			author = value
		}
	}
	return title, author
}

func readBody(body []string) []Line {
	var lines []Line
	pendingPause := false
	for _, raw := range body {
		text := strings.TrimSpace(raw)
		if text == "" {
			if len(lines) > 0 {
				pendingPause = true
			}
			continue
		}
		lines = append(lines, Line{
			Text:        text,
			PauseBefore: pendingPause,
			Index:       len(lines),
		})
		pendingPause = false
	}
	return lines
}
