// Package poem parses poem source documents into structured form.
//
// A source document is a metadata header of key: value lines (title and
// author, with Spanish and English key aliases), a blank line, then the poem
// body. Blank lines inside the body mark deliberate narrative pauses and are
// folded into the PauseBefore flag of the following line rather than becoming
// empty lines of their own.
//
// The package performs no I/O; callers hand it already-read text.
package poem
