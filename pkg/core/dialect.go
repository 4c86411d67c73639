package core

import (
	"fmt"
	"strings"
	"time"
)

// PlaceholderStyle selects how bind parameters are written.
type PlaceholderStyle int

// Placeholder styles.
const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1
)

// Dialect captures the SQL differences the loader cares about.
type Dialect struct {
	Name        string
	Placeholder PlaceholderStyle

	// Column types used when creating the star schema.
	KeyType       string
	TextType      string
	IntegerType   string
	FloatType     string
	DateType      string
	TimestampType string

	// DateAsText binds dates as YYYY-MM-DD strings instead of time.Time.
	DateAsText bool

	// InlineIndexes declares secondary indexes inside CREATE TABLE because
	// the engine lacks CREATE INDEX IF NOT EXISTS.
	InlineIndexes bool

	// QuoteChar quotes identifiers.
	QuoteChar byte
}

// FormatPlaceholder returns the placeholder for the 1-based parameter index.
func (d *Dialect) FormatPlaceholder(index int) string {
	if d.Placeholder == PlaceholderDollar {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}

// Placeholders returns n placeholders starting at index start, comma separated.
func (d *Dialect) Placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.FormatPlaceholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// QuoteIdent quotes a possibly schema-qualified identifier.
func (d *Dialect) QuoteIdent(name string) string {
	q := string(d.QuoteChar)
	if q == "" || d.QuoteChar == 0 {
		q = `"`
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

// DateValue converts a calendar date into a bind value for the dialect.
func (d *Dialect) DateValue(t time.Time) any {
	if d.DateAsText {
		return t.Format(DateLayout)
	}
	return TruncateDate(t)
}

// TimestampValue converts a timestamp into a bind value for the dialect.
func (d *Dialect) TimestampValue(t time.Time) any {
	if d.DateAsText {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}
