// Package output renders CLI results as styled text, markdown or JSON.
package output

import (
	"io"
	"os"

	"golang.org/x/term"
)

// OutputMode selects how results are rendered.
type OutputMode string //nolint:revive // kept for symmetry with Mode

// Mode is an alias used by commands when converting config strings.
type Mode = OutputMode

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// ValidModes lists the accepted values of the output setting.
var ValidModes = []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}

// IsValid reports whether m is a known mode. Empty counts as auto.
func (m OutputMode) IsValid() bool {
	switch m {
	case "", ModeAuto, ModeText, ModeMarkdown, ModeJSON:
		return true
	}
	return false
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// resolve maps auto to text on a TTY and markdown otherwise.
func resolve(m OutputMode, isTTY bool) OutputMode {
	switch m {
	case ModeText, ModeMarkdown, ModeJSON:
		return m
	}
	if isTTY {
		return ModeText
	}
	return ModeMarkdown
}
