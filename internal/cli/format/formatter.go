// Package format renders CLI output as a table, JSON or YAML.
package format

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Formatter writes one value in a fixed output format.
type Formatter interface {
	Format(data any) error
}

// Tabular is implemented by values that know their table layout. JSON and
// YAML output marshal the value itself.
type Tabular interface {
	Headers() []string
	Rows() [][]string
}

// New returns a formatter for format: table, json, json-compact or yaml.
func New(w io.Writer, format string, useColors bool) (Formatter, error) {
	switch format {
	case "", "table":
		return NewTableFormatter(w, useColors), nil
	case "json":
		return NewJSONFormatter(w, true), nil
	case "json-compact":
		return NewJSONFormatter(w, false), nil
	case "yaml":
		return NewYAMLFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Messages prints status lines, colored when enabled.
type Messages struct {
	w         io.Writer
	useColors bool
}

func NewMessages(w io.Writer, useColors bool) *Messages {
	return &Messages{w: w, useColors: useColors}
}

// Success prints a success message
func (m *Messages) Success(message string, args ...any) {
	m.print(color.FgGreen, "", message, args...)
}

// Warning prints a warning message
func (m *Messages) Warning(message string, args ...any) {
	m.print(color.FgYellow, "Warning: ", message, args...)
}

// Error prints an error message
func (m *Messages) Error(message string, args ...any) {
	m.print(color.FgRed, "Error: ", message, args...)
}

func (m *Messages) print(attr color.Attribute, prefix, message string, args ...any) {
	if m.useColors {
		c := color.New(attr)
		c.EnableColor()
		_, _ = c.Fprintf(m.w, message+"\n", args...)
		return
	}
	fmt.Fprintf(m.w, prefix+message+"\n", args...)
}
