package format

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter handles table output formatting
type TableFormatter struct {
	w         io.Writer
	useColors bool
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer, useColors bool) *TableFormatter {
	return &TableFormatter{w: w, useColors: useColors}
}

// Format formats data as a table
func (f *TableFormatter) Format(data any) error {
	switch v := data.(type) {
	case nil:
		fmt.Fprintln(f.w, "No data to display")
		return nil
	case Tabular:
		rows := v.Rows()
		if len(rows) == 0 {
			fmt.Fprintln(f.w, "No data to display")
			return nil
		}
		f.render(v.Headers(), rows)
		return nil
	case map[string]any:
		return f.formatSingleMap(v)
	default:
		return fmt.Errorf("table output not supported for %T", data)
	}
}

// formatSingleMap formats a single map as a vertical table, keys sorted.
func (f *TableFormatter) formatSingleMap(data map[string]any) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{formatHeader(k), f.Value(data[k])})
	}
	f.render([]string{"Property", "Value"}, rows)
	return nil
}

func (f *TableFormatter) render(headers []string, rows [][]string) {
	table := tablewriter.NewWriter(f.w)
	table.SetHeader(headers)
	f.configureTable(table, len(headers))
	table.AppendBulk(rows)
	table.Render()
}

// configureTable sets up table appearance
func (f *TableFormatter) configureTable(table *tablewriter.Table, columns int) {
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	if f.useColors {
		colors := make([]tablewriter.Colors, columns)
		for i := range colors {
			colors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiBlueColor}
		}
		table.SetHeaderColor(colors...)
	}
}

// Value formats a cell value. Booleans are colored when enabled.
func (f *TableFormatter) Value(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if f.useColors {
			if v {
				return color.GreenString("true")
			}
			return color.RedString("false")
		}
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatHeader converts snake_case to Title Case.
func formatHeader(header string) string {
	words := strings.Split(header, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}
