package format

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
)

// TableFormatter handles table output formatting
type TableFormatter struct {
	useColors bool
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(useColors bool) *TableFormatter {
	return &TableFormatter{
		useColors: useColors,
	}
}

// Format writes data as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	if data == nil {
		_, err := fmt.Fprintln(w, "No data to display")
		return err
	}

	switch v := data.(type) {
	case Tabular:
		headers, rows := v.Table()
		return f.render(w, headers, rows)
	case []string:
		rows := make([][]string, 0, len(v))
		for _, s := range v {
			rows = append(rows, []string{s})
		}
		return f.render(w, []string{"Value"}, rows)
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, v[k]})
		}
		return f.render(w, []string{"Property", "Value"}, rows)
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

func (f *TableFormatter) render(w io.Writer, headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data to display")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	f.configureTable(table, len(headers))
	table.AppendBulk(rows)
	table.Render()
	return nil
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
