package format

import (
	"fmt"
	"io"
	"strings"
)

// TextFormatter handles simple text output formatting
type TextFormatter struct{}

// NewTextFormatter creates a new text formatter
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format writes data as plain text
func (f *TextFormatter) Format(w io.Writer, data interface{}) error {
	if data == nil {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	switch v := data.(type) {
	case Tabular:
		headers, rows := v.Table()
		for _, row := range rows {
			if len(headers) == 2 && len(row) == 2 {
				fmt.Fprintf(w, "%s: %s\n", row[0], row[1])
				continue
			}
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
		return nil
	case []string:
		_, err := fmt.Fprintln(w, strings.Join(v, "\n"))
		return err
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}
