package format

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/sam-app/cli/internal/config"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(w io.Writer, data interface{}) error
}

// Tabular is implemented by values that know their own rows
type Tabular interface {
	Table() (headers []string, rows [][]string)
}

// GetFormatter returns a formatter based on the specified format
func GetFormatter(format string) (Formatter, error) {
	useColors := config.Get().Format.Colors

	switch format {
	case "table":
		return NewTableFormatter(useColors), nil
	case "json":
		return NewJSONFormatter(true), nil
	case "json-compact":
		return NewJSONFormatter(false), nil
	case "yaml":
		return NewYAMLFormatter(), nil
	case "text":
		return NewTextFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Print formats and prints data to stdout using the configured output format
func Print(data interface{}) error {
	formatter, err := GetFormatter(config.GetOutputFormat())
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, data)
}

// PrintSuccess prints a success message
func PrintSuccess(message string, args ...interface{}) {
	if config.Get().Format.Colors {
		color.Green(message, args...)
	} else {
		fmt.Printf(message+"\n", args...)
	}
}

// PrintError prints an error message to stderr
func PrintError(message string, args ...interface{}) {
	if config.Get().Format.Colors {
		color.New(color.FgRed).Fprintf(os.Stderr, message+"\n", args...)
	} else {
		fmt.Fprintf(os.Stderr, "Error: "+message+"\n", args...)
	}
}

// PrintWarning prints a warning message
func PrintWarning(message string, args ...interface{}) {
	if config.Get().Format.Colors {
		color.Yellow(message, args...)
	} else {
		fmt.Printf("Warning: "+message+"\n", args...)
	}
}

// PrintInfo prints an info message
func PrintInfo(message string, args ...interface{}) {
	if config.Get().Format.Colors {
		color.Blue(message, args...)
	} else {
		fmt.Printf("Info: "+message+"\n", args...)
	}
}
