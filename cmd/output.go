package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
	dimColor     = color.New(color.Faint)
)

// Success prints a success message in green.
func Success(format string, a ...any) {
	successColor.Fprintf(os.Stdout, "✓ "+format+"\n", a...)
}

// Error prints an error message in red.
func Error(format string, a ...any) {
	errorColor.Fprintf(os.Stderr, "Error: "+format+"\n", a...)
}

// Warning prints a warning message in yellow on stderr.
func Warning(format string, a ...any) {
	warningColor.Fprintf(os.Stderr, "warning: "+format+"\n", a...)
}

// Hint prints a follow-up suggestion on stderr.
func Hint(format string, a ...any) {
	infoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Bold(format string, a ...any) string {
	return boldColor.Sprintf(format, a...)
}

func Dim(format string, a ...any) string {
	return dimColor.Sprintf(format, a...)
}

// PrintKeyValue prints a key-value pair with the key highlighted.
func PrintKeyValue(key, value string) {
	fmt.Printf("%s %s\n", boldColor.Sprintf("%-12s", key+":"), value)
}

// PrintDiffLine prints a diff line colored by its marker.
func PrintDiffLine(marker, text string) {
	switch marker {
	case "+":
		successColor.Printf("%s %s\n", marker, text)
	case "-":
		errorColor.Printf("%s %s\n", marker, text)
	default:
		fmt.Printf("%s %s\n", marker, text)
	}
}
