// Package printer writes colored command-line output.
package printer

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	// Out and Err are swapped in tests.
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr

	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta, color.Bold)
)

func Success(format string, a ...any) {
	green.Fprintf(Out, "✓ %s", fmt.Sprintf(format, a...))
}

func Info(format string, a ...any) {
	fmt.Fprintf(Out, format, a...)
}

func Warning(format string, a ...any) {
	yellow.Fprintf(Out, "! %s", fmt.Sprintf(format, a...))
}

func Step(format string, a ...any) {
	cyan.Fprintf(Out, "→ %s", fmt.Sprintf(format, a...))
}

// Blocked reports a refused status change.
func Blocked(format string, a ...any) {
	magenta.Fprintf(Err, "⛔ %s", fmt.Sprintf(format, a...))
}

// Error prints title, explanation and numbered suggestions to Err and returns
// an error carrying only the title, for commands that silence cobra's output.
func Error(title, explanation string, suggestions ...string) error {
	red.Fprintf(Err, "%s\n", title)
	if explanation != "" {
		fmt.Fprintf(Err, "\n%s\n", explanation)
	}

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(Err, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(Err, "\nTry one of:\n")
		for i, s := range suggestions {
			fmt.Fprintf(Err, "  %d. %s\n", i+1, s)
		}
	}

	return fmt.Errorf("%s", title)
}
