package main

import (
	"fmt"
	"os"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// printAssistant renders one assistant chat line on stdout.
func printAssistant(msg string) {
	fmt.Println(colorize(colorCyan, msg))
}

func printPrompt() {
	fmt.Print(colorize(colorBold, "> "))
}

// printJob renders one matched listing in the chat REPL. Empty optional
// fields are omitted.
func printJob(index int, job jobRow) {
	fmt.Printf("\n%s\n", colorize(colorBold, fmt.Sprintf("%d. %s at %s", index+1, job.JobTitle, job.Corporate)))
	if job.Level != "" {
		fmt.Printf("   Level: %s\n", job.Level)
	}
	if job.Location != "" {
		fmt.Printf("   Location: %s\n", job.Location)
	}
	if len(job.Requirements) > 0 {
		fmt.Printf("   Requirements: %s\n", strings.Join(job.Requirements, "; "))
	}
}
