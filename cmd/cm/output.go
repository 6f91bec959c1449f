package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/citationmanager/cm/internal/clipboard"
)

// DefaultSearchLimit is the default limit for search results.
const DefaultSearchLimit = 50

// SearchTitleMaxLen is the title truncation length in search summaries.
const SearchTitleMaxLen = 70

var (
	okColor      = color.New(color.FgGreen).SprintFunc()
	missingColor = color.New(color.FgRed, color.Bold).SprintFunc()
	keyColor     = color.New(color.FgCyan).SprintFunc()
	dimColor     = color.New(color.Faint).SprintFunc()
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "%s %s\n", missingColor("error:"), msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	_ = logger.Sync()
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// readInput reads a file argument, or stdin when the argument is "-".
func readInput(path string) string {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", path, err)
	}
	return string(data)
}

// readRecordInput reads the RIS text named by the optional argument,
// falling back to the clipboard when there is none.
func readRecordInput(args []string) string {
	if len(args) > 0 {
		return readInput(args[0])
	}
	if !clipboard.IsAvailable() {
		exitWithError(ExitError, "no input file given and the clipboard cannot be read (install pbpaste, wl-paste, xclip or xsel)")
	}
	text, err := clipboard.Paste()
	if err != nil {
		exitWithError(ExitError, "no input file given and %v", err)
	}
	return text
}

// splitKeys splits a comma-separated key list, dropping blanks.
func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
