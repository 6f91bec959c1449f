// Package clipboard reads and writes the system clipboard through the
// platform's clipboard tools, so RIS text can be captured straight from a
// browser copy.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard tool is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// tool is one clipboard program with its copy and paste arguments.
type tool struct {
	name  string
	copy  []string
	paste []string
}

var tools = map[string][]tool{
	"darwin": {
		{name: "pbcopy"},
		{name: "pbpaste"},
	},
	"linux": {
		{name: "wl-copy"},
		{name: "wl-paste", paste: []string{"--no-newline"}},
		{name: "xclip", copy: []string{"-selection", "clipboard"}, paste: []string{"-selection", "clipboard", "-o"}},
		{name: "xsel", copy: []string{"--clipboard", "--input"}, paste: []string{"--clipboard", "--output"}},
	},
}

// command returns the first installed tool able to copy (or paste).
func command(goos string, paste bool, lookPath func(string) (string, error)) (*exec.Cmd, error) {
	for _, t := range tools[goos] {
		if !canDo(t, paste) {
			continue
		}
		if _, err := lookPath(t.name); err != nil {
			continue
		}
		args := t.copy
		if paste {
			args = t.paste
		}
		return exec.Command(t.name, args...), nil
	}
	return nil, ErrClipboardUnavailable
}

// canDo reports whether t handles the direction. The single-purpose tools
// (pbcopy/pbpaste, wl-copy/wl-paste) are told apart by name.
func canDo(t tool, paste bool) bool {
	switch {
	case strings.HasSuffix(t.name, "paste"):
		return paste
	case strings.HasSuffix(t.name, "copy"):
		return !paste
	default:
		return true
	}
}

// IsAvailable reports whether the clipboard can be read on this system.
func IsAvailable() bool {
	_, err := command(runtime.GOOS, true, exec.LookPath)
	return err == nil
}

// Copy copies text to the system clipboard.
func Copy(text string) error {
	cmd, err := command(runtime.GOOS, false, exec.LookPath)
	if err != nil {
		return err
	}
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}

// Paste returns the clipboard contents.
func Paste() (string, error) {
	cmd, err := command(runtime.GOOS, true, exec.LookPath)
	if err != nil {
		return "", err
	}
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("reading clipboard: %w", err)
	}
	return string(out), nil
}
