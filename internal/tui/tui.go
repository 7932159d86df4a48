// Package tui renders the CLI's terminal output: spinners for long
// operations, colored status lines, and markdown listings. Everything
// degrades to plain text when the process is piped, so scripted runs never
// see escape codes.
//
// Output gates:
//   - GEMINI_MCP_QUIET silences all UI output
//   - NO_COLOR, GEMINI_MCP_NO_COLOR or TERM=dumb strip colors
//   - spinners additionally need stderr and stdin on a terminal, and a
//     command that opted in via SetShowProgress
//
// Example usage:
//
//	tui.Progress("Checking backend...")
//	tui.ProgressSuccess("backend healthy")
//
//	rendered, _ := tui.RenderMarkdown(listing, 80)
//	fmt.Print(rendered)
package tui

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// UI holds the capability probes done once at construction. The zero value
// renders nothing; use New.
type UI struct {
	stdoutIsTTY bool
	stderrIsTTY bool
	// enabled gates all interactive output
	enabled      bool
	colorEnabled bool
	// showProgress opts a command into spinner output; off by default so
	// server mode never draws
	showProgress bool
	// currentSpinner is the animated line in flight, nil between spins
	currentSpinner *spinnerState
	// markdownRenderer is built once at the probed terminal width
	markdownRenderer *glamour.TermRenderer
}

// defaultUI backs the package-level helpers
var defaultUI *UI

func init() {
	defaultUI = New()
}

// New probes the terminal and returns a UI wired to the result.
func New() *UI {
	ui := &UI{
		stdoutIsTTY: isTerminal(os.Stdout),
		stderrIsTTY: isTerminal(os.Stderr),
	}

	// Spinners draw on stderr and assume an interactive run, so both
	// stderr and stdin must be terminals.
	ui.enabled = ui.stderrIsTTY && isTerminal(os.Stdin) && !quietRequested()
	ui.colorEnabled = ui.stderrIsTTY && !isColorDisabled()

	if ui.colorEnabled && ui.stdoutIsTTY {
		width := 80
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
		if renderer, err := newMarkdownRenderer(width); err == nil {
			ui.markdownRenderer = renderer
		}
	}

	return ui
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// quietRequested reports whether GEMINI_MCP_QUIET asks for silence. A value
// that does not parse as a bool counts as quiet.
func quietRequested() bool {
	val := os.Getenv("GEMINI_MCP_QUIET")
	if val == "" {
		return false
	}
	if quiet, err := strconv.ParseBool(val); err == nil {
		return quiet
	}
	return true
}

// isColorDisabled honors NO_COLOR (https://no-color.org/), its prefixed
// variant, and dumb terminals.
func isColorDisabled() bool {
	return os.Getenv("NO_COLOR") != "" ||
		os.Getenv("GEMINI_MCP_NO_COLOR") != "" ||
		os.Getenv("TERM") == "dumb"
}

// Enabled reports whether interactive output is on for this process.
func (u *UI) Enabled() bool {
	return u.enabled
}

// ColorEnabled reports whether output may carry ANSI colors.
func (u *UI) ColorEnabled() bool {
	return u.colorEnabled
}

// StdoutIsTTY reports whether stdout is attached to a terminal.
func (u *UI) StdoutIsTTY() bool {
	return u.stdoutIsTTY
}

// StderrIsTTY reports whether stderr is attached to a terminal.
func (u *UI) StderrIsTTY() bool {
	return u.stderrIsTTY
}

// SetShowProgress opts the caller into spinner output. Interactive commands
// such as doctor turn it on; everything else leaves spinners off.
func (u *UI) SetShowProgress(show bool) {
	u.showProgress = show
}

// Info writes a status line to stderr. Unlike spinners it also writes on
// piped runs; only GEMINI_MCP_QUIET suppresses it.
func (u *UI) Info(format string, args ...any) {
	if quietRequested() {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

// RenderMarkdown renders content for the terminal at the given wrap width.
// On piped stdout or with colors off the input comes back untouched.
func (u *UI) RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		return "", fmt.Errorf("width must be greater than 0")
	}
	if !u.stdoutIsTTY || !u.colorEnabled {
		return content, nil
	}

	renderer := u.markdownRenderer
	if renderer == nil {
		created, err := newMarkdownRenderer(width)
		if err != nil {
			return content, err
		}
		renderer = created
	}
	return renderer.Render(content)
}

func newMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}

// Default returns the process-wide UI.
func Default() *UI {
	return defaultUI
}

// Reset rebuilds the process-wide UI, re-probing the terminal. Tests use it
// after changing the environment.
func Reset() {
	defaultUI = New()
}

// Info writes a status line through the process-wide UI.
func Info(format string, args ...any) {
	defaultUI.Info(format, args...)
}

// SetShowProgress opts into spinner output on the process-wide UI.
func SetShowProgress(show bool) {
	defaultUI.SetShowProgress(show)
}

// Progress starts or updates a spinner on the process-wide UI.
func Progress(message string) {
	defaultUI.Progress(message)
}

// ProgressSuccess settles the process-wide spinner with a checkmark.
func ProgressSuccess(message string) {
	defaultUI.ProgressSuccess(message)
}

// ProgressFail settles the process-wide spinner with a cross.
func ProgressFail(message string) {
	defaultUI.ProgressFail(message)
}

// RenderMarkdown renders markdown through the process-wide UI.
func RenderMarkdown(content string, width int) (string, error) {
	return defaultUI.RenderMarkdown(content, width)
}
