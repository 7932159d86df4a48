package tui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// spinnerClock drives the animation; swapped for a fake clock in tests.
var spinnerClock clockwork.Clock = clockwork.NewRealClock()

// Styles render through a stderr-bound renderer so spinner colors survive a
// piped stdout.
var (
	stderrRenderer = lipgloss.NewRenderer(os.Stderr)

	spinStyle = lipgloss.NewStyle().Renderer(stderrRenderer).Foreground(lipgloss.ANSIColor(4))
	okStyle   = lipgloss.NewStyle().Renderer(stderrRenderer).Foreground(lipgloss.ANSIColor(2)).Bold(true)
	badStyle  = lipgloss.NewStyle().Renderer(stderrRenderer).Foreground(lipgloss.ANSIColor(1)).Bold(true)
)

// spinnerState is one animated status line on stderr.
type spinnerState struct {
	started time.Time
	ticker  clockwork.Ticker
	message string
	done    chan struct{}
	colored bool
}

// frame picks the glyph for the current instant. Monochrome runs get a
// static ellipsis.
func (s *spinnerState) frame() string {
	if !s.colored {
		return "..."
	}
	elapsed := time.Since(s.started)
	frames := spinner.Line.Frames
	return frames[int(elapsed/spinner.Line.FPS)%len(frames)]
}

// paint redraws the spinner line in place.
func (s *spinnerState) paint() {
	glyph := s.frame()
	if s.colored {
		glyph = spinStyle.Render(glyph)
	}
	fmt.Fprintf(os.Stderr, "\r%s %s", glyph, s.message)
}

// halt stops the ticker and the animation goroutine, then erases the line.
// The brief sleep lets an in-flight paint finish before the erase.
func (s *spinnerState) halt() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.done != nil {
		close(s.done)
	}
	time.Sleep(10 * time.Millisecond)
	fmt.Fprint(os.Stderr, "\r", ansi.EraseLine(2))
}

// Progress starts or updates the animated status line. The spinner keeps
// drawing until ProgressSuccess or ProgressFail settles it.
// Example: "Checking backend..."
func (u *UI) Progress(message string) {
	if !u.showProgress || !u.enabled {
		return
	}

	// Repeated message: just repaint the current line
	if u.currentSpinner != nil && u.currentSpinner.message == message {
		u.currentSpinner.paint()
		return
	}

	// New message: tear down whatever is spinning and start over
	if u.currentSpinner != nil {
		u.currentSpinner.halt()
		u.currentSpinner = nil
	}

	s := &spinnerState{
		started: time.Now(),
		ticker:  spinnerClock.NewTicker(100 * time.Millisecond),
		message: message,
		done:    make(chan struct{}),
		colored: u.colorEnabled,
	}
	u.currentSpinner = s

	// First frame now; later frames come from the ticker goroutine
	s.paint()
	go func() {
		for {
			select {
			case <-s.ticker.Chan():
				s.paint()
			case <-s.done:
				return
			}
		}
	}()
}

// ProgressSuccess settles the spinner with a green checkmark.
func (u *UI) ProgressSuccess(message string) {
	u.settleSpinner(message, "✓", okStyle, "ProgressSuccess called without a spinner")
}

// ProgressFail settles the spinner with a red cross.
func (u *UI) ProgressFail(message string) {
	u.settleSpinner(message, "✗", badStyle, "ProgressFail called without a spinner")
}

// settleSpinner replaces the animated line with a final status line. An
// empty message reuses the spinner's own text.
func (u *UI) settleSpinner(message, symbol string, style lipgloss.Style, missingSpinnerLog string) {
	if !u.showProgress || !u.enabled {
		return
	}

	s := u.currentSpinner
	if s == nil {
		zap.L().Error(missingSpinnerLog)
		return
	}

	if message == "" {
		message = s.message
	}

	s.halt()
	u.currentSpinner = nil

	if message == "" {
		return
	}
	if u.colorEnabled {
		symbol = style.Render(symbol)
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", symbol, message)
}
