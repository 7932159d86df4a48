// Package testing provides shared helpers for gemini-mcp tests.
package testing

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
)

// CapturedOutput swaps the process's stdout and stderr for pipes so a test
// can assert on everything a command printed.
type CapturedOutput struct {
	OriginalStdout *os.File
	OriginalStderr *os.File

	stdoutR *os.File
	stderrR *os.File
	stdoutW *os.File
	stderrW *os.File
}

// NewCapturedOutput starts capturing both streams.
func NewCapturedOutput() (*CapturedOutput, error) {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		core.LogDeferredError(stdoutR.Close)
		core.LogDeferredError(stdoutW.Close)
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	captured := &CapturedOutput{
		OriginalStdout: os.Stdout,
		OriginalStderr: os.Stderr,
		stdoutR:        stdoutR,
		stderrR:        stderrR,
		stdoutW:        stdoutW,
		stderrW:        stderrW,
	}
	os.Stdout = stdoutW
	os.Stderr = stderrW
	return captured, nil
}

// Stop restores the original streams and returns everything captured since
// NewCapturedOutput. It may only be called once; the pipes are closed.
func (c *CapturedOutput) Stop() (string, string, error) {
	// Restore first so late writers hit the real streams, then close the
	// write ends so the reads below see EOF.
	os.Stdout = c.OriginalStdout
	os.Stderr = c.OriginalStderr
	core.LogDeferredError(c.stdoutW.Close)
	core.LogDeferredError(c.stderrW.Close)

	// Writes from background goroutines need a moment to settle
	time.Sleep(10 * time.Millisecond)

	stdout, stdoutErr := drain(c.stdoutR)
	stderr, stderrErr := drain(c.stderrR)
	if stdoutErr != nil {
		return "", "", fmt.Errorf("failed to read captured stdout: %w", stdoutErr)
	}
	if stderrErr != nil {
		return "", "", fmt.Errorf("failed to read captured stderr: %w", stderrErr)
	}
	return stdout, stderr, nil
}

// drain reads the pipe to EOF and closes it.
func drain(r *os.File) (string, error) {
	data, err := io.ReadAll(r)
	core.LogDeferredError(r.Close)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
