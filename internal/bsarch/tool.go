// Package bsarch wraps the external BSArch extraction binary. The tool is a
// black box behind the Invoker interface so everything above it can run
// against a fake in tests.
package bsarch

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"unpackrr/internal/errs"
)

// Invoker is the narrow capability the orchestrator and validator need.
type Invoker interface {
	// Extract unpacks the archive at src into the directory dst.
	Extract(src, dst string) error
	// List enumerates the archive's contents without writing output.
	List(src string) ([]string, error)
}

// Client invokes the real binary.
type Client struct {
	toolPath string
}

// NewClient validates that toolPath exists and returns a client for it.
// A missing binary is the batch-level ToolNotFoundError.
func NewClient(toolPath string) (*Client, error) {
	info, err := os.Stat(toolPath)
	if err != nil || info.IsDir() {
		return nil, &errs.ToolNotFoundError{Path: toolPath}
	}
	return &Client{toolPath: toolPath}, nil
}

// ToolPath returns the configured binary path.
func (c *Client) ToolPath() string { return c.toolPath }

// Validate re-checks that the binary is still present.
func (c *Client) Validate() error {
	if _, err := os.Stat(c.toolPath); err != nil {
		return &errs.ToolNotFoundError{Path: c.toolPath}
	}
	return nil
}

// Extract runs `<tool> unpack <src> <dst>`.
func (c *Client) Extract(src, dst string) error {
	logrus.WithFields(logrus.Fields{"src": src, "dst": dst}).Debug("extracting archive")
	_, err := c.run(src, "unpack", src, dst)
	return err
}

// List runs `<tool> <src> -list` and returns the enumerated entries.
func (c *Client) List(src string) ([]string, error) {
	logrus.WithField("src", src).Debug("listing archive")
	out, err := c.run(src, src, "-list")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Archive:") || strings.HasPrefix(line, "Files:") {
			continue
		}
		files = append(files, line)
	}
	return files, nil
}

// run spawns the tool with the console window suppressed, captures combined
// output, and classifies failures. The binary does not reliably set its exit
// status, so error text in the output counts as failure too.
func (c *Client) run(archive string, args ...string) (string, error) {
	cmd := exec.Command(c.toolPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	hideConsoleWindow(cmd)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.String(), &errs.ToolError{
				Path:   archive,
				Output: outputTail(out.String()),
				Err:    fmt.Errorf("exit status %d", exitErr.ExitCode()),
			}
		}
		return out.String(), &errs.ToolError{
			Path:       archive,
			ExecFailed: true,
			Err:        err,
		}
	}

	if reportsError(out.String()) {
		return out.String(), &errs.ToolError{
			Path:   archive,
			Output: outputTail(out.String()),
		}
	}
	return out.String(), nil
}

func reportsError(output string) bool {
	return strings.Contains(output, "Error:") || strings.Contains(output, "error:")
}

// outputTail keeps the last non-empty line, which is where the tool puts its
// failure reason.
func outputTail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
