// Package errs defines the error taxonomy shared by the scanner, the
// extraction orchestrator and the validator, plus the transient
// classification the retry helper keys off.
package errs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

type FormatKind int

const (
	// FormatTruncated means fewer than the fixed header size was available.
	FormatTruncated FormatKind = iota
	// FormatBadMagic means the leading magic bytes did not match.
	FormatBadMagic
	// FormatUnknownKind means the archive-kind tag is not a recognized value.
	FormatUnknownKind
)

// FormatError reports a malformed container header.
type FormatError struct {
	Path   string
	Kind   FormatKind
	Reason string
}

func (e *FormatError) Error() string {
	switch e.Kind {
	case FormatBadMagic:
		return fmt.Sprintf("invalid magic number in %s", e.Path)
	case FormatUnknownKind:
		return fmt.Sprintf("unsupported archive kind in %s: %s", e.Path, e.Reason)
	default:
		return fmt.Sprintf("truncated header in %s: %s", e.Path, e.Reason)
	}
}

// ValidationError reports a bad configuration or input value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ToolNotFoundError means the external extraction binary is missing. This is
// a batch-level setup failure, never a per-file one.
type ToolNotFoundError struct {
	Path string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("extraction tool not found at %s", e.Path)
}

// ToolError reports a failed external tool invocation. ExecFailed is set when
// the process could not be spawned at all, which is treated as transient (the
// binary may be locked by a scanner or updater); a nonzero exit or error text
// in the output is permanent.
type ToolError struct {
	Path       string
	Output     string
	ExecFailed bool
	Err        error
}

func (e *ToolError) Error() string {
	if e.ExecFailed {
		return fmt.Sprintf("extraction tool failed to run for %s: %v", e.Path, e.Err)
	}
	if e.Output != "" {
		return fmt.Sprintf("extraction tool reported failure for %s: %s", e.Path, e.Output)
	}
	return fmt.Sprintf("extraction tool failed for %s: %v", e.Path, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying: interrupted, would-block
// and timed-out I/O, permission denied (often a temporary file lock on the
// platforms this tool targets), and external-tool spawn failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te.ExecFailed
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}
	return false
}

// UserMessage renders err as a short message suitable for the presentation
// layer, without Go error-chain noise.
func UserMessage(err error) string {
	var fe *FormatError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case FormatBadMagic:
			return fmt.Sprintf("'%s' is not a valid archive", fe.Path)
		case FormatUnknownKind:
			return fmt.Sprintf("'%s' uses an unsupported archive kind", fe.Path)
		default:
			return fmt.Sprintf("archive '%s' is corrupted: %s", fe.Path, fe.Reason)
		}
	}
	var tnf *ToolNotFoundError
	if errors.As(err, &tnf) {
		return fmt.Sprintf("extraction tool not found at '%s'", tnf.Path)
	}
	var te *ToolError
	if errors.As(err, &te) {
		return fmt.Sprintf("failed to process '%s' with the extraction tool", te.Path)
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "file or folder not found"
	case errors.Is(err, os.ErrPermission):
		return "permission denied - check file permissions"
	case errors.Is(err, os.ErrDeadlineExceeded):
		return "operation timed out"
	}
	return err.Error()
}

// RecoverySuggestions returns actionable hints for err, most specific first.
func RecoverySuggestions(err error) []string {
	var fe *FormatError
	if errors.As(err, &fe) {
		return []string{
			"Try re-downloading the mod from its source",
			"Verify the file integrity if available",
			"Skip this file and continue with others",
		}
	}
	var tnf *ToolNotFoundError
	if errors.As(err, &tnf) {
		return []string{
			"Set the extraction tool path with --tool",
			"Download BSArch from the xEdit project",
			"Check whether an antivirus quarantined the binary",
		}
	}
	var te *ToolError
	if errors.As(err, &te) {
		if te.ExecFailed {
			return []string{
				"Try the operation again",
				"Ensure the extraction tool has execute permissions",
			}
		}
		return []string{
			"Check if another program is using the files",
			"Try the operation again",
		}
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		if strings.Contains(ve.Field, "ignore") {
			return []string{
				"Check the ignore patterns for unbalanced regex syntax",
				"Use plain substrings instead of regular expressions",
			}
		}
		return []string{"Correct the value and try again"}
	}
	if errors.Is(err, os.ErrPermission) {
		return []string{
			"Close any programs that might be using these files",
			"Check file and folder permissions",
		}
	}
	if errors.Is(err, os.ErrNotExist) {
		return []string{
			"Verify the path exists and has not been moved",
			"Ensure the drive is connected and accessible",
		}
	}
	return []string{"Try the operation again"}
}
