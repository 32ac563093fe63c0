// Package config holds the settings value the core consumes. Loading and
// persisting a settings file is the frontend's business; the core only sees
// this validated value, passed explicitly into constructors.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"unpackrr/internal/errs"
)

// DefaultToolName is the extraction binary resolved next to the executable
// when no explicit tool path is configured.
const DefaultToolName = "BSArch.exe"

// Settings is everything the scanner, orchestrator and validator read.
type Settings struct {
	// Postfixes are the accepted filename suffixes, matched case-insensitively.
	Postfixes []string
	// IgnorePatterns exclude files: exact full path, filename substring, or a
	// fully anchored regex when the pattern looks like one (see LooksLikeRegex).
	IgnorePatterns []string
	// SizeThreshold in bytes filters the entry list before extraction; 0 means
	// no threshold.
	SizeThreshold uint64
	// ToolPath is the external extraction binary. Empty means DefaultToolName
	// next to the running executable.
	ToolPath string
	// ExtractionPath overrides the in-place destination. Empty extracts next
	// to each archive.
	ExtractionPath string
	// TempDir overrides the system temp directory for deep validation.
	TempDir string
	// ScanWorkers bounds the scan worker pool; 0 picks a default.
	ScanWorkers int
}

// Validate checks the settings the way the excluded config component would:
// at least one postfix, and every regex-looking ignore pattern must compile.
func (s *Settings) Validate() error {
	if len(s.Postfixes) == 0 {
		return &errs.ValidationError{Field: "postfixes", Reason: "at least one postfix is required"}
	}
	for _, p := range s.Postfixes {
		if strings.TrimSpace(p) == "" {
			return &errs.ValidationError{Field: "postfixes", Reason: "postfix must not be blank"}
		}
	}
	if _, err := NewIgnoreSet(s.IgnorePatterns); err != nil {
		return err
	}
	return nil
}

// ResolveToolPath returns the configured tool path, or DefaultToolName next
// to the current executable when unset.
func (s Settings) ResolveToolPath() string {
	if strings.TrimSpace(s.ToolPath) != "" {
		return s.ToolPath
	}
	exe, err := os.Executable()
	if err != nil {
		return DefaultToolName
	}
	return filepath.Join(filepath.Dir(exe), DefaultToolName)
}

// RegexMetaChars is the character set that promotes an ignore pattern from
// substring matching to anchored regex matching. A plain filename containing
// one of these (a dot, most commonly) is treated as a regex, so patterns
// like "Mod.ba2" match as `^Mod.ba2$` and not by containment.
const RegexMetaChars = `[]()*+?|^$\.`

// LooksLikeRegex reports whether pattern contains any regex metacharacter.
func LooksLikeRegex(pattern string) bool {
	return strings.ContainsAny(pattern, RegexMetaChars)
}

type ignoreRule struct {
	literal string
	re      *regexp.Regexp
}

// IgnoreSet is a compiled, ordered ignore rule list.
type IgnoreSet struct {
	rules []ignoreRule
	exact map[string]struct{}
}

// NewIgnoreSet compiles patterns. Regex-looking patterns are compiled fully
// anchored; a compile failure is a ValidationError naming the pattern.
func NewIgnoreSet(patterns []string) (*IgnoreSet, error) {
	set := &IgnoreSet{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		set.exact[p] = struct{}{}
		if LooksLikeRegex(p) {
			re, err := regexp.Compile("^(?:" + p + ")$")
			if err != nil {
				return nil, &errs.ValidationError{
					Field:  "ignore pattern",
					Reason: fmt.Sprintf("%q is not a valid regular expression: %v", p, err),
				}
			}
			set.rules = append(set.rules, ignoreRule{re: re})
			continue
		}
		set.rules = append(set.rules, ignoreRule{literal: p})
	}
	return set, nil
}

// MatchesName reports whether the bare file name hits any rule: substring
// containment for literals, anchored full match for regexes.
func (s *IgnoreSet) MatchesName(name string) bool {
	for _, r := range s.rules {
		if r.re != nil {
			if r.re.MatchString(name) {
				return true
			}
			continue
		}
		if strings.Contains(name, r.literal) {
			return true
		}
	}
	return false
}

// MatchesPath checks an exact full-path rule first, then the name rules.
func (s *IgnoreSet) MatchesPath(path string) bool {
	if _, ok := s.exact[path]; ok {
		return true
	}
	return s.MatchesName(filepath.Base(path))
}

// ParseSize converts a human size string ("100 MB", "1.5GiB", "2048") to
// bytes. Empty input means no threshold.
func ParseSize(v string) (uint64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, &errs.ValidationError{Field: "size", Reason: fmt.Sprintf("%q: %v", v, err)}
	}
	return n, nil
}

// FormatSize renders bytes the way the tables display them, e.g. "150 MB".
func FormatSize(n uint64) string {
	return humanize.Bytes(n)
}
