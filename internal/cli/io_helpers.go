package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"unpackrr/internal/config"
	"unpackrr/internal/retry"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// splitList parses a comma-separated flag value, dropping blank items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// defaultPostfixes are the archive suffixes worth extracting when the user
// configures none.
var defaultPostfixes = []string{"- main.ba2", "- textures.ba2"}

// scanFlags are the settings flags shared by scan, extract and check.
type scanFlags struct {
	root      *string
	postfixes *string
	ignore    *string
	threshold *string
	workers   *int
}

func addScanFlags(fs *flag.FlagSet) *scanFlags {
	return &scanFlags{
		root:      fs.String("root", "", "mod root directory to scan (required)"),
		postfixes: fs.String("postfixes", "", "comma-separated filename suffixes (default: \"- main.ba2, - textures.ba2\")"),
		ignore:    fs.String("ignore", "", "comma-separated ignore patterns (substring, or regex if it looks like one)"),
		threshold: fs.String("threshold", "", "minimum archive size, e.g. \"100 MB\" (default: no threshold)"),
		workers:   fs.Int("workers", 0, "scan worker pool size (0 = number of CPUs)"),
	}
}

// settings builds the core settings value from parsed flags.
func (f *scanFlags) settings() (config.Settings, error) {
	root := strings.TrimSpace(*f.root)
	if root == "" {
		return config.Settings{}, fmt.Errorf("--root is required")
	}
	threshold, err := config.ParseSize(*f.threshold)
	if err != nil {
		return config.Settings{}, err
	}
	postfixes := splitList(*f.postfixes)
	if len(postfixes) == 0 {
		postfixes = defaultPostfixes
	}
	return config.Settings{
		Postfixes:      postfixes,
		IgnorePatterns: splitList(*f.ignore),
		SizeThreshold:  threshold,
		ScanWorkers:    *f.workers,
	}, nil
}

func (f *scanFlags) rootDir() string { return strings.TrimSpace(*f.root) }

// retryPreset maps a --retry flag value to a policy.
func retryPreset(name string) (retry.Config, error) {
	switch name {
	case "", "default":
		return retry.Default(), nil
	case "quick":
		return retry.Quick(), nil
	case "persistent":
		return retry.Persistent(), nil
	default:
		return retry.Config{}, fmt.Errorf("unknown retry preset %q (want default, quick or persistent)", name)
	}
}
