package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Version is stamped at build time.
var Version = "dev"

func Run(args []string) error {
	args = setupLogging(args)
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "scan":
		return runScan(args[1:])
	case "extract":
		return runExtract(args[1:])
	case "check":
		return runCheck(args[1:])
	case "version":
		fmt.Println("unpackrr", Version)
		return nil
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// setupLogging consumes the global --verbose flag before command dispatch.
func setupLogging(args []string) []string {
	logrus.SetLevel(logrus.WarnLevel)
	out := args[:0:0]
	for _, a := range args {
		if a == "--verbose" || a == "-verbose" {
			logrus.SetLevel(logrus.DebugLevel)
			continue
		}
		out = append(out, a)
	}
	return out
}

func printRootUsage() {
	fmt.Println("unpackrr: batch BA2 archive scanner and extractor")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  unpackrr scan --root <mods-dir>")
	fmt.Println("  unpackrr extract --root <mods-dir> --progress")
	fmt.Println("  unpackrr check --root <mods-dir> --deep")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scan     discover archives under a mod root and report them")
	fmt.Println("  extract  extract discovered archives through BSArch")
	fmt.Println("  check    verify archive integrity (quick list or deep extract)")
	fmt.Println("  version  print the version")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - Use --verbose for debug logging")
	fmt.Println("  - The extraction tool defaults to BSArch.exe next to the binary;")
	fmt.Println("    override with --tool <path>")
}
