package cli

import (
	"flag"
	"fmt"
	"strings"

	"unpackrr/internal/bsarch"
	"unpackrr/internal/report"
	"unpackrr/internal/validate"
)

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	sf := addScanFlags(fs)
	toolPath := fs.String("tool", "", "path to the BSArch binary (default: BSArch.exe next to unpackrr)")
	deep := fs.Bool("deep", false, "fully extract each archive to a temp directory instead of listing")
	tempDir := fs.String("temp-dir", "", "temporary directory override for --deep")
	retryName := fs.String("retry", "quick", "retry preset: default|quick|persistent")
	jsonOut := fs.Bool("json", false, "print JSON output")
	outPath := fs.String("out", "", "also write the report as a JSON file")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := sf.settings()
	if err != nil {
		return err
	}
	settings.ToolPath = strings.TrimSpace(*toolPath)
	settings.TempDir = strings.TrimSpace(*tempDir)
	retryCfg, err := retryPreset(*retryName)
	if err != nil {
		return err
	}

	tool, err := bsarch.NewClient(settings.ResolveToolPath())
	if err != nil {
		return err
	}

	list, err := scanRoot(settings, sf.rootDir(), !*jsonOut)
	if err != nil {
		return err
	}
	mode := validate.Quick
	if *deep {
		mode = validate.Deep
	}
	batch := list.AtLeast(settings.SizeThreshold).Entries
	if len(batch) == 0 {
		if *jsonOut {
			return printJSON(&validate.Report{Mode: mode.String()})
		}
		fmt.Println("nothing to check")
		return nil
	}

	checker, err := validate.New(tool, mode, settings.TempDir, retryCfg)
	if err != nil {
		return err
	}

	events := make(chan validate.Event, len(batch)+8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if *jsonOut {
				continue
			}
			status := okStyle.Render("ok")
			if !ev.OK {
				status = corruptedStyle.Render("corrupted")
			}
			fmt.Printf("[%d/%d] %s  %s\n", ev.Index+1, ev.Total, ev.Name, status)
		}
	}()
	checkReport, err := checker.Check(batch, events)
	close(events)
	<-done
	if err != nil {
		return err
	}

	if *outPath != "" {
		if err := report.WriteJSON(*outPath, report.NewEnvelope("check", checkReport)); err != nil {
			return err
		}
	}
	if *jsonOut {
		return printJSON(checkReport)
	}

	fmt.Println()
	fmt.Printf("%d ok, %d corrupted (%s mode)\n", checkReport.OK, checkReport.Corrupted, checkReport.Mode)
	if checkReport.Corrupted > 0 {
		for _, p := range checkReport.CorruptedPaths() {
			fmt.Println("  " + p)
		}
		return fmt.Errorf("%d archive(s) failed validation", checkReport.Corrupted)
	}
	return nil
}
