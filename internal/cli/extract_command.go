package cli

import (
	"flag"
	"fmt"
	"strings"

	"unpackrr/internal/bsarch"
	"unpackrr/internal/extract"
	"unpackrr/internal/model"
	"unpackrr/internal/report"
)

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	sf := addScanFlags(fs)
	toolPath := fs.String("tool", "", "path to the BSArch binary (default: BSArch.exe next to unpackrr)")
	dest := fs.String("dest", "", "extraction destination directory (default: next to each archive)")
	tempDir := fs.String("temp-dir", "", "temporary directory override")
	includeCorrupted := fs.Bool("include-corrupted", false, "attempt extraction of archives whose header failed to parse")
	retryName := fs.String("retry", "default", "retry preset: default|quick|persistent")
	progress := fs.Bool("progress", false, "interactive progress view (pause/resume/cancel with p, r, c)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	outPath := fs.String("out", "", "also write the result as a JSON report file")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := sf.settings()
	if err != nil {
		return err
	}
	settings.ToolPath = strings.TrimSpace(*toolPath)
	settings.ExtractionPath = strings.TrimSpace(*dest)
	settings.TempDir = strings.TrimSpace(*tempDir)
	retryCfg, err := retryPreset(*retryName)
	if err != nil {
		return err
	}

	tool, err := bsarch.NewClient(settings.ResolveToolPath())
	if err != nil {
		return err
	}

	list, err := scanRoot(settings, sf.rootDir(), !*jsonOut && !*progress)
	if err != nil {
		return err
	}
	batch := selectBatch(list, settings.SizeThreshold, *includeCorrupted)
	if len(batch) == 0 {
		if *jsonOut {
			return printJSON(&extract.Result{})
		}
		fmt.Println("nothing to extract")
		return nil
	}

	opts := extract.Options{Tool: tool, Retry: retryCfg, TempDir: settings.TempDir}
	if settings.ExtractionPath != "" {
		opts.Dest = extract.DestPath
		opts.Path = settings.ExtractionPath
	}
	orch, err := extract.New(opts)
	if err != nil {
		return err
	}

	var result *extract.Result
	if *progress && !*jsonOut {
		result, err = runExtractTUI(orch, batch)
	} else {
		result, err = runExtractPlain(orch, batch, *jsonOut)
	}
	if err != nil {
		return err
	}

	if *outPath != "" {
		if err := report.WriteJSON(*outPath, report.NewEnvelope("extract", result)); err != nil {
			return err
		}
	}
	if *jsonOut {
		return printJSON(result)
	}
	printExtractSummary(result)
	if result.Failed > 0 {
		return fmt.Errorf("%d archive(s) failed to extract", result.Failed)
	}
	return nil
}

// selectBatch applies the threshold and corruption policy to a scan result.
func selectBatch(list model.FileEntryList, threshold uint64, includeCorrupted bool) []model.FileEntry {
	list = list.AtLeast(threshold)
	if !includeCorrupted {
		list = list.Eligible()
		return list.Entries
	}
	out := make([]model.FileEntry, 0, list.Len())
	for _, e := range list.Entries {
		if !e.Ignored {
			out = append(out, e)
		}
	}
	return out
}

// runExtractPlain drives a batch without the interactive view, echoing one
// line per file unless JSON output was requested.
func runExtractPlain(orch *extract.Orchestrator, batch []model.FileEntry, quiet bool) (*extract.Result, error) {
	events := make(chan extract.Event, len(batch)*2+8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if quiet {
				continue
			}
			switch ev.Kind {
			case extract.EventFileStarted:
				fmt.Printf("[%d/%d] extracting %s\n", ev.Index+1, len(batch), ev.Name)
			case extract.EventFileCompleted:
				if !ev.Success {
					fmt.Println(corruptedStyle.Render("  failed: " + ev.Message))
				}
			}
		}
	}()
	result, err := orch.Run(batch, events)
	close(events)
	<-done
	return result, err
}

func printExtractSummary(result *extract.Result) {
	fmt.Println()
	if result.Cancelled {
		fmt.Println(mutedStyle.Render("batch cancelled"))
	}
	line := fmt.Sprintf("%d extracted, %d failed", result.Succeeded, result.Failed)
	if result.Failed == 0 {
		fmt.Println(okStyle.Render(line))
	} else {
		fmt.Println(corruptedStyle.Render(line))
		for _, f := range result.Files {
			if !f.Success {
				fmt.Printf("  %s: %s\n", f.Path, f.Error)
			}
		}
	}
}
