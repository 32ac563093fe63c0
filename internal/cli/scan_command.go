package cli

import (
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"unpackrr/internal/config"
	"unpackrr/internal/model"
	"unpackrr/internal/report"
	"unpackrr/internal/scan"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	corruptedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

type scanOutput struct {
	Root    string            `json:"root"`
	Entries []model.FileEntry `json:"entries"`
	Summary scanSummary       `json:"summary"`
}

type scanSummary struct {
	Found      int    `json:"found"`
	Corrupted  int    `json:"corrupted"`
	TotalSize  uint64 `json:"total_size"`
	TotalFiles uint64 `json:"total_files"`
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	sf := addScanFlags(fs)
	sortKey := fs.String("sort", "size", "sort key: name|size|count|folder")
	reverse := fs.Bool("reverse", false, "reverse the sort order")
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
	key, err := parseSortKey(*sortKey)
	if err != nil {
		return err
	}

	list, err := scanRoot(settings, sf.rootDir(), !*jsonOut)
	if err != nil {
		return err
	}
	list = list.AtLeast(settings.SizeThreshold)
	list.Sort(key, *reverse)

	out := scanOutput{
		Root:    sf.rootDir(),
		Entries: list.Entries,
		Summary: scanSummary{
			Found:      list.Len(),
			Corrupted:  list.CorruptedCount(),
			TotalSize:  list.TotalSize(),
			TotalFiles: list.TotalFileCount(),
		},
	}
	if *outPath != "" {
		if err := report.WriteJSON(*outPath, report.NewEnvelope("scan", out)); err != nil {
			return err
		}
	}
	if *jsonOut {
		return printJSON(out)
	}
	printScanTable(out)
	return nil
}

// scanRoot runs the scanner, echoing folder progress when interactive.
func scanRoot(settings config.Settings, root string, echo bool) (model.FileEntryList, error) {
	scanner, err := scan.New(settings)
	if err != nil {
		return model.FileEntryList{}, err
	}
	var events chan scan.Event
	if echo {
		events = make(chan scan.Event, 256)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range events {
				if ev.Kind == scan.EventScanningFolder {
					fmt.Println(mutedStyle.Render("scanning " + ev.Folder))
				}
			}
		}()
		defer func() {
			close(events)
			<-done
		}()
	}
	return scanner.Scan(root, events)
}

func parseSortKey(v string) (model.SortKey, error) {
	switch v {
	case "name":
		return model.SortByName, nil
	case "", "size":
		return model.SortBySize, nil
	case "count":
		return model.SortByFileCount, nil
	case "folder":
		return model.SortByModFolder, nil
	default:
		return 0, fmt.Errorf("unknown sort key %q (want name, size, count or folder)", v)
	}
}

func printScanTable(out scanOutput) {
	if len(out.Entries) == 0 {
		fmt.Println("no archives found")
		return
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-40s %10s %8s  %s", "NAME", "SIZE", "FILES", "MOD FOLDER")))
	for _, e := range out.Entries {
		line := fmt.Sprintf("%-40s %10s %8d  %s", truncate(e.Name, 40), e.SizeDisplay(), e.NumFiles, e.ModFolder)
		if e.Corrupted {
			line = corruptedStyle.Render(line + "  [corrupted]")
		}
		fmt.Println(line)
	}
	fmt.Println()
	fmt.Printf("%d archive(s), %s total, %d corrupted\n",
		out.Summary.Found, config.FormatSize(out.Summary.TotalSize), out.Summary.Corrupted)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}
