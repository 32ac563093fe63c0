// Package model holds the entry types shared by the scanner, the extraction
// orchestrator and the validator.
package model

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// FileEntry is one discovered container archive. Entries are immutable after
// the scan except for the Ignored exclusion toggle.
type FileEntry struct {
	// Name is the bare file name.
	Name string `json:"name"`
	// Size is the on-disk size in bytes.
	Size uint64 `json:"size"`
	// NumFiles is the file count the archive header declares.
	NumFiles uint32 `json:"num_files"`
	// ModFolder is the first-tier folder the archive was found under.
	ModFolder string `json:"mod_folder"`
	// Path is the full filesystem path.
	Path string `json:"path"`
	// Corrupted marks entries whose header failed to parse or whose file
	// could not be read. They are reported, never dropped.
	Corrupted bool `json:"corrupted"`
	// Ignored is the caller-controlled exclusion toggle.
	Ignored bool `json:"ignored,omitempty"`
}

// SizeDisplay renders the size for tables, e.g. "150 MB".
func (e FileEntry) SizeDisplay() string {
	return humanize.Bytes(e.Size)
}

// SortKey selects the primary comparison field. Every key produces a total
// order: ties fall back to the full path.
type SortKey int

const (
	SortByName SortKey = iota
	SortBySize
	SortByFileCount
	SortByModFolder
)

// Compare orders e against other under key, ascending. The full path breaks
// ties so repeated sorts are deterministic.
func (e FileEntry) Compare(other FileEntry, key SortKey) int {
	var c int
	switch key {
	case SortByName:
		c = strings.Compare(e.Name, other.Name)
	case SortBySize:
		c = compareUint64(e.Size, other.Size)
	case SortByFileCount:
		c = compareUint64(uint64(e.NumFiles), uint64(other.NumFiles))
	case SortByModFolder:
		c = strings.Compare(e.ModFolder, other.ModFolder)
	}
	if c != 0 {
		return c
	}
	return strings.Compare(e.Path, other.Path)
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FileEntryList is an ordered entry collection with aggregate statistics.
// A scan rebuilds it wholesale; filters return derived lists.
type FileEntryList struct {
	Entries []FileEntry `json:"entries"`
}

// Sort orders the list in place by key; reverse flips the order.
func (l *FileEntryList) Sort(key SortKey, reverse bool) {
	sort.SliceStable(l.Entries, func(i, j int) bool {
		c := l.Entries[i].Compare(l.Entries[j], key)
		if reverse {
			return c > 0
		}
		return c < 0
	})
}

// Len returns the number of entries.
func (l FileEntryList) Len() int { return len(l.Entries) }

// TotalSize is the byte sum over all entries.
func (l FileEntryList) TotalSize() uint64 {
	var total uint64
	for _, e := range l.Entries {
		total += e.Size
	}
	return total
}

// TotalFileCount is the sum of declared file counts.
func (l FileEntryList) TotalFileCount() uint64 {
	var total uint64
	for _, e := range l.Entries {
		total += uint64(e.NumFiles)
	}
	return total
}

// CorruptedCount returns how many entries are flagged corrupted.
func (l FileEntryList) CorruptedCount() int {
	n := 0
	for _, e := range l.Entries {
		if e.Corrupted {
			n++
		}
	}
	return n
}

// CorruptedIndices returns the positions of corrupted entries.
func (l FileEntryList) CorruptedIndices() []int {
	idx := make([]int, 0)
	for i, e := range l.Entries {
		if e.Corrupted {
			idx = append(idx, i)
		}
	}
	return idx
}

// AtLeast returns a derived list keeping entries of at least threshold bytes.
// A zero threshold keeps everything. The receiver is not modified.
func (l FileEntryList) AtLeast(threshold uint64) FileEntryList {
	if threshold == 0 {
		return FileEntryList{Entries: append([]FileEntry(nil), l.Entries...)}
	}
	out := FileEntryList{}
	for _, e := range l.Entries {
		if e.Size >= threshold {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

// Eligible returns a derived list without corrupted or ignored entries.
func (l FileEntryList) Eligible() FileEntryList {
	out := FileEntryList{}
	for _, e := range l.Entries {
		if !e.Corrupted && !e.Ignored {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}
