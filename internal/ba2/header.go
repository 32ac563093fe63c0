// Package ba2 parses the fixed-size header of Bethesda BA2 container
// archives. Parsing reads only the first 24 bytes; everything else about the
// archive is the extraction tool's business.
package ba2

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"unpackrr/internal/errs"
)

const (
	// HeaderSize is the exact on-disk size of a BA2 header.
	HeaderSize = 24

	// KindGeneral tags general-purpose archives.
	KindGeneral = "GNRL"
	// KindTexture tags texture-chunked archives.
	KindTexture = "DX10"
)

// Magic is the expected leading tag of every BA2 archive.
var Magic = [4]byte{'B', 'T', 'D', 'X'}

// Header is the decoded 24-byte BA2 header. Immutable once parsed.
//
// Layout (little-endian):
//
//	magic       [4]byte  "BTDX"
//	version     uint32
//	kind        [4]byte  padded string, "GNRL" or "DX10"
//	file count  uint32
//	name table  uint64   offset of the file-name table
type Header struct {
	Magic       [4]byte
	Version     uint32
	Kind        string
	FileCount   uint32
	NamesOffset uint64
}

// ParseFile reads and validates the header of the archive at path.
func ParseFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads exactly HeaderSize bytes from r and validates them. The path is
// carried into errors for diagnostics only.
func Parse(r io.Reader, path string) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, &errs.FormatError{
			Path:   path,
			Kind:   errs.FormatTruncated,
			Reason: fmt.Sprintf("read header: %v", err),
		}
	}

	var h Header
	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.Kind = strings.TrimRight(string(buf[8:12]), "\x00")
	h.FileCount = binary.LittleEndian.Uint32(buf[12:16])
	h.NamesOffset = binary.LittleEndian.Uint64(buf[16:24])

	if h.Magic != Magic {
		return Header{}, &errs.FormatError{Path: path, Kind: errs.FormatBadMagic}
	}
	if h.Kind != KindGeneral && h.Kind != KindTexture {
		return Header{}, &errs.FormatError{
			Path:   path,
			Kind:   errs.FormatUnknownKind,
			Reason: h.Kind,
		}
	}
	return h, nil
}

// IsGeneral reports whether the archive holds general-purpose files.
func (h Header) IsGeneral() bool { return h.Kind == KindGeneral }

// IsTexture reports whether the archive holds chunked textures.
func (h Header) IsTexture() bool { return h.Kind == KindTexture }

// NumFiles returns the declared file count of the archive at path. Only the
// header is read, so this is cheap for any archive size.
func NumFiles(path string) (uint32, error) {
	h, err := ParseFile(path)
	if err != nil {
		return 0, err
	}
	return h.FileCount, nil
}

// Validate reports whether path holds a parseable BA2 header. Best effort:
// any failure, including the file being unreadable, yields false.
func Validate(path string) bool {
	_, err := ParseFile(path)
	return err == nil
}
