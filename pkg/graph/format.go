package graph

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format names a graph file format.
type Format string

const (
	FormatScotch Format = "scotch"
	FormatChaco  Format = "chaco"
	FormatJSON   Format = "json"
)

// extensions maps file extensions to formats.
var extensions = map[string]Format{
	".grf":   FormatScotch,
	".src":   FormatScotch,
	".chaco": FormatChaco,
	".graph": FormatChaco,
	".json":  FormatJSON,
}

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatScotch, FormatChaco, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown graph format %q (want scotch, chaco or json)", name)
}

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Read decodes a graph in format f.
func Read(r io.Reader, f Format) (*Graph, error) {
	switch f {
	case FormatScotch:
		return ReadScotch(r)
	case FormatChaco:
		return ReadChaco(r)
	case FormatJSON:
		return ReadGraph(r)
	}
	return nil, fmt.Errorf("unknown graph format %q", f)
}

// Write encodes g in format f.
func Write(w io.Writer, g *Graph, f Format) error {
	switch f {
	case FormatScotch:
		return WriteScotch(w, g)
	case FormatChaco:
		return WriteChaco(w, g)
	case FormatJSON:
		return WriteGraph(g, w)
	}
	return fmt.Errorf("unknown graph format %q", f)
}

// sniffSize is how much input [Decode] inspects.
const sniffSize = 64 * 1024

// Detect guesses the format of a graph from its first bytes. JSON starts
// with '{'. A Scotch file starts with its version alone on a line, while a
// Chaco header holds at least two numbers. Comment lines are skipped.
func Detect(head []byte) Format {
	for len(head) > 0 {
		line := head
		if i := bytes.IndexByte(head, '\n'); i >= 0 {
			line, head = head[:i], head[i+1:]
		} else {
			head = nil
		}
		trimmed := bytes.TrimSpace(line)
		switch {
		case len(trimmed) == 0, trimmed[0] == '%':
			continue
		case trimmed[0] == '{':
			return FormatJSON
		case len(bytes.Fields(trimmed)) == 1:
			return FormatScotch
		}
		return FormatChaco
	}
	return FormatChaco
}

// Decode reads a graph in any supported format, chosen by [Detect].
func Decode(r io.Reader) (*Graph, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	return Read(br, Detect(head))
}

// ReadFile reads a graph from path. The format follows the extension:
// ".grf" and ".src" for Scotch, ".chaco" and ".graph" for Chaco, ".json"
// for JSON. Other files are decoded by content.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if format, ok := FormatOf(path); ok {
		return Read(f, format)
	}
	return Decode(f)
}

// WriteFile writes g to path in the format implied by its extension, or
// in Chaco format when the extension is unknown. The file is created with
// 0644 permissions.
func WriteFile(g *Graph, path string) error {
	format, ok := FormatOf(path)
	if !ok {
		format = FormatChaco
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeAndClose(f, g, format); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeAndClose writes g to wc and closes it. A failed close is reported
// when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, g *Graph, format Format) error {
	if err := Write(wc, g, format); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}
