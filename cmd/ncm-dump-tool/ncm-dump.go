package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/simonhull/audiounlock/internal/ncm"
	"github.com/simonhull/audiounlock/internal/qmc"
	"github.com/simonhull/audiounlock/internal/types"
)

// Useful for confirming which sections of an NCM container we can actually
// read, or what a QMC file unmasks to.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ncm-dump <file.ncm|file.qmc3|file.qmcflac>")
		os.Exit(1)
	}

	if err := run(os.Stdout, os.Args[1]); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qmc3", ".qmcflac":
		return dumpQMC(w, path)
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return dumpNCM(w, raw)
	}
}

func dumpNCM(w io.Writer, raw []byte) error {
	layout, err := ncm.Inspect(raw)
	if err != nil {
		return err
	}

	for _, s := range layout.Sections {
		fmt.Fprintf(w, "%-16s offset=%-10d size=%d\n", s.Name, s.Offset, s.Length)
	}

	match := "ok"
	if !layout.CRCMatch {
		match = "mismatch"
	}
	fmt.Fprintf(w, "\ncrc: %08x (%s)\n", layout.CRC, match)

	if layout.Metadata == nil {
		fmt.Fprintln(w, "metadata: none")
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, layout.Metadata, "", "  "); err != nil {
		fmt.Fprintf(w, "metadata: %s\n", layout.Metadata)
		return nil
	}
	fmt.Fprintf(w, "metadata:\n%s\n", pretty.String())
	return nil
}

// dumpQMC streams the file through the mask so large files are never held
// in memory.
func dumpQMC(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := qmc.NewReader(f)
	head := make([]byte, 16)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	head = head[:n]

	rest, err := io.Copy(io.Discard, r)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "container: QMC\n")
	fmt.Fprintf(w, "size:      %d\n", int64(n)+rest)
	fmt.Fprintf(w, "format:    %s\n", types.SniffMediaFormat(head))
	fmt.Fprintf(w, "head:      % x\n", head)
	return nil
}
