// Package fasta reads and writes protein chains in FASTA format.
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// lineWidth is the residue count per sequence line on output.
const lineWidth = 60

// Read parses every record of r into chains. The chain ID is the first word of the
// header and the name is the rest of it. Sequences are upper-cased with whitespace removed.
func Read(r io.Reader) ([]domain.Chain, error) {
	br := bufio.NewReader(r)

	var (
		chains []domain.Chain
		cur    *domain.Chain
		seq    []byte
		lineNo int
	)
	flush := func() {
		if cur != nil {
			cur.Sequence = string(seq)
			chains = append(chains, *cur)
		}
	}

	for {
		line, err := br.ReadBytes('\n')
		eof := err == io.EOF
		if err != nil && !eof {
			return nil, fmt.Errorf("reading fasta: %w", err)
		}
		lineNo++
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) > 0 && line[0] == '>':
			flush()
			header := strings.TrimSpace(string(line[1:]))
			fields := strings.Fields(header)
			if len(fields) == 0 {
				return nil, fmt.Errorf("line %d: empty fasta header", lineNo)
			}
			cur = &domain.Chain{
				ID:   fields[0],
				Name: strings.TrimSpace(strings.TrimPrefix(header, fields[0])),
			}
			seq = seq[:0:0]
		case len(bytes.TrimSpace(line)) == 0, line[0] == ';':
		default:
			if cur == nil {
				return nil, fmt.Errorf("line %d: sequence before first header", lineNo)
			}
			for _, c := range bytes.ToUpper(line) {
				if c != ' ' && c != '\t' && c != '*' {
					seq = append(seq, c)
				}
			}
		}

		if eof {
			break
		}
	}
	flush()
	return chains, nil
}

// ReadFile reads a FASTA file. "-" reads stdin and a .gz suffix is decompressed.
func ReadFile(path string) ([]domain.Chain, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Read(rc)
}

// Write emits chains as FASTA with wrapped sequence lines.
func Write(w io.Writer, chains ...domain.Chain) error {
	bw := bufio.NewWriter(w)
	for _, c := range chains {
		header := c.ID
		if c.Name != "" {
			header += " " + c.Name
		}
		if _, err := fmt.Fprintf(bw, ">%s\n", header); err != nil {
			return err
		}
		for i := 0; i < len(c.Sequence); i += lineWidth {
			end := min(i+lineWidth, len(c.Sequence))
			if _, err := fmt.Fprintln(bw, c.Sequence[i:end]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}
