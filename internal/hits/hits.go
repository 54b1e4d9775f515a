// Package hits parses alignment results into candidate hits.
//
// Two layouts are understood: BLAST-style tabular rows (outfmt 6, optionally with a
// trailing subject-coverage column) and JSON documents holding an array of hits,
// possibly nested under a JSONPath expression.
package hits

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/aretw0/domaindetect/pkg/domain"
)

// Format names a hit serialization.
type Format string

const (
	FormatTabular Format = "tsv"
	FormatJSON    Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tsv", "tabular", "blast", "outfmt6":
		return FormatTabular, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown hit format %q (want tsv or json)", s)
	}
}

// DetectFormat guesses the format from a file extension. Anything but .json is tabular.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatTabular
}

// Options tune parsing.
type Options struct {
	// JSONPath selects the hit array inside a JSON document, e.g. "$.results[*]".
	JSONPath string
	// Library supplies canonical lengths when tabular rows carry no coverage column.
	Library *domain.Library
}

// Read parses hits in the given format.
func Read(r io.Reader, format Format, opts Options) ([]domain.CandidateHit, error) {
	switch format {
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read hits: %w", err)
		}
		return ParseJSON(data, opts.JSONPath)
	case FormatTabular:
		return ParseTabular(r, opts.Library)
	default:
		return nil, fmt.Errorf("unsupported hit format %q", format)
	}
}

// outfmt 6 column positions.
const (
	colQuery = iota
	colSubject
	colIdentity
	colLength
	colMismatch
	colGapOpen
	colQStart
	colQEnd
	colSStart
	colSEnd
	colEValue
	colBitScore
	colCoverage
)

// ParseTabular reads outfmt 6 rows: qseqid sseqid pident length mismatch gapopen
// qstart qend sstart send evalue bitscore [scov]. Query coordinates are 1-based and
// inclusive and are converted to half-open 0-based intervals.
//
// Without the coverage column, coverage is derived from the subject span and the
// domain's canonical length in lib; hits on unknown domains then get zero coverage.
func ParseTabular(r io.Reader, lib *domain.Library) ([]domain.CandidateHit, error) {
	var out []domain.CandidateHit
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < colCoverage {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, colCoverage, len(fields))
		}

		h, err := parseRow(fields, lib)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, h)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hits: %w", err)
	}
	return out, nil
}

func parseRow(fields []string, lib *domain.Library) (domain.CandidateHit, error) {
	h := domain.CandidateHit{
		ChainID:         fields[colQuery],
		LibraryDomainID: fields[colSubject],
	}

	var err error
	if h.PercentIdentity, err = parseFloat("pident", fields[colIdentity]); err != nil {
		return h, err
	}
	if h.EValue, err = parseFloat("evalue", fields[colEValue]); err != nil {
		return h, err
	}
	qstart, err := parseInt("qstart", fields[colQStart])
	if err != nil {
		return h, err
	}
	qend, err := parseInt("qend", fields[colQEnd])
	if err != nil {
		return h, err
	}
	if qstart > qend {
		qstart, qend = qend, qstart
	}
	h.Start, h.End = qstart-1, qend

	if len(fields) > colCoverage {
		if h.PercentCoverage, err = parseFloat("scov", fields[colCoverage]); err != nil {
			return h, err
		}
		return h, nil
	}

	sstart, err := parseInt("sstart", fields[colSStart])
	if err != nil {
		return h, err
	}
	send, err := parseInt("send", fields[colSEnd])
	if err != nil {
		return h, err
	}
	if d, ok := lib.Domain(h.LibraryDomainID); ok && d.CanonicalLength() > 0 {
		span := max(send, sstart) - min(send, sstart) + 1
		h.PercentCoverage = min(100, 100*float64(span)/float64(d.CanonicalLength()))
	}
	return h, nil
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func parseInt(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

// ParseJSON decodes hits from a JSON document. With an empty expression the document
// must be an array of hits; otherwise the expression must select one.
func ParseJSON(data []byte, expr string) ([]domain.CandidateHit, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		var out []domain.CandidateHit
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("hits document is not a JSON array of hits: %w", err)
		}
		return out, nil
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hits document is not valid JSON: %w", err)
	}
	val, err := jsonpath.Get(expr, doc)
	if err != nil {
		return nil, fmt.Errorf("jsonpath %s: %w", expr, err)
	}
	if _, ok := val.([]any); !ok {
		return nil, fmt.Errorf("jsonpath %s: selected %T, want an array of hits", expr, val)
	}

	// Round trip through JSON so field tags drive decoding.
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("jsonpath %s: %w", expr, err)
	}
	var out []domain.CandidateHit
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("jsonpath %s: selected values are not hits: %w", expr, err)
	}
	return out, nil
}
