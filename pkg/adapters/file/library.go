package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// libraryDocument is the on-disk layout of a domain library.
type libraryDocument struct {
	Version string                 `json:"version" yaml:"version" toml:"version"`
	Domains []domain.LibraryDomain `json:"domains" yaml:"domains" toml:"domains"`
}

// LibraryLoader implements ports.LibraryLoader over a single YAML, JSON or TOML file.
type LibraryLoader struct {
	Path string
	// Version overrides the version recorded in the file.
	Version string
}

// NewLibraryLoader creates a loader for the library file at path.
func NewLibraryLoader(path string) *LibraryLoader {
	return &LibraryLoader{Path: path}
}

// Load reads and indexes the library. A missing, unreadable or malformed file fails
// with a *domain.LibraryLoadError. Without an explicit version the file content digest
// is used, so cached alignments are invalidated whenever the file changes.
func (l *LibraryLoader) Load(ctx context.Context) (*domain.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(l.Path)
	if err != nil {
		return nil, &domain.LibraryLoadError{Path: l.Path, Err: err}
	}
	if info.IsDir() {
		return nil, &domain.LibraryLoadError{Path: l.Path, Err: fmt.Errorf("is a directory")}
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, &domain.LibraryLoadError{Path: l.Path, Err: err}
	}

	doc, err := decodeLibrary(l.Path, data)
	if err != nil {
		return nil, &domain.LibraryLoadError{Path: l.Path, Err: err}
	}
	if l.Version != "" {
		doc.Version = l.Version
	}
	if doc.Version == "" {
		sum := sha256.Sum256(data)
		doc.Version = "sha256:" + hex.EncodeToString(sum[:8])
	}

	lib, err := domain.NewLibrary(doc.Version, doc.Domains)
	if err != nil {
		return nil, &domain.LibraryLoadError{Path: l.Path, Err: err}
	}
	return lib, nil
}

func decodeLibrary(path string, data []byte) (libraryDocument, error) {
	var doc libraryDocument
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
	default:
		return doc, fmt.Errorf("unsupported library format %q", filepath.Ext(path))
	}
	if err != nil {
		return doc, fmt.Errorf("failed to decode library: %w", err)
	}
	return doc, nil
}
