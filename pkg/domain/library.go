package domain

import "fmt"

// DomainKind classifies library domains.
type DomainKind string

const (
	KindVariable DomainKind = "variable"
	KindConstant DomainKind = "constant"
	KindHinge    DomainKind = "hinge"
	KindOther    DomainKind = "other"
)

// LibraryDomain is a known structural domain the alignment searches against.
type LibraryDomain struct {
	ID        string     `json:"id" yaml:"id" toml:"id" mapstructure:"id"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty" mapstructure:"name"`
	Kind      DomainKind `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty" mapstructure:"kind"`
	ChainType string     `json:"chain_type,omitempty" yaml:"chain_type,omitempty" toml:"chain_type,omitempty" mapstructure:"chain_type"`

	// Length is the canonical domain length. Zero means len(Sequence).
	Length   int    `json:"length,omitempty" yaml:"length,omitempty" toml:"length,omitempty" mapstructure:"length"`
	Sequence string `json:"sequence,omitempty" yaml:"sequence,omitempty" toml:"sequence,omitempty" mapstructure:"sequence"`
}

// CanonicalLength returns the expected residue count of the domain.
func (d LibraryDomain) CanonicalLength() int {
	if d.Length > 0 {
		return d.Length
	}
	return len(d.Sequence)
}

// Library is an indexed, read-only collection of library domains.
type Library struct {
	Version string          `json:"version"`
	Domains []LibraryDomain `json:"domains"`

	index map[string]int
}

// NewLibrary indexes the given domains. Duplicate or empty IDs are rejected.
func NewLibrary(version string, domains []LibraryDomain) (*Library, error) {
	lib := &Library{
		Version: version,
		Domains: make([]LibraryDomain, 0, len(domains)),
		index:   make(map[string]int, len(domains)),
	}
	for _, d := range domains {
		if d.ID == "" {
			return nil, fmt.Errorf("library domain without id (name %q)", d.Name)
		}
		if _, dup := lib.index[d.ID]; dup {
			return nil, fmt.Errorf("duplicate library domain id %q", d.ID)
		}
		if d.Kind == "" {
			d.Kind = KindOther
		}
		lib.index[d.ID] = len(lib.Domains)
		lib.Domains = append(lib.Domains, d)
	}
	return lib, nil
}

// Domain looks up a library domain by ID.
func (l *Library) Domain(id string) (LibraryDomain, bool) {
	if l == nil {
		return LibraryDomain{}, false
	}
	i, ok := l.index[id]
	if !ok {
		return LibraryDomain{}, false
	}
	return l.Domains[i], true
}

// Len returns the number of domains in the library.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Domains)
}
