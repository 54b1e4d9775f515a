package domain

import "fmt"

// CandidateHit is a raw match reported by the alignment collaborator.
// Many hits per chain are normal and they are expected to overlap.
type CandidateHit struct {
	ChainID         string  `json:"chain_id" yaml:"chain_id" mapstructure:"chain_id"`
	LibraryDomainID string  `json:"library_domain_id" yaml:"library_domain_id" mapstructure:"library_domain_id"`
	Start           int     `json:"start" yaml:"start" mapstructure:"start"`
	End             int     `json:"end" yaml:"end" mapstructure:"end"`
	PercentIdentity float64 `json:"percent_identity" yaml:"percent_identity" mapstructure:"percent_identity"`
	PercentCoverage float64 `json:"percent_coverage" yaml:"percent_coverage" mapstructure:"percent_coverage"`
	EValue          float64 `json:"evalue" yaml:"evalue" mapstructure:"evalue"`
}

// Len returns the number of residues covered on the chain.
func (h CandidateHit) Len() int {
	return h.End - h.Start
}

func (h CandidateHit) String() string {
	return fmt.Sprintf("%s[%d,%d)@%s", h.LibraryDomainID, h.Start, h.End, h.ChainID)
}

// Regime is the significance tier a hit falls in.
type Regime int

const (
	// RegimeExcluded hits are never selected but remain visible to the user.
	RegimeExcluded Regime = iota
	// RegimeSignificant hits are ranked by coverage alone.
	RegimeSignificant
	// RegimeHighlySignificant hits are ranked by coverage times identity.
	RegimeHighlySignificant
)

func (r Regime) String() string {
	switch r {
	case RegimeHighlySignificant:
		return "highly_significant"
	case RegimeSignificant:
		return "significant"
	default:
		return "excluded"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Regime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "highly_significant":
		*r = RegimeHighlySignificant
	case "significant":
		*r = RegimeSignificant
	case "excluded":
		*r = RegimeExcluded
	default:
		return fmt.Errorf("unknown regime %q", string(text))
	}
	return nil
}

// ScoredHit is a CandidateHit with its significance regime and rank key.
type ScoredHit struct {
	CandidateHit
	Regime Regime  `json:"regime"`
	Rank   float64 `json:"rank"`
}

// Selectable reports whether the hit may take part in conflict resolution.
func (h ScoredHit) Selectable() bool {
	return h.Regime != RegimeExcluded
}
