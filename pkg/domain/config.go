package domain

import (
	"fmt"
	"strings"
)

// BoundaryPolicy controls how accepted hits are adjusted at inter-domain gaps.
type BoundaryPolicy int

const (
	// BoundaryMin leaves boundaries at their raw alignment extent.
	BoundaryMin BoundaryPolicy = iota
	// BoundaryMax extends neighbouring domains to meet in the middle of every gap.
	BoundaryMax
	// BoundaryMinMax behaves as BoundaryMax for gaps up to MaxDomainDistance and as BoundaryMin otherwise.
	BoundaryMinMax
)

func (p BoundaryPolicy) String() string {
	switch p {
	case BoundaryMin:
		return "MIN"
	case BoundaryMax:
		return "MAX"
	case BoundaryMinMax:
		return "MINMAX"
	default:
		return fmt.Sprintf("BoundaryPolicy(%d)", int(p))
	}
}

// ParseBoundaryPolicy accepts MIN, MAX or MINMAX (case-insensitive).
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MIN":
		return BoundaryMin, nil
	case "MAX":
		return BoundaryMax, nil
	case "MINMAX":
		return BoundaryMinMax, nil
	}
	return 0, fmt.Errorf("unknown boundary policy %q (want MIN, MAX or MINMAX)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p BoundaryPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *BoundaryPolicy) UnmarshalText(text []byte) error {
	v, err := ParseBoundaryPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// TieBreak decides between candidate subsets with equal total score.
type TieBreak int

const (
	// TieBreakCoverage prefers the subset that leaves fewer residues unassigned.
	TieBreakCoverage TieBreak = iota
	// TieBreakFewerDomains prefers the subset with fewer assignments, then coverage.
	TieBreakFewerDomains
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakCoverage:
		return "coverage"
	case TieBreakFewerDomains:
		return "fewer_domains"
	default:
		return fmt.Sprintf("TieBreak(%d)", int(t))
	}
}

// ParseTieBreak accepts "coverage" or "fewer_domains".
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coverage", "":
		return TieBreakCoverage, nil
	case "fewer_domains", "fewer-domains":
		return TieBreakFewerDomains, nil
	}
	return 0, fmt.Errorf("unknown tie break %q (want coverage or fewer_domains)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t TieBreak) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TieBreak) UnmarshalText(text []byte) error {
	v, err := ParseTieBreak(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Config holds the resolution policy. Keys match the editor's settings dialog.
type Config struct {
	BoundaryPolicy       BoundaryPolicy `json:"domainBoundaryPolicy" yaml:"domainBoundaryPolicy" toml:"domainBoundaryPolicy" mapstructure:"domainBoundaryPolicy"`
	MaxDomainDistance    int            `json:"maxDomainDistance" yaml:"maxDomainDistance" toml:"maxDomainDistance" mapstructure:"maxDomainDistance"`
	AutoextendDomains    bool           `json:"autoextendDomains" yaml:"autoextendDomains" toml:"autoextendDomains" mapstructure:"autoextendDomains"`
	DomainConflictSolver bool           `json:"domainConflictSolver" yaml:"domainConflictSolver" toml:"domainConflictSolver" mapstructure:"domainConflictSolver"`

	// LowerSortingThreshold separates significant from excluded hits.
	LowerSortingThreshold float64 `json:"lowerSortingThreshold" yaml:"lowerSortingThreshold" toml:"lowerSortingThreshold" mapstructure:"lowerSortingThreshold"`
	// UpperSortingThreshold separates highly significant from significant hits.
	UpperSortingThreshold float64 `json:"upperSortingThreshold" yaml:"upperSortingThreshold" toml:"upperSortingThreshold" mapstructure:"upperSortingThreshold"`

	SkipHitPercentCoverageThreshold int `json:"skipHitPercentCoverageThreshold" yaml:"skipHitPercentCoverageThreshold" toml:"skipHitPercentCoverageThreshold" mapstructure:"skipHitPercentCoverageThreshold"`
	SkipHitPercentIdentityThreshold int `json:"skipHitPercentIdentityThreshold" yaml:"skipHitPercentIdentityThreshold" toml:"skipHitPercentIdentityThreshold" mapstructure:"skipHitPercentIdentityThreshold"`

	TieBreak TieBreak `json:"tieBreak" yaml:"tieBreak" toml:"tieBreak" mapstructure:"tieBreak"`
}

// DefaultConfig returns the settings the editor ships with.
func DefaultConfig() Config {
	return Config{
		BoundaryPolicy:                  BoundaryMinMax,
		MaxDomainDistance:               10,
		AutoextendDomains:               true,
		DomainConflictSolver:            false,
		LowerSortingThreshold:           1e-3,
		UpperSortingThreshold:           1e-10,
		SkipHitPercentCoverageThreshold: 50,
		SkipHitPercentIdentityThreshold: 30,
		TieBreak:                        TieBreakCoverage,
	}
}

// Validate checks ranges and cross-field constraints.
// It returns an *AggregateError listing every violation.
func (c Config) Validate() error {
	var errs []error
	switch c.BoundaryPolicy {
	case BoundaryMin, BoundaryMax, BoundaryMinMax:
	default:
		errs = append(errs, &ConfigError{Key: "domainBoundaryPolicy", Reason: "must be MIN, MAX or MINMAX", Value: int(c.BoundaryPolicy)})
	}
	if c.MaxDomainDistance < 0 {
		errs = append(errs, &ConfigError{Key: "maxDomainDistance", Reason: "must be >= 0", Value: c.MaxDomainDistance})
	}
	if c.LowerSortingThreshold < 0 {
		errs = append(errs, &ConfigError{Key: "lowerSortingThreshold", Reason: "must be >= 0", Value: c.LowerSortingThreshold})
	}
	if c.UpperSortingThreshold < 0 {
		errs = append(errs, &ConfigError{Key: "upperSortingThreshold", Reason: "must be >= 0", Value: c.UpperSortingThreshold})
	}
	if c.UpperSortingThreshold > c.LowerSortingThreshold {
		errs = append(errs, &ConfigError{Key: "upperSortingThreshold", Reason: "must be <= lowerSortingThreshold", Value: c.UpperSortingThreshold})
	}
	if c.SkipHitPercentCoverageThreshold < 0 || c.SkipHitPercentCoverageThreshold > 100 {
		errs = append(errs, &ConfigError{Key: "skipHitPercentCoverageThreshold", Reason: "must be within 0..100", Value: c.SkipHitPercentCoverageThreshold})
	}
	if c.SkipHitPercentIdentityThreshold < 0 || c.SkipHitPercentIdentityThreshold > 100 {
		errs = append(errs, &ConfigError{Key: "skipHitPercentIdentityThreshold", Reason: "must be within 0..100", Value: c.SkipHitPercentIdentityThreshold})
	}
	switch c.TieBreak {
	case TieBreakCoverage, TieBreakFewerDomains:
	default:
		errs = append(errs, &ConfigError{Key: "tieBreak", Reason: "must be coverage or fewer_domains", Value: int(c.TieBreak)})
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Effective returns the config with implied switches applied:
// the conflict solver forces autoextension on.
func (c Config) Effective() Config {
	if c.DomainConflictSolver {
		c.AutoextendDomains = true
	}
	return c
}

// OverlapTolerance returns the largest overlap (in residues) two accepted hits may
// share before one must be dropped. A negative value means no cap.
func (c Config) OverlapTolerance() int {
	if c.DomainConflictSolver {
		return -1
	}
	return c.MaxDomainDistance
}
