package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLibraryLoadFailed is fatal to a session: no search is attempted afterwards.
	ErrLibraryLoadFailed = errors.New("library load failed")

	// ErrLibraryNotLoaded is returned when a search is requested without a library.
	ErrLibraryNotLoaded = errors.New("library not loaded")

	// ErrAlignmentFailed wraps failures of the alignment collaborator for one chain.
	ErrAlignmentFailed = errors.New("alignment failed")

	// ErrOverlappingDomains blocks peptide construction until the overlap is resolved.
	// It is recoverable: edit the domain table and resolve again.
	ErrOverlappingDomains = errors.New("overlapping domains")

	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrSessionCanceled is returned by operations interrupted by Session.Cancel.
	ErrSessionCanceled = errors.New("session canceled")

	// ErrSessionNotFound is returned when a session ID is unknown to the manager.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMutationScanFailed marks downstream scan failures. Built peptides stay valid.
	ErrMutationScanFailed = errors.New("mutation scan failed")

	// ErrInvalidChain is returned for chain submissions with missing or duplicate IDs.
	ErrInvalidChain = errors.New("invalid chain")

	// ErrCacheMiss is returned by hit caches when no entry exists for a key.
	ErrCacheMiss = errors.New("cache miss")
)

// IsFatal reports whether err leaves the session unusable.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLibraryLoadFailed) || errors.Is(err, ErrLibraryNotLoaded)
}

// LibraryLoadError describes why the domain library could not be loaded.
type LibraryLoadError struct {
	Path string
	Err  error
}

func (e *LibraryLoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrLibraryLoadFailed, e.Path, e.Err)
}

func (e *LibraryLoadError) Unwrap() []error {
	return []error{ErrLibraryLoadFailed, e.Err}
}

// AlignmentError is returned when the alignment collaborator fails for a chain.
type AlignmentError struct {
	ChainID string
	Err     error
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s for chain %q: %v", ErrAlignmentFailed, e.ChainID, e.Err)
}

func (e *AlignmentError) Unwrap() []error {
	return []error{ErrAlignmentFailed, e.Err}
}

// Conflict is a pair of assignments that still overlap after all adjustment policies.
type Conflict struct {
	A DomainAssignment `json:"a"`
	B DomainAssignment `json:"b"`
}

// ConflictError lists unresolved overlaps on a single chain.
type ConflictError struct {
	ChainID   string
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s[%d,%d) x %s[%d,%d)",
			c.A.DomainID, c.A.Start, c.A.End, c.B.DomainID, c.B.Start, c.B.End))
	}
	return fmt.Sprintf("chain %q: unresolved conflicts: %s", e.ChainID, strings.Join(parts, ", "))
}

func (e *ConflictError) Unwrap() error {
	return ErrOverlappingDomains
}

// ChainIssue explains why a chain failed certification.
type ChainIssue struct {
	ChainID string `json:"chain_id"`
	Reason  string `json:"reason"`
}

// IncompatibleChainsError is returned by certification when one or more chains are not
// ready for peptide construction. The session stays RESOLVED.
type IncompatibleChainsError struct {
	Issues []ChainIssue
}

func (e *IncompatibleChainsError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", is.ChainID, is.Reason))
	}
	return fmt.Sprintf("%s: %d incompatible chain(s): %s", ErrOverlappingDomains, len(e.Issues), strings.Join(parts, "; "))
}

func (e *IncompatibleChainsError) Unwrap() error {
	return ErrOverlappingDomains
}

// ChainIDs returns the IDs of the incompatible chains in report order.
func (e *IncompatibleChainsError) ChainIDs() []string {
	seen := make(map[string]bool, len(e.Issues))
	ids := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if !seen[is.ChainID] {
			seen[is.ChainID] = true
			ids = append(ids, is.ChainID)
		}
	}
	return ids
}

// TransitionError reports an operation attempted from the wrong lifecycle state.
type TransitionError struct {
	From SessionState
	To   SessionState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// MutationScanError wraps failures of the downstream mutation scanner.
type MutationScanError struct {
	Err error
}

func (e *MutationScanError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMutationScanFailed, e.Err)
}

func (e *MutationScanError) Unwrap() []error {
	return []error{ErrMutationScanFailed, e.Err}
}

// ConfigError represents a single configuration field failure.
type ConfigError struct {
	Key    string // Option name as shown in the settings dialog
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("option %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("option %q: %s (got %v)", e.Key, e.Reason, e.Value)
}

// AggregateError represents multiple failures reported together.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

func (e *AggregateError) Unwrap() []error {
	return e.Errors
}
