package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Chain is a single amino-acid chain submitted for annotation.
// It is immutable once handed to the engine.
type Chain struct {
	ID       string `json:"id" yaml:"id" mapstructure:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Sequence string `json:"sequence" yaml:"sequence" mapstructure:"sequence"`
}

// Len returns the number of residues in the chain.
func (c Chain) Len() int {
	return len(c.Sequence)
}

// Digest returns a stable fingerprint of the chain's sequence content.
// Two chains with the same digest are interchangeable for annotation purposes.
func (c Chain) Digest() string {
	sum := sha256.Sum256([]byte(c.Sequence))
	return hex.EncodeToString(sum[:])
}
