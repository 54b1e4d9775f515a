package loam

// DomainMetadata is the frontmatter of a library domain document.
// The document body, when present, holds the domain's reference sequence.
type DomainMetadata struct {
	ID        string `json:"id" mapstructure:"id"`
	Name      string `json:"name" mapstructure:"name"`
	Kind      string `json:"kind" mapstructure:"kind"`
	ChainType string `json:"chain_type" mapstructure:"chain_type"`
	Length    int    `json:"length" mapstructure:"length"`
	Sequence  string `json:"sequence" mapstructure:"sequence"`
}
