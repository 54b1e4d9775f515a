package domain

import "sort"

// ChainDiff classifies chains between two submissions.
type ChainDiff struct {
	Added     []string `json:"added,omitempty"`
	Changed   []string `json:"changed,omitempty"`
	Removed   []string `json:"removed,omitempty"`
	Unchanged []string `json:"unchanged,omitempty"`
}

// Empty reports whether nothing was added, changed or removed.
func (d ChainDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Dirty returns the IDs that need a fresh annotation (added and changed).
func (d ChainDiff) Dirty() []string {
	out := make([]string, 0, len(d.Added)+len(d.Changed))
	out = append(out, d.Added...)
	out = append(out, d.Changed...)
	sort.Strings(out)
	return out
}

// DiffChains compares chains by identity and sequence content.
// A chain with the same ID but a different sequence is reported as changed.
// Renaming a chain without touching its sequence does not change it.
func DiffChains(oldChains, newChains []Chain) ChainDiff {
	var diff ChainDiff

	prev := make(map[string]string, len(oldChains))
	for _, c := range oldChains {
		prev[c.ID] = c.Digest()
	}

	seen := make(map[string]bool, len(newChains))
	for _, c := range newChains {
		seen[c.ID] = true
		digest, ok := prev[c.ID]
		switch {
		case !ok:
			diff.Added = append(diff.Added, c.ID)
		case digest != c.Digest():
			diff.Changed = append(diff.Changed, c.ID)
		default:
			diff.Unchanged = append(diff.Unchanged, c.ID)
		}
	}

	for _, c := range oldChains {
		if !seen[c.ID] {
			diff.Removed = append(diff.Removed, c.ID)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Changed)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Unchanged)
	return diff
}
