package runtime

import "github.com/aretw0/domaindetect/pkg/domain"

// DetectGaps scans the chain start, every pair of consecutive assignments, and the chain
// end. Uncovered intervals longer than tolerance become gaps; shorter ones are tolerated
// silently. Assignments must be sorted by start.
func DetectGaps(chainID string, chainLen int, as []domain.DomainAssignment, tolerance int) []domain.Gap {
	var gaps []domain.Gap
	cursor := 0
	for _, a := range as {
		if a.Start-cursor > tolerance {
			gaps = append(gaps, domain.Gap{ChainID: chainID, Start: cursor, End: a.Start})
		}
		cursor = max(cursor, a.End)
	}
	if chainLen-cursor > tolerance {
		gaps = append(gaps, domain.Gap{ChainID: chainID, Start: cursor, End: chainLen})
	}
	return gaps
}
