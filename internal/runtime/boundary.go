package runtime

import "github.com/aretw0/domaindetect/pkg/domain"

// applyBoundaryPolicy adjusts the mutual boundary of neighbouring assignments.
//
//   - MIN leaves every gap untouched.
//   - MAX closes every gap; both domains meet in the middle (odd gaps favour the right one).
//   - MINMAX closes gaps of at most maxDistance, the same bound the gap detector
//     tolerates, and leaves wider ones for it to report.
//
// Chain termini are not touched here, see autoextension.
func applyBoundaryPolicy(as []domain.DomainAssignment, policy domain.BoundaryPolicy, maxDistance int) {
	if policy == domain.BoundaryMin {
		return
	}
	for i := 1; i < len(as); i++ {
		prev, cur := &as[i-1], &as[i]
		gap := cur.Start - prev.End
		if gap <= 0 {
			continue
		}
		if policy == domain.BoundaryMinMax && gap > maxDistance {
			continue
		}
		mid := prev.End + gap/2
		prev.End = mid
		cur.Start = mid
	}
}
