package runtime_test

import (
	"testing"

	"github.com/aretw0/domaindetect/internal/runtime"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckChain(t *testing.T) {
	chain := chainOf("H", 100)

	t.Run("compatible chain", func(t *testing.T) {
		res := domain.ChainResult{
			Chain: chain,
			Assignments: []domain.DomainAssignment{
				{ChainID: "H", DomainID: "V", Start: 0, End: 40},
				{ChainID: "H", DomainID: "C", Start: 70, End: 100},
			},
			Gaps: []domain.Gap{{ChainID: "H", Start: 40, End: 70}},
		}
		assert.Empty(t, runtime.CheckChain(res, 10))
	})

	t.Run("overlap is reported", func(t *testing.T) {
		res := domain.ChainResult{
			Chain: chain,
			Assignments: []domain.DomainAssignment{
				{ChainID: "H", DomainID: "V", Start: 0, End: 60},
				{ChainID: "H", DomainID: "C", Start: 50, End: 100},
			},
		}
		issues := runtime.CheckChain(res, 10)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Reason, "overlaps")
	})

	t.Run("unrecorded gap is reported", func(t *testing.T) {
		res := domain.ChainResult{
			Chain: chain,
			Assignments: []domain.DomainAssignment{
				{ChainID: "H", DomainID: "V", Start: 0, End: 40},
			},
		}
		issues := runtime.CheckChain(res, 10)
		require.Len(t, issues, 2)
		assert.Contains(t, issues[0].Reason, "[40,100)")
		assert.Contains(t, issues[1].Reason, "stale")
	})

	t.Run("out of bounds", func(t *testing.T) {
		res := domain.ChainResult{
			Chain: chain,
			Assignments: []domain.DomainAssignment{
				{ChainID: "H", DomainID: "V", Start: 0, End: 120},
			},
		}
		issues := runtime.CheckChain(res, 10)
		require.NotEmpty(t, issues)
		assert.Contains(t, issues[0].Reason, "outside chain")
	})
}
