package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDomainDistance = -1
	cfg.UpperSortingThreshold = 1
	cfg.LowerSortingThreshold = 0.5
	cfg.SkipHitPercentCoverageThreshold = 101

	err := cfg.Validate()
	require.Error(t, err)

	var aggr *AggregateError
	require.True(t, errors.As(err, &aggr))
	assert.Len(t, aggr.Errors, 3)

	var cerr *ConfigError
	require.True(t, errors.As(aggr.Errors[0], &cerr))
	assert.Equal(t, "maxDomainDistance", cerr.Key)
}

func TestConfig_Effective(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoextendDomains = false
	cfg.DomainConflictSolver = true

	eff := cfg.Effective()
	assert.True(t, eff.AutoextendDomains, "solver forces autoextend on")
	assert.Equal(t, -1, eff.OverlapTolerance())

	cfg.DomainConflictSolver = false
	assert.False(t, cfg.Effective().AutoextendDomains)
	assert.Equal(t, cfg.MaxDomainDistance, cfg.OverlapTolerance())
}

func TestBoundaryPolicy_Text(t *testing.T) {
	for _, s := range []string{"MIN", "max", " MinMax "} {
		_, err := ParseBoundaryPolicy(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseBoundaryPolicy("widest")
	assert.Error(t, err)

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"domainBoundaryPolicy":"MAX","tieBreak":"fewer_domains"}`), &cfg))
	assert.Equal(t, BoundaryMax, cfg.BoundaryPolicy)
	assert.Equal(t, TieBreakFewerDomains, cfg.TieBreak)

	out, err := json.Marshal(Config{BoundaryPolicy: BoundaryMinMax})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"domainBoundaryPolicy":"MINMAX"`)
}
