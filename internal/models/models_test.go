package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanTierQueryCost(t *testing.T) {
	tests := []struct {
		tier     ScanTier
		expected int
	}{
		{TierQuick, 5},
		{TierStandard, 10},
		{TierDeep, 20},
		{TierCompetitor, 10},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.tier.QueryCost())
			assert.True(t, tt.tier.Valid())
		})
	}

	assert.False(t, ScanTier("mega").Valid())
}

func TestPlanByID(t *testing.T) {
	assert.Equal(t, 200, PlanByID("pro").ScanQuota)
	assert.Equal(t, 1000, PlanByID("enterprise").ScanQuota)

	// Unknown plans resolve to free.
	assert.Equal(t, "free", PlanByID("platinum").ID)
	assert.Equal(t, 10, PlanByID("").ScanQuota)
}
