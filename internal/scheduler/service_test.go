package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/brandlens/visibility-scanner/internal/config"
	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/brandlens/visibility-scanner/internal/provider"
	"github.com/brandlens/visibility-scanner/internal/scan"
	"github.com/brandlens/visibility-scanner/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schedulerConfig() *config.Config {
	return &config.Config{
		ScanCooldown:   7 * 24 * time.Hour,
		DefaultPlan:    "enterprise",
		RescanSchedule: "0 0 9 * * MON",
		TimeZone:       "UTC",
	}
}

func TestNewService_CronLocation(t *testing.T) {
	tests := []struct {
		name     string
		timeZone string
	}{
		{"explicit utc", "UTC"},
		{"empty defaults to utc", ""},
		{"unknown zone falls back to utc", "Mars/Olympus_Mons"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := schedulerConfig()
			cfg.TimeZone = tt.timeZone
			service := NewService(cfg, store.NewMemoryStore(), nil)
			assert.Equal(t, time.UTC, service.cron.Location())
		})
	}
}

func TestStart_DisabledIsNoOp(t *testing.T) {
	cfg := schedulerConfig()
	cfg.AutoRescan = false

	service := NewService(cfg, store.NewMemoryStore(), nil)
	require.NoError(t, service.Start())
	service.Stop()
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	cfg := schedulerConfig()
	cfg.AutoRescan = true
	cfg.RescanSchedule = "not a cron spec"

	service := NewService(cfg, store.NewMemoryStore(), nil)
	assert.Error(t, service.Start())
}

func TestRescanAll_SkipsBrandsInCooldown(t *testing.T) {
	ctx := context.Background()
	cfg := schedulerConfig()
	st := store.NewMemoryStore()

	eligible := &models.BrandProfile{
		ID: "brand-due", UserID: "user-1", Name: "Acme",
		Industry: "crm", Competitors: []string{"Zeta"},
	}
	require.NoError(t, st.SaveBrand(ctx, eligible))

	recent := time.Now().Add(-time.Hour)
	cooling := &models.BrandProfile{
		ID: "brand-cooling", UserID: "user-2", Name: "Bolt",
		Industry: "crm", LastScanAt: &recent,
	}
	require.NoError(t, st.SaveBrand(ctx, cooling))

	scanService := scan.NewService(cfg, st, provider.NewDeterministicProvider(), nil)
	service := NewService(cfg, st, scanService)

	service.rescanAll()

	// The eligible brand's scan runs to completion and charges its owner.
	require.Eventually(t, func() bool {
		used, err := st.GetScanUsage(ctx, "user-1")
		return err == nil && used == models.TierStandard.QueryCost()
	}, 5*time.Second, 10*time.Millisecond)

	// The cooling brand is skipped outright.
	used, err := st.GetScanUsage(ctx, "user-2")
	require.NoError(t, err)
	assert.Zero(t, used)

	records, err := st.ListScanRecords(ctx, "brand-cooling", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
