package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/brandlens/visibility-scanner/internal/config"
	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/brandlens/visibility-scanner/internal/scan"
	"github.com/brandlens/visibility-scanner/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service re-scans tracked brands on a schedule. Brands still inside their
// cooldown are skipped by the orchestrator's own admission check.
type Service struct {
	config      *config.Config
	store       store.Store
	scanService *scan.Service
	cron        *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, st store.Store, scanService *scan.Service) *Service {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		logrus.Warnf("Unknown TIMEZONE %q, scheduling in UTC: %v", cfg.TimeZone, err)
		location = time.UTC
	}

	return &Service{
		config:      cfg,
		store:       st,
		scanService: scanService,
		cron:        cron.New(cron.WithSeconds(), cron.WithLocation(location)),
	}
}

// Start begins the scheduled re-scan pass
func (s *Service) Start() error {
	if !s.config.AutoRescan {
		logrus.Info("Automatic re-scans disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.RescanSchedule, func() {
		logrus.Info("Starting scheduled re-scan pass")
		s.rescanAll()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.config.RescanSchedule)
	return nil
}

// rescanAll starts a standard scan for every brand whose cooldown elapsed.
// Individual failures are logged and never stop the pass.
func (s *Service) rescanAll() {
	ctx := context.Background()

	brands, err := s.store.ListAllBrands(ctx)
	if err != nil {
		logrus.Errorf("Scheduled re-scan pass failed to list brands: %v", err)
		return
	}

	plan := models.PlanByID(s.config.DefaultPlan)
	started := 0
	for _, brand := range brands {
		identity := models.Identity{UserID: brand.UserID, ScanLimit: plan.ScanQuota}
		_, err := s.scanService.StartScan(ctx, identity, brand.ID, models.TierStandard)
		if err != nil {
			var rateLimited *scan.RateLimitError
			var quota *scan.QuotaError
			if errors.As(err, &rateLimited) || errors.As(err, &quota) {
				logrus.Debugf("Skipping scheduled scan for brand %s: %v", brand.ID, err)
				continue
			}
			logrus.Errorf("Scheduled scan for brand %s failed to start: %v", brand.ID, err)
			continue
		}
		started++
	}

	logrus.Infof("Scheduled re-scan pass started %d of %d brands", started, len(brands))
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
