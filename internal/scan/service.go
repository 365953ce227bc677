// Package scan owns the per-brand scan lifecycle: admission, query plan
// generation, sequential dispatch to the LLM provider, progress persistence
// and final aggregation.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brandlens/visibility-scanner/internal/analysis"
	"github.com/brandlens/visibility-scanner/internal/config"
	"github.com/brandlens/visibility-scanner/internal/metrics"
	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/brandlens/visibility-scanner/internal/provider"
	"github.com/brandlens/visibility-scanner/internal/queries"
	"github.com/brandlens/visibility-scanner/internal/scoring"
	"github.com/brandlens/visibility-scanner/internal/sources"
	"github.com/brandlens/visibility-scanner/internal/storage"
	"github.com/brandlens/visibility-scanner/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service orchestrates scans. All collaborators are injected; the service
// holds no global state.
type Service struct {
	config    *config.Config
	store     store.Store
	provider  provider.Provider
	generator *queries.Generator
	archive   storage.Archiver // optional
}

// NewService creates a scan orchestrator. archive may be nil.
func NewService(cfg *config.Config, st store.Store, p provider.Provider, archive storage.Archiver) *Service {
	return &Service{
		config:    cfg,
		store:     st,
		provider:  p,
		generator: queries.NewGenerator(llmQueryProvider(cfg, p)),
		archive:   archive,
	}
}

// llmQueryProvider decides whether the query generator may use the LLM.
// The deterministic provider synthesizes answers, not naturalistic buyer
// questions, so template mode is used with it regardless.
func llmQueryProvider(cfg *config.Config, p provider.Provider) provider.Provider {
	if !cfg.LLMAssistedSetup {
		return nil
	}
	if _, ok := p.(*provider.DeterministicProvider); ok {
		return nil
	}
	return p
}

// StartScan admits and launches a scan, returning the progress record to
// poll. The scan itself runs on its own goroutine; dispatch within it is
// strictly sequential.
func (s *Service) StartScan(ctx context.Context, identity models.Identity, brandID string, tier models.ScanTier) (*models.ScanProgress, error) {
	brand, err := s.store.GetBrand(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if brand.UserID != identity.UserID {
		return nil, store.ErrNotFound
	}

	if !tier.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownTier, tier)
	}

	if brand.LastScanAt != nil {
		nextAvailable := brand.LastScanAt.Add(s.config.ScanCooldown)
		if time.Now().Before(nextAvailable) {
			metrics.ScansRejected.WithLabelValues("rate_limited").Inc()
			return nil, &RateLimitError{BrandID: brandID, NextAvailable: nextAvailable}
		}
	}

	cost := tier.QueryCost()
	used, err := s.store.GetScanUsage(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan usage: %w", err)
	}
	if used+cost > identity.ScanLimit {
		metrics.ScansRejected.WithLabelValues("quota_exceeded").Inc()
		return nil, &QuotaError{Used: used, Limit: identity.ScanLimit, Cost: cost}
	}

	progress := &models.ScanProgress{
		ID:           uuid.NewString(),
		BrandID:      brand.ID,
		UserID:       identity.UserID,
		TotalQueries: cost,
		Status:       models.ScanStatusRunning,
		StartedAt:    time.Now(),
	}
	if err := s.store.SaveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to persist scan progress: %w", err)
	}

	metrics.ScansStarted.WithLabelValues(string(tier)).Inc()
	logrus.Infof("Starting %s scan %s for brand %s (%s)", tier, progress.ID, brand.Name, brand.ID)

	// The spawned goroutine owns progress from here on; callers get a
	// detached snapshot of the admission state.
	snapshot := *progress
	go s.run(brand, identity, tier, progress)

	return &snapshot, nil
}

// run executes the scan to a terminal state. Individual query failures
// degrade into error-shaped results; only bookkeeping failures abort.
func (s *Service) run(brand *models.BrandProfile, identity models.Identity, tier models.ScanTier, progress *models.ScanProgress) {
	start := time.Now()
	ctx := context.Background()

	plan := s.buildPlan(ctx, brand, tier)
	if len(plan) == 0 {
		s.fail(ctx, tier, progress, fmt.Errorf("query plan generation produced no queries"))
		return
	}

	// The competitor tier can filter the plan below the tier cost; total
	// reflects what will actually run so progress still ends at total.
	if len(plan) != progress.TotalQueries {
		progress.TotalQueries = len(plan)
		if err := s.store.SaveProgress(ctx, progress); err != nil {
			s.fail(ctx, tier, progress, fmt.Errorf("failed to persist scan progress: %w", err))
			return
		}
	}

	results := make([]models.QueryResult, 0, len(plan))
	for i, query := range plan {
		progress.CurrentQuery = query
		if err := s.store.SaveProgress(ctx, progress); err != nil {
			s.fail(ctx, tier, progress, fmt.Errorf("failed to persist scan progress: %w", err))
			return
		}

		results = append(results, s.executeQuery(ctx, brand, query))

		progress.Progress = i + 1
		if err := s.store.SaveProgress(ctx, progress); err != nil {
			s.fail(ctx, tier, progress, fmt.Errorf("failed to persist scan progress: %w", err))
			return
		}
	}

	if err := s.finalize(ctx, brand, identity, tier, progress, plan, results); err != nil {
		s.fail(ctx, tier, progress, err)
		return
	}

	metrics.ScansCompleted.WithLabelValues(string(tier), models.ScanStatusCompleted).Inc()
	metrics.ScanDuration.WithLabelValues(string(tier)).Observe(time.Since(start).Seconds())
	logrus.Infof("Scan %s completed in %v (%d queries)", progress.ID, time.Since(start), len(results))
}

func (s *Service) buildPlan(ctx context.Context, brand *models.BrandProfile, tier models.ScanTier) []string {
	plan := s.generator.Generate(ctx, brand)

	if tier == models.TierCompetitor {
		plan = filterCompetitorQueries(plan, brand.Competitors)
	}

	cost := tier.QueryCost()
	if len(plan) > cost {
		plan = plan[:cost]
	}
	return plan
}

// filterCompetitorQueries keeps only queries naming a known competitor.
func filterCompetitorQueries(plan []string, competitors []string) []string {
	var filtered []string
	for _, query := range plan {
		lower := strings.ToLower(query)
		for _, comp := range competitors {
			if comp != "" && strings.Contains(lower, strings.ToLower(comp)) {
				filtered = append(filtered, query)
				break
			}
		}
	}
	return filtered
}

// executeQuery runs one LLM call and extracts signals from the answer. A
// provider failure is not fatal to the scan: it degrades to a result with
// the error captured and all-default fields.
func (s *Service) executeQuery(ctx context.Context, brand *models.BrandProfile, query string) models.QueryResult {
	completion, err := s.provider.Complete(ctx, provider.CompletionRequest{
		System: systemPrompt(brand),
		Prompt: query,
		Context: provider.BrandContext{
			Brand:       brand.Name,
			Industry:    brand.Industry,
			Competitors: brand.Competitors,
			Keywords:    brand.Keywords,
		},
		MaxTokens:   s.config.LLMMaxTokens,
		Temperature: s.config.LLMTemperature,
	})
	if err != nil {
		metrics.LLMCalls.WithLabelValues(s.provider.Name(), "error").Inc()
		logrus.Warnf("LLM call failed for query %q: %v", query, err)
		return models.QueryResult{
			Query:                query,
			Platform:             s.provider.Name(),
			Error:                err.Error(),
			Sentiment:            models.SentimentNeutral,
			CompetitorsMentioned: []string{},
			KeyFeatures:          []string{},
			TargetAudience:       []string{},
			UseCases:             []string{},
			SourceDomains:        []models.SourceDomain{},
			SourceArticles:       []models.SourceArticle{},
		}
	}
	metrics.LLMCalls.WithLabelValues(s.provider.Name(), "ok").Inc()

	signals := analysis.Analyze(completion.Text, brand.Name, brand.Competitors, brand.Keywords)
	domains, articles := sources.Extract(completion.Text, brand.Name, brand.Industry, brand.Keywords)

	return models.QueryResult{
		Query:                query,
		Platform:             s.provider.Name(),
		Response:             completion.Text,
		BrandMentioned:       signals.BrandMentioned,
		RankingPosition:      signals.RankingPosition,
		Sentiment:            signals.Sentiment,
		CompetitorsMentioned: signals.CompetitorsMentioned,
		KeyFeatures:          signals.KeyFeatures,
		TargetAudience:       signals.TargetAudience,
		UseCases:             signals.UseCases,
		SourceDomains:        domains,
		SourceArticles:       articles,
		TokenCount:           completion.TokenCount,
	}
}

func systemPrompt(brand *models.BrandProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a knowledgeable assistant helping buyers research %s products. ", brand.Industry)
	b.WriteString("Answer naturally, ranking the options you would actually recommend. ")
	if len(brand.Competitors) > 0 {
		fmt.Fprintf(&b, "Relevant vendors include %s and %s. ", strings.Join(brand.Competitors, ", "), brand.Name)
	}
	b.WriteString("After your answer, list your likely references in two sections titled " +
		"SOURCE DOMAINS (lines like \"DOMAIN: example.com - description\") and " +
		"SOURCE ARTICLES (lines like \"ARTICLE: https://example.com/page - title\").")
	return b.String()
}

// finalize writes the scan record and downstream aggregates. The usage
// counter is charged the tier's fixed cost, not the executed query count.
func (s *Service) finalize(ctx context.Context, brand *models.BrandProfile, identity models.Identity, tier models.ScanTier, progress *models.ScanProgress, plan []string, results []models.QueryResult) error {
	score := scoring.VisibilityScore(results)

	record := &models.ScanRecord{
		ID:               progress.ID,
		BrandID:          brand.ID,
		UserID:           identity.UserID,
		Tier:             tier,
		Queries:          plan,
		Results:          results,
		VisibilityScore:  score,
		MentionedQueries: scoring.MentionedCount(results),
		TotalQueries:     len(results),
		CreatedAt:        time.Now(),
	}
	if err := s.store.SaveScanRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to persist scan record: %w", err)
	}

	var allDomains []models.SourceDomain
	var allArticles []models.SourceArticle
	for _, r := range results {
		allDomains = append(allDomains, r.SourceDomains...)
		allArticles = append(allArticles, r.SourceArticles...)
	}
	if err := s.store.AppendSourceDomains(ctx, brand.ID, allDomains); err != nil {
		return fmt.Errorf("failed to persist source domains: %w", err)
	}
	if err := s.store.AppendSourceArticles(ctx, brand.ID, allArticles); err != nil {
		return fmt.Errorf("failed to persist source articles: %w", err)
	}

	if err := s.store.AddScanUsage(ctx, identity.UserID, tier.QueryCost()); err != nil {
		return fmt.Errorf("failed to charge scan usage: %w", err)
	}

	now := time.Now()
	brand.LastScanAt = &now
	brand.VisibilityScore = score
	brand.UpdatedAt = now
	if err := s.store.SaveBrand(ctx, brand); err != nil {
		return fmt.Errorf("failed to update brand after scan: %w", err)
	}

	progress.Status = models.ScanStatusCompleted
	progress.CompletedAt = &now
	progress.CurrentQuery = ""
	if err := s.store.SaveProgress(ctx, progress); err != nil {
		return fmt.Errorf("failed to persist scan completion: %w", err)
	}

	s.archiveRecord(record)
	return nil
}

// archiveRecord writes the completed record to the blob archive. Best
// effort: archive failures never fail a finished scan.
func (s *Service) archiveRecord(record *models.ScanRecord) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		logrus.Errorf("Failed to marshal scan record %s for archive: %v", record.ID, err)
		return
	}
	filename := fmt.Sprintf("%s%s-%s.json", archivePrefix(record.BrandID), record.CreatedAt.Format("2006-01-02-15-04-05"), record.ID)
	if err := s.archive.Store(filename, data); err != nil {
		logrus.Errorf("Failed to archive scan record %s: %v", record.ID, err)
	}
}

func (s *Service) fail(ctx context.Context, tier models.ScanTier, progress *models.ScanProgress, err error) {
	logrus.Errorf("Scan %s failed: %v", progress.ID, err)
	metrics.ScansCompleted.WithLabelValues(string(tier), models.ScanStatusFailed).Inc()

	now := time.Now()
	progress.Status = models.ScanStatusFailed
	progress.FailedAt = &now
	progress.Error = err.Error()
	if saveErr := s.store.SaveProgress(ctx, progress); saveErr != nil {
		logrus.Errorf("Failed to persist failure of scan %s: %v", progress.ID, saveErr)
	}
}

// GetProgress returns the progress snapshot for a scan.
func (s *Service) GetProgress(ctx context.Context, scanID string) (*models.ScanProgress, error) {
	return s.store.GetProgress(ctx, scanID)
}

// GetScanRecords returns the most recent scan records for a brand.
func (s *Service) GetScanRecords(ctx context.Context, brandID string, limit int) ([]models.ScanRecord, error) {
	return s.store.ListScanRecords(ctx, brandID, limit)
}
