package store

import (
	"context"
	"sync"

	"github.com/brandlens/visibility-scanner/internal/models"
)

// MemoryStore keeps everything in process memory. It is selected when no
// Redis address is configured and backs the package tests. Running without
// external services is a supported mode.
type MemoryStore struct {
	mu       sync.RWMutex
	brands   map[string]models.BrandProfile
	progress map[string]models.ScanProgress
	records  map[string][]models.ScanRecord // brandID -> newest first
	domains  map[string][]models.SourceDomain
	articles map[string][]models.SourceArticle
	usage    map[string]int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		brands:   make(map[string]models.BrandProfile),
		progress: make(map[string]models.ScanProgress),
		records:  make(map[string][]models.ScanRecord),
		domains:  make(map[string][]models.SourceDomain),
		articles: make(map[string][]models.SourceArticle),
		usage:    make(map[string]int),
	}
}

func (s *MemoryStore) SaveBrand(_ context.Context, brand *models.BrandProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brands[brand.ID] = *brand
	return nil
}

func (s *MemoryStore) GetBrand(_ context.Context, id string) (*models.BrandProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	brand, ok := s.brands[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := brand
	return &copied, nil
}

func (s *MemoryStore) ListBrands(_ context.Context, userID string) ([]models.BrandProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BrandProfile
	for _, brand := range s.brands {
		if brand.UserID == userID {
			out = append(out, brand)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAllBrands(_ context.Context) ([]models.BrandProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BrandProfile, 0, len(s.brands))
	for _, brand := range s.brands {
		out = append(out, brand)
	}
	return out, nil
}

func (s *MemoryStore) SaveProgress(_ context.Context, progress *models.ScanProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progress.ID] = *progress
	return nil
}

func (s *MemoryStore) GetProgress(_ context.Context, scanID string) (*models.ScanProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progress, ok := s.progress[scanID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := progress
	return &copied, nil
}

func (s *MemoryStore) SaveScanRecord(_ context.Context, record *models.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.BrandID] = append([]models.ScanRecord{*record}, s.records[record.BrandID]...)
	return nil
}

func (s *MemoryStore) ListScanRecords(_ context.Context, brandID string, limit int) ([]models.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	records := s.records[brandID]
	if len(records) > limit {
		records = records[:limit]
	}
	out := make([]models.ScanRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *MemoryStore) AppendSourceDomains(_ context.Context, brandID string, domains []models.SourceDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[brandID] = append(s.domains[brandID], domains...)
	return nil
}

func (s *MemoryStore) AppendSourceArticles(_ context.Context, brandID string, articles []models.SourceArticle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[brandID] = append(s.articles[brandID], articles...)
	return nil
}

func (s *MemoryStore) ListSourceDomains(_ context.Context, brandID string) ([]models.SourceDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SourceDomain, len(s.domains[brandID]))
	copy(out, s.domains[brandID])
	return out, nil
}

func (s *MemoryStore) ListSourceArticles(_ context.Context, brandID string) ([]models.SourceArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SourceArticle, len(s.articles[brandID]))
	copy(out, s.articles[brandID])
	return out, nil
}

func (s *MemoryStore) GetScanUsage(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[userID], nil
}

func (s *MemoryStore) AddScanUsage(_ context.Context, userID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[userID] += amount
	return nil
}
