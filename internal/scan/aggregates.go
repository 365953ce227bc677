package scan

import (
	"context"
	"fmt"
	"sort"

	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/brandlens/visibility-scanner/internal/scoring"
	"github.com/brandlens/visibility-scanner/internal/store"
)

// How many recent scan records feed the derived views per brand.
const rankingScanWindow = 5

// CompetitorRanking builds the ranked competitor table. With a brand ID it
// is scoped to that brand and its competitors; with an empty brand ID it
// covers every brand the user tracks plus all their competitors.
func (s *Service) CompetitorRanking(ctx context.Context, identity models.Identity, brandID string) ([]models.CompetitorRank, error) {
	brands, err := s.scopedBrands(ctx, identity, brandID)
	if err != nil {
		return nil, err
	}

	var entries []scoring.Entry
	var results []models.QueryResult
	for _, brand := range brands {
		entries = append(entries, scoring.Entry{Name: brand.Name, IsUserBrand: true})
		for _, comp := range brand.Competitors {
			entries = append(entries, scoring.Entry{Name: comp})
		}

		records, err := s.store.ListScanRecords(ctx, brand.ID, rankingScanWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to load scan history for brand %s: %w", brand.ID, err)
		}
		for _, record := range records {
			results = append(results, record.Results...)
		}
	}

	return scoring.Rank(entries, results), nil
}

// SourceDomains returns the folded, paginated source-domain aggregates. Rows
// with the same domain are summed; ordering is by total impact, descending.
func (s *Service) SourceDomains(ctx context.Context, identity models.Identity, brandID string, page, limit int) ([]models.SourceDomain, int, error) {
	brands, err := s.scopedBrands(ctx, identity, brandID)
	if err != nil {
		return nil, 0, err
	}

	byDomain := make(map[string]*models.SourceDomain)
	var order []string
	for _, brand := range brands {
		rows, err := s.store.ListSourceDomains(ctx, brand.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load source domains for brand %s: %w", brand.ID, err)
		}
		for _, row := range rows {
			existing, ok := byDomain[row.Domain]
			if !ok {
				copied := row
				byDomain[row.Domain] = &copied
				order = append(order, row.Domain)
				continue
			}
			existing.Impact += row.Impact
			existing.Mentions += row.Mentions
			existing.Queries += row.Queries
		}
	}

	folded := make([]models.SourceDomain, 0, len(order))
	for _, key := range order {
		folded = append(folded, *byDomain[key])
	}
	sort.SliceStable(folded, func(i, j int) bool { return folded[i].Impact > folded[j].Impact })

	total := len(folded)
	return paginateDomains(folded, page, limit), total, nil
}

// SourceArticles is the article counterpart of SourceDomains, keyed by URL.
func (s *Service) SourceArticles(ctx context.Context, identity models.Identity, brandID string, page, limit int) ([]models.SourceArticle, int, error) {
	brands, err := s.scopedBrands(ctx, identity, brandID)
	if err != nil {
		return nil, 0, err
	}

	byURL := make(map[string]*models.SourceArticle)
	var order []string
	for _, brand := range brands {
		rows, err := s.store.ListSourceArticles(ctx, brand.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load source articles for brand %s: %w", brand.ID, err)
		}
		for _, row := range rows {
			existing, ok := byURL[row.URL]
			if !ok {
				copied := row
				byURL[row.URL] = &copied
				order = append(order, row.URL)
				continue
			}
			existing.Impact += row.Impact
			existing.Queries += row.Queries
		}
	}

	folded := make([]models.SourceArticle, 0, len(order))
	for _, key := range order {
		folded = append(folded, *byURL[key])
	}
	sort.SliceStable(folded, func(i, j int) bool { return folded[i].Impact > folded[j].Impact })

	total := len(folded)
	return paginateArticles(folded, page, limit), total, nil
}

// scopedBrands resolves the brand scope for a derived view: one brand when
// an ID is given (and owned by the caller), otherwise all the user's brands.
func (s *Service) scopedBrands(ctx context.Context, identity models.Identity, brandID string) ([]models.BrandProfile, error) {
	if brandID != "" {
		brand, err := s.store.GetBrand(ctx, brandID)
		if err != nil {
			return nil, err
		}
		if brand.UserID != identity.UserID {
			// Do not reveal other users' brands.
			return nil, store.ErrNotFound
		}
		return []models.BrandProfile{*brand}, nil
	}
	return s.store.ListBrands(ctx, identity.UserID)
}

func paginateDomains(rows []models.SourceDomain, page, limit int) []models.SourceDomain {
	start, end := pageBounds(len(rows), page, limit)
	return rows[start:end]
}

func paginateArticles(rows []models.SourceArticle, page, limit int) []models.SourceArticle {
	start, end := pageBounds(len(rows), page, limit)
	return rows[start:end]
}

func pageBounds(total, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}
