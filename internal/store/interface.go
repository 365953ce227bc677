package store

import (
	"context"
	"errors"

	"github.com/brandlens/visibility-scanner/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the document-store boundary. Writes are single-record upserts and
// appends; no cross-record transactions are assumed, so callers must tolerate
// partial failure between related writes.
type Store interface {
	SaveBrand(ctx context.Context, brand *models.BrandProfile) error
	GetBrand(ctx context.Context, id string) (*models.BrandProfile, error)
	ListBrands(ctx context.Context, userID string) ([]models.BrandProfile, error)
	ListAllBrands(ctx context.Context) ([]models.BrandProfile, error)

	SaveProgress(ctx context.Context, progress *models.ScanProgress) error
	GetProgress(ctx context.Context, scanID string) (*models.ScanProgress, error)

	SaveScanRecord(ctx context.Context, record *models.ScanRecord) error
	ListScanRecords(ctx context.Context, brandID string, limit int) ([]models.ScanRecord, error)

	// Source aggregates are append-only per-scan rows; readers fold them
	// together at query time.
	AppendSourceDomains(ctx context.Context, brandID string, domains []models.SourceDomain) error
	AppendSourceArticles(ctx context.Context, brandID string, articles []models.SourceArticle) error
	ListSourceDomains(ctx context.Context, brandID string) ([]models.SourceDomain, error)
	ListSourceArticles(ctx context.Context, brandID string) ([]models.SourceArticle, error)

	GetScanUsage(ctx context.Context, userID string) (int, error)
	AddScanUsage(ctx context.Context, userID string, amount int) error
}
