package scan

import (
	"context"
	"strings"

	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/brandlens/visibility-scanner/internal/store"
)

func archivePrefix(brandID string) string {
	return "scans/" + brandID + "/"
}

// ArchivedScanNames lists the archived record blobs for a brand, newest last.
func (s *Service) ArchivedScanNames(ctx context.Context, identity models.Identity, brandID string) ([]string, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if err := s.checkOwnership(ctx, identity, brandID); err != nil {
		return nil, err
	}
	return s.archive.List(archivePrefix(brandID))
}

// ArchivedScanRecord fetches one archived record blob. Names outside the
// brand's own prefix look absent.
func (s *Service) ArchivedScanRecord(ctx context.Context, identity models.Identity, brandID, name string) ([]byte, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if err := s.checkOwnership(ctx, identity, brandID); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(name, archivePrefix(brandID)) {
		return nil, store.ErrNotFound
	}
	return s.archive.Retrieve(name)
}

func (s *Service) checkOwnership(ctx context.Context, identity models.Identity, brandID string) error {
	brand, err := s.store.GetBrand(ctx, brandID)
	if err != nil {
		return err
	}
	if brand.UserID != identity.UserID {
		return store.ErrNotFound
	}
	return nil
}
