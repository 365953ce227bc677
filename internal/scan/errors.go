package scan

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownTier rejects a scan request naming no recognized tier.
var ErrUnknownTier = errors.New("unknown scan tier")

// ErrArchiveDisabled is returned by the archive browse operations when no
// blob archive is configured.
var ErrArchiveDisabled = errors.New("scan archive is not configured")

// RateLimitError rejects a scan for a brand whose cooldown has not elapsed.
// NextAvailable tells the caller when a retry will be admitted.
type RateLimitError struct {
	BrandID       string
	NextAvailable time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("brand %s was scanned recently, next scan available at %s",
		e.BrandID, e.NextAvailable.Format(time.RFC3339))
}

// QuotaError rejects a scan that would exceed the user's plan limit.
type QuotaError struct {
	Used  int
	Limit int
	Cost  int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("scan quota exceeded: %d used + %d cost > %d limit", e.Used, e.Cost, e.Limit)
}
