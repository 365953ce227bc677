package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/redis/go-redis/v9"
)

// Progress records are ephemeral; they expire well after any reasonable
// polling window.
const progressTTL = 48 * time.Hour

// RedisStore is the Redis-backed document store. Records are stored as JSON
// values; per-brand scan history and source aggregates live in lists.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis store and verifies connectivity.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client; used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func brandKey(id string) string           { return "brand:" + id }
func userBrandsKey(userID string) string  { return "brands:user:" + userID }
func progressKey(scanID string) string    { return "progress:" + scanID }
func scanRecordsKey(brandID string) string { return "scans:brand:" + brandID }
func domainsKey(brandID string) string    { return "sources:domains:" + brandID }
func articlesKey(brandID string) string   { return "sources:articles:" + brandID }
func usageKey(userID string) string       { return "usage:user:" + userID }

const allBrandsKey = "brands:all"

func (s *RedisStore) SaveBrand(ctx context.Context, brand *models.BrandProfile) error {
	data, err := json.Marshal(brand)
	if err != nil {
		return fmt.Errorf("failed to marshal brand: %w", err)
	}

	if err := s.client.Set(ctx, brandKey(brand.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save brand %s: %w", brand.ID, err)
	}
	if err := s.client.SAdd(ctx, userBrandsKey(brand.UserID), brand.ID).Err(); err != nil {
		return fmt.Errorf("failed to index brand %s: %w", brand.ID, err)
	}
	return s.client.SAdd(ctx, allBrandsKey, brand.ID).Err()
}

func (s *RedisStore) GetBrand(ctx context.Context, id string) (*models.BrandProfile, error) {
	data, err := s.client.Get(ctx, brandKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get brand %s: %w", id, err)
	}

	var brand models.BrandProfile
	if err := json.Unmarshal(data, &brand); err != nil {
		return nil, fmt.Errorf("failed to unmarshal brand %s: %w", id, err)
	}
	return &brand, nil
}

func (s *RedisStore) ListBrands(ctx context.Context, userID string) ([]models.BrandProfile, error) {
	return s.brandsFromSet(ctx, userBrandsKey(userID))
}

func (s *RedisStore) ListAllBrands(ctx context.Context) ([]models.BrandProfile, error) {
	return s.brandsFromSet(ctx, allBrandsKey)
}

func (s *RedisStore) brandsFromSet(ctx context.Context, key string) ([]models.BrandProfile, error) {
	ids, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list brand ids: %w", err)
	}

	brands := make([]models.BrandProfile, 0, len(ids))
	for _, id := range ids {
		brand, err := s.GetBrand(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		brands = append(brands, *brand)
	}
	return brands, nil
}

func (s *RedisStore) SaveProgress(ctx context.Context, progress *models.ScanProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := s.client.Set(ctx, progressKey(progress.ID), data, progressTTL).Err(); err != nil {
		return fmt.Errorf("failed to save progress %s: %w", progress.ID, err)
	}
	return nil
}

func (s *RedisStore) GetProgress(ctx context.Context, scanID string) (*models.ScanProgress, error) {
	data, err := s.client.Get(ctx, progressKey(scanID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress %s: %w", scanID, err)
	}

	var progress models.ScanProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress %s: %w", scanID, err)
	}
	return &progress, nil
}

func (s *RedisStore) SaveScanRecord(ctx context.Context, record *models.ScanRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal scan record: %w", err)
	}
	// Newest first.
	if err := s.client.LPush(ctx, scanRecordsKey(record.BrandID), data).Err(); err != nil {
		return fmt.Errorf("failed to save scan record %s: %w", record.ID, err)
	}
	return nil
}

func (s *RedisStore) ListScanRecords(ctx context.Context, brandID string, limit int) ([]models.ScanRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	items, err := s.client.LRange(ctx, scanRecordsKey(brandID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scan records for brand %s: %w", brandID, err)
	}

	records := make([]models.ScanRecord, 0, len(items))
	for _, item := range items {
		var record models.ScanRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scan record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RedisStore) AppendSourceDomains(ctx context.Context, brandID string, domains []models.SourceDomain) error {
	return appendJSON(ctx, s.client, domainsKey(brandID), len(domains), func(i int) (interface{}, error) {
		return json.Marshal(domains[i])
	})
}

func (s *RedisStore) AppendSourceArticles(ctx context.Context, brandID string, articles []models.SourceArticle) error {
	return appendJSON(ctx, s.client, articlesKey(brandID), len(articles), func(i int) (interface{}, error) {
		return json.Marshal(articles[i])
	})
}

func appendJSON(ctx context.Context, client *redis.Client, key string, n int, marshal func(int) (interface{}, error)) error {
	if n == 0 {
		return nil
	}
	values := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		data, err := marshal(i)
		if err != nil {
			return fmt.Errorf("failed to marshal source record: %w", err)
		}
		values = append(values, data)
	}
	if err := client.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("failed to append to %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ListSourceDomains(ctx context.Context, brandID string) ([]models.SourceDomain, error) {
	items, err := s.client.LRange(ctx, domainsKey(brandID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list source domains for brand %s: %w", brandID, err)
	}

	domains := make([]models.SourceDomain, 0, len(items))
	for _, item := range items {
		var domain models.SourceDomain
		if err := json.Unmarshal([]byte(item), &domain); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source domain: %w", err)
		}
		domains = append(domains, domain)
	}
	return domains, nil
}

func (s *RedisStore) ListSourceArticles(ctx context.Context, brandID string) ([]models.SourceArticle, error) {
	items, err := s.client.LRange(ctx, articlesKey(brandID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list source articles for brand %s: %w", brandID, err)
	}

	articles := make([]models.SourceArticle, 0, len(items))
	for _, item := range items {
		var article models.SourceArticle
		if err := json.Unmarshal([]byte(item), &article); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source article: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (s *RedisStore) GetScanUsage(ctx context.Context, userID string) (int, error) {
	value, err := s.client.Get(ctx, usageKey(userID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get scan usage for user %s: %w", userID, err)
	}
	return value, nil
}

func (s *RedisStore) AddScanUsage(ctx context.Context, userID string, amount int) error {
	if err := s.client.IncrBy(ctx, usageKey(userID), int64(amount)).Err(); err != nil {
		return fmt.Errorf("failed to add scan usage for user %s: %w", userID, err)
	}
	return nil
}
