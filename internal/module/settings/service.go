package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const cacheTTL = 10 * time.Minute

// Service loads and saves store-scoped typed settings. Reads go through
// the cache; saves invalidate it so the next load sees fresh values.
type Service struct {
	repo   Repository
	cache  Cache
	logger *zap.Logger
}

// NewService creates a new settings service.
func NewService(repo Repository, cache Cache, logger *zap.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Load unmarshals the setting identified by (storeID, name) into dest.
// Returns ErrSettingNotFound when the setting has never been saved.
func (s *Service) Load(ctx context.Context, storeID, name string, dest any) error {
	key := cacheKey(storeID, name)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			return json.Unmarshal([]byte(cached), dest)
		} else if !errors.Is(err, ErrCacheMiss) {
			// Cache unavailability must not break settings reads.
			s.logger.Warn("settings cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	value, err := s.repo.Get(ctx, storeID, name)
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value, cacheTTL); err != nil {
			s.logger.Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return json.Unmarshal([]byte(value), dest)
}

// Save persists the setting and invalidates its cache entry.
func (s *Service) Save(ctx context.Context, storeID, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal setting %s: %w", name, err)
	}

	if err := s.repo.Save(ctx, storeID, name, string(raw)); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, cacheKey(storeID, name)); err != nil {
			s.logger.Warn("settings cache invalidation failed",
				zap.String("store_id", storeID),
				zap.String("name", name),
				zap.Error(err))
		}
	}

	return nil
}

func cacheKey(storeID, name string) string {
	return fmt.Sprintf("settings:%s:%s", storeID, name)
}
