package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/dementia-risk/pkg/common/logger"
	"github.com/synaptica-ai/dementia-risk/pkg/common/models"
)

// ErrNotFound is returned for unknown or expired assessments.
var ErrNotFound = errors.New("assessment not cached")

// AssessmentCache keeps finished assessments in Redis so they can be looked
// up by id.
type AssessmentCache struct {
	client   *redis.Client
	cacheTTL time.Duration
}

func NewAssessmentCache(client *redis.Client, ttl time.Duration) *AssessmentCache {
	return &AssessmentCache{client: client, cacheTTL: ttl}
}

func cacheKey(id string) string {
	return fmt.Sprintf("assessment:%s", id)
}

func (c *AssessmentCache) Put(ctx context.Context, result models.AssessmentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	key := cacheKey(result.ID)
	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Caching assessment")

	return c.client.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *AssessmentCache) Get(ctx context.Context, id string) (models.AssessmentResult, error) {
	var result models.AssessmentResult
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, ErrNotFound
	}
	if err != nil {
		return result, fmt.Errorf("read assessment %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("decode assessment %s: %w", id, err)
	}
	return result, nil
}
