package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"veritas/internal/signals"
	"veritas/pkg/errors"
)

// Compile-time check
var _ signals.AnalysisCache = (*AnalysisCache)(nil)

// AnalysisCache stores completed external analyses in Redis with a TTL so a
// claim is analyzed at most once per cache window.
type AnalysisCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewAnalysisCache creates a new analysis cache
func NewAnalysisCache(rdb *goredis.Client, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{rdb: rdb, ttl: ttl}
}

func analysisKey(claimID uuid.UUID) string {
	return fmt.Sprintf("analysis:%s", claimID)
}

// Get retrieves a cached analysis, returning ErrNotFound on miss
func (c *AnalysisCache) Get(ctx context.Context, claimID uuid.UUID) (*signals.Analysis, error) {
	data, err := c.rdb.Get(ctx, analysisKey(claimID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, errors.Wrapf(errors.ErrNotFound, "analysis for claim %s", claimID)
		}
		return nil, err
	}

	var analysis signals.Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, errors.Wrap(err, "unmarshal cached analysis")
	}

	return &analysis, nil
}

// Set stores an analysis under the configured TTL
func (c *AnalysisCache) Set(ctx context.Context, claimID uuid.UUID, analysis *signals.Analysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return errors.Wrap(err, "marshal analysis")
	}

	return c.rdb.Set(ctx, analysisKey(claimID), data, c.ttl).Err()
}
