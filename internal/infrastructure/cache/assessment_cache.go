package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sentinel-analytics/dqsi-engine/internal/infrastructure/config"
)

// Cache key prefixes for flattened assessment outputs.
const (
	alertAssessmentPrefix = "dqsi:assessment:alert:"
	caseAssessmentPrefix  = "dqsi:assessment:case:"
)

// ErrAssessmentNotCached reports a cache miss.
type ErrAssessmentNotCached struct {
	Key string
}

func (e ErrAssessmentNotCached) Error() string {
	return fmt.Sprintf("assessment not cached: %s", e.Key)
}

// AssessmentCache stores flattened assessment outputs keyed by alert or
// case ID. The engine is deterministic for a fixed reference timestamp,
// so serving a cached assessment is always safe within its TTL.
type AssessmentCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewAssessmentCache connects to Redis and verifies the connection.
func NewAssessmentCache(cfg *config.RedisConfig, logger *zap.Logger) (*AssessmentCache, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	ttl := cfg.AssessmentTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	logger.Info("assessment cache initialized",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB),
		zap.Duration("ttl", ttl))

	return &AssessmentCache{client: client, logger: logger, ttl: ttl}, nil
}

// SetAlert caches the flattened assessment for an alert.
func (c *AssessmentCache) SetAlert(ctx context.Context, alertID string, assessment map[string]interface{}) error {
	return c.set(ctx, alertAssessmentPrefix+alertID, assessment)
}

// GetAlert retrieves a cached alert assessment.
func (c *AssessmentCache) GetAlert(ctx context.Context, alertID string) (map[string]interface{}, error) {
	return c.get(ctx, alertAssessmentPrefix+alertID)
}

// SetCase caches the flattened assessment for a case.
func (c *AssessmentCache) SetCase(ctx context.Context, caseID string, assessment map[string]interface{}) error {
	return c.set(ctx, caseAssessmentPrefix+caseID, assessment)
}

// GetCase retrieves a cached case assessment.
func (c *AssessmentCache) GetCase(ctx context.Context, caseID string) (map[string]interface{}, error) {
	return c.get(ctx, caseAssessmentPrefix+caseID)
}

// Invalidate removes the cached assessments for an alert or case ID.
func (c *AssessmentCache) Invalidate(ctx context.Context, id string) error {
	err := c.client.Del(ctx, alertAssessmentPrefix+id, caseAssessmentPrefix+id).Err()
	if err != nil {
		c.logger.Error("assessment cache delete failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("assessment cache delete failed: %w", err)
	}
	return nil
}

// Ping verifies the backing connection, used by readiness checks.
func (c *AssessmentCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *AssessmentCache) Close() error {
	return c.client.Close()
}

func (c *AssessmentCache) set(ctx context.Context, key string, assessment map[string]interface{}) error {
	payload, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("marshaling assessment: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Error("assessment cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("assessment cache set failed: %w", err)
	}
	return nil
}

func (c *AssessmentCache) get(ctx context.Context, key string) (map[string]interface{}, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrAssessmentNotCached{Key: key}
		}
		c.logger.Error("assessment cache get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("assessment cache get failed: %w", err)
	}

	var assessment map[string]interface{}
	if err := json.Unmarshal(raw, &assessment); err != nil {
		return nil, fmt.Errorf("unmarshaling cached assessment: %w", err)
	}
	return assessment, nil
}
