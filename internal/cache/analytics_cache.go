// Package cache holds derived survey analytics in Redis so repeated report
// reads do not recompute statistics over every response. Entries are
// invalidated whenever a survey or its responses change and otherwise expire
// after a TTL.
//
// Each survey also has a generation counter. Invalidate bumps it, and Set
// only stores a report when the generation it was computed under is still
// current, so a report computed before a write can never be cached after it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-survey-backend/internal/analytics"
)

// DefaultTTL bounds how long a cached report may be served.
const DefaultTTL = 5 * time.Minute

// ErrStale is returned by Set when the survey was invalidated after the
// report's generation was read.
var ErrStale = errors.New("cache: report generation is stale")

// AnalyticsCache stores SurveyAnalytics reports keyed by survey id.
//
// Callers read Generation before loading the data a report is built from
// and pass it back to Set.
type AnalyticsCache interface {
	Get(ctx context.Context, surveyID string) (*analytics.SurveyAnalytics, error)
	Generation(ctx context.Context, surveyID string) (int64, error)
	Set(ctx context.Context, report *analytics.SurveyAnalytics, gen int64) error
	Invalidate(ctx context.Context, surveyID string) error
}

type analyticsCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewAnalyticsCache returns a Redis-backed AnalyticsCache. A ttl <= 0 falls
// back to DefaultTTL.
func NewAnalyticsCache(client redis.UniversalClient, ttl time.Duration) AnalyticsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &analyticsCache{client: client, ttl: ttl}
}

// Key returns the Redis key of a survey's report.
func Key(surveyID string) string {
	return fmt.Sprintf("survey:%s:analytics", surveyID)
}

// GenerationKey returns the Redis key of a survey's generation counter.
func GenerationKey(surveyID string) string {
	return fmt.Sprintf("survey:%s:analytics:gen", surveyID)
}

// Get returns the cached report, or (nil, nil) on a miss.
func (c *analyticsCache) Get(ctx context.Context, surveyID string) (*analytics.SurveyAnalytics, error) {
	data, err := c.client.Get(ctx, Key(surveyID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var report analytics.SurveyAnalytics
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Generation returns the survey's current generation; 0 if never invalidated.
func (c *analyticsCache) Generation(ctx context.Context, surveyID string) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey(surveyID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set stores report if the survey's generation still equals gen, otherwise
// it returns ErrStale and leaves the cache untouched.
func (c *analyticsCache) Set(ctx context.Context, report *analytics.SurveyAnalytics, gen int64) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	genKey := GenerationKey(report.SurveyID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, Key(report.SurveyID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	return err
}

// Invalidate drops the cached report and bumps the generation in one
// transaction.
func (c *analyticsCache) Invalidate(ctx context.Context, surveyID string) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, GenerationKey(surveyID))
		p.Del(ctx, Key(surveyID))
		return nil
	})
	return err
}

// Nop is the cache used when Redis is not configured: every read misses.
type Nop struct{}

func (Nop) Get(context.Context, string) (*analytics.SurveyAnalytics, error) { return nil, nil }
func (Nop) Generation(context.Context, string) (int64, error)               { return 0, nil }
func (Nop) Set(context.Context, *analytics.SurveyAnalytics, int64) error    { return nil }
func (Nop) Invalidate(context.Context, string) error                        { return nil }
