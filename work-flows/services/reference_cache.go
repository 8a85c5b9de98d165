package services

import (
	"context"
	"strconv"
	"time"

	"ringan/utils/log"
	"ringan/work-flows/models"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const problemsKey = "problems"

func suggestionsKey(problemID int) string {
	return "suggestions:" + strconv.Itoa(problemID)
}

func assessmentsKey(problemID int) string {
	return "assessments:" + strconv.Itoa(problemID)
}

// ReferenceCache is a read-through cache for the read-only reference data
// (problems, suggestions, assessments). Entries expire after the TTL and
// concurrent misses for the same key share one fetch.
type ReferenceCache struct {
	cache *cache.Cache
	group singleflight.Group
}

// NewReferenceCache creates a cache whose entries live for ttl. A ttl of zero or
// less keeps entries until Invalidate.
func NewReferenceCache(ttl, cleanupInterval time.Duration) *ReferenceCache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &ReferenceCache{
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (rc *ReferenceCache) Problems(ctx context.Context, fetch func(context.Context) ([]models.Problem, error)) ([]models.Problem, error) {
	return load(ctx, rc, problemsKey, fetch)
}

func (rc *ReferenceCache) Suggestions(ctx context.Context, problemID int, fetch func(context.Context) ([]models.Suggestion, error)) ([]models.Suggestion, error) {
	return load(ctx, rc, suggestionsKey(problemID), fetch)
}

func (rc *ReferenceCache) Assessments(ctx context.Context, problemID int, fetch func(context.Context) ([]models.SelfAssessment, error)) ([]models.SelfAssessment, error) {
	return load(ctx, rc, assessmentsKey(problemID), fetch)
}

// CachedProblems returns the problems list without fetching.
func (rc *ReferenceCache) CachedProblems() ([]models.Problem, bool) {
	if x, found := rc.cache.Get(problemsKey); found {
		return x.([]models.Problem), true
	}
	return nil, false
}

// Invalidate drops every entry so the next read goes to the API.
func (rc *ReferenceCache) Invalidate() {
	rc.cache.Flush()
	log.Info("reference cache invalidated")
}

func (rc *ReferenceCache) Len() int {
	return rc.cache.ItemCount()
}

// load only stores successful fetches; failures are returned to every waiter
// and the next call retries. The shared fetch is detached from the caller
// that started it, and each caller stops waiting when its own ctx is done.
func load[T any](ctx context.Context, rc *ReferenceCache, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if x, found := rc.cache.Get(key); found {
		log.Debugw("reference cache hit", "key", key)
		return x.([]T), nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := rc.group.DoChan(key, func() (any, error) {
		if x, found := rc.cache.Get(key); found {
			return x, nil
		}
		items, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		rc.cache.SetDefault(key, items)
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		log.Debugw("reference cache fill", "key", key, "shared", res.Shared)
		return res.Val.([]T), nil
	}
}
