package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dementia-risk/pkg/common/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*AssessmentCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewAssessmentCache(client, ttl), mr
}

func TestAssessmentCachePutGet(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	p := 0.42
	in := models.AssessmentResult{
		ID:          "abc",
		Verdict:     "not at risk",
		Probability: &p,
		Message:     "Result: no risk of dementia",
		Latency:     3 * time.Millisecond,
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, cache.Put(ctx, in))
	assert.True(t, mr.Exists("assessment:abc"))

	out, err := cache.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, in.Verdict, out.Verdict)
	assert.Equal(t, in.Latency, out.Latency)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	require.NotNil(t, out.Probability)
	assert.Equal(t, p, *out.Probability)
}

func TestAssessmentCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, models.AssessmentResult{ID: "x", Message: "m"}))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssessmentCacheUnknownID(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	_, err := cache.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
