package generation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/platform/youtube"
)

func TestVideoGeneratorWithoutClientServesFallback(t *testing.T) {
	store := cache.NewMemoryStore()
	g := NewVideoGenerator(logger.NewNop(), nil, store, 2, time.Hour)

	items, err := g.Generate(context.Background(), "sleep", "ru")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].IsFallback)
	assert.False(t, g.QuotaStatus(context.Background()).Exceeded)
}

func TestVideoGeneratorSearch(t *testing.T) {
	yt := &fakeYouTube{videos: []youtube.Video{{ID: "v1", Title: "Sleep", Duration: "PT3M2S"}}}
	g := NewVideoGenerator(logger.NewNop(), yt, cache.NewMemoryStore(), 5, time.Hour)

	items, err := g.Generate(context.Background(), "sleep", "en")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsFallback)
	assert.Equal(t, "https://www.youtube.com/watch?v=v1", items[0].URL)
	assert.Contains(t, yt.query, "self help psychology")
}

func TestVideoGeneratorNoResultsFallsBack(t *testing.T) {
	g := NewVideoGenerator(logger.NewNop(), &fakeYouTube{}, cache.NewMemoryStore(), 5, time.Hour)
	items, err := g.Generate(context.Background(), "sleep", "en")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.True(t, items[0].IsFallback)
}

func TestVideoGeneratorQuotaFlag(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	yt := &fakeYouTube{err: fmt.Errorf("search: %w", youtube.ErrQuotaExceeded)}
	g := NewVideoGenerator(logger.NewNop(), yt, store, 5, time.Hour)

	_, err := g.Generate(ctx, "sleep", "en")
	assert.Equal(t, KindQuotaExceeded, KindOf(err))
	q := g.QuotaStatus(ctx)
	require.True(t, q.Exceeded)
	assert.WithinDuration(t, q.Since.Add(time.Hour), q.RetryAt, time.Second)

	// flagged: the API is not called again
	_, err = g.Generate(ctx, "anxiety", "en")
	assert.Equal(t, KindQuotaExceeded, KindOf(err))
	assert.EqualValues(t, 1, yt.calls.Load())

	require.NoError(t, g.ResetQuota(ctx))
	assert.False(t, g.QuotaStatus(ctx).Exceeded)
	yt.err = nil
	_, err = g.Generate(ctx, "anxiety", "en")
	require.NoError(t, err)
	assert.EqualValues(t, 2, yt.calls.Load())
}

func TestVideoGeneratorUpstreamError(t *testing.T) {
	g := NewVideoGenerator(logger.NewNop(), &fakeYouTube{err: fmt.Errorf("boom")}, cache.NewMemoryStore(), 5, time.Hour)
	_, err := g.Generate(context.Background(), "sleep", "en")
	assert.Equal(t, KindUpstream, KindOf(err))
}
