package renderer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carousel-service/internal/mocks"
	"carousel-service/internal/models"
)

func cachedImage(fingerprint string, createdAt time.Time) models.CachedImage {
	return models.CachedImage{
		Bytes:       []byte("img-" + fingerprint),
		Format:      "png",
		Width:       1080,
		Height:      1350,
		Fingerprint: fingerprint,
		CreatedAt:   createdAt,
	}
}

func TestRenderCache_SetGet(t *testing.T) {
	cache := NewRenderCache(time.Hour, 10)

	img := cachedImage("fp-1", time.Now())
	cache.Set(img)

	got, ok := cache.Get("fp-1")
	require.True(t, ok)
	assert.Equal(t, img.Bytes, got.Bytes)

	_, ok = cache.Get("fp-missing")
	assert.False(t, ok)
}

func TestRenderCache_LazyExpiry(t *testing.T) {
	cache := NewRenderCache(time.Hour, 10)

	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Set(cachedImage("fp-1", current))

	// 1. До истечения TTL запись доступна.
	_, ok := cache.Get("fp-1")
	require.True(t, ok)

	// 2. После истечения чтение вытесняет запись и возвращает промах.
	current = current.Add(time.Hour + time.Minute)
	_, ok = cache.Get("fp-1")
	assert.False(t, ok, "expired entry must be treated as a miss")
	assert.Equal(t, 0, cache.Len(), "expired entry must be evicted on read")
}

func TestRenderCache_EvictsOldestCreated(t *testing.T) {
	cache := NewRenderCache(time.Hour, 2)

	base := time.Now()
	cache.Set(cachedImage("fp-old", base.Add(-2*time.Minute)))
	cache.Set(cachedImage("fp-mid", base.Add(-time.Minute)))
	cache.Set(cachedImage("fp-new", base))

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("fp-old")
	assert.False(t, ok, "the oldest-created entry must be evicted first")
	_, ok = cache.Get("fp-mid")
	assert.True(t, ok)
	_, ok = cache.Get("fp-new")
	assert.True(t, ok)
}

func TestRenderCache_Cleanup(t *testing.T) {
	cache := NewRenderCache(time.Hour, 10)

	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Set(cachedImage("fp-1", current.Add(-2*time.Hour)))
	cache.Set(cachedImage("fp-2", current.Add(-90*time.Minute)))
	cache.Set(cachedImage("fp-3", current))

	removed := cache.Cleanup()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Len())
}

func TestCachedRenderer_MissThenHit(t *testing.T) {
	mockRenderer := mocks.NewMockRenderer(t)
	cache := NewRenderCache(time.Hour, 10)
	cached := NewCachedRenderer(zap.NewNop(), mockRenderer, cache)

	opts := baseOptions()
	mockRenderer.On("Render", mock.Anything, "<html>one</html>", opts).Return([]byte("rendered"), nil).Once()

	// 1. Первый вызов - промах, рендерер вызывается.
	img, hit, err := cached.Render(context.Background(), "<html>one</html>", opts)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("rendered"), img.Bytes)
	assert.Equal(t, Fingerprint("<html>one</html>", opts), img.Fingerprint)

	// 2. Второй вызов - попадание, рендерер больше не трогаем.
	img, hit, err = cached.Render(context.Background(), "<html>one</html>", opts)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("rendered"), img.Bytes)

	mockRenderer.AssertNumberOfCalls(t, "Render", 1)
}

func TestCachedRenderer_ErrorNotCached(t *testing.T) {
	mockRenderer := mocks.NewMockRenderer(t)
	cache := NewRenderCache(time.Hour, 10)
	cached := NewCachedRenderer(zap.NewNop(), mockRenderer, cache)

	opts := baseOptions()
	renderErr := errors.New("engine exploded")
	mockRenderer.On("Render", mock.Anything, "<html>bad</html>", opts).Return(nil, renderErr).Twice()

	_, hit, err := cached.Render(context.Background(), "<html>bad</html>", opts)
	require.Error(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, cache.Len(), "failed renders must not be cached")

	// Повторный вызов снова идет в рендерер.
	_, _, err = cached.Render(context.Background(), "<html>bad</html>", opts)
	require.Error(t, err)
	mockRenderer.AssertNumberOfCalls(t, "Render", 2)
}
