package renderer

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"carousel-service/internal/models"
)

// Просроченная запись, вытесненная при чтении, учитывается как промах.
var renderCacheEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "carousel_render_cache_events_total",
		Help: "Render cache events by type.",
	},
	[]string{"event"}, // "hit", "miss", "evict"
)

// RenderCache - контентно-адресуемый кеш отрендеренных изображений по
// отпечатку (разметка, опции). Чистая оптимизация: корректность конвейера
// не зависит от его содержимого. Записи живут не дольше TTL, при
// переполнении вытесняются самые старые по времени создания.
type RenderCache struct {
	mu         sync.Mutex
	entries    map[string]models.CachedImage
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewRenderCache создает кеш с заданным TTL и потолком записей.
func NewRenderCache(ttl time.Duration, maxEntries int) *RenderCache {
	return &RenderCache{
		entries:    make(map[string]models.CachedImage),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get возвращает изображение по отпечатку. Просроченная запись удаляется
// на месте и считается промахом: отдать устаревшие байты нельзя.
func (c *RenderCache) Get(fingerprint string) (models.CachedImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, ok := c.entries[fingerprint]
	if !ok {
		renderCacheEvents.WithLabelValues("miss").Inc()
		return models.CachedImage{}, false
	}
	if c.expired(img) {
		delete(c.entries, fingerprint)
		renderCacheEvents.WithLabelValues("miss").Inc()
		return models.CachedImage{}, false
	}
	renderCacheEvents.WithLabelValues("hit").Inc()
	return img, true
}

// Set сохраняет изображение под его отпечатком. Если потолок превышен,
// вытесняются записи с самым ранним временем создания.
func (c *RenderCache) Set(img models.CachedImage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[img.Fingerprint] = img

	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		oldestKey := ""
		var oldestAt time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.CreatedAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.CreatedAt
			}
		}
		delete(c.entries, oldestKey)
		renderCacheEvents.WithLabelValues("evict").Inc()
	}
}

// Len возвращает текущее число записей.
func (c *RenderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cleanup удаляет все просроченные записи и возвращает их число.
func (c *RenderCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		renderCacheEvents.WithLabelValues("evict").Add(float64(removed))
	}
	return removed
}

func (c *RenderCache) expired(img models.CachedImage) bool {
	return c.ttl > 0 && c.now().Sub(img.CreatedAt) > c.ttl
}

// CachedRenderer объединяет рендерер и кеш: сначала поиск по отпечатку,
// при промахе рендер и запись результата.
type CachedRenderer struct {
	logger   *zap.Logger
	renderer Renderer
	cache    *RenderCache
	now      func() time.Time
}

// NewCachedRenderer создает кеширующую обертку над рендерером.
func NewCachedRenderer(logger *zap.Logger, r Renderer, cache *RenderCache) *CachedRenderer {
	return &CachedRenderer{
		logger:   logger.Named("CachedRenderer"),
		renderer: r,
		cache:    cache,
		now:      time.Now,
	}
}

// Render возвращает изображение для пары (разметка, опции) и признак
// попадания в кеш. Ошибка рендера отдается вызывающему как есть: политика
// повторов и fallback'ов живет уровнем выше.
func (r *CachedRenderer) Render(ctx context.Context, markup string, opts models.RenderOptions) (models.CachedImage, bool, error) {
	fp := Fingerprint(markup, opts)

	if img, ok := r.cache.Get(fp); ok {
		r.logger.Debug("Render cache hit", zap.String("fingerprint", fp[:12]))
		return img, true, nil
	}

	data, err := r.renderer.Render(ctx, markup, opts)
	if err != nil {
		return models.CachedImage{}, false, err
	}

	img := models.CachedImage{
		Bytes:       data,
		Format:      opts.Format,
		Width:       opts.Width,
		Height:      opts.Height,
		Fingerprint: fp,
		CreatedAt:   r.now(),
	}
	r.cache.Set(img)
	r.logger.Debug("Render cache fill", zap.String("fingerprint", fp[:12]), zap.Int("size_bytes", len(data)))
	return img, false, nil
}
