package renderer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"carousel-service/internal/models"
)

// Определяем метрики Prometheus
var (
	slidesRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_slides_rendered_total",
			Help: "Total number of slides rendered by outcome.",
		},
		[]string{"outcome"}, // "ok", "cached", "fallback"
	)
	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "carousel_slide_render_duration_seconds",
		Help:    "Duration of rendering a single slide including fallbacks.",
		Buckets: prometheus.LinearBuckets(0.5, 0.5, 10), // 0.5s, 1s, ..., 5s
	})
)

// ErrorReporter принимает ошибки конвейера для учета. Реализуется
// монитором ошибок; вид сбоя извлекается из самой ошибки.
type ErrorReporter interface {
	Record(err error)
}

// OrchestratorConfig - параметры пакетного рендеринга.
type OrchestratorConfig struct {
	BatchSize       int                  // Слайдов в одном пакете
	BatchPause      time.Duration        // Пауза между пакетами
	PrimaryOptions  models.RenderOptions // Опции основного рендера
	FallbackTimeout time.Duration        // Уменьшенный таймаут запасного рендера
}

// RenderStats - счетчики одного прогона оркестратора.
type RenderStats struct {
	CacheHits     int
	FallbackCount int
}

// BatchOrchestrator рендерит все слайды одной истории пакетами
// ограниченного размера. Слайды внутри пакета рендерятся конкурентно,
// пакеты строго последовательно с паузой между ними, чтобы не заваливать
// рендерер. Сбой одного слайда никогда не прерывает ни пакет, ни историю:
// слайд получает запасное изображение, конвейер всегда добегает до конца.
type BatchOrchestrator struct {
	logger   *zap.Logger
	renderer *CachedRenderer
	reporter ErrorReporter
	cfg      OrchestratorConfig
	now      func() time.Time
}

// NewBatchOrchestrator создает оркестратор. BatchSize меньше единицы
// приводится к единице, чтобы прогон не зависал.
func NewBatchOrchestrator(logger *zap.Logger, renderer *CachedRenderer, reporter ErrorReporter, cfg OrchestratorConfig) *BatchOrchestrator {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &BatchOrchestrator{
		logger:   logger.Named("BatchOrchestrator"),
		renderer: renderer,
		reporter: reporter,
		cfg:      cfg,
		now:      time.Now,
	}
}

// slideOutcome - результат рендеринга одного слайда, складывается в слот
// по индексу входа, а не по порядку завершения.
type slideOutcome struct {
	image    models.SlideImage
	cacheHit bool
}

// RenderStorySlides рендерит все слайды истории, кроме original: у тех
// изображение уже существует. Порядок ordinal'ов результата совпадает с
// порядком входа независимо от того, какой рендер внутри пакета закончился
// первым.
func (o *BatchOrchestrator) RenderStorySlides(ctx context.Context, storyID uuid.UUID, slides []models.SlideSpec) (models.PreGeneratedImageSet, RenderStats) {
	log := o.logger.With(zap.String("story_id", storyID.String()))

	renderable := make([]models.SlideSpec, 0, len(slides))
	for _, slide := range slides {
		if slide.Kind == models.SlideKindOriginal {
			continue
		}
		renderable = append(renderable, slide)
	}

	log.Info("Starting batched slide rendering",
		zap.Int("slide_count", len(renderable)),
		zap.Int("batch_size", o.cfg.BatchSize),
	)

	outcomes := make([]slideOutcome, len(renderable))

	for start := 0; start < len(renderable); start += o.cfg.BatchSize {
		end := start + o.cfg.BatchSize
		if end > len(renderable) {
			end = len(renderable)
		}
		batch := renderable[start:end]

		var wg sync.WaitGroup
		for i, slide := range batch {
			wg.Add(1)
			go func(slot int, spec models.SlideSpec) {
				defer wg.Done()
				outcomes[slot] = o.renderSlide(ctx, log, spec)
			}(start+i, slide)
		}
		wg.Wait()

		// Пауза между пакетами. Отмена контекста не прерывает прогон:
		// оставшиеся рендеры быстро упадут и получат заглушки.
		if end < len(renderable) && o.cfg.BatchPause > 0 {
			select {
			case <-time.After(o.cfg.BatchPause):
			case <-ctx.Done():
			}
		}
	}

	images := make([]models.SlideImage, 0, len(outcomes))
	stats := RenderStats{}
	for _, outcome := range outcomes {
		images = append(images, outcome.image)
		switch {
		case outcome.cacheHit:
			stats.CacheHits++
			slidesRendered.WithLabelValues("cached").Inc()
		case outcome.image.Fallback:
			stats.FallbackCount++
			slidesRendered.WithLabelValues("fallback").Inc()
		default:
			slidesRendered.WithLabelValues("ok").Inc()
		}
	}

	log.Info("Batched slide rendering finished",
		zap.Int("rendered", len(images)),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("fallbacks", stats.FallbackCount),
	)

	return models.PreGeneratedImageSet{
		StoryID:   storyID,
		Images:    images,
		CreatedAt: o.now(),
	}, stats
}

// renderSlide рендерит один слайд с двухступенчатым запасным путем:
// основной рендер, затем запасная разметка с уменьшенным таймаутом, затем
// локальная PNG-заглушка. Возврат всегда содержит байты.
func (o *BatchOrchestrator) renderSlide(ctx context.Context, log *zap.Logger, spec models.SlideSpec) slideOutcome {
	start := time.Now()
	defer func() { renderDuration.Observe(time.Since(start).Seconds()) }()

	img, hit, err := o.renderer.Render(ctx, spec.Markup, o.cfg.PrimaryOptions)
	if err == nil {
		return slideOutcome{
			image:    models.SlideImage{Ordinal: spec.Ordinal, Bytes: img.Bytes},
			cacheHit: hit,
		}
	}

	o.reporter.Record(models.NewPipelineError(models.ErrorKindRender, "orchestrator.render_slide", err))
	log.Warn("Primary render failed, trying fallback render",
		zap.Int("ordinal", spec.Ordinal),
		zap.Error(err),
	)

	fallbackOpts := o.cfg.PrimaryOptions
	fallbackOpts.TimeoutMs = int(o.cfg.FallbackTimeout / time.Millisecond)
	fbImg, _, fbErr := o.renderer.Render(ctx, FallbackMarkup(spec.Ordinal), fallbackOpts)
	if fbErr == nil {
		return slideOutcome{
			image: models.SlideImage{Ordinal: spec.Ordinal, Bytes: fbImg.Bytes, Fallback: true},
		}
	}

	o.reporter.Record(models.NewPipelineError(models.ErrorKindRender, "orchestrator.render_fallback", fbErr))
	log.Warn("Fallback render failed, using local placeholder",
		zap.Int("ordinal", spec.Ordinal),
		zap.Error(fbErr),
	)

	placeholder := PlaceholderPNG(o.cfg.PrimaryOptions.Width, o.cfg.PrimaryOptions.Height, spec.Ordinal)
	return slideOutcome{
		image: models.SlideImage{Ordinal: spec.Ordinal, Bytes: placeholder, Fallback: true},
	}
}
