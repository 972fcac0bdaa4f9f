package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carousel-service/internal/carousel"
	"carousel-service/internal/models"
	"carousel-service/internal/renderer"
	"carousel-service/internal/repository"
	"carousel-service/internal/store"
)

// Compile-time check
var _ CarouselGenerator = (*GenerationService)(nil)

// GenerationConfig - настройки конвейера генерации.
type GenerationConfig struct {
	MaxSlides      int
	Limits         carousel.ChunkLimits
	PrimaryOptions models.RenderOptions
}

// GenerationService собирает карусель истории: нарезает текст, определяет
// тему, строит разметку слайдов, рендерит пакетами и кеширует результаты.
type GenerationService struct {
	logger       *zap.Logger
	repo         repository.StoryRepository
	store        *store.CarouselStore
	orchestrator *renderer.BatchOrchestrator
	renderCache  *renderer.RenderCache
	captions     *CaptionBuilder
	markup       *carousel.MarkupBuilder
	cfg          GenerationConfig

	now func() time.Time
}

// NewGenerationService создает новый сервис генерации каруселей.
func NewGenerationService(
	logger *zap.Logger,
	repo repository.StoryRepository,
	carouselStore *store.CarouselStore,
	orchestrator *renderer.BatchOrchestrator,
	renderCache *renderer.RenderCache,
	captions *CaptionBuilder,
	markup *carousel.MarkupBuilder,
	cfg GenerationConfig,
) *GenerationService {
	return &GenerationService{
		logger:       logger.Named("GenerationService"),
		repo:         repo,
		store:        carouselStore,
		orchestrator: orchestrator,
		renderCache:  renderCache,
		captions:     captions,
		markup:       markup,
		cfg:          cfg,
		now:          time.Now,
	}
}

// GenerateCarousel прогоняет полный конвейер по одной истории. Сбои
// рендеринга не всплывают сюда: каждый слайд в худшем случае получает
// заглушку, и набор изображений всегда полон.
func (s *GenerationService) GenerateCarousel(ctx context.Context, storyID uuid.UUID) (*models.GenerationSummary, error) {
	logFields := []zap.Field{zap.String("storyID", storyID.String())}
	s.logger.Info("Generating carousel", logFields...)

	story, err := s.repo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.Status != models.StoryStatusReady {
		s.logger.Warn("Story is not ready for carousel generation",
			append(logFields, zap.String("status", string(story.Status)))...)
		return nil, models.ErrStoryNotReady
	}

	record := s.buildRecord(ctx, story)
	s.store.SetCarousel(record)

	imageSet, stats := s.orchestrator.RenderStorySlides(ctx, storyID, record.Slides)
	s.store.SetImages(imageSet)

	summary := &models.GenerationSummary{
		StoryID:       storyID,
		SlideCount:    len(record.Slides),
		FallbackCount: stats.FallbackCount,
		CacheHits:     stats.CacheHits,
		Caption:       record.Caption,
	}

	s.logger.Info("Carousel generated",
		append(logFields,
			zap.Int("slideCount", summary.SlideCount),
			zap.Int("fallbackCount", summary.FallbackCount),
			zap.Int("cacheHits", summary.CacheHits),
		)...)

	return summary, nil
}

// GetCarousel возвращает метаданные карусели из кеша. Промах не запускает
// пересборку: метаданные дешевы только вместе с уже готовыми изображениями,
// а полный прогон конвейера инициируют задачи из очереди.
func (s *GenerationService) GetCarousel(_ context.Context, storyID uuid.UUID) (*models.CarouselRecord, error) {
	record, ok := s.store.GetCarousel(storyID)
	if !ok {
		return nil, models.ErrNotFound
	}
	return &record, nil
}

// GetSlideImage возвращает изображение слайда. Сначала кеш пре-рендера;
// при промахе слайд пересоздается из авторитетного текста истории и
// рендерится точечно через кеш рендера.
func (s *GenerationService) GetSlideImage(ctx context.Context, storyID uuid.UUID, ordinal int) (models.SlideImage, error) {
	if img, ok := s.store.GetImage(storyID, ordinal); ok {
		return img, nil
	}

	logFields := []zap.Field{
		zap.String("storyID", storyID.String()),
		zap.Int("ordinal", ordinal),
	}
	s.logger.Info("Pre-generated image miss, re-rendering single slide", logFields...)

	story, err := s.repo.GetByID(ctx, storyID)
	if err != nil {
		return models.SlideImage{}, err
	}

	slide, ok := s.slideByOrdinal(story, ordinal)
	if !ok {
		s.logger.Warn("Requested slide ordinal is outside the carousel", logFields...)
		return models.SlideImage{}, models.ErrSlideNotFound
	}

	// Original-слайд байтов не несет, его изображение живет по внешнему URL.
	if slide.Kind == models.SlideKindOriginal {
		return models.SlideImage{}, models.ErrSlideNotFound
	}

	// Одиночный слайд идет через оркестратор: тот же кеш рендера и та же
	// цепочка заглушек, что и при пакетном прогоне.
	set, _ := s.orchestrator.RenderStorySlides(ctx, storyID, []models.SlideSpec{slide})
	img, ok := set.ImageByOrdinal(ordinal)
	if !ok {
		return models.SlideImage{}, models.ErrSlideNotFound
	}
	return img, nil
}

// CleanupCaches принудительно убирает истекшие записи из кешей метаданных,
// изображений и рендера.
func (s *GenerationService) CleanupCaches() models.CleanupResult {
	metadataRemoved, imagesRemoved := s.store.Cleanup()
	renderRemoved := s.renderCache.Cleanup()

	result := models.CleanupResult{
		MetadataRemoved:      metadataRemoved,
		ImagesRemoved:        imagesRemoved,
		RenderEntriesRemoved: renderRemoved,
	}
	s.logger.Info("Caches cleaned up",
		zap.Int("metadataRemoved", result.MetadataRemoved),
		zap.Int("imagesRemoved", result.ImagesRemoved),
		zap.Int("renderEntriesRemoved", result.RenderEntriesRemoved),
	)
	return result
}

// buildRecord собирает метаданные карусели: слайды, дескриптор темы и
// подпись. Детерминированно с точностью до AI-доводки подписи.
func (s *GenerationService) buildRecord(ctx context.Context, story *models.Story) models.CarouselRecord {
	slides, descriptor := s.composeSlides(story)
	caption := s.captions.BuildCaption(ctx, story, descriptor)

	return models.CarouselRecord{
		StoryID:   story.ID,
		Slides:    slides,
		Caption:   caption,
		Theme:     descriptor,
		CreatedAt: s.now(),
	}
}

// composeSlides пересоздает спецификации слайдов из текста истории:
// нарезка, классификация, стиль, разметка. Чистая функция от истории
// и настроек нарезки.
func (s *GenerationService) composeSlides(story *models.Story) ([]models.SlideSpec, models.ThemeDescriptor) {
	hasOriginal := story.ExistingImageURL != nil && *story.ExistingImageURL != ""
	budget := carousel.ContentBudget(s.cfg.MaxSlides, hasOriginal)
	chunks := carousel.ChunkContent(story.Body, budget, s.cfg.Limits)

	descriptor := carousel.ClassifyStory(story.Title, story.Body)
	style := carousel.StyleFor(descriptor)
	slides := s.markup.BuildSlides(*story, descriptor, chunks, style)
	return slides, descriptor
}

// slideByOrdinal находит спецификацию слайда: из закешированных метаданных,
// а при их отсутствии - пересборкой слайдов из текста истории. Пересборка
// не трогает кеши и не зовет AI, это временный артефакт одного запроса.
func (s *GenerationService) slideByOrdinal(story *models.Story, ordinal int) (models.SlideSpec, bool) {
	var slides []models.SlideSpec
	if record, ok := s.store.GetCarousel(story.ID); ok {
		slides = record.Slides
	} else {
		slides, _ = s.composeSlides(story)
	}

	for _, slide := range slides {
		if slide.Ordinal == ordinal {
			return slide, true
		}
	}
	return models.SlideSpec{}, false
}
