package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carousel-service/internal/carousel"
	"carousel-service/internal/config"
	"carousel-service/internal/mocks"
	"carousel-service/internal/models"
	"carousel-service/internal/monitor"
	"carousel-service/internal/renderer"
	"carousel-service/internal/service"
	"carousel-service/internal/store"
	"carousel-service/internal/utils"
)

// generationHarness поднимает сервис генерации на реальных кешах и
// оркестраторе, подменяя только репозиторий и внешний рендерер.
type generationHarness struct {
	repo        *mocks.MockStoryRepository
	render      *mocks.MockRenderer
	store       *store.CarouselStore
	renderCache *renderer.RenderCache
	monitor     *monitor.ErrorMonitor
	svc         *service.GenerationService
}

func newGenerationHarness(t *testing.T) *generationHarness {
	logger := zap.NewNop()
	repo := mocks.NewMockStoryRepository(t)
	renderMock := mocks.NewMockRenderer(t)

	renderCache := renderer.NewRenderCache(time.Hour, 100)
	cached := renderer.NewCachedRenderer(logger, renderMock, renderCache)
	errMonitor := monitor.NewErrorMonitor(logger)

	primary := models.RenderOptions{Width: 1080, Height: 1350, Format: "png", DeviceScale: 2.0, TimeoutMs: 10000}
	orch := renderer.NewBatchOrchestrator(logger, cached, errMonitor, renderer.OrchestratorConfig{
		BatchSize:       2,
		BatchPause:      0,
		PrimaryOptions:  primary,
		FallbackTimeout: time.Second,
	})

	carouselStore := store.NewCarouselStore(logger, time.Hour, time.Hour)
	captions := service.NewCaptionBuilder(logger, nil, &config.Config{
		PublishBrandTag: "@storyweaver",
		AIModel:         "gpt-4o-mini",
	})
	markup := carousel.NewMarkupBuilder("@storyweaver")

	svc := service.NewGenerationService(logger, repo, carouselStore, orch, renderCache, captions, markup, service.GenerationConfig{
		MaxSlides:      10,
		Limits:         carousel.DefaultChunkLimits(),
		PrimaryOptions: primary,
	})

	return &generationHarness{
		repo:        repo,
		render:      renderMock,
		store:       carouselStore,
		renderCache: renderCache,
		monitor:     errMonitor,
		svc:         svc,
	}
}

func readyStory(body string) *models.Story {
	return &models.Story{
		ID:     uuid.New(),
		Title:  "The Signal",
		Body:   body,
		Status: models.StoryStatusReady,
	}
}

func TestGenerateCarousel_FullPipeline(t *testing.T) {
	h := newGenerationHarness(t)

	// 1. Короткая история: два абзаца сливаются в один content-слайд
	story := readyStory("First paragraph of the story.\n\nSecond paragraph, a little longer.")
	h.repo.On("GetByID", mock.Anything, story.ID).Return(story, nil).Once()
	h.render.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("img"), nil)

	summary, err := h.svc.GenerateCarousel(context.Background(), story.ID)
	require.NoError(t, err)
	require.NotNil(t, summary)

	// 2. Итог: титульный + контентный + брендовый слайды, без заглушек
	assert.Equal(t, 3, summary.SlideCount)
	assert.Equal(t, 0, summary.FallbackCount)
	assert.Equal(t, 0, summary.CacheHits)
	assert.Contains(t, summary.Caption, "The Signal")

	// 3. Метаданные и изображения лежат в кешах
	record, err := h.svc.GetCarousel(context.Background(), story.ID)
	require.NoError(t, err)
	require.Len(t, record.Slides, 3)
	assert.Equal(t, models.SlideKindTitle, record.Slides[0].Kind)
	assert.Equal(t, models.SlideKindContent, record.Slides[1].Kind)
	assert.Equal(t, models.SlideKindBranding, record.Slides[2].Kind)

	img, err := h.svc.GetSlideImage(context.Background(), story.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), img.Bytes)
	assert.False(t, img.Fallback)

	h.repo.AssertExpectations(t)
}

func TestGenerateCarousel_StoryNotReady(t *testing.T) {
	h := newGenerationHarness(t)

	story := readyStory("Body of a story that is still being written.")
	story.Status = models.StoryStatusDraft
	h.repo.On("GetByID", mock.Anything, story.ID).Return(story, nil).Once()

	_, err := h.svc.GenerateCarousel(context.Background(), story.ID)
	require.ErrorIs(t, err, models.ErrStoryNotReady)

	// Рендерер не дергается для неготовых историй
	h.render.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateCarousel_StoryNotFound(t *testing.T) {
	h := newGenerationHarness(t)

	id := uuid.New()
	h.repo.On("GetByID", mock.Anything, id).Return(nil, models.ErrStoryNotFound).Once()

	_, err := h.svc.GenerateCarousel(context.Background(), id)
	require.ErrorIs(t, err, models.ErrStoryNotFound)
}

func TestGenerateCarousel_RendererDownStillCompletes(t *testing.T) {
	h := newGenerationHarness(t)

	story := readyStory("A story the renderer will never see finished.")
	h.repo.On("GetByID", mock.Anything, story.ID).Return(story, nil).Once()
	// И основной, и запасной рендер падают: остаются локальные заглушки
	h.render.On("Render", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("renderer down"))

	summary, err := h.svc.GenerateCarousel(context.Background(), story.ID)
	require.NoError(t, err, "pipeline must complete even with the renderer down")
	assert.Equal(t, 3, summary.SlideCount)
	assert.Equal(t, 3, summary.FallbackCount)

	// 1. Каждый слайд получил байты заглушки
	for ordinal := 0; ordinal < 3; ordinal++ {
		img, imgErr := h.svc.GetSlideImage(context.Background(), story.ID, ordinal)
		require.NoError(t, imgErr)
		assert.NotEmpty(t, img.Bytes, "slide %d must carry placeholder bytes", ordinal)
		assert.True(t, img.Fallback, "slide %d must be marked as fallback", ordinal)
	}

	// 2. Монитор увидел оба неудачных рендера на каждый слайд
	metrics := h.monitor.GetMetrics()
	assert.Equal(t, int64(6), metrics.ByKind[models.ErrorKindRender])
}

func TestGetCarousel_MissReturnsNotFound(t *testing.T) {
	h := newGenerationHarness(t)

	_, err := h.svc.GetCarousel(context.Background(), uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetSlideImage_OnDemandRerender(t *testing.T) {
	h := newGenerationHarness(t)

	// 1. Набор изображений не создавался: слайд пересобирается из текста
	story := readyStory("Lone paragraph body for a single content slide.")
	h.repo.On("GetByID", mock.Anything, story.ID).Return(story, nil).Twice()
	h.render.On("Render", mock.Anything, mock.Anything, mock.Anything).
		Return([]byte("on-demand"), nil).Once()

	img, err := h.svc.GetSlideImage(context.Background(), story.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, img.Ordinal)
	assert.Equal(t, []byte("on-demand"), img.Bytes)
	assert.False(t, img.Fallback)

	// 2. Повторный запрос закрывает кеш рендера, внешний рендерер молчит
	img, err = h.svc.GetSlideImage(context.Background(), story.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("on-demand"), img.Bytes)
	h.render.AssertNumberOfCalls(t, "Render", 1)

	h.repo.AssertExpectations(t)
	h.render.AssertExpectations(t)
}

func TestGetSlideImage_UnknownOrdinal(t *testing.T) {
	h := newGenerationHarness(t)

	story := readyStory("Short body.")
	h.repo.On("GetByID", mock.Anything, story.ID).Return(story, nil).Once()

	_, err := h.svc.GetSlideImage(context.Background(), story.ID, 99)
	require.ErrorIs(t, err, models.ErrSlideNotFound)
	h.render.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSlideImage_OriginalSlideHasNoBytes(t *testing.T) {
	h := newGenerationHarness(t)

	// Готовое изображение истории живет по внешнему URL, байтов у него нет
	story := readyStory("Body next to an existing illustration.")
	story.ExistingImageURL = utils.PtrString("https://cdn.example.com/art.png")
	h.repo.On("GetByID", mock.Anything, story.ID).Return(story, nil).Once()

	_, err := h.svc.GetSlideImage(context.Background(), story.ID, 0)
	require.ErrorIs(t, err, models.ErrSlideNotFound)
	h.render.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
}

func TestCleanupCaches_FreshEntriesSurvive(t *testing.T) {
	h := newGenerationHarness(t)

	story := readyStory("Body that stays fresh in the caches.")
	h.repo.On("GetByID", mock.Anything, story.ID).Return(story, nil).Once()
	h.render.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("img"), nil)

	_, err := h.svc.GenerateCarousel(context.Background(), story.ID)
	require.NoError(t, err)

	// Свежие записи чистка не трогает
	result := h.svc.CleanupCaches()
	assert.Equal(t, models.CleanupResult{}, result)

	_, err = h.svc.GetCarousel(context.Background(), story.ID)
	require.NoError(t, err, "metadata must survive the cleanup")
}
