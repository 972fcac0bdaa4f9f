package handler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carousel-service/internal/handler"
	"carousel-service/internal/mocks"
	"carousel-service/internal/models"
	"carousel-service/internal/monitor"
)

const testJWTSecret = "test-secret-for-handlers"

type httpHarness struct {
	generation *mocks.MockCarouselGenerator
	publishing *mocks.MockCarouselSharer
	monitor    *monitor.ErrorMonitor
	echo       *echo.Echo
}

func newHTTPHarness(t *testing.T) *httpHarness {
	t.Helper()

	generation := mocks.NewMockCarouselGenerator(t)
	publishing := mocks.NewMockCarouselSharer(t)
	mon := monitor.NewErrorMonitor(zap.NewNop())

	h := handler.NewCarouselHandler(generation, publishing, mon, zap.NewNop(), testJWTSecret, "png")
	e := echo.New()
	h.RegisterRoutes(e)

	return &httpHarness{generation: generation, publishing: publishing, monitor: mon, echo: e}
}

// signedServiceToken выпускает валидный межсервисный токен под тестовым секретом.
func signedServiceToken(t *testing.T, secret string) string {
	t.Helper()

	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "story-platform",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err, "signing a test token must not fail")
	return signed
}

func (h *httpHarness) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("X-Internal-Service-Token", token)
	}
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "response body must be valid JSON")
	return out
}

func TestGetCarousel_Success(t *testing.T) {
	// 1. Подготовка: кешированная карусель есть.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	record := &models.CarouselRecord{
		StoryID: storyID,
		Slides: []models.SlideSpec{
			{Ordinal: 0, Kind: models.SlideKindTitle},
			{Ordinal: 1, Kind: models.SlideKindContent},
		},
		Caption:   "test caption",
		CreatedAt: time.Now(),
	}
	harness.generation.On("GetCarousel", mock.Anything, storyID).Return(record, nil).Once()

	// 2. Запрос метаданных.
	rec := harness.do(http.MethodGet, "/stories/"+storyID.String()+"/carousel", "")

	// 3. Проверка: 200 и запись как есть.
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[models.CarouselRecord](t, rec)
	require.Equal(t, storyID, got.StoryID)
	require.Len(t, got.Slides, 2)
	require.Equal(t, "test caption", got.Caption)
	harness.generation.AssertExpectations(t)
}

func TestGetCarousel_NotFound(t *testing.T) {
	// 1. Подготовка: кеш пуст.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	harness.generation.On("GetCarousel", mock.Anything, storyID).Return(nil, models.ErrNotFound).Once()

	// 2. Запрос.
	rec := harness.do(http.MethodGet, "/stories/"+storyID.String()+"/carousel", "")

	// 3. Проверка: промах кеша это 404, а не 500.
	require.Equal(t, http.StatusNotFound, rec.Code)
	apiErr := decodeJSON[handler.APIError](t, rec)
	require.Equal(t, "Resource not found", apiErr.Message)
}

func TestGetCarousel_InvalidStoryID(t *testing.T) {
	// 1. Невалидный UUID в пути.
	harness := newHTTPHarness(t)

	rec := harness.do(http.MethodGet, "/stories/not-a-uuid/carousel", "")

	// 2. Проверка: 400 до обращения к сервису.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeJSON[handler.APIError](t, rec)
	require.Equal(t, "Invalid story ID format", apiErr.Message)
	harness.generation.AssertNotCalled(t, "GetCarousel", mock.Anything, mock.Anything)
}

func TestGetSlideImage_Success(t *testing.T) {
	// 1. Подготовка: изображение слайда готово.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	imageBytes := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	harness.generation.On("GetSlideImage", mock.Anything, storyID, 2).
		Return(models.SlideImage{Ordinal: 2, Bytes: imageBytes}, nil).Once()

	// 2. Запрос байтов слайда.
	rec := harness.do(http.MethodGet, "/stories/"+storyID.String()+"/carousel/slides/2", "")

	// 3. Проверка: бинарный ответ с типом изображения.
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	require.Equal(t, imageBytes, rec.Body.Bytes())
	harness.generation.AssertExpectations(t)
}

func TestGetSlideImage_NotFound(t *testing.T) {
	// 1. Подготовка: слайда с таким ordinal нет.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	harness.generation.On("GetSlideImage", mock.Anything, storyID, 9).
		Return(models.SlideImage{}, fmt.Errorf("%w: ordinal 9", models.ErrSlideNotFound)).Once()

	// 2. Запрос.
	rec := harness.do(http.MethodGet, "/stories/"+storyID.String()+"/carousel/slides/9", "")

	// 3. Проверка.
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSlideImage_InvalidOrdinal(t *testing.T) {
	harness := newHTTPHarness(t)
	storyID := uuid.New()

	for _, ordinal := range []string{"abc", "-1"} {
		rec := harness.do(http.MethodGet, "/stories/"+storyID.String()+"/carousel/slides/"+ordinal, "")

		require.Equal(t, http.StatusBadRequest, rec.Code, "ordinal %q must be rejected", ordinal)
		apiErr := decodeJSON[handler.APIError](t, rec)
		require.Equal(t, "Invalid slide ordinal", apiErr.Message)
	}
	harness.generation.AssertNotCalled(t, "GetSlideImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetHealth_Healthy(t *testing.T) {
	// 1. Свежий монитор без ошибок.
	harness := newHTTPHarness(t)

	rec := harness.do(http.MethodGet, "/health", "")

	// 2. Проверка вердикта.
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeJSON[monitor.HealthStatus](t, rec)
	require.True(t, status.Healthy)
	require.False(t, status.CriticalErrors)
}

func TestGetHealth_CriticalErrors(t *testing.T) {
	// 1. Подготовка: ошибок рендера больше критического порога.
	harness := newHTTPHarness(t)
	for i := 0; i < 6; i++ {
		harness.monitor.Record(models.NewPipelineError(models.ErrorKindRender, "renderer.render", errors.New("timeout")))
	}

	// 2. Запрос здоровья.
	rec := harness.do(http.MethodGet, "/health", "")

	// 3. Проверка: 503 с тем же телом вердикта.
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decodeJSON[monitor.HealthStatus](t, rec)
	require.False(t, status.Healthy)
	require.True(t, status.CriticalErrors)
}

func TestGetErrorMetrics(t *testing.T) {
	// 1. Подготовка: две учтенные ошибки разных видов.
	harness := newHTTPHarness(t)
	harness.monitor.Record(models.NewPipelineError(models.ErrorKindRender, "renderer.render", errors.New("timeout")))
	harness.monitor.Record(models.NewPipelineError(models.ErrorKindPublishAPI, "social.upload", errors.New("status 500")))

	// 2. Запрос сводки ошибок.
	rec := harness.do(http.MethodGet, "/health/errors", "")

	// 3. Проверка: счетчики и журнал, свежие записи первыми.
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Metrics monitor.Metrics       `json:"metrics"`
		Recent  []monitor.ErrorRecord `json:"recent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(2), body.Metrics.Total)
	require.Equal(t, int64(1), body.Metrics.ByKind[models.ErrorKindRender])
	require.Len(t, body.Recent, 2)
	require.Equal(t, models.ErrorKindPublishAPI, body.Recent[0].Kind)
}

func TestMetricsEndpoint(t *testing.T) {
	harness := newHTTPHarness(t)

	rec := harness.do(http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.String())
}

func TestInternalRoutes_Auth(t *testing.T) {
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	target := "/internal/carousels/" + storyID.String() + "/generate"

	t.Run("MissingToken", func(t *testing.T) {
		rec := harness.do(http.MethodPost, target, "")

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MalformedToken", func(t *testing.T) {
		rec := harness.do(http.MethodPost, target, "not-a-jwt")

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		rec := harness.do(http.MethodPost, target, signedServiceToken(t, "another-secret"))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		claims := models.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "story-platform",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
		require.NoError(t, err)

		rec := harness.do(http.MethodPost, target, expired)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	// Ни один невалидный токен не должен был дойти до сервиса.
	harness.generation.AssertNotCalled(t, "GenerateCarousel", mock.Anything, mock.Anything)
}

func TestGenerateCarousel_Success(t *testing.T) {
	// 1. Подготовка: генерация проходит.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	summary := &models.GenerationSummary{
		StoryID:       storyID,
		SlideCount:    5,
		FallbackCount: 1,
		CacheHits:     2,
		Caption:       "generated caption",
	}
	harness.generation.On("GenerateCarousel", mock.Anything, storyID).Return(summary, nil).Once()

	// 2. Запрос с валидным токеном.
	rec := harness.do(http.MethodPost, "/internal/carousels/"+storyID.String()+"/generate", signedServiceToken(t, testJWTSecret))

	// 3. Проверка сводки.
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[models.GenerationSummary](t, rec)
	require.Equal(t, storyID, got.StoryID)
	require.Equal(t, 5, got.SlideCount)
	require.Equal(t, 1, got.FallbackCount)
	harness.generation.AssertExpectations(t)
}

func TestGenerateCarousel_StoryNotReady(t *testing.T) {
	// 1. История еще не финализирована.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	harness.generation.On("GenerateCarousel", mock.Anything, storyID).
		Return(nil, fmt.Errorf("%w: status draft", models.ErrStoryNotReady)).Once()

	// 2. Запрос.
	rec := harness.do(http.MethodPost, "/internal/carousels/"+storyID.String()+"/generate", signedServiceToken(t, testJWTSecret))

	// 3. Проверка: конфликт состояния, не ошибка сервера.
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestShareCarousel_Success(t *testing.T) {
	// 1. Подготовка: публикация проходит.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	result := &models.ShareResult{StoryID: storyID, PostID: "post-42", SlideCount: 4, SharedAt: time.Now()}
	harness.publishing.On("ShareCarousel", mock.Anything, storyID).Return(result, nil).Once()

	// 2. Запрос.
	rec := harness.do(http.MethodPost, "/internal/carousels/"+storyID.String()+"/share", signedServiceToken(t, testJWTSecret))

	// 3. Проверка.
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[models.ShareResult](t, rec)
	require.Equal(t, "post-42", got.PostID)
	require.Equal(t, 4, got.SlideCount)
	harness.publishing.AssertExpectations(t)
}

func TestShareCarousel_AlreadyShared(t *testing.T) {
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	harness.publishing.On("ShareCarousel", mock.Anything, storyID).
		Return(nil, fmt.Errorf("%w: story %s", models.ErrAlreadyShared, storyID)).Once()

	rec := harness.do(http.MethodPost, "/internal/carousels/"+storyID.String()+"/share", signedServiceToken(t, testJWTSecret))

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestShareCarousel_RateLimited(t *testing.T) {
	// 1. Подготовка: API публикации вернул 429, ошибка завернута конвейером.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	pubErr := &models.PublishError{StatusCode: http.StatusTooManyRequests, Class: models.PublishErrRateLimited, Message: "slow down"}
	harness.publishing.On("ShareCarousel", mock.Anything, storyID).
		Return(nil, models.NewPipelineError(models.ErrorKindPublishAPI, "publishing.share_carousel", pubErr)).Once()

	// 2. Запрос.
	rec := harness.do(http.MethodPost, "/internal/carousels/"+storyID.String()+"/share", signedServiceToken(t, testJWTSecret))

	// 3. Проверка: статус и флаг retryable доходят до вызывающего сервиса.
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body struct {
		Message        string `json:"message"`
		Retryable      bool   `json:"retryable"`
		UpstreamStatus int    `json:"upstream_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Retryable)
	require.Equal(t, http.StatusTooManyRequests, body.UpstreamStatus)
	require.Contains(t, body.Message, "slow down")
}

func TestShareCarousel_UpstreamServerError(t *testing.T) {
	// 1. Подготовка: API публикации отвечает 500.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	pubErr := &models.PublishError{StatusCode: http.StatusInternalServerError, Class: models.PublishErrServer, Message: "upstream down"}
	harness.publishing.On("ShareCarousel", mock.Anything, storyID).
		Return(nil, models.NewPipelineError(models.ErrorKindPublishAPI, "publishing.share_carousel", pubErr)).Once()

	// 2. Запрос.
	rec := harness.do(http.MethodPost, "/internal/carousels/"+storyID.String()+"/share", signedServiceToken(t, testJWTSecret))

	// 3. Проверка: чужой 5xx транслируется как 502, а не как наш 500.
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body struct {
		Retryable      bool `json:"retryable"`
		UpstreamStatus int  `json:"upstream_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Retryable)
	require.Equal(t, http.StatusInternalServerError, body.UpstreamStatus)
}

func TestShareCarousel_PersistFailure(t *testing.T) {
	// 1. Пост создан, но статус истории не сохранился.
	harness := newHTTPHarness(t)
	storyID := uuid.New()
	harness.publishing.On("ShareCarousel", mock.Anything, storyID).
		Return(nil, fmt.Errorf("%w: post post-9: connection reset", models.ErrSharePersistFailed)).Once()

	// 2. Запрос.
	rec := harness.do(http.MethodPost, "/internal/carousels/"+storyID.String()+"/share", signedServiceToken(t, testJWTSecret))

	// 3. Проверка: сообщение с идентификатором поста доходит до оператора.
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	apiErr := decodeJSON[handler.APIError](t, rec)
	require.Contains(t, apiErr.Message, "post-9")
}

func TestListEligible(t *testing.T) {
	harness := newHTTPHarness(t)
	summaries := []models.StorySummary{
		{ID: uuid.New(), Title: "First", Status: models.StoryStatusReady},
		{ID: uuid.New(), Title: "Second", Status: models.StoryStatusReady},
	}

	t.Run("ExplicitLimit", func(t *testing.T) {
		harness.publishing.On("ListEligible", mock.Anything, 3).Return(summaries, nil).Once()

		rec := harness.do(http.MethodGet, "/internal/carousels/eligible?limit=3", signedServiceToken(t, testJWTSecret))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data  []models.StorySummary `json:"data"`
			Count int                   `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data, 2)
		require.Equal(t, 2, body.Count)
	})

	t.Run("DefaultLimit", func(t *testing.T) {
		// Без параметра и с мусорным значением действует лимит по умолчанию.
		harness.publishing.On("ListEligible", mock.Anything, 20).Return(summaries, nil).Twice()

		for _, target := range []string{"/internal/carousels/eligible", "/internal/carousels/eligible?limit=zero"} {
			rec := harness.do(http.MethodGet, target, signedServiceToken(t, testJWTSecret))
			require.Equal(t, http.StatusOK, rec.Code, "target %q", target)
		}
	})

	t.Run("RepositoryError", func(t *testing.T) {
		harness.publishing.On("ListEligible", mock.Anything, 20).Return(nil, errors.New("connection refused")).Once()

		rec := harness.do(http.MethodGet, "/internal/carousels/eligible", signedServiceToken(t, testJWTSecret))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	harness.publishing.AssertExpectations(t)
}

func TestCleanupCaches(t *testing.T) {
	// 1. Подготовка: чистка убирает записи из всех кешей.
	harness := newHTTPHarness(t)
	harness.generation.On("CleanupCaches").
		Return(models.CleanupResult{MetadataRemoved: 2, ImagesRemoved: 1, RenderEntriesRemoved: 3}).Once()

	// 2. Запрос.
	rec := harness.do(http.MethodPost, "/internal/cache/cleanup", signedServiceToken(t, testJWTSecret))

	// 3. Проверка отчета.
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[models.CleanupResult](t, rec)
	require.Equal(t, 2, got.MetadataRemoved)
	require.Equal(t, 1, got.ImagesRemoved)
	require.Equal(t, 3, got.RenderEntriesRemoved)
	harness.generation.AssertExpectations(t)
}

func TestResetMonitor(t *testing.T) {
	// 1. Подготовка: в мониторе есть накопленная ошибка.
	harness := newHTTPHarness(t)
	harness.monitor.Record(models.NewPipelineError(models.ErrorKindCache, "store.get", errors.New("boom")))
	require.Equal(t, int64(1), harness.monitor.GetMetrics().Total)

	// 2. Сброс через внутренний маршрут.
	rec := harness.do(http.MethodPost, "/internal/monitor/reset", signedServiceToken(t, testJWTSecret))

	// 3. Проверка: 204 и пустые счетчики.
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, int64(0), harness.monitor.GetMetrics().Total)
	require.Empty(t, harness.monitor.History())
}
