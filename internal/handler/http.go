package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carousel-service/internal/authutils"
	"carousel-service/internal/middleware"
	"carousel-service/internal/models"
	"carousel-service/internal/monitor"
	"carousel-service/internal/service"
)

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// CarouselHandler обрабатывает HTTP запросы сервиса каруселей.
type CarouselHandler struct {
	generation  service.CarouselGenerator
	publishing  service.CarouselSharer
	monitor     *monitor.ErrorMonitor
	logger      *zap.Logger
	verifier    *authutils.JWTVerifier // Верификатор межсервисных токенов
	slideFormat string
}

// NewCarouselHandler создает новый CarouselHandler.
func NewCarouselHandler(
	generation service.CarouselGenerator,
	publishing service.CarouselSharer,
	mon *monitor.ErrorMonitor,
	logger *zap.Logger,
	jwtSecret string,
	slideFormat string,
) *CarouselHandler {
	verifier, err := authutils.NewJWTVerifier(jwtSecret, logger)
	if err != nil {
		logger.Fatal("Failed to create Inter-Service JWT Verifier", zap.Error(err))
	}

	return &CarouselHandler{
		generation:  generation,
		publishing:  publishing,
		monitor:     mon,
		logger:      logger.Named("CarouselHandler"),
		verifier:    verifier,
		slideFormat: slideFormat,
	}
}

// RegisterRoutes регистрирует маршруты сервиса каруселей.
func (h *CarouselHandler) RegisterRoutes(e *echo.Echo) {
	interServiceAuthMiddleware := middleware.InterServiceAuthMiddleware(h.verifier, h.logger)

	// --- Публичные маршруты чтения карусели ---
	storiesGroup := e.Group("/stories")
	{
		storiesGroup.GET("/:story_id/carousel", h.getCarousel)
		storiesGroup.GET("/:story_id/carousel/slides/:ordinal", h.getSlideImage)
	}

	// --- Диагностика ---
	e.GET("/health", h.getHealth)
	e.GET("/health/errors", h.getErrorMetrics)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Внутренние маршруты, защищенные межсервисным токеном ---
	internalGroup := e.Group("/internal", interServiceAuthMiddleware)
	{
		internalGroup.POST("/carousels/:story_id/generate", h.generateCarousel)
		internalGroup.POST("/carousels/:story_id/share", h.shareCarousel)
		internalGroup.GET("/carousels/eligible", h.listEligible)
		internalGroup.POST("/cache/cleanup", h.cleanupCaches)
		internalGroup.POST("/monitor/reset", h.resetMonitor)
	}
}

// --- Вспомогательные функции --- //

func handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrSlideNotFound),
		errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: "Resource not found"}
	case errors.Is(err, models.ErrAlreadyShared):
		statusCode = http.StatusConflict // 409 Conflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrStoryNotReady):
		statusCode = http.StatusConflict // 409 Conflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrNoSlidesToRender):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrSharePersistFailed):
		// Пост уже существует: сообщение обязано дойти до оператора как есть
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: err.Error()}
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}

// --- Публичные обработчики --- //

func (h *CarouselHandler) getCarousel(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "getCarousel"))

	idStr := c.Param("story_id")
	storyID, err := uuid.Parse(idStr)
	if err != nil {
		log.Warn("Invalid story ID format", zap.String("story_id", idStr), zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	record, err := h.generation.GetCarousel(c.Request().Context(), storyID)
	if err != nil {
		// Промах кеша это нормальный ответ, не логируем его как сбой
		if !errors.Is(err, models.ErrNotFound) {
			log.Error("Error getting carousel", zap.String("storyID", storyID.String()), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, record)
}

func (h *CarouselHandler) getSlideImage(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "getSlideImage"))

	idStr := c.Param("story_id")
	storyID, err := uuid.Parse(idStr)
	if err != nil {
		log.Warn("Invalid story ID format", zap.String("story_id", idStr), zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	ordinalStr := c.Param("ordinal")
	ordinal, err := strconv.Atoi(ordinalStr)
	if err != nil || ordinal < 0 {
		log.Warn("Invalid slide ordinal", zap.String("ordinal", ordinalStr))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid slide ordinal"})
	}

	img, err := h.generation.GetSlideImage(c.Request().Context(), storyID, ordinal)
	if err != nil {
		if !errors.Is(err, models.ErrSlideNotFound) && !errors.Is(err, models.ErrStoryNotFound) {
			log.Error("Error getting slide image",
				zap.String("storyID", storyID.String()),
				zap.Int("ordinal", ordinal),
				zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.Blob(http.StatusOK, "image/"+h.slideFormat, img.Bytes)
}

func (h *CarouselHandler) getHealth(c echo.Context) error {
	status := h.monitor.GetHealthStatus()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// errorMetricsResponse - счетчики монитора вместе с хвостом журнала.
type errorMetricsResponse struct {
	Metrics monitor.Metrics       `json:"metrics"`
	Recent  []monitor.ErrorRecord `json:"recent"`
}

func (h *CarouselHandler) getErrorMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, errorMetricsResponse{
		Metrics: h.monitor.GetMetrics(),
		Recent:  h.monitor.History(),
	})
}
