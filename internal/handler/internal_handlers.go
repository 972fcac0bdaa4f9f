package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"carousel-service/internal/models"
)

// shareErrorResponse - ответ о сбое публикации. Флаг retryable подсказывает
// вызывающему, имеет ли смысл повторять запрос.
type shareErrorResponse struct {
	Message        string `json:"message"`
	Retryable      bool   `json:"retryable"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// generateCarousel прогоняет полный конвейер генерации для истории.
func (h *CarouselHandler) generateCarousel(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "generateCarousel"))

	idStr := c.Param("story_id")
	storyID, err := uuid.Parse(idStr)
	if err != nil {
		log.Warn("Invalid story ID format", zap.String("story_id", idStr), zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	log = log.With(zap.Stringer("storyID", storyID))
	log.Info("Internal request to generate carousel")

	summary, err := h.generation.GenerateCarousel(c.Request().Context(), storyID)
	if err != nil {
		if !errors.Is(err, models.ErrStoryNotFound) && !errors.Is(err, models.ErrStoryNotReady) {
			log.Error("Failed to generate carousel", zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, summary)
}

// shareCarousel публикует карусель истории во внешней соцсети.
func (h *CarouselHandler) shareCarousel(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "shareCarousel"))

	idStr := c.Param("story_id")
	storyID, err := uuid.Parse(idStr)
	if err != nil {
		log.Warn("Invalid story ID format", zap.String("story_id", idStr), zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	log = log.With(zap.Stringer("storyID", storyID))
	log.Info("Internal request to share carousel")

	result, err := h.publishing.ShareCarousel(c.Request().Context(), storyID)
	if err != nil {
		// Сбои внешнего API отдаем с флагом retryable
		var pubErr *models.PublishError
		if errors.As(err, &pubErr) {
			status := http.StatusBadGateway
			if pubErr.Class == models.PublishErrRateLimited {
				status = http.StatusTooManyRequests
			}
			log.Warn("Publish API rejected the carousel",
				zap.Int("upstream_status", pubErr.StatusCode),
				zap.String("class", string(pubErr.Class)))
			return c.JSON(status, shareErrorResponse{
				Message:        pubErr.Error(),
				Retryable:      pubErr.Retryable(),
				UpstreamStatus: pubErr.StatusCode,
			})
		}

		if !errors.Is(err, models.ErrAlreadyShared) && !errors.Is(err, models.ErrStoryNotReady) {
			log.Error("Failed to share carousel", zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// listEligible возвращает неопубликованные истории, готовые к карусели.
func (h *CarouselHandler) listEligible(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "listEligible"))

	limitStr := c.QueryParam("limit")
	limit := 20 // Значение по умолчанию
	if limitStr != "" {
		if l, parseErr := strconv.Atoi(limitStr); parseErr == nil && l > 0 {
			limit = l
		} else {
			log.Warn("Invalid limit parameter received, using default", zap.String("limit", limitStr))
		}
	}

	stories, err := h.publishing.ListEligible(c.Request().Context(), limit)
	if err != nil {
		log.Error("Failed to list eligible stories", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, APIError{Message: "Failed to retrieve eligible stories"})
	}

	type eligibleResponse struct {
		Data  []models.StorySummary `json:"data"`
		Count int                   `json:"count"`
	}
	return c.JSON(http.StatusOK, eligibleResponse{Data: stories, Count: len(stories)})
}

// cleanupCaches принудительно убирает просроченные записи из всех кешей.
func (h *CarouselHandler) cleanupCaches(c echo.Context) error {
	result := h.generation.CleanupCaches()
	return c.JSON(http.StatusOK, result)
}

// resetMonitor обнуляет счетчики и журнал монитора ошибок.
func (h *CarouselHandler) resetMonitor(c echo.Context) error {
	h.monitor.Reset()
	h.logger.Info("Error monitor reset via internal API",
		zap.Any("source_service", c.Get(string(models.SourceServiceContextKey))))
	return c.NoContent(http.StatusNoContent)
}
