package service

import (
	"context"

	"github.com/google/uuid"

	"carousel-service/internal/models"
)

// CarouselGenerator - операции конвейера генерации, нужные HTTP-слою
// и воркеру задач.
type CarouselGenerator interface {
	// GenerateCarousel прогоняет полный конвейер по истории: нарезка,
	// классификация, разметка, пакетный рендер, кеширование.
	GenerateCarousel(ctx context.Context, storyID uuid.UUID) (*models.GenerationSummary, error)

	// GetCarousel возвращает закешированные метаданные карусели.
	// Возвращает models.ErrNotFound, если запись отсутствует или истекла.
	GetCarousel(ctx context.Context, storyID uuid.UUID) (*models.CarouselRecord, error)

	// GetSlideImage возвращает изображение слайда: сначала из кеша
	// пре-рендера, при промахе - точечным ре-рендером одного слайда.
	// Возвращает models.ErrSlideNotFound при полном промахе.
	GetSlideImage(ctx context.Context, storyID uuid.UUID, ordinal int) (models.SlideImage, error)

	// CleanupCaches принудительно убирает истекшие записи из всех кешей.
	CleanupCaches() models.CleanupResult
}

// CarouselSharer - операции публикации карусели.
type CarouselSharer interface {
	// ShareCarousel публикует карусель истории во внешнем API.
	// Возвращает models.ErrAlreadyShared, models.ErrStoryNotReady и
	// models.ErrSharePersistFailed в соответствующих сбоях.
	ShareCarousel(ctx context.Context, storyID uuid.UUID) (*models.ShareResult, error)

	// ListEligible возвращает очередь неопубликованных готовых историй.
	ListEligible(ctx context.Context, limit int) ([]models.StorySummary, error)
}

// ErrorReporter принимает ошибки конвейера для классификации и учета.
type ErrorReporter interface {
	Record(err error)
}
