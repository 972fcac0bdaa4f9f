package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"carousel-service/internal/models"
)

// Запись, истекшая к моменту чтения, учитывается как промах.
var storeEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "carousel_store_events_total",
		Help: "Carousel store cache events by cache and type.",
	},
	[]string{"cache", "event"}, // cache: "metadata", "images"; event: "hit", "miss", "evict"
)

// CarouselStore - два независимых TTL-кеша, ключуемых идентификатором
// истории: метаданные карусели и пакетно отрендеренные изображения.
// Хранилище не является источником истины: любое отсутствие безопасно
// восстанавливается повторной генерацией из текста истории.
type CarouselStore struct {
	logger   *zap.Logger
	metadata *TTLCache[uuid.UUID, models.CarouselRecord]
	images   *TTLCache[uuid.UUID, models.PreGeneratedImageSet]
}

// NewCarouselStore создает хранилище с отдельными TTL для метаданных и
// изображений.
func NewCarouselStore(logger *zap.Logger, metadataTTL, imagesTTL time.Duration) *CarouselStore {
	return &CarouselStore{
		logger:   logger.Named("CarouselStore"),
		metadata: NewTTLCache[uuid.UUID, models.CarouselRecord](metadataTTL),
		images:   NewTTLCache[uuid.UUID, models.PreGeneratedImageSet](imagesTTL),
	}
}

// SetCarousel сохраняет метаданные карусели, перекрывая предыдущую
// генерацию той же истории.
func (s *CarouselStore) SetCarousel(record models.CarouselRecord) {
	s.metadata.Set(record.StoryID, record)
	s.logger.Debug("Carousel metadata cached",
		zap.String("story_id", record.StoryID.String()),
		zap.Int("slide_count", len(record.Slides)),
	)
}

// GetCarousel возвращает метаданные карусели истории.
func (s *CarouselStore) GetCarousel(storyID uuid.UUID) (models.CarouselRecord, bool) {
	record, ok := s.metadata.Get(storyID)
	storeEvents.WithLabelValues("metadata", eventLabel(ok)).Inc()
	return record, ok
}

// SetImages сохраняет пакетно отрендеренные изображения истории.
func (s *CarouselStore) SetImages(set models.PreGeneratedImageSet) {
	s.images.Set(set.StoryID, set)
	s.logger.Debug("Pre-generated images cached",
		zap.String("story_id", set.StoryID.String()),
		zap.Int("image_count", len(set.Images)),
	)
}

// GetImages возвращает весь набор изображений истории.
func (s *CarouselStore) GetImages(storyID uuid.UUID) (models.PreGeneratedImageSet, bool) {
	set, ok := s.images.Get(storyID)
	storeEvents.WithLabelValues("images", eventLabel(ok)).Inc()
	return set, ok
}

// GetImage возвращает изображение одного слайда. Промах означает, что
// набора нет, он истек или в нем нет такого ordinal.
func (s *CarouselStore) GetImage(storyID uuid.UUID, ordinal int) (models.SlideImage, bool) {
	set, ok := s.images.Get(storyID)
	if !ok {
		storeEvents.WithLabelValues("images", "miss").Inc()
		return models.SlideImage{}, false
	}
	img, ok := set.ImageByOrdinal(ordinal)
	storeEvents.WithLabelValues("images", eventLabel(ok)).Inc()
	return img, ok
}

// Cleanup удаляет просроченные записи из обоих кешей и возвращает
// счетчики удаленного для операторской диагностики.
func (s *CarouselStore) Cleanup() (metadataRemoved, imagesRemoved int) {
	metadataRemoved = s.metadata.Cleanup()
	imagesRemoved = s.images.Cleanup()
	if metadataRemoved > 0 {
		storeEvents.WithLabelValues("metadata", "evict").Add(float64(metadataRemoved))
	}
	if imagesRemoved > 0 {
		storeEvents.WithLabelValues("images", "evict").Add(float64(imagesRemoved))
	}
	s.logger.Info("Carousel store cleanup finished",
		zap.Int("metadata_removed", metadataRemoved),
		zap.Int("images_removed", imagesRemoved),
	)
	return metadataRemoved, imagesRemoved
}

func eventLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
