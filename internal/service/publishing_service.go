package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carousel-service/internal/models"
	"carousel-service/internal/repository"
	"carousel-service/internal/social"
	"carousel-service/internal/store"
	"carousel-service/internal/utils"
)

// Compile-time check
var _ CarouselSharer = (*PublishingService)(nil)

// PublishingService публикует карусель истории во внешнем API. Состояние
// истории: NotShared -> Sharing -> Shared; терминального Failed нет,
// неудачная публикация оставляет историю в NotShared и допускает повтор.
type PublishingService struct {
	logger     *zap.Logger
	repo       repository.StoryRepository
	store      *store.CarouselStore
	generation CarouselGenerator
	publisher  social.Publisher
	reporter   ErrorReporter
	// Формат файлов слайдов при multipart-загрузке
	slideFormat string

	now func() time.Time
}

// NewPublishingService создает новый сервис публикации каруселей.
func NewPublishingService(
	logger *zap.Logger,
	repo repository.StoryRepository,
	carouselStore *store.CarouselStore,
	generation CarouselGenerator,
	publisher social.Publisher,
	reporter ErrorReporter,
	slideFormat string,
) *PublishingService {
	return &PublishingService{
		logger:      logger.Named("PublishingService"),
		repo:        repo,
		store:       carouselStore,
		generation:  generation,
		publisher:   publisher,
		reporter:    reporter,
		slideFormat: slideFormat,
		now:         time.Now,
	}
}

// ShareCarousel публикует карусель истории. Идемпотентность держится на
// персистентном флаге shared: уже опубликованная история отклоняется до
// любых внешних вызовов.
func (p *PublishingService) ShareCarousel(ctx context.Context, storyID uuid.UUID) (*models.ShareResult, error) {
	logFields := []zap.Field{zap.String("storyID", storyID.String())}
	p.logger.Info("Sharing carousel", logFields...)

	story, err := p.repo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.Shared {
		p.logger.Info("Story already shared, skipping publish",
			append(logFields, zap.String("existingPostID", utils.SafeDerefString(story.PostID)))...)
		return nil, models.ErrAlreadyShared
	}
	if story.Status != models.StoryStatusReady {
		p.logger.Warn("Story is not ready for sharing",
			append(logFields, zap.String("status", string(story.Status)))...)
		return nil, models.ErrStoryNotReady
	}

	record, imageSet, err := p.ensureArtifacts(ctx, storyID)
	if err != nil {
		return nil, err
	}

	media := p.assembleMedia(story, imageSet)
	if len(media) == 0 {
		return nil, models.ErrNoSlidesToRender
	}

	postID, err := p.publisher.PublishCarousel(ctx, media, record.Caption)
	if err != nil {
		wrapped := models.NewPipelineError(models.ErrorKindPublishAPI, "publishing.publish_carousel", err)
		p.reporter.Record(wrapped)
		p.logger.Error("Publish API call failed", append(logFields, zap.Error(err))...)
		return nil, wrapped
	}

	sharedAt := p.now().UTC()
	slideCount := len(record.Slides)
	status := models.ShareStatus{
		Shared:     true,
		PostID:     &postID,
		SharedAt:   &sharedAt,
		SlideCount: slideCount,
	}
	if err := p.repo.UpdateShareStatus(ctx, storyID, status); err != nil {
		// Внешний пост уже существует, локальный статус отстал. Повтор
		// публикации по этой ошибке создал бы дубликат поста.
		p.logger.Error("CRITICAL: carousel published but share status not persisted",
			append(logFields, zap.String("postID", postID), zap.Error(err))...)
		return nil, fmt.Errorf("%w: post %s: %v", models.ErrSharePersistFailed, postID, err)
	}

	p.logger.Info("Carousel shared successfully",
		append(logFields, zap.String("postID", postID), zap.Int("slideCount", slideCount))...)

	return &models.ShareResult{
		StoryID:    storyID,
		PostID:     postID,
		SlideCount: slideCount,
		SharedAt:   sharedAt,
	}, nil
}

// ListEligible возвращает очередь неопубликованных готовых историй.
func (p *PublishingService) ListEligible(ctx context.Context, limit int) ([]models.StorySummary, error) {
	return p.repo.ListEligible(ctx, limit)
}

// ensureArtifacts достает метаданные и изображения карусели из кеша.
// Кеш не авторитетен: если хотя бы одна половина истекла, карусель
// пересобирается из текста истории полным прогоном конвейера.
func (p *PublishingService) ensureArtifacts(ctx context.Context, storyID uuid.UUID) (models.CarouselRecord, models.PreGeneratedImageSet, error) {
	record, recordOK := p.store.GetCarousel(storyID)
	imageSet, imagesOK := p.store.GetImages(storyID)
	if recordOK && imagesOK {
		return record, imageSet, nil
	}

	p.logger.Info("Carousel artifacts missing, regenerating before publish",
		zap.String("storyID", storyID.String()),
		zap.Bool("hadMetadata", recordOK),
		zap.Bool("hadImages", imagesOK))

	if _, err := p.generation.GenerateCarousel(ctx, storyID); err != nil {
		return models.CarouselRecord{}, models.PreGeneratedImageSet{}, err
	}

	record, recordOK = p.store.GetCarousel(storyID)
	imageSet, imagesOK = p.store.GetImages(storyID)
	if !recordOK || !imagesOK {
		return models.CarouselRecord{}, models.PreGeneratedImageSet{},
			fmt.Errorf("carousel artifacts missing after regeneration for story %s", storyID)
	}
	return record, imageSet, nil
}

// assembleMedia выстраивает медиа в порядке ordinal: original-слайд уходит
// ссылкой на готовое изображение, остальные - байтами пре-рендера.
func (p *PublishingService) assembleMedia(story *models.Story, imageSet models.PreGeneratedImageSet) []social.MediaItem {
	media := make([]social.MediaItem, 0, len(imageSet.Images)+1)

	if story.ExistingImageURL != nil && *story.ExistingImageURL != "" {
		media = append(media, social.MediaItem{
			Ordinal: 0,
			URL:     *story.ExistingImageURL,
		})
	}

	for _, img := range imageSet.Images {
		media = append(media, social.MediaItem{
			Ordinal: img.Ordinal,
			Bytes:   img.Bytes,
			Format:  p.slideFormat,
		})
	}

	sort.Slice(media, func(i, j int) bool { return media[i].Ordinal < media[j].Ordinal })
	return media
}
