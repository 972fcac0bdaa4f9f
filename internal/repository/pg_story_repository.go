package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"carousel-service/internal/models"
)

// Compile-time check
var _ StoryRepository = (*pgStoryRepository)(nil)

const defaultEligibleLimit = 20

const getStoryByIDQuery = `
    SELECT id, title, body, existing_image_url, status, shared, post_id, shared_at, slide_count, created_at, updated_at
    FROM stories
    WHERE id = $1
`

const updateShareStatusQuery = `
    UPDATE stories
    SET shared = $2, post_id = $3, shared_at = $4, slide_count = $5, updated_at = NOW()
    WHERE id = $1 AND shared = FALSE
`

const storySharedQuery = `
    SELECT shared
    FROM stories
    WHERE id = $1
`

const listEligibleQuery = `
    SELECT id, title, status, shared, created_at
    FROM stories
    WHERE shared = FALSE AND status = ANY($1)
    ORDER BY created_at ASC
    LIMIT $2
`

// pgStoryRepository реализует StoryRepository для PostgreSQL.
type pgStoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStoryRepository создает новый экземпляр репозитория.
func NewPgStoryRepository(db DBTX, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

// GetByID возвращает историю по идентификатору.
func (r *pgStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	logFields := []zap.Field{zap.String("storyID", id.String())}

	var story models.Story
	err := pgxscan.Get(ctx, r.db, &story, getStoryByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Story not found by ID", logFields...)
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story by ID", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get story by ID %s: %w", id, err)
	}

	r.logger.Debug("Story retrieved successfully", logFields...)
	return &story, nil
}

// UpdateShareStatus записывает статус публикации истории. Контент истории
// не затрагивается: это единственные поля, которыми владеет конвейер.
// Обновление атомарно охраняется условием shared = FALSE, поэтому два
// конкурентных публикатора не перезапишут post_id друг друга.
func (r *pgStoryRepository) UpdateShareStatus(ctx context.Context, id uuid.UUID, status models.ShareStatus) error {
	logFields := []zap.Field{
		zap.String("storyID", id.String()),
		zap.Bool("shared", status.Shared),
		zap.Int("slideCount", status.SlideCount),
	}

	tag, err := r.db.Exec(ctx, updateShareStatusQuery, id, status.Shared, status.PostID, status.SharedAt, status.SlideCount)
	if err != nil {
		r.logger.Error("Failed to update story share status", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to update share status for story %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Либо истории нет, либо защита shared = FALSE не пропустила запись.
		var alreadyShared bool
		checkErr := r.db.QueryRow(ctx, storySharedQuery, id).Scan(&alreadyShared)
		if checkErr != nil {
			if errors.Is(checkErr, pgx.ErrNoRows) {
				r.logger.Warn("Story not found when updating share status", logFields...)
				return models.ErrStoryNotFound
			}
			r.logger.Error("Failed to check story share state", append(logFields, zap.Error(checkErr))...)
			return fmt.Errorf("failed to check share state for story %s: %w", id, checkErr)
		}
		if alreadyShared {
			r.logger.Warn("Story already shared, share status not updated", logFields...)
			return models.ErrAlreadyShared
		}
		r.logger.Warn("No rows affected when updating share status", logFields...)
		return models.ErrStoryNotFound
	}

	r.logger.Info("Story share status updated successfully", logFields...)
	return nil
}

// ListEligible возвращает неопубликованные истории в статусе ready,
// старые первыми, чтобы очередь публикации двигалась честно.
func (r *pgStoryRepository) ListEligible(ctx context.Context, limit int) ([]models.StorySummary, error) {
	if limit <= 0 {
		limit = defaultEligibleLimit
	}
	logFields := []zap.Field{zap.Int("limit", limit)}

	eligibleStatuses := []string{string(models.StoryStatusReady)}

	stories := make([]models.StorySummary, 0, limit)
	err := pgxscan.Select(ctx, r.db, &stories, listEligibleQuery, pq.Array(eligibleStatuses), limit)
	if err != nil {
		r.logger.Error("Failed to list eligible stories", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to list eligible stories: %w", err)
	}

	r.logger.Debug("Eligible stories listed", append(logFields, zap.Int("count", len(stories)))...)
	return stories, nil
}
