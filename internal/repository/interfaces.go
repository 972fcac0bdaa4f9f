package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"carousel-service/internal/models"
)

// DBTX покрывает общие методы pgxpool.Pool и pgx.Tx, чтобы репозиторий
// одинаково работал с пулом и с транзакцией.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoryRepository - адаптер внешнего хранилища историй. Конвейер читает
// истории целиком, а пишет обратно только поля статуса публикации.
type StoryRepository interface {
	// GetByID возвращает историю по идентификатору.
	// Возвращает models.ErrStoryNotFound, если истории нет.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)

	// UpdateShareStatus записывает статус публикации истории.
	// Возвращает models.ErrStoryNotFound, если истории нет, и
	// models.ErrAlreadyShared, если история уже опубликована.
	UpdateShareStatus(ctx context.Context, id uuid.UUID, status models.ShareStatus) error

	// ListEligible возвращает неопубликованные истории в готовом для
	// карусели статусе, старые первыми.
	ListEligible(ctx context.Context, limit int) ([]models.StorySummary, error)
}
