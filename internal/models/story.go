package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryStatus - статус генерации истории во внешнем хранилище контента.
// Сервис каруселей читает его, но никогда не меняет.
type StoryStatus string

const (
	StoryStatusDraft      StoryStatus = "draft"      // Текст еще редактируется
	StoryStatusGenerating StoryStatus = "generating" // Идет генерация текста
	StoryStatusReady      StoryStatus = "ready"      // Текст готов, карусель можно собирать
	StoryStatusArchived   StoryStatus = "archived"   // История скрыта, публиковать нельзя
)

// ShareStatus - персистентное состояние публикации истории.
// Инвариант: после shared = true повторная публикация отклоняется
// без обращения к внешнему API.
type ShareStatus struct {
	Shared     bool       `json:"shared" db:"shared"`
	PostID     *string    `json:"post_id,omitempty" db:"post_id"`
	SharedAt   *time.Time `json:"shared_at,omitempty" db:"shared_at"`
	SlideCount int        `json:"slide_count" db:"slide_count"`
}

// Story - read-модель истории из внешнего хранилища контента.
// Конвейер пишет обратно только поля ShareStatus.
type Story struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	Title            string      `json:"title" db:"title"`
	Body             string      `json:"body" db:"body"`
	ExistingImageURL *string     `json:"existing_image_url,omitempty" db:"existing_image_url"` // Указатель, так как может быть NULL
	Status           StoryStatus `json:"status" db:"status"`
	Shared           bool        `json:"shared" db:"shared"`
	PostID           *string     `json:"post_id,omitempty" db:"post_id"`
	SharedAt         *time.Time  `json:"shared_at,omitempty" db:"shared_at"`
	SlideCount       int         `json:"slide_count" db:"slide_count"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// ShareStatusOf собирает ShareStatus из полей строки истории.
func (s *Story) ShareStatusOf() ShareStatus {
	return ShareStatus{
		Shared:     s.Shared,
		PostID:     s.PostID,
		SharedAt:   s.SharedAt,
		SlideCount: s.SlideCount,
	}
}

// StorySummary - краткое представление истории для списков
// (очередь публикации во внутреннем API).
type StorySummary struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Title     string      `json:"title" db:"title"`
	Status    StoryStatus `json:"status" db:"status"`
	Shared    bool        `json:"shared" db:"shared"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
