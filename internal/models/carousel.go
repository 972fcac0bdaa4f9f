package models

import (
	"time"

	"github.com/google/uuid"
)

// SlideKind определяет тип слайда в карусели.
type SlideKind string

const (
	SlideKindTitle    SlideKind = "title"    // Первый слайд с заголовком истории
	SlideKindContent  SlideKind = "content"  // Слайд с фрагментом текста
	SlideKindBranding SlideKind = "branding" // Завершающий брендовый слайд
	SlideKindOriginal SlideKind = "original" // Готовое изображение истории, разметки не несет
)

// SlideSpec описывает один слайд. Порядок ordinal - это порядок публикации;
// ordinal'ы непрерывны начиная с нуля.
type SlideSpec struct {
	Ordinal int       `json:"ordinal"`
	Kind    SlideKind `json:"kind"`
	Markup  string    `json:"markup,omitempty"` // Пусто для original-слайдов
}

// RenderOptions - детерминированные входы рендеринга. Две пары
// (markup, options) с одинаковыми полями эквивалентны для кеша.
type RenderOptions struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Format      string  `json:"format"` // png, jpeg
	DeviceScale float64 `json:"device_scale"`
	TimeoutMs   int     `json:"timeout_ms"`
}

// CachedImage - отрендеренное изображение в кеше рендера.
// После создания не изменяется, только вытесняется.
type CachedImage struct {
	Bytes       []byte    `json:"-"`
	Format      string    `json:"format"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// CarouselRecord - метаданные карусели одной истории: слайды в порядке
// публикации, подпись и дескриптор темы. Повторная генерация для той же
// истории перезаписывает запись.
type CarouselRecord struct {
	StoryID   uuid.UUID       `json:"story_id"`
	Slides    []SlideSpec     `json:"slides"`
	Caption   string          `json:"caption"`
	Theme     ThemeDescriptor `json:"theme"`
	CreatedAt time.Time       `json:"created_at"`
}

// SlideImage - результат рендеринга одного слайда.
type SlideImage struct {
	Ordinal  int    `json:"ordinal"`
	Bytes    []byte `json:"-"`
	Fallback bool   `json:"fallback"` // true, если основной рендер не удался
}

// PreGeneratedImageSet - пакетно отрендеренные изображения истории.
// Хранится отдельно от CarouselRecord: полный пре-рендер дороже шага,
// который создает только метаданные.
type PreGeneratedImageSet struct {
	StoryID   uuid.UUID    `json:"story_id"`
	Images    []SlideImage `json:"images"`
	CreatedAt time.Time    `json:"created_at"`
}

// ImageByOrdinal возвращает изображение слайда по его ordinal.
func (s *PreGeneratedImageSet) ImageByOrdinal(ordinal int) (SlideImage, bool) {
	for _, img := range s.Images {
		if img.Ordinal == ordinal {
			return img, true
		}
	}
	return SlideImage{}, false
}

// GenerationSummary - итог прогона конвейера по одной истории.
type GenerationSummary struct {
	StoryID       uuid.UUID `json:"story_id"`
	SlideCount    int       `json:"slide_count"`
	FallbackCount int       `json:"fallback_count"`
	CacheHits     int       `json:"cache_hits"`
	Caption       string    `json:"caption"`
}

// ShareResult - итог успешной публикации.
type ShareResult struct {
	StoryID    uuid.UUID `json:"story_id"`
	PostID     string    `json:"post_id"`
	SlideCount int       `json:"slide_count"`
	SharedAt   time.Time `json:"shared_at"`
}

// CleanupResult - число записей, убранных при принудительной чистке кешей.
type CleanupResult struct {
	MetadataRemoved      int `json:"metadata_removed"`
	ImagesRemoved        int `json:"images_removed"`
	RenderEntriesRemoved int `json:"render_entries_removed"`
}
