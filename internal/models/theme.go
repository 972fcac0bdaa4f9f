package models

// Theme - тема из фиксированного словаря классификатора.
type Theme string

const (
	ThemeTechnology     Theme = "technology"
	ThemeSustainability Theme = "sustainability"
	ThemeHumanity       Theme = "humanity"
	ThemeExploration    Theme = "exploration"
	ThemeTime           Theme = "time"

	// ThemeDefault - служебное значение для выбора стиля, когда
	// классификатор не нашел ни одной темы.
	ThemeDefault Theme = "default"
)

// Mood - настроение текста.
type Mood string

const (
	MoodHopeful Mood = "hopeful"
	MoodDark    Mood = "dark"
	MoodNeutral Mood = "neutral"
)

// Genre выводится детерминированно из набора тем и настроения.
type Genre string

const (
	GenreSciFi      Genre = "sci-fi"
	GenreDystopian  Genre = "dystopian"
	GenreSolarpunk  Genre = "solarpunk"
	GenreDrama      Genre = "drama"
	GenreAdventure  Genre = "adventure"
	GenreTimeTravel Genre = "time-travel"
	GenreGeneral    Genre = "general"
)

// ThemeDescriptor - результат классификации: накопленные темы,
// настроение по большинству и производный жанр. Всегда валиден,
// классификатор не может завершиться ошибкой.
type ThemeDescriptor struct {
	Themes []Theme `json:"themes"`
	Mood   Mood    `json:"mood"`
	Genre  Genre   `json:"genre"`
}

// HasTheme проверяет наличие темы в дескрипторе.
func (d ThemeDescriptor) HasTheme(t Theme) bool {
	for _, th := range d.Themes {
		if th == t {
			return true
		}
	}
	return false
}

// StyleProfile - палитра и шрифтовые подсказки слайдов, выбираемые
// по основной визуальной теме.
type StyleProfile struct {
	Name       string `json:"name"`
	Background string `json:"background"` // hex
	Accent     string `json:"accent"`     // hex
	Text       string `json:"text"`       // hex
	FontFamily string `json:"font_family"`
}
