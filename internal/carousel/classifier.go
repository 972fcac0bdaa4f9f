package carousel

import (
	"strings"

	"carousel-service/internal/models"
)

// Словари тем. Поиск идет по подстроке без учета регистра, поэтому термины
// подобраны достаточно длинными, чтобы не срабатывать на случайных словах.
var themeKeywords = map[models.Theme][]string{
	models.ThemeTechnology: {
		"technolog", "machine", "robot", "digital", "circuit",
		"algorithm", "neural", "synthetic", "android", "server",
	},
	models.ThemeSustainability: {
		"sustain", "climate", "renewable", "ecolog", "solar",
		"harvest", "garden", "forest", "planet", "seed",
	},
	models.ThemeHumanity: {
		"human", "people", "family", "communit", "belong",
		"memory", "grief", "kindness", "stranger", "heart",
	},
	models.ThemeExploration: {
		"explor", "journey", "voyage", "frontier", "discover",
		"expedition", "horizon", "uncharted", "wander",
	},
	models.ThemeTime: {
		"time", "clock", "centur", "millenni", "yesterday",
		"tomorrow", "future", "ancient", "era of",
	},
}

// Порядок выбора главной визуальной темы при нескольких совпадениях.
var themePriority = []models.Theme{
	models.ThemeTechnology,
	models.ThemeSustainability,
	models.ThemeExploration,
	models.ThemeTime,
	models.ThemeHumanity,
}

var positiveMoodTerms = []string{
	"hope", "bright", "dream", "bloom", "dawn", "promise",
	"wonder", "warm", "laugh", "triumph",
}

var negativeMoodTerms = []string{
	"dark", "ruin", "decay", "shadow", "fear", "collapse",
	"ashes", "dying", "cold", "silence",
}

// ClassifyStory определяет темы, настроение и жанр истории по заголовку и
// тексту. Чистая функция: один и тот же вход всегда дает один и тот же
// дескриптор, история без совпадений получает пустой список тем,
// нейтральное настроение и жанр general.
func ClassifyStory(title, body string) models.ThemeDescriptor {
	haystack := strings.ToLower(title + "\n" + body)

	themes := make([]models.Theme, 0, len(themePriority))
	for _, theme := range themePriority {
		if matchesAny(haystack, themeKeywords[theme]) {
			themes = append(themes, theme)
		}
	}

	mood := detectMood(haystack)

	return models.ThemeDescriptor{
		Themes: themes,
		Mood:   mood,
		Genre:  deriveGenre(themes, mood),
	}
}

// PrimaryTheme возвращает главную визуальную тему дескриптора: первую по
// фиксированному приоритету, либо default, если тем нет.
func PrimaryTheme(descriptor models.ThemeDescriptor) models.Theme {
	for _, theme := range themePriority {
		if descriptor.HasTheme(theme) {
			return theme
		}
	}
	return models.ThemeDefault
}

func matchesAny(haystack string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// detectMood считает вхождения позитивных и негативных терминов и выбирает
// настроение большинством. Равенство, в том числе ноль-ноль, дает neutral.
func detectMood(haystack string) models.Mood {
	positive := 0
	for _, term := range positiveMoodTerms {
		positive += strings.Count(haystack, term)
	}
	negative := 0
	for _, term := range negativeMoodTerms {
		negative += strings.Count(haystack, term)
	}
	switch {
	case positive > negative:
		return models.MoodHopeful
	case negative > positive:
		return models.MoodDark
	default:
		return models.MoodNeutral
	}
}

// deriveGenre выводит жанр из комбинации тем и настроения. Порядок веток
// фиксирован, первая подошедшая выигрывает.
func deriveGenre(themes []models.Theme, mood models.Mood) models.Genre {
	has := func(t models.Theme) bool {
		for _, theme := range themes {
			if theme == t {
				return true
			}
		}
		return false
	}

	switch {
	case has(models.ThemeTechnology) && has(models.ThemeExploration):
		return models.GenreSciFi
	case has(models.ThemeTechnology) && mood == models.MoodDark:
		return models.GenreDystopian
	case has(models.ThemeSustainability) && mood == models.MoodHopeful:
		return models.GenreSolarpunk
	case has(models.ThemeTime):
		return models.GenreTimeTravel
	case has(models.ThemeExploration):
		return models.GenreAdventure
	case has(models.ThemeHumanity):
		return models.GenreDrama
	default:
		return models.GenreGeneral
	}
}
