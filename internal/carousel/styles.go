package carousel

import "carousel-service/internal/models"

// Палитры слайдов по основной визуальной теме. Таблица фиксированная,
// неизвестная тема всегда сводится к default.
var styleProfiles = map[models.Theme]models.StyleProfile{
	models.ThemeTechnology: {
		Name:       "circuit",
		Background: "#0B1220",
		Accent:     "#38BDF8",
		Text:       "#E2E8F0",
		FontFamily: "'JetBrains Mono', monospace",
	},
	models.ThemeSustainability: {
		Name:       "canopy",
		Background: "#10291C",
		Accent:     "#7FD069",
		Text:       "#EDF7EE",
		FontFamily: "'Source Serif Pro', serif",
	},
	models.ThemeExploration: {
		Name:       "horizon",
		Background: "#101C33",
		Accent:     "#F4A259",
		Text:       "#F4F1EA",
		FontFamily: "'Inter', sans-serif",
	},
	models.ThemeTime: {
		Name:       "hourglass",
		Background: "#221633",
		Accent:     "#C084FC",
		Text:       "#F1EAFB",
		FontFamily: "'Playfair Display', serif",
	},
	models.ThemeHumanity: {
		Name:       "hearth",
		Background: "#2B1A1A",
		Accent:     "#F97362",
		Text:       "#FBEFEA",
		FontFamily: "'Source Serif Pro', serif",
	},
	models.ThemeDefault: {
		Name:       "plain",
		Background: "#1C1C1E",
		Accent:     "#8E8E93",
		Text:       "#F2F2F7",
		FontFamily: "'Inter', sans-serif",
	},
}

// StyleFor возвращает профиль стиля для дескриптора тем: палитру основной
// визуальной темы либо default.
func StyleFor(descriptor models.ThemeDescriptor) models.StyleProfile {
	if profile, ok := styleProfiles[PrimaryTheme(descriptor)]; ok {
		return profile
	}
	return styleProfiles[models.ThemeDefault]
}
