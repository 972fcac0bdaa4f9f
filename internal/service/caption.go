package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"carousel-service/internal/config"
	"carousel-service/internal/models"
	"carousel-service/internal/utils"
)

// Максимальная длина дайджеста тела истории в подписи, в рунах.
const captionDigestLimit = 180

// captionPolishSystemPrompt - системный промт для полировки подписи.
// Хэштеги и брендовый тег в полировку не передаются, они добавляются
// детерминированно после.
const captionPolishSystemPrompt = `You are a social media editor for a fiction publisher.
Rewrite the draft caption below into one short, engaging Instagram caption lead.
Keep the story title recognizable, stay under 300 characters, do not add hashtags,
do not add emoji, do not mention that you are rewriting anything.
Reply with the caption text only.`

// CaptionBuilder собирает подпись публикации: детерминированная основа
// плюс необязательная AI-полировка вводной части.
type CaptionBuilder struct {
	logger          *zap.Logger
	ai              AIClient // nil, когда полировка выключена
	brandTag        string
	model           string
	maxPromptTokens int
}

// NewCaptionBuilder создает новый сборщик подписей. aiClient может быть nil,
// тогда используется только детерминированная подпись.
func NewCaptionBuilder(logger *zap.Logger, aiClient AIClient, cfg *config.Config) *CaptionBuilder {
	return &CaptionBuilder{
		logger:          logger.Named("CaptionBuilder"),
		ai:              aiClient,
		brandTag:        cfg.PublishBrandTag,
		model:           cfg.AIModel,
		maxPromptTokens: cfg.AIMaxPromptToken,
	}
}

// BuildCaption возвращает подпись для публикации карусели. Ошибка AI не
// фатальна: вводная часть просто остается детерминированной.
func (c *CaptionBuilder) BuildCaption(ctx context.Context, story *models.Story, descriptor models.ThemeDescriptor) string {
	lead := deterministicLead(story)
	tail := hashtagLine(descriptor) + "\n\n" + c.brandTag

	if c.ai == nil {
		return lead + "\n\n" + tail
	}

	polished, err := c.polishLead(ctx, story, descriptor, lead)
	if err != nil {
		c.logger.Warn("AI caption polish failed, using deterministic caption",
			zap.String("story_id", story.ID.String()),
			zap.Error(err))
		return lead + "\n\n" + tail
	}
	c.logger.Debug("AI caption polish succeeded",
		zap.String("story_id", story.ID.String()),
		zap.String("preview", utils.TruncateRunes(polished, 80)))

	return polished + "\n\n" + tail
}

// polishLead отправляет вводную часть подписи на переписывание в AI.
func (c *CaptionBuilder) polishLead(ctx context.Context, story *models.Story, descriptor models.ThemeDescriptor, lead string) (string, error) {
	excerpt := TruncateToTokenBudget(c.model, story.Body, c.maxPromptTokens)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", story.Title)
	fmt.Fprintf(&sb, "Genre: %s\n", descriptor.Genre)
	fmt.Fprintf(&sb, "Mood: %s\n", descriptor.Mood)
	fmt.Fprintf(&sb, "Draft caption:\n%s\n\n", lead)
	fmt.Fprintf(&sb, "Story excerpt:\n%s\n", excerpt)

	polished, err := c.ai.GenerateText(ctx, captionPolishSystemPrompt, sb.String())
	if err != nil {
		return "", err
	}

	polished = strings.TrimSpace(polished)
	if polished == "" {
		return "", fmt.Errorf("%w: получен пустой текст подписи", ErrAIGenerationFailed)
	}
	return polished, nil
}

// deterministicLead - вводная часть подписи: заголовок и короткий дайджест
// тела истории.
func deterministicLead(story *models.Story) string {
	digest := bodyDigest(story.Body)
	if digest == "" {
		return story.Title
	}
	return story.Title + "\n\n" + digest
}

// bodyDigest схлопывает тело истории в одну строку и обрезает ее по границе
// слова. Счет идет в рунах, чтобы не порезать многобайтовый символ.
func bodyDigest(body string) string {
	collapsed := strings.Join(strings.Fields(body), " ")
	runes := []rune(collapsed)
	if len(runes) <= captionDigestLimit {
		return collapsed
	}
	cut := string(runes[:captionDigestLimit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// hashtagLine собирает хэштеги из дескриптора. Порядок фиксирован: базовый
// тег, темы в порядке приоритета, жанр, настроение. Жанр general и
// нейтральное настроение тегов не дают.
func hashtagLine(descriptor models.ThemeDescriptor) string {
	tags := []string{"#shortstory"}
	for _, theme := range descriptor.Themes {
		tags = append(tags, "#"+string(theme))
	}
	if descriptor.Genre != models.GenreGeneral {
		tags = append(tags, "#"+strings.ReplaceAll(string(descriptor.Genre), "-", ""))
	}
	if descriptor.Mood != models.MoodNeutral {
		tags = append(tags, "#"+string(descriptor.Mood))
	}
	return strings.Join(tags, " ")
}
