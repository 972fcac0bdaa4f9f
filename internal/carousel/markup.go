package carousel

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"carousel-service/internal/models"
)

// slideDocumentTpl - каркас HTML-документа одного слайда. Вся стилизация
// инлайновая, чтобы документ был самодостаточным входом рендерера.
const slideDocumentTpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
html,body{margin:0;padding:0;width:100%%;height:100%%;}
.slide{width:100%%;height:100vh;box-sizing:border-box;display:flex;flex-direction:column;justify-content:center;padding:96px;background:%s;color:%s;font-family:%s;}
.slide h1{font-size:72px;line-height:1.15;margin:0;}
.slide p{font-size:34px;line-height:1.5;margin:0 0 28px 0;}
.slide p:last-child{margin-bottom:0;}
.slide em{font-style:italic;}
.slide strong{color:%s;}
.kicker{font-size:26px;letter-spacing:0.2em;text-transform:uppercase;color:%s;margin-bottom:40px;}
.brand{font-size:56px;font-weight:700;color:%s;}
.footer{margin-top:auto;font-size:24px;opacity:0.65;}
</style>
</head>
<body>
<div class="slide">
%s
</div>
</body>
</html>`

// MarkupBuilder собирает детерминированную HTML-разметку слайдов.
// Одинаковые вход и палитра всегда дают байт-в-байт одинаковый документ:
// разметка участвует в отпечатке кеша рендера.
type MarkupBuilder struct {
	md       goldmark.Markdown
	brandTag string
}

// NewMarkupBuilder создает билдер разметки с брендовым тегом для
// завершающего слайда.
func NewMarkupBuilder(brandTag string) *MarkupBuilder {
	return &MarkupBuilder{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		brandTag: brandTag,
	}
}

// BuildSlides собирает полный упорядоченный список слайдов истории:
// original-слайд (если у истории есть готовое изображение), затем
// титульный, контентные по одному на чанк и завершающий брендовый.
// Ordinal'ы непрерывны начиная с нуля.
func (b *MarkupBuilder) BuildSlides(story models.Story, descriptor models.ThemeDescriptor, chunks []string, style models.StyleProfile) []models.SlideSpec {
	slides := make([]models.SlideSpec, 0, len(chunks)+3)
	ordinal := 0

	if story.ExistingImageURL != nil && *story.ExistingImageURL != "" {
		slides = append(slides, models.SlideSpec{Ordinal: ordinal, Kind: models.SlideKindOriginal})
		ordinal++
	}

	slides = append(slides, models.SlideSpec{
		Ordinal: ordinal,
		Kind:    models.SlideKindTitle,
		Markup:  b.titleSlide(story.Title, descriptor, style),
	})
	ordinal++

	for _, chunk := range chunks {
		slides = append(slides, models.SlideSpec{
			Ordinal: ordinal,
			Kind:    models.SlideKindContent,
			Markup:  b.contentSlide(chunk, style),
		})
		ordinal++
	}

	slides = append(slides, models.SlideSpec{
		Ordinal: ordinal,
		Kind:    models.SlideKindBranding,
		Markup:  b.brandingSlide(style),
	})

	return slides
}

// ContentBudget возвращает число контентных слайдов, влезающих в потолок
// карусели: титульный и брендовый слайды зарезервированы всегда,
// original-слайд занимает еще одно место.
func ContentBudget(maxSlides int, hasOriginalImage bool) int {
	reserved := 2
	if hasOriginalImage {
		reserved++
	}
	budget := maxSlides - reserved
	if budget < 0 {
		return 0
	}
	return budget
}

func (b *MarkupBuilder) titleSlide(title string, descriptor models.ThemeDescriptor, style models.StyleProfile) string {
	body := fmt.Sprintf(`<p class="kicker">%s</p>
<h1>%s</h1>`,
		html.EscapeString(string(descriptor.Genre)),
		html.EscapeString(title),
	)
	return b.wrap(body, style)
}

// contentSlide конвертирует markdown-чанк в HTML. Если goldmark не смог
// разобрать вход, чанк вставляется как экранированный абзац: слайд,
// потерявший форматирование, лучше отсутствующего.
func (b *MarkupBuilder) contentSlide(chunk string, style models.StyleProfile) string {
	var buf bytes.Buffer
	if err := b.md.Convert([]byte(chunk), &buf); err != nil {
		return b.wrap("<p>"+html.EscapeString(chunk)+"</p>", style)
	}
	return b.wrap(strings.TrimSpace(buf.String()), style)
}

func (b *MarkupBuilder) brandingSlide(style models.StyleProfile) string {
	body := fmt.Sprintf(`<p class="brand">%s</p>
<p class="footer">Read the full story in our profile</p>`,
		html.EscapeString(b.brandTag),
	)
	return b.wrap(body, style)
}

func (b *MarkupBuilder) wrap(body string, style models.StyleProfile) string {
	return fmt.Sprintf(slideDocumentTpl,
		style.Background,
		style.Text,
		style.FontFamily,
		style.Accent,
		style.Accent,
		style.Accent,
		body,
	)
}
