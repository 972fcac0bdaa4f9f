package carousel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carousel-service/internal/models"
	"carousel-service/internal/utils"
)

func TestBuildSlides_WithoutOriginalImage(t *testing.T) {
	builder := NewMarkupBuilder("@storyweaver")
	story := models.Story{Title: "The Clockmaker"}
	descriptor := models.ThemeDescriptor{Genre: models.GenreTimeTravel}
	style := StyleFor(models.ThemeDescriptor{Themes: []models.Theme{models.ThemeTime}})

	slides := builder.BuildSlides(story, descriptor, []string{"First chunk.", "Second chunk."}, style)

	require.Len(t, slides, 4, "title, two content slides and branding")

	// Ordinal'ы непрерывны начиная с нуля.
	for i, slide := range slides {
		assert.Equal(t, i, slide.Ordinal, "ordinals must be contiguous from zero")
		assert.NotEmpty(t, slide.Markup, "every rendered slide carries markup")
	}

	assert.Equal(t, models.SlideKindTitle, slides[0].Kind)
	assert.Contains(t, slides[0].Markup, "The Clockmaker")
	assert.Contains(t, slides[0].Markup, "time-travel", "title slide shows the derived genre")

	assert.Equal(t, models.SlideKindContent, slides[1].Kind)
	assert.Contains(t, slides[1].Markup, "First chunk.")

	assert.Equal(t, models.SlideKindBranding, slides[3].Kind)
	assert.Contains(t, slides[3].Markup, "@storyweaver")
}

func TestBuildSlides_WithOriginalImage(t *testing.T) {
	builder := NewMarkupBuilder("@storyweaver")
	story := models.Story{
		Title:            "Portrait",
		ExistingImageURL: utils.PtrString("https://cdn.example.com/portrait.png"),
	}
	style := StyleFor(models.ThemeDescriptor{})

	slides := builder.BuildSlides(story, models.ThemeDescriptor{Genre: models.GenreGeneral}, []string{"Only chunk."}, style)

	require.Len(t, slides, 4)
	assert.Equal(t, models.SlideKindOriginal, slides[0].Kind, "existing image takes the first position")
	assert.Empty(t, slides[0].Markup, "original slide carries no markup")
	assert.Equal(t, models.SlideKindTitle, slides[1].Kind)
	assert.Equal(t, 3, slides[3].Ordinal, "ordinals stay contiguous after the original slide")
}

func TestBuildSlides_Deterministic(t *testing.T) {
	builder := NewMarkupBuilder("@storyweaver")
	story := models.Story{Title: "Same Story"}
	descriptor := models.ThemeDescriptor{Genre: models.GenreDrama}
	style := StyleFor(models.ThemeDescriptor{Themes: []models.Theme{models.ThemeHumanity}})
	chunks := []string{"A chunk with **bold** text."}

	first := builder.BuildSlides(story, descriptor, chunks, style)
	second := builder.BuildSlides(story, descriptor, chunks, style)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Markup, second[i].Markup, "markup must be byte-identical between runs")
	}
}

func TestContentSlide_RendersMarkdown(t *testing.T) {
	builder := NewMarkupBuilder("@storyweaver")
	style := StyleFor(models.ThemeDescriptor{})

	markup := builder.contentSlide("Text with **bold** and *italics*.", style)

	assert.Contains(t, markup, "<strong>bold</strong>", "markdown emphasis must be converted to HTML")
	assert.Contains(t, markup, "<em>italics</em>")
	assert.Contains(t, markup, style.Background, "palette colors are inlined into the document")
}

func TestTitleSlide_EscapesHTML(t *testing.T) {
	builder := NewMarkupBuilder("@storyweaver")
	style := StyleFor(models.ThemeDescriptor{})
	story := models.Story{Title: `Tale of <script>alert("x")</script>`}

	slides := builder.BuildSlides(story, models.ThemeDescriptor{Genre: models.GenreGeneral}, nil, style)

	require.NotEmpty(t, slides)
	assert.NotContains(t, slides[0].Markup, "<script>", "raw HTML in the title must be escaped")
	assert.Contains(t, slides[0].Markup, "&lt;script&gt;")
}

func TestContentBudget(t *testing.T) {
	assert.Equal(t, 8, ContentBudget(10, false), "title and branding are always reserved")
	assert.Equal(t, 7, ContentBudget(10, true), "the original image takes one more slot")
	assert.Equal(t, 0, ContentBudget(2, true), "budget never goes negative")
}
