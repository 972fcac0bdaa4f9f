package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// fallbackMarkupTpl - минимальная статичная разметка запасного слайда.
// Намеренно без палитры темы: запасной рендер должен быть максимально
// дешевым и предсказуемым.
const fallbackMarkupTpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
html,body{margin:0;padding:0;width:100%%;height:100%%;}
.slide{width:100%%;height:100vh;display:flex;align-items:center;justify-content:center;background:#1C1C1E;color:#F2F2F7;font-family:sans-serif;}
.slide span{font-size:120px;opacity:0.5;}
</style>
</head>
<body>
<div class="slide"><span>%d</span></div>
</body>
</html>`

// FallbackMarkup возвращает разметку запасного слайда с номером ordinal.
func FallbackMarkup(ordinal int) string {
	return fmt.Sprintf(fallbackMarkupTpl, ordinal)
}

// PlaceholderPNG кодирует локальную PNG-заглушку: темный фон и полоска
// меток по количеству ordinal+1 внизу кадра. Последний рубеж, когда даже
// запасной рендер не удался; функция не может завершиться ошибкой, чтобы
// конвейер гарантированно получил байты для каждого слайда.
func PlaceholderPNG(width, height, ordinal int) []byte {
	if width <= 0 {
		width = 32
	}
	if height <= 0 {
		height = 32
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	background := color.RGBA{R: 0x1C, G: 0x1C, B: 0x1E, A: 0xFF}
	accent := color.RGBA{R: 0x8E, G: 0x8E, B: 0x93, A: 0xFF}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, background)
		}
	}

	// Метки вдоль нижнего края кодируют номер слайда.
	marks := ordinal + 1
	if marks > 10 {
		marks = 10
	}
	markSize := height / 24
	if markSize < 2 {
		markSize = 2
	}
	gap := markSize
	y0 := height - 2*markSize
	for i := 0; i < marks; i++ {
		x0 := gap + i*(markSize+gap)
		for y := y0; y < y0+markSize && y < height; y++ {
			for x := x0; x < x0+markSize && x < width; x++ {
				img.SetRGBA(x, y, accent)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// png.Encode в bytes.Buffer может упасть только при нехватке
		// памяти; пустой результат здесь хуже, чем однопиксельная
		// константа.
		return minimalPNG()
	}
	return buf.Bytes()
}

// minimalPNG возвращает заранее закодированный PNG 1x1.
func minimalPNG() []byte {
	var buf bytes.Buffer
	tiny := image.NewRGBA(image.Rect(0, 0, 1, 1))
	tiny.SetRGBA(0, 0, color.RGBA{R: 0x1C, G: 0x1C, B: 0x1E, A: 0xFF})
	_ = png.Encode(&buf, tiny)
	return buf.Bytes()
}
