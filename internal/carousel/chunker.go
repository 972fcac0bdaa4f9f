package carousel

import (
	"regexp"
	"strings"
)

// ChunkLimits задает бюджеты нарезки текста на слайды (в символах).
type ChunkLimits struct {
	SoftMax int // Мягкий предел длины чанка
	Floor   int // Минимум, после которого чанк можно закрывать
	HardMax int // Жесткий предел для принудительно разрезанных параграфов
}

// DefaultChunkLimits - бюджеты по умолчанию.
func DefaultChunkLimits() ChunkLimits {
	return ChunkLimits{SoftMax: 600, Floor: 300, HardMax: 800}
}

var (
	paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)
	sentenceEndRe    = regexp.MustCompile(`([.!?…]+)\s+`)
)

// ChunkContent нарезает текст истории на упорядоченные чанки, каждый из
// которых станет одним content-слайдом. Детерминированная чистая функция:
// пустой вход дает пустой список, других режимов отказа нет.
//
// Жадное накопление: параграф присоединяется к текущему чанку, пока
// добавление не превысит SoftMax при уже набранном Floor. Параграф длиннее
// SoftMax предварительно режется по границам предложений и перегруппируется
// под тот же SoftMax. Список обрезается до maxChunks: хвост отбрасывается
// молча, это намеренная потеря, а не ошибка.
func ChunkContent(body string, maxChunks int, limits ChunkLimits) []string {
	if maxChunks <= 0 {
		return nil
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")
	if strings.TrimSpace(body) == "" {
		return []string{}
	}

	paragraphs := splitParagraphs(body)
	if len(paragraphs) == 0 {
		return []string{}
	}

	// Параграфы сверх мягкого предела режем заранее, чтобы накопление
	// работало с фрагментами, укладывающимися в бюджет.
	pieces := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if runeLen(p) > limits.SoftMax {
			pieces = append(pieces, splitOversizedParagraph(p, limits)...)
		} else {
			pieces = append(pieces, p)
		}
	}

	chunks := make([]string, 0, maxChunks)
	current := ""
	for _, piece := range pieces {
		if current == "" {
			current = piece
			continue
		}
		candidate := current + "\n\n" + piece
		if runeLen(candidate) > limits.SoftMax && runeLen(current) > limits.Floor {
			chunks = append(chunks, current)
			current = piece
		} else {
			current = candidate
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	return chunks
}

// splitParagraphs делит текст на параграфы по пустым строкам и отбрасывает
// структурные заголовки: заголовок истории извлекается отдельно.
func splitParagraphs(body string) []string {
	raw := paragraphSplitRe.Split(body, -1)
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if isHeading(p) {
			continue
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs
}

func isHeading(paragraph string) bool {
	for _, line := range strings.Split(paragraph, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			return false
		}
	}
	return true
}

// splitOversizedParagraph режет параграф по концам предложений и жадно
// перегруппирует фрагменты под SoftMax. Фрагмент, который сам по себе
// длиннее HardMax, обрезается на жестком пределе.
func splitOversizedParagraph(paragraph string, limits ChunkLimits) []string {
	sentences := splitSentences(paragraph)

	groups := make([]string, 0, len(sentences))
	current := ""
	for _, s := range sentences {
		if runeLen(s) > limits.HardMax {
			s = string([]rune(s)[:limits.HardMax])
		}
		if current == "" {
			current = s
			continue
		}
		candidate := current + " " + s
		if runeLen(candidate) > limits.SoftMax {
			groups = append(groups, current)
			current = s
		} else {
			current = candidate
		}
	}
	if current != "" {
		groups = append(groups, current)
	}
	return groups
}

// splitSentences делит текст по знакам конца предложения, сохраняя сами
// знаки в конце фрагментов.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	marked := sentenceEndRe.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func runeLen(s string) int {
	return len([]rune(s))
}
