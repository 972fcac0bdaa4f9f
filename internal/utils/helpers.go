package utils

import "strings"

// PtrString возвращает указатель на строку, nil для пустой строки.
func PtrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SafeDerefString безопасно разыменовывает указатель для логирования.
func SafeDerefString(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

// TruncateRunes обрезает строку до limit рун, добавляя многоточие.
// Граница считается по рунам, чтобы не разрезать многобайтовые символы.
func TruncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
