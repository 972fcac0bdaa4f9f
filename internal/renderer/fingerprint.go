package renderer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"carousel-service/internal/models"
)

// Fingerprint вычисляет стабильный SHA-256 отпечаток пары (разметка, опции).
// Одинаковые пары всегда дают одинаковый отпечаток; отличие в любом поле
// опций дает другой отпечаток. Разметка отделена от опций нулевым байтом,
// чтобы конкатенация не давала коллизий на границе.
func Fingerprint(markup string, opts models.RenderOptions) string {
	h := sha256.New()
	h.Write([]byte(markup))
	h.Write([]byte{0})
	fmt.Fprintf(h, "w=%d;h=%d;f=%s;s=%g;t=%d",
		opts.Width, opts.Height, opts.Format, opts.DeviceScale, opts.TimeoutMs)
	return hex.EncodeToString(h.Sum(nil))
}
