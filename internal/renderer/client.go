package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"carousel-service/internal/models"
)

// Renderer - внешний движок, превращающий HTML-разметку слайда в байты
// изображения. Должен выдерживать конкурентные вызовы и уважать таймаут
// из опций.
type Renderer interface {
	Render(ctx context.Context, markup string, opts models.RenderOptions) ([]byte, error)
}

// renderAPIRequest - тело запроса к рендереру.
type renderAPIRequest struct {
	Markup      string  `json:"markup"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Format      string  `json:"format"`
	DeviceScale float64 `json:"device_scale"`
}

// HTTPRenderer вызывает внешний сервис рендеринга по HTTP.
type HTTPRenderer struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

// NewHTTPRenderer создает клиента рендерера. Таймаут каждого вызова
// задается опциями рендеринга, а не общим таймаутом http.Client.
func NewHTTPRenderer(logger *zap.Logger, baseURL string) *HTTPRenderer {
	return &HTTPRenderer{
		logger:  logger.Named("HTTPRenderer"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Render отправляет разметку на рендеринг и возвращает байты изображения.
// Любой сбой, включая таймаут, заворачивается в ErrRenderFailed.
func (r *HTTPRenderer) Render(ctx context.Context, markup string, opts models.RenderOptions) ([]byte, error) {
	log := r.logger.With(
		zap.Int("width", opts.Width),
		zap.Int("height", opts.Height),
		zap.String("format", opts.Format),
		zap.Int("timeout_ms", opts.TimeoutMs),
	)

	if opts.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	reqPayload := renderAPIRequest{
		Markup:      markup,
		Width:       opts.Width,
		Height:      opts.Height,
		Format:      opts.Format,
		DeviceScale: opts.DeviceScale,
	}
	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		log.Error("Failed to marshal render request payload", zap.Error(err))
		return nil, fmt.Errorf("%w: marshal request: %v", models.ErrRenderFailed, err)
	}

	endpointURL := r.baseURL + "/render"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		log.Error("Failed to create render request", zap.String("url", endpointURL), zap.Error(err))
		return nil, fmt.Errorf("%w: create request: %v", models.ErrRenderFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")

	log.Debug("Sending request to renderer", zap.String("url", endpointURL))
	resp, err := r.client.Do(req)
	if err != nil {
		log.Error("Render request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: http request: %v", models.ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Error("Renderer returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", bodyBytes),
		)
		return nil, fmt.Errorf("%w: renderer returned status %d: %s", models.ErrRenderFailed, resp.StatusCode, string(bodyBytes))
	}
	if readErr != nil {
		log.Error("Failed to read renderer response body", zap.Error(readErr))
		return nil, fmt.Errorf("%w: read response: %v", models.ErrRenderFailed, readErr)
	}
	if len(bodyBytes) == 0 {
		log.Error("Renderer returned empty image data")
		return nil, fmt.Errorf("%w: renderer returned empty data", models.ErrRenderFailed)
	}

	log.Debug("Render call successful", zap.Int("size_bytes", len(bodyBytes)))
	return bodyBytes, nil
}
