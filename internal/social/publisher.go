package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"carousel-service/internal/models"
)

var publishAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "carousel_publish_attempts_total",
		Help: "Total number of carousel publish attempts by status.",
	},
	[]string{"status"}, // "ok" либо класс ошибки: "auth", "forbidden", "rate_limited", "server"
)

// MediaItem - один элемент карусели в порядке публикации. Отрендеренные
// слайды несут байты, original-слайд - ссылку на готовое изображение.
type MediaItem struct {
	Ordinal int
	Bytes   []byte
	URL     string
	Format  string
}

// Publisher - внешний API публикации каруселей.
type Publisher interface {
	// PublishCarousel загружает медиа в порядке следования и создает
	// пост-карусель. Возвращает идентификатор поста.
	PublishCarousel(ctx context.Context, media []MediaItem, caption string) (string, error)
}

type uploadMediaResp struct {
	MediaID string `json:"media_id"`
}

type remoteMediaReq struct {
	URL string `json:"url"`
}

type createCarouselReq struct {
	MediaIDs []string `json:"media_ids"`
	Caption  string   `json:"caption"`
}

type createCarouselResp struct {
	PostID string `json:"post_id"`
}

// HTTPPublisher публикует карусели через HTTP API.
type HTTPPublisher struct {
	logger  *zap.Logger
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPPublisher создает клиента API публикации.
func NewHTTPPublisher(logger *zap.Logger, baseURL, token string, timeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{
		logger:  logger.Named("HTTPPublisher"),
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// PublishCarousel выполняет полный цикл: загрузка каждого медиа по
// порядку, затем создание поста из полученных media_id. Любой сбой
// возвращается как *models.PublishError с классом по HTTP-статусу,
// чтобы вызывающий мог решить, имеет ли смысл повтор.
func (p *HTTPPublisher) PublishCarousel(ctx context.Context, media []MediaItem, caption string) (string, error) {
	log := p.logger.With(zap.Int("media_count", len(media)))

	mediaIDs := make([]string, 0, len(media))
	for _, item := range media {
		var (
			mediaID string
			err     error
		)
		if len(item.Bytes) > 0 {
			mediaID, err = p.uploadMedia(ctx, item)
		} else {
			mediaID, err = p.registerRemoteMedia(ctx, item)
		}
		if err != nil {
			log.Error("Media upload failed", zap.Int("ordinal", item.Ordinal), zap.Error(err))
			publishAttempts.WithLabelValues(publishStatusLabel(err)).Inc()
			return "", err
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	postID, err := p.createCarousel(ctx, mediaIDs, caption)
	if err != nil {
		log.Error("Carousel creation failed", zap.Error(err))
		publishAttempts.WithLabelValues(publishStatusLabel(err)).Inc()
		return "", err
	}

	publishAttempts.WithLabelValues("ok").Inc()
	log.Info("Carousel published", zap.String("post_id", postID))
	return postID, nil
}

func publishStatusLabel(err error) string {
	var pubErr *models.PublishError
	if errors.As(err, &pubErr) {
		return string(pubErr.Class)
	}
	return string(models.PublishErrServer)
}

// uploadMedia загружает байты слайда multipart-запросом и возвращает
// media_id.
func (p *HTTPPublisher) uploadMedia(ctx context.Context, item MediaItem) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", fmt.Sprintf("slide-%d.%s", item.Ordinal, item.Format))
	if err != nil {
		return "", transportPublishError(fmt.Sprintf("create form file: %v", err))
	}
	if _, err := part.Write(item.Bytes); err != nil {
		return "", transportPublishError(fmt.Sprintf("write form file: %v", err))
	}
	if err := writer.Close(); err != nil {
		return "", transportPublishError(fmt.Sprintf("close multipart writer: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/media", &body)
	if err != nil {
		return "", transportPublishError(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.token)

	var resp uploadMediaResp
	if err := p.do(req, &resp); err != nil {
		return "", err
	}
	if resp.MediaID == "" {
		return "", transportPublishError("upload returned empty media_id")
	}
	return resp.MediaID, nil
}

// registerRemoteMedia регистрирует уже существующее изображение по URL.
func (p *HTTPPublisher) registerRemoteMedia(ctx context.Context, item MediaItem) (string, error) {
	payload, err := json.Marshal(remoteMediaReq{URL: item.URL})
	if err != nil {
		return "", transportPublishError(fmt.Sprintf("marshal remote media: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/media/remote", bytes.NewReader(payload))
	if err != nil {
		return "", transportPublishError(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	var resp uploadMediaResp
	if err := p.do(req, &resp); err != nil {
		return "", err
	}
	if resp.MediaID == "" {
		return "", transportPublishError("remote media returned empty media_id")
	}
	return resp.MediaID, nil
}

// createCarousel создает пост из загруженных media_id.
func (p *HTTPPublisher) createCarousel(ctx context.Context, mediaIDs []string, caption string) (string, error) {
	payload, err := json.Marshal(createCarouselReq{MediaIDs: mediaIDs, Caption: caption})
	if err != nil {
		return "", transportPublishError(fmt.Sprintf("marshal carousel: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/carousels", bytes.NewReader(payload))
	if err != nil {
		return "", transportPublishError(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	var resp createCarouselResp
	if err := p.do(req, &resp); err != nil {
		return "", err
	}
	if resp.PostID == "" {
		return "", transportPublishError("carousel returned empty post_id")
	}
	return resp.PostID, nil
}

// do выполняет запрос и декодирует ответ. Не-2xx статус превращается в
// PublishError с классом по статусу.
func (p *HTTPPublisher) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		// Транспортный сбой статуса не имеет; считаем его серверным,
		// то есть подлежащим повтору.
		return transportPublishError(fmt.Sprintf("http request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &models.PublishError{
			StatusCode: resp.StatusCode,
			Class:      models.ClassifyPublishStatus(resp.StatusCode),
			Message:    string(bodyBytes),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transportPublishError(fmt.Sprintf("decode response: %v", err))
	}
	return nil
}

func transportPublishError(message string) *models.PublishError {
	return &models.PublishError{
		StatusCode: 0,
		Class:      models.PublishErrServer,
		Message:    message,
	}
}
