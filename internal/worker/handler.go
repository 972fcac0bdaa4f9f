package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"carousel-service/internal/messaging"
	"carousel-service/internal/models"
	"carousel-service/internal/service"
)

// Определяем метрики Prometheus
var (
	tasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_tasks_processed_total",
			Help: "Total number of carousel tasks processed.",
		},
		[]string{"status"}, // "success", "error_generation", "error_share", "error_notify", "error_bad_story_id", "error_unmarshal"
	)
	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "carousel_task_duration_seconds",
		Help:    "Duration of carousel task processing.",
		Buckets: prometheus.LinearBuckets(1, 1, 15), // 1s, 2s, ..., 15s: рендер идет пакетами с паузами
	})
	notifyResultErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carousel_notify_result_errors_total",
		Help: "Total number of errors publishing task results.",
	})
)

// Handler обрабатывает задачи генерации каруселей из очереди.
type Handler struct {
	logger    *zap.Logger
	generator service.CarouselGenerator
	sharer    service.CarouselSharer
	notifier  messaging.ResultNotifier
	pusher    *push.Pusher // nil, если Pushgateway не настроен
}

var _ messaging.DeliveryHandler = (*Handler)(nil)

// NewHandler создает новый экземпляр Handler.
func NewHandler(
	logger *zap.Logger,
	generator service.CarouselGenerator,
	sharer service.CarouselSharer,
	notifier messaging.ResultNotifier,
	pushGatewayURL string,
) *Handler {
	if notifier == nil {
		logger.Fatal("Result notifier cannot be nil for carousel task handler")
	}

	var pusher *push.Pusher
	if pushGatewayURL != "" {
		hostname, _ := os.Hostname() // Используем hostname для instance label
		pusher = push.New(pushGatewayURL, "carousel-service").
			Grouping("instance", hostname).
			Gatherer(prometheus.DefaultGatherer)
		logger.Info("Prometheus Pusher initialized", zap.String("url", pushGatewayURL), zap.String("instance", hostname))
	} else {
		logger.Info("Pushgateway URL is not set, metric pushing disabled")
	}

	return &Handler{
		logger:    logger,
		generator: generator,
		sharer:    sharer,
		notifier:  notifier,
		pusher:    pusher,
	}
}

// HandleDelivery обрабатывает одну задачу: генерация карусели и, если
// запрошено, публикация. Результат отправляется в очередь обновлений для
// каждой распознанной задачи, успешной или нет.
// Возвращает true, если сообщение должно быть подтверждено (ack).
func (h *Handler) HandleDelivery(ctx context.Context, msg amqp091.Delivery) bool {
	defer h.pushMetrics()

	var task messaging.CarouselTaskPayload
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		h.logger.Error("Failed to unmarshal task message body",
			zap.Error(err),
			zap.String("correlation_id", msg.CorrelationId),
			zap.ByteString("body", msg.Body))
		tasksProcessed.WithLabelValues("error_unmarshal").Inc()
		return false // Nack - неизвестный формат
	}

	log := h.logger.With(
		zap.String("task_id", task.TaskID),
		zap.String("story_id", task.StoryID),
		zap.String("correlation_id", msg.CorrelationId),
	)
	log.Info("Received carousel task", zap.Bool("share_after_render", task.ShareAfterRender))

	// Замеряем время всей задачи, включая публикацию
	taskStartTime := time.Now()
	defer func() { taskDuration.Observe(time.Since(taskStartTime).Seconds()) }()

	result := messaging.CarouselResultPayload{
		TaskID:  task.TaskID,
		StoryID: task.StoryID,
		Status:  messaging.TaskStatusError,
	}

	storyID, err := uuid.Parse(task.StoryID)
	if err != nil {
		log.Error("Task contains invalid story id", zap.Error(err))
		result.ErrorDetails = "invalid story id: " + task.StoryID
		tasksProcessed.WithLabelValues("error_bad_story_id").Inc()
		// Повторять бессмысленно, идентификатор лучше не станет
		return h.notifyResult(ctx, log, result)
	}

	// Используем context.Background(), чтобы остановка консьюмера не
	// обрывала задачу посреди рендеринга.
	summary, err := h.generator.GenerateCarousel(context.Background(), storyID)
	if err != nil {
		log.Error("Failed to generate carousel", zap.Error(err))
		result.ErrorDetails = err.Error()
		tasksProcessed.WithLabelValues("error_generation").Inc()
		return h.notifyResult(ctx, log, result)
	}

	result.SlideCount = summary.SlideCount
	result.FallbackCount = summary.FallbackCount
	result.CacheHits = summary.CacheHits

	if !task.ShareAfterRender {
		result.Status = messaging.TaskStatusSuccess
		tasksProcessed.WithLabelValues("success").Inc()
		log.Info("Carousel generated",
			zap.Int("slide_count", summary.SlideCount),
			zap.Int("fallback_count", summary.FallbackCount))
		return h.notifyResult(ctx, log, result)
	}

	shareResult, err := h.sharer.ShareCarousel(context.Background(), storyID)
	switch {
	case err == nil:
		result.Status = messaging.TaskStatusSuccess
		result.Shared = true
		result.PostID = shareResult.PostID
		result.SlideCount = shareResult.SlideCount
		tasksProcessed.WithLabelValues("success").Inc()
		log.Info("Carousel generated and shared", zap.String("post_id", shareResult.PostID))
		return h.notifyResult(ctx, log, result)

	case errors.Is(err, models.ErrAlreadyShared):
		// История уже опубликована, желаемое состояние достигнуто.
		// Так сходятся повторные доставки задачи после сбоя уведомления.
		result.Status = messaging.TaskStatusSuccess
		result.Shared = true
		tasksProcessed.WithLabelValues("success").Inc()
		log.Warn("Story already shared, treating task as success")
		return h.notifyResult(ctx, log, result)

	case errors.Is(err, models.ErrSharePersistFailed):
		// Пост создан, но флаг публикации не записан. Повтор задачи
		// создал бы дубликат поста, поэтому подтверждаем сообщение
		// даже при сбое уведомления.
		log.Error("CRITICAL: carousel shared but status not persisted", zap.Error(err))
		result.ErrorDetails = err.Error()
		result.Shared = true
		tasksProcessed.WithLabelValues("error_share").Inc()
		h.notifyResult(ctx, log, result)
		return true

	default:
		log.Error("Failed to share carousel", zap.Error(err))
		result.ErrorDetails = err.Error()
		tasksProcessed.WithLabelValues("error_share").Inc()
		return h.notifyResult(ctx, log, result)
	}
}

// notifyResult отправляет результат задачи в очередь обновлений.
// Возвращает true при успехе; сбой уведомления ведет к nack, чтобы задача
// была доставлена повторно и платформа все же узнала результат.
func (h *Handler) notifyResult(ctx context.Context, log *zap.Logger, result messaging.CarouselResultPayload) bool {
	if err := h.notifier.NotifyResult(ctx, result); err != nil {
		log.Error("Failed to publish task result", zap.Error(err))
		notifyResultErrors.Inc()
		tasksProcessed.WithLabelValues("error_notify").Inc()
		return false // Nack - ошибка публикации результата
	}
	return true
}

func (h *Handler) pushMetrics() {
	if h.pusher == nil {
		return
	}
	if err := h.pusher.Push(); err != nil {
		h.logger.Error("Failed to push metrics to Pushgateway", zap.Error(err))
	} else {
		h.logger.Debug("Metrics pushed to Pushgateway")
	}
}
