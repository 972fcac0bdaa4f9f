package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"carousel-service/internal/carousel"
	"carousel-service/internal/config"
	"carousel-service/internal/handler"
	"carousel-service/internal/logger"
	"carousel-service/internal/messaging"
	appMiddleware "carousel-service/internal/middleware"
	"carousel-service/internal/models"
	"carousel-service/internal/monitor"
	"carousel-service/internal/renderer"
	"carousel-service/internal/repository"
	"carousel-service/internal/service"
	"carousel-service/internal/social"
	"carousel-service/internal/store"
	"carousel-service/internal/worker"
)

const reconnectDelay = 5 * time.Second

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Carousel Service...")

	// Загружаем конфиг ДО инициализации логгера
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err) // Используем стандартный логгер, т.к. zap еще нет
	}

	appLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.Encoding,
	})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer appLogger.Sync() // Flush буфера логгера при выходе
	appLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// Подключение к PostgreSQL (хранилище историй контент-платформы)
	dbPool, err := setupDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()
	appLogger.Info("Успешное подключение к PostgreSQL")

	// Монитор ошибок конвейера общий для рендеринга и публикации
	errorMonitor := monitor.NewErrorMonitor(appLogger)

	storyRepo := repository.NewPgStoryRepository(dbPool, appLogger)

	// Контур рендеринга: HTTP-движок за кешем, поверх пакетный оркестратор
	primaryOptions := models.RenderOptions{
		Width:       cfg.SlideWidth,
		Height:      cfg.SlideHeight,
		Format:      cfg.SlideFormat,
		DeviceScale: cfg.SlideDeviceScale,
		TimeoutMs:   int(cfg.RenderTimeout.Milliseconds()),
	}
	renderCache := renderer.NewRenderCache(cfg.RenderCacheTTL, cfg.RenderCacheMaxEntries)
	httpRenderer := renderer.NewHTTPRenderer(appLogger, cfg.RendererURL)
	cachedRenderer := renderer.NewCachedRenderer(appLogger, httpRenderer, renderCache)
	orchestrator := renderer.NewBatchOrchestrator(appLogger, cachedRenderer, errorMonitor, renderer.OrchestratorConfig{
		BatchSize:       cfg.RenderBatchSize,
		BatchPause:      cfg.RenderBatchPause,
		PrimaryOptions:  primaryOptions,
		FallbackTimeout: cfg.FallbackRenderTimeout,
	})

	carouselStore := store.NewCarouselStore(appLogger, cfg.CarouselMetadataTTL, cfg.PreGeneratedImagesTTL)

	// AI-клиент создается только при включенной доводке подписи,
	// CaptionBuilder умеет работать и без него
	var aiClient service.AIClient
	if cfg.AICaptionEnabled {
		aiClient, err = service.NewAIClient(cfg)
		if err != nil {
			appLogger.Fatal("Не удалось создать AI клиент", zap.Error(err))
		}
	}
	captions := service.NewCaptionBuilder(appLogger, aiClient, cfg)
	markup := carousel.NewMarkupBuilder(cfg.PublishBrandTag)

	generationService := service.NewGenerationService(
		appLogger,
		storyRepo,
		carouselStore,
		orchestrator,
		renderCache,
		captions,
		markup,
		service.GenerationConfig{
			MaxSlides: cfg.MaxSlides,
			Limits: carousel.ChunkLimits{
				SoftMax: cfg.SlideSoftMaxChars,
				Floor:   cfg.SlideFloorChars,
				HardMax: cfg.SlideHardMaxChars,
			},
			PrimaryOptions: primaryOptions,
		},
	)

	socialPublisher := social.NewHTTPPublisher(appLogger, cfg.PublishAPIURL, cfg.PublishAPIToken, cfg.PublishTimeout)
	publishingService := service.NewPublishingService(
		appLogger,
		storyRepo,
		carouselStore,
		generationService,
		socialPublisher,
		errorMonitor,
		cfg.SlideFormat,
	)

	// Менеджер соединения RabbitMQ владеет консьюмером задач и
	// нотификатором результатов и пересоздает их после обрыва
	mqCtx, mqCancel := context.WithCancel(context.Background())
	defer mqCancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		manageRabbitMQConnection(mqCtx, appLogger, cfg, generationService, publishingService)
		appLogger.Info("RabbitMQ connection manager exited")
	}()

	// Настройка Echo
	e := echo.New()
	e.Use(appMiddleware.EchoZapLogger(appLogger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{cfg.CORSOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	carouselHandler := handler.NewCarouselHandler(
		generationService,
		publishingService,
		errorMonitor,
		appLogger,
		cfg.JWTSecret,
		cfg.SlideFormat,
	)
	carouselHandler.RegisterRoutes(e)

	log.Printf("Carousel сервер слушает на порту %s", cfg.Port)

	// Запуск HTTP сервера
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("Ошибка запуска HTTP сервера: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	// Сначала останавливаем потребление задач, чтобы новая задача
	// не пришла в умирающий процесс
	mqCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Ошибка при graceful shutdown Echo: ", err)
	}

	appLogger.Info("Waiting for background tasks to finish...")
	wg.Wait()

	log.Println("Carousel Service успешно остановлен")
}

// setupDatabase инициализирует и возвращает пул соединений с БД
func setupDatabase(cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	dsn := cfg.GetDSN()
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать пул соединений: %w", err)
	}
	if err = dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД (ping failed): %w", err)
	}
	return dbPool, nil
}

// manageRabbitMQConnection управляет подключением к RabbitMQ: поднимает
// соединение вместе с консьюмером задач и нотификатором результатов,
// следит за разрывом и после разрыва пересоздает весь контур заново.
func manageRabbitMQConnection(
	ctx context.Context,
	appLogger *zap.Logger,
	cfg *config.Config,
	generation service.CarouselGenerator,
	publishing service.CarouselSharer,
) {
	for {
		conn, notifier, consumer := establishRabbitMQ(ctx, appLogger, cfg, generation, publishing)
		if conn == nil {
			return // Контекст отменен во время подключения
		}

		// Следим за разрывом соединения
		notifyClose := make(chan *amqp091.Error)
		conn.NotifyClose(notifyClose)

		select {
		case closeErr := <-notifyClose:
			appLogger.Warn("RabbitMQ connection closed, reconnecting", zap.Error(closeErr))
			if err := consumer.Stop(); err != nil {
				appLogger.Warn("Failed to stop task consumer after connection loss", zap.Error(err))
			}
			if err := notifier.Close(); err != nil {
				appLogger.Warn("Failed to close result notifier after connection loss", zap.Error(err))
			}
			// Новый виток цикла переустановит соединение и контур на нем
		case <-ctx.Done():
			appLogger.Info("Context cancelled, closing RabbitMQ connection")
			if err := consumer.Stop(); err != nil {
				appLogger.Warn("Failed to stop task consumer", zap.Error(err))
			}
			if err := notifier.Close(); err != nil {
				appLogger.Warn("Failed to close result notifier", zap.Error(err))
			}
			if err := conn.Close(); err != nil {
				appLogger.Warn("Failed to close RabbitMQ connection", zap.Error(err))
			}
			return
		}
	}
}

// establishRabbitMQ поднимает соединение и весь потребляющий контур на нем
// с ограниченным числом попыток. Возвращает nil при отмене контекста,
// исчерпание попыток фатально.
func establishRabbitMQ(
	ctx context.Context,
	appLogger *zap.Logger,
	cfg *config.Config,
	generation service.CarouselGenerator,
	publishing service.CarouselSharer,
) (*amqp091.Connection, *messaging.RabbitResultNotifier, *messaging.TaskConsumer) {
	for attempt := 1; ; attempt++ {
		conn, notifier, consumer, err := dialAndWire(ctx, appLogger, cfg, generation, publishing)
		if err == nil {
			return conn, notifier, consumer
		}

		appLogger.Error("Failed to establish RabbitMQ pipeline",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.RabbitMQMaxRetries),
			zap.Error(err),
		)
		if attempt >= cfg.RabbitMQMaxRetries {
			appLogger.Fatal("Max RabbitMQ connect attempts reached, shutting down")
		}

		select {
		case <-time.After(reconnectDelay):
			appLogger.Info("Retrying RabbitMQ connection...")
		case <-ctx.Done():
			appLogger.Info("Context cancelled, stopping RabbitMQ connection attempts")
			return nil, nil, nil
		}
	}
}

// dialAndWire открывает соединение и собирает на нем нотификатор,
// обработчик и консьюмер. При любой ошибке закрывает все уже открытое.
func dialAndWire(
	ctx context.Context,
	appLogger *zap.Logger,
	cfg *config.Config,
	generation service.CarouselGenerator,
	publishing service.CarouselSharer,
) (*amqp091.Connection, *messaging.RabbitResultNotifier, *messaging.TaskConsumer, error) {
	conn, err := amqp091.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dial: %w", err)
	}
	appLogger.Info("RabbitMQ connected successfully")

	notifier, err := messaging.NewRabbitResultNotifier(conn, cfg.UpdatesQueueName, appLogger)
	if err != nil {
		_ = conn.Close()
		return nil, nil, nil, fmt.Errorf("create result notifier: %w", err)
	}

	messageHandler := worker.NewHandler(appLogger, generation, publishing, notifier, cfg.PushGatewayURL)
	consumer := messaging.NewTaskConsumer(conn, messageHandler, cfg.CarouselTaskQueue, cfg.ConsumerPrefetch, appLogger)
	if err := consumer.Start(ctx); err != nil {
		_ = notifier.Close()
		_ = conn.Close()
		return nil, nil, nil, fmt.Errorf("start task consumer: %w", err)
	}

	return conn, notifier, consumer, nil
}
