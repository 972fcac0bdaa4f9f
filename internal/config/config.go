package config

import (
	"fmt"
	"log"
	"time"

	"carousel-service/internal/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию Carousel Service.
type Config struct {
	// Настройки сервера
	Port       string `envconfig:"CAROUSEL_SERVER_PORT" default:"8086"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	Encoding   string `envconfig:"LOG_ENCODING" default:"json"`
	ServiceID  string `envconfig:"SERVICE_ID" default:"carousel-service"`
	CORSOrigin string `envconfig:"CORS_ALLOWED_ORIGIN" default:"*"`

	// Настройки PostgreSQL (внешнее хранилище историй)
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Настройки RabbitMQ
	RabbitMQURL        string `envconfig:"RABBITMQ_URL" required:"true"`
	CarouselTaskQueue  string `envconfig:"CAROUSEL_TASK_QUEUE" default:"carousel_generation_tasks"`
	UpdatesQueueName   string `envconfig:"INTERNAL_UPDATES_QUEUE_NAME" default:"internal_updates"`
	ConsumerPrefetch   int    `envconfig:"CONSUMER_PREFETCH" default:"1"`
	RabbitMQMaxRetries int    `envconfig:"RABBITMQ_CONNECT_RETRIES" default:"5"`

	// Внешний движок рендеринга (markup -> изображение)
	RendererURL           string        `envconfig:"RENDERER_URL" required:"true"`
	RenderTimeout         time.Duration `envconfig:"RENDER_TIMEOUT" default:"10s"`
	FallbackRenderTimeout time.Duration `envconfig:"FALLBACK_RENDER_TIMEOUT" default:"3s"`
	SlideWidth            int           `envconfig:"SLIDE_WIDTH" default:"1080"`
	SlideHeight           int           `envconfig:"SLIDE_HEIGHT" default:"1350"`
	SlideFormat           string        `envconfig:"SLIDE_FORMAT" default:"png"`
	SlideDeviceScale      float64       `envconfig:"SLIDE_DEVICE_SCALE" default:"2.0"`
	RenderBatchSize       int           `envconfig:"RENDER_BATCH_SIZE" default:"2"`
	RenderBatchPause      time.Duration `envconfig:"RENDER_BATCH_PAUSE" default:"500ms"`
	RenderCacheTTL        time.Duration `envconfig:"RENDER_CACHE_TTL" default:"1h"`
	RenderCacheMaxEntries int           `envconfig:"RENDER_CACHE_MAX_ENTRIES" default:"200"`

	// Нарезка текста на слайды
	MaxSlides         int `envconfig:"MAX_SLIDES" default:"10"`
	SlideSoftMaxChars int `envconfig:"SLIDE_SOFT_MAX_CHARS" default:"600"`
	SlideFloorChars   int `envconfig:"SLIDE_FLOOR_CHARS" default:"300"`
	SlideHardMaxChars int `envconfig:"SLIDE_HARD_MAX_CHARS" default:"800"`

	// TTL кешей карусели
	CarouselMetadataTTL   time.Duration `envconfig:"CAROUSEL_METADATA_TTL" default:"1h"`
	PreGeneratedImagesTTL time.Duration `envconfig:"PREGENERATED_IMAGES_TTL" default:"1h"`

	// Внешний API публикации
	PublishAPIURL   string        `envconfig:"PUBLISH_API_URL" required:"true"`
	PublishTimeout  time.Duration `envconfig:"PUBLISH_TIMEOUT" default:"30s"`
	PublishBrandTag string        `envconfig:"PUBLISH_BRAND_TAG" default:"@storyweaver"`
	// Секретное поле БЕЗ envconfig тега
	PublishAPIToken string

	// AI-доводка подписи (опционально)
	AICaptionEnabled bool          `envconfig:"AI_CAPTION_ENABLED" default:"false"`
	AIClientType     string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL        string        `envconfig:"AI_BASE_URL" default:""`
	AIModel          string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	AITimeout        time.Duration `envconfig:"AI_TIMEOUT" default:"20s"`
	AIMaxPromptToken int           `envconfig:"AI_MAX_PROMPT_TOKENS" default:"900"`
	// Секретное поле БЕЗ envconfig тега; пусто, если AI-доводка выключена
	AIAPIKey string

	// Метрики
	PushGatewayURL string `envconfig:"PUSHGATEWAY_URL" default:""`

	// Межсервисная авторизация внутренних маршрутов
	// Секретное поле БЕЗ envconfig тега
	JWTSecret string
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации carousel-service: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЕ секреты
	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.PublishAPIToken, loadErr = utils.ReadSecret("publish_api_token")
	if loadErr != nil {
		return nil, loadErr
	}

	// Ключ AI обязателен только при включенной доводке подписи
	if cfg.AICaptionEnabled {
		cfg.AIAPIKey, loadErr = utils.ReadSecret("ai_api_key")
		if loadErr != nil {
			return nil, loadErr
		}
	}

	log.Printf("Конфигурация Carousel Service загружена (секреты из файлов):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  RabbitMQ URL: %s", cfg.RabbitMQURL)
	log.Printf("  Carousel Task Queue: %s", cfg.CarouselTaskQueue)
	log.Printf("  Updates Queue: %s", cfg.UpdatesQueueName)
	log.Printf("  Renderer URL: %s", cfg.RendererURL)
	log.Printf("  Render Batch: size=%d pause=%v", cfg.RenderBatchSize, cfg.RenderBatchPause)
	log.Printf("  Slide Geometry: %dx%d @%gx (%s)", cfg.SlideWidth, cfg.SlideHeight, cfg.SlideDeviceScale, cfg.SlideFormat)
	log.Printf("  Cache TTLs: metadata=%v images=%v render=%v", cfg.CarouselMetadataTTL, cfg.PreGeneratedImagesTTL, cfg.RenderCacheTTL)
	log.Printf("  Publish API URL: %s", cfg.PublishAPIURL)
	log.Printf("  AI Caption: enabled=%t type=%s model=%s", cfg.AICaptionEnabled, cfg.AIClientType, cfg.AIModel)
	if cfg.PushGatewayURL != "" {
		log.Printf("  Pushgateway: %s", cfg.PushGatewayURL)
	}
	log.Println("  JWT Secret: [ЗАГРУЖЕН]")
	log.Println("  Publish API Token: [ЗАГРУЖЕН]")

	return &cfg, nil
}
