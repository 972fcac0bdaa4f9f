package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"

	"carousel-service/internal/config"
)

// ErrAIGenerationFailed - ошибка при генерации текста AI
var ErrAIGenerationFailed = errors.New("ошибка генерации текста AI")

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carousel_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
)

// AIClient интерфейс для взаимодействия с AI API
type AIClient interface {
	// GenerateText генерирует текст на основе системного промта и ввода пользователя.
	GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error)
}

// TruncateToTokenBudget обрезает текст до бюджета токенов модели.
// Если токенизатор для модели недоступен, текст возвращается как есть:
// лимит охраняет стоимость запроса, а не корректность.
func TruncateToTokenBudget(model, text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Printf("Токенизатор для модели %s недоступен: %v. Текст не обрезан.", model, err)
		return text
	}
	tokens := tke.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return tke.Decode(tokens[:maxTokens])
}

// --- OpenAI Client Implementation ---

// openAIClient реализует AIClient с использованием go-openai
type openAIClient struct {
	client *openaigo.Client
	model  string
}

// GenerateText генерирует текст на основе системного промта и ввода пользователя
func (c *openAIClient) GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		log.Printf("Ошибка: системный промт пуст.")
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: системный промт пуст", ErrAIGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{
			Role:    openaigo.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: userInput,
		})
	}

	startTime := time.Now()
	log.Printf("Отправка запроса к AI: Model=%s, SystemPrompt=%d bytes, UserInput=%d bytes",
		c.model, len(systemPrompt), len(userInput))

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openaigo.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
		},
	)

	duration := time.Since(startTime)

	if err != nil {
		log.Printf("Ошибка от AI API за %v: %v", duration, err)
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Printf("AI API вернул пустой ответ за %v", duration)
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error_empty_response"}).Inc()
		return "", fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model}).Observe(duration.Seconds())

	generatedText := resp.Choices[0].Message.Content
	log.Printf("Ответ от AI API получен за %v. Длина ответа: %d символов.", duration, len(generatedText))

	return generatedText, nil
}

// --- Ollama Client Implementation ---

// ollamaClient реализует AIClient с использованием локального Ollama
type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration // Храним таймаут для контекста
}

// newOllamaClient создает новый клиент для взаимодействия с Ollama
func newOllamaClient(cfg *config.Config) (AIClient, error) {
	httpClient := &http.Client{
		Timeout: cfg.AITimeout,
	}

	// api.NewClient требует URL без суффикса /v1
	ollamaBaseURL := strings.TrimSuffix(cfg.AIBaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", ollamaBaseURL, err)
	}

	client := api.NewClient(parsedURL, httpClient)

	log.Printf("Ollama Клиент создан. Используемый BaseURL: %s, Model: %s, Timeout: %v", ollamaBaseURL, cfg.AIModel, cfg.AITimeout)

	return &ollamaClient{
		client:  client,
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
	}, nil
}

// GenerateText генерирует текст с использованием Ollama
func (c *ollamaClient) GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		log.Printf("Ошибка: системный промт пуст. Невозможно отправить запрос к Ollama.")
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: системный промт пуст", ErrAIGenerationFailed)
	}

	messages := []api.Message{
		{Role: "system", Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(false), // Не стримим
	}

	// Контекст с таймаутом, специфичным для этого запроса
	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	log.Printf("Отправка запроса к Ollama: Model=%s, SystemPrompt=%d bytes, UserInput=%d bytes",
		c.model, len(systemPrompt), len(userInput))

	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r // Сохраняем последний (полный) ответ
		return nil
	})

	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("Ошибка таймаута (%v) от Ollama API за %v: %v", c.timeout, duration, err)
		} else {
			log.Printf("Ошибка от Ollama API за %v: %v", duration, err)
		}
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}

	if resp.Message.Content == "" {
		log.Printf("Ollama API вернул пустой ответ за %v", duration)
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return "", fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model}).Observe(duration.Seconds())

	generatedText := resp.Message.Content
	log.Printf("Ответ от Ollama API получен за %v. Длина ответа: %d символов. Tokens: prompt=%d, completion=%d",
		duration, len(generatedText), resp.PromptEvalCount, resp.EvalCount)

	return generatedText, nil
}

// --- Factory Function ---

// NewAIClient создает новый клиент для взаимодействия с AI в зависимости от конфигурации
func NewAIClient(cfg *config.Config) (AIClient, error) {
	switch strings.ToLower(cfg.AIClientType) {
	case "openai":
		log.Printf("Используется реализация AI клиента: OpenAI")
		openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
		if cfg.AIBaseURL != "" {
			openaiConfig.BaseURL = cfg.AIBaseURL
		}
		openaiConfig.HTTPClient = &http.Client{
			Timeout: cfg.AITimeout,
		}
		client := openaigo.NewClientWithConfig(openaiConfig)
		log.Printf("OpenAI Клиент создан. Используемый BaseURL: %s, Model: %s, Timeout: %v", cfg.AIBaseURL, cfg.AIModel, cfg.AITimeout)
		return &openAIClient{
			client: client,
			model:  cfg.AIModel,
		}, nil
	case "ollama":
		log.Printf("Используется реализация AI клиента: Ollama")
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.AIClientType)
	}
}
