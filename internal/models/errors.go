package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Стандартные ошибки сервиса
var (
	// Общие ошибки ресурсов
	ErrNotFound      = errors.New("resource not found")
	ErrStoryNotFound = errors.New("story not found")
	ErrSlideNotFound = errors.New("slide image not found")

	// Ошибки публикации карусели
	ErrAlreadyShared    = errors.New("story has already been shared")
	ErrStoryNotReady    = errors.New("story is not ready for sharing")
	ErrNoSlidesToRender = errors.New("story produced no slides")
	// Пост во внешнем API создан, но локальный статус публикации записать
	// не удалось. Повтор публикации по этой ошибке создаст дубликат поста.
	ErrSharePersistFailed = errors.New("carousel published but share status not persisted")

	// Ошибки рендеринга
	ErrRenderFailed = errors.New("slide render failed")

	// Ошибки токенов (межсервисная авторизация)
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrUnauthorized   = errors.New("unauthorized")

	// Общие ошибки запросов/сервера
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)

// ErrorKind классифицирует сбои конвейера. Вид назначается в точке
// возникновения ошибки, а не выводится из текста сообщения.
type ErrorKind string

const (
	ErrorKindRender     ErrorKind = "render"      // Рендерер/движок, включая таймауты
	ErrorKindCache      ErrorKind = "cache"       // Сбои кеширующего слоя
	ErrorKindPublishAPI ErrorKind = "publish_api" // Внешний API публикации
	ErrorKindUnknown    ErrorKind = "unknown"     // Всё, что не удалось классифицировать
)

// PipelineError несет явный вид сбоя через цепочку ошибок.
type PipelineError struct {
	Kind ErrorKind
	Op   string // Операция, на которой произошел сбой (например, "renderer.render")
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError оборачивает err с явным видом сбоя.
func NewPipelineError(kind ErrorKind, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// KindOf извлекает вид сбоя из цепочки ошибок.
// Ошибки без PipelineError в цепочке считаются unknown.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorKindUnknown
}

// PublishErrorClass подразделяет ошибки внешнего API публикации
// по HTTP-статусу ответа.
type PublishErrorClass string

const (
	PublishErrAuth        PublishErrorClass = "auth"         // 401
	PublishErrForbidden   PublishErrorClass = "forbidden"    // 403
	PublishErrRateLimited PublishErrorClass = "rate_limited" // 429
	PublishErrServer      PublishErrorClass = "server"       // 5xx
)

// PublishError описывает сбой вызова API публикации.
// Auth/forbidden не подлежат повтору, rate-limited/server - подлежат.
type PublishError struct {
	StatusCode int
	Class      PublishErrorClass
	Message    string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish API error (%s, status %d): %s", e.Class, e.StatusCode, e.Message)
}

// Retryable сообщает, имеет ли смысл повторять публикацию.
func (e *PublishError) Retryable() bool {
	return e.Class == PublishErrRateLimited || e.Class == PublishErrServer
}

// ClassifyPublishStatus сопоставляет HTTP-статус ответа классу ошибки.
func ClassifyPublishStatus(status int) PublishErrorClass {
	switch {
	case status == http.StatusUnauthorized:
		return PublishErrAuth
	case status == http.StatusForbidden:
		return PublishErrForbidden
	case status == http.StatusTooManyRequests:
		return PublishErrRateLimited
	default:
		return PublishErrServer
	}
}
