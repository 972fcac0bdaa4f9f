package models

import "github.com/golang-jwt/jwt/v5"

// Claims - поля межсервисного JWT. Идентификатор сервиса-источника
// передается в Subject.
type Claims struct {
	jwt.RegisteredClaims
}

// ContextKey - типизированный ключ для значений в context/echo.Context.
type ContextKey string

// SourceServiceContextKey - ключ, под которым middleware кладет
// идентификатор сервиса-источника межсервисного запроса.
const SourceServiceContextKey ContextKey = "sourceService"
