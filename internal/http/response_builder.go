package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gastos/internal/auth"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/repository"
	"gastos/internal/services"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidJSON         = "INVALID_JSON"
	CodeInvalidID           = "INVALID_ID"
	CodeInvalidFilter       = "INVALID_FILTER"
	CodeInvalidPeriod       = "INVALID_PERIOD"
	CodeValidation          = "VALIDATION_ERROR"
	CodeMissingTransactions = "MISSING_TRANSACTIONS"
	CodeMissingDescription  = "MISSING_DESCRIPTION"
	CodeInvalidRegistration = "INVALID_REGISTRATION"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeNotFound            = "NOT_FOUND"
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent || b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.data)
}

// ErrorResponse creates an error response with the standard body.
func ErrorResponse(statusCode int, message, code string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(ErrorBody{Error: message, Code: code})
}

func BadRequestError(message, code string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, code)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message, CodeValidation)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message, CodeNotFound)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Erro interno do servidor", CodeInternal)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em 1 minuto.", CodeRateLimited)
}

// aiRetryAfterSeconds is the retryAfter hint in AI rate limit bodies.
const aiRetryAfterSeconds = 60

// RateLimitBody is the error body of the AI rate limit, which also tells
// the client how long to back off.
type RateLimitBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retryAfter"`
}

func AIRateLimitError() *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Data(RateLimitBody{
			Error:      "Muitas requisições para análise IA. Tente novamente em 1 minuto.",
			Code:       CodeRateLimited,
			RetryAfter: aiRetryAfterSeconds,
		})
}

// errorMapping maps a sentinel error to its response. An empty message
// means the error text is shown.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{core.ErrInvalidType, http.StatusUnprocessableEntity, CodeValidation, ""},
	{core.ErrInvalidAmount, http.StatusUnprocessableEntity, CodeValidation, ""},
	{core.ErrEmptyCategory, http.StatusUnprocessableEntity, CodeValidation, ""},
	{core.ErrDescriptionTooLong, http.StatusUnprocessableEntity, CodeValidation, ""},
	{core.ErrInvalidDate, http.StatusUnprocessableEntity, CodeValidation, ""},
	{services.ErrInvalidPeriod, http.StatusBadRequest, CodeInvalidPeriod, ""},
	{auth.ErrInvalidRegistration, http.StatusBadRequest, CodeInvalidRegistration, ""},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "Credenciais inválidas"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, CodeInvalidToken, "Token inválido"},
	{repository.ErrNotFound, http.StatusNotFound, CodeNotFound, "Recurso não encontrado"},
	{repository.ErrEmailTaken, http.StatusConflict, CodeEmailTaken, "Usuário já existe"},
}

// ServiceErrorResponse maps err to a response; unknown errors are logged
// and hidden behind a 500.
func ServiceErrorResponse(r *http.Request, err error, operation string) *JSONResponseBuilder {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return ErrorResponse(m.status, msg, m.code)
		}
	}

	ctx := r.Context()
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogError(ctx, "Request failed", err, log.ComponentHTTP, operation,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")))
	return InternalServerError()
}
