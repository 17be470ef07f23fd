// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes and error bodies.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"financas/internal/core"
	"financas/internal/log"
)

// Error codes carried in ErrorBody.Code.
const (
	CodeValidation   = "validation_error"
	CodeInvalidJSON  = "invalid_json"
	CodeInvalidQuery = "invalid_parameters"
	CodeNotFound     = "not_found"
	CodeMethod       = "method_not_allowed"
	CodeInternal     = "internal_error"
	CodeUnavailable  = "service_unavailable"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
	hasPayload bool
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	b.hasPayload = true
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if !b.hasPayload || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Erro interno do servidor.","code":"internal_error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) {
	NewJSONResponse().Body(v).Write(w)
}

// Created writes v with status 201.
func Created(w http.ResponseWriter, v any) {
	NewJSONResponse().Status(http.StatusCreated).Body(v).Write(w)
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string, details map[string]string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Code: code, Details: details})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(code, message string, details map[string]string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, code, message, details)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, "Não encontrado.", nil)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, "Erro interno do servidor.", nil)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, CodeMethod, "Método não permitido.", nil).
		Header("Allow", allowedMethods)
}

// fieldMessages are the user-facing texts for domain errors on a field.
var fieldMessages = []struct {
	err error
	msg string
}{
	{core.ErrEmptyName, "Este campo não pode estar em branco."},
	{core.ErrEmptyDescription, "Este campo não pode estar em branco."},
	{core.ErrInvalidAmount, "Informe um valor válido."},
	{core.ErrInvalidKind, "Escolha uma opção válida."},
	{core.ErrInvalidStatus, "Escolha uma opção válida."},
	{core.ErrMissingDeadline, "Este campo é obrigatório."},
	{core.ErrInvalidDate, "Formato de data inválido. Use AAAA-MM-DD."},
}

func fieldMessage(err error) string {
	for _, fm := range fieldMessages {
		if errors.Is(err, fm.err) {
			return fm.msg
		}
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return verr.Err.Error()
	}
	return err.Error()
}

// writeError maps err to a response. Unexpected errors are logged and
// answered with a generic 500.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		verr  *core.ValidationError
		perr  *ParamError
		bodyE *BodyError
	)
	switch {
	case errors.As(err, &perr):
		BadRequestError(CodeInvalidQuery, "Parâmetros inválidos.", map[string]string{perr.Param: perr.Message}).Write(w)
	case errors.As(err, &bodyE):
		field := bodyE.Field
		if field == "" {
			field = "body"
		}
		BadRequestError(CodeInvalidJSON, "Corpo da requisição inválido.", map[string]string{field: fieldMessage(bodyE.Err)}).Write(w)
	case errors.As(err, &verr):
		BadRequestError(CodeValidation, "Dados inválidos.", map[string]string{verr.Field: fieldMessage(err)}).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError().Write(w)
	case errors.Is(err, core.ErrDuplicateName):
		log.FromContext(ctx).DebugContext(ctx, "Duplicate name rejected", log.FieldErrorType, log.ErrorTypeConflict)
		BadRequestError(CodeValidation, "Dados inválidos.", map[string]string{"nome": "Já existe um registro com este nome."}).Write(w)
	case errors.Is(err, core.ErrUnknownCategory):
		BadRequestError(CodeValidation, "Dados inválidos.", map[string]string{"categoria": "Categoria inexistente."}).Write(w)
	case errors.Is(err, core.ErrInvalidParameters):
		BadRequestError(CodeInvalidQuery, err.Error(), nil).Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		log.FromContext(ctx).WarnContext(ctx, "Request timed out", log.FieldError, err, log.FieldErrorType, log.ErrorTypeTimeout)
		ErrorResponse(http.StatusServiceUnavailable, CodeUnavailable, "Tempo limite excedido.", nil).Write(w)
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Request failed", log.FieldError, err, log.FieldErrorType, log.ErrorTypeInternal)
		InternalServerError().Write(w)
	}
}
