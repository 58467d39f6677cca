// Package apperrors classifies failures and maps them to user-visible messages.
package apperrors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewSessionError covers dispatch failures: missing or corrupt snapshots.
func NewSessionError(msg string, cause error) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: "Не удалось восстановить ваш заказ. Отправьте /start, чтобы начать заново",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       cause,
	}
}

// NewCommerceError covers commerce backend call failures.
func NewCommerceError(cause error) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("commerce backend error: %v", cause),
		UserMessage: "Магазин временно недоступен, попробуйте позже",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewGeocoderError covers address resolution failures other than "not found".
func NewGeocoderError(cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("geocoder error: %v", cause),
		UserMessage: "Не получилось проверить адрес, попробуйте еще раз",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewTransportError covers chat platform delivery failures.
func NewTransportError(cause error) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     fmt.Sprintf("transport error: %v", cause),
		UserMessage: "",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewInternalError covers everything else.
func NewInternalError(cause error) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("internal error: %v", cause),
		UserMessage: "Что-то пошло не так. Попробуйте позже",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}
