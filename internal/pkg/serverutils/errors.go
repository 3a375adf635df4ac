package serverutils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// AppError carries an HTTP status and a client-safe message. The wrapped
// cause is logged by callers but never serialized.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return NewAppError(fiber.StatusBadRequest, message, nil)
}

func Unauthorized(message string) *AppError {
	return NewAppError(fiber.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return NewAppError(fiber.StatusForbidden, message, nil)
}

func TooManyRequests(message string) *AppError {
	return NewAppError(fiber.StatusTooManyRequests, message, nil)
}

func Internal(message string, err error) *AppError {
	return NewAppError(fiber.StatusInternalServerError, message, err)
}

// ErrorHandlerMiddleware turns handler errors into BaseResponse JSON.
// Unknown errors become a generic 500 so internal detail never reaches clients.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := Classify(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

// FiberErrorHandler is the same mapping for fiber.Config.ErrorHandler,
// covering errors raised before the middleware chain runs (404, body limit).
func FiberErrorHandler(ctx *fiber.Ctx, err error) error {
	code, message := Classify(err)
	return ctx.Status(code).JSON(ErrorResponse(code, message))
}

func Classify(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Message
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}
	return fiber.StatusInternalServerError, "Internal server error"
}
