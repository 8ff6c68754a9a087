// Package response формирует JSON-конверт {status, error, data}, общий для
// всех обработчиков MindUp.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Response конверт ответа. Data заполняется только при успехе.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse конверт ошибки, используется в Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

// OK успешный ответ без данных.
func OK() Response {
	return Response{Status: StatusOK}
}

// OKWithData успешный ответ с данными.
func OKWithData(data any) Response {
	return Response{Status: StatusOK, Data: data}
}

// Error ответ с текстом ошибки.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Error: msg}
}

// Шаблоны сообщений по тегу валидатора. %[1]s имя поля, %[2]s параметр тега.
var validationMessages = map[string]string{
	"required": "field %[1]s is a required field",
	"email":    "field %[1]s must be a valid email",
	"uuid":     "field %[1]s can contain only uuid",
	"oneof":    "field %[1]s must be one of [%[2]s]",
	"min":      "field %[1]s must be at least %[2]s characters long",
	"max":      "field %[1]s must be at most %[2]s characters long",
}

// ValidationError собирает нарушения валидации в одно сообщение через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		format, ok := validationMessages[fe.ActualTag()]
		if !ok {
			format = "field %[1]s is not a valid"
		}
		msgs = append(msgs, fmt.Sprintf(format, fe.Field(), fe.Param()))
	}
	return Response{Status: StatusError, Error: strings.Join(msgs, ", ")}
}
