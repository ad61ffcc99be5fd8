package errors

import (
	"fmt"
	"net/http"
)

// Сентинельные ошибки доменного слоя. Репозитории и сервисы возвращают их,
// а utils.ErrorResponse переводит в HTTP-коды.
var (
	ErrNotFound     = fmt.Errorf("запись не найдена")
	ErrConflict     = fmt.Errorf("запись уже существует")
	ErrBadRequest   = fmt.Errorf("неверный запрос")
	ErrForbidden    = fmt.Errorf("доступ запрещён")
	ErrUnauthorized = fmt.Errorf("неавторизован")

	// Жизненный цикл заявок и откликов
	ErrInvalidState       = fmt.Errorf("операция недопустима в текущем статусе")
	ErrRequestLocked      = fmt.Errorf("по заявке уже выбран отклик")
	ErrApplicationNotOpen = fmt.Errorf("отклик не находится в статусе ожидания")

	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")

	// Контекст
	ErrUserIDNotFoundInContext = fmt.Errorf("UserID не найден в контексте запроса")
)

// HttpError - ошибка, которую контроллеры отдают клиенту как есть.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details map[string]interface{}
	Context map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details ...map[string]interface{}) *HttpError {
	httpErr := &HttpError{Code: code, Message: message, Err: err}
	if len(details) > 0 {
		httpErr.Details = details[0]
	}
	return httpErr
}

// ValidationError - ошибка валидации с картой "поле -> причины".
// Возвращается ДО любой записи в хранилище.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "ошибка валидации входных данных"
}

func NewValidationError(fields map[string][]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// ToHttp переводит ValidationError в HttpError c деталями по полям.
func (e *ValidationError) ToHttp() *HttpError {
	details := make(map[string]interface{}, len(e.Fields))
	for field, reasons := range e.Fields {
		details[field] = reasons
	}
	return NewHttpError(http.StatusUnprocessableEntity, "Ошибка валидации", e, details)
}
