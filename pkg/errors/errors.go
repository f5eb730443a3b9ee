package errors

import "fmt"

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")

	// Авторизация
	ErrEmptyAuthHeader   = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader = fmt.Errorf("неверный формат заголовка авторизации")
	ErrUnauthorized      = fmt.Errorf("неавторизован")

	// Контекст
	ErrUserIDNotFoundInContext = fmt.Errorf("UserID не найден в контексте запроса")

	// Уведомления
	ErrInvalidNotificationType = fmt.Errorf("неизвестный тип уведомления")
	ErrPersistence             = fmt.Errorf("не удалось сохранить уведомление")

	// Канал доставки
	ErrMalformedFrame    = fmt.Errorf("некорректный кадр")
	ErrIdentityMismatch  = fmt.Errorf("userId не совпадает с владельцем токена")
	ErrConnectionClosed  = fmt.Errorf("соединение закрыто")
	ErrSendQueueOverflow = fmt.Errorf("очередь отправки переполнена")

	// Общие
	ErrNotFound       = fmt.Errorf("запись не найдена")
	ErrBadRequest     = fmt.Errorf("неверный запрос")
	ErrInternalServer = fmt.Errorf("Внутренняя ошибка сервера")
)

// HttpError - ошибка с HTTP-кодом и сообщением для клиента.
// Err и Context пишутся только в лог, Details уходит клиенту в поле body.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Context map[string]interface{}
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, context map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Context: context}
}
