package contacts

import (
	"errors"
	"fmt"
)

// Этапы загрузки, указываемые в QueryError
const (
	StepAttempts = "contact_attempts"
	StepProfiles = "profiles"
)

var (
	// ErrNoViewer не удалось определить текущего пользователя
	ErrNoViewer = errors.New("пользователь не определен, требуется вход")

	// ErrSessionClosed сессия уже закрыта
	ErrSessionClosed = errors.New("сессия контактов закрыта")
)

// QueryError ошибка одного из запросов к хранилищу.
// Весь проход агрегации при этом отбрасывается.
type QueryError struct {
	Step string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("ошибка запроса %s: %v", e.Step, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// UserMessage текст ошибки для показа пользователю
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoViewer):
		return "Please sign in to see your contacts"
	default:
		return "Failed to load contacts"
	}
}
