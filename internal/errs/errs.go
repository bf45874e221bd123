// Package errs — общие ошибки трекера.
//
// Сентинелы проверяются через errors.Is, поля формы — через errors.As(*FieldError).
// Пакет не импортирует другие внутренние пакеты.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — сущность по идентификатору не найдена.
	ErrNotFound = errors.New("not found")

	// ErrValidation — входные данные не прошли проверку, изменений не было.
	ErrValidation = errors.New("validation failed")

	// ErrFormatUnavailable — формат экспорта не подключён в этой сборке/конфигурации.
	ErrFormatUnavailable = errors.New("export format unavailable")
)

// FieldError — ошибка валидации с привязкой к полю формы.
// Field может быть пустым, если ошибка относится к форме целиком.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is позволяет проверять FieldError через errors.Is(err, ErrValidation).
func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid собирает FieldError.
func Invalid(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Wrap добавляет контекст, сохраняя цепочку для errors.Is. nil остаётся nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf — Wrap с форматированием.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Message возвращает текст для пользователя: для FieldError без префикса поля.
func Message(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
