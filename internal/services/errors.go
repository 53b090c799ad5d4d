package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("záznam nenalezen")
	ErrValidation         = errors.New("neplatná data")
	ErrConflict           = errors.New("konflikt")
	ErrInsufficientStock  = errors.New("nedostatečné množství na skladě")
	ErrVariantaExists     = errors.New("varianta pro tohoto dodavatele již existuje")
	ErrInvalidTransition  = errors.New("neplatný přechod stavu poptávky")
	ErrNothingToRequest   = errors.New("žádné položky pod minimem s variantou dodavatele")
	ErrInvalidCredentials = errors.New("neplatné přihlašovací údaje")
	ErrTooManyAttempts    = errors.New("příliš mnoho neúspěšných pokusů o přihlášení")
	ErrInvalidToken       = errors.New("neplatný token")
)

// validationError оборачивает ErrValidation с указанием поля
func validationError(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, msg)
}

// notFoundOr превращает gorm.ErrRecordNotFound в ErrNotFound
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// isUniqueViolation распознает нарушение уникальности (PostgreSQL и SQLite)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

var validate = validator.New()

// validEmail проверяет адрес тем же валидатором, что и binding в gin
func validEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

const dateLayout = "2006-01-02"

// parseDate разбирает дату YYYY-MM-DD; будущие даты (по UTC) запрещены
func parseDate(field, value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, validationError(field, "povinné pole")
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, validationError(field, "očekáván formát RRRR-MM-DD")
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.After(today) {
		return time.Time{}, validationError(field, "datum nesmí být v budoucnosti")
	}
	return d, nil
}

// optionalString возвращает nil для пустой строки
func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
