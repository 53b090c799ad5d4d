package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"hpmsklad/server/internal/models"

	"gorm.io/gorm"
)

// DodavatelInput поля поставщика
type DodavatelInput struct {
	Dodavatel string  `json:"dodavatel"`
	Kontakt   *string `json:"kontakt"`
	Email     *string `json:"email"`
	Telefon   *string `json:"telefon"`
	Jazyk     string  `json:"jazyk"`
}

func (in *DodavatelInput) validate() error {
	in.Dodavatel = strings.TrimSpace(in.Dodavatel)
	if in.Dodavatel == "" {
		return validationError("dodavatel", "povinné pole")
	}
	if err := maxLen("dodavatel", &in.Dodavatel, 100); err != nil {
		return err
	}
	if err := maxLen("kontakt", in.Kontakt, 100); err != nil {
		return err
	}
	if err := maxLen("telefon", in.Telefon, 20); err != nil {
		return err
	}
	if email := optionalString(in.Email); email != nil {
		if err := maxLen("email", email, 100); err != nil {
			return err
		}
		if !validEmail(*email) {
			return validationError("email", "neplatná e-mailová adresa")
		}
	}
	if in.Jazyk == "" {
		in.Jazyk = string(models.JazykCZ)
	}
	in.Jazyk = strings.ToUpper(strings.TrimSpace(in.Jazyk))
	if !models.Jazyk(in.Jazyk).IsValid() {
		return validationError("jazyk", "povolené hodnoty CZ, SK, DE, EN")
	}
	return nil
}

// DodavatelService управляет поставщиками
type DodavatelService struct {
	db *gorm.DB
}

// NewDodavatelService создает новый экземпляр DodavatelService
func NewDodavatelService(db *gorm.DB) *DodavatelService {
	return &DodavatelService{db: db}
}

// GetAll возвращает поставщиков, query ищет по имени
func (s *DodavatelService) GetAll(ctx context.Context, query string) ([]models.Dodavatel, error) {
	q := s.db.WithContext(ctx).Order("dodavatel ASC")
	if query = strings.TrimSpace(query); query != "" {
		q = q.Where("LOWER(dodavatel) LIKE LOWER(?)", "%"+query+"%")
	}
	var list []models.Dodavatel
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID получает поставщика по ID
func (s *DodavatelService) GetByID(ctx context.Context, id string) (*models.Dodavatel, error) {
	var d models.Dodavatel
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "dodavatel")
	}
	return &d, nil
}

// Create создает поставщика (имя уникально)
func (s *DodavatelService) Create(ctx context.Context, in DodavatelInput) (*models.Dodavatel, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	d := models.Dodavatel{
		Dodavatel: in.Dodavatel,
		Kontakt:   optionalString(in.Kontakt),
		Email:     optionalString(in.Email),
		Telefon:   optionalString(in.Telefon),
		Jazyk:     models.Jazyk(in.Jazyk),
	}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: dodavatel %q již existuje", ErrConflict, in.Dodavatel)
		}
		return nil, err
	}
	log.Printf("✅ Создан поставщик %s (%s)", d.Dodavatel, d.Jazyk)
	return &d, nil
}

// Update обновляет поставщика
func (s *DodavatelService) Update(ctx context.Context, id string, in DodavatelInput) (*models.Dodavatel, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(d).Updates(map[string]interface{}{
		"dodavatel": in.Dodavatel,
		"kontakt":   optionalString(in.Kontakt),
		"email":     optionalString(in.Email),
		"telefon":   optionalString(in.Telefon),
		"jazyk":     in.Jazyk,
	}).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: dodavatel %q již existuje", ErrConflict, in.Dodavatel)
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete удаляет поставщика, если на него не ссылаются варианты и запросы
func (s *DodavatelService) Delete(ctx context.Context, id string) error {
	db := s.db.WithContext(ctx)
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	var refs int64
	if err := db.Model(&models.Varianta{}).Where("dodavatel_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: dodavatel má %d variant", ErrConflict, refs)
	}
	if err := db.Model(&models.Poptavka{}).Where("dodavatel_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: dodavatel má %d poptávek", ErrConflict, refs)
	}

	return db.Delete(&models.Dodavatel{}, "id = ?", id).Error
}
