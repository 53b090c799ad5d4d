package services

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"strings"

	"hpmsklad/server/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ZarizeniInput поля оборудования
type ZarizeniInput struct {
	KodZarizeni   string `json:"kod_zarizeni" yaml:"kod"`
	NazevZarizeni string `json:"nazev_zarizeni" yaml:"nazev"`
	Umisteni      string `json:"umisteni" yaml:"umisteni"`
	TypZarizeni   string `json:"typ_zarizeni" yaml:"typ"`
}

func (in *ZarizeniInput) validate() error {
	in.KodZarizeni = strings.ToUpper(strings.TrimSpace(in.KodZarizeni))
	in.NazevZarizeni = strings.TrimSpace(in.NazevZarizeni)
	in.Umisteni = strings.TrimSpace(in.Umisteni)
	in.TypZarizeni = strings.TrimSpace(in.TypZarizeni)

	required := []struct {
		field string
		v     string
		n     int
	}{
		{"kod_zarizeni", in.KodZarizeni, 10},
		{"nazev_zarizeni", in.NazevZarizeni, 100},
		{"umisteni", in.Umisteni, 20},
		{"typ_zarizeni", in.TypZarizeni, 100},
	}
	for _, r := range required {
		if r.v == "" {
			return validationError(r.field, "povinné pole")
		}
		v := r.v
		if err := maxLen(r.field, &v, r.n); err != nil {
			return err
		}
	}
	return nil
}

// ZarizeniCatalog YAML каталог оборудования по умолчанию
type ZarizeniCatalog struct {
	Zarizeni []ZarizeniInput `yaml:"zarizeni"`
}

// ZarizeniService управляет оборудованием
type ZarizeniService struct {
	db *gorm.DB
}

// NewZarizeniService создает новый экземпляр ZarizeniService
func NewZarizeniService(db *gorm.DB) *ZarizeniService {
	return &ZarizeniService{db: db}
}

// GetAll возвращает оборудование, упорядоченное по коду
func (s *ZarizeniService) GetAll(ctx context.Context) ([]models.Zarizeni, error) {
	var list []models.Zarizeni
	if err := s.db.WithContext(ctx).Order("kod_zarizeni ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID получает оборудование по ID
func (s *ZarizeniService) GetByID(ctx context.Context, id string) (*models.Zarizeni, error) {
	var z models.Zarizeni
	if err := s.db.WithContext(ctx).First(&z, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "zařízení")
	}
	return &z, nil
}

// Create создает оборудование (код уникален)
func (s *ZarizeniService) Create(ctx context.Context, in ZarizeniInput) (*models.Zarizeni, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	z := models.Zarizeni{
		KodZarizeni:   in.KodZarizeni,
		NazevZarizeni: in.NazevZarizeni,
		Umisteni:      in.Umisteni,
		TypZarizeni:   in.TypZarizeni,
	}
	if err := s.db.WithContext(ctx).Create(&z).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: zařízení %s již existuje", ErrConflict, in.KodZarizeni)
		}
		return nil, err
	}
	return &z, nil
}

// Update обновляет оборудование
func (s *ZarizeniService) Update(ctx context.Context, id string, in ZarizeniInput) (*models.Zarizeni, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	z, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(z).Updates(map[string]interface{}{
		"kod_zarizeni":   in.KodZarizeni,
		"nazev_zarizeni": in.NazevZarizeni,
		"umisteni":       in.Umisteni,
		"typ_zarizeni":   in.TypZarizeni,
	}).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: zařízení %s již existuje", ErrConflict, in.KodZarizeni)
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete удаляет оборудование вместе с привязками к позициям.
// Журнал хранит код оборудования строкой и не меняется.
func (s *ZarizeniService) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Сначала привязки: у таблицы связки из AutoMigrate нет ON DELETE CASCADE
		if err := tx.Where("zarizeni_id = ?", id).Delete(&models.SkladZarizeni{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Zarizeni{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: zařízení", ErrNotFound)
		}
		return nil
	})
}

// LoadCatalog читает YAML каталог оборудования
func LoadCatalog(path string) (*ZarizeniCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog разбирает YAML каталог оборудования
func ParseCatalog(data []byte) (*ZarizeniCatalog, error) {
	var cat ZarizeniCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i := range cat.Zarizeni {
		if err := cat.Zarizeni[i].validate(); err != nil {
			return nil, fmt.Errorf("zarizeni[%d]: %w", i, err)
		}
	}
	return &cat, nil
}

// Seed добавляет оборудование из каталога; существующие коды не трогает.
// Возвращает число вставленных записей.
func (s *ZarizeniService) Seed(ctx context.Context, cat *ZarizeniCatalog) (int, error) {
	inserted := 0
	for _, in := range cat.Zarizeni {
		z := models.Zarizeni{
			KodZarizeni:   in.KodZarizeni,
			NazevZarizeni: in.NazevZarizeni,
			Umisteni:      in.Umisteni,
			TypZarizeni:   in.TypZarizeni,
		}
		res := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "kod_zarizeni"}}, DoNothing: true}).
			Create(&z)
		if res.Error != nil {
			return inserted, fmt.Errorf("seed %s: %w", in.KodZarizeni, res.Error)
		}
		inserted += int(res.RowsAffected)
	}
	log.Printf("✅ Каталог оборудования: добавлено %d из %d", inserted, len(cat.Zarizeni))
	return inserted, nil
}

//go:embed catalog/zarizeni.yaml
var defaultCatalogYAML []byte

// DefaultCatalog возвращает встроенный каталог оборудования
func DefaultCatalog() (*ZarizeniCatalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}
