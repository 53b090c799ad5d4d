package services

import (
	"context"
	"fmt"
	"strings"

	"hpmsklad/server/internal/models"

	"gorm.io/gorm"
)

// VariantaInput поля варианты
type VariantaInput struct {
	DodavatelID       string  `json:"dodavatel_id"`
	NazevVarianty     string  `json:"nazev_varianty"`
	CisloVarianty     *string `json:"cislo_varianty"`
	JednotkovaCenaEur float64 `json:"jednotkova_cena_eur"`
	DodaciLhuta       int     `json:"dodaci_lhuta"`
	MinObjMnozstvi    int     `json:"min_obj_mnozstvi"`
}

func (in *VariantaInput) validate() error {
	in.NazevVarianty = strings.TrimSpace(in.NazevVarianty)
	if in.NazevVarianty == "" {
		return validationError("nazev_varianty", "povinné pole")
	}
	if err := maxLen("nazev_varianty", &in.NazevVarianty, 255); err != nil {
		return err
	}
	if err := maxLen("cislo_varianty", in.CisloVarianty, 255); err != nil {
		return err
	}
	if in.JednotkovaCenaEur < 0 {
		return validationError("jednotkova_cena_eur", "nesmí být záporná")
	}
	if in.DodaciLhuta < 0 {
		return validationError("dodaci_lhuta", "nesmí být záporná")
	}
	if in.MinObjMnozstvi < 0 {
		return validationError("min_obj_mnozstvi", "nesmí být záporné")
	}
	return nil
}

// VariantaService управляет вариантами поставщиков по позициям
type VariantaService struct {
	db           *gorm.DB
	skladService *SkladService
}

// NewVariantaService создает новый экземпляр VariantaService
func NewVariantaService(db *gorm.DB) *VariantaService {
	return &VariantaService{db: db}
}

// SetSkladService устанавливает сервис склада (сброс кэша карточки)
func (s *VariantaService) SetSkladService(ss *SkladService) {
	s.skladService = ss
}

func (s *VariantaService) invalidate(skladID uint) {
	if s.skladService != nil {
		s.skladService.InvalidateCache(skladID)
	}
}

// ListBySklad возвращает варианты позиции с поставщиками
func (s *VariantaService) ListBySklad(ctx context.Context, skladID uint) ([]models.Varianta, error) {
	var list []models.Varianta
	err := s.db.WithContext(ctx).
		Preload("Dodavatel").
		Where("sklad_id = ?", skladID).
		Order("jednotkova_cena_eur ASC").
		Find(&list).Error
	return list, err
}

// GetByID получает варианту с поставщиком
func (s *VariantaService) GetByID(ctx context.Context, id string) (*models.Varianta, error) {
	var v models.Varianta
	if err := s.db.WithContext(ctx).Preload("Dodavatel").First(&v, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "varianta")
	}
	return &v, nil
}

// Create создает варианту для пары позиция + поставщик (не более одной)
func (s *VariantaService) Create(ctx context.Context, skladID uint, in VariantaInput) (*models.Varianta, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.DodavatelID) == "" {
		return nil, validationError("dodavatel_id", "povinné pole")
	}
	db := s.db.WithContext(ctx)

	var item models.Sklad
	if err := db.First(&item, "evidencni_cislo = ?", skladID).Error; err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("položka %d", skladID))
	}
	var d models.Dodavatel
	if err := db.First(&d, "id = ?", in.DodavatelID).Error; err != nil {
		return nil, notFoundOr(err, "dodavatel")
	}

	var existing int64
	if err := db.Model(&models.Varianta{}).
		Where("sklad_id = ? AND dodavatel_id = ?", skladID, d.ID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: %s", ErrVariantaExists, d.Dodavatel)
	}

	v := models.Varianta{
		SkladID:           skladID,
		DodavatelID:       d.ID,
		NazevVarianty:     in.NazevVarianty,
		CisloVarianty:     optionalString(in.CisloVarianty),
		JednotkovaCenaEur: round2(money(in.JednotkovaCenaEur)).InexactFloat64(),
		DodaciLhuta:       in.DodaciLhuta,
		MinObjMnozstvi:    in.MinObjMnozstvi,
	}
	if err := db.Create(&v).Error; err != nil {
		// Параллельное создание упирается в уникальный индекс
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrVariantaExists, d.Dodavatel)
		}
		return nil, err
	}
	v.Dodavatel = &d
	s.invalidate(skladID)
	return &v, nil
}

// Update меняет цену, срок, минимальную партию, название и номер.
// Поставщик и позиция варианты не меняются.
func (s *VariantaService) Update(ctx context.Context, id string, in VariantaInput) (*models.Varianta, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	v, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&models.Varianta{}).Where("id = ?", id).Updates(map[string]interface{}{
		"nazev_varianty":      in.NazevVarianty,
		"cislo_varianty":      optionalString(in.CisloVarianty),
		"jednotkova_cena_eur": round2(money(in.JednotkovaCenaEur)).InexactFloat64(),
		"dodaci_lhuta":        in.DodaciLhuta,
		"min_obj_mnozstvi":    in.MinObjMnozstvi,
	}).Error
	if err != nil {
		return nil, err
	}
	s.invalidate(v.SkladID)
	return s.GetByID(ctx, id)
}

// Delete удаляет варианту вместе со строками запросов, которые на нее ссылаются
func (s *VariantaService) Delete(ctx context.Context, id string) error {
	v, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("varianta_id = ?", id).Delete(&models.PoptavkaVarianta{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Varianta{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(v.SkladID)
	return nil
}
