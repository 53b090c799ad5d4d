package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"hpmsklad/server/internal/models"

	"gorm.io/gorm"
)

// PoptavkaFilter параметры списка запросов
type PoptavkaFilter struct {
	Stav        models.StavPoptavky
	DodavatelID string
}

// PolozkaInput строка запроса
type PolozkaInput struct {
	VariantaID string `json:"varianta_id"`
	Mnozstvi   int    `json:"mnozstvi"`
}

// PoptavkaService управляет запросами поставщикам
type PoptavkaService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPoptavkaService создает новый экземпляр PoptavkaService
func NewPoptavkaService(db *gorm.DB) *PoptavkaService {
	return &PoptavkaService{db: db, now: time.Now}
}

// List возвращает запросы, новые сверху
func (s *PoptavkaService) List(ctx context.Context, f PoptavkaFilter) ([]models.Poptavka, error) {
	q := s.db.WithContext(ctx).Model(&models.Poptavka{}).Preload("Dodavatel")
	if f.Stav != "" {
		if !f.Stav.IsValid() {
			return nil, validationError("stav", "neplatný stav")
		}
		q = q.Where("stav = ?", f.Stav)
	}
	if f.DodavatelID != "" {
		q = q.Where("dodavatel_id = ?", f.DodavatelID)
	}
	var list []models.Poptavka
	if err := q.Order("cislo DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID получает запрос со строками, вариантами и позициями склада
func (s *PoptavkaService) GetByID(ctx context.Context, id string) (*models.Poptavka, error) {
	return s.getByID(s.db.WithContext(ctx), id)
}

func (s *PoptavkaService) getByID(db *gorm.DB, id string) (*models.Poptavka, error) {
	var p models.Poptavka
	err := db.
		Preload("Dodavatel").
		Preload("Polozky", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Polozky.Varianta").
		Preload("Polozky.Varianta.Sklad").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "poptávka")
	}
	return &p, nil
}

// nextCislo следующий номер запроса (max + 1)
func nextCislo(tx *gorm.DB) (uint, error) {
	var last sql.NullInt64
	if err := tx.Model(&models.Poptavka{}).Select("MAX(cislo)").Row().Scan(&last); err != nil {
		return 0, err
	}
	if !last.Valid {
		return 1, nil
	}
	return uint(last.Int64) + 1, nil
}

// loadVarianta проверяет, что варианта принадлежит поставщику запроса
func loadVarianta(tx *gorm.DB, variantaID, dodavatelID string) (*models.Varianta, error) {
	var v models.Varianta
	if err := tx.Preload("Sklad").First(&v, "id = ?", variantaID).Error; err != nil {
		return nil, notFoundOr(err, "varianta")
	}
	if v.DodavatelID != dodavatelID {
		return nil, validationError("varianta_id", "varianta nepatří dodavateli poptávky")
	}
	if v.Sklad == nil {
		return nil, notFoundOr(gorm.ErrRecordNotFound, fmt.Sprintf("položka %d", v.SkladID))
	}
	return &v, nil
}

func newPolozka(poptavkaID string, v *models.Varianta, mnozstvi int) (*models.PoptavkaVarianta, error) {
	if mnozstvi <= 0 {
		return nil, validationError("mnozstvi", "musí být kladné číslo")
	}
	return &models.PoptavkaVarianta{
		PoptavkaID: poptavkaID,
		VariantaID: v.ID,
		Mnozstvi:   mnozstvi,
		Jednotky:   v.Sklad.Jednotky,
	}, nil
}

// Create создает черновик запроса для поставщика с необязательными строками
func (s *PoptavkaService) Create(ctx context.Context, dodavatelID string, polozky []PolozkaInput, actor Actor) (*models.Poptavka, error) {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	p, err := s.createDraft(tx, dodavatelID, actor)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	seen := make(map[string]bool, len(polozky))
	for _, in := range polozky {
		if seen[in.VariantaID] {
			tx.Rollback()
			return nil, validationError("varianta_id", "varianta je v poptávce vícekrát")
		}
		seen[in.VariantaID] = true

		v, err := loadVarianta(tx, in.VariantaID, p.DodavatelID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		line, err := newPolozka(p.ID, v, in.Mnozstvi)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Create(line).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("ошибка создания строки запроса: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	log.Printf("✅ Poptávka #%d vytvořena (dodavatel %s, %d položek)", p.Cislo, p.DodavatelID, len(polozky))
	return s.GetByID(ctx, p.ID)
}

func (s *PoptavkaService) createDraft(tx *gorm.DB, dodavatelID string, actor Actor) (*models.Poptavka, error) {
	var d models.Dodavatel
	if err := tx.First(&d, "id = ?", dodavatelID).Error; err != nil {
		return nil, notFoundOr(err, "dodavatel")
	}
	cislo, err := nextCislo(tx)
	if err != nil {
		return nil, err
	}
	p := &models.Poptavka{
		Cislo:          cislo,
		DodavatelID:    d.ID,
		DatumVytvoreni: s.now(),
		Stav:           models.StavPoptavkyTvorba,
		VytvorilID:     actor.UserID,
	}
	if err := tx.Create(p).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	return p, nil
}

// generateRow позиция ниже минимума с вариантой поставщика
type generateRow struct {
	VariantaID     string
	Mnozstvi       int
	MinMnozstviKs  int
	MinObjMnozstvi int
}

// orderQuantity количество для дозаказа: не меньше минимальной партии
func orderQuantity(mnozstvi, minimum, minObj int) int {
	need := minimum - mnozstvi
	if minObj > need {
		return minObj
	}
	return need
}

// Generate создает черновик из всех позиций ниже минимума, у которых есть
// варианта этого поставщика
func (s *PoptavkaService) Generate(ctx context.Context, dodavatelID string, actor Actor) (*models.Poptavka, error) {
	db := s.db.WithContext(ctx)

	var rows []generateRow
	err := db.Table("varianty").
		Select("varianty.id AS varianta_id, sklad.mnozstvi, sklad.min_mnozstvi_ks, varianty.min_obj_mnozstvi").
		Joins("JOIN sklad ON sklad.evidencni_cislo = varianty.sklad_id").
		Where("varianty.dodavatel_id = ?", dodavatelID).
		Where("sklad.deleted_at IS NULL").
		Where("sklad.mnozstvi < sklad.min_mnozstvi_ks").
		Order("sklad.evidencni_cislo ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// Различаем неизвестного поставщика и пустой результат
		var d models.Dodavatel
		if err := db.First(&d, "id = ?", dodavatelID).Error; err != nil {
			return nil, notFoundOr(err, "dodavatel")
		}
		return nil, ErrNothingToRequest
	}

	polozky := make([]PolozkaInput, 0, len(rows))
	for _, r := range rows {
		polozky = append(polozky, PolozkaInput{
			VariantaID: r.VariantaID,
			Mnozstvi:   orderQuantity(r.Mnozstvi, r.MinMnozstviKs, r.MinObjMnozstvi),
		})
	}
	return s.Create(ctx, dodavatelID, polozky, actor)
}

// loadTvorba загружает запрос и проверяет, что он еще редактируется
func loadTvorba(tx *gorm.DB, id string) (*models.Poptavka, error) {
	var p models.Poptavka
	if err := tx.First(&p, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "poptávka")
	}
	if !p.IsTvorba() {
		return nil, fmt.Errorf("%w: poptávka #%d je ve stavu %s", ErrInvalidTransition, p.Cislo, p.Stav)
	}
	return &p, nil
}

// AddPolozka добавляет строку в черновик
func (s *PoptavkaService) AddPolozka(ctx context.Context, id string, in PolozkaInput) (*models.PoptavkaVarianta, error) {
	var line *models.PoptavkaVarianta
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadTvorba(tx, id)
		if err != nil {
			return err
		}
		v, err := loadVarianta(tx, in.VariantaID, p.DodavatelID)
		if err != nil {
			return err
		}
		line, err = newPolozka(p.ID, v, in.Mnozstvi)
		if err != nil {
			return err
		}
		if err := tx.Create(line).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: varianta už je v poptávce", ErrConflict)
			}
			return err
		}
		line.Varianta = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// UpdatePolozka меняет количество в строке черновика
func (s *PoptavkaService) UpdatePolozka(ctx context.Context, id, polozkaID string, mnozstvi int) (*models.PoptavkaVarianta, error) {
	if mnozstvi <= 0 {
		return nil, validationError("mnozstvi", "musí být kladné číslo")
	}
	var line models.PoptavkaVarianta
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadTvorba(tx, id); err != nil {
			return err
		}
		if err := tx.First(&line, "id = ? AND poptavka_id = ?", polozkaID, id).Error; err != nil {
			return notFoundOr(err, "položka poptávky")
		}
		line.Mnozstvi = mnozstvi
		return tx.Model(&line).Update("mnozstvi", mnozstvi).Error
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// RemovePolozka удаляет строку из черновика
func (s *PoptavkaService) RemovePolozka(ctx context.Context, id, polozkaID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadTvorba(tx, id); err != nil {
			return err
		}
		res := tx.Where("id = ? AND poptavka_id = ?", polozkaID, id).Delete(&models.PoptavkaVarianta{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundOr(gorm.ErrRecordNotFound, "položka poptávky")
		}
		return nil
	})
}

// transition переводит запрос в следующий статус
func (s *PoptavkaService) transition(ctx context.Context, id string, next models.StavPoptavky) (*models.Poptavka, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Poptavka
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "poptávka")
		}
		if !p.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, p.Stav, next)
		}

		now := s.now()
		updates := map[string]interface{}{"stav": next}
		switch next {
		case models.StavPoptavkyPoptano:
			var lines int64
			if err := tx.Model(&models.PoptavkaVarianta{}).Where("poptavka_id = ?", id).Count(&lines).Error; err != nil {
				return err
			}
			if lines == 0 {
				return fmt.Errorf("%w: poptávka nemá žádné položky", ErrInvalidTransition)
			}
			updates["datum_odeslani"] = now
		case models.StavPoptavkyUzavreno:
			updates["datum_uzavreni"] = now
		}
		// Условие по статусу защищает от параллельного перехода
		res := tx.Model(&models.Poptavka{}).Where("id = ? AND stav = ?", id, p.Stav).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: stav se mezitím změnil", ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("📦 Poptávka %s → %s", id, next)
	return s.GetByID(ctx, id)
}

// Odeslat Tvorba → Poptáno
func (s *PoptavkaService) Odeslat(ctx context.Context, id string) (*models.Poptavka, error) {
	return s.transition(ctx, id, models.StavPoptavkyPoptano)
}

// Uzavrit Poptáno → Uzavřeno
func (s *PoptavkaService) Uzavrit(ctx context.Context, id string) (*models.Poptavka, error) {
	return s.transition(ctx, id, models.StavPoptavkyUzavreno)
}

// Delete удаляет черновик со строками
func (s *PoptavkaService) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadTvorba(tx, id); err != nil {
			return err
		}
		if err := tx.Where("poptavka_id = ?", id).Delete(&models.PoptavkaVarianta{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Poptavka{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	log.Printf("🗑️ Poptávka %s smazána", id)
	return nil
}
