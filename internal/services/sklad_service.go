package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/utils"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 24
	skladCacheTTL   = 10 * time.Minute
)

// skladSortColumns допустимые колонки сортировки списка склада
var skladSortColumns = map[string]bool{
	"evidencni_cislo":     true,
	"interne_cislo":       true,
	"nazev_dilu":          true,
	"mnozstvi":            true,
	"min_mnozstvi_ks":     true,
	"umisteni":            true,
	"dodavatel":           true,
	"datum_nakupu":        true,
	"jednotkova_cena_eur": true,
	"celkova_cena_eur":    true,
}

// SkladFilter параметры списка склада
type SkladFilter struct {
	Query       string
	KritickyDil *bool
	Ucetnictvi  *bool
	PodMinimem  *bool
	Zarizeni    string // Код оборудования
	Sort        string
	Order       string // up | down
	Page        int
}

// SkladPage страница списка склада
type SkladPage struct {
	Items    []models.Sklad `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Pages    int            `json:"pages"`
}

// SkladInput поля карточки для создания и изменения
type SkladInput struct {
	InterneCislo      *int     `json:"interne_cislo"`
	Objednano         *string  `json:"objednano"`
	NazevDilu         string   `json:"nazev_dilu"`
	MinMnozstviKs     int      `json:"min_mnozstvi_ks"`
	Mnozstvi          int      `json:"mnozstvi"`
	Jednotky          string   `json:"jednotky"`
	Umisteni          *string  `json:"umisteni"`
	Dodavatel         *string  `json:"dodavatel"`
	DatumNakupu       *string  `json:"datum_nakupu"`
	CisloObjednavky   *string  `json:"cislo_objednavky"`
	JednotkovaCenaEur float64  `json:"jednotkova_cena_eur"`
	Poznamka          *string  `json:"poznamka"`
	Ucetnictvi        *bool    `json:"ucetnictvi"`
	KritickyDil       bool     `json:"kriticky_dil"`
	Zarizeni          []string `json:"zarizeni"` // Коды оборудования
}

// SkladService управляет карточками склада
type SkladService struct {
	db       *gorm.DB
	redis    *utils.RedisClient
	pageSize int
	now      func() time.Time
}

// NewSkladService создает новый экземпляр SkladService
func NewSkladService(db *gorm.DB) *SkladService {
	return &SkladService{db: db, pageSize: DefaultPageSize, now: time.Now}
}

// SetRedis включает кэш карточек и множество позиций под минимумом
func (s *SkladService) SetRedis(r *utils.RedisClient) {
	s.redis = r
}

// SetPageSize задает размер страницы списка
func (s *SkladService) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

func cacheKey(id uint) string {
	return utils.KeySkladItemPrefix + strconv.FormatUint(uint64(id), 10)
}

// InvalidateCache удаляет карточку из кэша
func (s *SkladService) InvalidateCache(id uint) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Delete(cacheKey(id)); err != nil {
		log.Printf("⚠️ Не удалось сбросить кэш položky %d: %v", id, err)
	}
}

// filtered строит запрос склада по фильтру
func (s *SkladService) filtered(ctx context.Context, f SkladFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Sklad{})

	if query := strings.TrimSpace(f.Query); query != "" {
		q = q.Where("LOWER(nazev_dilu) LIKE LOWER(?)", "%"+query+"%")
	}
	if f.KritickyDil != nil {
		q = q.Where("kriticky_dil = ?", *f.KritickyDil)
	}
	if f.Ucetnictvi != nil {
		q = q.Where("ucetnictvi = ?", *f.Ucetnictvi)
	}
	if f.PodMinimem != nil {
		if *f.PodMinimem {
			q = q.Where("mnozstvi < min_mnozstvi_ks")
		} else {
			q = q.Where("mnozstvi >= min_mnozstvi_ks")
		}
	}
	if kod := strings.TrimSpace(f.Zarizeni); kod != "" {
		q = q.Where("evidencni_cislo IN (?)", s.db.Table("sklad_zarizeni").
			Select("sklad_zarizeni.sklad_id").
			Joins("JOIN zarizeni ON zarizeni.id = sklad_zarizeni.zarizeni_id").
			Where("zarizeni.kod_zarizeni = ?", kod))
	}
	return q.Session(&gorm.Session{})
}

// List возвращает страницу склада с фильтрами
func (s *SkladService) List(ctx context.Context, f SkladFilter) (*SkladPage, error) {
	q := s.filtered(ctx, f)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("ошибка подсчета склада: %w", err)
	}

	page, offset := s.paginate(f.Page)
	var items []models.Sklad
	err := q.Preload("Zarizeni").
		Order(orderClause(f.Sort, f.Order, skladSortColumns, "evidencni_cislo")).
		Limit(s.pageSize).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки склада: %w", err)
	}

	return &SkladPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: s.pageSize,
		Pages:    pages(total, s.pageSize),
	}, nil
}

// All возвращает все позиции по фильтру без пагинации (экспорт)
func (s *SkladService) All(ctx context.Context, f SkladFilter) ([]models.Sklad, error) {
	var items []models.Sklad
	err := s.filtered(ctx, f).Preload("Zarizeni").
		Order(orderClause(f.Sort, f.Order, skladSortColumns, "evidencni_cislo")).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки склада: %w", err)
	}
	return items, nil
}

func (s *SkladService) paginate(page int) (int, int) {
	if page < 1 {
		page = 1
	}
	return page, (page - 1) * s.pageSize
}

func pages(total int64, size int) int {
	if size <= 0 || total == 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}

// orderClause строит ORDER BY по белому списку; по умолчанию def DESC.
// Вторичная сортировка по def делает страницы стабильными.
func orderClause(sort, order string, allowed map[string]bool, def string) string {
	dir := "DESC"
	if strings.EqualFold(order, "up") || strings.EqualFold(order, "asc") {
		dir = "ASC"
	}
	col := def
	if allowed[sort] {
		col = sort
	}
	if col == def {
		return col + " " + dir
	}
	return col + " " + dir + ", " + def + " DESC"
}

// GetByID возвращает карточку с оборудованием и вариантами (через кэш Redis)
func (s *SkladService) GetByID(ctx context.Context, id uint) (*models.Sklad, error) {
	if s.redis != nil {
		var cached models.Sklad
		if err := s.redis.GetJSON(cacheKey(id), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, utils.ErrCacheMiss) {
			log.Printf("⚠️ Redis недоступен для položky %d: %v", id, err)
		}
	}

	var item models.Sklad
	err := s.db.WithContext(ctx).
		Preload("Zarizeni").
		Preload("Varianty.Dodavatel").
		First(&item, "evidencni_cislo = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("položka %d", id))
	}

	if s.redis != nil {
		if err := s.redis.Set(cacheKey(id), &item, skladCacheTTL); err != nil {
			log.Printf("⚠️ Не удалось закэшировать položku %d: %v", id, err)
		}
	}
	return &item, nil
}

// NextInterneCislo возвращает следующее číslo karty (max + 1)
func (s *SkladService) NextInterneCislo(ctx context.Context) (int, error) {
	return nextInterneCislo(s.db.WithContext(ctx))
}

// nextInterneCislo учитывает и удаленные карточки, номера не переиспользуются
func nextInterneCislo(db *gorm.DB) (int, error) {
	var max sql.NullInt64
	if err := db.Unscoped().Model(&models.Sklad{}).Select("MAX(interne_cislo)").Row().Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

func maxLen(field string, v *string, n int) error {
	if v != nil && len([]rune(*v)) > n {
		return validationError(field, fmt.Sprintf("maximálně %d znaků", n))
	}
	return nil
}

func (in *SkladInput) validate() error {
	in.NazevDilu = strings.TrimSpace(in.NazevDilu)
	if in.NazevDilu == "" {
		return validationError("nazev_dilu", "povinné pole")
	}
	if err := maxLen("nazev_dilu", &in.NazevDilu, 100); err != nil {
		return err
	}
	if in.MinMnozstviKs < 0 {
		return validationError("min_mnozstvi_ks", "nesmí být záporné")
	}
	if in.Mnozstvi < 0 {
		return validationError("mnozstvi", "nesmí být záporné")
	}
	if in.JednotkovaCenaEur < 0 {
		return validationError("jednotkova_cena_eur", "nesmí být záporná")
	}
	if in.Jednotky == "" {
		in.Jednotky = string(models.JednotkyKus)
	}
	if !models.Jednotky(in.Jednotky).IsValid() {
		return validationError("jednotky", "neznámá jednotka")
	}
	checks := []struct {
		field string
		v     *string
		n     int
	}{
		{"objednano", in.Objednano, 100},
		{"umisteni", in.Umisteni, 25},
		{"dodavatel", in.Dodavatel, 70},
		{"cislo_objednavky", in.CisloObjednavky, 20},
		{"poznamka", in.Poznamka, 200},
	}
	for _, c := range checks {
		if err := maxLen(c.field, c.v, c.n); err != nil {
			return err
		}
	}
	return nil
}

func (s *SkladService) findZarizeni(tx *gorm.DB, kody []string) ([]models.Zarizeni, error) {
	if len(kody) == 0 {
		return []models.Zarizeni{}, nil
	}
	var list []models.Zarizeni
	if err := tx.Where("kod_zarizeni IN ?", kody).Find(&list).Error; err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(list))
	for _, z := range list {
		found[z.KodZarizeni] = true
	}
	for _, k := range kody {
		if !found[k] {
			return nil, validationError("zarizeni", fmt.Sprintf("neznámé zařízení %q", k))
		}
	}
	return list, nil
}

// Create создает карточку. Количество и цены по умолчанию нулевые.
func (s *SkladService) Create(ctx context.Context, in SkladInput) (*models.Sklad, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	item := models.Sklad{
		InterneCislo:      in.InterneCislo,
		Objednano:         optionalString(in.Objednano),
		NazevDilu:         in.NazevDilu,
		MinMnozstviKs:     in.MinMnozstviKs,
		Mnozstvi:          in.Mnozstvi,
		Jednotky:          models.Jednotky(in.Jednotky),
		Umisteni:          optionalString(in.Umisteni),
		Dodavatel:         optionalString(in.Dodavatel),
		CisloObjednavky:   optionalString(in.CisloObjednavky),
		JednotkovaCenaEur: round2(money(in.JednotkovaCenaEur)).InexactFloat64(),
		CelkovaCenaEur:    round2(money(in.JednotkovaCenaEur).Mul(money(float64(in.Mnozstvi)))).InexactFloat64(),
		Poznamka:          optionalString(in.Poznamka),
		Ucetnictvi:        true,
		KritickyDil:       in.KritickyDil,
	}
	if in.Ucetnictvi != nil {
		item.Ucetnictvi = *in.Ucetnictvi
	}
	if in.DatumNakupu != nil && strings.TrimSpace(*in.DatumNakupu) != "" {
		d, err := parseDate("datum_nakupu", *in.DatumNakupu, s.now())
		if err != nil {
			return nil, err
		}
		item.DatumNakupu = &d
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if item.InterneCislo == nil {
		next, err := nextInterneCislo(tx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		item.InterneCislo = &next
	}

	zarizeni, err := s.findZarizeni(tx, in.Zarizeni)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	item.Zarizeni = zarizeni

	if err := tx.Create(&item).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка создания položky: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	item.PodMinimem = item.IsPodMinimem()
	log.Printf("✅ Создана položka %s", item.String())
	return &item, nil
}

// Update меняет описательные поля карточки. Количество и цены меняются только движениями.
func (s *SkladService) Update(ctx context.Context, id uint, in SkladInput) (*models.Sklad, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var item models.Sklad
	if err := s.db.WithContext(ctx).First(&item, "evidencni_cislo = ?", id).Error; err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("položka %d", id))
	}

	updates := map[string]interface{}{
		"objednano":        optionalString(in.Objednano),
		"nazev_dilu":       in.NazevDilu,
		"min_mnozstvi_ks":  in.MinMnozstviKs,
		"jednotky":         in.Jednotky,
		"umisteni":         optionalString(in.Umisteni),
		"dodavatel":        optionalString(in.Dodavatel),
		"cislo_objednavky": optionalString(in.CisloObjednavky),
		"poznamka":         optionalString(in.Poznamka),
		"kriticky_dil":     in.KritickyDil,
	}
	if in.InterneCislo != nil {
		updates["interne_cislo"] = *in.InterneCislo
	}
	if in.Ucetnictvi != nil {
		updates["ucetnictvi"] = *in.Ucetnictvi
	}
	if in.DatumNakupu != nil {
		if strings.TrimSpace(*in.DatumNakupu) == "" {
			updates["datum_nakupu"] = nil
		} else {
			d, err := parseDate("datum_nakupu", *in.DatumNakupu, s.now())
			if err != nil {
				return nil, err
			}
			updates["datum_nakupu"] = d
		}
	}

	if err := s.db.WithContext(ctx).Model(&item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("ошибка обновления položky %d: %w", id, err)
	}
	if in.Zarizeni != nil {
		if _, err := s.SetZarizeni(ctx, id, in.Zarizeni); err != nil {
			return nil, err
		}
	}

	s.InvalidateCache(id)
	return s.GetByID(ctx, id)
}

// UpdateObjednano меняет только поле "Objednáno?"
func (s *SkladService) UpdateObjednano(ctx context.Context, id uint, objednano *string) (*models.Sklad, error) {
	if err := maxLen("objednano", objednano, 100); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.Sklad{}).
		Where("evidencni_cislo = ?", id).
		Update("objednano", optionalString(objednano))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: položka %d", ErrNotFound, id)
	}
	s.InvalidateCache(id)
	return s.GetByID(ctx, id)
}

// SetZarizeni заменяет список оборудования карточки
func (s *SkladService) SetZarizeni(ctx context.Context, id uint, kody []string) (*models.Sklad, error) {
	db := s.db.WithContext(ctx)
	var item models.Sklad
	if err := db.First(&item, "evidencni_cislo = ?", id).Error; err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("položka %d", id))
	}
	list, err := s.findZarizeni(db, kody)
	if err != nil {
		return nil, err
	}
	if err := db.Model(&item).Association("Zarizeni").Replace(list); err != nil {
		return nil, fmt.Errorf("ошибка привязки оборудования: %w", err)
	}
	s.InvalidateCache(id)
	return s.GetByID(ctx, id)
}

// Delete мягко удаляет карточку; журнал движений остается
func (s *SkladService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Sklad{}, "evidencni_cislo = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: položka %d", ErrNotFound, id)
	}
	s.InvalidateCache(id)
	log.Printf("🗑️ Položka %d smazána (soft delete)", id)
	return nil
}

// PodMinimem возвращает все позиции под минимумом
func (s *SkladService) PodMinimem(ctx context.Context) ([]models.Sklad, error) {
	var items []models.Sklad
	err := s.db.WithContext(ctx).
		Where("mnozstvi < min_mnozstvi_ks").
		Order("kriticky_dil DESC, evidencni_cislo ASC").
		Find(&items).Error
	return items, err
}

// CheckPodMinimem пересчитывает позиции под минимумом и сохраняет их в Redis.
// Возвращает позиции, которые попали под минимум с прошлой проверки.
func (s *SkladService) CheckPodMinimem(ctx context.Context) (all []models.Sklad, added []models.Sklad, err error) {
	all, err = s.PodMinimem(ctx)
	if err != nil {
		return nil, nil, err
	}
	if s.redis == nil {
		return all, nil, nil
	}

	previous, err := s.redis.SMembers(utils.KeyPodMinimem)
	if err != nil {
		log.Printf("⚠️ Не удалось прочитать %s: %v", utils.KeyPodMinimem, err)
	}
	seen := make(map[string]bool, len(previous))
	for _, id := range previous {
		seen[id] = true
	}

	ids := make([]string, 0, len(all))
	for _, item := range all {
		id := strconv.FormatUint(uint64(item.EvidencniCislo), 10)
		ids = append(ids, id)
		if !seen[id] {
			added = append(added, item)
		}
	}
	if err := s.redis.ReplaceSet(utils.KeyPodMinimem, ids); err != nil {
		return all, added, fmt.Errorf("ошибка записи %s: %w", utils.KeyPodMinimem, err)
	}
	return all, added, nil
}
