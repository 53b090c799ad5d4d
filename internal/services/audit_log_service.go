package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hpmsklad/server/internal/models"

	"gorm.io/gorm"
)

var auditSortColumns = map[string]bool{
	"id":                  true,
	"evidencni_cislo":     true,
	"nazev_dilu":          true,
	"zmena_mnozstvi":      true,
	"mnozstvi":            true,
	"typ_operace":         true,
	"datum_vydeje":        true,
	"datum_nakupu":        true,
	"celkova_cena_eur":    true,
	"jednotkova_cena_eur": true,
	"cas_vytvoreni":       true,
}

// AuditLogFilter фильтры журнала
type AuditLogFilter struct {
	Query          string // nazev_dilu или dodavatel
	Ucetnictvi     *bool
	TypOperace     string
	TypUdrzby      string
	Month          int // 1..12, только вместе с Year
	Year           int
	EvidencniCislo uint
	Sort           string
	Order          string
	Page           int
}

// AuditLogPage страница журнала
type AuditLogPage struct {
	Items    []models.AuditLog `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Pages    int               `json:"pages"`
}

// AuditLogService чтение журнала движений (запись только через MovementService)
type AuditLogService struct {
	db       *gorm.DB
	pageSize int
}

// NewAuditLogService создает новый экземпляр AuditLogService
func NewAuditLogService(db *gorm.DB) *AuditLogService {
	return &AuditLogService{db: db, pageSize: DefaultPageSize}
}

// SetPageSize задает размер страницы
func (s *AuditLogService) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// Validate проверяет значения фильтра
func (f *AuditLogFilter) Validate() error {
	if (f.Month == 0) != (f.Year == 0) {
		return validationError("month", "měsíc a rok je nutné zadat společně")
	}
	if f.Month != 0 && (f.Month < 1 || f.Month > 12) {
		return validationError("month", "měsíc musí být 1 až 12")
	}
	if f.TypOperace != "" && !models.TypOperace(f.TypOperace).IsValid() {
		return validationError("typ_operace", "neznámý typ operace")
	}
	if f.TypUdrzby != "" && !models.TypUdrzby(f.TypUdrzby).IsValid() {
		return validationError("typ_udrzby", "neznámý typ údržby")
	}
	return nil
}

// apply добавляет условия фильтра к запросу
func (f *AuditLogFilter) apply(q *gorm.DB) *gorm.DB {
	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + query + "%"
		q = q.Where("(LOWER(nazev_dilu) LIKE LOWER(?) OR LOWER(dodavatel) LIKE LOWER(?))", like, like)
	}
	if f.Ucetnictvi != nil {
		q = q.Where("ucetnictvi = ?", *f.Ucetnictvi)
	}
	if f.TypOperace != "" {
		q = q.Where("typ_operace = ?", f.TypOperace)
	}
	if f.TypUdrzby != "" {
		q = q.Where("typ_udrzby = ?", f.TypUdrzby)
	}
	if f.EvidencniCislo != 0 {
		q = q.Where("evidencni_cislo = ?", f.EvidencniCislo)
	}
	if f.Month != 0 && f.Year != 0 {
		from := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		q = q.Where("(datum_vydeje >= ? AND datum_vydeje < ?) OR (datum_nakupu >= ? AND datum_nakupu < ?)",
			from, to, from, to)
	}
	return q
}

// List возвращает страницу журнала
func (s *AuditLogService) List(ctx context.Context, f AuditLogFilter) (*AuditLogPage, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	q := f.apply(s.db.WithContext(ctx).Model(&models.AuditLog{})).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("ошибка подсчета журнала: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	var items []models.AuditLog
	err := q.Order(orderClause(f.Sort, f.Order, auditSortColumns, "id")).
		Limit(s.pageSize).Offset((page - 1) * s.pageSize).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки журнала: %w", err)
	}

	return &AuditLogPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: s.pageSize,
		Pages:    pages(total, s.pageSize),
	}, nil
}

// All возвращает весь отфильтрованный журнал (экспорт, графики)
func (s *AuditLogService) All(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var items []models.AuditLog
	err := f.apply(s.db.WithContext(ctx).Model(&models.AuditLog{})).
		Order(orderClause(f.Sort, f.Order, auditSortColumns, "id")).
		Find(&items).Error
	return items, err
}

// GetByID возвращает запись журнала
func (s *AuditLogService) GetByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	var entry models.AuditLog
	if err := s.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("záznam %d", id))
	}
	return &entry, nil
}
