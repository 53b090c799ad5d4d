package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StavPoptavky представляет статус запроса поставщику
type StavPoptavky string

const (
	StavPoptavkyTvorba   StavPoptavky = "Tvorba"   // Черновик (ve tvorbě)
	StavPoptavkyPoptano  StavPoptavky = "Poptáno"  // Отправлен поставщику
	StavPoptavkyUzavreno StavPoptavky = "Uzavřeno" // Закрыт
)

// IsValid проверяет статус
func (s StavPoptavky) IsValid() bool {
	switch s {
	case StavPoptavkyTvorba, StavPoptavkyPoptano, StavPoptavkyUzavreno:
		return true
	}
	return false
}

// Poptavka представляет запрос цен/поставки у одного поставщика
type Poptavka struct {
	ID             string       `json:"id" gorm:"type:uuid;primaryKey"`
	Cislo          uint         `json:"cislo" gorm:"not null;default:0;index"` // Человекочитаемый номер
	DodavatelID    string       `json:"dodavatel_id" gorm:"type:uuid;not null;index"`
	Dodavatel      *Dodavatel   `json:"dodavatel,omitempty" gorm:"foreignKey:DodavatelID"`
	DatumVytvoreni time.Time    `json:"datum_vytvoreni" gorm:"autoCreateTime;index"`
	Stav           StavPoptavky `json:"stav" gorm:"type:varchar(10);not null;default:'Tvorba';index"`
	DatumOdeslani  *time.Time   `json:"datum_odeslani"`
	DatumUzavreni  *time.Time   `json:"datum_uzavreni"`
	VytvorilID     *string      `json:"vytvoril_id" gorm:"type:uuid"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"autoUpdateTime"`

	// Relations
	Polozky []PoptavkaVarianta `json:"polozky,omitempty" gorm:"foreignKey:PoptavkaID"`
}

// TableName указывает имя таблицы
func (Poptavka) TableName() string {
	return "poptavky"
}

// BeforeCreate генерирует UUID и статус по умолчанию
func (p *Poptavka) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Stav == "" {
		p.Stav = StavPoptavkyTvorba
	}
	return nil
}

// IsTvorba проверяет, что запрос еще редактируется
func (p *Poptavka) IsTvorba() bool {
	return p.Stav == StavPoptavkyTvorba
}

// IsPoptano проверяет, что запрос отправлен
func (p *Poptavka) IsPoptano() bool {
	return p.Stav == StavPoptavkyPoptano
}

// IsUzavreno проверяет, что запрос закрыт
func (p *Poptavka) IsUzavreno() bool {
	return p.Stav == StavPoptavkyUzavreno
}

// CanTransitionTo проверяет допустимость перехода статуса
func (p *Poptavka) CanTransitionTo(next StavPoptavky) bool {
	switch p.Stav {
	case StavPoptavkyTvorba:
		return next == StavPoptavkyPoptano
	case StavPoptavkyPoptano:
		return next == StavPoptavkyUzavreno
	}
	return false
}

func (p *Poptavka) String() string {
	name := ""
	if p.Dodavatel != nil {
		name = p.Dodavatel.Dodavatel
	}
	return fmt.Sprintf("Poptávka #%d u dodavatele: %s", p.Cislo, name)
}

// PoptavkaVarianta строка запроса: вариант и количество
type PoptavkaVarianta struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	PoptavkaID string    `json:"poptavka_id" gorm:"type:uuid;not null;uniqueIndex:idx_poptavka_varianta"`
	Poptavka   *Poptavka `json:"-" gorm:"foreignKey:PoptavkaID"`
	VariantaID string    `json:"varianta_id" gorm:"type:uuid;not null;uniqueIndex:idx_poptavka_varianta"`
	Varianta   *Varianta `json:"varianta,omitempty" gorm:"foreignKey:VariantaID"`
	Mnozstvi   int       `json:"mnozstvi" gorm:"not null"`
	Jednotky   Jednotky  `json:"jednotky" gorm:"type:varchar(10);not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName указывает имя таблицы
func (PoptavkaVarianta) TableName() string {
	return "poptavka_varianty"
}

// BeforeCreate генерирует UUID
func (pv *PoptavkaVarianta) BeforeCreate(tx *gorm.DB) error {
	if pv.ID == "" {
		pv.ID = uuid.New().String()
	}
	return nil
}

func (pv *PoptavkaVarianta) String() string {
	poptavka, varianta := "", ""
	if pv.Poptavka != nil {
		poptavka = pv.Poptavka.String()
	}
	if pv.Varianta != nil {
		varianta = pv.Varianta.String()
	}
	return fmt.Sprintf("%s - %s - %d %s", poptavka, varianta, pv.Mnozstvi, pv.Jednotky)
}
