package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Varianta представляет предложение конкретного поставщика по складской позиции
// (цена, срок поставки, минимальная партия). На пару позиция+поставщик не более одной.
type Varianta struct {
	ID                string     `json:"id" gorm:"type:uuid;primaryKey"`
	SkladID           uint       `json:"sklad_id" gorm:"not null;uniqueIndex:idx_varianty_sklad_dodavatel"`
	Sklad             *Sklad     `json:"sklad,omitempty" gorm:"foreignKey:SkladID;references:EvidencniCislo"`
	DodavatelID       string     `json:"dodavatel_id" gorm:"type:uuid;not null;uniqueIndex:idx_varianty_sklad_dodavatel;index"`
	Dodavatel         *Dodavatel `json:"dodavatel,omitempty" gorm:"foreignKey:DodavatelID"`
	NazevVarianty     string     `json:"nazev_varianty" gorm:"type:varchar(255);not null"`
	CisloVarianty     *string    `json:"cislo_varianty" gorm:"type:varchar(255)"`
	JednotkovaCenaEur float64    `json:"jednotkova_cena_eur" gorm:"type:decimal(12,2);not null;default:0"`
	DodaciLhuta       int        `json:"dodaci_lhuta" gorm:"not null;default:0"` // В днях
	MinObjMnozstvi    int        `json:"min_obj_mnozstvi" gorm:"not null;default:0"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы
func (Varianta) TableName() string {
	return "varianty"
}

// BeforeCreate генерирует UUID
func (v *Varianta) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}

func (v *Varianta) String() string {
	return v.NazevVarianty
}
