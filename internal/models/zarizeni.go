package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Zarizeni представляет оборудование (печь, линию), для которого держим запчасти
type Zarizeni struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	KodZarizeni   string    `json:"kod_zarizeni" gorm:"type:varchar(10);not null;uniqueIndex"` // Короткий код, например HSH
	NazevZarizeni string    `json:"nazev_zarizeni" gorm:"type:varchar(100);not null"`
	Umisteni      string    `json:"umisteni" gorm:"type:varchar(20);not null"`
	TypZarizeni   string    `json:"typ_zarizeni" gorm:"type:varchar(100);not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы
func (Zarizeni) TableName() string {
	return "zarizeni"
}

// BeforeCreate генерирует UUID
func (z *Zarizeni) BeforeCreate(tx *gorm.DB) error {
	if z.ID == "" {
		z.ID = uuid.New().String()
	}
	return nil
}

func (z *Zarizeni) String() string {
	return z.KodZarizeni
}
