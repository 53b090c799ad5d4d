package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Jazyk представляет язык общения с поставщиком
type Jazyk string

const (
	JazykCZ Jazyk = "CZ" // Český
	JazykSK Jazyk = "SK" // Slovenský
	JazykDE Jazyk = "DE" // Německý
	JazykEN Jazyk = "EN" // Anglický
)

// IsValid проверяет допустимость языка
func (j Jazyk) IsValid() bool {
	switch j {
	case JazykCZ, JazykSK, JazykDE, JazykEN:
		return true
	}
	return false
}

// Dodavatel представляет поставщика запчастей
type Dodavatel struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Dodavatel string    `json:"dodavatel" gorm:"type:varchar(100);not null;uniqueIndex"`
	Kontakt   *string   `json:"kontakt" gorm:"type:varchar(100)"`
	Email     *string   `json:"email" gorm:"type:varchar(100)"`
	Telefon   *string   `json:"telefon" gorm:"type:varchar(20)"`
	Jazyk     Jazyk     `json:"jazyk" gorm:"type:varchar(2);default:'CZ'"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы
func (Dodavatel) TableName() string {
	return "dodavatele"
}

// BeforeCreate генерирует UUID и язык по умолчанию
func (d *Dodavatel) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Jazyk == "" {
		d.Jazyk = JazykCZ
	}
	return nil
}

func (d *Dodavatel) String() string {
	return d.Dodavatel
}
