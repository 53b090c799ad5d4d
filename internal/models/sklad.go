package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Jednotky представляет единицу измерения складской позиции
type Jednotky string

const (
	JednotkyKus    Jednotky = "ks"     // kus
	JednotkyKg     Jednotky = "kg"     // kilogram
	JednotkyPar    Jednotky = "par"    // pár
	JednotkyLitr   Jednotky = "l"      // litr
	JednotkyMetr   Jednotky = "m"      // metr
	JednotkyBaleni Jednotky = "baleni" // balení
)

// JednotkyLabels отображаемые названия единиц (как в UI склада)
var JednotkyLabels = map[Jednotky]string{
	JednotkyKus:    "kus",
	JednotkyKg:     "kilogram",
	JednotkyPar:    "pár",
	JednotkyLitr:   "litr",
	JednotkyMetr:   "metr",
	JednotkyBaleni: "balení",
}

// IsValid проверяет, что единица из допустимого списка
func (j Jednotky) IsValid() bool {
	_, ok := JednotkyLabels[j]
	return ok
}

// Sklad представляет складскую позицию (запчасть)
type Sklad struct {
	EvidencniCislo    uint           `json:"evidencni_cislo" gorm:"primaryKey;autoIncrement"`
	InterneCislo      *int           `json:"interne_cislo" gorm:"index"` // Číslo karty
	Objednano         *string        `json:"objednano" gorm:"type:varchar(100)"`
	NazevDilu         string         `json:"nazev_dilu" gorm:"type:varchar(100);not null;index"`
	MinMnozstviKs     int            `json:"min_mnozstvi_ks" gorm:"not null;default:0"`
	Mnozstvi          int            `json:"mnozstvi" gorm:"not null;default:0;check:chk_sklad_mnozstvi,mnozstvi >= 0"`
	Jednotky          Jednotky       `json:"jednotky" gorm:"type:varchar(10);not null;default:'ks'"`
	Umisteni          *string        `json:"umisteni" gorm:"type:varchar(25)"`
	Dodavatel         *string        `json:"dodavatel" gorm:"type:varchar(70)"` // Имя поставщика последнего прихода
	DatumNakupu       *time.Time     `json:"datum_nakupu" gorm:"type:date"`
	CisloObjednavky   *string        `json:"cislo_objednavky" gorm:"type:varchar(20)"`
	JednotkovaCenaEur float64        `json:"jednotkova_cena_eur" gorm:"type:decimal(12,2);not null;default:0"`
	CelkovaCenaEur    float64        `json:"celkova_cena_eur" gorm:"type:decimal(12,2);not null;default:0"`
	Poznamka          *string        `json:"poznamka" gorm:"type:varchar(200)"`
	Ucetnictvi        bool           `json:"ucetnictvi" gorm:"not null;index"`
	KritickyDil       bool           `json:"kriticky_dil" gorm:"not null;default:false;index"`
	CreatedAt         time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Zarizeni []Zarizeni `json:"zarizeni,omitempty" gorm:"many2many:sklad_zarizeni;joinForeignKey:SkladID;joinReferences:ZarizeniID"`
	Varianty []Varianta `json:"varianty,omitempty" gorm:"foreignKey:SkladID;references:EvidencniCislo"`

	// Virtual fields for UI
	PodMinimem bool `json:"pod_minimem" gorm:"-"`
}

// TableName указывает имя таблицы
func (Sklad) TableName() string {
	return "sklad"
}

// BeforeCreate выставляет значения по умолчанию
func (s *Sklad) BeforeCreate(tx *gorm.DB) error {
	if s.Jednotky == "" {
		s.Jednotky = JednotkyKus
	}
	return nil
}

// AfterFind заполняет вычисляемые поля
func (s *Sklad) AfterFind(tx *gorm.DB) error {
	s.PodMinimem = s.IsPodMinimem()
	return nil
}

// IsPodMinimem проверяет, опустился ли остаток ниже минимума
func (s *Sklad) IsPodMinimem() bool {
	return s.Mnozstvi < s.MinMnozstviKs
}

// PodMinimemDisplay возвращает "ANO" / "NE"
func (s *Sklad) PodMinimemDisplay() string {
	return AnoNe(s.IsPodMinimem())
}

func (s *Sklad) String() string {
	return fmt.Sprintf("Evid. č. %d, %s", s.EvidencniCislo, s.NazevDilu)
}

// AnoNe форматирует bool так, как его показывает склад
func AnoNe(v bool) string {
	if v {
		return "ANO"
	}
	return "NE"
}

// SkladZarizeni связка складской позиции с оборудованием (пара уникальна)
type SkladZarizeni struct {
	SkladID    uint   `gorm:"primaryKey"`
	ZarizeniID string `gorm:"type:uuid;primaryKey"`
}

// TableName указывает имя таблицы
func (SkladZarizeni) TableName() string {
	return "sklad_zarizeni"
}
