package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrAuditLogImmutable возвращается при попытке изменить или удалить запись журнала
var ErrAuditLogImmutable = errors.New("audit log je pouze pro zápis")

// TypOperace представляет тип складского движения
type TypOperace string

const (
	TypOperacePrijem TypOperace = "PŘÍJEM" // Приход
	TypOperaceVydej  TypOperace = "VÝDEJ"  // Расход
)

// IsValid проверяет тип операции
func (t TypOperace) IsValid() bool {
	return t == TypOperacePrijem || t == TypOperaceVydej
}

// TypUdrzby представляет тип обслуживания, для которого выдана запчасть
type TypUdrzby string

const (
	TypUdrzbyReaktivni   TypUdrzby = "Reaktivní"
	TypUdrzbyPreventivni TypUdrzby = "Preventivní"
	TypUdrzbyPrediktivni TypUdrzby = "Prediktivní"
	TypUdrzbyOstatni     TypUdrzby = "Ostatní"
)

// TypyUdrzby список в порядке отображения
var TypyUdrzby = []TypUdrzby{TypUdrzbyReaktivni, TypUdrzbyPreventivni, TypUdrzbyPrediktivni, TypUdrzbyOstatni}

// IsValid проверяет тип обслуживания
func (t TypUdrzby) IsValid() bool {
	for _, v := range TypyUdrzby {
		if v == t {
			return true
		}
	}
	return false
}

// AuditLog представляет неизменяемую запись о движении по складу.
// Поля позиции копируются на момент операции, чтобы журнал не зависел от
// последующих правок карточки.
type AuditLog struct {
	ID                uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Ucetnictvi        bool       `json:"ucetnictvi" gorm:"not null;index"`
	EvidencniCislo    uint       `json:"evidencni_cislo" gorm:"not null;index"`
	InterneCislo      *int       `json:"interne_cislo"`
	Objednano         *string    `json:"objednano" gorm:"type:varchar(100)"`
	NazevDilu         string     `json:"nazev_dilu" gorm:"type:varchar(100);not null;index"`
	ZmenaMnozstvi     int        `json:"zmena_mnozstvi" gorm:"not null"` // Приход > 0, расход < 0
	Mnozstvi          int        `json:"mnozstvi" gorm:"not null"`       // Остаток после операции
	Jednotky          Jednotky   `json:"jednotky" gorm:"type:varchar(10);not null;default:'ks'"`
	TypOperace        TypOperace `json:"typ_operace" gorm:"type:varchar(10);not null;index"`
	PouziteZarizeni   *string    `json:"pouzite_zarizeni" gorm:"type:varchar(70)"`
	Umisteni          *string    `json:"umisteni" gorm:"type:varchar(25)"`
	Dodavatel         *string    `json:"dodavatel" gorm:"type:varchar(70)"`
	DatumVydeje       *time.Time `json:"datum_vydeje" gorm:"type:date;index"`
	DatumNakupu       *time.Time `json:"datum_nakupu" gorm:"type:date;index"`
	CisloObjednavky   *string    `json:"cislo_objednavky" gorm:"type:varchar(20)"`
	JednotkovaCenaEur float64    `json:"jednotkova_cena_eur" gorm:"type:decimal(12,2);not null;default:0"`
	CelkovaCenaEur    float64    `json:"celkova_cena_eur" gorm:"type:decimal(12,2);not null;default:0"`
	CasVytvoreni      time.Time  `json:"cas_vytvoreni" gorm:"autoCreateTime;index"`
	UzivatelID        *string    `json:"uzivatel_id" gorm:"type:uuid;index"`
	OperaciProvedl    string     `json:"operaci_provedl" gorm:"type:varchar(150);not null"`
	Poznamka          *string    `json:"poznamka" gorm:"type:varchar(200)"`
	TypUdrzby         *TypUdrzby `json:"typ_udrzby" gorm:"type:varchar(20);index"`
}

// TableName указывает имя таблицы
func (AuditLog) TableName() string {
	return "audit_log"
}

// BeforeCreate проверяет тип операции
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if !a.TypOperace.IsValid() {
		return fmt.Errorf("neplatný typ operace: %q", a.TypOperace)
	}
	if a.Jednotky == "" {
		a.Jednotky = JednotkyKus
	}
	return nil
}

// BeforeUpdate запрещает правку журнала
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}

// BeforeDelete запрещает удаление журнала
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}

// IsPrijem проверяет, является ли запись приходом
func (a *AuditLog) IsPrijem() bool {
	return a.TypOperace == TypOperacePrijem
}

// IsVydej проверяет, является ли запись расходом
func (a *AuditLog) IsVydej() bool {
	return a.TypOperace == TypOperaceVydej
}

func (a *AuditLog) String() string {
	return fmt.Sprintf("%s: %dx %s", a.TypOperace, a.ZmenaMnozstvi, a.NazevDilu)
}
