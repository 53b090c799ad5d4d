package models

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"
)

// Opravneni кодовое имя права доступа
type Opravneni string

const (
	PermAddSklad             Opravneni = "add_sklad"
	PermChangeSklad          Opravneni = "change_sklad"
	PermDeleteSklad          Opravneni = "delete_sklad"
	PermChangeObjednanoSklad Opravneni = "change_objednano_in_sklad"
	PermAddAuditLog          Opravneni = "add_auditlog"
	PermAddVarianty          Opravneni = "add_varianty"
	PermChangeVarianty       Opravneni = "change_varianty"
	PermAddDodavatele        Opravneni = "add_dodavatele"
	PermChangeDodavatele     Opravneni = "change_dodavatele"
	PermAddZarizeni          Opravneni = "add_zarizeni"
	PermChangeZarizeni       Opravneni = "change_zarizeni"
	PermAddPoptavky          Opravneni = "add_poptavky"
	PermChangePoptavky       Opravneni = "change_poptavky"
)

// VsechnaOpravneni полный список прав с подписями
var VsechnaOpravneni = map[Opravneni]string{
	PermAddSklad:             "Může přidat položku skladu",
	PermChangeSklad:          "Může upravit položku skladu",
	PermDeleteSklad:          "Může smazat položku skladu",
	PermChangeObjednanoSklad: "Může upravit pole Objednáno?",
	PermAddAuditLog:          "Může zapsat pohyb (příjem/výdej)",
	PermAddVarianty:          "Může přidat variantu",
	PermChangeVarianty:       "Může upravit variantu",
	PermAddDodavatele:        "Může přidat dodavatele",
	PermChangeDodavatele:     "Může upravit dodavatele",
	PermAddZarizeni:          "Může přidat zařízení",
	PermChangeZarizeni:       "Může upravit zařízení",
	PermAddPoptavky:          "Může vytvořit poptávku",
	PermChangePoptavky:       "Může upravit poptávku",
}

// IsValid проверяет, что кодовое имя известно
func (o Opravneni) IsValid() bool {
	_, ok := VsechnaOpravneni[o]
	return ok
}

// Skupina представляет группу пользователей с набором прав
type Skupina struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"` // Например "skladnik"
	Label       string    `gorm:"type:varchar(100);not null" json:"label"`            // Например "Skladník"
	Permissions string    `gorm:"type:text" json:"-"`                                 // JSON массив кодовых имен
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName возвращает имя таблицы
func (Skupina) TableName() string {
	return "skupiny"
}

// GetPermissions возвращает права группы
func (s *Skupina) GetPermissions() []Opravneni {
	return decodeOpravneni(s.Permissions)
}

// SetPermissions сохраняет права группы
func (s *Skupina) SetPermissions(perms []Opravneni) error {
	data, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	s.Permissions = string(data)
	return nil
}

func decodeOpravneni(raw string) []Opravneni {
	if raw == "" {
		return []Opravneni{}
	}
	var perms []Opravneni
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return []Opravneni{}
	}
	return perms
}

// InitDefaultSkupiny создает группы по умолчанию, если их еще нет
func InitDefaultSkupiny(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	defaults := []struct {
		skupina Skupina
		perms   []Opravneni
	}{
		{Skupina{ID: "1", Name: "skladnik", Label: "Skladník"}, []Opravneni{
			PermAddSklad, PermChangeSklad, PermChangeObjednanoSklad, PermAddAuditLog,
		}},
		{Skupina{ID: "2", Name: "nakupci", Label: "Nákupčí"}, []Opravneni{
			PermChangeObjednanoSklad, PermAddVarianty, PermChangeVarianty,
			PermAddDodavatele, PermChangeDodavatele, PermAddPoptavky, PermChangePoptavky,
		}},
		{Skupina{ID: "3", Name: "udrzba", Label: "Údržba"}, []Opravneni{
			PermAddAuditLog, PermAddZarizeni, PermChangeZarizeni,
		}},
	}

	for _, d := range defaults {
		var existing Skupina
		if err := db.Where("name = ?", d.skupina.Name).First(&existing).Error; err == nil {
			continue
		}
		s := d.skupina
		if err := s.SetPermissions(d.perms); err != nil {
			return err
		}
		if err := db.Create(&s).Error; err != nil {
			log.Printf("⚠️ Ошибка создания группы %s: %v", s.Name, err)
		}
	}

	return nil
}
