package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User представляет пользователя склада.
// Права складываются из собственных прав и прав группы; суперпользователь может все.
type User struct {
	ID           string     `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string     `json:"username" gorm:"type:varchar(150);uniqueIndex;not null"`
	Email        *string    `json:"email" gorm:"type:varchar(255)"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"` // Не возвращаем в JSON для безопасности
	IsSuperuser  bool       `json:"is_superuser" gorm:"not null;default:false"`
	IsActive     bool       `json:"is_active" gorm:"not null"`
	Permissions  string     `json:"-" gorm:"type:text"` // JSON массив кодовых имен
	SkupinaID    *string    `json:"skupina_id" gorm:"type:varchar(36);index"`
	Skupina      *Skupina   `json:"skupina,omitempty" gorm:"foreignKey:SkupinaID"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы
func (User) TableName() string {
	return "users"
}

// BeforeCreate генерирует UUID если не указан
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// GetPermissions возвращает собственные права пользователя
func (u *User) GetPermissions() []Opravneni {
	return decodeOpravneni(u.Permissions)
}

// SetPermissions сохраняет собственные права пользователя
func (u *User) SetPermissions(perms []Opravneni) error {
	data, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	u.Permissions = string(data)
	return nil
}

// EffectivePermissions права пользователя вместе с правами группы
func (u *User) EffectivePermissions() []Opravneni {
	seen := make(map[Opravneni]bool)
	var out []Opravneni
	add := func(perms []Opravneni) {
		for _, p := range perms {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	add(u.GetPermissions())
	if u.Skupina != nil {
		add(u.Skupina.GetPermissions())
	}
	return out
}

// HasPermission проверяет все перечисленные права
func (u *User) HasPermission(perms ...Opravneni) bool {
	if u.IsSuperuser {
		return true
	}
	have := make(map[Opravneni]bool)
	for _, p := range u.EffectivePermissions() {
		have[p] = true
	}
	for _, p := range perms {
		if !have[p] {
			return false
		}
	}
	return true
}
