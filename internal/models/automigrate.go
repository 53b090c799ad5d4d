package models

import (
	"log"
	"strings"

	"gorm.io/gorm"
)

// SetupJoinTables регистрирует модель связки sklad <-> zarizeni (пара = первичный ключ).
// Нужно вызывать и без AutoMigrate, когда схема создана SQL миграциями.
func SetupJoinTables(db *gorm.DB) error {
	return db.SetupJoinTable(&Sklad{}, "Zarizeni", &SkladZarizeni{})
}

// AutoMigrate создает/обновляет таблицы склада.
// Для продакшена предпочтительны SQL миграции (skladctl migrate up), AutoMigrate
// используется локально и в тестах.
func AutoMigrate(db *gorm.DB) error {
	if err := SetupJoinTables(db); err != nil {
		log.Printf("❌ SetupJoinTable sklad_zarizeni failed: %v", err)
		return err
	}

	tables := []interface{}{
		&Dodavatel{},
		&Zarizeni{},
		&Sklad{},
		&SkladZarizeni{},
		&Varianta{},
		&AuditLog{},
		&Poptavka{},
		&PoptavkaVarianta{},
		&Skupina{},
		&User{},
	}
	for _, t := range tables {
		if err := db.AutoMigrate(t); err != nil {
			// Игнорируем только ошибки constraint "does not exist" (не критично)
			errStr := err.Error()
			if strings.Contains(errStr, "constraint") && strings.Contains(errStr, "does not exist") {
				log.Printf("⚠️ AutoMigrate %T: %v", t, err)
				continue
			}
			log.Printf("❌ AutoMigrate %T failed: %v", t, err)
			return err
		}
	}
	log.Println("✅ Таблицы склада смигрированы")

	if err := InitDefaultSkupiny(db); err != nil {
		log.Printf("⚠️ Ошибка инициализации групп: %v", err)
	}
	return nil
}
