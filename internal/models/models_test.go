package models

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestSkladDerivedFields(t *testing.T) {
	db := newTestDB(t)

	item := Sklad{NazevDilu: "Ložisko 6205", MinMnozstviKs: 5, Mnozstvi: 2}
	require.NoError(t, db.Create(&item).Error)
	assert.Equal(t, JednotkyKus, item.Jednotky)

	var loaded Sklad
	require.NoError(t, db.First(&loaded, item.EvidencniCislo).Error)
	assert.True(t, loaded.PodMinimem)
	assert.Equal(t, "ANO", loaded.PodMinimemDisplay())
	assert.Equal(t, fmt.Sprintf("Evid. č. %d, Ložisko 6205", item.EvidencniCislo), loaded.String())

	loaded.Mnozstvi = 5
	assert.False(t, loaded.IsPodMinimem())
	assert.Equal(t, "NE", loaded.PodMinimemDisplay())
}

func TestAutoMigrateWithForeignKeys(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, AutoMigrate(db))

	item := Sklad{NazevDilu: "Snímač"}
	require.NoError(t, db.Create(&item).Error)
	entry := AuditLog{
		EvidencniCislo: item.EvidencniCislo,
		NazevDilu:      item.NazevDilu,
		ZmenaMnozstvi:  1,
		Mnozstvi:       1,
		TypOperace:     TypOperacePrijem,
		OperaciProvedl: "novak",
	}
	require.NoError(t, db.Create(&entry).Error)

	// Запись журнала переживает удаление карточки
	require.NoError(t, db.Delete(&item).Error)
	var loaded AuditLog
	require.NoError(t, db.First(&loaded, entry.ID).Error)
	assert.Equal(t, "Snímač", loaded.NazevDilu)
}

func TestSkladMnozstviCheckConstraint(t *testing.T) {
	db := newTestDB(t)

	item := Sklad{NazevDilu: "Těsnění", Mnozstvi: 1}
	require.NoError(t, db.Create(&item).Error)

	err := db.Model(&Sklad{}).Where("evidencni_cislo = ?", item.EvidencniCislo).
		Update("mnozstvi", -1).Error
	assert.Error(t, err)
}

func TestAuditLogIsImmutable(t *testing.T) {
	db := newTestDB(t)

	item := Sklad{NazevDilu: "Filtr"}
	require.NoError(t, db.Create(&item).Error)

	entry := AuditLog{
		EvidencniCislo: item.EvidencniCislo,
		NazevDilu:      item.NazevDilu,
		ZmenaMnozstvi:  3,
		Mnozstvi:       3,
		TypOperace:     TypOperacePrijem,
		OperaciProvedl: "novak",
	}
	require.NoError(t, db.Create(&entry).Error)
	assert.Equal(t, "PŘÍJEM: 3x Filtr", entry.String())
	assert.True(t, entry.IsPrijem())

	err := db.Model(&entry).Update("zmena_mnozstvi", 10).Error
	assert.ErrorIs(t, err, ErrAuditLogImmutable)

	err = db.Delete(&entry).Error
	assert.ErrorIs(t, err, ErrAuditLogImmutable)

	var count int64
	db.Model(&AuditLog{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAuditLogRejectsUnknownOperation(t *testing.T) {
	db := newTestDB(t)

	entry := AuditLog{EvidencniCislo: 1, NazevDilu: "x", TypOperace: "PŘEVOD", OperaciProvedl: "a"}
	assert.Error(t, db.Create(&entry).Error)
}

func TestVariantaUniquePerSupplier(t *testing.T) {
	db := newTestDB(t)

	item := Sklad{NazevDilu: "Řemen"}
	require.NoError(t, db.Create(&item).Error)
	d := Dodavatel{Dodavatel: "Bearing s.r.o."}
	require.NoError(t, db.Create(&d).Error)
	assert.Equal(t, JazykCZ, d.Jazyk)

	v1 := Varianta{SkladID: item.EvidencniCislo, DodavatelID: d.ID, NazevVarianty: "A"}
	require.NoError(t, db.Create(&v1).Error)
	v2 := Varianta{SkladID: item.EvidencniCislo, DodavatelID: d.ID, NazevVarianty: "B"}
	assert.Error(t, db.Create(&v2).Error)
}

func TestPoptavkaTransitions(t *testing.T) {
	tests := []struct {
		from StavPoptavky
		to   StavPoptavky
		ok   bool
	}{
		{StavPoptavkyTvorba, StavPoptavkyPoptano, true},
		{StavPoptavkyTvorba, StavPoptavkyUzavreno, false},
		{StavPoptavkyPoptano, StavPoptavkyUzavreno, true},
		{StavPoptavkyPoptano, StavPoptavkyTvorba, false},
		{StavPoptavkyUzavreno, StavPoptavkyTvorba, false},
		{StavPoptavkyUzavreno, StavPoptavkyPoptano, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			p := Poptavka{Stav: tt.from}
			assert.Equal(t, tt.ok, p.CanTransitionTo(tt.to))
		})
	}
}

func TestPoptavkaStrings(t *testing.T) {
	p := Poptavka{Cislo: 7, Dodavatel: &Dodavatel{Dodavatel: "SKF"}}
	assert.Equal(t, "Poptávka #7 u dodavatele: SKF", p.String())

	line := PoptavkaVarianta{Poptavka: &p, Varianta: &Varianta{NazevVarianty: "6205-2RS"}, Mnozstvi: 100, Jednotky: JednotkyKus}
	assert.Equal(t, "Poptávka #7 u dodavatele: SKF - 6205-2RS - 100 ks", line.String())
}

func TestUserPermissions(t *testing.T) {
	db := newTestDB(t)

	var skladnik Skupina
	require.NoError(t, db.Where("name = ?", "skladnik").First(&skladnik).Error)

	u := User{Username: "novak", PasswordHash: "x", IsActive: true, SkupinaID: &skladnik.ID}
	require.NoError(t, u.SetPermissions([]Opravneni{PermAddVarianty}))
	require.NoError(t, db.Create(&u).Error)

	var loaded User
	require.NoError(t, db.Preload("Skupina").First(&loaded, "id = ?", u.ID).Error)

	assert.True(t, loaded.HasPermission(PermAddVarianty))
	assert.True(t, loaded.HasPermission(PermChangeSklad, PermAddAuditLog))
	assert.False(t, loaded.HasPermission(PermDeleteSklad))

	loaded.IsSuperuser = true
	assert.True(t, loaded.HasPermission(PermDeleteSklad))
}

func TestInitDefaultSkupinyIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, InitDefaultSkupiny(db))

	var count int64
	db.Model(&Skupina{}).Count(&count)
	assert.EqualValues(t, 3, count)
}
