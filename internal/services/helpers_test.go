package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"hpmsklad/server/internal/database"
	"hpmsklad/server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.New().String())
	db, err := database.OpenSQLite(dsn)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

// testEnv набор сервисов над одной тестовой базой
type testEnv struct {
	db        *gorm.DB
	sklad     *SkladService
	movements *MovementService
	audit     *AuditLogService
	dod       *DodavatelService
	zar       *ZarizeniService
	varianty  *VariantaService
	poptavky  *PoptavkaService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db:        db,
		sklad:     NewSkladService(db),
		movements: NewMovementService(db),
		audit:     NewAuditLogService(db),
		dod:       NewDodavatelService(db),
		zar:       NewZarizeniService(db),
		varianty:  NewVariantaService(db),
		poptavky:  NewPoptavkaService(db),
	}
	env.sklad.now = fixedNow
	env.movements.now = fixedNow
	env.poptavky.now = fixedNow
	env.movements.SetSkladService(env.sklad)
	env.varianty.SetSkladService(env.sklad)
	return env
}

func (e *testEnv) item(t *testing.T, in SkladInput) *models.Sklad {
	t.Helper()
	it, err := e.sklad.Create(context.Background(), in)
	require.NoError(t, err)
	return it
}

func (e *testEnv) dodavatel(t *testing.T, name string) *models.Dodavatel {
	t.Helper()
	d, err := e.dod.Create(context.Background(), DodavatelInput{Dodavatel: name})
	require.NoError(t, err)
	return d
}

func (e *testEnv) zarizeni(t *testing.T, kod string) *models.Zarizeni {
	t.Helper()
	z, err := e.zar.Create(context.Background(), ZarizeniInput{
		KodZarizeni: kod, NazevZarizeni: "Pec " + kod, Umisteni: "Hala 1", TypZarizeni: "Pec",
	})
	require.NoError(t, err)
	return z
}

var testActor = Actor{Username: "skladnik"}

func strPtr(s string) *string { return &s }
