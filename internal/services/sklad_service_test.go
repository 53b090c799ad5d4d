package services

import (
	"context"
	"fmt"
	"testing"

	"hpmsklad/server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkladCreateAssignsInterneCislo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.item(t, SkladInput{NazevDilu: "A"})
	require.NotNil(t, first.InterneCislo)
	assert.Equal(t, 1, *first.InterneCislo)
	assert.True(t, first.Ucetnictvi)

	n := 40
	env.item(t, SkladInput{NazevDilu: "B", InterneCislo: &n, Ucetnictvi: new(bool)})
	third := env.item(t, SkladInput{NazevDilu: "C"})
	assert.Equal(t, 41, *third.InterneCislo)

	// Номер удаленной карточки не переиспользуется
	require.NoError(t, env.sklad.Delete(ctx, third.EvidencniCislo))
	next, err := env.sklad.NextInterneCislo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, next)
}

func TestSkladCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sklad.Create(ctx, SkladInput{NazevDilu: "  "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.sklad.Create(ctx, SkladInput{NazevDilu: "X", Jednotky: "tuna"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.sklad.Create(ctx, SkladInput{NazevDilu: "X", Mnozstvi: -1})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.sklad.Create(ctx, SkladInput{NazevDilu: "X", Zarizeni: []string{"NIC"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSkladUpdateKeepsQuantityAndPrices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.zarizeni(t, "DAC")

	item := env.item(t, SkladInput{NazevDilu: "Ventil", Mnozstvi: 4, JednotkovaCenaEur: 25})
	updated, err := env.sklad.Update(ctx, item.EvidencniCislo, SkladInput{
		NazevDilu:         "Ventil DN25",
		Mnozstvi:          100,
		JednotkovaCenaEur: 1,
		MinMnozstviKs:     6,
		Umisteni:          strPtr("R1-A3"),
		Zarizeni:          []string{"DAC"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ventil DN25", updated.NazevDilu)
	assert.Equal(t, 4, updated.Mnozstvi)
	assert.Equal(t, 25.0, updated.JednotkovaCenaEur)
	assert.Equal(t, 100.0, updated.CelkovaCenaEur)
	assert.True(t, updated.PodMinimem)
	require.Len(t, updated.Zarizeni, 1)
	assert.Equal(t, "DAC", updated.Zarizeni[0].KodZarizeni)

	o, err := env.sklad.UpdateObjednano(ctx, item.EvidencniCislo, strPtr("ANO 12.3."))
	require.NoError(t, err)
	require.NotNil(t, o.Objednano)
	assert.Equal(t, "ANO 12.3.", *o.Objednano)

	_, err = env.sklad.UpdateObjednano(ctx, 999, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSkladListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.zarizeni(t, "HSH")
	env.zarizeni(t, "LAC 1")

	yes := true
	env.item(t, SkladInput{NazevDilu: "Ložisko 6205", Mnozstvi: 1, MinMnozstviKs: 3, KritickyDil: true, Zarizeni: []string{"HSH"}})
	env.item(t, SkladInput{NazevDilu: "LOŽISKO 6306", Mnozstvi: 5, MinMnozstviKs: 3, Zarizeni: []string{"LAC 1"}})
	env.item(t, SkladInput{NazevDilu: "Těsnění", Mnozstvi: 0, MinMnozstviKs: 1, Ucetnictvi: new(bool)})

	page, err := env.sklad.List(ctx, SkladFilter{Query: "ISKO"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = env.sklad.List(ctx, SkladFilter{PodMinimem: &yes})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = env.sklad.List(ctx, SkladFilter{KritickyDil: &yes})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Ložisko 6205", page.Items[0].NazevDilu)

	no := false
	page, err = env.sklad.List(ctx, SkladFilter{Ucetnictvi: &no})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Těsnění", page.Items[0].NazevDilu)

	page, err = env.sklad.List(ctx, SkladFilter{Zarizeni: "LAC 1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "LOŽISKO 6306", page.Items[0].NazevDilu)

	page, err = env.sklad.List(ctx, SkladFilter{Sort: "mnozstvi", Order: "up"})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, 0, page.Items[0].Mnozstvi)
	assert.Equal(t, 5, page.Items[2].Mnozstvi)

	// Неизвестная колонка сортировки игнорируется
	page, err = env.sklad.List(ctx, SkladFilter{Sort: "1; DROP TABLE sklad"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
}

func TestSkladListPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		env.item(t, SkladInput{NazevDilu: fmt.Sprintf("Díl %02d", i)})
	}

	page, err := env.sklad.List(ctx, SkladFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(30), page.Total)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Items, 24)
	// По умолчанию новые сверху
	assert.Equal(t, "Díl 29", page.Items[0].NazevDilu)

	page, err = env.sklad.List(ctx, SkladFilter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 6)
}

func TestSkladDeleteKeepsAuditLog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.dodavatel(t, "Festo")
	item := env.item(t, SkladInput{NazevDilu: "Válec"})
	_, err := env.movements.Receipt(ctx, item.EvidencniCislo, ReceiptInput{
		ZmenaMnozstvi: 1, JednotkovaCenaEur: 80, DodavatelID: d.ID, CisloObjednavky: "F1", DatumNakupu: "2024-03-01",
	}, testActor)
	require.NoError(t, err)

	require.NoError(t, env.sklad.Delete(ctx, item.EvidencniCislo))
	_, err = env.sklad.GetByID(ctx, item.EvidencniCislo)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.sklad.Delete(ctx, item.EvidencniCislo), ErrNotFound)

	page, err := env.audit.List(ctx, AuditLogFilter{EvidencniCislo: item.EvidencniCislo})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestPodMinimemWithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.item(t, SkladInput{NazevDilu: "Nízko", Mnozstvi: 0, MinMnozstviKs: 1})
	env.item(t, SkladInput{NazevDilu: "Dost", Mnozstvi: 5, MinMnozstviKs: 1})

	all, added, err := env.sklad.CheckPodMinimem(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Nízko", all[0].NazevDilu)
	assert.Nil(t, added)
}

func TestAuditLogFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.zarizeni(t, "HSH")
	d := env.dodavatel(t, "Bosch Rexroth")
	item := env.item(t, SkladInput{NazevDilu: "Čerpadlo"})

	_, err := env.movements.Receipt(ctx, item.EvidencniCislo, ReceiptInput{
		ZmenaMnozstvi: 10, JednotkovaCenaEur: 5, DodavatelID: d.ID, CisloObjednavky: "B1", DatumNakupu: "2024-02-10",
	}, testActor)
	require.NoError(t, err)
	_, err = env.movements.Dispatch(ctx, item.EvidencniCislo, DispatchInput{
		ZmenaMnozstvi: 2, PouziteZarizeni: "HSH", DatumVydeje: "2024-03-02", TypUdrzby: strPtr("Reaktivní"),
	}, testActor)
	require.NoError(t, err)

	page, err := env.audit.List(ctx, AuditLogFilter{Month: 2, Year: 2024})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.TypOperacePrijem, page.Items[0].TypOperace)

	page, err = env.audit.List(ctx, AuditLogFilter{Month: 3, Year: 2024})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, -2, page.Items[0].ZmenaMnozstvi)

	page, err = env.audit.List(ctx, AuditLogFilter{TypOperace: string(models.TypOperaceVydej)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = env.audit.List(ctx, AuditLogFilter{TypUdrzby: "Reaktivní"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = env.audit.List(ctx, AuditLogFilter{Query: "bosch"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = env.audit.List(ctx, AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Greater(t, page.Items[0].ID, page.Items[1].ID)

	_, err = env.audit.List(ctx, AuditLogFilter{Month: 3})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.audit.List(ctx, AuditLogFilter{Month: 13, Year: 2024})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.audit.List(ctx, AuditLogFilter{TypOperace: "PRESUN"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.audit.GetByID(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}
