package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"hpmsklad/server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantaUniquePerSupplier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.item(t, SkladInput{NazevDilu: "Ložisko"})
	d := env.dodavatel(t, "SKF")

	v, err := env.varianty.Create(ctx, item.EvidencniCislo, VariantaInput{
		DodavatelID: d.ID, NazevVarianty: "SKF 6205-2RS", JednotkovaCenaEur: 4.555, DodaciLhuta: 7, MinObjMnozstvi: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 4.56, v.JednotkovaCenaEur)

	_, err = env.varianty.Create(ctx, item.EvidencniCislo, VariantaInput{DodavatelID: d.ID, NazevVarianty: "jiná"})
	assert.ErrorIs(t, err, ErrVariantaExists)

	_, err = env.varianty.Create(ctx, 999, VariantaInput{DodavatelID: d.ID, NazevVarianty: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := env.varianty.Update(ctx, v.ID, VariantaInput{NazevVarianty: "SKF 6205", JednotkovaCenaEur: 5, DodaciLhuta: 3, MinObjMnozstvi: 4})
	require.NoError(t, err)
	assert.Equal(t, "SKF 6205", updated.NazevVarianty)
	assert.Equal(t, d.ID, updated.DodavatelID)

	list, err := env.varianty.ListBySklad(ctx, item.EvidencniCislo)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Dodavatel)
	assert.Equal(t, "SKF", list[0].Dodavatel.Dodavatel)

	// Поставщик с вариантами не удаляется
	assert.ErrorIs(t, env.dod.Delete(ctx, d.ID), ErrConflict)

	require.NoError(t, env.varianty.Delete(ctx, v.ID))
	_, err = env.varianty.GetByID(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, env.dod.Delete(ctx, d.ID))
}

func TestOrderQuantity(t *testing.T) {
	assert.Equal(t, 10, orderQuantity(2, 5, 10))
	assert.Equal(t, 8, orderQuantity(2, 10, 5))
	assert.Equal(t, 3, orderQuantity(0, 3, 0))
}

func TestPoptavkaGenerate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.dodavatel(t, "Hennlich")
	other := env.dodavatel(t, "Kaman")

	low := env.item(t, SkladInput{NazevDilu: "Gufero", Mnozstvi: 2, MinMnozstviKs: 10, Jednotky: "ks"})
	lowBig := env.item(t, SkladInput{NazevDilu: "Olej", Mnozstvi: 1, MinMnozstviKs: 3, Jednotky: "l"})
	ok := env.item(t, SkladInput{NazevDilu: "Kroužek", Mnozstvi: 9, MinMnozstviKs: 3})
	lowOther := env.item(t, SkladInput{NazevDilu: "Řetěz", Mnozstvi: 0, MinMnozstviKs: 2})

	for _, c := range []struct {
		item   *models.Sklad
		dod    *models.Dodavatel
		minObj int
	}{
		{low, d, 5}, {lowBig, d, 20}, {ok, d, 1}, {lowOther, other, 1},
	} {
		_, err := env.varianty.Create(ctx, c.item.EvidencniCislo, VariantaInput{
			DodavatelID: c.dod.ID, NazevVarianty: "V " + c.item.NazevDilu, MinObjMnozstvi: c.minObj,
		})
		require.NoError(t, err)
	}

	p, err := env.poptavky.Generate(ctx, d.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, uint(1), p.Cislo)
	assert.Equal(t, models.StavPoptavkyTvorba, p.Stav)
	require.Len(t, p.Polozky, 2)

	byName := map[string]models.PoptavkaVarianta{}
	for _, line := range p.Polozky {
		require.NotNil(t, line.Varianta)
		require.NotNil(t, line.Varianta.Sklad)
		byName[line.Varianta.Sklad.NazevDilu] = line
	}
	assert.Equal(t, 8, byName["Gufero"].Mnozstvi)
	assert.Equal(t, models.JednotkyKus, byName["Gufero"].Jednotky)
	assert.Equal(t, 20, byName["Olej"].Mnozstvi)
	assert.Equal(t, models.JednotkyLitr, byName["Olej"].Jednotky)

	fresh := env.dodavatel(t, "Nový")
	_, err = env.poptavky.Generate(ctx, fresh.ID, testActor)
	assert.ErrorIs(t, err, ErrNothingToRequest)

	_, err = env.poptavky.Generate(ctx, "00000000-0000-0000-0000-000000000000", testActor)
	assert.ErrorIs(t, err, ErrNotFound)

	second, err := env.poptavky.Generate(ctx, other.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Cislo)
}

func TestPoptavkaLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.dodavatel(t, "Igus")
	other := env.dodavatel(t, "Misumi")
	item := env.item(t, SkladInput{NazevDilu: "Vedení"})
	v, err := env.varianty.Create(ctx, item.EvidencniCislo, VariantaInput{DodavatelID: d.ID, NazevVarianty: "drylin"})
	require.NoError(t, err)
	foreign, err := env.varianty.Create(ctx, item.EvidencniCislo, VariantaInput{DodavatelID: other.ID, NazevVarianty: "MSM"})
	require.NoError(t, err)

	p, err := env.poptavky.Create(ctx, d.ID, nil, testActor)
	require.NoError(t, err)

	// Без строк отправить нельзя
	_, err = env.poptavky.Odeslat(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.poptavky.AddPolozka(ctx, p.ID, PolozkaInput{VariantaID: foreign.ID, Mnozstvi: 1})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.poptavky.AddPolozka(ctx, p.ID, PolozkaInput{VariantaID: v.ID, Mnozstvi: 0})
	assert.ErrorIs(t, err, ErrValidation)

	line, err := env.poptavky.AddPolozka(ctx, p.ID, PolozkaInput{VariantaID: v.ID, Mnozstvi: 3})
	require.NoError(t, err)
	_, err = env.poptavky.AddPolozka(ctx, p.ID, PolozkaInput{VariantaID: v.ID, Mnozstvi: 1})
	assert.ErrorIs(t, err, ErrConflict)

	line, err = env.poptavky.UpdatePolozka(ctx, p.ID, line.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, line.Mnozstvi)

	_, err = env.poptavky.Uzavrit(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	sent, err := env.poptavky.Odeslat(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StavPoptavkyPoptano, sent.Stav)
	require.NotNil(t, sent.DatumOdeslani)

	// После отправки строки и сам запрос не меняются
	_, err = env.poptavky.UpdatePolozka(ctx, p.ID, line.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, env.poptavky.RemovePolozka(ctx, p.ID, line.ID), ErrInvalidTransition)
	assert.ErrorIs(t, env.poptavky.Delete(ctx, p.ID), ErrInvalidTransition)
	_, err = env.poptavky.Odeslat(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	closed, err := env.poptavky.Uzavrit(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StavPoptavkyUzavreno, closed.Stav)
	require.NotNil(t, closed.DatumUzavreni)

	list, err := env.poptavky.List(ctx, PoptavkaFilter{Stav: models.StavPoptavkyUzavreno})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = env.poptavky.List(ctx, PoptavkaFilter{Stav: "Zrušeno"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPoptavkaDraftDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.dodavatel(t, "Würth")
	item := env.item(t, SkladInput{NazevDilu: "Matice"})
	v, err := env.varianty.Create(ctx, item.EvidencniCislo, VariantaInput{DodavatelID: d.ID, NazevVarianty: "M8 DIN 934"})
	require.NoError(t, err)

	p, err := env.poptavky.Create(ctx, d.ID, []PolozkaInput{{VariantaID: v.ID, Mnozstvi: 100}}, testActor)
	require.NoError(t, err)
	require.Len(t, p.Polozky, 1)

	_, err = env.poptavky.Create(ctx, d.ID, []PolozkaInput{{VariantaID: v.ID, Mnozstvi: 1}, {VariantaID: v.ID, Mnozstvi: 2}}, testActor)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, env.poptavky.RemovePolozka(ctx, p.ID, p.Polozky[0].ID))
	assert.ErrorIs(t, env.poptavky.RemovePolozka(ctx, p.ID, p.Polozky[0].ID), ErrNotFound)

	require.NoError(t, env.poptavky.Delete(ctx, p.ID))
	_, err = env.poptavky.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPoptavkaCSVUsesSupplierLanguage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d, err := env.dod.Create(ctx, DodavatelInput{Dodavatel: "Schaeffler", Jazyk: "de"})
	require.NoError(t, err)
	item := env.item(t, SkladInput{NazevDilu: "Ložisko 6205"})
	v, err := env.varianty.Create(ctx, item.EvidencniCislo, VariantaInput{
		DodavatelID: d.ID, NazevVarianty: "FAG 6205", CisloVarianty: strPtr("6205-C-2HRS"),
	})
	require.NoError(t, err)
	p, err := env.poptavky.Create(ctx, d.ID, []PolozkaInput{{VariantaID: v.ID, Mnozstvi: 12}}, testActor)
	require.NoError(t, err)

	exp := NewExportService(env.sklad, env.audit, env.dod, env.poptavky)
	var buf bytes.Buffer
	name, err := exp.PoptavkaCSV(ctx, p.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, "poptavka_1.csv", name)

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(buf.String(), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Teilebezeichnung;Variante;Variantennummer;Menge;Einheit", lines[0])
	assert.Equal(t, "Ložisko 6205;FAG 6205;6205-C-2HRS;12;ks", lines[1])
}
