package services

import (
	"context"
	"testing"

	"hpmsklad/server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDodavatelValidationAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.dod.Create(ctx, DodavatelInput{Dodavatel: "  "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.dod.Create(ctx, DodavatelInput{Dodavatel: "Bosch", Email: strPtr("není-email")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.dod.Create(ctx, DodavatelInput{Dodavatel: "Bosch", Jazyk: "PL"})
	assert.ErrorIs(t, err, ErrValidation)

	d, err := env.dod.Create(ctx, DodavatelInput{Dodavatel: "Bosch Rexroth", Jazyk: "de"})
	require.NoError(t, err)
	assert.Equal(t, models.Jazyk("DE"), d.Jazyk)
	env.dodavatel(t, "SKF")

	_, err = env.dod.Create(ctx, DodavatelInput{Dodavatel: "SKF"})
	assert.ErrorIs(t, err, ErrConflict)

	list, err := env.dod.GetAll(ctx, "rexroth")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, d.ID, list[0].ID)

	_, err = env.dod.Update(ctx, d.ID, DodavatelInput{Dodavatel: "SKF"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDodavatelDeleteBlockedByVarianty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.item(t, SkladInput{NazevDilu: "Ložisko", Jednotky: "ks"})
	d := env.dodavatel(t, "SKF")

	v, err := env.varianty.Create(ctx, item.EvidencniCislo, VariantaInput{
		DodavatelID: d.ID, NazevVarianty: "6204-2RS", JednotkovaCenaEur: 3.2, MinObjMnozstvi: 10,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, env.dod.Delete(ctx, d.ID), ErrConflict)

	require.NoError(t, env.varianty.Delete(ctx, v.ID))
	require.NoError(t, env.dod.Delete(ctx, d.ID))
	_, err = env.dod.GetByID(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVariantaDeleteRemovesPoptavkaLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.item(t, SkladInput{NazevDilu: "Řemen", Jednotky: "ks"})
	d := env.dodavatel(t, "Optibelt")
	v, err := env.varianty.Create(ctx, item.EvidencniCislo, VariantaInput{
		DodavatelID: d.ID, NazevVarianty: "SPZ 1250", JednotkovaCenaEur: 8, MinObjMnozstvi: 1,
	})
	require.NoError(t, err)

	p, err := env.poptavky.Create(ctx, d.ID, []PolozkaInput{{VariantaID: v.ID, Mnozstvi: 4}}, testActor)
	require.NoError(t, err)

	require.NoError(t, env.varianty.Delete(ctx, v.ID))

	got, err := env.poptavky.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Polozky)
}

func TestZarizeniCodesAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.zar.Create(ctx, ZarizeniInput{KodZarizeni: "HSH", NazevZarizeni: "Linka"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.zar.Create(ctx, ZarizeniInput{KodZarizeni: "PRILIS-DLOUHY", NazevZarizeni: "X", Umisteni: "Y", TypZarizeni: "Z"})
	assert.ErrorIs(t, err, ErrValidation)

	z, err := env.zar.Create(ctx, ZarizeniInput{KodZarizeni: " tq8 ", NazevZarizeni: "Pec", Umisteni: "Hala 1", TypZarizeni: "Pec"})
	require.NoError(t, err)
	assert.Equal(t, "TQ8", z.KodZarizeni)

	_, err = env.zar.Create(ctx, ZarizeniInput{KodZarizeni: "TQ8", NazevZarizeni: "Pec 2", Umisteni: "Hala 2", TypZarizeni: "Pec"})
	assert.ErrorIs(t, err, ErrConflict)

	item := env.item(t, SkladInput{NazevDilu: "Termočlánek", Jednotky: "ks", Zarizeni: []string{"TQ8"}})
	require.NoError(t, env.zar.Delete(ctx, z.ID))

	got, err := env.sklad.GetByID(ctx, item.EvidencniCislo)
	require.NoError(t, err)
	assert.Empty(t, got.Zarizeni)
	assert.ErrorIs(t, env.zar.Delete(ctx, z.ID), ErrNotFound)
}

func TestParseCatalogRejectsInvalidEntries(t *testing.T) {
	_, err := ParseCatalog([]byte("zarizeni:\n  - kod: HSH\n"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseCatalog([]byte("zarizeni: [\n"))
	assert.Error(t, err)

	cat, err := ParseCatalog([]byte("zarizeni:\n  - {kod: a1, nazev: Lis, umisteni: Hala, typ: Lis}\n"))
	require.NoError(t, err)
	assert.Equal(t, "A1", cat.Zarizeni[0].KodZarizeni)
}
