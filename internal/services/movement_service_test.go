package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"hpmsklad/server/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []MovementEvent
}

func (r *recordingNotifier) NotifyMovement(ev MovementEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestCalcReceipt(t *testing.T) {
	c := CalcReceipt(10, decimal.NewFromInt(1000), 5, decimal.NewFromInt(120))
	assert.Equal(t, 15, c.Mnozstvi)
	assert.Equal(t, "1600.00", c.CelkovaCena.StringFixed(2))
	assert.Equal(t, "106.67", c.JednotkovaCena.StringFixed(2))
	assert.Equal(t, "120.00", c.LogJednotkova.StringFixed(2))
	assert.Equal(t, "600.00", c.LogCelkova.StringFixed(2))

	// Первый приход на пустую позицию
	c = CalcReceipt(0, decimal.Zero, 4, decimal.RequireFromString("2.5"))
	assert.Equal(t, 4, c.Mnozstvi)
	assert.Equal(t, "2.50", c.JednotkovaCena.StringFixed(2))
	assert.Equal(t, "10.00", c.CelkovaCena.StringFixed(2))
}

func TestCalcDispatch(t *testing.T) {
	p0 := decimal.RequireFromString("106.67")
	t0 := decimal.NewFromInt(1600)

	c := CalcDispatch(15, p0, t0, 3)
	assert.Equal(t, 12, c.Mnozstvi)
	assert.Equal(t, "320.01", c.LogCelkova.StringFixed(2))
	assert.Equal(t, "1279.99", c.CelkovaCena.StringFixed(2))
	assert.Equal(t, "106.67", c.LogJednotkova.StringFixed(2))

	// Списание до нуля забирает весь остаток суммы
	c = CalcDispatch(15, p0, t0, 15)
	assert.Equal(t, 0, c.Mnozstvi)
	assert.True(t, c.CelkovaCena.IsZero())
	assert.Equal(t, "1600.00", c.LogCelkova.StringFixed(2))

	// Округление не уводит сумму в минус
	c = CalcDispatch(3, decimal.RequireFromString("0.34"), decimal.NewFromInt(1), 2)
	assert.Equal(t, 1, c.Mnozstvi)
	assert.Equal(t, "0.68", c.LogCelkova.StringFixed(2))
	assert.Equal(t, "0.32", c.CelkovaCena.StringFixed(2))
}

func TestReceiptWeightedAverage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	notifier := &recordingNotifier{}
	env.movements.SetNotifier(notifier)

	item := env.item(t, SkladInput{NazevDilu: "Ložisko 6205", Mnozstvi: 10, JednotkovaCenaEur: 100, MinMnozstviKs: 2})
	require.Equal(t, 1000.0, item.CelkovaCenaEur)
	d := env.dodavatel(t, "SKF s.r.o.")

	res, err := env.movements.Receipt(ctx, item.EvidencniCislo, ReceiptInput{
		ZmenaMnozstvi:     5,
		JednotkovaCenaEur: 120,
		DodavatelID:       d.ID,
		CisloObjednavky:   "OBJ-2024-01",
		DatumNakupu:       "2024-03-14",
	}, testActor)
	require.NoError(t, err)

	assert.Equal(t, 15, res.Sklad.Mnozstvi)
	assert.Equal(t, 106.67, res.Sklad.JednotkovaCenaEur)
	assert.Equal(t, 1600.0, res.Sklad.CelkovaCenaEur)
	assert.True(t, res.VariantaRequired)
	assert.Equal(t, d.ID, res.DodavatelID)

	entry := res.AuditLog
	assert.Equal(t, models.TypOperacePrijem, entry.TypOperace)
	assert.Equal(t, 5, entry.ZmenaMnozstvi)
	assert.Equal(t, 15, entry.Mnozstvi)
	assert.Equal(t, 120.0, entry.JednotkovaCenaEur)
	assert.Equal(t, 600.0, entry.CelkovaCenaEur)
	assert.Equal(t, "skladnik", entry.OperaciProvedl)
	require.NotNil(t, entry.Dodavatel)
	assert.Equal(t, "SKF s.r.o.", *entry.Dodavatel)
	require.NotNil(t, entry.DatumNakupu)
	assert.Equal(t, "2024-03-14", entry.DatumNakupu.Format(dateLayout))

	stored, err := env.sklad.GetByID(ctx, item.EvidencniCislo)
	require.NoError(t, err)
	assert.Equal(t, 15, stored.Mnozstvi)
	assert.Equal(t, 106.67, stored.JednotkovaCenaEur)
	require.NotNil(t, stored.CisloObjednavky)
	assert.Equal(t, "OBJ-2024-01", *stored.CisloObjednavky)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.TypOperacePrijem, notifier.events[0].Typ)
	assert.Equal(t, 15, notifier.events[0].Mnozstvi)
}

func TestReceiptWithExistingVariantaDoesNotRequireOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.item(t, SkladInput{NazevDilu: "Řemen"})
	d := env.dodavatel(t, "Gates")
	_, err := env.varianty.Create(ctx, item.EvidencniCislo, VariantaInput{
		DodavatelID: d.ID, NazevVarianty: "Gates XPZ", JednotkovaCenaEur: 12, DodaciLhuta: 5, MinObjMnozstvi: 2,
	})
	require.NoError(t, err)

	res, err := env.movements.Receipt(ctx, item.EvidencniCislo, ReceiptInput{
		ZmenaMnozstvi: 2, JednotkovaCenaEur: 12, DodavatelID: d.ID,
		CisloObjednavky: "X1", DatumNakupu: "2024-03-01",
	}, testActor)
	require.NoError(t, err)
	assert.False(t, res.VariantaRequired)
}

func TestReceiptValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.item(t, SkladInput{NazevDilu: "Filtr"})
	d := env.dodavatel(t, "Hydac")

	valid := ReceiptInput{ZmenaMnozstvi: 1, JednotkovaCenaEur: 10, DodavatelID: d.ID, CisloObjednavky: "A", DatumNakupu: "2024-03-15"}

	cases := map[string]func(in *ReceiptInput){
		"zero quantity":  func(in *ReceiptInput) { in.ZmenaMnozstvi = 0 },
		"zero price":     func(in *ReceiptInput) { in.JednotkovaCenaEur = 0 },
		"future date":    func(in *ReceiptInput) { in.DatumNakupu = "2024-03-16" },
		"bad date":       func(in *ReceiptInput) { in.DatumNakupu = "15.3.2024" },
		"missing order":  func(in *ReceiptInput) { in.CisloObjednavky = " " },
		"long order no.": func(in *ReceiptInput) { in.CisloObjednavky = "123456789012345678901" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := env.movements.Receipt(ctx, item.EvidencniCislo, in, testActor)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := env.movements.Receipt(ctx, 9999, valid, testActor)
	assert.ErrorIs(t, err, ErrNotFound)

	in := valid
	in.DodavatelID = "00000000-0000-0000-0000-000000000000"
	_, err = env.movements.Receipt(ctx, item.EvidencniCislo, in, testActor)
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, env.db.Model(&models.AuditLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDispatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.zarizeni(t, "HSH")

	item := env.item(t, SkladInput{NazevDilu: "Termočlánek", Mnozstvi: 15, JednotkovaCenaEur: 10, MinMnozstviKs: 14})
	require.NoError(t, env.db.Model(&models.Sklad{}).Where("evidencni_cislo = ?", item.EvidencniCislo).
		Updates(map[string]interface{}{"jednotkova_cena_eur": 106.67, "celkova_cena_eur": 1600}).Error)

	res, err := env.movements.Dispatch(ctx, item.EvidencniCislo, DispatchInput{
		ZmenaMnozstvi: 3, PouziteZarizeni: "HSH", DatumVydeje: "2024-03-15", TypUdrzby: strPtr("Preventivní"),
	}, testActor)
	require.NoError(t, err)

	assert.Equal(t, 12, res.Sklad.Mnozstvi)
	assert.Equal(t, 106.67, res.Sklad.JednotkovaCenaEur)
	assert.Equal(t, 1279.99, res.Sklad.CelkovaCenaEur)
	assert.True(t, res.Sklad.PodMinimem)

	entry := res.AuditLog
	assert.Equal(t, models.TypOperaceVydej, entry.TypOperace)
	assert.Equal(t, -3, entry.ZmenaMnozstvi)
	assert.Equal(t, 12, entry.Mnozstvi)
	assert.Equal(t, 320.01, entry.CelkovaCenaEur)
	require.NotNil(t, entry.PouziteZarizeni)
	assert.Equal(t, "HSH", *entry.PouziteZarizeni)
	require.NotNil(t, entry.TypUdrzby)
	assert.Equal(t, models.TypUdrzbyPreventivni, *entry.TypUdrzby)
	assert.Nil(t, entry.DatumNakupu)

	// Остаток до нуля: сумма списывается полностью
	res, err = env.movements.Dispatch(ctx, item.EvidencniCislo, DispatchInput{
		ZmenaMnozstvi: 12, PouziteZarizeni: "HSH", DatumVydeje: "2024-03-15",
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sklad.Mnozstvi)
	assert.Equal(t, 0.0, res.Sklad.CelkovaCenaEur)
	assert.Equal(t, 1279.99, res.AuditLog.CelkovaCenaEur)
}

func TestDispatchRejectsOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.zarizeni(t, "TQ8")
	item := env.item(t, SkladInput{NazevDilu: "Pojistka", Mnozstvi: 2, JednotkovaCenaEur: 1})

	_, err := env.movements.Dispatch(ctx, item.EvidencniCislo, DispatchInput{
		ZmenaMnozstvi: 3, PouziteZarizeni: "TQ8", DatumVydeje: "2024-03-15",
	}, testActor)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = env.movements.Dispatch(ctx, item.EvidencniCislo, DispatchInput{
		ZmenaMnozstvi: 1, PouziteZarizeni: "NEEXISTUJE", DatumVydeje: "2024-03-15",
	}, testActor)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.movements.Dispatch(ctx, item.EvidencniCislo, DispatchInput{
		ZmenaMnozstvi: 1, PouziteZarizeni: "TQ8", DatumVydeje: "2024-03-15", TypUdrzby: strPtr("Havarijní"),
	}, testActor)
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := env.sklad.GetByID(ctx, item.EvidencniCislo)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Mnozstvi)
}

func TestConcurrentDispatchConservesQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.zarizeni(t, "KW")
	item := env.item(t, SkladInput{NazevDilu: "Šroub M8", Mnozstvi: 50, JednotkovaCenaEur: 2})

	const workers = 20
	var ok, short int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.movements.Dispatch(ctx, item.EvidencniCislo, DispatchInput{
				ZmenaMnozstvi: 3, PouziteZarizeni: "KW", DatumVydeje: "2024-03-15",
			}, testActor)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, ErrInsufficientStock):
				atomic.AddInt32(&short, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(16), ok)
	assert.Equal(t, int32(4), short)

	stored, err := env.sklad.GetByID(ctx, item.EvidencniCislo)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Mnozstvi)

	var sum int
	require.NoError(t, env.db.Model(&models.AuditLog{}).
		Where("evidencni_cislo = ?", item.EvidencniCislo).
		Select("COALESCE(SUM(zmena_mnozstvi), 0)").Row().Scan(&sum))
	assert.Equal(t, 50+sum, stored.Mnozstvi)
}

func TestMultiNotifierSurvivesPanic(t *testing.T) {
	rec := &recordingNotifier{}
	m := MultiNotifier{panicNotifier{}, nil, rec}
	m.NotifyMovement(MovementEvent{EvidencniCislo: 7})
	require.Len(t, rec.events, 1)
	assert.Equal(t, uint(7), rec.events[0].EvidencniCislo)
}

type panicNotifier struct{}

func (panicNotifier) NotifyMovement(MovementEvent) { panic("boom") }
