package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"

	"hpmsklad/server/internal/config"
	"hpmsklad/server/internal/database"
	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/services"
)

// Демо-данные склада: оборудование, поставщики, карточки и полгода движений.
// Движения идут через MovementService, поэтому цены и журнал согласованы.
//
//	DATABASE_URL=sqlite://demo.db go run ./scripts
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ .env файл не найден, используем переменные окружения системы")
	}
	cfg := config.Load()
	log.Printf("📋 Используется DATABASE_URL: %s", database.MaskURL(cfg.DatabaseURL))

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения к БД: %v", err)
	}
	defer database.ClosePostgres(db)

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	ctx := context.Background()
	sklad := services.NewSkladService(db)
	movements := services.NewMovementService(db)
	movements.SetSkladService(sklad)
	dodavatele := services.NewDodavatelService(db)
	varianty := services.NewVariantaService(db)
	varianty.SetSkladService(sklad)

	cat, err := services.DefaultCatalog()
	if err != nil {
		log.Fatalf("❌ Каталог оборудования: %v", err)
	}
	if _, err := services.NewZarizeniService(db).Seed(ctx, cat); err != nil {
		log.Fatalf("❌ Ошибка загрузки оборудования: %v", err)
	}

	suppliers := []services.DodavatelInput{
		{Dodavatel: "SKF Česko", Jazyk: "CZ", Email: strPtr("objednavky@skf.example")},
		{Dodavatel: "Festo AG", Jazyk: "DE", Email: strPtr("vertrieb@festo.example")},
		{Dodavatel: "Conrad Electronic", Jazyk: "EN"},
	}
	var dodavatelIDs []string
	for _, in := range suppliers {
		d, err := dodavatele.Create(ctx, in)
		if errors.Is(err, services.ErrConflict) {
			log.Printf("ℹ️ Поставщик %s уже существует", in.Dodavatel)
			continue
		}
		if err != nil {
			log.Fatalf("❌ Ошибка создания поставщика %s: %v", in.Dodavatel, err)
		}
		dodavatelIDs = append(dodavatelIDs, d.ID)
	}
	if len(dodavatelIDs) == 0 {
		log.Println("ℹ️ Демо-данные уже загружены")
		os.Exit(0)
	}

	parts := []services.SkladInput{
		{NazevDilu: "Ložisko 6204-2RS", MinMnozstviKs: 10, Jednotky: "ks", Umisteni: strPtr("A-01"), KritickyDil: true},
		{NazevDilu: "Klínový řemen SPZ 1250", MinMnozstviKs: 4, Jednotky: "ks", Umisteni: strPtr("A-02")},
		{NazevDilu: "Pneumatický válec DSNU-25", MinMnozstviKs: 2, Jednotky: "ks", Umisteni: strPtr("B-01")},
		{NazevDilu: "Hydraulický olej HLP 46", MinMnozstviKs: 20, Jednotky: "l", Umisteni: strPtr("C-01")},
		{NazevDilu: "Pojistka 10A", MinMnozstviKs: 30, Jednotky: "ks", Umisteni: strPtr("D-03")},
		{NazevDilu: "Těsnění O-kroužek 40x3", MinMnozstviKs: 50, Jednotky: "ks", Umisteni: strPtr("D-04")},
	}

	actor := services.Actor{Username: "seed"}
	typy := []models.TypUdrzby{models.TypUdrzbyReaktivni, models.TypUdrzbyPreventivni, models.TypUdrzbyPrediktivni}
	rnd := rand.New(rand.NewSource(42))
	start := time.Now().AddDate(0, -6, 0)

	for i, in := range parts {
		item, err := sklad.Create(ctx, in)
		if err != nil {
			log.Fatalf("❌ Ошибка создания карточки %s: %v", in.NazevDilu, err)
		}
		dodavatelID := dodavatelIDs[i%len(dodavatelIDs)]
		price := 2 + rnd.Float64()*80

		if _, err := varianty.Create(ctx, item.EvidencniCislo, services.VariantaInput{
			DodavatelID:       dodavatelID,
			NazevVarianty:     in.NazevDilu,
			JednotkovaCenaEur: price,
			DodaciLhuta:       7 + rnd.Intn(21),
			MinObjMnozstvi:    1,
		}); err != nil {
			log.Printf("⚠️ Варианта для %s: %v", in.NazevDilu, err)
		}

		// Приход раз в месяц, между приходами несколько расходов
		for month := 0; month < 6; month++ {
			day := start.AddDate(0, month, 0)
			qty := in.MinMnozstviKs + rnd.Intn(in.MinMnozstviKs+5)
			if _, err := movements.Receipt(ctx, item.EvidencniCislo, services.ReceiptInput{
				ZmenaMnozstvi:     qty,
				JednotkovaCenaEur: round2(price * (0.9 + rnd.Float64()*0.2)),
				DodavatelID:       dodavatelID,
				CisloObjednavky:   fmt.Sprintf("OBJ-%d-%d", item.EvidencniCislo, month+1),
				DatumNakupu:       day.Format("2006-01-02"),
			}, actor); err != nil {
				log.Fatalf("❌ Ошибка прихода %s: %v", in.NazevDilu, err)
			}

			for n := 0; n < 3; n++ {
				typ := string(typy[rnd.Intn(len(typy))])
				_, err := movements.Dispatch(ctx, item.EvidencniCislo, services.DispatchInput{
					ZmenaMnozstvi:   1 + rnd.Intn(qty/3+1),
					PouziteZarizeni: cat.Zarizeni[rnd.Intn(len(cat.Zarizeni))].KodZarizeni,
					DatumVydeje:     day.AddDate(0, 0, 3+n*7).Format("2006-01-02"),
					TypUdrzby:       &typ,
				}, actor)
				if errors.Is(err, services.ErrInsufficientStock) {
					break
				}
				if err != nil {
					log.Fatalf("❌ Ошибка расхода %s: %v", in.NazevDilu, err)
				}
			}
		}
		log.Printf("✅ %s: карточка и движения созданы", in.NazevDilu)
	}

	log.Printf("🎉 Демо-данные загружены: %d позиций, %d поставщиков", len(parts), len(dodavatelIDs))
}

func strPtr(s string) *string { return &s }

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
