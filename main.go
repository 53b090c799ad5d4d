package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"hpmsklad/server/internal/api"
	"hpmsklad/server/internal/config"
	"hpmsklad/server/internal/database"
	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/services"
	"hpmsklad/server/internal/utils"
)

func main() {
	// Загружаем переменные окружения из .env файла (если существует)
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ .env файл не найден, используем переменные окружения системы")
	} else {
		log.Printf("✅ Переменные окружения загружены из .env файла")
	}

	cfg := config.Load()
	log.Printf("📋 DATABASE_URL: %s", database.MaskURL(cfg.DatabaseURL))

	// Без базы склад не работает, поэтому здесь падаем сразу
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.ClosePostgres(db)

	if cfg.AutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			log.Fatalf("❌ Migration failed: %v", err)
		}
		log.Println("✅ Database migrations completed")
	} else {
		// Схему ведет skladctl migrate, здесь только модель связки и группы
		if err := models.SetupJoinTables(db); err != nil {
			log.Fatalf("❌ Join table setup failed: %v", err)
		}
		if err := models.InitDefaultSkupiny(db); err != nil {
			log.Printf("⚠️ Failed to init default groups: %v", err)
		}
	}

	// Подключение к Redis (с поддержкой Sentinel)
	var redisUtil *utils.RedisClient
	redisClient, err := database.ConnectRedis(cfg.RedisURL, cfg.RedisSentinelAddrs, cfg.RedisMasterName)
	if err != nil {
		log.Printf("⚠️ Redis connection failed: %v (continuing without Redis)", err)
		redisClient = nil
	} else {
		redisUtil = utils.NewRedisClient(redisClient)
	}
	defer database.CloseRedis(redisClient)

	svc := buildServices(cfg, db, redisUtil)
	hub := api.NewHub()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	// Источник ленты один: Kafka, иначе Redis Pub/Sub, иначе хаб напрямую.
	// Иначе одно движение пришло бы клиентам дважды.
	var notifiers services.MultiNotifier
	brokers := api.ParseKafkaBrokers(cfg.KafkaBrokers)
	switch {
	case len(brokers) > 0:
		auth := api.KafkaAuth{Username: cfg.KafkaUsername, Password: cfg.KafkaPassword, CACert: cfg.KafkaCACert}
		producer := api.NewKafkaMovementProducer(cfg.KafkaBrokers, cfg.KafkaMovementsTopic, auth)
		defer producer.Close()
		notifiers = append(notifiers, producer)

		// У каждого инстанса своя группа, иначе сообщения поделятся между ними
		host, _ := os.Hostname()
		consumer := api.NewKafkaMovementConsumer(cfg.KafkaBrokers, cfg.KafkaMovementsTopic, "sklad-feed-"+host, auth, hub)
		g.Go(func() error { return consumer.Run(gctx) })
		log.Printf("📡 Лента движений через Kafka: %s (топик %s)", cfg.KafkaBrokers, cfg.KafkaMovementsTopic)
	case redisUtil != nil:
		notifiers = append(notifiers, api.NewRedisMovementPublisher(redisUtil))
		g.Go(func() error { return api.RunRedisMovementSubscriber(gctx, redisUtil, hub) })
		log.Println("📡 Лента движений через Redis Pub/Sub")
	default:
		notifiers = append(notifiers, hub)
		log.Println("📡 Лента движений локальная (один инстанс)")
	}
	svc.Movements.SetNotifier(notifiers)

	worker := api.NewLowStockWorker(svc.Sklad, hub, cfg.LowStockCheckInterval)
	g.Go(func() error { return worker.Run(gctx) })

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(svc, hub)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Printf("🚀 Server starting on port %s", cfg.ServerPort)
		log.Printf("📡 API доступен на http://0.0.0.0:%s/api/v1", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Остановка сервера...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ Server stopped with error: %v", err)
		os.Exit(1)
	}
	log.Println("✅ Server stopped")
}

// buildServices создает сервисы и связывает их между собой
func buildServices(cfg *config.Config, db *gorm.DB, redisUtil *utils.RedisClient) api.Services {
	sklad := services.NewSkladService(db)
	sklad.SetPageSize(cfg.PageSize)
	if redisUtil != nil {
		sklad.SetRedis(redisUtil)
	}
	log.Println("✅ Sklad service initialized")

	audit := services.NewAuditLogService(db)
	audit.SetPageSize(cfg.PageSize)

	movements := services.NewMovementService(db)
	movements.SetSkladService(sklad)
	log.Println("✅ Movement service initialized")

	dodavatele := services.NewDodavatelService(db)
	poptavky := services.NewPoptavkaService(db)
	varianty := services.NewVariantaService(db)
	varianty.SetSkladService(sklad)

	auth := services.NewAuthService(db, cfg.JWTSecret)
	auth.SetTokenTTL(cfg.TokenTTL)
	auth.SetLoginLimit(cfg.LoginMaxAttempts, cfg.LoginWindow)
	if redisUtil != nil {
		auth.SetRedis(redisUtil)
	}
	if cfg.IsProduction() && cfg.JWTSecret == "your-secret-key-change-in-production" {
		log.Println("⚠️ JWT_SECRET не задан, используется значение по умолчанию")
	}
	log.Println("✅ Auth service initialized")

	return api.Services{
		Auth:       auth,
		Sklad:      sklad,
		Movements:  movements,
		AuditLog:   audit,
		Dodavatele: dodavatele,
		Zarizeni:   services.NewZarizeniService(db),
		Varianty:   varianty,
		Poptavky:   poptavky,
		Export:     services.NewExportService(sklad, audit, dodavatele, poptavky),
		Import:     services.NewImportService(sklad),
		Report:     services.NewReportService(audit),
	}
}
