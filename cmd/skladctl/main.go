package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"hpmsklad/server/internal/config"
	"hpmsklad/server/internal/database"
	"hpmsklad/server/internal/services"
)

// app глобальные флаги и логгер одного запуска skladctl
type app struct {
	verbose     bool
	configPath  string
	databaseURL string

	logger *zap.Logger
}

func main() {
	_ = godotenv.Load()

	a := &app{}
	if err := a.rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "skladctl",
		Short: "Administrace skladu HPM",
		Long: `skladctl spravuje databázi skladu mimo HTTP server:
migrace schématu, uživatele, katalog zařízení, import karet,
exporty a grafy spotřeby.

Připojení se bere z DATABASE_URL (nebo --database-url).
Pro lokální soubor použijte sqlite://cesta.db`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return nil
			}
			cfg := zap.NewProductionConfig()
			if a.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	// Значения по умолчанию берутся из полей, чтобы тесты могли их задать заранее
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", a.verbose, "Debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", a.configPath, "TOML config file (default: $SKLAD_CONFIG)")
	root.PersistentFlags().StringVar(&a.databaseURL, "database-url", a.databaseURL, "Database URL (default: $DATABASE_URL)")

	root.AddCommand(a.migrateCmd())
	root.AddCommand(a.userCmd())
	root.AddCommand(a.seedCmd())
	root.AddCommand(a.importCmd())
	root.AddCommand(a.exportCmd())
	root.AddCommand(a.reportCmd())
	return root
}

func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = os.Getenv("SKLAD_CONFIG")
	}
	cfg, err := config.LoadWithFile(path)
	if err != nil {
		return nil, err
	}
	if a.databaseURL != "" {
		cfg.DatabaseURL = a.databaseURL
	}
	return cfg, nil
}

// openDB открывает базу; close нужно вызвать по завершении команды
func (a *app) openDB() (db *gorm.DB, cfg *config.Config, closeFn func(), err error) {
	cfg, err = a.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	a.logger.Debug("Connecting to database", zap.String("url", database.MaskURL(cfg.DatabaseURL)))
	db, err = database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return db, cfg, func() { _ = database.ClosePostgres(db) }, nil
}

// stores сервисы, которые нужны командам CLI
type stores struct {
	sklad    *services.SkladService
	audit    *services.AuditLogService
	zarizeni *services.ZarizeniService
	auth     *services.AuthService
	export   *services.ExportService
	imports  *services.ImportService
	report   *services.ReportService
}

func newStores(db *gorm.DB, cfg *config.Config) *stores {
	sklad := services.NewSkladService(db)
	audit := services.NewAuditLogService(db)
	dodavatele := services.NewDodavatelService(db)
	poptavky := services.NewPoptavkaService(db)
	return &stores{
		sklad:    sklad,
		audit:    audit,
		zarizeni: services.NewZarizeniService(db),
		auth:     services.NewAuthService(db, cfg.JWTSecret),
		export:   services.NewExportService(sklad, audit, dodavatele, poptavky),
		imports:  services.NewImportService(sklad),
		report:   services.NewReportService(audit),
	}
}

// withDB открывает базу, выполняет fn и закрывает соединение
func (a *app) withDB(fn func(db *gorm.DB, cfg *config.Config) error) error {
	db, cfg, closeFn, err := a.openDB()
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(db, cfg)
}

// writeOutput пишет в файл или в stdout для "-"; недописанный файл удаляется
func writeOutput(cmd *cobra.Command, path string, render func(io.Writer) error) error {
	if path == "" || path == "-" {
		return render(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func isSQLite(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "sqlite://")
}
