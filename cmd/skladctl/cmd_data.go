package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpmsklad/server/internal/config"
	"hpmsklad/server/internal/services"
)

func (a *app) seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Naplnění číselníků",
	}

	var catalogPath string
	zarizeniCmd := &cobra.Command{
		Use:   "zarizeni",
		Short: "Insert equipment from a YAML catalog (built-in by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cat *services.ZarizeniCatalog
				err error
			)
			if catalogPath != "" {
				cat, err = services.LoadCatalog(catalogPath)
			} else {
				cat, err = services.DefaultCatalog()
			}
			if err != nil {
				return err
			}
			return a.withDB(func(db *gorm.DB, cfg *config.Config) error {
				inserted, err := newStores(db, cfg).zarizeni.Seed(cmd.Context(), cat)
				if err != nil {
					return err
				}
				a.logger.Info("Equipment seeded", zap.Int("inserted", inserted), zap.Int("catalog", len(cat.Zarizeni)))
				fmt.Fprintf(cmd.OutOrStdout(), "inserted %d of %d\n", inserted, len(cat.Zarizeni))
				return nil
			})
		},
	}
	zarizeniCmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog file")

	cmd.AddCommand(zarizeniCmd)
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import stock cards from CSV or XLSX",
		Long: `Imports stock cards. The format is chosen by the file extension.
CSV may be UTF-8 or Windows-1250, separated by ';' or ','.
Rows with errors are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return a.withDB(func(db *gorm.DB, cfg *config.Config) error {
				res, err := newStores(db, cfg).imports.Import(cmd.Context(), f, filepath.Base(args[0]))
				if err != nil {
					return err
				}
				for _, rowErr := range res.Errors {
					a.logger.Warn("Row skipped", zap.Int("row", rowErr.Row), zap.String("error", rowErr.Message))
				}
				a.logger.Info("Import finished", zap.Int("created", len(res.Created)), zap.Int("errors", len(res.Errors)))
				fmt.Fprintf(cmd.OutOrStdout(), "created %d, errors %d\n", len(res.Created), len(res.Errors))
				return nil
			})
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exporty do CSV a XLSX",
	}

	var (
		out       string
		format    string
		query     string
		podMinim  bool
		auditFlag auditFlags
	)

	skladCmd := &cobra.Command{
		Use:   "sklad",
		Short: "Export stock items (csv or xlsx)",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := services.SkladFilter{Query: query}
			if podMinim {
				f.PodMinimem = &podMinim
			}
			return a.withDB(func(db *gorm.DB, cfg *config.Config) error {
				s := newStores(db, cfg)
				return writeOutput(cmd, out, func(w io.Writer) error {
					switch format {
					case "csv":
						return s.export.SkladCSV(cmd.Context(), f, w)
					case "xlsx":
						return s.export.SkladXLSX(cmd.Context(), f, w)
					default:
						return fmt.Errorf("unknown format %q (csv, xlsx)", format)
					}
				})
			})
		},
	}
	skladCmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or xlsx")
	skladCmd.Flags().StringVar(&query, "query", "", "Search text")
	skladCmd.Flags().BoolVar(&podMinim, "pod-minimem", false, "Only items below minimum")

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Export the audit log (csv)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *gorm.DB, cfg *config.Config) error {
				s := newStores(db, cfg)
				return writeOutput(cmd, out, func(w io.Writer) error {
					return s.export.AuditLogCSV(cmd.Context(), auditFlag.filter(), w)
				})
			})
		},
	}
	auditFlag.register(auditCmd)

	spotrebaCmd := &cobra.Command{
		Use:   "spotreba",
		Short: "Export monthly consumption (csv)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *gorm.DB, cfg *config.Config) error {
				s := newStores(db, cfg)
				return writeOutput(cmd, out, func(w io.Writer) error {
					return s.export.SpotrebaCSV(cmd.Context(), auditFlag.filter(), w)
				})
			})
		},
	}
	auditFlag.register(spotrebaCmd)

	cmd.PersistentFlags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	cmd.AddCommand(skladCmd, auditCmd, spotrebaCmd)
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Grafy spotřeby a údržby",
	}

	var (
		out       string
		format    string
		auditFlag auditFlags
	)

	spotrebaCmd := &cobra.Command{
		Use:   "spotreba",
		Short: "Monthly dispatch cost graph (pdf or html)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *gorm.DB, cfg *config.Config) error {
				s := newStores(db, cfg)
				return writeOutput(cmd, out, func(w io.Writer) error {
					switch format {
					case "pdf":
						return s.report.SpotrebaPDF(cmd.Context(), auditFlag.filter(), w)
					case "html":
						return s.report.SpotrebaHTML(cmd.Context(), auditFlag.filter(), w)
					default:
						return fmt.Errorf("unknown format %q (pdf, html)", format)
					}
				})
			})
		},
	}
	spotrebaCmd.Flags().StringVarP(&format, "format", "f", "pdf", "pdf or html")
	auditFlag.register(spotrebaCmd)

	udrzbaCmd := &cobra.Command{
		Use:   "udrzba",
		Short: "Cost per maintenance type graph (pdf)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *gorm.DB, cfg *config.Config) error {
				s := newStores(db, cfg)
				return writeOutput(cmd, out, func(w io.Writer) error {
					return s.report.UdrzbaPDF(cmd.Context(), auditFlag.filter(), w)
				})
			})
		},
	}
	auditFlag.register(udrzbaCmd)

	cmd.PersistentFlags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	cmd.AddCommand(spotrebaCmd, udrzbaCmd)
	return cmd
}

// auditFlags фильтр журнала из флагов командной строки
type auditFlags struct {
	query      string
	typOperace string
	typUdrzby  string
	year       int
	month      int
}

func (f *auditFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.query, "query", "", "Search in part name or supplier")
	cmd.Flags().StringVar(&f.typOperace, "typ", "", "PŘÍJEM or VÝDEJ")
	cmd.Flags().StringVar(&f.typUdrzby, "udrzba", "", "Maintenance type")
	cmd.Flags().IntVar(&f.year, "year", 0, "Year")
	cmd.Flags().IntVar(&f.month, "month", 0, "Month 1-12 (requires --year)")
}

func (f *auditFlags) filter() services.AuditLogFilter {
	return services.AuditLogFilter{
		Query:      f.query,
		TypOperace: f.typOperace,
		TypUdrzby:  f.typUdrzby,
		Year:       f.year,
		Month:      f.month,
	}
}
