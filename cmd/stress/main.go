package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		addr     string
		username string
		password string
		cfg      = stressConfig{
			Workers:   200,
			Stock:     500,
			Price:     10,
			Zarizeni:  "HSH",
			ChaosMs:   50,
			Duration:  2 * time.Minute,
			StatEvery: 2 * time.Second,
		}
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Parallel dispatch stress test for one stock item",
		Long: `Receives --stock pieces on an item and dispatches them one by one
from --workers goroutines until the stock runs out. Afterwards checks
that the final quantity and the audit log match the successful dispatches.
Exits with code 2 when a lost update or an oversell is detected.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SKLAD_PASSWORD")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🔥 СТРЕСС-ТЕСТ РАСХОДОВ\n")
			fmt.Fprintf(out, "🌐 HTTP API: %s\n", addr)

			c := newAPIClient(addr)
			loginCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := c.login(loginCtx, username, password); err != nil {
				return err
			}

			res, err := runStress(ctx, c, cfg, out)
			if err != nil {
				return err
			}
			printResult(out, res)
			if len(res.Violations) > 0 {
				os.Exit(2)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr, "addr", "http://localhost:8080", "Server base URL")
	f.StringVarP(&username, "user", "u", "admin", "Username (needs change_sklad and add_auditlog)")
	f.StringVarP(&password, "password", "p", "", "Password (default: $SKLAD_PASSWORD)")
	f.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Concurrent goroutines")
	f.IntVar(&cfg.Stock, "stock", cfg.Stock, "Pieces received before the test")
	f.Float64Var(&cfg.Price, "price", cfg.Price, "Unit price of the receipt")
	f.StringVar(&cfg.Zarizeni, "zarizeni", cfg.Zarizeni, "Equipment code for dispatches")
	f.IntVar(&cfg.ChaosMs, "chaos-ms", cfg.ChaosMs, "Max random pause between requests")
	f.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Time limit")
	f.UintVar(&cfg.ItemID, "item", 0, "Existing item id (default: create one)")
	f.DurationVar(&cfg.StatEvery, "stats", cfg.StatEvery, "Progress interval, 0 to disable")
	return cmd
}
