package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// stressConfig параметры одного прогона
type stressConfig struct {
	Workers   int
	Stock     int           // Сколько штук принять перед тестом
	Price     float64       // Цена прихода
	Zarizeni  string        // Код оборудования для расходов
	ChaosMs   int           // Верхняя граница случайной паузы между запросами
	Duration  time.Duration // Предел длительности
	ItemID    uint          // 0 = создать новую позицию
	StatEvery time.Duration // Период вывода промежуточной статистики, 0 = не выводить
}

// stressStats счетчики прогона
type stressStats struct {
	total        int64
	success      int64
	insufficient int64 // Отказы из-за нехватки остатка (ожидаемые)
	failed       int64 // Прочие ошибки
	concurrent   int64
	startTime    time.Time
}

// stressResult итог прогона с проверкой согласованности
type stressResult struct {
	ItemID     uint
	Stock      int
	Success    int64
	Rejected   int64
	Failed     int64
	Final      int
	Logged     int64
	Duration   time.Duration
	Violations []string
}

// runStress принимает Stock штук на позицию и расходует ее по одной штуке
// из Workers горутин, пока остаток не кончится. Затем сверяет остаток и журнал.
func runStress(ctx context.Context, c *apiClient, cfg stressConfig, out io.Writer) (*stressResult, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	id := cfg.ItemID
	if id == 0 {
		item, err := c.createItem(ctx, fmt.Sprintf("Stress test %s", time.Now().Format("2006-01-02 15:04:05")))
		if err != nil {
			return nil, fmt.Errorf("create item: %w", err)
		}
		id = item.EvidencniCislo
		fmt.Fprintf(out, "📦 Создана позиция %d\n", id)
	}
	dodavatelID, err := c.createSupplier(ctx, fmt.Sprintf("Stress %d", time.Now().UnixNano()))
	if err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	if err := c.receipt(ctx, id, cfg.Stock, cfg.Price, dodavatelID); err != nil {
		return nil, fmt.Errorf("receipt: %w", err)
	}
	before, err := c.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	loggedBefore, err := c.countDispatches(ctx, id)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "🔥 Запуск %d горутин, остаток %d шт.\n", cfg.Workers, before.Mnozstvi)
	stats := &stressStats{startTime: time.Now()}

	statsCtx, stopStats := context.WithCancel(ctx)
	if cfg.StatEvery > 0 {
		go func() {
			ticker := time.NewTicker(cfg.StatEvery)
			defer ticker.Stop()
			for {
				select {
				case <-statsCtx.Done():
					return
				case <-ticker.C:
					stats.print(out)
				}
			}
		}()
	}

	var depleted int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
		g.Go(func() error {
			for atomic.LoadInt32(&depleted) == 0 {
				if gctx.Err() != nil {
					return nil
				}
				chaoticSleep(gctx, rnd, cfg.ChaosMs)

				atomic.AddInt64(&stats.concurrent, 1)
				err := c.dispatch(gctx, id, 1, cfg.Zarizeni)
				atomic.AddInt64(&stats.concurrent, -1)
				atomic.AddInt64(&stats.total, 1)

				var apiErr *apiError
				switch {
				case err == nil:
					atomic.AddInt64(&stats.success, 1)
				case errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest:
					// Нехватка остатка: позиция израсходована
					atomic.AddInt64(&stats.insufficient, 1)
					atomic.StoreInt32(&depleted, 1)
				case gctx.Err() != nil:
					return nil
				default:
					atomic.AddInt64(&stats.failed, 1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	stopStats()
	stats.print(out)

	// Проверка идет уже без таймаута прогона
	checkCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	after, err := c.getItem(checkCtx, id)
	if err != nil {
		return nil, fmt.Errorf("final read: %w", err)
	}
	loggedAfter, err := c.countDispatches(checkCtx, id)
	if err != nil {
		return nil, fmt.Errorf("audit count: %w", err)
	}

	res := &stressResult{
		ItemID:   id,
		Stock:    before.Mnozstvi,
		Success:  atomic.LoadInt64(&stats.success),
		Rejected: atomic.LoadInt64(&stats.insufficient),
		Failed:   atomic.LoadInt64(&stats.failed),
		Final:    after.Mnozstvi,
		Logged:   loggedAfter - loggedBefore,
		Duration: time.Since(stats.startTime),
	}
	res.Violations = verify(res)
	return res, nil
}

// verify сверяет остаток и журнал с числом успешных расходов
func verify(r *stressResult) []string {
	var out []string
	if r.Final < 0 {
		out = append(out, fmt.Sprintf("отрицательный остаток: %d", r.Final))
	}
	if want := int64(r.Stock) - r.Success; int64(r.Final) != want {
		out = append(out, fmt.Sprintf("остаток %d, ожидалось %d (потерянные обновления)", r.Final, want))
	}
	if r.Logged != r.Success {
		out = append(out, fmt.Sprintf("в журнале %d расходов, успешных ответов %d", r.Logged, r.Success))
	}
	if r.Success > int64(r.Stock) {
		out = append(out, fmt.Sprintf("выдано %d шт. при остатке %d", r.Success, r.Stock))
	}
	return out
}

func chaoticSleep(ctx context.Context, rnd *rand.Rand, maxMs int) {
	if maxMs <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(rnd.Intn(maxMs+1)) * time.Millisecond):
	}
}

func (s *stressStats) print(out io.Writer) {
	elapsed := time.Since(s.startTime).Seconds()
	if elapsed == 0 {
		return
	}
	total := atomic.LoadInt64(&s.total)
	fmt.Fprintf(out, "⏱️  %.1fs | Всего: %d | ✅ Успешно: %d | 📭 Нет остатка: %d | ❌ Ошибок: %d | 🔥 Параллельно: %d | RPS: %.1f\n",
		elapsed, total,
		atomic.LoadInt64(&s.success),
		atomic.LoadInt64(&s.insufficient),
		atomic.LoadInt64(&s.failed),
		atomic.LoadInt64(&s.concurrent),
		float64(total)/elapsed)
}

func printResult(out io.Writer, r *stressResult) {
	fmt.Fprintf(out, "\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(out, "🏁 СТРЕСС-ТЕСТ РАСХОДОВ ОКОНЧЕН (позиция %d)\n", r.ItemID)
	fmt.Fprintf(out, "⏱️  Время работы: %v\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "📦 Остаток до: %d, после: %d\n", r.Stock, r.Final)
	fmt.Fprintf(out, "✅ Успешных расходов: %d, в журнале: %d\n", r.Success, r.Logged)
	fmt.Fprintf(out, "📭 Отказов по остатку: %d, ❌ прочих ошибок: %d\n", r.Rejected, r.Failed)
	if len(r.Violations) == 0 {
		fmt.Fprintf(out, "🟢 Race conditions не обнаружены\n")
	}
	for _, v := range r.Violations {
		fmt.Fprintf(out, "🚨 %s\n", v)
	}
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
}
