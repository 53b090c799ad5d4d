package api

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"hpmsklad/server/internal/models"
)

type podMinimemChecker interface {
	CheckPodMinimem(ctx context.Context) (all []models.Sklad, added []models.Sklad, err error)
}

// LowStockWorker периодически пересчитывает позиции под минимумом
// и рассылает в ленту те, что попали туда с прошлой проверки
type LowStockWorker struct {
	checker  podMinimemChecker
	hub      *Hub
	interval time.Duration
	checks   int64
}

// NewLowStockWorker создает воркер проверки минимумов
func NewLowStockWorker(checker podMinimemChecker, hub *Hub, interval time.Duration) *LowStockWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &LowStockWorker{checker: checker, hub: hub, interval: interval}
}

// Run проверяет сразу и затем по таймеру, пока не отменен ctx
func (w *LowStockWorker) Run(ctx context.Context) error {
	log.Printf("⏰ Проверка позиций под минимумом запущена (каждые %v)", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *LowStockWorker) check(ctx context.Context) {
	all, added, err := w.checker.CheckPodMinimem(ctx)
	atomic.AddInt64(&w.checks, 1)
	if err != nil {
		log.Printf("⚠️ Ошибка проверки минимумов: %v", err)
	}
	if len(added) > 0 {
		log.Printf("📦 Под минимумом %d позиций, новых %d", len(all), len(added))
		w.hub.BroadcastPodMinimem(added)
	}
}

// Checks количество выполненных проверок
func (w *LowStockWorker) Checks() int64 {
	return atomic.LoadInt64(&w.checks)
}
