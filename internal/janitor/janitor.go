// janitor периодически удаляет просроченные refresh-токены из хранилища.
// Работает вне пути запроса и ограничивает рост реестра сессий.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/metrics"
)

// Sweeper удаляет записи с expires_at < now и возвращает их число.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// Janitor - фоновая задача очистки.
type Janitor struct {
	sweeper Sweeper
	period  time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// New создаёт Janitor. now == nil - используется time.Now.
func New(sweeper Sweeper, period time.Duration, log *slog.Logger, now func() time.Time) *Janitor {
	if now == nil {
		now = time.Now
	}

	return &Janitor{
		sweeper: sweeper,
		period:  period,
		log:     log,
		now:     now,
	}
}

// Run выполняет RunOnce раз в period до отмены ctx. Блокирует вызывающего.
func (j *Janitor) Run(ctx context.Context) {
	if j.period <= 0 {
		return
	}

	t := time.NewTicker(j.period)
	defer t.Stop()

	j.log.Info("refresh_janitor_started", slog.Duration("period", j.period))

	for {
		select {
		case <-ctx.Done():
			j.log.Info("refresh_janitor_stopped")
			return
		case <-t.C:
			_, _ = j.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет одну очистку.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	n, err := j.sweeper.Sweep(ctx, j.now().UTC())
	if err != nil {
		j.log.Error("refresh_janitor_failed", slog.String("err", err.Error()))
		return 0, err
	}

	if n > 0 {
		metrics.ReaperDeletedTotal.Add(float64(n))
		j.log.Info("refresh_janitor_swept", slog.Int64("deleted", n))
	}

	return n, nil
}
