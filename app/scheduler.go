package app

import (
	"context"
	"time"

	"Gin_postgres_redis_equipment_tool/config"
)

// StartSweeper runs the overdue/reminder sweep every SweepInterval until ctx
// is cancelled.
func (a *App) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(a.Config.SweepInterval)
	defer ticker.Stop()

	log := config.GetLogger().WithField("module", "sweeper")
	log.Infof("loan sweep started, every %s", a.Config.SweepInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweepOnce(ctx)
		}
	}
}

func (a *App) sweepOnce(ctx context.Context) {
	res, err := a.Repo.SweepLoans(ctx)
	if err != nil {
		config.LogError(a.Repo.Log, "app", "sweepOnce", "sweep loans", nil, err)
		return
	}
	if len(res.Overdue)+len(res.Reminded) > 0 {
		config.GetLogger().WithField("module", "sweeper").
			Infof("sweep: %d overdue, %d reminded", len(res.Overdue), len(res.Reminded))
	}
}
