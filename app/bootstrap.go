// app/bootstrap.go
package app

import (
	"context"

	"Gin_postgres_redis_equipment_tool/config"
	"Gin_postgres_redis_equipment_tool/db"
)

// Bootstrap seeds the reference locations and, when nobody can manage the
// system yet, creates the first manager and logs its access key once.
func Bootstrap(ctx context.Context, cfg Config, repo *db.Repo) {
	log := config.GetLogger().WithField("module", "bootstrap")

	if cfg.SeedReference {
		if err := repo.EnsureReferenceLocations(ctx); err != nil {
			config.LogError(repo.Log, "app", "Bootstrap", "seed reference locations", nil, err)
		}
	}

	if cfg.BootstrapManager == "" {
		return
	}
	n, err := repo.CountManagers(ctx)
	if err != nil {
		config.LogError(repo.Log, "app", "Bootstrap", "count managers", nil, err)
		return
	}
	if n > 0 {
		return
	}

	if u, err := repo.FindUserByUsername(ctx, cfg.BootstrapManager); err == nil {
		if err := repo.SetUserManager(ctx, u.ID, true); err != nil {
			config.LogError(repo.Log, "app", "Bootstrap", "promote manager", u.Username, err)
			return
		}
		key, err := repo.ResetAccessKey(ctx, u.ID)
		if err != nil {
			config.LogError(repo.Log, "app", "Bootstrap", "reset access key", u.Username, err)
			return
		}
		log.Warnf("[BOOTSTRAP] promoted %s to manager, access key: %s", u.Username, key)
		return
	}

	u, key, err := repo.CreateUser(ctx, db.UserInput{Username: cfg.BootstrapManager, IsManager: true})
	if err != nil {
		config.LogError(repo.Log, "app", "Bootstrap", "create manager", cfg.BootstrapManager, err)
		return
	}
	log.Warnf("[BOOTSTRAP] no manager found, created %s with access key: %s", u.Username, key)
}
