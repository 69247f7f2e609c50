package app

import (
	"time"

	"Gin_postgres_redis_equipment_tool/config"
	"Gin_postgres_redis_equipment_tool/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchLastSeen stamps last_seen_at at most once per throttle window.
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")
		if uid == "" {
			c.Next()
			return
		}

		key := "eqm:lastseen:" + uid
		if ok, _ := rdb.SetNX(c, key, "1", throttle).Result(); ok {
			if err := repo.TouchUserSeen(c, uid); err != nil {
				config.LogError(repo.Log, "app", "TouchLastSeen", "update last seen", uid, err)
			}
		}
		c.Next()
	}
}
