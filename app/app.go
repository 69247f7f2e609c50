package app

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"Gin_postgres_redis_equipment_tool/config"
	"Gin_postgres_redis_equipment_tool/db"
	"Gin_postgres_redis_equipment_tool/locks"
	"Gin_postgres_redis_equipment_tool/notify"
	"Gin_postgres_redis_equipment_tool/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// short aliases for handlers
type Ctx = gin.Context
type H = gin.H

// App holds the process-wide dependencies.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Repo   *db.Repo
	Config Config

	appSess *session.AppSessionStore
}

// Config is read from the environment once at startup.
type Config struct {
	RedisAddr        string
	RedisPwd         string
	WebOrigin        string
	SessionTTL       time.Duration
	BootstrapManager string
	SeedReference    bool
	SweepInterval    time.Duration
	LockTTL          time.Duration
	LockWait         time.Duration
	SlackToken       string
	SlackChannel     string
	LogLevel         string
	CompanyID        string
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

func MustNew() *App {
	cfg := loadConfig()
	config.SetLevel(cfg.LogLevel)
	log := config.GetLogger()

	dbConn := db.ConnectDB()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis: ", err)
	}

	return New(cfg, dbConn, rdb)
}

// New wires the repository, notification sinks and router over open
// connections.
func New(cfg Config, dbConn *gorm.DB, rdb *redis.Client) *App {
	log := config.GetLogger()

	repo := db.NewRepo(dbConn, locks.NewRedis(rdb, cfg.LockTTL, cfg.LockWait), nil)
	repo.CompanyID = cfg.CompanyID
	sinks := notify.Fanout{notify.DBSink{DB: dbConn}, notify.LogSink{Log: log}}
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		sinks = append(sinks, notify.NewSlackSink(cfg.SlackToken, cfg.SlackChannel, repo.UserNames))
	}
	repo.Events = sinks

	r := gin.Default()
	useCORS(r, cfg.WebOrigin)
	useMetrics(r)

	return &App{
		Router:  r,
		DB:      dbConn,
		RDB:     rdb,
		Repo:    repo,
		Config:  cfg,
		appSess: session.NewAppSessionStore(rdb, cfg.SessionTTL),
	}
}

func (a *App) Close() { _ = a.RDB.Close() }

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}
	dur := func(k string, def time.Duration) time.Duration {
		if d, err := time.ParseDuration(get(k, "")); err == nil && d > 0 {
			return d
		}
		return def
	}

	ttl := 24 * time.Hour
	if sec, err := strconv.Atoi(get("SESSION_TTL_SECONDS", "")); err == nil && sec > 0 {
		ttl = time.Duration(sec) * time.Second
	}
	seed, err := strconv.ParseBool(get("SEED_REFERENCE_DATA", "true"))
	if err != nil {
		seed = true
	}

	return Config{
		RedisAddr:        get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:         os.Getenv("REDIS_PASSWORD"),
		WebOrigin:        get("WEB_ORIGIN", "http://localhost:5173"),
		SessionTTL:       ttl,
		BootstrapManager: strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_MANAGER"))),
		SeedReference:    seed,
		SweepInterval:    dur("SWEEP_INTERVAL", time.Hour),
		LockTTL:          dur("LOCK_TTL", 30*time.Second),
		LockWait:         dur("LOCK_WAIT", 5*time.Second),
		SlackToken:       os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannel:     os.Getenv("SLACK_CHANNEL"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		CompanyID:        os.Getenv("COMPANY_ID"),
	}
}
