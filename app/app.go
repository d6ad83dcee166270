package app

import (
	"context"
	"os"
	"strings"
	"time"

	"farmops/db"
	"farmops/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Log    *Logger
	Config Config

	appSess *session.AppSessionStore
	reqIDs  *session.IdempotencyStore
}

// Config 从环境变量读取
type Config struct {
	RedisAddr      string
	RedisPwd       string
	WebOrigin      string
	SessionTTL     time.Duration
	RequestIDTTL   time.Duration
	AdminUsernames []string
	BootstrapAdmin string
	LogMode        string
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) RequestIDs() *session.IdempotencyStore { return a.reqIDs }

func MustNew() *App {
	cfg := loadConfig()

	logger, err := NewLogger(cfg.LogMode)
	if err != nil {
		panic(err)
	}

	dbConn := db.ConnectDB()

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping failed", "err", err)
	}

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)
	a := &App{
		Router: r, DB: dbConn, RDB: rdb, Log: logger, Config: cfg,
		appSess: session.NewAppSessionStore(rdb, cfg.SessionTTL),
		reqIDs:  session.NewIdempotencyStore(rdb, cfg.RequestIDTTL),
	}
	return a
}

func (a *App) Close() {
	_ = a.RDB.Close()
	a.Log.Sync()
}

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}
	ttlSec := get("SESSION_TTL_SECONDS", "86400")
	ttl := 24 * time.Hour
	if d, err := time.ParseDuration(ttlSec + "s"); err == nil {
		ttl = d
	}
	reqSec := get("REQUEST_ID_TTL_SECONDS", "86400")
	reqTTL := 24 * time.Hour
	if d, err := time.ParseDuration(reqSec + "s"); err == nil {
		reqTTL = d
	}
	adminsCSV := os.Getenv("ADMIN_USERNAMES") // 例如: "alice,bob"
	var admins []string
	for _, s := range strings.Split(adminsCSV, ",") {
		if t := strings.TrimSpace(s); t != "" {
			admins = append(admins, strings.ToLower(t))
		}
	}
	return Config{
		RedisAddr:      get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:       os.Getenv("REDIS_PASSWORD"),
		WebOrigin:      get("WEB_ORIGIN", "http://localhost:5173"),
		SessionTTL:     ttl,
		RequestIDTTL:   reqTTL,
		AdminUsernames: admins,
		BootstrapAdmin: os.Getenv("BOOTSTRAP_ADMIN"),
		LogMode:        get("LOG_MODE", "dev"),
	}
}
