package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"invenflow.org/internal/account"
	"invenflow.org/internal/auth"
	"invenflow.org/internal/config"
	"invenflow.org/internal/httpapi"
	"invenflow.org/internal/inventory"
	"invenflow.org/internal/mailer"
	"invenflow.org/internal/obs"
	"invenflow.org/internal/store/pg"
	"invenflow.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	ready := httpapi.ReadyProbe{}

	// Inventory lives in Postgres; without a DSN the in-memory fallback
	// keeps local development going.
	var inv inventory.Service = inventory.NewInMemory()
	var pgStore *pg.Store
	if cfg.PostgresDSN != "" {
		pgStore, err = pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		inv = pgStore
		ready.DB = pgStore.DB()
	} else if cfg.IsProduction() {
		log.Fatal("INVENFLOW_PG_DSN is required in production")
	}

	// Account state lives in Redis for its transactional consume semantics.
	var accStore account.Store = account.NewMemory()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		accStore = account.NewRedisStore(rdb)
		ready.Redis = rdb
	} else if cfg.IsProduction() {
		log.Fatal("INVENFLOW_REDIS_ADDR is required in production")
	}

	var sender mailer.Sender
	if cfg.SendGridKey != "" {
		sender = mailer.NewSendGrid(cfg.SendGridKey, cfg.MailFromName, cfg.MailFromAddr, !cfg.IsProduction())
	} else {
		sender = &mailer.LogSender{Logger: obs.Logger()}
	}

	accounts := account.NewService(accStore, sender)
	sessions := auth.NewIssuer([]byte(cfg.JWTSecret))
	saleStream := stream.New()

	api := httpapi.New(httpapi.Options{
		Accounts:      accounts,
		Sessions:      sessions,
		Inventory:     inv,
		Stream:        saleStream,
		Ready:         ready,
		Version:       version,
		SecureCookies: cfg.IsProduction(),
		UnlockSecret:  cfg.UnlockSecret,
		LowStockMin:   cfg.LowStockMin,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting invenflow-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Println("Stopped")
}
