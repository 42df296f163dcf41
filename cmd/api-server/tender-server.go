package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tenderportal/db"
	"tenderportal/db/migrations"
	"tenderportal/internal/auth"
	"tenderportal/internal/cache"
	"tenderportal/internal/config"
	"tenderportal/internal/handlers"
	"tenderportal/internal/jobs"
	"tenderportal/internal/mail"
	"tenderportal/internal/notify"
	"tenderportal/internal/storage"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := sqlx.Connect("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	if cfg.Database.MigrateOnStart {
		if err := migrations.Run(dbConn.DB); err != nil {
			log.Fatalf("Migrations failed: %v", err)
		}
	}

	store := db.NewStorage(dbConn)
	if err := auth.EnsureAdmin(ctx, store, cfg.Admin.Email, cfg.Admin.Password,
		cfg.Admin.FirstName, cfg.Admin.LastName, cfg.Auth.BcryptCost); err != nil {
		log.Fatalf("Cannot bootstrap admin: %v", err)
	}

	var tenderCache *cache.TenderCache
	if cfg.CacheEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		tenderCache = cache.NewTenderCache(rdb, cfg.Redis.CacheTTL)
	}

	var dispatcher notify.Dispatcher = notify.NewInlineDispatcher(notify.NewNotifier(store))
	if cfg.Queue.Enabled {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		dispatcher = notify.NewAsynqDispatcher(client, dispatcher)
	}

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.MailEnabled() {
		mailer = mail.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.SMTPUser, cfg.Email.SMTPPassword, cfg.Email.FromEmail)
	}

	deps := handlers.Deps{
		Tokens:     auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Identities: auth.NewDatabaseProvider(store),
		Cache:      tenderCache,
		Dispatcher: dispatcher,
		Mailer:     mailer,
		BcryptCost: cfg.Auth.BcryptCost,
	}
	if cfg.StorageEnabled() {
		docs, err := storage.NewMinioStore(cfg.Storage.Endpoint, cfg.Storage.AccessKey,
			cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
		if err != nil {
			log.Fatalf("Cannot create document store: %v", err)
		}
		if err := docs.EnsureBucket(ctx); err != nil {
			log.Fatalf("Cannot prepare bucket %s: %v", cfg.Storage.Bucket, err)
		}
		deps.Documents = docs
	}

	scheduler, err := jobs.NewScheduler(store, tenderCache, cfg.Jobs.CloseExpiredEvery)
	if err != nil {
		log.Fatalf("Cannot create scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Scheduler shutdown: %v", err)
		}
	}()

	h := handlers.NewHandler(store, deps)
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handlers.NewRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
