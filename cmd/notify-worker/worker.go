package main

import (
	"log"

	"tenderportal/db"
	"tenderportal/internal/config"
	"tenderportal/internal/notify"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// notify-worker consumes tender-created tasks and writes the notification fan-out.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}
	if cfg.Redis.Addr == "" {
		log.Fatal("REDIS_ADDR is required for the notify worker")
	}

	dbConn, err := sqlx.Connect("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	store := db.NewStorage(dbConn)
	handler := notify.NewTaskHandler(notify.NewNotifier(store))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{Concurrency: cfg.Queue.Concurrency},
	)
	mux := asynq.NewServeMux()
	handler.Register(mux)

	log.Printf("Starting notify worker (concurrency=%d)", cfg.Queue.Concurrency)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
}
