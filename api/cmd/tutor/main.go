package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/joho/godotenv"

	"ap-tutor/api/internal/cache"
	"ap-tutor/api/internal/config"
	"ap-tutor/api/internal/handle"
	"ap-tutor/api/internal/kv"
	"ap-tutor/api/internal/store"
	"ap-tutor/api/internal/tutor"
	"ap-tutor/api/internal/tutor/gemini"
	"ap-tutor/api/internal/tutor/remote"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	} else if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = "8000"
	}

	ctx := context.Background()

	// --- keyed storage: Postgres при наличии DSN, иначе память ---
	var kvs kv.Store = kv.NewMemory()
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("sql.Open: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			log.Fatalf("db.Ping: %v", err)
		}
		pg := kv.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("kv schema: %v", err)
		}
		kvs = pg
		log.Print("db connected, durable storage enabled")
	}

	c := cache.New(cache.WithDurable(kvs))
	sessions := store.NewSessionRepo(kvs)

	engines := &tutor.Engines{}
	if cfg.InferenceBaseURL != "" {
		engines.Remote = remote.New(cfg.InferenceBaseURL)
	}
	if cfg.GeminiAPIKey != "" {
		g, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("gemini: %v", err)
		}
		defer g.Close()
		engines.Gemini = g
	}

	h := handle.New(engines, c, sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/v1/tutor/workflow", h.Workflow)
	mux.HandleFunc("/v1/tutor/quick-check", h.QuickCheck)
	mux.HandleFunc("/v1/tutor/improvement", h.Improvement)
	mux.HandleFunc("/v1/tutor/problem", h.Problem)
	mux.HandleFunc("/v1/tutor/disabilities", h.Disabilities)
	mux.HandleFunc("/v1/tutor/adaptive", h.Adaptive)
	mux.HandleFunc("/v1/tutor/sessions", h.Sessions)
	mux.HandleFunc("/v1/tutor/sessions/", h.Sessions)

	addr := ":" + cfg.Port
	log.Printf("ap-tutor listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
