// Package server assembles the application: database, store, cache,
// simulation service, progress hub and the background run job.
package server

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/onnwee/tripletree/internal/api/handlers"
	"github.com/onnwee/tripletree/internal/cache"
	"github.com/onnwee/tripletree/internal/config"
	"github.com/onnwee/tripletree/internal/logger"
	"github.com/onnwee/tripletree/internal/simulation"
	"github.com/onnwee/tripletree/internal/store"
	"github.com/onnwee/tripletree/internal/utils"
)

type Server struct {
	DB      *sql.DB
	Store   *store.Store
	Cache   cache.Cache
	Hub     *handlers.Hub
	Service *simulation.Service
	job     *simulation.Job
	cfg     *config.Config
}

// InitDB opens the Postgres connection from DATABASE_URL, retrying while
// the database comes up.
func InitDB() (*sql.DB, error) {
	var conn *sql.DB
	err := utils.Retry(5, 2*time.Second, func() error {
		var err error
		conn, err = sql.Open("postgres", os.Getenv("DATABASE_URL"))
		if err != nil {
			return err
		}
		return conn.Ping()
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// NewServer wires the components together.
func NewServer(db *sql.DB, cfg *config.Config) (*Server, error) {
	st := store.New(db)

	resultCache, err := cache.NewLRU(cfg.CacheMaxSizeMB, cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	hub := handlers.NewHub()
	service := simulation.NewService(st, resultCache, hub)
	job := simulation.NewJob(service, cfg.JobInterval)

	return &Server{
		DB:      db,
		Store:   st,
		Cache:   resultCache,
		Hub:     hub,
		Service: service,
		job:     job,
		cfg:     cfg,
	}, nil
}

// Start creates the schema and launches the hub and the run job.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Store.Init(ctx); err != nil {
		return err
	}

	go s.Hub.Run(ctx)

	if s.cfg.DisableRunJob {
		logger.Info("background run job disabled")
		return nil
	}
	go s.job.Start(ctx)
	return nil
}
