package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
	"github.com/redis/go-redis/v9"
)

// Status reports backend reachability.
type Status struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

// Stats holds catalog counters.
type Stats struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// AppService answers health and usage queries.
type AppService struct {
	db          *sql.DB
	redis       redis.Cmdable
	repomanager repomanager.RepositoryManager
}

func NewAppService(db *sql.DB, rdb redis.Cmdable, m repomanager.RepositoryManager) *AppService {
	return &AppService{db: db, redis: rdb, repomanager: m}
}

func (s *AppService) Status(ctx context.Context) Status {
	return Status{
		Redis: s.redis.Ping(ctx).Err() == nil,
		DB:    s.db.PingContext(ctx) == nil,
	}
}

func (s *AppService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.repomanager.Users(s.db).Count(ctx)
	if err != nil {
		return nil, err
	}
	files, err := s.repomanager.Files(s.db).Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Users: users, Files: files}, nil
}
