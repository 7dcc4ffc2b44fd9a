package connections

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/storage"
)

// Store tells the orchestrator which platforms a user is currently
// authorized against.
type Store interface {
	IsConnected(ctx context.Context, userID, platform string) (bool, error)
	ActivePlatforms(ctx context.Context, userID string) ([]string, error)
}

// RepositoryStore answers connection queries from persisted platform
// connections. A connection counts only while active with an unexpired token.
type RepositoryStore struct {
	repo storage.Repository
}

// NewStore creates a repository-backed connection store
func NewStore(repo storage.Repository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) IsConnected(ctx context.Context, userID, platform string) (bool, error) {
	conn, err := s.repo.GetConnection(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return conn.Connected(), nil
}

func (s *RepositoryStore) ActivePlatforms(ctx context.Context, userID string) ([]string, error) {
	conns, err := s.repo.ListConnections(ctx, userID)
	if err != nil {
		return nil, err
	}
	var platforms []string
	for _, conn := range conns {
		if conn.Connected() {
			platforms = append(platforms, conn.Platform)
		}
	}
	return platforms, nil
}
