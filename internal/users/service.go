package users

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
)

// Service holds the in-memory user directory snapshot consumed by audit
// enrichment and the query views.
type Service interface {
	Load(ctx context.Context) error
	Directory() []models.User
	UserByID(id uuid.UUID) (models.User, bool)
}

type directoryRepository interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

type service struct {
	repo directoryRepository

	mu    sync.RWMutex
	users []models.User
	byID  map[uuid.UUID]models.User
}

// NewService constructs a user directory service.
func NewService(repo directoryRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	return &service{repo: repo, byID: map[uuid.UUID]models.User{}}, nil
}

// Load replaces the directory snapshot wholesale.
func (s *service) Load(ctx context.Context) error {
	users, err := s.repo.ListAll(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list users")
	}

	sortDirectory(users)

	byID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	s.mu.Lock()
	s.users = users
	s.byID = byID
	s.mu.Unlock()
	return nil
}

// Directory returns the current snapshot sorted by display name.
func (s *service) Directory() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out
}

// UserByID resolves a user from the snapshot only.
func (s *service) UserByID(id uuid.UUID) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	return u, ok
}

// sortDirectory orders regular and placeholder users together by name so the
// merged list reads as one directory.
func sortDirectory(users []models.User) {
	sort.SliceStable(users, func(i, j int) bool {
		a := strings.ToLower(users[i].DisplayName())
		b := strings.ToLower(users[j].DisplayName())
		if a == b {
			return users[i].ID.String() < users[j].ID.String()
		}
		return a < b
	})
}
