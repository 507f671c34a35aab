package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/user-directory/internal/domain"
)

// memoryUserRepository keeps users in process memory, in insertion order.
// Used when no database is configured and in tests.
type memoryUserRepository struct {
	mu    sync.RWMutex
	order []string
	users map[string]domain.User
	now   func() time.Time
}

// NewInMemoryUserRepository returns an in-memory implementation seeded with users.
func NewInMemoryUserRepository(seed ...domain.User) UserRepository {
	repo := &memoryUserRepository{
		users: make(map[string]domain.User, len(seed)),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, u := range seed {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		repo.order = append(repo.order, u.ID)
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(user.Email, "") {
		return ErrDuplicateEmail
	}
	now := r.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.order = append(r.order, user.ID)
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if r.emailTaken(user.Email, user.ID) {
		return ErrDuplicateEmail
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.now()
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *memoryUserRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *memoryUserRepository) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}
	if offset < 0 {
		offset = 0
	}
	result := []domain.User{}
	for i := offset; i < len(r.order) && len(result) < limit; i++ {
		result = append(result, r.users[r.order[i]])
	}
	return result, nil
}

func (r *memoryUserRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order), nil
}

func (r *memoryUserRepository) SearchByName(_ context.Context, term string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(term)
	result := []domain.User{}
	for _, id := range r.order {
		user := r.users[id]
		if strings.Contains(strings.ToLower(user.FirstName), needle) ||
			strings.Contains(strings.ToLower(user.LastName), needle) {
			result = append(result, user)
		}
	}
	return result, nil
}

func (r *memoryUserRepository) ListAll(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.users[id])
	}
	return result, nil
}

// emailTaken must be called with the lock held.
func (r *memoryUserRepository) emailTaken(email, exceptID string) bool {
	for id, user := range r.users {
		if id != exceptID && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}
