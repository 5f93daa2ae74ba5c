package memory

import (
	"context"
	"sort"
	"strings"

	"eventplanner/internal/domain"
)

type userRepository struct {
	store *Store
}

// NewUserRepository returns a domain.UserRepository backed by s.
func NewUserRepository(s *Store) domain.UserRepository {
	return &userRepository{store: s}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return domain.ErrDuplicateEmail
	}
	row := &userRow{
		id:           s.newID(),
		email:        email,
		name:         u.Name,
		passwordHash: u.PasswordHash,
		salt:         u.Salt,
		createdAt:    u.CreatedAt,
		updatedAt:    u.UpdatedAt,
	}
	s.users[row.id] = row
	s.byEmail[email] = row.id
	u.ID = row.id
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return toUser(s.users[id]), nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return toUser(row), nil
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*domain.User, 0, len(s.users))
	for _, row := range s.users {
		users = append(users, toUser(row))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func toUser(row *userRow) *domain.User {
	return &domain.User{
		ID:           row.id,
		Email:        row.email,
		Name:         row.name,
		PasswordHash: row.passwordHash,
		Salt:         row.salt,
		CreatedAt:    row.createdAt,
		UpdatedAt:    row.updatedAt,
	}
}
