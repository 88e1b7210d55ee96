package memory

import (
	"context"
	"sync"

	"travel_auth/internal/models"
	"travel_auth/internal/storage"
)

// Storage is an in-process credential store with the same contract as the
// postgres repository, including atomic email uniqueness. Used by tests
// and local runs without a database.
type Storage struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]int64
	byID    map[int64]models.User
}

func New() *Storage {
	return &Storage{
		byEmail: make(map[string]int64),
		byID:    make(map[int64]models.User),
	}
}

func (s *Storage) SaveUser(_ context.Context, email, username string, passHash []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return 0, storage.ErrUserExists
	}

	s.nextID++
	u := models.User{
		ID:       s.nextID,
		Email:    email,
		Username: username,
		PassHash: append([]byte(nil), passHash...),
	}

	s.byEmail[email] = u.ID
	s.byID[u.ID] = u

	return u.ID, nil
}

func (s *Storage) User(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return s.byID[id], nil
}

func (s *Storage) UserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (s *Storage) SetEmailVerified(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.IsVerified = true
	s.byID[id] = u

	return nil
}

func (s *Storage) SetPasswordHash(_ context.Context, id int64, passHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.PassHash = append([]byte(nil), passHash...)
	s.byID[id] = u

	return nil
}

func (s *Storage) UpdateProfile(_ context.Context, id int64, patch models.ProfilePatch) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.ProfileImg != nil {
		u.ProfileImg = *patch.ProfileImg
	}

	s.byID[id] = u

	return u, nil
}
