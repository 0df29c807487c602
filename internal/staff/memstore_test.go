package staff

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gymflow/internal/apperr"
	"gymflow/internal/httpx"
)

type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
	creds map[uuid.UUID]*Credential
	seq   time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[uuid.UUID]*User),
		creds: make(map[uuid.UUID]*Credential),
		seq:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("Staff user not found.")
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*User, *Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Email == email {
			cp, cred := *u, *s.creds[id]
			return &cp, &cred, nil
		}
	}
	return nil, nil, apperr.NotFound("Staff user not found.")
}

func (s *memStore) Credential(_ context.Context, id uuid.UUID) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[id]
	if !ok {
		return nil, apperr.NotFound("Staff user not found.")
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, u *User, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperr.Conflict("A user with this email already exists.")
		}
	}
	s.seq = s.seq.Add(time.Minute)
	u.IsActive = true
	u.CreatedAt = s.seq
	cp, cred := *u, *c
	s.users[u.ID] = &cp
	s.creds[u.ID] = &cred
	return nil
}

func (s *memStore) UpdatePassword(_ context.Context, id uuid.UUID, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return apperr.NotFound("Staff user not found.")
	}
	cp := *c
	s.creds[id] = &cp
	return nil
}

func (s *memStore) ListActive(context.Context) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*User
	for _, u := range s.users {
		if u.IsActive {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) Deactivate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperr.NotFound("Staff user not found.")
	}
	u.IsActive = false
	return nil
}

func (s *memStore) CountOwners(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if u.IsActive && u.Role == httpx.RoleOwner {
			n++
		}
	}
	return n, nil
}
