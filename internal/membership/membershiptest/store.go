// Package membershiptest provides an in-memory membership.Store for tests.
package membershiptest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gymflow/internal/apperr"
	"gymflow/internal/membership"
)

// Store is a concurrency-safe in-memory membership.Store.
type Store struct {
	mu      sync.Mutex
	members map[uuid.UUID]*membership.Member
	nextNum int

	// Err, when set, is returned by every method.
	Err error
}

func NewStore(members ...*membership.Member) *Store {
	s := &Store{members: make(map[uuid.UUID]*membership.Member)}
	for _, m := range members {
		s.Put(m)
	}
	return s
}

// Put inserts or replaces m without any validation.
func (s *Store) Put(m *membership.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.MemberNumber == 0 {
		s.nextNum++
		m.MemberNumber = s.nextNum
	}
	c := *m
	s.members[m.ID] = &c
}

// Get returns a copy of the stored member, or nil.
func (s *Store) Get(id uuid.UUID) *membership.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil
	}
	c := *m
	return &c
}

// SetLifecycle mutates status and due date the way a payment does.
func (s *Store) SetLifecycle(id uuid.UUID, status membership.Status, due time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return apperr.NotFound("Member not found.")
	}
	m.Status = status
	m.DueDate = due
	return nil
}

func (s *Store) Create(_ context.Context, m *membership.Member) error {
	if s.Err != nil {
		return s.Err
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	s.Put(m)
	return nil
}

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*membership.Member, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if m := s.Get(id); m != nil {
		return m, nil
	}
	return nil, apperr.NotFound("Member not found.")
}

func (s *Store) List(_ context.Context, f membership.ListFilter) ([]*membership.Member, int, error) {
	if s.Err != nil {
		return nil, 0, s.Err
	}
	var out []*membership.Member
	for _, m := range s.sorted() {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Search != "" && !matches(m, f.Search) {
			continue
		}
		out = append(out, m)
	}
	total := len(out)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (s *Store) Update(_ context.Context, m *membership.Member) error {
	if s.Err != nil {
		return s.Err
	}
	if s.Get(m.ID) == nil {
		return apperr.NotFound("Member not found.")
	}
	m.UpdatedAt = time.Now()
	s.Put(m)
	return nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return apperr.NotFound("Member not found.")
	}
	delete(s.members, id)
	return nil
}

func (s *Store) FindDueOn(_ context.Context, date time.Time) ([]*membership.Member, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*membership.Member
	for _, m := range s.sorted() {
		if m.Status == membership.StatusActive && sameDate(m.DueDate, date) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) FindByBirthday(_ context.Context, month, day int) ([]*membership.Member, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*membership.Member
	for _, m := range s.sorted() {
		if m.Birthday != nil && int(m.Birthday.Month()) == month && m.Birthday.Day() == day {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) ExpireOverdue(_ context.Context, before time.Time) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.members {
		if m.Status == membership.StatusActive && dateBefore(m.DueDate, before) {
			m.Status = membership.StatusExpired
			n++
		}
	}
	return n, nil
}

func (s *Store) sorted() []*membership.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*membership.Member, 0, len(s.members))
	for _, m := range s.members {
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberNumber < out[j].MemberNumber })
	return out
}

func matches(m *membership.Member, q string) bool {
	q = strings.ToLower(q)
	fields := []string{m.FullName, m.Phone}
	if m.NIC != nil {
		fields = append(fields, *m.NIC)
	}
	if m.Email != nil {
		fields = append(fields, *m.Email)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
