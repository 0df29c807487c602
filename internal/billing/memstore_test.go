package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gymflow/internal/apperr"
	"gymflow/internal/membership"
	"gymflow/internal/membership/membershiptest"
)

// memStore serializes transactions and applies their writes on commit.
type memStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	payments []*Payment
	members  *membershiptest.Store

	// insertErr, when set, is returned by Tx.Insert.
	insertErr error
}

func newMemStore(members ...*membership.Member) *memStore {
	return &memStore{members: membershiptest.NewStore(members...)}
}

func (s *memStore) snapshot() []*Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Payment(nil), s.payments...)
}

func (s *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.payments = append(s.payments, tx.inserted...)
	s.mu.Unlock()
	for _, u := range tx.updates {
		if err := s.members.SetLifecycle(u.id, membership.StatusActive, u.due); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	for _, p := range s.snapshot() {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperr.NotFound("Payment not found.")
}

func (s *memStore) List(_ context.Context, f ListFilter) ([]*Payment, int, error) {
	var out []*Payment
	for _, p := range s.snapshot() {
		if f.MemberID != nil && (p.MemberID == nil || *p.MemberID != *f.MemberID) {
			continue
		}
		if f.Month != 0 && p.Month != f.Month {
			continue
		}
		if f.Year != 0 && p.Year != f.Year {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidDate.After(out[j].PaidDate) })
	total := len(out)
	start := min((f.Page-1)*f.Limit, total)
	end := min(start+f.Limit, total)
	return out[start:end], total, nil
}

func (s *memStore) RecentForMember(ctx context.Context, memberID uuid.UUID, limit int) ([]*Payment, error) {
	out, _, err := s.List(ctx, ListFilter{MemberID: &memberID, Page: 1, Limit: limit})
	return out, err
}

func (s *memStore) MonthlyRevenue(_ context.Context, year int) ([]MonthRevenue, error) {
	byMonth := map[int]*MonthRevenue{}
	for _, p := range s.snapshot() {
		if p.Year != year {
			continue
		}
		r, ok := byMonth[p.Month]
		if !ok {
			r = &MonthRevenue{Month: p.Month, Revenue: decimal.Zero}
			byMonth[p.Month] = r
		}
		r.Revenue = r.Revenue.Add(p.Amount)
		r.Count++
	}
	var out []MonthRevenue
	for _, r := range byMonth {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

type lifecycleUpdate struct {
	id  uuid.UUID
	due time.Time
}

type memTx struct {
	store    *memStore
	inserted []*Payment
	updates  []lifecycleUpdate
}

func (t *memTx) LockMember(_ context.Context, id uuid.UUID) (*Payer, error) {
	m := t.store.members.Get(id)
	if m == nil {
		return nil, apperr.NotFound("Member not found.")
	}
	return &Payer{ID: m.ID, FullName: m.FullName, Email: m.Email, Phone: m.Phone}, nil
}

func (t *memTx) all() []*Payment {
	return append(t.store.snapshot(), t.inserted...)
}

func (t *memTx) FindByMemberPeriod(_ context.Context, memberID uuid.UUID, month, year int) (*Payment, error) {
	for _, p := range t.all() {
		if p.MemberID != nil && *p.MemberID == memberID && p.Month == month && p.Year == year {
			return p, nil
		}
	}
	return nil, nil
}

func (t *memTx) MaxReceiptForPrefix(_ context.Context, periodPrefix string) (string, error) {
	latest := ""
	for _, p := range t.all() {
		if len(p.ReceiptNumber) > len(periodPrefix) && p.ReceiptNumber[:len(periodPrefix)+1] == periodPrefix+"-" {
			if latest == "" || receiptLess(latest, p.ReceiptNumber) {
				latest = p.ReceiptNumber
			}
		}
	}
	return latest, nil
}

func (t *memTx) Insert(_ context.Context, p *Payment, _ time.Time) error {
	if t.store.insertErr != nil {
		return t.store.insertErr
	}
	c := *p
	t.inserted = append(t.inserted, &c)
	return nil
}

func (t *memTx) UpdateMemberLifecycle(_ context.Context, memberID uuid.UUID, dueDate time.Time) error {
	t.updates = append(t.updates, lifecycleUpdate{id: memberID, due: dueDate})
	return nil
}
