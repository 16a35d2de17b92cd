// Package memory provides the in-memory store used for development and
// tests. It owns the five collections of the engine (billing period,
// categories, transactions, goals, closed-period snapshots) plus the
// single-slot undo buffer, all scoped per user.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/errs"
)

// Store is guarded by an RWMutex for concurrent reads/writes. Values
// are copied on the way in and out so callers never share backing maps.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]struct{}
	periods      map[uuid.UUID]budget.BillingPeriod
	categories   map[uuid.UUID][]budget.Category
	goals        map[uuid.UUID][]budget.Goal
	transactions map[uuid.UUID][]budget.Transaction
	closed       map[uuid.UUID][]budget.ClosedPeriodSnapshot
	lastDeleted  map[uuid.UUID]*budget.DeletedItem
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]struct{}),
		periods:      make(map[uuid.UUID]budget.BillingPeriod),
		categories:   make(map[uuid.UUID][]budget.Category),
		goals:        make(map[uuid.UUID][]budget.Goal),
		transactions: make(map[uuid.UUID][]budget.Transaction),
		closed:       make(map[uuid.UUID][]budget.ClosedPeriodSnapshot),
		lastDeleted:  make(map[uuid.UUID]*budget.DeletedItem),
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedUser(u budget.User) { s.mu.Lock(); s.users[u.ID] = struct{}{}; s.mu.Unlock() }

func (s *Store) Reset() {
	s.mu.Lock()
	s.users = map[uuid.UUID]struct{}{}
	s.periods = map[uuid.UUID]budget.BillingPeriod{}
	s.categories = map[uuid.UUID][]budget.Category{}
	s.goals = map[uuid.UUID][]budget.Goal{}
	s.transactions = map[uuid.UUID][]budget.Transaction{}
	s.closed = map[uuid.UUID][]budget.ClosedPeriodSnapshot{}
	s.lastDeleted = map[uuid.UUID]*budget.DeletedItem{}
	s.mu.Unlock()
}

func cloneCategory(c budget.Category) budget.Category {
	out := c
	if c.MonthlyBudgets != nil {
		out.MonthlyBudgets = make(map[int]money.Amount, len(c.MonthlyBudgets))
		for k, v := range c.MonthlyBudgets {
			out.MonthlyBudgets[k] = v
		}
	}
	return out
}

func cloneGoal(g budget.Goal) budget.Goal {
	out := g
	out.Metadata = g.Metadata.Clone()
	return out
}

func cloneTransaction(t budget.Transaction) budget.Transaction {
	out := t
	out.Metadata = t.Metadata.Clone()
	return out
}

// --- Billing period ---

// BillingPeriod returns the stored period for a user, or ErrNotFound
// when the user has none yet.
func (s *Store) BillingPeriod(_ context.Context, userID uuid.UUID) (budget.BillingPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.periods[userID]
	if !ok {
		return budget.BillingPeriod{}, errs.ErrNotFound
	}
	return p, nil
}

// SaveBillingPeriod replaces the user's period.
func (s *Store) SaveBillingPeriod(_ context.Context, p budget.BillingPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[p.UserID] = p
	return nil
}

// --- Categories ---

// Categories returns the user's categories ordered by their display order.
func (s *Store) Categories(_ context.Context, userID uuid.UUID) ([]budget.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.categories[userID]
	out := make([]budget.Category, 0, len(src))
	for _, c := range src {
		out = append(out, cloneCategory(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c budget.Category) (budget.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.UserID] = append(s.categories[c.UserID], cloneCategory(c))
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c budget.Category) (budget.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.categories[c.UserID]
	for i := range list {
		if list[i].ID == c.ID {
			list[i] = cloneCategory(c)
			return c, nil
		}
	}
	return budget.Category{}, errs.ErrNotFound
}

// ReplaceCategories swaps the whole collection, used when reordering
// renormalizes every order value.
func (s *Store) ReplaceCategories(_ context.Context, userID uuid.UUID, cats []budget.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]budget.Category, 0, len(cats))
	for _, c := range cats {
		out = append(out, cloneCategory(c))
	}
	s.categories[userID] = out
	return nil
}

// --- Goals ---

func (s *Store) Goals(_ context.Context, userID uuid.UUID) ([]budget.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.goals[userID]
	out := make([]budget.Goal, 0, len(src))
	for _, g := range src {
		out = append(out, cloneGoal(g))
	}
	return out, nil
}

func (s *Store) CreateGoal(_ context.Context, g budget.Goal) (budget.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.UserID] = append(s.goals[g.UserID], cloneGoal(g))
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, g budget.Goal) (budget.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.goals[g.UserID]
	for i := range list {
		if list[i].ID == g.ID {
			list[i] = cloneGoal(g)
			return g, nil
		}
	}
	return budget.Goal{}, errs.ErrNotFound
}

func (s *Store) DeleteGoal(_ context.Context, userID uuid.UUID, goalID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.goals[userID]
	for i := range list {
		if list[i].ID == goalID {
			s.goals[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

// --- Transactions ---

func (s *Store) Transactions(_ context.Context, userID uuid.UUID) ([]budget.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.transactions[userID]
	out := make([]budget.Transaction, 0, len(src))
	for _, t := range src {
		out = append(out, cloneTransaction(t))
	}
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, t budget.Transaction) (budget.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[t.UserID] = append(s.transactions[t.UserID], cloneTransaction(t))
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t budget.Transaction) (budget.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.transactions[t.UserID]
	for i := range list {
		if list[i].ID == t.ID {
			list[i] = cloneTransaction(t)
			return t, nil
		}
	}
	return budget.Transaction{}, errs.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, userID uuid.UUID, txID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.transactions[userID]
	for i := range list {
		if list[i].ID == txID {
			s.transactions[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

// DeleteTransactionsForGoal removes every transaction referencing the
// goal and returns the removed set in stored order.
func (s *Store) DeleteTransactionsForGoal(_ context.Context, userID uuid.UUID, goalID int64) ([]budget.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.transactions[userID]
	kept := make([]budget.Transaction, 0, len(list))
	removed := make([]budget.Transaction, 0)
	for _, t := range list {
		if t.GoalID == goalID && (t.Kind == budget.KindGoalDeposit || t.Kind == budget.KindGoalWithdrawal) {
			removed = append(removed, cloneTransaction(t))
			continue
		}
		kept = append(kept, t)
	}
	s.transactions[userID] = kept
	return removed, nil
}

// --- Closed periods ---

func (s *Store) ClosedPeriods(_ context.Context, userID uuid.UUID) ([]budget.ClosedPeriodSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.closed[userID]
	out := make([]budget.ClosedPeriodSnapshot, 0, len(src))
	for _, snap := range src {
		cp := snap
		cp.CategoryTotals = append([]budget.CategoryTotal(nil), snap.CategoryTotals...)
		out = append(out, cp)
	}
	return out, nil
}

// AppendClosedPeriod writes a snapshot. Snapshots are insert-only;
// there is no update or delete path.
func (s *Store) AppendClosedPeriod(_ context.Context, snap budget.ClosedPeriodSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := snap
	cp.CategoryTotals = append([]budget.CategoryTotal(nil), snap.CategoryTotals...)
	s.closed[snap.UserID] = append(s.closed[snap.UserID], cp)
	return nil
}

// --- Undo buffer ---

// StashDeleted overwrites the user's undo slot with item.
func (s *Store) StashDeleted(_ context.Context, userID uuid.UUID, item budget.DeletedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := item
	if item.Transaction != nil {
		t := cloneTransaction(*item.Transaction)
		cp.Transaction = &t
	}
	if item.Goal != nil {
		g := cloneGoal(*item.Goal)
		cp.Goal = &g
	}
	if item.GoalTransactions != nil {
		cp.GoalTransactions = make([]budget.Transaction, 0, len(item.GoalTransactions))
		for _, t := range item.GoalTransactions {
			cp.GoalTransactions = append(cp.GoalTransactions, cloneTransaction(t))
		}
	}
	s.lastDeleted[userID] = &cp
	return nil
}

// TakeDeleted returns the buffered item and clears the slot. The second
// return is false when the buffer is empty.
func (s *Store) TakeDeleted(_ context.Context, userID uuid.UUID) (budget.DeletedItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.lastDeleted[userID]
	if item == nil {
		return budget.DeletedItem{}, false, nil
	}
	s.lastDeleted[userID] = nil
	return *item, true, nil
}
