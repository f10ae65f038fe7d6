package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/usecase"
)

var errTxDone = errors.New("transaction already closed")

// Store is an in-memory ledger backend with serialized transactions. Each
// transaction works on a private copy that replaces the committed state on
// Commit, so a rolled back unit leaves no trace.
type Store struct {
	txMu sync.Mutex

	mu    sync.RWMutex
	state *memState

	faultMu sync.Mutex
	faults  map[string]*fault
	calls   map[string]int
}

type fault struct {
	skip int
	err  error
}

type memState struct {
	accounts   map[string]*domain.Account
	categories map[string]*domain.Category
	movements  map[string]*domain.Movement
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		state: &memState{
			accounts:   make(map[string]*domain.Account),
			categories: make(map[string]*domain.Category),
			movements:  make(map[string]*domain.Movement),
		},
		faults: make(map[string]*fault),
		calls:  make(map[string]int),
	}
}

// FailOn makes the repository method named method return err once it has
// been called skip times.
func (s *Store) FailOn(method string, skip int, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()

	s.faults[method] = &fault{skip: skip, err: err}
	s.calls[method] = 0
}

func (s *Store) check(method string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()

	f, ok := s.faults[method]
	if !ok {
		return nil
	}

	s.calls[method]++
	if s.calls[method] > f.skip {
		return f.err
	}

	return nil
}

// Begin starts a transaction. Transactions run one at a time.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.txMu.Lock()

	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()

	return &memTx{store: s, state: working}, nil
}

// Accounts returns the account repository view.
func (s *Store) Accounts() *AccountStore { return &AccountStore{s: s} }

// Categories returns the category repository view.
func (s *Store) Categories() *CategoryStore { return &CategoryStore{s: s} }

// Movements returns the movement repository view.
func (s *Store) Movements() *MovementStore { return &MovementStore{s: s} }

// AddAccount seeds a committed account.
func (s *Store) AddAccount(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[a.ID] = cloneAccount(a)
}

// AddCategory seeds a committed category.
func (s *Store) AddCategory(c *domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.state.categories[c.ID] = &cp
}

// RemoveCategory drops a category without touching its movements.
func (s *Store) RemoveCategory(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.categories, id)
}

// RemoveMovementRaw drops a movement without reversing its balance effect.
func (s *Store) RemoveMovementRaw(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.movements, id)
}

// PutMovement overwrites a committed movement without touching balances.
func (s *Store) PutMovement(m *domain.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.movements[m.ID] = cloneMovement(m)
}

// Account returns a committed account snapshot, or nil.
func (s *Store) Account(id string) *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.state.accounts[id]
	if !ok {
		return nil
	}
	return cloneAccount(a)
}

// Movement returns a committed movement snapshot, or nil.
func (s *Store) Movement(id string) *domain.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.state.movements[id]
	if !ok {
		return nil
	}
	return cloneMovement(m)
}

// MovementCount returns the number of committed movements.
func (s *Store) MovementCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.movements)
}

// CategoryByName returns the user's committed category with name, or nil.
func (s *Store) CategoryByName(userID, name string) *domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.state.categories {
		if c.UserID == userID && c.Name == name {
			cp := *c
			return &cp
		}
	}
	return nil
}

// SignedSum returns the signed sum of the account's committed movements.
func (s *Store) SignedSum(accountID string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.signedSum(accountID)
}

// view returns the transaction's working state, or the committed state
// read-locked until the returned func runs.
func (s *Store) view(tx usecase.Transaction) (*memState, func()) {
	if t, ok := tx.(*memTx); ok && t != nil {
		return t.state, func() {}
	}

	s.mu.RLock()
	return s.state, s.mu.RUnlock
}

type memTx struct {
	store *Store
	state *memState
	done  bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}

	if err := t.store.check("Commit"); err != nil {
		t.finish()
		return err
	}

	t.store.mu.Lock()
	t.store.state = t.state
	t.store.mu.Unlock()

	t.finish()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return errTxDone
	}

	t.finish()
	return nil
}

func (t *memTx) finish() {
	t.done = true
	t.store.txMu.Unlock()
}

func (st *memState) clone() *memState {
	cp := &memState{
		accounts:   make(map[string]*domain.Account, len(st.accounts)),
		categories: make(map[string]*domain.Category, len(st.categories)),
		movements:  make(map[string]*domain.Movement, len(st.movements)),
	}

	for id, a := range st.accounts {
		cp.accounts[id] = cloneAccount(a)
	}

	for id, c := range st.categories {
		c := *c
		cp.categories[id] = &c
	}

	for id, m := range st.movements {
		cp.movements[id] = cloneMovement(m)
	}

	return cp
}

func (st *memState) signedSum(accountID string) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range st.movements {
		if m.AccountID == accountID {
			sum = sum.Add(m.SignedAmount())
		}
	}
	return sum
}

func cloneAccount(a *domain.Account) *domain.Account {
	cp := *a
	return &cp
}

func cloneMovement(m *domain.Movement) *domain.Movement {
	cp := *m
	if m.Notes != nil {
		notes := *m.Notes
		cp.Notes = &notes
	}
	if m.Transfer != nil {
		link := *m.Transfer
		cp.Transfer = &link
	}
	return &cp
}

// AccountStore implements usecase.AccountRepository over a Store.
type AccountStore struct{ s *Store }

func (r *AccountStore) Create(_ context.Context, account *domain.Account) error {
	if err := r.s.check("AccountCreate"); err != nil {
		return err
	}
	r.s.AddAccount(account)
	return nil
}

func (r *AccountStore) GetByID(_ context.Context, id, userID string) (*domain.Account, error) {
	st, done := r.s.view(nil)
	defer done()
	return st.ownedAccount(id, userID, false)
}

func (r *AccountStore) GetByIDTx(_ context.Context, tx usecase.Transaction, id, userID string) (*domain.Account, error) {
	st, done := r.s.view(tx)
	defer done()
	return st.ownedAccount(id, userID, false)
}

func (r *AccountStore) GetActiveForUpdate(_ context.Context, tx usecase.Transaction, id, userID string) (*domain.Account, error) {
	if err := r.s.check("GetActiveForUpdate"); err != nil {
		return nil, err
	}

	st, done := r.s.view(tx)
	defer done()
	return st.ownedAccount(id, userID, true)
}

func (r *AccountStore) GetActiveByIDsForUpdate(_ context.Context, tx usecase.Transaction, ids []string, userID string) ([]*domain.Account, error) {
	if err := r.s.check("GetActiveByIDsForUpdate"); err != nil {
		return nil, err
	}

	st, done := r.s.view(tx)
	defer done()

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	accounts := make([]*domain.Account, 0, len(sorted))
	for _, id := range sorted {
		if a, err := st.ownedAccount(id, userID, true); err == nil {
			accounts = append(accounts, a)
		}
	}
	return accounts, nil
}

func (r *AccountStore) IncrementBalance(_ context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) (decimal.Decimal, error) {
	if err := r.s.check("IncrementBalance"); err != nil {
		return decimal.Zero, err
	}

	st, done := r.s.view(tx)
	defer done()

	a, ok := st.accounts[id]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}

	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = updatedAt
	return a.Balance, nil
}

func (r *AccountStore) List(_ context.Context, limit, offset int) ([]*domain.Account, error) {
	st, done := r.s.view(nil)
	defer done()

	accounts := make([]*domain.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		accounts = append(accounts, cloneAccount(a))
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	return page(accounts, limit, offset), nil
}

func (st *memState) ownedAccount(id, userID string, activeOnly bool) (*domain.Account, error) {
	a, ok := st.accounts[id]
	if !ok || a.UserID != userID || (activeOnly && !a.Active) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	return cloneAccount(a), nil
}

// CategoryStore implements usecase.CategoryRepository over a Store.
type CategoryStore struct{ s *Store }

func (r *CategoryStore) GetForOwner(_ context.Context, tx usecase.Transaction, id, userID string, scope domain.CategoryScope) (*domain.Category, error) {
	st, done := r.s.view(tx)
	defer done()

	c, ok := st.categories[id]
	if !ok || c.UserID != userID || c.Scope != scope {
		return nil, fmt.Errorf("%w: %s", domain.ErrCategoryNotFound, id)
	}

	cp := *c
	return &cp, nil
}

func (r *CategoryStore) GetByName(_ context.Context, tx usecase.Transaction, userID, name string) (*domain.Category, error) {
	st, done := r.s.view(tx)
	defer done()

	for _, c := range st.categories {
		if c.UserID == userID && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCategoryNotFound
}

func (r *CategoryStore) Create(_ context.Context, tx usecase.Transaction, category *domain.Category) error {
	if err := r.s.check("CategoryCreate"); err != nil {
		return err
	}

	st, done := r.s.view(tx)
	defer done()

	for _, c := range st.categories {
		if c.UserID == category.UserID && c.Name == category.Name {
			return nil
		}
	}

	cp := *category
	st.categories[category.ID] = &cp
	return nil
}

// MovementStore implements usecase.MovementRepository over a Store.
type MovementStore struct{ s *Store }

func (r *MovementStore) Create(_ context.Context, tx usecase.Transaction, movement *domain.Movement) error {
	if err := r.s.check("MovementCreate"); err != nil {
		return err
	}

	st, done := r.s.view(tx)
	defer done()

	st.movements[movement.ID] = cloneMovement(movement)
	return nil
}

func (r *MovementStore) GetByID(_ context.Context, id, userID string) (*domain.Movement, error) {
	st, done := r.s.view(nil)
	defer done()
	return st.ownedMovement(id, userID)
}

func (r *MovementStore) GetByIDForUpdate(_ context.Context, tx usecase.Transaction, id, userID string) (*domain.Movement, error) {
	st, done := r.s.view(tx)
	defer done()
	return st.ownedMovement(id, userID)
}

func (r *MovementStore) GetWithPairForUpdate(_ context.Context, tx usecase.Transaction, id, userID string) ([]*domain.Movement, error) {
	st, done := r.s.view(tx)
	defer done()

	m, err := st.ownedMovement(id, userID)
	if errors.Is(err, domain.ErrMovementNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := []*domain.Movement{m}
	if m.Transfer != nil && m.Transfer.PairID != "" {
		if pair, err := st.ownedMovement(m.Transfer.PairID, userID); err == nil {
			out = append(out, pair)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MovementStore) GetDetail(_ context.Context, id, userID string) (*domain.MovementDetail, error) {
	st, done := r.s.view(nil)
	defer done()

	m, err := st.ownedMovement(id, userID)
	if err != nil {
		return nil, err
	}
	return st.detail(m), nil
}

func (r *MovementStore) Update(_ context.Context, tx usecase.Transaction, movement *domain.Movement) error {
	if err := r.s.check("MovementUpdate"); err != nil {
		return err
	}

	st, done := r.s.view(tx)
	defer done()

	if _, ok := st.movements[movement.ID]; !ok {
		return domain.ErrMovementNotFound
	}

	st.movements[movement.ID] = cloneMovement(movement)
	return nil
}

func (r *MovementStore) SetPairID(_ context.Context, tx usecase.Transaction, id, pairID string, updatedAt time.Time) error {
	if err := r.s.check("SetPairID"); err != nil {
		return err
	}

	st, done := r.s.view(tx)
	defer done()

	m, ok := st.movements[id]
	if !ok || m.Transfer == nil {
		return domain.ErrMovementNotFound
	}

	m.Transfer.PairID = pairID
	m.UpdatedAt = updatedAt
	return nil
}

func (r *MovementStore) Delete(_ context.Context, tx usecase.Transaction, id string) error {
	if err := r.s.check("MovementDelete"); err != nil {
		return err
	}

	st, done := r.s.view(tx)
	defer done()

	if _, ok := st.movements[id]; !ok {
		return domain.ErrMovementNotFound
	}

	delete(st.movements, id)
	return nil
}

func (r *MovementStore) List(_ context.Context, userID string, filter domain.MovementFilter, limit, offset int) ([]*domain.MovementDetail, error) {
	st, done := r.s.view(nil)
	defer done()

	matched := st.match(userID, filter)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	details := make([]*domain.MovementDetail, 0, len(matched))
	for _, m := range page(matched, limit, offset) {
		details = append(details, st.detail(m))
	}
	return details, nil
}

func (r *MovementStore) Count(_ context.Context, userID string, filter domain.MovementFilter) (int64, error) {
	st, done := r.s.view(nil)
	defer done()
	return int64(len(st.match(userID, filter))), nil
}

func (r *MovementStore) Totals(_ context.Context, userID string, filter domain.MovementFilter) (decimal.Decimal, decimal.Decimal, error) {
	st, done := r.s.view(nil)
	defer done()

	inflow, outflow := decimal.Zero, decimal.Zero
	for _, m := range st.match(userID, filter) {
		if m.IsTransfer() {
			continue
		}
		if m.Direction == domain.DirectionInflow {
			inflow = inflow.Add(m.Amount)
		} else {
			outflow = outflow.Add(m.Amount)
		}
	}
	return inflow, outflow, nil
}

func (r *MovementStore) CategoryBreakdown(_ context.Context, userID string, from, to time.Time) ([]domain.CategoryTotal, error) {
	st, done := r.s.view(nil)
	defer done()

	byCategory := make(map[string]*domain.CategoryTotal)
	for _, m := range st.match(userID, domain.MovementFilter{Direction: domain.DirectionOutflow, From: &from, To: &to}) {
		total, ok := byCategory[m.CategoryID]
		if !ok {
			total = &domain.CategoryTotal{CategoryID: m.CategoryID, Total: decimal.Zero}
			if c, ok := st.categories[m.CategoryID]; ok {
				total.Name, total.Icon, total.Color = c.Name, c.Icon, c.Color
			}
			byCategory[m.CategoryID] = total
		}
		total.Total = total.Total.Add(m.Amount)
		total.Count++
	}

	totals := make([]domain.CategoryTotal, 0, len(byCategory))
	for _, t := range byCategory {
		totals = append(totals, *t)
	}
	return totals, nil
}

func (r *MovementStore) SumByAccount(_ context.Context, accountID string) (decimal.Decimal, error) {
	st, done := r.s.view(nil)
	defer done()
	return st.signedSum(accountID), nil
}

func (st *memState) ownedMovement(id, userID string) (*domain.Movement, error) {
	m, ok := st.movements[id]
	if !ok || m.UserID != userID {
		return nil, fmt.Errorf("%w: %s", domain.ErrMovementNotFound, id)
	}
	return cloneMovement(m), nil
}

func (st *memState) match(userID string, f domain.MovementFilter) []*domain.Movement {
	var out []*domain.Movement
	for _, m := range st.movements {
		switch {
		case m.UserID != userID:
		case f.AccountID != "" && m.AccountID != f.AccountID:
		case f.CategoryID != "" && m.CategoryID != f.CategoryID:
		case f.ExcludesTransfers() && (m.IsTransfer() || m.Direction != f.Direction):
		case f.From != nil && m.OccurredAt.Before(*f.From):
		case f.To != nil && m.OccurredAt.After(*f.To):
		default:
			out = append(out, cloneMovement(m))
		}
	}
	return out
}

func (st *memState) detail(m *domain.Movement) *domain.MovementDetail {
	detail := &domain.MovementDetail{Movement: m}

	if a, ok := st.accounts[m.AccountID]; ok {
		detail.Account = a.Summary()
	}

	if c, ok := st.categories[m.CategoryID]; ok {
		summary := c.Summary()
		detail.Category = &summary
	}

	if m.Transfer != nil && m.Transfer.PairID != "" {
		if pair, ok := st.movements[m.Transfer.PairID]; ok {
			detail.Pair = &domain.PairSummary{
				MovementID: pair.ID,
				AccountID:  pair.AccountID,
				Direction:  pair.Direction,
			}
		}
	}

	return detail
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}

	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var (
	_ usecase.TransactionManager = (*Store)(nil)
	_ usecase.AccountRepository  = (*AccountStore)(nil)
	_ usecase.CategoryRepository = (*CategoryStore)(nil)
	_ usecase.MovementRepository = (*MovementStore)(nil)
)
