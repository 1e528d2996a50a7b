package repository

import (
	"context"
	"sync"
	"time"

	"resume_rewards/internal/domain"

	"github.com/google/uuid"
)

// MemoryLedger is an in-process LedgerStore for tests, the CLI and
// LEDGER_BACKEND=memory. Apply holds a per-account mutex for the whole
// plan and the global lock only while committing.
type MemoryLedger struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]*domain.Account
	codes        map[string]uuid.UUID
	transactions map[uuid.UUID]*domain.Transaction
	journal      map[uuid.UUID][]*domain.Transaction
	activities   map[uuid.UUID][]domain.Activity
	refunded     map[uuid.UUID]bool

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts:     make(map[uuid.UUID]*domain.Account),
		codes:        make(map[string]uuid.UUID),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		journal:      make(map[uuid.UUID][]*domain.Transaction),
		activities:   make(map[uuid.UUID][]domain.Activity),
		refunded:     make(map[uuid.UUID]bool),
		locks:        make(map[uuid.UUID]*sync.Mutex),
	}
}

var _ LedgerStore = (*MemoryLedger)(nil)

func (m *MemoryLedger) Ping(ctx context.Context) error {
	return ctx.Err()
}

// SchemaVersion is always 0: the memory store has no migrations.
func (m *MemoryLedger) SchemaVersion(ctx context.Context) (uint, bool, error) {
	return 0, false, ctx.Err()
}

func (m *MemoryLedger) lockFor(id uuid.UUID) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *MemoryLedger) CreateAccount(ctx context.Context, acc *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[acc.ID]; ok {
		return domain.ErrConcurrentUpdate
	}
	if acc.ReferralCode != "" {
		if _, taken := m.codes[acc.ReferralCode]; taken {
			return domain.ErrReferralCodeTaken
		}
		m.codes[acc.ReferralCode] = acc.ID
	}
	m.accounts[acc.ID] = acc.Clone()
	return nil
}

func (m *MemoryLedger) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (m *MemoryLedger) FindByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrInvalidCode
	}
	return m.accounts[id].Clone(), nil
}

func (m *MemoryLedger) SetReferralCode(ctx context.Context, id uuid.UUID, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return "", domain.ErrAccountNotFound
	}
	if a.ReferralCode != "" {
		return a.ReferralCode, nil
	}
	if _, taken := m.codes[code]; taken {
		return "", domain.ErrReferralCodeTaken
	}
	a.ReferralCode = code
	m.codes[code] = id
	return code, nil
}

func (m *MemoryLedger) Apply(ctx context.Context, id uuid.UUID, fn MutateFunc) (*domain.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := m.lockFor(id)
	l.Lock()
	defer l.Unlock()

	before, err := m.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	working := before.Clone()
	ch, err := fn(working)
	if err != nil {
		return nil, err
	}
	if err := Finalize(before, working, ch); err != nil {
		return nil, err
	}

	if err := m.commit(working, ch); err != nil {
		return nil, err
	}
	ch.Account = working.Clone()
	return ch, nil
}

// commit checks the cross-account constraints and publishes the new state.
func (m *MemoryLedger) commit(working *domain.Account, ch *domain.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.accounts[working.ID]

	if tx := ch.Transaction; tx != nil && tx.Type == domain.TxRefund && tx.RelatedTransactionID != nil {
		if m.refunded[*tx.RelatedTransactionID] {
			return domain.ErrAlreadyRefunded
		}
	}

	var referred *domain.Account
	if link := ch.Referral; link != nil {
		if link.ReferrerID == link.ReferredID {
			return domain.ErrSelfReferral
		}
		var ok bool
		referred, ok = m.accounts[link.ReferredID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if referred.ReferredBy != nil {
			return domain.ErrAlreadyReferred
		}
		if stored.ReferredBy != nil && *stored.ReferredBy == link.ReferredID {
			return domain.ErrMutualReferral
		}
	}

	// Referral fields belong to the referral statements, not to the plan.
	working.ReferralCode = stored.ReferralCode
	working.ReferredBy = stored.ReferredBy

	if referred != nil {
		ref := ch.Referral.ReferrerID
		referred.ReferredBy = &ref
	}
	m.accounts[working.ID] = working.Clone()

	if tx := ch.Transaction; tx != nil {
		m.transactions[tx.ID] = tx
		m.journal[working.ID] = append(m.journal[working.ID], tx)
		if tx.Type == domain.TxRefund && tx.RelatedTransactionID != nil {
			m.refunded[*tx.RelatedTransactionID] = true
		}
	}
	m.activities[working.ID] = append(m.activities[working.ID], ch.Activities...)
	return nil
}

func (m *MemoryLedger) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *MemoryLedger) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	limit, offset = clampPage(limit, offset)

	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.journal[accountID]
	out := []*domain.Transaction{}
	// newest first
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		cp := *all[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryLedger) SumTransactions(ctx context.Context, accountID uuid.UUID) (int64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum int64
	for _, tx := range m.journal[accountID] {
		sum += tx.Amount
	}
	return sum, len(m.journal[accountID]), nil
}

func (m *MemoryLedger) IsRefunded(ctx context.Context, txID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refunded[txID], nil
}

func (m *MemoryLedger) ListActivities(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Activity, int, error) {
	limit, offset = clampPage(limit, offset)

	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.activities[accountID]
	out := []domain.Activity{}
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, len(all), nil
}

// scores must be called with mu held.
func (m *MemoryLedger) scores(since *time.Time) []domain.Standing {
	out := make([]domain.Standing, 0, len(m.accounts))
	for _, a := range m.accounts {
		s := domain.Standing{AccountID: a.ID, Name: a.Name, Level: a.Level, CreatedAt: a.CreatedAt}
		if since == nil {
			s.Score = a.Balance
		} else {
			for _, tx := range m.journal[a.ID] {
				if tx.Type.IsEarning() && !tx.CreatedAt.Before(*since) {
					s.Score += tx.Amount
				}
			}
		}
		out = append(out, s)
	}
	return out
}

func (m *MemoryLedger) Standings(ctx context.Context, since *time.Time, limit int) ([]domain.Standing, error) {
	m.mu.RLock()
	all := m.scores(since)
	m.mu.RUnlock()

	domain.SortStandings(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryLedger) RankOf(ctx context.Context, id uuid.UUID, since *time.Time) (domain.RankedStanding, error) {
	m.mu.RLock()
	all := m.scores(since)
	m.mu.RUnlock()

	var (
		self  *domain.Standing
		above int
	)
	for i := range all {
		if all[i].AccountID == id {
			self = &all[i]
		}
	}
	if self == nil {
		return domain.RankedStanding{}, domain.ErrAccountNotFound
	}
	for _, s := range all {
		if s.Score > self.Score {
			above++
		}
	}
	return domain.RankedStanding{Rank: above + 1, Standing: *self}, nil
}

func (m *MemoryLedger) CountAccounts(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts), nil
}
