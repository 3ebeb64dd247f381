package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// memStore backs every repository with maps. Rows fetched "for update" are
// locked until the owning transaction ends, and writes made inside a
// transaction are undone on rollback, so the services see the same
// isolation they get from PostgreSQL row locks.
type memStore struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]*domain.Account
	ledger    []domain.WalletTransaction
	vehicles  map[uuid.UUID]*domain.Vehicle
	orders    map[uuid.UUID]*domain.Order
	vReviews  map[uuid.UUID]*domain.VehicleReview
	idReviews map[uuid.UUID]*domain.VerificationReview
	messages  []domain.OrderMessage
	oReviews  []domain.OrderReview
	idemp     map[string]*domain.IdempotencyLog
	audits    []domain.AuditLog

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[uuid.UUID]*domain.Account),
		vehicles:  make(map[uuid.UUID]*domain.Vehicle),
		orders:    make(map[uuid.UUID]*domain.Order),
		vReviews:  make(map[uuid.UUID]*domain.VehicleReview),
		idReviews: make(map[uuid.UUID]*domain.VerificationReview),
		idemp:     make(map[string]*domain.IdempotencyLog),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *memStore) rowLock(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

// write applies a mutation under the store lock and registers its inverse
// with tx, when there is one.
func (s *memStore) write(tx pgx.Tx, apply func(), undo func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply()
	if t, ok := tx.(*memTx); ok && t != nil {
		t.undo = append(t.undo, undo)
	}
}

// lockFor takes the row lock for key on behalf of tx.
func lockFor(tx pgx.Tx, key string) {
	if t, ok := tx.(*memTx); ok && t != nil {
		t.lockRow(key)
	}
}

func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// --- Transactions ---

type memTransactor struct{ s *memStore }

func (t memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{store: t.s, held: make(map[string]*sync.Mutex)}, nil
}

type memTx struct {
	store *memStore
	mu    sync.Mutex
	held  map[string]*sync.Mutex
	undo  []func()
	done  bool
}

func (t *memTx) lockRow(key string) {
	t.mu.Lock()
	_, owned := t.held[key]
	t.mu.Unlock()
	if owned {
		return
	}
	m := t.store.rowLock(key)
	m.Lock()
	t.mu.Lock()
	t.held[key] = m
	t.mu.Unlock()
}

func (t *memTx) finish(commit bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	if !commit {
		t.store.mu.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		t.store.mu.Unlock()
	}
	for _, m := range t.held {
		m.Unlock()
	}
	t.held = nil
	t.undo = nil
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { return t.finish(true) }
func (t *memTx) Rollback(ctx context.Context) error        { return t.finish(false) }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- Accounts ---

type memAccountRepo struct{ s *memStore }

func (r memAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.accounts {
		if existing.Username == a.Username {
			return ports.ErrDuplicate
		}
	}
	cp := *a
	r.s.accounts[a.ID] = &cp
	return nil
}

func (r memAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r memAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	lockFor(tx, "account:"+id.String())
	return r.GetByID(ctx, id)
}

// update replaces the stored account with mutate applied to a copy.
func (r memAccountRepo) update(tx pgx.Tx, id uuid.UUID, mutate func(a *domain.Account)) {
	var prev *domain.Account
	r.s.write(tx, func() {
		cur, ok := r.s.accounts[id]
		if !ok {
			return
		}
		prev = cur
		next := *cur
		mutate(&next)
		next.UpdatedAt = time.Now().UTC()
		r.s.accounts[id] = &next
	}, func() {
		if prev != nil {
			r.s.accounts[id] = prev
		}
	})
}

func (r memAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	r.update(tx, id, func(a *domain.Account) { a.Balance = balance })
	return nil
}

func (r memAccountRepo) UpdatePaymentPassword(ctx context.Context, tx pgx.Tx, id uuid.UUID, hash string) error {
	r.update(tx, id, func(a *domain.Account) { a.PaymentPasswordHash = &hash })
	return nil
}

func (r memAccountRepo) UpdateVerification(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.VerificationStatus, realName, idNumber *string) error {
	r.update(tx, id, func(a *domain.Account) {
		a.VerificationStatus = status
		if realName != nil {
			a.RealName = realName
		}
		if idNumber != nil {
			a.IDNumber = idNumber
		}
	})
	return nil
}

// --- Wallet ledger ---

type memLedgerRepo struct{ s *memStore }

func (r memLedgerRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	r.s.write(tx, func() {
		r.s.ledger = append(r.s.ledger, *entry)
	}, func() {
		for i := range r.s.ledger {
			if r.s.ledger[i].ID == entry.ID {
				r.s.ledger = append(r.s.ledger[:i], r.s.ledger[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r memLedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.WalletTransaction
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		if r.s.ledger[i].AccountID == accountID {
			result = append(result, r.s.ledger[i])
		}
	}
	return paginate(result, page, pageSize), int64(len(result)), nil
}

// --- Vehicles ---

type memVehicleRepo struct{ s *memStore }

func (r memVehicleRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Vehicle) error {
	cp := *v
	r.s.write(tx, func() { r.s.vehicles[v.ID] = &cp }, func() { delete(r.s.vehicles, v.ID) })
	return nil
}

func (r memVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r memVehicleRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Vehicle, error) {
	lockFor(tx, "vehicle:"+id.String())
	return r.GetByID(ctx, id)
}

func (r memVehicleRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.VehicleStatus, at time.Time) error {
	var prev *domain.Vehicle
	r.s.write(tx, func() {
		cur, ok := r.s.vehicles[id]
		if !ok {
			return
		}
		prev = cur
		next := *cur
		next.Status = status
		switch status {
		case domain.VehicleStatusListed:
			next.ListedAt = &at
		case domain.VehicleStatusSold:
			next.SoldAt = &at
		}
		next.UpdatedAt = at
		r.s.vehicles[id] = &next
	}, func() {
		if prev != nil {
			r.s.vehicles[id] = prev
		}
	})
	return nil
}

func (r memVehicleRepo) List(ctx context.Context, params ports.VehicleListParams) ([]domain.Vehicle, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Vehicle
	for _, v := range r.s.vehicles {
		if params.Status != nil && v.Status != *params.Status {
			continue
		}
		if params.SellerID != nil && v.SellerID != *params.SellerID {
			continue
		}
		if params.Brand != "" && v.Brand != params.Brand {
			continue
		}
		if params.MinPrice != nil && v.Price.LessThan(*params.MinPrice) {
			continue
		}
		if params.MaxPrice != nil && v.Price.GreaterThan(*params.MaxPrice) {
			continue
		}
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return paginate(result, params.Page, params.PageSize), int64(len(result)), nil
}

// --- Orders ---

type memOrderRepo struct{ s *memStore }

func (r memOrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	cp := *o
	r.s.write(tx, func() { r.s.orders[o.ID] = &cp }, func() { delete(r.s.orders, o.ID) })
	return nil
}

func (r memOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r memOrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	lockFor(tx, "order:"+id.String())
	return r.GetByID(ctx, id)
}

func (r memOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	next := *o
	var prev *domain.Order
	r.s.write(tx, func() {
		prev = r.s.orders[o.ID]
		r.s.orders[o.ID] = &next
	}, func() {
		if prev != nil {
			r.s.orders[o.ID] = prev
		}
	})
	return nil
}

func (r memOrderRepo) HasActiveForVehicle(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.orders {
		if o.VehicleID == vehicleID && !o.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r memOrderRepo) List(ctx context.Context, params ports.OrderListParams) ([]domain.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Order
	for _, o := range r.s.orders {
		switch {
		case params.Party != nil && *params.Party == domain.PartyBuyer:
			if o.BuyerID != params.AccountID {
				continue
			}
		case params.Party != nil && *params.Party == domain.PartySeller:
			if o.SellerID != params.AccountID {
				continue
			}
		default:
			if !o.IsParticipant(params.AccountID) {
				continue
			}
		}
		if params.Status != nil && o.Status != *params.Status {
			continue
		}
		result = append(result, *o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return paginate(result, params.Page, params.PageSize), int64(len(result)), nil
}

func (r memOrderRepo) GetSellerStats(ctx context.Context, sellerID uuid.UUID, since *time.Time) (*ports.OrderStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := &ports.OrderStats{TotalRevenue: decimal.Zero}
	for _, o := range r.s.orders {
		if o.SellerID != sellerID {
			continue
		}
		if since != nil && o.CreatedAt.Before(*since) {
			continue
		}
		stats.TotalOrders++
		switch o.Status {
		case domain.OrderStatusPendingPayment:
			stats.PendingPayment++
		case domain.OrderStatusPaid:
			stats.Paid++
		case domain.OrderStatusCompleted:
			stats.Completed++
			stats.TotalRevenue = stats.TotalRevenue.Add(o.Price)
		case domain.OrderStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// --- Admin reviews ---

type memReviewRepo struct{ s *memStore }

func (r memReviewRepo) CreateVehicleReview(ctx context.Context, tx pgx.Tx, review *domain.VehicleReview) error {
	cp := *review
	r.s.write(tx, func() { r.s.vReviews[review.ID] = &cp }, func() { delete(r.s.vReviews, review.ID) })
	return nil
}

func (r memReviewRepo) GetVehicleReviewForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.VehicleReview, error) {
	lockFor(tx, "vehicle_review:"+id.String())
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	review, ok := r.s.vReviews[id]
	if !ok {
		return nil, nil
	}
	cp := *review
	return &cp, nil
}

func (r memReviewRepo) UpdateVehicleReview(ctx context.Context, tx pgx.Tx, review *domain.VehicleReview) error {
	next := *review
	var prev *domain.VehicleReview
	r.s.write(tx, func() {
		prev = r.s.vReviews[review.ID]
		r.s.vReviews[review.ID] = &next
	}, func() {
		if prev != nil {
			r.s.vReviews[review.ID] = prev
		}
	})
	return nil
}

func (r memReviewRepo) ListVehicleReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VehicleReview, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.VehicleReview
	for _, review := range r.s.vReviews {
		if status != nil && review.Status != *status {
			continue
		}
		result = append(result, *review)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return paginate(result, page, pageSize), int64(len(result)), nil
}

func (r memReviewRepo) CreateVerificationReview(ctx context.Context, tx pgx.Tx, review *domain.VerificationReview) error {
	cp := *review
	r.s.write(tx, func() { r.s.idReviews[review.ID] = &cp }, func() { delete(r.s.idReviews, review.ID) })
	return nil
}

func (r memReviewRepo) GetVerificationReviewForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.VerificationReview, error) {
	lockFor(tx, "verification_review:"+id.String())
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	review, ok := r.s.idReviews[id]
	if !ok {
		return nil, nil
	}
	cp := *review
	return &cp, nil
}

func (r memReviewRepo) UpdateVerificationReview(ctx context.Context, tx pgx.Tx, review *domain.VerificationReview) error {
	next := *review
	var prev *domain.VerificationReview
	r.s.write(tx, func() {
		prev = r.s.idReviews[review.ID]
		r.s.idReviews[review.ID] = &next
	}, func() {
		if prev != nil {
			r.s.idReviews[review.ID] = prev
		}
	})
	return nil
}

func (r memReviewRepo) ListVerificationReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VerificationReview, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.VerificationReview
	for _, review := range r.s.idReviews {
		if status != nil && review.Status != *status {
			continue
		}
		result = append(result, *review)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return paginate(result, page, pageSize), int64(len(result)), nil
}

// --- Order feedback ---

type memFeedbackRepo struct{ s *memStore }

func (r memFeedbackRepo) CreateMessage(ctx context.Context, msg *domain.OrderMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.messages = append(r.s.messages, *msg)
	return nil
}

func (r memFeedbackRepo) ListMessages(ctx context.Context, orderID uuid.UUID) ([]domain.OrderMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.OrderMessage{}
	for _, m := range r.s.messages {
		if m.OrderID == orderID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r memFeedbackRepo) CreateReview(ctx context.Context, review *domain.OrderReview) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.oReviews {
		if existing.OrderID == review.OrderID && existing.ReviewerID == review.ReviewerID {
			return ports.ErrDuplicate
		}
	}
	r.s.oReviews = append(r.s.oReviews, *review)
	return nil
}

func (r memFeedbackRepo) ListReviews(ctx context.Context, orderID uuid.UUID) ([]domain.OrderReview, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.OrderReview{}
	for _, rv := range r.s.oReviews {
		if rv.OrderID == orderID {
			result = append(result, rv)
		}
	}
	return result, nil
}

func (r memFeedbackRepo) HasReviewed(ctx context.Context, orderID, reviewerID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rv := range r.s.oReviews {
		if rv.OrderID == orderID && rv.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

// --- Idempotency and audit ---

type memIdempotencyRepo struct{ s *memStore }

func (r memIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.s.mu.RLock()
	_, exists := r.s.idemp[log.Key]
	r.s.mu.RUnlock()
	if exists {
		return ports.ErrDuplicate
	}
	cp := *log
	r.s.write(tx, func() { r.s.idemp[log.Key] = &cp }, func() { delete(r.s.idemp, log.Key) })
	return nil
}

func (r memIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.idemp[key]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

type memAuditRepo struct{ s *memStore }

func (r memAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

// balance reads an account balance straight from the store.
func (s *memStore) balance(id uuid.UUID) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[id].Balance
}

func (s *memStore) ledgerCount(id uuid.UUID, kind domain.LedgerKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.ledger {
		if e.AccountID == id && e.Kind == kind {
			n++
		}
	}
	return n
}

func (s *memStore) orderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *memStore) auditCount(action domain.AuditAction) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.audits {
		if a.Action == action {
			n++
		}
	}
	return n
}
