package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
	"github.com/lavanya11112/SEPROJECT/internal/observ"
	"github.com/shopspring/decimal"
)

type OpKind string

const (
	OpFetch  OpKind = "fetch"
	OpAdd    OpKind = "add"
	OpUpdate OpKind = "update"
	OpRemove OpKind = "remove"
	OpClear  OpKind = "clear"
)

type OpState string

const (
	OpIssued    OpState = "issued"
	OpConfirmed OpState = "confirmed"
	OpRejected  OpState = "rejected"
)

// CartOp records one backend round trip. Local state is only touched when an
// op reaches OpConfirmed.
type CartOp struct {
	Kind   OpKind
	ItemID string
	State  OpState
	Err    error
	At     time.Time
}

// CartSessions hands out one CartSession per user. Sessions idle for longer
// than ttl are dropped and reloaded from the backend on next use.
type CartSessions struct {
	repo CartRepo
	menu MenuRepo
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	sessions  map[string]*CartSession
	lastSweep time.Time
}

func NewCartSessions(repo CartRepo, menu MenuRepo, ttl time.Duration) *CartSessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CartSessions{
		repo:     repo,
		menu:     menu,
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*CartSession{},
	}
}

// Open returns the user's session, fetching the cart on first use.
func (s *CartSessions) Open(ctx context.Context, userID string) (*CartSession, error) {
	if userID == "" {
		return nil, domain.ErrAuthRequired
	}

	s.mu.Lock()
	now := s.now()
	s.sweepLocked(now)
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &CartSession{userID: userID, repo: s.repo, menu: s.menu}
		s.sessions[userID] = sess
	}
	sess.lastUsed = now
	s.mu.Unlock()

	if err := sess.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// Drop forgets the cached session for userID.
func (s *CartSessions) Drop(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

func (s *CartSessions) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// CartSession is the authenticated user's in-progress cart, mirrored against
// the backend. Mutations are serialized per session; reads never wait on the
// backend.
//
// The existing-line lookup in AddToCart uses this session's snapshot only, so a
// concurrent add from another session for the same item is last-write-wins.
type CartSession struct {
	userID   string
	repo     CartRepo
	menu     MenuRepo
	lastUsed time.Time

	opMu sync.Mutex // held for the whole backend round trip

	mu      sync.RWMutex
	items   []domain.CartItem
	loaded  bool
	loading bool
	lastOp  CartOp
}

func (s *CartSession) UserID() string { return s.userID }

// Items returns a copy of the snapshot.
func (s *CartSession) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *CartSession) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.TotalItems(s.items)
}

func (s *CartSession) TotalAmount() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.TotalAmount(s.items)
}

func (s *CartSession) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *CartSession) LastOp() CartOp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOp
}

func (s *CartSession) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh replaces the snapshot with the backend's rows.
func (s *CartSession) Refresh(ctx context.Context) error {
	var rows []domain.CartItem
	return s.run(ctx, OpFetch, "", func() (func([]domain.CartItem) []domain.CartItem, error) {
		var err error
		rows, err = s.repo.ListByUser(ctx, s.userID)
		if err != nil {
			return nil, err
		}
		return func([]domain.CartItem) []domain.CartItem { return rows }, nil
	})
}

// AddItem resolves menuItemID against the menu and adds it.
func (s *CartSession) AddItem(ctx context.Context, menuItemID string, quantity int) (domain.CartItem, error) {
	mi, err := s.menu.GetByID(ctx, menuItemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CartItem{}, fmt.Errorf("%w: unknown menu item %q", domain.ErrValidation, menuItemID)
		}
		return domain.CartItem{}, fmt.Errorf("%w: load menu item: %v", domain.ErrPersistence, err)
	}
	return s.AddToCart(ctx, *mi, quantity)
}

// AddToCart increments the existing line for menuItem or inserts a new one.
func (s *CartSession) AddToCart(ctx context.Context, menuItem domain.MenuItem, quantity int) (domain.CartItem, error) {
	if s == nil || s.userID == "" {
		return domain.CartItem{}, domain.ErrAuthRequired
	}
	if quantity < 1 {
		return domain.CartItem{}, domain.ErrInvalidQuantity
	}

	var result domain.CartItem
	err := s.runLocked(ctx, OpAdd, menuItem.ID, func() (func([]domain.CartItem) []domain.CartItem, error) {
		var stale string
		existing, found := s.findByMenuItem(menuItem.ID)
		if found {
			newQty := existing.Quantity + quantity
			err := s.repo.UpdateQuantity(ctx, s.userID, existing.ID, newQty)
			switch {
			case err == nil:
				result = existing
				result.Quantity = newQty
				return func(items []domain.CartItem) []domain.CartItem {
					return replaceQuantity(items, existing.ID, newQty)
				}, nil
			case errors.Is(err, domain.ErrNotFound):
				// Deleted behind the snapshot; start a fresh line.
				stale = existing.ID
			default:
				return nil, err
			}
		}

		row, err := s.repo.Insert(ctx, s.userID, menuItem.ID, quantity)
		if err != nil {
			return nil, err
		}
		if row.MenuItem == nil {
			mi := menuItem
			row.MenuItem = &mi
		}
		result = row
		return func(items []domain.CartItem) []domain.CartItem {
			return append(withoutItem(items, stale), row)
		}, nil
	})
	return result, err
}

// UpdateQuantity sets a line's quantity; quantity <= 0 removes the line.
func (s *CartSession) UpdateQuantity(ctx context.Context, cartItemID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, cartItemID)
	}
	return s.runLocked(ctx, OpUpdate, cartItemID, func() (func([]domain.CartItem) []domain.CartItem, error) {
		if err := s.repo.UpdateQuantity(ctx, s.userID, cartItemID, quantity); err != nil {
			return nil, err
		}
		return func(items []domain.CartItem) []domain.CartItem {
			return replaceQuantity(items, cartItemID, quantity)
		}, nil
	})
}

// RemoveFromCart deletes a line. Removing an absent line succeeds.
func (s *CartSession) RemoveFromCart(ctx context.Context, cartItemID string) error {
	return s.runLocked(ctx, OpRemove, cartItemID, func() (func([]domain.CartItem) []domain.CartItem, error) {
		if err := s.repo.Delete(ctx, s.userID, cartItemID); err != nil {
			return nil, err
		}
		return func(items []domain.CartItem) []domain.CartItem {
			return withoutItem(items, cartItemID)
		}, nil
	})
}

func (s *CartSession) ClearCart(ctx context.Context) error {
	return s.runLocked(ctx, OpClear, "", func() (func([]domain.CartItem) []domain.CartItem, error) {
		if err := s.repo.DeleteByUser(ctx, s.userID); err != nil {
			return nil, err
		}
		return func([]domain.CartItem) []domain.CartItem { return nil }, nil
	})
}

// runLocked is run for mutations, which require a loaded snapshot.
func (s *CartSession) runLocked(ctx context.Context, kind OpKind, itemID string, call func() (func([]domain.CartItem) []domain.CartItem, error)) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	return s.run(ctx, kind, itemID, call)
}

// run drives one op through issued -> confirmed|rejected. call performs the
// backend request and returns the local state transition to apply on success.
func (s *CartSession) run(ctx context.Context, kind OpKind, itemID string, call func() (func([]domain.CartItem) []domain.CartItem, error)) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.loading = true
	s.lastOp = CartOp{Kind: kind, ItemID: itemID, State: OpIssued, At: time.Now()}
	s.mu.Unlock()

	apply, err := call()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastOp.State = OpRejected
		s.lastOp.Err = err
		observ.CartMutations.WithLabelValues(string(kind), string(OpRejected)).Inc()
		logging.FromCtx(ctx).Error("cart op rejected", "op", kind, "user_id", s.userID, "item_id", itemID, "err", err)
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: cart %s: %v", domain.ErrPersistence, kind, err)
	}
	s.items = apply(s.items)
	s.loaded = true
	s.lastOp.State = OpConfirmed
	observ.CartMutations.WithLabelValues(string(kind), string(OpConfirmed)).Inc()
	return nil
}

func (s *CartSession) findByMenuItem(menuItemID string) (domain.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.MenuItemID == menuItemID {
			return it, true
		}
	}
	return domain.CartItem{}, false
}

func withoutItem(items []domain.CartItem, id string) []domain.CartItem {
	out := items[:0:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func replaceQuantity(items []domain.CartItem, id string, qty int) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == id {
			out[i].Quantity = qty
			out[i].UpdatedAt = time.Now()
		}
	}
	return out
}
