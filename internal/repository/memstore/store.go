// Package memstore is an in-memory entity store used for demo mode and tests.
// It enforces the same status guards and uniqueness rules as the Postgres schema.
package memstore

import (
	"context"
	"sync"
	"time"

	"leaseflow/internal/model"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
)

type table[T any] struct {
	rows  map[uuid.UUID]T
	order []uuid.UUID
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[uuid.UUID]T)}
}

func (t *table[T]) put(id uuid.UUID, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id uuid.UUID) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

// all returns rows in insertion order.
func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

func (t *table[T]) clone() *table[T] {
	c := &table[T]{
		rows:  make(map[uuid.UUID]T, len(t.rows)),
		order: append([]uuid.UUID(nil), t.order...),
	}
	for k, v := range t.rows {
		c.rows[k] = v
	}
	return c
}

type tables struct {
	users            *table[model.User]
	applications     *table[model.Application]
	offers           *table[model.Offer]
	contracts        *table[model.Contract]
	messages         *table[model.Message]
	notifications    *table[model.Notification]
	contractRequests *table[model.ContractRequest]
	audit            *table[model.AuditLog]
}

func newTables() *tables {
	return &tables{
		users:            newTable[model.User](),
		applications:     newTable[model.Application](),
		offers:           newTable[model.Offer](),
		contracts:        newTable[model.Contract](),
		messages:         newTable[model.Message](),
		notifications:    newTable[model.Notification](),
		contractRequests: newTable[model.ContractRequest](),
		audit:            newTable[model.AuditLog](),
	}
}

func (t *tables) clone() *tables {
	return &tables{
		users:            t.users.clone(),
		applications:     t.applications.clone(),
		offers:           t.offers.clone(),
		contracts:        t.contracts.clone(),
		messages:         t.messages.clone(),
		notifications:    t.notifications.clone(),
		contractRequests: t.contractRequests.clone(),
		audit:            t.audit.clone(),
	}
}

// DB holds the tables behind a single mutex. A transaction keeps the mutex for
// its whole duration and restores a snapshot when fn fails.
type DB struct {
	mu  sync.Mutex
	t   *tables
	now func() time.Time
}

type txMarker struct{}

func (db *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txMarker{}).(*DB)
	return owner == db
}

func (db *DB) lock(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if db.inTx(ctx) {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.t.clone()
	if err := fn(context.WithValue(ctx, txMarker{}, db)); err != nil {
		db.t = snapshot
		return err
	}
	return nil
}

func (db *DB) stamp() time.Time {
	return db.now().UTC()
}

// New returns a repository.Store backed by memory.
func New() *repository.Store {
	return NewWithClock(time.Now)
}

// NewWithClock is New with an injectable clock for created/updated timestamps.
func NewWithClock(now func() time.Time) *repository.Store {
	db := &DB{t: newTables(), now: now}
	return &repository.Store{
		Tx:               db,
		Users:            &userRepo{db: db},
		Applications:     &applicationRepo{db: db},
		Offers:           &offerRepo{db: db},
		Contracts:        &contractRepo{db: db},
		Messages:         &messageRepo{db: db},
		Notifications:    &notificationRepo{db: db},
		ContractRequests: &contractRequestRepo{db: db},
		Audit:            &auditRepo{db: db},
		Statistics:       &statisticsRepo{db: db},
	}
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func paginate[T any](rows []T, page, limit int) []T {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func reversed[T any](rows []T) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}
