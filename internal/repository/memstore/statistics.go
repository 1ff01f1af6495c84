package memstore

import (
	"context"
	"sort"
	"time"

	"leaseflow/internal/model"

	"github.com/shopspring/decimal"
)

type statisticsRepo struct {
	db *DB
}

type bucket struct {
	count  int64
	amount decimal.Decimal
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func totals(b map[string]*bucket) []model.StatusTotal {
	out := make([]model.StatusTotal, 0, len(b))
	for status, v := range b {
		out = append(out, model.StatusTotal{Status: status, Count: v.count, Amount: v.amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

func add(b map[string]*bucket, status string, amount decimal.Decimal) {
	v, ok := b[status]
	if !ok {
		v = &bucket{}
		b[status] = v
	}
	v.count++
	v.amount = v.amount.Add(amount)
}

func (r *statisticsRepo) ApplicationsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error) {
	defer r.db.lock(ctx)()

	b := make(map[string]*bucket)
	for _, a := range r.db.t.applications.rows {
		if within(a.CreatedAt, start, end) {
			add(b, string(a.Status), a.RequestedAmount)
		}
	}
	return totals(b), nil
}

func (r *statisticsRepo) OffersByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error) {
	defer r.db.lock(ctx)()

	b := make(map[string]*bucket)
	for _, o := range r.db.t.offers.rows {
		if within(o.CreatedAt, start, end) {
			add(b, string(o.Status), o.MonthlyPayment)
		}
	}
	return totals(b), nil
}

func (r *statisticsRepo) ContractsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error) {
	defer r.db.lock(ctx)()

	b := make(map[string]*bucket)
	for _, c := range r.db.t.contracts.rows {
		if within(c.CreatedAt, start, end) {
			add(b, string(c.Status), c.EquipmentValue)
		}
	}
	return totals(b), nil
}

func (r *statisticsRepo) UsersByRole(ctx context.Context) ([]model.RoleCount, error) {
	defer r.db.lock(ctx)()

	byRole := make(map[model.Role]*model.RoleCount)
	for _, u := range r.db.t.users.rows {
		rc, ok := byRole[u.Role]
		if !ok {
			rc = &model.RoleCount{Role: u.Role}
			byRole[u.Role] = rc
		}
		rc.Total++
		if u.IsActive {
			rc.Active++
		}
	}
	out := make([]model.RoleCount, 0, len(byRole))
	for _, rc := range byRole {
		out = append(out, *rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}
