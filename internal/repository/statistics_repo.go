package repository

import (
	"context"
	"fmt"
	"time"

	"leaseflow/internal/model"

	"gorm.io/gorm"
)

// StatisticsRepository aggregates rows created inside [start, end].
type StatisticsRepository interface {
	ApplicationsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error)
	OffersByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error)
	ContractsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error)
	UsersByRole(ctx context.Context) ([]model.RoleCount, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) ApplicationsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error) {
	return r.byStatus(ctx, "applications", "requested_amount", start, end)
}

func (r *statisticsRepository) OffersByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error) {
	return r.byStatus(ctx, "offers", "monthly_payment", start, end)
}

func (r *statisticsRepository) ContractsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error) {
	return r.byStatus(ctx, "contracts", "equipment_value", start, end)
}

func (r *statisticsRepository) byStatus(ctx context.Context, table, amountColumn string, start, end time.Time) ([]model.StatusTotal, error) {
	var rows []model.StatusTotal
	if err := GetDB(ctx, r.db).Table(table).
		Select(fmt.Sprintf("status, COUNT(*) AS count, COALESCE(SUM(%s), 0) AS amount", amountColumn)).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", table, err)
	}
	return rows, nil
}

func (r *statisticsRepository) UsersByRole(ctx context.Context) ([]model.RoleCount, error) {
	var rows []model.RoleCount
	if err := GetDB(ctx, r.db).Table("users").
		Select("role, COUNT(*) AS total, SUM(CASE WHEN is_active THEN 1 ELSE 0 END) AS active").
		Group("role").
		Order("role").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	return rows, nil
}
