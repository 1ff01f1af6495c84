package service

import (
	"context"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"
	"leaseflow/internal/visibility"

	"github.com/shopspring/decimal"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, p visibility.Principal, startDate, endDate time.Time) (*model.StatisticsResponse, error)
}

type statisticsService struct {
	base
}

func NewStatisticsService(deps Deps) StatisticsService {
	return &statisticsService{base: newBase(deps)}
}

// GetStatistics summarises the pipeline for records created inside the window.
// A zero start means the first day of the current month, a zero end means now.
func (s *statisticsService) GetStatistics(ctx context.Context, p visibility.Principal, startDate, endDate time.Time) (*model.StatisticsResponse, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	now := s.now()
	if startDate.IsZero() {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if endDate.IsZero() {
		endDate = now
	}
	if endDate.Before(startDate) {
		return nil, apperror.Validation("end_date is before start_date", map[string]interface{}{
			"start_date": startDate,
			"end_date":   endDate,
		})
	}

	repo := s.store().Statistics
	res := &model.StatisticsResponse{
		RequestedVolume:    decimal.Zero,
		FinancedVolume:     decimal.Zero,
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	var err error
	if res.Applications, err = repo.ApplicationsByStatus(ctx, startDate, endDate); err != nil {
		return nil, apperror.Internal("failed to aggregate applications", err)
	}
	if res.Offers, err = repo.OffersByStatus(ctx, startDate, endDate); err != nil {
		return nil, apperror.Internal("failed to aggregate offers", err)
	}
	if res.Contracts, err = repo.ContractsByStatus(ctx, startDate, endDate); err != nil {
		return nil, apperror.Internal("failed to aggregate contracts", err)
	}
	if res.Users, err = repo.UsersByRole(ctx); err != nil {
		return nil, apperror.Internal("failed to count users", err)
	}

	for _, t := range res.Applications {
		switch model.ApplicationStatus(t.Status) {
		case model.ApplicationDraft:
			continue
		case model.ApplicationSubmitted:
			res.NewApplications += t.Count
		case model.ApplicationSigned, model.ApplicationClosed:
			res.Completed += t.Count
		case model.ApplicationCancelled:
		default:
			res.InProgress += t.Count
		}
		res.RequestedVolume = res.RequestedVolume.Add(t.Amount)
	}
	for _, t := range res.Offers {
		if model.OfferStatus(t.Status) == model.OfferPendingAdmin {
			res.PendingOfferApprovals += t.Count
		}
	}
	for _, t := range res.Contracts {
		switch model.ContractStatus(t.Status) {
		case model.ContractSigned, model.ContractActive, model.ContractCompleted:
			res.FinancedVolume = res.FinancedVolume.Add(t.Amount)
		}
	}
	return res, nil
}
