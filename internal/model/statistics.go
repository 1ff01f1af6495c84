package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusTotal is one status bucket with its row count and summed amount.
type StatusTotal struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// RoleCount counts directory users holding one role.
type RoleCount struct {
	Role   Role  `json:"role"`
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// StatisticsResponse is the admin dashboard summary for a creation-time window.
type StatisticsResponse struct {
	Applications []StatusTotal `json:"applications"`
	Offers       []StatusTotal `json:"offers"`
	Contracts    []StatusTotal `json:"contracts"`
	Users        []RoleCount   `json:"users"`

	NewApplications       int64           `json:"new_applications"`
	InProgress            int64           `json:"in_progress"`
	Completed             int64           `json:"completed"`
	PendingOfferApprovals int64           `json:"pending_offer_approvals"`
	RequestedVolume       decimal.Decimal `json:"requested_volume"`
	FinancedVolume        decimal.Decimal `json:"financed_volume"`

	TimeRangeStartDate time.Time `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time `json:"time_range_end_date"`
}
