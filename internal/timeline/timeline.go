// Package timeline derives the payment progress of an active lease contract.
// Nothing here is stored; the same inputs always give the same view.
package timeline

import (
	"iter"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AverageMonth is 30.44 days. Elapsed months are counted in this unit so the
// result does not depend on calendar month lengths.
const AverageMonth = time.Duration(2630016) * time.Second

// DefaultTermMonths applies when neither the contract nor its offer names a term.
const DefaultTermMonths = 36

type Phase string

const (
	PhasePast    Phase = "past"
	PhaseCurrent Phase = "current"
	PhaseFuture  Phase = "future"
)

// Input is the minimal set of contract terms the calculator needs.
type Input struct {
	ContractID     uuid.UUID
	ActivatedAt    time.Time
	TermMonths     int
	MonthlyPayment decimal.Decimal
	// TotalAmount overrides TermMonths × MonthlyPayment when valid.
	TotalAmount decimal.NullDecimal
}

type View struct {
	ContractID      uuid.UUID       `json:"contract_id"`
	AsOf            time.Time       `json:"as_of"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	TermMonths      int             `json:"term_months"`
	MonthlyPayment  decimal.Decimal `json:"monthly_payment"`
	ElapsedMonths   int             `json:"elapsed_months"`
	RemainingMonths int             `json:"remaining_months"`
	ProgressPercent float64         `json:"progress_percent"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

type Entry struct {
	Index  int             `json:"index"`
	Month  time.Time       `json:"month"`
	Amount decimal.Decimal `json:"amount"`
	Phase  Phase           `json:"phase"`
}

// FromContract takes the terms from c, falling back to the offer it came from.
// Only ACTIVE and COMPLETED contracts have a timeline.
func FromContract(c model.Contract, offer *model.Offer) (Input, error) {
	if c.Status != model.ContractActive && c.Status != model.ContractCompleted {
		return Input{}, apperror.Validation("contract is not active", map[string]interface{}{"status": string(c.Status)})
	}
	if c.ActivatedAt == nil {
		return Input{}, apperror.Internal("active contract has no activation time", nil)
	}

	in := Input{
		ContractID:     c.ID,
		ActivatedAt:    *c.ActivatedAt,
		TermMonths:     c.TermMonths,
		MonthlyPayment: c.MonthlyRent,
		TotalAmount:    c.TotalAmount,
	}
	if in.TermMonths <= 0 && offer != nil {
		in.TermMonths = offer.TermMonths
	}
	if in.TermMonths <= 0 {
		in.TermMonths = DefaultTermMonths
	}
	if !in.MonthlyPayment.IsPositive() && offer != nil {
		in.MonthlyPayment = offer.MonthlyPayment
	}
	return in, nil
}

func (in Input) total() decimal.Decimal {
	if in.TotalAmount.Valid {
		return in.TotalAmount.Decimal
	}
	return in.MonthlyPayment.Mul(decimal.NewFromInt(int64(in.TermMonths)))
}

// Compute derives the view of in at asOf.
func Compute(in Input, asOf time.Time) View {
	term := in.TermMonths
	if term <= 0 {
		term = DefaultTermMonths
	}

	elapsed := 0
	if d := asOf.Sub(in.ActivatedAt); d > 0 {
		elapsed = int(d / AverageMonth)
	}
	if elapsed > term {
		elapsed = term
	}

	progress := 100 * float64(elapsed) / float64(term)
	if progress > 100 {
		progress = 100
	}

	total := in.total()
	paid := in.MonthlyPayment.Mul(decimal.NewFromInt(int64(elapsed)))
	if paid.GreaterThan(total) {
		paid = total
	}

	return View{
		ContractID:      in.ContractID,
		AsOf:            asOf,
		StartDate:       in.ActivatedAt,
		EndDate:         in.ActivatedAt.AddDate(0, term, 0),
		TermMonths:      term,
		MonthlyPayment:  in.MonthlyPayment,
		ElapsedMonths:   elapsed,
		RemainingMonths: term - elapsed,
		ProgressPercent: progress,
		TotalAmount:     total,
		PaidAmount:      paid,
		RemainingAmount: total.Sub(paid),
	}
}

// Schedule yields one entry per month of the term. Each range over the
// sequence recomputes from in and asOf.
func Schedule(in Input, asOf time.Time) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		term := in.TermMonths
		if term <= 0 {
			term = DefaultTermMonths
		}
		y, m, _ := asOf.Date()
		for i := 0; i < term; i++ {
			month := in.ActivatedAt.AddDate(0, i, 0)
			entry := Entry{Index: i + 1, Month: month, Amount: in.MonthlyPayment, Phase: PhaseFuture}
			my, mm, _ := month.Date()
			switch {
			case my == y && mm == m:
				entry.Phase = PhaseCurrent
			case month.Before(asOf):
				entry.Phase = PhasePast
			}
			if !yield(entry) {
				return
			}
		}
	}
}
