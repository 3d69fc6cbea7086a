package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan belongs to exactly one customer; deleting the customer cascades to
// its loans.
type Loan struct {
	LoanID           uint            `gorm:"column:loan_id;primaryKey;autoIncrement" json:"loan_id"`
	CustomerID       uint            `gorm:"column:customer_id;not null;index" json:"customer_id"`
	LoanAmount       decimal.Decimal `gorm:"column:loan_amount;type:numeric(12,2);not null" json:"loan_amount"`
	Tenure           int             `gorm:"column:tenure;not null" json:"tenure"`
	InterestRate     decimal.Decimal `gorm:"column:interest_rate;type:numeric(5,2);not null" json:"interest_rate"`
	MonthlyRepayment decimal.Decimal `gorm:"column:monthly_repayment;type:numeric(12,2);not null" json:"monthly_repayment"`
	EMIsPaidOnTime   int             `gorm:"column:emis_paid_on_time;not null;default:0" json:"emis_paid_on_time"`
	StartDate        time.Time       `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate          time.Time       `gorm:"column:end_date;type:date;not null" json:"end_date"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`

	Customer *Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Loan) TableName() string {
	return "loans"
}

// IsActiveOn reports whether the given day falls within [start_date, end_date].
func (l *Loan) IsActiveOn(day time.Time) bool {
	return !day.Before(l.StartDate) && !day.After(l.EndDate)
}

// RemainingAmount is the outstanding principal: loan amount minus the EMIs
// paid on time, floored at zero.
func (l *Loan) RemainingAmount() decimal.Decimal {
	paid := l.MonthlyRepayment.Mul(decimal.NewFromInt(int64(l.EMIsPaidOnTime)))
	remaining := l.LoanAmount.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
