// Package credit derives a 0-100 creditworthiness score for a customer from
// their loan history: repayment record, loan frequency, recent activity and
// utilization of the approved limit.
package credit

import (
	"context"
	"errors"
	"time"

	"creditline-backend/internal/domain"

	"gorm.io/gorm"
)

// ScoreCalculator computes credit scores against the store. It never writes.
type ScoreCalculator struct {
	DB  *gorm.DB
	Now func() time.Time
}

// Calculate returns the credit score for a customer. An unknown customer id
// scores 0 rather than failing; only store faults return an error.
func (c *ScoreCalculator) Calculate(ctx context.Context, customerID uint) (int, error) {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	return ScoreOn(c.DB.WithContext(ctx), customerID, now)
}

// ScoreOn computes the score as of the given day using the supplied DB handle,
// so loan creation can run it inside its own transaction.
func ScoreOn(db *gorm.DB, customerID uint, today time.Time) (int, error) {
	today = truncateToDay(today)

	var customer domain.Customer
	if err := db.Where("customer_id = ?", customerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	var loans []domain.Loan
	if err := db.Where("customer_id = ?", customerID).Find(&loans).Error; err != nil {
		return 0, err
	}

	var activeLoans []domain.Loan
	if err := db.Where("customer_id = ? AND start_date <= ? AND end_date >= ?", customerID, today, today).
		Find(&activeLoans).Error; err != nil {
		return 0, err
	}

	totalCurrentLoanAmount := 0.0
	for i := range activeLoans {
		totalCurrentLoanAmount += activeLoans[i].RemainingAmount().InexactFloat64()
	}

	approvedLimit := customer.ApprovedLimit.InexactFloat64()

	// Hard gate: active exposure above the approved limit zeroes the score
	// regardless of payment history.
	if totalCurrentLoanAmount > approvedLimit {
		return 0, nil
	}

	score := 0.0

	// 1. Past EMIs paid on time (40% weight)
	totalEMIs := 0
	totalPaidOnTime := 0
	for i := range loans {
		totalEMIs += loans[i].Tenure
		totalPaidOnTime += loans[i].EMIsPaidOnTime
	}
	if totalEMIs > 0 {
		score += float64(totalPaidOnTime) / float64(totalEMIs) * 40
	}

	// 2. Number of loans taken (20% weight)
	switch n := len(loans); {
	case n <= 2:
		score += 20
	case n <= 5:
		score += 15
	case n <= 10:
		score += 10
	default:
		score += 5
	}

	// 3. Loan activity in the current calendar year (20% weight)
	currentYearLoans := 0
	for i := range loans {
		if loans[i].StartDate.Year() == today.Year() {
			currentYearLoans++
		}
	}
	switch {
	case currentYearLoans == 0:
		score += 20
	case currentYearLoans <= 2:
		score += 15
	case currentYearLoans <= 4:
		score += 10
	default:
		score += 5
	}

	// 4. Current volume vs approved limit (20% weight)
	if approvedLimit > 0 {
		switch ratio := totalCurrentLoanAmount / approvedLimit; {
		case ratio <= 0.3:
			score += 20
		case ratio <= 0.5:
			score += 15
		case ratio <= 0.7:
			score += 10
		default:
			score += 5
		}
	}

	return clampScore(int(score)), nil
}

func clampScore(s int) int {
	if s > 100 {
		return 100
	}
	if s < 0 {
		return 0
	}
	return s
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
