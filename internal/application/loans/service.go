// Package loans decides whether a requested loan is approved, at what
// corrected interest rate and monthly installment, and creates approved loans.
package loans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"creditline-backend/internal/application/credit"
	"creditline-backend/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidTenure rejects zero or negative tenures before any EMI math.
var ErrInvalidTenure = errors.New("tenure must be a positive number of months")

// Rejection / approval messages. Handlers map these to HTTP statuses.
const (
	MsgCustomerNotFound = "Customer not found"
	MsgScoreTooLow      = "Credit score too low for loan approval"
	MsgEMIsExceedIncome = "EMIs exceed 50% of monthly income"
	MsgLoanApproved     = "Loan approved"
	MsgLoanCreated      = "Loan approved and created successfully"
)

// EligibilityDecision is the caller-facing outcome of an eligibility check.
// Business rejections are decisions, not errors.
type EligibilityDecision struct {
	CustomerID            uint     `json:"customer_id"`
	Approval              bool     `json:"approval"`
	InterestRate          float64  `json:"interest_rate"`
	CorrectedInterestRate *float64 `json:"corrected_interest_rate"`
	Tenure                int      `json:"tenure"`
	MonthlyInstallment    float64  `json:"monthly_installment"`
	Message               string   `json:"message"`
}

// CreationResult is the caller-facing outcome of a loan creation attempt.
type CreationResult struct {
	LoanID             *uint   `json:"loan_id"`
	CustomerID         uint    `json:"customer_id"`
	LoanApproved       bool    `json:"loan_approved"`
	Message            string  `json:"message"`
	MonthlyInstallment float64 `json:"monthly_installment"`
}

// Service implements the eligibility and loan-creation operations.
type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *Service) today() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthlyEMI computes the equated monthly installment for an amortizing loan:
// EMI = P*r*(1+r)^n / ((1+r)^n - 1), rounded to 2 decimal places. A zero rate
// degenerates to straight-line P/n.
func MonthlyEMI(principal, annualRatePercent float64, tenureMonths int) (float64, error) {
	if tenureMonths <= 0 {
		return 0, ErrInvalidTenure
	}
	monthlyRate := annualRatePercent / 100 / 12
	if monthlyRate == 0 {
		return principal / float64(tenureMonths), nil
	}
	compound := math.Pow(1+monthlyRate, float64(tenureMonths))
	emi := principal * monthlyRate * compound / (compound - 1)
	return math.Round(emi*100) / 100, nil
}

// CorrectedInterestRate maps a credit score to the rate the system charges
// instead of the requested rate. ok is false when the score is too low for
// any loan.
func CorrectedInterestRate(creditScore int) (rate float64, ok bool) {
	switch {
	case creditScore > 50:
		return 10.0, true
	case creditScore > 30:
		return 12.0, true
	case creditScore > 10:
		return 16.0, true
	default:
		return 0, false
	}
}

// CheckEligibility evaluates a proposed loan for a customer. Not-found, low
// score and income-cap outcomes are soft rejections carried in the decision;
// the returned error is reserved for store faults.
func (s *Service) CheckEligibility(ctx context.Context, customerID uint, loanAmount, interestRate float64, tenure int) (EligibilityDecision, error) {
	if tenure <= 0 {
		return EligibilityDecision{}, ErrInvalidTenure
	}
	return s.checkEligibilityOn(s.DB.WithContext(ctx), customerID, loanAmount, interestRate, tenure, s.today())
}

func (s *Service) checkEligibilityOn(db *gorm.DB, customerID uint, loanAmount, interestRate float64, tenure int, today time.Time) (EligibilityDecision, error) {
	var customer domain.Customer
	if err := db.Where("customer_id = ?", customerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EligibilityDecision{
				CustomerID:   customerID,
				Approval:     false,
				InterestRate: interestRate,
				Tenure:       tenure,
				Message:      MsgCustomerNotFound,
			}, nil
		}
		return EligibilityDecision{}, err
	}

	score, err := credit.ScoreOn(db, customerID, today)
	if err != nil {
		return EligibilityDecision{}, err
	}

	correctedRate, eligible := CorrectedInterestRate(score)
	if !eligible {
		return EligibilityDecision{
			CustomerID:   customerID,
			Approval:     false,
			InterestRate: interestRate,
			Tenure:       tenure,
			Message:      MsgScoreTooLow,
		}, nil
	}

	// The corrected rate always overrides the requested one.
	monthlyEMI, err := MonthlyEMI(loanAmount, correctedRate, tenure)
	if err != nil {
		return EligibilityDecision{}, err
	}

	var activeLoans []domain.Loan
	if err := db.Where("customer_id = ? AND start_date <= ? AND end_date >= ?", customerID, today, today).
		Find(&activeLoans).Error; err != nil {
		return EligibilityDecision{}, err
	}
	currentEMIs := 0.0
	for i := range activeLoans {
		currentEMIs += activeLoans[i].MonthlyRepayment.InexactFloat64()
	}

	maxAllowedEMI := customer.MonthlySalary.InexactFloat64() * 0.5
	approval := currentEMIs+monthlyEMI <= maxAllowedEMI

	message := MsgLoanApproved
	if !approval {
		message = MsgEMIsExceedIncome
	}

	return EligibilityDecision{
		CustomerID:            customerID,
		Approval:              approval,
		InterestRate:          interestRate,
		CorrectedInterestRate: &correctedRate,
		Tenure:                tenure,
		MonthlyInstallment:    monthlyEMI,
		Message:               message,
	}, nil
}

// CreateLoan re-checks eligibility and, when approved, inserts the loan and
// increments the customer's debt. Check and writes share one transaction with
// the customer row locked, so concurrent creations for the same customer
// serialize instead of both passing the income check against stale debt.
func (s *Service) CreateLoan(ctx context.Context, customerID uint, loanAmount, interestRate float64, tenure int) (CreationResult, error) {
	if tenure <= 0 {
		return CreationResult{}, ErrInvalidTenure
	}

	today := s.today()
	var result CreationResult

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("customer_id = ?", customerID)
		if tx.Dialector.Name() == "postgres" {
			// sqlite has no row locks; its single-writer model serializes
			// concurrent creations anyway.
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var customer domain.Customer
		err := query.First(&customer).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = CreationResult{
					CustomerID:   customerID,
					LoanApproved: false,
					Message:      MsgCustomerNotFound,
				}
				return nil
			}
			return err
		}

		decision, err := s.checkEligibilityOn(tx, customerID, loanAmount, interestRate, tenure, today)
		if err != nil {
			return err
		}
		if !decision.Approval {
			result = CreationResult{
				CustomerID:         customerID,
				LoanApproved:       false,
				Message:            decision.Message,
				MonthlyInstallment: decision.MonthlyInstallment,
			}
			return nil
		}

		loan := domain.Loan{
			CustomerID:       customerID,
			LoanAmount:       decimal.NewFromFloat(loanAmount),
			Tenure:           tenure,
			InterestRate:     decimal.NewFromFloat(*decision.CorrectedInterestRate),
			MonthlyRepayment: decimal.NewFromFloat(decision.MonthlyInstallment),
			StartDate:        today,
			EndDate:          advanceMonths(today, tenure),
		}
		if err := tx.Create(&loan).Error; err != nil {
			return persistError{err}
		}

		newDebt := customer.CurrentDebt.Add(decimal.NewFromFloat(loanAmount))
		if err := tx.Model(&customer).Update("current_debt", newDebt).Error; err != nil {
			return persistError{err}
		}

		result = CreationResult{
			LoanID:             &loan.LoanID,
			CustomerID:         customerID,
			LoanApproved:       true,
			Message:            MsgLoanCreated,
			MonthlyInstallment: decision.MonthlyInstallment,
		}
		return nil
	})

	if err != nil {
		var pe persistError
		if errors.As(err, &pe) {
			return CreationResult{
				CustomerID:   customerID,
				LoanApproved: false,
				Message:      fmt.Sprintf("Error creating loan: %s", pe.err.Error()),
			}, nil
		}
		return CreationResult{}, err
	}
	return result, nil
}

// persistError marks write failures so they surface as a failure result
// instead of a fatal error.
type persistError struct {
	err error
}

func (p persistError) Error() string { return p.err.Error() }
func (p persistError) Unwrap() error { return p.err }

// advanceMonths moves a date forward by whole calendar months, keeping the
// day-of-month and clamping it to the last valid day of the target month
// (Jan 31 + 1 month = Feb 28/29).
func advanceMonths(d time.Time, months int) time.Time {
	total := int(d.Month()) - 1 + months
	year := d.Year() + total/12
	month := time.Month(total%12 + 1)
	day := d.Day()
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, d.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
