package customers

import (
	"context"
	"errors"
	"strings"

	"creditline-backend/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Lookup failures surfaced to handlers.
var (
	ErrCustomerNotFound = errors.New("Customer not found")
	ErrLoanNotFound     = errors.New("Loan not found")
	ErrPhoneTaken       = errors.New("Phone number already registered")
)

// Service handles customer registration and loan lookups.
type Service struct {
	DB *gorm.DB
}

// RegisterInput carries the fields a new customer supplies. The approved
// limit is always derived, never accepted from the caller.
type RegisterInput struct {
	FirstName     string
	LastName      string
	Age           int
	PhoneNumber   string
	MonthlySalary float64
}

// Register creates a customer with a derived approved limit and zero debt.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.Customer, error) {
	customer := domain.Customer{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Age:           in.Age,
		PhoneNumber:   in.PhoneNumber,
		MonthlySalary: decimal.NewFromFloat(in.MonthlySalary),
		CurrentDebt:   decimal.Zero,
	}
	if err := s.DB.WithContext(ctx).Create(&customer).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}
	return &customer, nil
}

// GetLoan returns a loan with its owning customer preloaded.
func (s *Service) GetLoan(ctx context.Context, loanID uint) (*domain.Loan, error) {
	var loan domain.Loan
	err := s.DB.WithContext(ctx).Preload("Customer").Where("loan_id = ?", loanID).First(&loan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// LoansForCustomer returns all loans of an existing customer, any status.
func (s *Service) LoansForCustomer(ctx context.Context, customerID uint) (*domain.Customer, []domain.Loan, error) {
	var customer domain.Customer
	if err := s.DB.WithContext(ctx).Where("customer_id = ?", customerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCustomerNotFound
		}
		return nil, nil, err
	}
	var loans []domain.Loan
	if err := s.DB.WithContext(ctx).Where("customer_id = ?", customerID).Order("loan_id").Find(&loans).Error; err != nil {
		return nil, nil, err
	}
	return &customer, loans, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
