package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer is a registered borrower. The approved limit is derived from
// salary at registration and only changes through data ingestion.
type Customer struct {
	CustomerID    uint            `gorm:"column:customer_id;primaryKey;autoIncrement" json:"customer_id"`
	FirstName     string          `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName      string          `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	Age           int             `gorm:"column:age;not null" json:"age"`
	PhoneNumber   string          `gorm:"column:phone_number;type:varchar(15);not null;uniqueIndex" json:"phone_number"`
	MonthlySalary decimal.Decimal `gorm:"column:monthly_salary;type:numeric(12,2);not null" json:"monthly_salary"`
	ApprovedLimit decimal.Decimal `gorm:"column:approved_limit;type:numeric(12,2);not null" json:"approved_limit"`
	CurrentDebt   decimal.Decimal `gorm:"column:current_debt;type:numeric(12,2);not null;default:0" json:"current_debt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	Loans []Loan `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

// CalculateApprovedLimit derives the limit as 36x monthly salary, rounded to
// the nearest 100000.
func (c *Customer) CalculateApprovedLimit() decimal.Decimal {
	raw := c.MonthlySalary.InexactFloat64() * 36
	return decimal.NewFromFloat(math.Round(raw/100000) * 100000)
}

// BeforeCreate sets the approved limit when it was not supplied explicitly.
// It is never recomputed after creation.
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ApprovedLimit.IsZero() {
		c.ApprovedLimit = c.CalculateApprovedLimit()
	}
	return nil
}
