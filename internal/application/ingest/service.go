// Package ingest loads customer and loan records from spreadsheet files into
// the store. Source columns are resolved through an alias table, so exports
// with either human or snake_case headers load the same way.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"creditline-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Result carries the counters of one ingestion pass.
type Result struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Processed int `json:"processed"`
}

// Canonical field names mapped to the accepted source-column headers,
// resolved by first match.
var customerAliases = map[string][]string{
	"customer_id":    {"Customer ID", "customer_id"},
	"first_name":     {"First Name", "first_name"},
	"last_name":      {"Last Name", "last_name"},
	"age":            {"Age", "age"},
	"phone_number":   {"Phone Number", "phone_number"},
	"monthly_salary": {"Monthly Salary", "monthly_salary"},
	"approved_limit": {"Approved Limit", "approved_limit"},
	"current_debt":   {"Current Debt", "current_debt"},
}

var loanAliases = map[string][]string{
	"customer_id":       {"Customer ID", "customer_id"},
	"loan_id":           {"Loan ID", "loan_id"},
	"loan_amount":       {"Principal", "loan_amount"},
	"tenure":            {"Tenure", "tenure"},
	"interest_rate":     {"Interest Rate", "interest_rate"},
	"monthly_repayment": {"Monthly payment", "monthly_repayment"},
	"emis_paid_on_time": {"EMIs paid on Time", "emis_paid_on_time"},
	"start_date":        {"Date of Approval", "start_date"},
	"end_date":          {"End Date", "end_date"},
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06 15:04",
}

// Service reads spreadsheet files and upserts their rows.
type Service struct {
	DB *gorm.DB
}

// IngestCustomers upserts customers keyed by customer_id. Malformed rows are
// skipped and counted, never abort the run.
func (s *Service) IngestCustomers(ctx context.Context, filePath string) (Result, error) {
	rows, header, err := openSheet(filePath, customerAliases)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, row := range rows {
		result.Processed++
		created, err := s.upsertCustomerRow(ctx, row, header)
		if err != nil {
			log.Warn().Err(err).Str("file", filePath).Msg("skipping customer row")
			result.Skipped++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

// IngestLoans upserts loans keyed by loan_id. Rows whose customer does not
// exist are skipped.
func (s *Service) IngestLoans(ctx context.Context, filePath string) (Result, error) {
	rows, header, err := openSheet(filePath, loanAliases)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, row := range rows {
		result.Processed++
		created, err := s.upsertLoanRow(ctx, row, header)
		if err != nil {
			log.Warn().Err(err).Str("file", filePath).Msg("skipping loan row")
			result.Skipped++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func (s *Service) upsertCustomerRow(ctx context.Context, row []string, header map[string]int) (created bool, err error) {
	customerID, err := intField(row, header, "customer_id")
	if err != nil {
		return false, err
	}

	salary, _ := floatField(row, header, "monthly_salary")
	limit, _ := floatField(row, header, "approved_limit")
	debt, _ := floatField(row, header, "current_debt")
	age, _ := intField(row, header, "age")

	db := s.DB.WithContext(ctx)
	var existing domain.Customer
	err = db.Where("customer_id = ?", customerID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		customer := domain.Customer{
			CustomerID:    uint(customerID),
			FirstName:     stringField(row, header, "first_name"),
			LastName:      stringField(row, header, "last_name"),
			Age:           age,
			PhoneNumber:   stringField(row, header, "phone_number"),
			MonthlySalary: decimal.NewFromFloat(salary),
			ApprovedLimit: decimal.NewFromFloat(limit),
			CurrentDebt:   decimal.NewFromFloat(debt),
		}
		if err := db.Create(&customer).Error; err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	default:
		existing.FirstName = stringField(row, header, "first_name")
		existing.LastName = stringField(row, header, "last_name")
		existing.Age = age
		existing.PhoneNumber = stringField(row, header, "phone_number")
		existing.MonthlySalary = decimal.NewFromFloat(salary)
		existing.ApprovedLimit = decimal.NewFromFloat(limit)
		existing.CurrentDebt = decimal.NewFromFloat(debt)
		if err := db.Save(&existing).Error; err != nil {
			return false, err
		}
		return false, nil
	}
}

func (s *Service) upsertLoanRow(ctx context.Context, row []string, header map[string]int) (created bool, err error) {
	loanID, err := intField(row, header, "loan_id")
	if err != nil {
		return false, err
	}
	customerID, err := intField(row, header, "customer_id")
	if err != nil {
		return false, err
	}

	db := s.DB.WithContext(ctx)
	var customer domain.Customer
	if err := db.Where("customer_id = ?", customerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("customer %d not found", customerID)
		}
		return false, err
	}

	startDate, err := dateField(row, header, "start_date")
	if err != nil {
		return false, err
	}
	endDate, err := dateField(row, header, "end_date")
	if err != nil {
		return false, err
	}

	amount, _ := floatField(row, header, "loan_amount")
	tenure, _ := intField(row, header, "tenure")
	rate, _ := floatField(row, header, "interest_rate")
	repayment, _ := floatField(row, header, "monthly_repayment")
	paidOnTime, _ := intField(row, header, "emis_paid_on_time")

	var existing domain.Loan
	err = db.Where("loan_id = ?", loanID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		loan := domain.Loan{
			LoanID:           uint(loanID),
			CustomerID:       uint(customerID),
			LoanAmount:       decimal.NewFromFloat(amount),
			Tenure:           tenure,
			InterestRate:     decimal.NewFromFloat(rate),
			MonthlyRepayment: decimal.NewFromFloat(repayment),
			EMIsPaidOnTime:   paidOnTime,
			StartDate:        startDate,
			EndDate:          endDate,
		}
		if err := db.Create(&loan).Error; err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	default:
		existing.CustomerID = uint(customerID)
		existing.LoanAmount = decimal.NewFromFloat(amount)
		existing.Tenure = tenure
		existing.InterestRate = decimal.NewFromFloat(rate)
		existing.MonthlyRepayment = decimal.NewFromFloat(repayment)
		existing.EMIsPaidOnTime = paidOnTime
		existing.StartDate = startDate
		existing.EndDate = endDate
		if err := db.Save(&existing).Error; err != nil {
			return false, err
		}
		return false, nil
	}
}

// openSheet reads the first sheet and resolves the canonical column indexes
// from the header row.
func openSheet(filePath string, aliases map[string][]string) ([][]string, map[string]int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%s: no sheets", filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: empty sheet", filePath)
	}

	header := resolveHeader(rows[0], aliases)
	return rows[1:], header, nil
}

func resolveHeader(headerRow []string, aliases map[string][]string) map[string]int {
	index := make(map[string]int, len(headerRow))
	for i, cell := range headerRow {
		index[strings.TrimSpace(cell)] = i
	}
	resolved := make(map[string]int, len(aliases))
	for canonical, names := range aliases {
		for _, name := range names {
			if i, ok := index[name]; ok {
				resolved[canonical] = i
				break
			}
		}
	}
	return resolved
}

func stringField(row []string, header map[string]int, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func intField(row []string, header map[string]int, name string) (int, error) {
	raw := stringField(row, header, name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	// Spreadsheet numerics may render as "3" or "3.0".
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", name, raw)
	}
	return int(f), nil
}

func floatField(row []string, header map[string]int, name string) (float64, error) {
	raw := stringField(row, header, name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", name, raw)
	}
	return f, nil
}

func dateField(row []string, header map[string]int, name string) (time.Time, error) {
	raw := stringField(row, header, name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %s", name)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad %s %q", name, raw)
}
