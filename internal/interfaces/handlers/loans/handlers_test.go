package loans

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	custsvc "creditline-backend/internal/application/customers"
	loansvc "creditline-backend/internal/application/loans"
	"creditline-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testToday = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func setupLoanAPI(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}, &domain.Loan{}))

	h := &Handlers{
		Service:   &loansvc.Service{DB: db, Now: func() time.Time { return testToday }},
		Customers: &custsvc.Service{DB: db},
	}
	app := fiber.New()
	app.Post("/check-eligibility", h.CheckEligibility)
	app.Post("/create-loan", h.CreateLoan)
	app.Get("/view-loan/:loan_id", h.ViewLoan)
	app.Get("/view-loans/:customer_id", h.ViewCustomerLoans)
	return app, db
}

var phoneCounter = 9600000000

func seedCustomer(t *testing.T, db *gorm.DB, salary float64) *domain.Customer {
	phoneCounter++
	customer := &domain.Customer{
		FirstName:     "Meera",
		LastName:      "Nair",
		Age:           34,
		PhoneNumber:   fmt.Sprintf("%d", phoneCounter),
		MonthlySalary: decimal.NewFromFloat(salary),
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reqBody *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestCheckEligibilityEndpoint_Approved(t *testing.T) {
	app, db := setupLoanAPI(t)
	customer := seedCustomer(t, db, 50000)

	status, body := doJSON(t, app, "POST", "/check-eligibility", fiber.Map{
		"customer_id":   customer.CustomerID,
		"loan_amount":   100000,
		"interest_rate": 18,
		"tenure":        12,
	})
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["approval"])
	assert.Equal(t, 18.0, body["interest_rate"])
	assert.Equal(t, 10.0, body["corrected_interest_rate"])
	assert.Equal(t, float64(12), body["tenure"])
	assert.Greater(t, body["monthly_installment"].(float64), 0.0)
}

func TestCheckEligibilityEndpoint_RejectionIsStill200(t *testing.T) {
	app, db := setupLoanAPI(t)
	customer := seedCustomer(t, db, 10000)

	status, body := doJSON(t, app, "POST", "/check-eligibility", fiber.Map{
		"customer_id":   customer.CustomerID,
		"loan_amount":   100000,
		"interest_rate": 10,
		"tenure":        12,
	})
	assert.Equal(t, 200, status)
	assert.Equal(t, false, body["approval"])
	assert.Equal(t, loansvc.MsgEMIsExceedIncome, body["message"])
}

func TestCheckEligibilityEndpoint_UnknownCustomer(t *testing.T) {
	app, _ := setupLoanAPI(t)

	status, body := doJSON(t, app, "POST", "/check-eligibility", fiber.Map{
		"customer_id":   424242,
		"loan_amount":   100000,
		"interest_rate": 10,
		"tenure":        12,
	})
	assert.Equal(t, 200, status)
	assert.Equal(t, false, body["approval"])
	assert.Equal(t, loansvc.MsgCustomerNotFound, body["message"])
	assert.Nil(t, body["corrected_interest_rate"])
}

func TestCheckEligibilityEndpoint_ValidatesInput(t *testing.T) {
	app, _ := setupLoanAPI(t)

	cases := []fiber.Map{
		{"customer_id": 0, "loan_amount": 100000, "interest_rate": 10, "tenure": 12},
		{"customer_id": 1, "loan_amount": -1, "interest_rate": 10, "tenure": 12},
		{"customer_id": 1, "loan_amount": 100000, "interest_rate": 0, "tenure": 12},
		{"customer_id": 1, "loan_amount": 100000, "interest_rate": 10, "tenure": 0},
	}
	for i, payload := range cases {
		status, _ := doJSON(t, app, "POST", "/check-eligibility", payload)
		assert.Equal(t, 400, status, "case %d", i)
	}
}

func TestCreateLoanEndpoint_Approved(t *testing.T) {
	app, db := setupLoanAPI(t)
	customer := seedCustomer(t, db, 50000)

	status, body := doJSON(t, app, "POST", "/create-loan", fiber.Map{
		"customer_id":   customer.CustomerID,
		"loan_amount":   100000,
		"interest_rate": 18,
		"tenure":        12,
	})
	assert.Equal(t, 201, status)
	assert.Equal(t, true, body["loan_approved"])
	assert.Equal(t, loansvc.MsgLoanCreated, body["message"])
	assert.NotNil(t, body["loan_id"])

	var count int64
	require.NoError(t, db.Model(&domain.Loan{}).Where("customer_id = ?", customer.CustomerID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateLoanEndpoint_RejectionIs400(t *testing.T) {
	app, db := setupLoanAPI(t)
	customer := seedCustomer(t, db, 10000)

	status, body := doJSON(t, app, "POST", "/create-loan", fiber.Map{
		"customer_id":   customer.CustomerID,
		"loan_amount":   100000,
		"interest_rate": 10,
		"tenure":        12,
	})
	assert.Equal(t, 400, status)
	assert.Equal(t, false, body["loan_approved"])
	assert.Equal(t, loansvc.MsgEMIsExceedIncome, body["message"])
	assert.Nil(t, body["loan_id"])
}

func TestViewLoanEndpoint(t *testing.T) {
	app, db := setupLoanAPI(t)
	customer := seedCustomer(t, db, 50000)
	loan := &domain.Loan{
		CustomerID:       customer.CustomerID,
		LoanAmount:       decimal.NewFromFloat(100000),
		Tenure:           12,
		InterestRate:     decimal.NewFromFloat(10),
		MonthlyRepayment: decimal.NewFromFloat(8791.59),
		EMIsPaidOnTime:   3,
		StartDate:        testToday,
		EndDate:          testToday.AddDate(1, 0, 0),
	}
	require.NoError(t, db.Create(loan).Error)

	status, body := doJSON(t, app, "GET", fmt.Sprintf("/view-loan/%d", loan.LoanID), nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, "success", body["status"])
	data, _ := body["data"].(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, "2025-06-15", data["start_date"])
	assert.Equal(t, "2026-06-15", data["end_date"])
	embedded, _ := data["customer"].(map[string]interface{})
	require.NotNil(t, embedded)
	assert.Equal(t, customer.FirstName, embedded["first_name"])
}

func TestViewLoanEndpoint_NotFound(t *testing.T) {
	app, _ := setupLoanAPI(t)

	status, body := doJSON(t, app, "GET", "/view-loan/424242", nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "error", body["status"])
}

func TestViewCustomerLoansEndpoint(t *testing.T) {
	app, db := setupLoanAPI(t)
	customer := seedCustomer(t, db, 50000)
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&domain.Loan{
			CustomerID:       customer.CustomerID,
			LoanAmount:       decimal.NewFromFloat(50000),
			Tenure:           12,
			InterestRate:     decimal.NewFromFloat(12),
			MonthlyRepayment: decimal.NewFromFloat(4442.44),
			StartDate:        testToday.AddDate(0, -i, 0),
			EndDate:          testToday.AddDate(1, -i, 0),
		}).Error)
	}

	status, body := doJSON(t, app, "GET", fmt.Sprintf("/view-loans/%d", customer.CustomerID), nil)
	assert.Equal(t, 200, status)
	items, _ := body["data"].([]interface{})
	require.Len(t, items, 2)
	first, _ := items[0].(map[string]interface{})
	assert.Equal(t, customer.FirstName+" "+customer.LastName, first["customer_name"])
}

func TestViewCustomerLoansEndpoint_UnknownCustomer(t *testing.T) {
	app, _ := setupLoanAPI(t)

	status, body := doJSON(t, app, "GET", "/view-loans/424242", nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "error", body["status"])
}
