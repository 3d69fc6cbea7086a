package loans

import (
	"errors"
	"strconv"

	custsvc "creditline-backend/internal/application/customers"
	loansvc "creditline-backend/internal/application/loans"
	"creditline-backend/internal/domain"
	"creditline-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service   *loansvc.Service
	Customers *custsvc.Service
}

type loanRequest struct {
	CustomerID   uint    `json:"customer_id"`
	LoanAmount   float64 `json:"loan_amount"`
	InterestRate float64 `json:"interest_rate"`
	Tenure       int     `json:"tenure"`
}

func (r *loanRequest) validate() string {
	if r.CustomerID == 0 {
		return "customer_id is required"
	}
	if r.LoanAmount <= 0 {
		return "Loan amount must be positive"
	}
	if r.InterestRate <= 0 {
		return "Interest rate must be positive"
	}
	if r.Tenure <= 0 {
		return "Tenure must be positive"
	}
	return ""
}

// CheckEligibility POST /check-eligibility — returns the bare decision
// payload, 200 even for rejections (source-API parity).
func (h *Handlers) CheckEligibility(c *fiber.Ctx) error {
	var body loanRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if msg := body.validate(); msg != "" {
		return response.Error(c, msg, 400, nil)
	}

	decision, err := h.Service.CheckEligibility(c.Context(), body.CustomerID, body.LoanAmount, body.InterestRate, body.Tenure)
	if err != nil {
		if errors.Is(err, loansvc.ErrInvalidTenure) {
			return response.Error(c, err.Error(), 400, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return c.Status(fiber.StatusOK).JSON(decision)
}

// CreateLoan POST /create-loan — 201 with the bare result on approval, 400
// with the same shape on rejection.
func (h *Handlers) CreateLoan(c *fiber.Ctx) error {
	var body loanRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if msg := body.validate(); msg != "" {
		return response.Error(c, msg, 400, nil)
	}

	result, err := h.Service.CreateLoan(c.Context(), body.CustomerID, body.LoanAmount, body.InterestRate, body.Tenure)
	if err != nil {
		if errors.Is(err, loansvc.ErrInvalidTenure) {
			return response.Error(c, err.Error(), 400, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if !result.LoanApproved {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ViewLoan GET /view-loan/:loan_id
func (h *Handlers) ViewLoan(c *fiber.Ctx) error {
	loanID, err := strconv.ParseUint(c.Params("loan_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid loan_id", 400, nil)
	}

	loan, err := h.Customers.GetLoan(c.Context(), uint(loanID))
	if err != nil {
		if errors.Is(err, custsvc.ErrLoanNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Loan retrieved successfully", loanDetailView(loan), nil)
}

// ViewCustomerLoans GET /view-loans/:customer_id
func (h *Handlers) ViewCustomerLoans(c *fiber.Ctx) error {
	customerID, err := strconv.ParseUint(c.Params("customer_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid customer_id", 400, nil)
	}

	customer, loans, err := h.Customers.LoansForCustomer(c.Context(), uint(customerID))
	if err != nil {
		if errors.Is(err, custsvc.ErrCustomerNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}

	views := make([]fiber.Map, 0, len(loans))
	for i := range loans {
		views = append(views, loanListView(&loans[i], customer))
	}
	return response.Success(c, "Loans retrieved successfully", views, nil)
}

const dateLayout = "2006-01-02"

func loanDetailView(loan *domain.Loan) fiber.Map {
	view := fiber.Map{
		"loan_id":           loan.LoanID,
		"loan_amount":       loan.LoanAmount,
		"tenure":            loan.Tenure,
		"interest_rate":     loan.InterestRate,
		"monthly_repayment": loan.MonthlyRepayment,
		"emis_paid_on_time": loan.EMIsPaidOnTime,
		"start_date":        loan.StartDate.Format(dateLayout),
		"end_date":          loan.EndDate.Format(dateLayout),
	}
	if loan.Customer != nil {
		view["customer"] = fiber.Map{
			"customer_id":    loan.Customer.CustomerID,
			"first_name":     loan.Customer.FirstName,
			"last_name":      loan.Customer.LastName,
			"age":            loan.Customer.Age,
			"phone_number":   loan.Customer.PhoneNumber,
			"monthly_salary": loan.Customer.MonthlySalary,
			"approved_limit": loan.Customer.ApprovedLimit,
			"current_debt":   loan.Customer.CurrentDebt,
		}
	}
	return view
}

func loanListView(loan *domain.Loan, customer *domain.Customer) fiber.Map {
	return fiber.Map{
		"loan_id":           loan.LoanID,
		"customer":          customer.CustomerID,
		"customer_name":     customer.FirstName + " " + customer.LastName,
		"loan_amount":       loan.LoanAmount,
		"tenure":            loan.Tenure,
		"interest_rate":     loan.InterestRate,
		"monthly_repayment": loan.MonthlyRepayment,
		"emis_paid_on_time": loan.EMIsPaidOnTime,
		"start_date":        loan.StartDate.Format(dateLayout),
		"end_date":          loan.EndDate.Format(dateLayout),
	}
}
