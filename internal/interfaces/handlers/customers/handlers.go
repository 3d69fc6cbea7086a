package customers

import (
	"errors"

	custsvc "creditline-backend/internal/application/customers"
	"creditline-backend/internal/pkg/response"
	"creditline-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *custsvc.Service
}

// Register POST /register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var body struct {
		FirstName     string  `json:"first_name"`
		LastName      string  `json:"last_name"`
		Age           int     `json:"age"`
		PhoneNumber   string  `json:"phone_number"`
		MonthlySalary float64 `json:"monthly_salary"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if body.FirstName == "" || body.LastName == "" {
		return response.Error(c, "first_name and last_name are required", 400, nil)
	}
	if !validation.IsValidAge(body.Age) {
		return response.Error(c, "Age must be between 18 and 100", 400, nil)
	}
	if !validation.IsValidPhoneNumber(body.PhoneNumber) {
		return response.Error(c, "Phone number must be at least 10 digits", 400, nil)
	}
	if body.MonthlySalary <= 0 {
		return response.Error(c, "Monthly salary must be positive", 400, nil)
	}

	customer, err := h.Service.Register(c.Context(), custsvc.RegisterInput{
		FirstName:     body.FirstName,
		LastName:      body.LastName,
		Age:           body.Age,
		PhoneNumber:   body.PhoneNumber,
		MonthlySalary: body.MonthlySalary,
	})
	if err != nil {
		if errors.Is(err, custsvc.ErrPhoneTaken) {
			return response.Error(c, err.Error(), 400, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}

	return response.SuccessCreated(c, "Customer registered successfully", customer, nil)
}
