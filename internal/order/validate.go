package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks orders against the worker allow-list and field rules.
type Validator struct {
	v       *validator.Validate
	workers Workers
}

func NewValidator(workers []string) *Validator {
	if len(workers) == 0 {
		workers = DefaultWorkers
	}
	val := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), workers: Workers(workers)}

	val.v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	val.v.RegisterValidation("worker", func(fl validator.FieldLevel) bool {
		return val.workers.Allowed(fl.Field().String())
	})

	return val
}

func (val *Validator) Workers() Workers { return val.workers }

// Validate reports the first failing rule as a user-facing message wrapped
// in ErrInvalidOrder.
func (val *Validator) Validate(o Order) error {
	err := val.v.Struct(o)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidOrder, message(verrs[0]))
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "WorkerID":
		return "worker id is not on the allow-list"
	case "CustomerName":
		return "customer name is required"
	case "Phone":
		if fe.Tag() == "required" {
			return "phone number is required"
		}
		return "phone number must be exactly 10 digits"
	case "Item":
		return "item is required"
	case "Quantity":
		return "quantity must be at least 1"
	case "Price":
		return "price must not be negative"
	case "PaymentMode":
		return "payment mode must be " + strings.Join([]string{PaymentCash, PaymentUPI}, " or ")
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
