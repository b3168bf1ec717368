package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// ISO currency codes the wallet system supports
	validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		currency := strings.ToUpper(fl.Field().String())
		validCurrencies := []string{"NGN", "USD", "GBP", "EUR", "GHS", "KES", "ZAR", ""}
		for _, c := range validCurrencies {
			if currency == c {
				return true
			}
		}
		return false
	})

	// Payment gateway names
	validate.RegisterValidation("gateway", func(fl validator.FieldLevel) bool {
		gateway := strings.ToUpper(fl.Field().String())
		validGateways := []string{"STRIPE", "FLUTTERWAVE", "PAYSTACK", ""}
		for _, g := range validGateways {
			if gateway == g {
				return true
			}
		}
		return false
	})

	// Transaction reference categories accepted from clients
	validate.RegisterValidation("bill_type", func(fl validator.FieldLevel) bool {
		billType := fl.Field().String()
		validTypes := []string{"BILL_PAYMENT", "RENT_PAYMENT", "MAINTENANCE_FEE", "LATE_FEE", "CHARGES", ""}
		for _, t := range validTypes {
			if billType == t {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns field errors keyed by JSON name
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	details := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			details[fe.Field()] = validationMessage(fe)
		}
	} else {
		details["_"] = err.Error()
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "currency":
		return "unsupported currency code"
	case "gateway":
		return "unsupported payment gateway"
	case "bill_type":
		return "unsupported bill type"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "failed validation: " + fe.Tag()
	}
}
