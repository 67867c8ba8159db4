package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/radieske/bankroll-challenges/pkg/bankroll"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// valores monetários e odds comparados em decimal exato, sem passar por float64
	_ = v.RegisterValidation("decgt", decimalCmp(func(d, p decimal.Decimal) bool { return d.GreaterThan(p) }))
	_ = v.RegisterValidation("decgte", decimalCmp(func(d, p decimal.Decimal) bool { return d.GreaterThanOrEqual(p) }))

	// nomes de campo seguem a tag json para as mensagens
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func decimalCmp(ok func(d, param decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, isDec := fl.Field().Interface().(decimal.Decimal)
		if !isDec {
			return false
		}
		param, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return ok(d, param)
	}
}

// InvalidResult é o erro de validação para um result fora da enumeração
func InvalidResult() *ValidationError {
	names := make([]string, 0, 3)
	for _, r := range bankroll.Results() {
		names = append(names, r.String())
	}
	return &ValidationError{Fields: map[string]string{
		"result": "result must be one of: " + strings.Join(names, " "),
	}}
}

// validateStruct converte validator.ValidationErrors em *ValidationError
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt", "decgt":
		if fe.Field() == "odds" {
			return "odds must be decimal odds greater than 1"
		}
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte", "decgte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
