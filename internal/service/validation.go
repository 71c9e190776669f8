package service

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
)

const dateLayout = "2006-01-02"

// ValidationHelper wraps a validator that reports fields by their JSON name.
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &ValidationHelper{validator: v}
}

// ValidateStruct validates s and converts field errors into a single
// validation AppError listing every failing field.
func (vh *ValidationHelper) ValidateStruct(s any) error {
	err := vh.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.ErrInternal.WithDetails(err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed on '%s'", fe.Field(), fe.Tag()))
	}
	return errors.NewAppError(errors.ValidationFailed, "request validation failed").WithDetails(strings.Join(msgs, "; "))
}

func fieldError(field, reason string) error {
	return errors.NewAppError(errors.ValidationFailed, "request validation failed").WithDetails(field + ": " + reason)
}

// parseMoney checks that d fits the stored precision and range.
func parseMoney(field string, d decimal.Decimal) (decimal.Decimal, error) {
	if !d.Equal(d.Round(domain.AmountScale)) {
		return decimal.Zero, fieldError(field, fmt.Sprintf("at most %d decimal places", domain.AmountScale))
	}
	if !domain.InRange(d) {
		return decimal.Zero, outOfRange(field)
	}
	return d, nil
}

func outOfRange(field string) error {
	return errors.NewAppErrorf(errors.ValidationFailed, "%s must not exceed %s in magnitude", field, domain.MaxAmount.StringFixed(domain.AmountScale)).
		WithDetails(field + ": out of range")
}
