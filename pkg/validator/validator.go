package validator

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/go-playground/validator"

	"eventtracker/internal/model"
)

var (
	global          *validator.Validate
	participantIDRe = regexp.MustCompile(`^[A-Za-z0-9_\-./]+$`)
)

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrInvalidEmail       = "Invalid e-mail address"
	ErrUnknownValidation  = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("pid", validateParticipantID)
	_ = v.RegisterValidation("positive", validatePositiveInt)
	_ = v.RegisterValidation("status", validateStatus)
	_ = v.RegisterValidation("role", validateRole)
	_ = v.RegisterValidation("isodate", validateISODate)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validateParticipantID(fl validator.FieldLevel) bool {
	return participantIDRe.MatchString(fl.Field().String())
}

func validatePositiveInt(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(int)
	return ok && val > 0
}

func validateStatus(fl validator.FieldLevel) bool {
	return model.Status(fl.Field().String()).Valid()
}

func validateRole(fl validator.FieldLevel) bool {
	return model.Role(fl.Field().String()).Valid()
}

// validateISODate accepts RFC 3339 timestamps and plain dates.
func validateISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "pid", "status", "role", "isodate":
		msg = ErrInvalidFormat
	case "required":
		msg = ErrFieldRequired
	case "email":
		msg = ErrInvalidEmail
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	case "positive":
		msg = "Value must be positive"
	default:
		msg = ErrUnknownValidation
	}
	return errors.New(msg + ": " + ve.Namespace())
}
