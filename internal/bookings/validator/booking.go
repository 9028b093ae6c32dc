package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"labbook/pkg/logger"
	"labbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate  *validator.Validate
	allowPast bool
	logger    *logger.Logger
}

func NewBookingValidator(allowPast bool, log *logger.Logger) *BookingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	log.Info("Booking validator initialized successfully", "allow_past", allowPast)

	return &BookingValidator{
		validate:  v,
		allowPast: allowPast,
		logger:    log,
	}
}

// Validate checks req against now. Start must be strictly before end and, unless
// past bookings are allowed, neither end of the interval may lie before now.
func (v *BookingValidator) Validate(req *model.BookingRequest, now time.Time) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	var errs ValidationErrors
	if !req.End.After(req.Start) {
		errs = append(errs, ValidationError{
			Field:   "end_time",
			Message: "end_time must be after start_time",
		})
	}
	if !v.allowPast {
		if req.Start.Before(now) {
			errs = append(errs, ValidationError{
				Field:   "start_time",
				Message: "start_time cannot be in the past",
			})
		} else if req.End.Before(now) {
			errs = append(errs, ValidationError{
				Field:   "end_time",
				Message: "end_time cannot be in the past",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) ValidateStatusUpdate(update *model.BookingStatusUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
