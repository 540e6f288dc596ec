package scheduling

import (
	"errors"
	"fmt"
	"net/http"

	"clinic-scheduling/internal/apierrors"
)

type Error string

const (
	ErrDoctorNotFound             Error = "doctor not found"
	ErrPatientNotFound            Error = "patient not found"
	ErrAppointmentNotFound        Error = "appointment not found"
	ErrForbidden                  Error = "you are not allowed to perform this action"
	ErrOnlyAdminCanDelete         Error = "only an admin can delete appointments"
	ErrDoctorCannotBook           Error = "only patients and admins can book appointments"
	ErrOnlyDoctorCanCreateBlocker Error = "only a doctor can create a blocker"
	ErrSlotUnavailable            Error = "this time slot is not available"
	ErrRescheduleNotPending       Error = "only pending appointments can be rescheduled"
	ErrCannotCancel               Error = "completed or cancelled appointments cannot be cancelled"
	ErrInvalidTransition          Error = "the requested status change is not allowed"
	ErrConcurrentModification     Error = "the appointment was modified concurrently, please retry"
	ErrNoOp                       Error = "the request contains no fields you are allowed to change"
	ErrInvalidIdentifier          Error = "invalid identifier"
	ErrInvalidDateReference       Error = "invalid date reference - e.g. 2025/06/02"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeSlotUnavailable = "SLOT_UNAVAILABLE"
	CodeInvalidState    = "INVALID_STATE"
	CodeNoOp            = "NO_OP"
	CodeInvalidRequest  = "INVALID_REQUEST"
)

func (e Error) Error() string {
	return string(e)
}

// code gets the error category and the HTTP status used to report it.
func (e Error) code() (string, int) {
	switch e {
	case ErrDoctorNotFound, ErrPatientNotFound, ErrAppointmentNotFound:
		return CodeNotFound, http.StatusNotFound
	case ErrForbidden, ErrOnlyAdminCanDelete, ErrDoctorCannotBook, ErrOnlyDoctorCanCreateBlocker:
		return CodeForbidden, http.StatusForbidden
	case ErrSlotUnavailable:
		return CodeSlotUnavailable, http.StatusConflict
	case ErrRescheduleNotPending, ErrCannotCancel, ErrInvalidTransition, ErrConcurrentModification:
		return CodeInvalidState, http.StatusConflict
	case ErrNoOp:
		return CodeNoOp, http.StatusUnprocessableEntity
	}
	return CodeInvalidRequest, http.StatusBadRequest
}

// newAPIError wraps a business error so handlers can render it while errors.Is still matches the cause.
func newAPIError(e Error) *apierrors.APIError {
	code, status := e.code()
	return apierrors.NewAPIError(
		apierrors.WithCause(e),
		apierrors.WithCode(code),
		apierrors.WithDetail(e.Error()),
		apierrors.WithHTTPStatusCode(status),
	)
}

// fromRepository converts ledger errors into business errors, wrapping anything unexpected.
func fromRepository(err error) error {
	if err == nil {
		return nil
	}
	var businessErr Error
	if errors.As(err, &businessErr) {
		return newAPIError(businessErr)
	}
	return fmt.Errorf("an unexpected error occurred: %w", err)
}

// outcome gets the metric label that describes the result of an operation.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) && apiErr.Code() != "" {
		return apiErr.Code()
	}
	var validationErr *apierrors.ValidationError
	if errors.As(err, &validationErr) {
		return CodeInvalidRequest
	}
	return "ERROR"
}
