package scheduling

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"clinic-scheduling/internal/apierrors"
	"clinic-scheduling/internal/auth"
	"clinic-scheduling/internal/database"
	"clinic-scheduling/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type httpHandler struct {
	authorizer auth.Authorizer
	service    Service
	logger     zerolog.Logger
}

// Setup setups the routes handled by the scheduling context.
func Setup(router *chi.Mux, logger zerolog.Logger, authorizer auth.Authorizer, dbConn database.Connection, opts ...ServiceOption) {
	opts = append([]ServiceOption{WithLogger(logger)}, opts...)
	handler := &httpHandler{logger: logger, authorizer: authorizer, service: NewService(dbConn, opts...)}

	// protected routes, any authenticated user
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Get("/api/v1/doctors/{doctorUUID}/slots/{year}/{month}/{day}", handler.ListFreeSlots)
		group.Put("/api/v1/doctors/{doctorUUID}/availability", handler.SetAvailability)
		group.Get("/api/v1/appointments", handler.ListAppointments)
		group.Get("/api/v1/appointments/{appointmentUUID}", handler.GetAppointment)
		group.Patch("/api/v1/appointments/{appointmentUUID}", handler.UpdateAppointment)
		group.Post("/api/v1/appointments/{appointmentUUID}/cancel", handler.CancelAppointment)
		group.Delete("/api/v1/appointments/{appointmentUUID}", handler.DeleteAppointment)
	})

	// protected routes, only for patients and admins
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.PatientRole, auth.AdminRole))
		group.Post("/api/v1/appointments", handler.CreateAppointment)
	})

	// protected routes, only for doctors
	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRole(authorizer, auth.DoctorRole))
		group.Post("/api/v1/doctors/blockers", handler.InsertBlockPeriod)
	})
}

// writeError renders business and validation errors, hiding anything else behind a 500.
func (h httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.ForRequest(h.logger, r)
	var apiErr *apierrors.APIError
	var validationErr *apierrors.ValidationError
	switch {
	case errors.As(err, &apiErr):
		logger.Warn().Err(err).Str("code", apiErr.Code()).Msg("request rejected")
		w.WriteHeader(apiErr.HTTPStatusCode())
		_ = json.NewEncoder(w).Encode(apiErr)
	case errors.As(err, &validationErr):
		logger.Warn().Err(err).Msg("invalid request")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErr)
	default:
		logger.Error().Err(err).Msg("request failed")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// parseDateParameters parses the year, month and day parameters into a valid date.
func (h httpHandler) parseDateParameters(r *http.Request) (Date, error) {
	year := chi.URLParam(r, "year")
	month := chi.URLParam(r, "month")
	day := chi.URLParam(r, "day")
	if year == "" || month == "" || day == "" {
		return Date{}, apierrors.NewAPIError(apierrors.WithCode(CodeInvalidRequest), apierrors.WithDetail(ErrInvalidDateReference.Error()), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	date, err := ParseDate(fmt.Sprintf("%s-%s-%s", year, month, day))
	if err != nil {
		return Date{}, apierrors.NewAPIError(apierrors.WithCode(CodeInvalidRequest), apierrors.WithDetail(ErrInvalidDateReference.Error()), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return date, nil
}

// parseUUIDParameter parses a UUID parameter into a valid UUID.
func (h httpHandler) parseUUIDParameter(parName string, r *http.Request) (uuid.UUID, error) {
	uuidPar := chi.URLParam(r, parName)
	if uuidPar == "" {
		return uuid.Nil, apierrors.NewAPIError(apierrors.WithCode(CodeInvalidRequest), apierrors.WithDetail(ErrInvalidIdentifier.Error()), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	parsedUUID, err := uuid.Parse(uuidPar)
	if err != nil {
		return uuid.Nil, apierrors.NewAPIError(apierrors.WithCode(CodeInvalidRequest), apierrors.WithDetail(ErrInvalidIdentifier.Error()), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return parsedUUID, nil
}

// ListFreeSlots handles the request to list the bookable slots of a doctor on a date.
func (h httpHandler) ListFreeSlots(w http.ResponseWriter, r *http.Request) {
	date, err := h.parseDateParameters(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doctorUUID, err := h.parseUUIDParameter("doctorUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slots, err := h.service.FreeSlots(r.Context(), doctorUUID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(slots)
}

// CreateAppointment handles the request to book an appointment.
func (h httpHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	request := new(AppointmentRequest)
	if err = json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.ForRequest(h.logger, r).Warn().Err(err).Msg("malformed body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	appointment, err := h.service.CreateAppointment(ctx, user, *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(appointment)
}

// ListAppointments handles the request to list the appointments of the authenticated user.
func (h httpHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var date *Date
	if value := r.URL.Query().Get("date"); value != "" {
		parsed, err := ParseDate(value)
		if err != nil {
			h.writeError(w, r, apierrors.NewValidationError("date", "invalid date, e.g. 2025-06-02"))
			return
		}
		date = &parsed
	}
	appointments, err := h.service.ListAppointments(ctx, user, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointments)
}

// GetAppointment handles the request to return one appointment.
func (h httpHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appointmentUUID, err := h.parseUUIDParameter("appointmentUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	appointment, err := h.service.GetAppointment(ctx, user, appointmentUUID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

// UpdateAppointment handles the request to patch an appointment.
func (h httpHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appointmentUUID, err := h.parseUUIDParameter("appointmentUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	patch := new(AppointmentPatch)
	if err = json.NewDecoder(r.Body).Decode(patch); err != nil {
		logging.ForRequest(h.logger, r).Warn().Err(err).Msg("malformed body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	appointment, err := h.service.UpdateAppointment(ctx, user, appointmentUUID, *patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

// CancelAppointment handles the request to cancel an appointment. The body is optional.
func (h httpHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appointmentUUID, err := h.parseUUIDParameter("appointmentUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	request := new(CancelRequest)
	if r.ContentLength != 0 {
		if err = json.NewDecoder(r.Body).Decode(request); err != nil {
			logging.ForRequest(h.logger, r).Warn().Err(err).Msg("malformed body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}
	appointment, err := h.service.CancelAppointment(ctx, user, appointmentUUID, request.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

// DeleteAppointment handles the request to remove an appointment.
func (h httpHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appointmentUUID, err := h.parseUUIDParameter("appointmentUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if err = h.service.DeleteAppointment(ctx, user, appointmentUUID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAvailability handles the request to replace a doctor's weekly pattern.
func (h httpHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doctorUUID, err := h.parseUUIDParameter("doctorUUID", r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	availability := new(Availability)
	if err = json.NewDecoder(r.Body).Decode(availability); err != nil {
		logging.ForRequest(h.logger, r).Warn().Err(err).Msg("malformed body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	doctor, err := h.service.SetAvailability(ctx, user, doctorUUID, *availability)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(doctor)
}

// InsertBlockPeriod handles the request to block a period of the authenticated doctor's calendar.
func (h httpHandler) InsertBlockPeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.authorizer.GetAuthenticatedUser(ctx)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	blockPeriod := new(BlockPeriod)
	if err = json.NewDecoder(r.Body).Decode(blockPeriod); err != nil {
		logging.ForRequest(h.logger, r).Warn().Err(err).Msg("malformed body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err = h.service.InsertBlocker(ctx, user, *blockPeriod); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
