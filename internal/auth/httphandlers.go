package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinic-scheduling/internal/apierrors"
	"clinic-scheduling/internal/configs"
	"clinic-scheduling/internal/database"
	"clinic-scheduling/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type httpHandler struct {
	service Service
	logger  zerolog.Logger
}

// Setup setups the routes handled by auth context.
func Setup(router *chi.Mux, logger zerolog.Logger, config configs.Config, dbConn database.Connection) {
	handler := &httpHandler{logger: logger, service: NewService(config, dbConn)}

	// public routes
	router.Group(func(group chi.Router) {
		group.Post("/api/v1/auth/login", handler.Authenticate)
		group.Put("/api/v1/auth/token", handler.RefreshToken)
	})

	// protected routes
	router.Group(func(group chi.Router) {
		group.Use(JwtValidator(handler.service))
		group.Get("/api/v1/auth/me", handler.GetAuthenticatedUser)
	})
}

// writeTokensError maps the errors raised while issuing tokens to a response.
func (h httpHandler) writeTokensError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.ForRequest(h.logger, r)
	var unauthorizedErr *UnauthorizedError
	var validationErr *apierrors.ValidationError
	switch {
	case errors.As(err, &unauthorizedErr):
		logger.Warn().Err(err).Msg("authentication refused")
		w.WriteHeader(http.StatusUnauthorized)
	case errors.As(err, &validationErr):
		logger.Warn().Err(err).Msg("invalid request")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErr)
	default:
		logger.Error().Err(err).Msg("could not issue tokens")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Authenticate handles the request to authenticate a user.
func (h httpHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	credentials := new(Credentials)
	if err := json.NewDecoder(r.Body).Decode(credentials); err != nil {
		logging.ForRequest(h.logger, r).Warn().Err(err).Msg("malformed body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	tokens, err := h.service.Authenticate(r.Context(), *credentials)
	if err != nil {
		h.writeTokensError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(tokens)
}

// RefreshToken handles the request to return a new refresh token to the authenticated user.
func (h httpHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	tokens := new(Tokens)
	if err := json.NewDecoder(r.Body).Decode(tokens); err != nil {
		logging.ForRequest(h.logger, r).Warn().Err(err).Msg("malformed body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	tokens, err := h.service.RefreshTokens(r.Context(), *tokens)
	if err != nil {
		h.writeTokensError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(tokens)
}

// GetAuthenticatedUser handles the request to return data about the authenticated user.
func (h httpHandler) GetAuthenticatedUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetAuthenticatedUser(r.Context())
	if err != nil {
		logging.ForRequest(h.logger, r).Warn().Err(err).Msg("no authenticated user")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	_ = json.NewEncoder(w).Encode(user)
}
