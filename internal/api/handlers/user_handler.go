package handlers

import (
	"net/http"

	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/isdelr/recipehub-be/internal/auth"
	"github.com/isdelr/recipehub-be/internal/models"
	"github.com/isdelr/recipehub-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles registration and token endpoints.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshPayload defines the structure for token refresh requests.
type RefreshPayload struct {
	Refresh string `json:"refresh"`
}

// RegisterResponse is the account's public fields plus its first token pair.
type RegisterResponse struct {
	models.User
	services.TokenPair
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	user, pair, err := h.service.Register(r.Context(), payload)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		writeError(w, r, err)
		return
	}

	log.Info().Str("user_id", user.ID).Str("role", user.Role.String()).Msg("User registered")
	writeJSON(w, http.StatusCreated, RegisterResponse{User: user, TokenPair: pair})
}

// Login handles credential verification and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	verr := apperrors.NewValidationError()
	if payload.Username == "" {
		verr.Add("username", "This field is required.")
	}
	if payload.Password == "" {
		verr.Add("password", "This field is required.")
	}
	if err := verr.OrNil(); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed authentication attempt")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload RefreshPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := h.service.Refresh(r.Context(), payload.Refresh)
	if err != nil {
		log.Debug().Err(err).Msg("Refresh token rejected")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	if actor == nil {
		writeError(w, r, apperrors.ErrAuthentication)
		return
	}

	user, err := h.service.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", actor.ID).Msg("User from token not found in DB")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
