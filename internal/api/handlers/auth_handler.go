package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/axio-app/axio-be/internal/api/respond"
	"github.com/axio-app/axio-be/internal/auth"
	"github.com/axio-app/axio-be/internal/models"
	"github.com/axio-app/axio-be/internal/services"
	"github.com/axio-app/axio-be/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles HTTP requests for registration, login and profile
// retrieval.
type AuthHandler struct {
	service  *services.UserService
	validate *validator.Validate
	devMode  bool
}

// NewAuthHandler creates a new AuthHandler. In devMode, internal error
// responses carry the underlying error message instead of a generic one.
func NewAuthHandler(service *services.UserService, devMode bool) *AuthHandler {
	validate := validator.New()
	// Report field names from json tags so validation errors match the
	// request body the client sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &AuthHandler{service: service, validate: validate, devMode: devMode}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginPayload defines the structure for login requests. The min-length rule
// only applies at registration; login accepts any non-empty password.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.fieldErrors(h.validate.Struct(payload)); errs != nil {
		respond.ValidationFailed(w, errs)
		return
	}

	user, token, err := h.service.Register(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			respond.Error(w, http.StatusBadRequest, "A user with this email already exists.")
			return
		}
		log.Error().Err(err).Str("email", services.NormalizeEmail(payload.Email)).Msg("Failed to register user")
		h.internalError(w, err)
		return
	}

	respond.Success(w, http.StatusCreated, "Account created successfully", authResponse{User: user, Token: token})
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.fieldErrors(h.validate.Struct(payload)); errs != nil {
		respond.ValidationFailed(w, errs)
		return
	}

	user, token, err := h.service.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("email", services.NormalizeEmail(payload.Email)).Msg("Failed authentication attempt")
			respond.Error(w, http.StatusUnauthorized, "Invalid credentials.")
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate user")
		h.internalError(w, err)
		return
	}

	respond.Success(w, http.StatusOK, "Login successful", authResponse{User: user, Token: token})
}

// Profile returns the profile of the authenticated user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve identity from context")
		respond.Error(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	user, err := h.service.Profile(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found.")
			return
		}
		log.Error().Err(err).Str("user_id", identity.ID).Msg("Failed to load user profile")
		h.internalError(w, err)
		return
	}

	respond.Success(w, http.StatusOK, "", user)
}

// fieldErrors converts validator errors into the envelope's errors array.
// Returns nil when err is nil.
func (h *AuthHandler) fieldErrors(err error) []respond.FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []respond.FieldError{{Field: "", Message: "Invalid request"}}
	}
	out := make([]respond.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, respond.FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Please provide a valid email address"
	case "min":
		return "Password must be at least " + fe.Param() + " characters long"
	default:
		return "Invalid value"
	}
}

func (h *AuthHandler) internalError(w http.ResponseWriter, err error) {
	if h.devMode {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond.Error(w, http.StatusInternalServerError, "An unexpected error occurred on the server.")
}
