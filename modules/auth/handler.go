package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/samosalabs/licenseserver/pkg/binder"
	"github.com/samosalabs/licenseserver/pkg/response"
)

// Handler exposes the auth endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	if svc == nil {
		panic("auth: service is required")
	}
	return &Handler{svc: svc}
}

// Routes mounts the auth endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.With(h.svc.RequireUser).Get("/auth/user", h.currentUser)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type sessionResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := binder.JSON(r, &req); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	user, token, err := h.svc.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	response.JSONStatus(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := binder.JSON(r, &req); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	response.JSON(w, sessionResponse{Token: token, User: user})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), BearerToken(r)); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, map[string]bool{"ok": true})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	user, err := h.svc.GetUser(r.Context(), principal.UserID)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	response.JSON(w, user)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrEmailRequired), errors.Is(err, ErrPasswordTooShort):
		return response.ErrBadRequest
	case errors.Is(err, ErrEmailAlreadyTaken):
		return response.ErrConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return response.ErrUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return response.ErrNotFound
	default:
		return err
	}
}
