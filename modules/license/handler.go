package license

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/samosalabs/licenseserver/modules/auth"
	"github.com/samosalabs/licenseserver/pkg/binder"
	"github.com/samosalabs/licenseserver/pkg/response"
)

// Handler exposes the license endpoints.
type Handler struct {
	registry *Registry
	auth     *auth.Service

	// validateMiddleware guards the public validation endpoint,
	// typically with a rate limiter.
	validateMiddleware []func(http.Handler) http.Handler
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithValidateMiddleware wraps the public validation endpoint.
func WithValidateMiddleware(mw ...func(http.Handler) http.Handler) HandlerOption {
	return func(h *Handler) { h.validateMiddleware = append(h.validateMiddleware, mw...) }
}

func NewHandler(registry *Registry, authSvc *auth.Service, opts ...HandlerOption) *Handler {
	if registry == nil {
		panic("license: registry is required")
	}
	if authSvc == nil {
		panic("license: auth service is required")
	}
	h := &Handler{registry: registry, auth: authSvc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the license endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.With(h.validateMiddleware...).Post("/validate-license", h.validate)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireUser)
		r.Get("/user/license-keys", h.listOwn)
		r.Post("/user/license-keys", h.issue)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAdmin)
		r.Get("/admin/license-keys", h.listAll)
		r.Delete("/admin/license-keys/{id}", h.revoke)
		r.Patch("/admin/license-keys/{id}/reactivate", h.reactivate)
	})
}

type validateRequest struct {
	LicenseKey string `json:"licenseKey"`
}

// validate speaks the verdict contract consumed by product
// installations: the body is always a bare verdict object, never the
// standard envelope, and the status code mirrors the verdict.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := binder.JSON(r, &req); err != nil || req.LicenseKey == "" {
		response.Raw(w, http.StatusBadRequest, Verdict{Valid: false, Message: "License key is required"})
		return
	}

	verdict, err := h.registry.Validate(r.Context(), req.LicenseKey)
	if err != nil {
		response.Error(w, err)
		return
	}

	switch {
	case verdict.Valid:
		response.Raw(w, http.StatusOK, verdict)
	case verdict.TrialExpired:
		response.Raw(w, http.StatusForbidden, verdict)
	default:
		response.Raw(w, http.StatusNotFound, verdict)
	}
}

func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	keys, err := h.registry.ListForOwner(r.Context(), principal.UserID)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	if keys == nil {
		keys = []*Key{}
	}

	response.JSON(w, keys)
}

type issueRequest struct {
	SeatCount *int `json:"seatCount"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	// The body is optional; omitting it issues a key for the
	// subscription's full seat count.
	var req issueRequest
	if r.ContentLength > 0 {
		if err := binder.JSON(r, &req); err != nil {
			response.Error(w, response.ErrBadRequest)
			return
		}
	}
	seats := 0
	if req.SeatCount != nil {
		if *req.SeatCount < 1 {
			response.Error(w, response.ErrBadRequest)
			return
		}
		seats = *req.SeatCount
	}

	key, err := h.registry.Issue(r.Context(), principal.UserID, seats, principal.Email)
	if err != nil {
		// Issuing without a usable subscription is a bad request, not a
		// permissions failure.
		if errors.Is(err, ErrSubscriptionNotUsable) {
			response.Error(w, response.ErrBadRequest)
			return
		}
		response.Error(w, mapError(err))
		return
	}

	response.JSONStatus(w, http.StatusCreated, key)
}

// listAll returns every key with its value masked. Full key values are
// disclosed only to their owners, never on the admin surface.
func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	keys, err := h.registry.ListAll(r.Context())
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	masked := make([]*Key, 0, len(keys))
	for _, k := range keys {
		mk := *k
		mk.Key = MaskKey(k.Key)
		masked = append(masked, &mk)
	}

	response.JSON(w, masked)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	key, err := h.registry.Revoke(r.Context(), id)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	response.JSON(w, key)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	key, err := h.registry.Reactivate(r.Context(), id)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	response.JSON(w, key)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrKeyNotFound):
		return response.ErrNotFound
	case errors.Is(err, ErrKeyAlreadyIssued), errors.Is(err, ErrKeyNotActive), errors.Is(err, ErrKeyNotRevoked):
		return response.ErrConflict
	case errors.Is(err, ErrInvalidSeatCount):
		return response.ErrBadRequest
	case errors.Is(err, ErrSubscriptionNotUsable):
		return response.ErrConflict
	default:
		return err
	}
}
