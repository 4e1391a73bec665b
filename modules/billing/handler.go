package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/samosalabs/licenseserver/modules/auth"
	"github.com/samosalabs/licenseserver/pkg/binder"
	"github.com/samosalabs/licenseserver/pkg/response"
)

// Webhook bodies larger than this are rejected outright.
const maxWebhookBody = 1 << 20

// Handler exposes the billing endpoints.
type Handler struct {
	svc  *Service
	auth *auth.Service
}

func NewHandler(svc *Service, authSvc *auth.Service) *Handler {
	if svc == nil {
		panic("billing: service is required")
	}
	if authSvc == nil {
		panic("billing: auth service is required")
	}
	return &Handler{svc: svc, auth: authSvc}
}

// Routes mounts the billing endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/pricing", h.pricing)
	r.Post("/billing/webhook", h.webhook)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireUser)
		r.Get("/user/subscription", h.subscription)
		r.Post("/create-subscription", h.createSubscription)
		r.Post("/billing/portal", h.portal)
	})
}

func (h *Handler) pricing(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, h.svc.Pricing())
}

func (h *Handler) subscription(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	sub, err := h.svc.GetForUser(r.Context(), principal.UserID)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	response.JSON(w, sub)
}

type createSubscriptionRequest struct {
	SeatCount int      `json:"seatCount"`
	Interval  Interval `json:"interval"`
}

func (h *Handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	var req createSubscriptionRequest
	if err := binder.JSON(r, &req); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	link, err := h.svc.CreateCheckout(r.Context(), principal.UserID, principal.Email, req.SeatCount, req.Interval)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	response.JSON(w, link)
}

func (h *Handler) portal(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	link, err := h.svc.GetPortalLink(r.Context(), principal.UserID)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	response.JSON(w, link)
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	signature := r.Header.Get("Paddle-Signature")
	if err := h.svc.HandleWebhook(r.Context(), payload, signature); err != nil {
		response.Error(w, mapError(err))
		return
	}

	response.JSON(w, map[string]bool{"received": true})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidSeatCount), errors.Is(err, ErrInvalidInterval):
		return response.ErrBadRequest
	case errors.Is(err, ErrSubscriptionAlreadyExists):
		return response.ErrConflict
	case errors.Is(err, ErrSubscriptionNotFound):
		return response.ErrNotFound
	case errors.Is(err, ErrNoBillableSubscription):
		return response.ErrUnprocessableEntity
	case errors.Is(err, ErrWebhookVerification):
		return response.ErrUnauthorized
	default:
		return err
	}
}
