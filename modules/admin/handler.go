package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/samosalabs/licenseserver/modules/auth"
	"github.com/samosalabs/licenseserver/pkg/response"
)

// Handler exposes the admin endpoints.
type Handler struct {
	svc  *Service
	auth *auth.Service
}

func NewHandler(svc *Service, authSvc *auth.Service) *Handler {
	if svc == nil {
		panic("admin: service is required")
	}
	if authSvc == nil {
		panic("admin: auth service is required")
	}
	return &Handler{svc: svc, auth: authSvc}
}

// Routes mounts the admin endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAdmin)
		r.Get("/admin/users", h.users)
		r.Get("/admin/stats", h.stats)
	})
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	accounts, err := h.svc.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		response.Error(w, err)
		return
	}
	if accounts == nil {
		accounts = []*Account{}
	}

	response.JSON(w, accounts)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, stats)
}
