package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/mappers"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/viewmodels"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/httpapi"
)

// TenantController serves the anonymous organization lookups used by the
// sign in page, plus the caller's own organization.
type TenantController struct {
	app           application.Application
	tenantService *services.TenantService
	publicLimit   mux.MiddlewareFunc
}

func NewTenantController(app application.Application, publicLimit mux.MiddlewareFunc) application.Controller {
	return &TenantController{
		app:           app,
		tenantService: app.Service(services.TenantService{}).(*services.TenantService),
		publicLimit:   publicLimit,
	}
}

func (c *TenantController) Key() string {
	return apiPrefix + "/tenants"
}

func (c *TenantController) Register(r *mux.Router) {
	public := r.PathPrefix(apiPrefix + "/public/tenants").Subrouter()
	if c.publicLimit != nil {
		public.Use(c.publicLimit)
	}
	public.HandleFunc("/availability", c.availability).Methods(http.MethodGet)
	public.HandleFunc("/{slug}", c.bySlug).Methods(http.MethodGet)

	own := r.PathPrefix(apiPrefix + "/tenant").Subrouter()
	own.Use(protected(c.app)...)
	own.HandleFunc("", c.current).Methods(http.MethodGet)
}

func (c *TenantController) bySlug(w http.ResponseWriter, r *http.Request) {
	t, err := c.tenantService.GetBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.TenantToPublicViewModel(t))
}

func (c *TenantController) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := c.tenantService.Availability(r.Context(), q.Get("name"), q.Get("slug"))
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, viewmodels.SlugAvailability{
		Slug:      result.Slug,
		Available: result.Available,
	})
}

func (c *TenantController) current(w http.ResponseWriter, r *http.Request) {
	t, err := c.tenantService.Current(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.TenantToViewModel(t))
}
