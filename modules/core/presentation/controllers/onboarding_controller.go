package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/mappers"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/httpapi"
)

type OnboardingController struct {
	app                 application.Application
	provisioningService *services.ProvisioningService
	basePath            string
}

func NewOnboardingController(app application.Application) application.Controller {
	return &OnboardingController{
		app:                 app,
		provisioningService: app.Service(services.ProvisioningService{}).(*services.ProvisioningService),
		basePath:            apiPrefix + "/onboarding",
	}
}

func (c *OnboardingController) Key() string {
	return c.basePath
}

func (c *OnboardingController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(protected(c.app)...)
	router.HandleFunc("", c.onboard).Methods(http.MethodPost)
}

// onboard answers 200 even when some items failed; the per item results
// tell the client which ones to fix and resubmit.
func (c *OnboardingController) onboard(w http.ResponseWriter, r *http.Request) {
	var dto services.OnboardDTO
	if err := httpapi.DecodeJSON(w, r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	result, err := c.provisioningService.Onboard(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.ProvisioningToViewModel(result))
}
