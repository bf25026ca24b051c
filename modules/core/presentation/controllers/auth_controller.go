package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/mappers"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/httpapi"
)

type AuthController struct {
	app         application.Application
	authService *services.AuthService
	basePath    string
	loginLimit  mux.MiddlewareFunc
}

// NewAuthController registers the sign in flows. loginLimit, when not nil,
// guards the credential endpoints.
func NewAuthController(app application.Application, loginLimit mux.MiddlewareFunc) application.Controller {
	return &AuthController{
		app:         app,
		authService: app.Service(services.AuthService{}).(*services.AuthService),
		basePath:    apiPrefix + "/auth",
		loginLimit:  loginLimit,
	}
}

func (c *AuthController) Key() string {
	return c.basePath
}

func (c *AuthController) Register(r *mux.Router) {
	public := r.PathPrefix(c.basePath).Subrouter()
	if c.loginLimit != nil {
		public.Use(c.loginLimit)
	}
	public.HandleFunc("/register", c.register).Methods(http.MethodPost)
	public.HandleFunc("/login", c.login).Methods(http.MethodPost)
	public.HandleFunc("/refresh", c.refresh).Methods(http.MethodPost)
	public.HandleFunc("/federated", c.federated).Methods(http.MethodPost)
	public.HandleFunc("/invites/accept", c.acceptInvite).Methods(http.MethodPost)

	session := r.PathPrefix(c.basePath).Subrouter()
	session.Use(protected(c.app)...)
	session.HandleFunc("/me", c.me).Methods(http.MethodGet)
	session.HandleFunc("/logout", c.logout).Methods(http.MethodPost)
}

func (c *AuthController) register(w http.ResponseWriter, r *http.Request) {
	var dto services.RegisterDTO
	if err := httpapi.DecodeJSON(w, r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	result, err := c.authService.Register(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, mappers.AuthResultToViewModel(result))
}

func (c *AuthController) login(w http.ResponseWriter, r *http.Request) {
	var dto services.LoginDTO
	if err := httpapi.DecodeJSON(w, r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	result, err := c.authService.Login(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.AuthResultToViewModel(result))
}

func (c *AuthController) refresh(w http.ResponseWriter, r *http.Request) {
	var dto services.RefreshDTO
	if err := httpapi.DecodeJSON(w, r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	result, err := c.authService.Refresh(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.AuthResultToViewModel(result))
}

func (c *AuthController) federated(w http.ResponseWriter, r *http.Request) {
	var dto services.FederatedLoginDTO
	if err := httpapi.DecodeJSON(w, r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	result, err := c.authService.FederatedLogin(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.IsNewUser {
		status = http.StatusCreated
	}
	_ = httpapi.WriteJSON(w, status, mappers.AuthResultToViewModel(result))
}

func (c *AuthController) acceptInvite(w http.ResponseWriter, r *http.Request) {
	var dto services.AcceptInviteDTO
	if err := httpapi.DecodeJSON(w, r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	result, err := c.authService.AcceptInvite(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.AuthResultToViewModel(result))
}

func (c *AuthController) me(w http.ResponseWriter, r *http.Request) {
	session, err := c.authService.WhoAmI(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.SessionToViewModel(session))
}

func (c *AuthController) logout(w http.ResponseWriter, r *http.Request) {
	if err := c.authService.Logout(r.Context()); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
