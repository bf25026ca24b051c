package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/mappers"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/viewmodels"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/httpapi"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

type UsersController struct {
	app         application.Application
	userService *services.UserService
	basePath    string
}

func NewUsersController(app application.Application) application.Controller {
	return &UsersController{
		app:         app,
		userService: app.Service(services.UserService{}).(*services.UserService),
		basePath:    apiPrefix + "/users",
	}
}

func (c *UsersController) Key() string {
	return c.basePath
}

func (c *UsersController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(protected(c.app)...)
	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("", c.invite).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.delete).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/suspend", c.suspend).Methods(http.MethodPost)
}

func (c *UsersController) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	params := &user.FindParams{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := user.NewStatus(raw)
		if err != nil {
			httpapi.WriteServiceError(w, r, serrors.Validation("INVALID_STATUS", "unknown status").WithField("status", "oneof"))
			return
		}
		params.Status = status
	}
	users, err := c.userService.List(r.Context(), params)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, viewmodels.List[viewmodels.User]{
		Items: mappers.UsersToViewModels(users),
	})
}

func (c *UsersController) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	u, err := c.userService.GetByID(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.UserToViewModel(u))
}

// invite never returns the invite token; it is delivered out of band.
func (c *UsersController) invite(w http.ResponseWriter, r *http.Request) {
	var dto services.InviteDTO
	if err := httpapi.DecodeJSON(w, r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	u, err := c.userService.Invite(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, mappers.UserToViewModel(u))
}

func (c *UsersController) suspend(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	u, err := c.userService.Suspend(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.UserToViewModel(u))
}

func (c *UsersController) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.userService.Delete(r.Context(), id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
