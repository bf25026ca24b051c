package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/branch"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/mappers"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/viewmodels"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/httpapi"
)

type BranchController struct {
	app           application.Application
	branchService *services.BranchService
	basePath      string
}

func NewBranchController(app application.Application) application.Controller {
	return &BranchController{
		app:           app,
		branchService: app.Service(services.BranchService{}).(*services.BranchService),
		basePath:      apiPrefix + "/branches",
	}
}

func (c *BranchController) Key() string {
	return c.basePath
}

func (c *BranchController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(protected(c.app)...)
	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("", c.create).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.update).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.delete).Methods(http.MethodDelete)
}

func (c *BranchController) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	branches, err := c.branchService.List(r.Context(), &branch.FindParams{Limit: limit, Offset: offset})
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, viewmodels.List[viewmodels.Branch]{
		Items: mappers.BranchesToViewModels(branches),
	})
}

func (c *BranchController) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	b, err := c.branchService.GetByID(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.BranchToViewModel(b))
}

func (c *BranchController) create(w http.ResponseWriter, r *http.Request) {
	var dto services.BranchDTO
	if err := httpapi.DecodeJSON(w, r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	b, err := c.branchService.Create(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, mappers.BranchToViewModel(b))
}

func (c *BranchController) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	var dto services.BranchDTO
	if err := httpapi.DecodeJSON(w, r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	b, err := c.branchService.Update(r.Context(), id, &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.BranchToViewModel(b))
}

func (c *BranchController) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.branchService.Delete(r.Context(), id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
