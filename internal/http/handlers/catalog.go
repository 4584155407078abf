package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/catalog"
	"github.com/ShivpalBellway/DevBhakti/internal/http/respond"
	"github.com/ShivpalBellway/DevBhakti/internal/middleware"
)

// CatalogHandler serves poojas and the public temple list
type CatalogHandler struct {
	catalog *catalog.Service
	logger  *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc *catalog.Service, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: svc, logger: logger}
}

func actorFrom(r *http.Request) (catalog.Actor, error) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		return catalog.Actor{}, apperr.Unauthenticated("No token, authorization denied")
	}
	return catalog.Actor{AccountID: p.AccountID, Role: p.Role}, nil
}

// HandleCreatePooja handles POST /api/admin/poojas and POST /api/institution/poojas
func (h *CatalogHandler) HandleCreatePooja(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	var req catalog.PoojaInput
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	p, err := h.catalog.CreatePooja(r.Context(), actor, req)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusCreated, "Pooja created successfully", p)
}

// HandleDeletePooja handles DELETE /api/admin/poojas/{id} and /api/institution/poojas/{id}
func (h *CatalogHandler) HandleDeletePooja(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	if err := h.catalog.DeletePooja(r.Context(), actor, id); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "Pooja deleted successfully", nil)
}

// HandleGetPooja handles GET /api/temples/poojas/{id}
func (h *CatalogHandler) HandleGetPooja(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	p, err := h.catalog.GetPooja(r.Context(), id)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "", p)
}

// HandleListTemplePoojas handles GET /api/temples/{id}/poojas
func (h *CatalogHandler) HandleListTemplePoojas(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	poojas, err := h.catalog.ListTemplePoojas(r.Context(), id)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "", poojas)
}

// HandleListTemples handles GET /api/temples
func (h *CatalogHandler) HandleListTemples(w http.ResponseWriter, r *http.Request) {
	temples, err := h.catalog.ListLiveTemples(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "", temples)
}
